// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the domain-level Prometheus collectors maintained by the
// handlers (transport-level metrics live in the middleware package).
package handlers

import "github.com/prometheus/client_golang/prometheus"

// wordsSubmitted counts words durably persisted through successful batch
// submissions. Rejected batches contribute nothing.
var wordsSubmitted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "words_submitted_total",
		Help: "Total number of words persisted via batch submissions.",
	},
)

func init() {
	prometheus.MustRegister(wordsSubmitted)
}
