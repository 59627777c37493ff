// Package auth provides the authentication primitives the rest of the
// application consumes: password hashing and signed session tokens. Handlers
// and services never touch raw crypto; they go through this package.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters (OWASP-recommended baseline).
const (
	argonTime    = 1         // iterations
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4         // parallelism
	argonSaltLen = 16        // salt length in bytes
	argonKeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword produces an argon2id hash of the password, encoded as a PHC
// string ($argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>).
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword reports whether password matches the PHC-encoded hash.
// It returns (false, nil) on a plain mismatch and a non-nil error only when
// the stored hash itself is malformed. Comparison is constant-time.
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("invalid password hash format")
	}

	var memory, iterations uint32
	var threads uint8
	if err := parseParams(parts[3], &memory, &iterations, &threads); err != nil {
		return false, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errors.New("invalid password hash salt")
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, errors.New("invalid password hash digest")
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// parseParams extracts m=..,t=..,p=.. from the PHC parameter segment.
func parseParams(seg string, memory, iterations *uint32, threads *uint8) error {
	for _, kv := range strings.Split(seg, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return errors.New("invalid password hash params")
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.New("invalid password hash params")
		}
		switch k {
		case "m":
			*memory = uint32(n)
		case "t":
			*iterations = uint32(n)
		case "p":
			*threads = uint8(n)
		}
	}
	if *memory == 0 || *iterations == 0 || *threads == 0 {
		return errors.New("invalid password hash params")
	}
	return nil
}
