// Package config centralizes the environment-variable and CLI-flag
// plumbing shared by the coordinator and worker binaries, in the same
// require/default split cmd/engine/main.go used for the donor forensics
// engine.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/rawblock/beal-search/pkg/models"
)

// RequireEnv reads a required environment variable and exits if it is
// not set. Secrets and deployment endpoints never get a silent default.
func RequireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// GetEnvOrDefault returns the env var value or a safe default for
// non-secret settings.
func GetEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// GetEnvUint returns the env var parsed as a uint32, or fallback.
func GetEnvUint(key string, fallback uint32) uint32 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using default %d", key, val, fallback)
		return fallback
	}
	return uint32(n)
}

// ParsePrimes parses a comma-separated list of 32-bit primes, as supplied
// via the --prime flag or the COORDINATOR_PRIMES env var.
func ParsePrimes(csv string) ([]uint32, error) {
	parts := strings.Split(csv, ",")
	primes := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid prime %q: %v", p, err)
		}
		primes = append(primes, uint32(n))
	}
	if len(primes) == 0 {
		return nil, fmt.Errorf("primes list must contain at least one prime")
	}
	return primes, nil
}

// Validate enforces spec §3/§6's configuration invariants: M_b >= 1,
// M_p >= 3, and a non-empty primes list each <= 2^32-1 (trivially true
// for a uint32, but duplicates are rejected since a repeated filter
// prime is never intentional and would silently waste a filter stage).
func Validate(c models.SearchConfig) error {
	if c.MaxBase < 1 {
		return fmt.Errorf("maxBase must be >= 1, got %d", c.MaxBase)
	}
	if c.MaxPow < 3 {
		return fmt.Errorf("maxPow must be >= 3, got %d", c.MaxPow)
	}
	if len(c.Primes) == 0 {
		return fmt.Errorf("primes list must be non-empty")
	}
	seen := make(map[uint32]bool, len(c.Primes))
	for _, p := range c.Primes {
		if seen[p] {
			return fmt.Errorf("duplicate prime in configuration: %d", p)
		}
		seen[p] = true
	}
	return nil
}
