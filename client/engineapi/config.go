package engineapi

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultTimeout               = 2 * time.Second
	DefaultBreakerMaxFailures    = 5
	DefaultBreakerRestoreTimeout = 10 * time.Second
	DefaultBreakerMaxRequests    = 1
)

// Config is the configuration of the execution engine client.
type Config struct {
	// URL is the authenticated engine API endpoint of the execution engine.
	URL string
	// JWTSecret is the secret shared with the execution engine for engine API authentication.
	JWTSecret [32]byte
	// Timeout bounds every single request.
	Timeout time.Duration
	// BreakerMaxFailures is the number of consecutive failed requests after which the
	// circuit breaker opens and requests fail fast.
	BreakerMaxFailures uint32
	// BreakerRestoreTimeout is how long the circuit breaker stays open before it lets
	// trial requests through.
	BreakerRestoreTimeout time.Duration
	// BreakerMaxRequests is the number of trial requests allowed while half-open.
	BreakerMaxRequests uint32
}

func DefaultConfig() Config {
	return Config{
		Timeout:               DefaultTimeout,
		BreakerMaxFailures:    DefaultBreakerMaxFailures,
		BreakerRestoreTimeout: DefaultBreakerRestoreTimeout,
		BreakerMaxRequests:    DefaultBreakerMaxRequests,
	}
}

// ReadJWTSecret reads a hex encoded 32 byte secret, optionally prefixed with 0x, from the given file.
func ReadJWTSecret(path string) ([32]byte, error) {
	var secret [32]byte

	data, err := os.ReadFile(path)
	if err != nil {
		return secret, fmt.Errorf("could not read jwt secret file %s: %w", path, err)
	}
	return ParseJWTSecret(string(data))
}

// ParseJWTSecret decodes a hex encoded 32 byte secret, optionally prefixed with 0x.
func ParseJWTSecret(encoded string) ([32]byte, error) {
	var secret [32]byte

	encoded = strings.TrimPrefix(strings.TrimSpace(encoded), "0x")
	decoded, err := hex.DecodeString(encoded)
	if err != nil {
		return secret, fmt.Errorf("invalid jwt secret: %w", err)
	}
	if len(decoded) != len(secret) {
		return secret, fmt.Errorf("invalid jwt secret: expected %d bytes, got %d", len(secret), len(decoded))
	}
	copy(secret[:], decoded)
	return secret, nil
}
