// Package envutil provides environment variable utilities.
package envutil

import (
	"os"
	"strconv"
	"time"
)

// String returns the variable's value, or fallback when it is unset or
// empty.
func String(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// Int returns the variable parsed as an int, or fallback when it is
// unset or unparsable.
func Int(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Float returns the variable parsed as a float64, or fallback when it is
// unset or unparsable.
func Float(name string, fallback float64) float64 {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Bool returns the variable parsed as a bool, or fallback when it is
// unset or unparsable. Accepted spellings follow strconv.ParseBool.
func Bool(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Duration returns the variable parsed as a time.Duration, or fallback
// when it is unset or unparsable.
func Duration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
