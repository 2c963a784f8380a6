//go:build ruleguard

// Package gorules contains the ruleguard checks run by golangci-lint for
// the house logging, error and testing conventions.
package gorules
