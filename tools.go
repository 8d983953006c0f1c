//go:build tools

package main

// Pins the lint and vulnerability-scan tooling used in CI.
import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "golang.org/x/vuln/cmd/govulncheck"
)
