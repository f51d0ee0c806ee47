package main

import (
	"fmt"
	"io"
	"strings"
)

// Build-time variables set via -ldflags; defaults are useful for dev builds.
var (
	version   = "v0.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// printVersion writes a concise single-line version string.
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "satprocctl version %s (commit %s, built %s)\n", version, shortCommit(commit), buildDate)
}

func shortCommit(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "unknown"
	}
	if len(c) > 7 {
		return c[:7]
	}
	return c
}
