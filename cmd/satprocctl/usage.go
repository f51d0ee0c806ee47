package main

import (
	"io"
	"strings"
)

// helpRequested returns true if any canonical help token is present.
func helpRequested(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" || a == "help" {
			return true
		}
	}
	return false
}

// versionRequested returns true if any canonical version token is present.
func versionRequested(args []string) bool {
	for _, a := range args {
		if a == "--version" || a == "-version" {
			return true
		}
	}
	return false
}

// printUsage writes the usage guide to w.
func printUsage(w io.Writer) {
	var b strings.Builder
	b.WriteString("satprocctl — secure runner for the external satellite image processor\n\n")
	b.WriteString("Usage:\n")
	b.WriteString("  satprocctl -health [-force-check] [-health-out path]\n")
	b.WriteString("  satprocctl -input in.png -output out.png [flags]\n\n")
	b.WriteString("General flags:\n")
	b.WriteString("  -config string\n    Path to YAML config file\n")
	b.WriteString("  -tool-dir string\n    Tool installation directory (overrides config)\n")
	b.WriteString("  -timeout duration\n    Invocation timeout (default from config, 300s)\n")
	b.WriteString("  -quiet\n    Log errors only\n\n")
	b.WriteString("Health flags:\n")
	b.WriteString("  -health\n    Print the tool health report as JSON and exit (exit 1 when unhealthy)\n")
	b.WriteString("  -force-check\n    Bypass the health cache\n")
	b.WriteString("  -health-out string\n    Also persist the health report to this path\n\n")
	b.WriteString("Processing flags (whitelisted tool arguments):\n")
	b.WriteString("  -input string\n    Input image path (required)\n")
	b.WriteString("  -output string\n    Output image path (required)\n")
	b.WriteString("  -res-km string\n    Output resolution in km/px\n")
	b.WriteString("  -false-colour string\n    False-colour compositing (true|false)\n")
	b.WriteString("  -crop string\n    Crop rectangle x,y,w,h\n")
	b.WriteString("  -timestamp string\n    Capture timestamp (RFC 3339 UTC)\n")
	b.WriteString("  -interpolate string\n    Temporal interpolation (true|false)\n")
	b.WriteString("  -brightness/-contrast/-saturation string\n    Signed adjustment factors\n")
	b.WriteString("  -colour-range string\n    IR temperature range lo-hi (requires -gradient)\n")
	b.WriteString("  -gradient string\n    Gradient definition file (requires -colour-range)\n")
	b.WriteString("  -progress\n    Run monitored and report progress on stderr\n\n")
	b.WriteString("Exit codes: 0 success, 1 runtime failure (tool unhealthy or run degraded), 2 usage error.\n")
	_, _ = io.WriteString(w, b.String())
}
