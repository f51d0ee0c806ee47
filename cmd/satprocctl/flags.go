package main

import (
	"flag"
	"io"
)

// parseFlags resolves the CLI configuration from the argument list.
func parseFlags(args []string, stderr io.Writer) (*cliConfig, error) {
	cfg := &cliConfig{}
	fs := flag.NewFlagSet("satprocctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.StringVar(&cfg.configPath, "config", "", "path to YAML config file")
	fs.StringVar(&cfg.toolDir, "tool-dir", "", "tool installation directory (overrides config)")

	fs.BoolVar(&cfg.healthMode, "health", false, "print the tool health report as JSON and exit")
	fs.BoolVar(&cfg.forceCheck, "force-check", false, "bypass the health cache")
	fs.StringVar(&cfg.healthOut, "health-out", "", "also persist the health report to this path")

	fs.StringVar(&cfg.input, "input", "", "input image path")
	fs.StringVar(&cfg.output, "output", "", "output image path")

	fs.StringVar(&cfg.resKm, "res-km", "", "output resolution in km/px")
	fs.StringVar(&cfg.falseColour, "false-colour", "", "false-colour compositing (true|false)")
	fs.StringVar(&cfg.crop, "crop", "", "crop rectangle x,y,w,h")
	fs.StringVar(&cfg.timestamp, "timestamp", "", "capture timestamp (RFC 3339 UTC)")
	fs.StringVar(&cfg.interpolate, "interpolate", "", "temporal interpolation (true|false)")
	fs.StringVar(&cfg.brightness, "brightness", "", "brightness adjustment")
	fs.StringVar(&cfg.contrast, "contrast", "", "contrast adjustment")
	fs.StringVar(&cfg.saturation, "saturation", "", "saturation adjustment")
	fs.StringVar(&cfg.colourRange, "colour-range", "", "IR temperature range lo-hi (requires -gradient)")
	fs.StringVar(&cfg.gradient, "gradient", "", "gradient definition file (requires -colour-range)")

	fs.DurationVar(&cfg.timeout, "timeout", 0, "invocation timeout (default from config)")
	fs.BoolVar(&cfg.progress, "progress", false, "run monitored and report progress on stderr")
	fs.BoolVar(&cfg.quiet, "quiet", false, "log errors only")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}
