// Command satprocctl drives the satellite image reprocessing layer from
// the command line: it reports tool health or runs one image through the
// external processor, blocking or with progress reporting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/satproc/internal/health"
	"github.com/hyperifyio/satproc/internal/payload"
	"github.com/hyperifyio/satproc/internal/sanchez"
)

// cliConfig holds user-supplied configuration resolved from flags.
type cliConfig struct {
	configPath string
	toolDir    string

	healthMode bool
	forceCheck bool
	healthOut  string

	input  string
	output string

	resKm       string
	falseColour string
	crop        string
	timestamp   string
	interpolate string
	brightness  string
	contrast    string
	saturation  string
	colourRange string
	gradient    string

	timeout  time.Duration
	progress bool
	quiet    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the testable entrypoint. Exit codes: 0 success, 1 runtime
// failure (unhealthy tool, degraded run), 2 usage error.
func run(args []string, stdout, stderr io.Writer) int {
	if helpRequested(args) {
		printUsage(stdout)
		return 0
	}
	if versionRequested(args) {
		printVersion(stdout)
		return 0
	}

	cfg, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "satprocctl: %v\n", err)
		return 2
	}

	logLevel := slog.LevelInfo
	if cfg.quiet {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	toolCfg := sanchez.DefaultConfig()
	if cfg.configPath != "" {
		toolCfg, err = sanchez.LoadConfig(cfg.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "satprocctl: %v\n", err)
			return 2
		}
	}
	if cfg.toolDir != "" {
		toolCfg.Tool.Dir = cfg.toolDir
	}

	proc, err := sanchez.NewProcessor(toolCfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "satprocctl: %v\n", err)
		return 1
	}
	defer func() {
		_ = proc.Close()
	}()

	if cfg.healthMode {
		return runHealth(cfg, proc, stdout, stderr)
	}
	return runProcess(cfg, proc, stdout, stderr)
}

func runHealth(cfg *cliConfig, proc *sanchez.Processor, stdout, stderr io.Writer) int {
	ctx := context.Background()
	var status *health.Status
	if cfg.forceCheck {
		status = proc.Health().ForceCheck(ctx)
	} else {
		status = proc.Health().Check(ctx)
	}
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "satprocctl: encode health report: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(out))
	if cfg.healthOut != "" {
		if err := health.SaveStatus(cfg.healthOut, status); err != nil {
			fmt.Fprintf(stderr, "satprocctl: persist health report: %v\n", err)
			return 1
		}
	}
	if !status.IsHealthy() {
		return 1
	}
	return 0
}

func runProcess(cfg *cliConfig, proc *sanchez.Processor, stdout, stderr io.Writer) int {
	if cfg.input == "" || cfg.output == "" {
		fmt.Fprintln(stderr, "satprocctl: -input and -output are required (or use -health)")
		return 2
	}
	img, err := payload.Load(cfg.input)
	if err != nil {
		fmt.Fprintf(stderr, "satprocctl: %v\n", err)
		return 1
	}

	opts, err := buildOptions(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "satprocctl: %v\n", err)
		return 2
	}
	if cfg.progress {
		opts.Progress = func(f float64) {
			fmt.Fprintf(stderr, "\rprocessing %3.0f%%", f*100)
			if f >= 1 {
				fmt.Fprintln(stderr)
			}
		}
	}

	res, err := proc.Process(context.Background(), img, opts)
	if err != nil {
		// Validation failures on the options themselves.
		fmt.Fprintf(stderr, "satprocctl: %v\n", err)
		return 2
	}
	if res.Degraded {
		fmt.Fprintf(stderr, "satprocctl: processing failed, keeping original: %s\n", res.Reason)
		return 1
	}
	if err := res.Image.Save(cfg.output); err != nil {
		fmt.Fprintf(stderr, "satprocctl: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s (elapsed %s)\n", cfg.output, res.Elapsed.Round(time.Millisecond))
	return 0
}

// buildOptions converts string flags into typed command options. Flags
// left empty stay unset; conversion errors are usage errors.
func buildOptions(cfg *cliConfig) (sanchez.ProcessOptions, error) {
	var opts sanchez.ProcessOptions
	opts.Timeout = cfg.timeout

	if cfg.resKm != "" {
		v, err := strconv.ParseFloat(cfg.resKm, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid -res-km %q", cfg.resKm)
		}
		opts.ResKm = &v
	}
	var err error
	if opts.FalseColour, err = parseOptBool("-false-colour", cfg.falseColour); err != nil {
		return opts, err
	}
	if opts.Interpolate, err = parseOptBool("-interpolate", cfg.interpolate); err != nil {
		return opts, err
	}
	if cfg.crop != "" {
		for _, part := range strings.Split(cfg.crop, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return opts, fmt.Errorf("invalid -crop %q", cfg.crop)
			}
			opts.Crop = append(opts.Crop, n)
		}
	}
	if cfg.timestamp != "" {
		ts, err := time.Parse(time.RFC3339, cfg.timestamp)
		if err != nil {
			return opts, fmt.Errorf("invalid -timestamp %q (want RFC 3339)", cfg.timestamp)
		}
		opts.Timestamp = &ts
	}
	if opts.Brightness, err = parseOptFloat("-brightness", cfg.brightness); err != nil {
		return opts, err
	}
	if opts.Contrast, err = parseOptFloat("-contrast", cfg.contrast); err != nil {
		return opts, err
	}
	if opts.Saturation, err = parseOptFloat("-saturation", cfg.saturation); err != nil {
		return opts, err
	}
	opts.ColourRange = cfg.colourRange
	opts.GradientPath = cfg.gradient
	return opts, nil
}

func parseOptBool(flagName, value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	switch value {
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("invalid %s %q (want true or false)", flagName, value)
}

func parseOptFloat(flagName, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", flagName, value)
	}
	return &v, nil
}
