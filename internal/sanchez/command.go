package sanchez

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/satproc/internal/secure"
	"github.com/hyperifyio/satproc/internal/toolerr"
)

// imageExts are the extensions accepted for the tool's file arguments.
var imageExts = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}

// CommandBuilder assembles the tool's argument vector. Every token after
// the fixed prefix passes the validator before it is appended; the result
// is never handed to a shell.
type CommandBuilder struct {
	// BinaryPath is the absolute path to the tool binary.
	BinaryPath string
}

// Build produces the full argument vector:
//
//	<binary> geostationary -s <input> -o <output> [-r <res>] [-c <range> -g <gradient>] [--<key> <value>]...
func (b *CommandBuilder) Build(inputPath, outputPath string, opts CommandOptions) ([]string, error) {
	if b.BinaryPath == "" {
		return nil, &toolerr.ConfigurationError{Tool: "sanchez", Message: "binary path not configured"}
	}
	if err := secure.ValidateFilePath(inputPath, imageExts, false); err != nil {
		return nil, err
	}
	if err := secure.ValidateFilePath(outputPath, imageExts, false); err != nil {
		return nil, err
	}

	argv := []string{b.BinaryPath, "geostationary", "-s", inputPath, "-o", outputPath}

	if opts.ResKm != nil {
		v := formatFloat(*opts.ResKm)
		if err := secure.ValidateToolArgument("res_km", v); err != nil {
			return nil, err
		}
		argv = append(argv, "-r", v)
	}

	if (opts.ColourRange == "") != (opts.GradientPath == "") {
		return nil, &toolerr.ConfigurationError{
			Tool:    "sanchez",
			Message: "colour range and gradient path must be supplied together",
		}
	}
	if opts.ColourRange != "" {
		if err := validateColourRange(opts.ColourRange); err != nil {
			return nil, err
		}
		if err := secure.ValidateFilePath(opts.GradientPath, []string{".json"}, false); err != nil {
			return nil, err
		}
		argv = append(argv, "-c", opts.ColourRange, "-g", opts.GradientPath)
	}

	if opts.FalseColour != nil {
		var err error
		if argv, err = appendValidated(argv, "false_colour", strconv.FormatBool(*opts.FalseColour)); err != nil {
			return nil, err
		}
	}
	if len(opts.Crop) > 0 {
		parts := make([]string, len(opts.Crop))
		for i, n := range opts.Crop {
			if n < 0 {
				return nil, &toolerr.ConfigurationError{Tool: "sanchez", Message: "crop values must be non-negative"}
			}
			parts[i] = strconv.Itoa(n)
		}
		var err error
		if argv, err = appendValidated(argv, "crop", strings.Join(parts, ",")); err != nil {
			return nil, err
		}
	}
	if opts.Timestamp != nil {
		var err error
		if argv, err = appendValidated(argv, "timestamp", opts.Timestamp.UTC().Format(time.RFC3339)); err != nil {
			return nil, err
		}
	}
	if opts.Interpolate != nil {
		var err error
		if argv, err = appendValidated(argv, "interpolate", strconv.FormatBool(*opts.Interpolate)); err != nil {
			return nil, err
		}
	}
	for _, adj := range []struct {
		key   string
		value *float64
	}{
		{"brightness", opts.Brightness},
		{"contrast", opts.Contrast},
		{"saturation", opts.Saturation},
	} {
		if adj.value == nil {
			continue
		}
		var err error
		if argv, err = appendValidated(argv, adj.key, formatFloat(*adj.value)); err != nil {
			return nil, err
		}
	}

	if err := secure.ValidateCommandArgs(argv, 0); err != nil {
		return nil, err
	}
	return argv, nil
}

// appendValidated appends "--key value" after the value passes the
// whitelist table.
func appendValidated(argv []string, key, value string) ([]string, error) {
	if err := secure.ValidateToolArgument(key, value); err != nil {
		return nil, err
	}
	return append(argv, "--"+key, value), nil
}

// validateColourRange checks the -c token: "<lo>-<hi>" with lo < hi, both
// non-negative temperatures.
func validateColourRange(s string) error {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return &toolerr.ConfigurationError{Tool: "sanchez", Message: fmt.Sprintf("malformed colour range %q", s)}
	}
	loV, err1 := strconv.ParseFloat(lo, 64)
	hiV, err2 := strconv.ParseFloat(hi, 64)
	if err1 != nil || err2 != nil {
		return &toolerr.ConfigurationError{Tool: "sanchez", Message: fmt.Sprintf("malformed colour range %q", s)}
	}
	if err := secure.ValidateNumericRange(loV, 0, 1000, "colour_range_low"); err != nil {
		return err
	}
	if err := secure.ValidateNumericRange(hiV, 0, 1000, "colour_range_high"); err != nil {
		return err
	}
	if loV >= hiV {
		return &toolerr.ConfigurationError{Tool: "sanchez", Message: fmt.Sprintf("colour range %q is not ascending", s)}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// libraryPathEnv returns an environment entry extending the platform's
// dynamic-library search path with the binary's own directory, appended to
// (not replacing) any existing value, so colocated shared libraries
// resolve.
func libraryPathEnv(binDir string) string {
	var key string
	switch runtime.GOOS {
	case "windows":
		key = "PATH"
	case "darwin":
		key = "DYLD_LIBRARY_PATH"
	default:
		key = "LD_LIBRARY_PATH"
	}
	existing := os.Getenv(key)
	if existing == "" {
		return key + "=" + binDir
	}
	return key + "=" + existing + string(os.PathListSeparator) + binDir
}

// toolBinaryPath resolves the configured binary inside the tool directory,
// falling back to the platform default name.
func toolBinaryPath(dir, binary string) string {
	if binary == "" {
		if runtime.GOOS == "windows" {
			binary = "Sanchez.exe"
		} else {
			binary = "sanchez"
		}
	}
	return filepath.Join(dir, binary)
}
