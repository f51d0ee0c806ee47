package secure

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Validation ceilings. Paths follow the common PATH_MAX; filenames follow
// the 255-byte limit shared by ext4, APFS and NTFS.
const (
	MaxPathLength     = 4096
	MaxFilenameLength = 255
	DefaultMaxArgs    = 100
)

// argumentRules is the closed whitelist of tool argument keys and the
// pattern each value must match. It is the only source of truth for what
// may reach the command line: a key absent from this table is never
// forwarded to the process.
var argumentRules = map[string]*regexp.Regexp{
	"res_km":       regexp.MustCompile(`^\d+(\.\d+)?$`),
	"false_colour": regexp.MustCompile(`^(true|false)$`),
	"crop":         regexp.MustCompile(`^\d+(,\d+)*$`),
	"timestamp":    regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`),
	"output":       regexp.MustCompile(`^[A-Za-z0-9._/\\:-]+$`),
	"interpolate":  regexp.MustCompile(`^(true|false)$`),
	"brightness":   regexp.MustCompile(`^-?\d+(\.\d+)?$`),
	"contrast":     regexp.MustCompile(`^-?\d+(\.\d+)?$`),
	"saturation":   regexp.MustCompile(`^-?\d+(\.\d+)?$`),
}

// allowedEncoders is the fixed allow-list of video encoder identifiers
// accepted for timelapse export. Anything else is rejected, never passed
// through to an encoder command line.
var allowedEncoders = map[string]struct{}{
	"libx264":    {},
	"libx265":    {},
	"libvpx-vp9": {},
	"mpeg4":      {},
	"ffv1":       {},
}

// injectionIndicators are substrings that have no business appearing in a
// legitimate argument value and strongly suggest a shell injection or
// escape-sequence smuggling attempt.
var injectionIndicators = []string{
	";", "&", "|", "`", "$(", "${",
	">", "<", "\n", "\r", "\x00",
	"\\x", "%00", "%0a", "%0d", "%2e%2e",
}

// illegalFilenameChars matches characters that are invalid in filenames on
// at least one common filesystem, plus ASCII control characters.
var illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)

// ValidateFilePath checks a path against traversal, length and extension
// constraints. allowedExts, when non-empty, is a whitelist of lower-case
// extensions including the dot (".png"). When mustExist is true the path
// must resolve to an existing file.
func ValidateFilePath(path string, allowedExts []string, mustExist bool) error {
	if path == "" {
		return securityErr("path", path, "empty path")
	}
	if len(path) > MaxPathLength {
		return securityErr("path", path, "path exceeds maximum length")
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if seg == ".." {
			return securityErr("path", path, "parent directory traversal")
		}
	}
	if len(allowedExts) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		ok := false
		for _, allowed := range allowedExts {
			if ext == strings.ToLower(allowed) {
				ok = true
				break
			}
		}
		if !ok {
			return securityErr("path", path, "extension not in whitelist")
		}
	}
	if mustExist {
		if _, err := os.Stat(path); err != nil {
			return securityErr("path", path, "file does not exist")
		}
	}
	return nil
}

// ValidateNumericRange checks that value lies within [min, max] inclusive.
// NaN never satisfies a range check.
func ValidateNumericRange(value, min, max float64, name string) error {
	if math.IsNaN(value) {
		return securityErr(name, "NaN", "value is not a number")
	}
	if value < min || value > max {
		return securityErr(name, formatFloat(value), "value outside allowed range")
	}
	return nil
}

// SanitizeFilename rewrites name so it is safe on common filesystems:
// illegal and control characters become underscores, leading/trailing dots
// and spaces are stripped, an empty result becomes "untitled", and the
// result is truncated to 255 bytes while preserving the extension.
func SanitizeFilename(name string) string {
	name = illegalFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "untitled"
	}
	if len(name) <= MaxFilenameLength {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) >= MaxFilenameLength {
		// Pathological extension; keep the head of the name instead.
		return name[:MaxFilenameLength]
	}
	stem := name[:MaxFilenameLength-len(ext)]
	return stem + ext
}

// ValidateToolArgument checks a key/value pair against the whitelist table.
// Unknown keys fail closed.
func ValidateToolArgument(key, value string) error {
	rule, ok := argumentRules[key]
	if !ok {
		return securityErr(key, value, "argument key not in whitelist")
	}
	if !rule.MatchString(value) {
		return securityErr(key, value, "argument value does not match allowed pattern")
	}
	return nil
}

// ValidateCommandArgs checks a full argument vector before it may be passed
// to a process: bounded length and no injection-indicative substrings in
// any individual argument. maxArgs <= 0 selects DefaultMaxArgs.
func ValidateCommandArgs(args []string, maxArgs int) error {
	if maxArgs <= 0 {
		maxArgs = DefaultMaxArgs
	}
	if len(args) > maxArgs {
		return securityErr("args", "", "too many command arguments")
	}
	for _, arg := range args {
		if len(arg) > MaxPathLength {
			return securityErr("args", arg, "argument exceeds maximum length")
		}
		lower := strings.ToLower(arg)
		for _, bad := range injectionIndicators {
			if strings.Contains(lower, bad) {
				return securityErr("args", arg, "argument contains injection-indicative sequence")
			}
		}
	}
	return nil
}

// ValidateEncoder checks a video encoder identifier against the fixed
// allow-list.
func ValidateEncoder(name string) error {
	if _, ok := allowedEncoders[name]; !ok {
		return securityErr("encoder", name, "encoder not in allow-list")
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
