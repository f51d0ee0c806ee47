package secure

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustSecurityError(t *testing.T, err error) *SecurityError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected SecurityError, got nil")
	}
	var se *SecurityError
	if !errors.As(err, &se) {
		t.Fatalf("expected SecurityError, got %T: %v", err, err)
	}
	return se
}

func TestValidateFilePath_RejectsTraversal(t *testing.T) {
	cases := []string{
		"../etc/passwd",
		"images/../../secret.png",
		"..",
		`..\windows\system32`,
	}
	for _, path := range cases {
		if err := ValidateFilePath(path, nil, false); err == nil {
			t.Errorf("ValidateFilePath(%q) = nil, want SecurityError", path)
		}
	}
}

func TestValidateFilePath_AcceptsCleanPaths(t *testing.T) {
	cases := []string{
		"image.png",
		"out/goes16_2024.jpg",
		filepath.Join("a", "b", "c.tiff"),
		"dotted.name.v2.png",
	}
	for _, path := range cases {
		if err := ValidateFilePath(path, nil, false); err != nil {
			t.Errorf("ValidateFilePath(%q) = %v, want nil", path, err)
		}
	}
}

func TestValidateFilePath_ExtensionWhitelist(t *testing.T) {
	exts := []string{".png", ".jpg"}
	if err := ValidateFilePath("a.png", exts, false); err != nil {
		t.Fatalf("png should pass: %v", err)
	}
	if err := ValidateFilePath("a.PNG", exts, false); err != nil {
		t.Fatalf("extension match must be case-insensitive: %v", err)
	}
	if err := ValidateFilePath("a.exe", exts, false); err == nil {
		t.Fatalf("exe should be rejected")
	}
}

func TestValidateFilePath_EmptyAndOverlong(t *testing.T) {
	if err := ValidateFilePath("", nil, false); err == nil {
		t.Fatalf("empty path should be rejected")
	}
	long := strings.Repeat("a", MaxPathLength+1)
	if err := ValidateFilePath(long, nil, false); err == nil {
		t.Fatalf("overlong path should be rejected")
	}
}

func TestValidateFilePath_MustExist(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "in.png")
	if err := os.WriteFile(existing, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateFilePath(existing, nil, true); err != nil {
		t.Fatalf("existing file should pass: %v", err)
	}
	if err := ValidateFilePath(filepath.Join(dir, "missing.png"), nil, true); err == nil {
		t.Fatalf("missing file should be rejected")
	}
}

func TestValidateNumericRange(t *testing.T) {
	if err := ValidateNumericRange(2, 0, 10, "res_km"); err != nil {
		t.Fatalf("in-range value rejected: %v", err)
	}
	// Bounds are inclusive.
	if err := ValidateNumericRange(0, 0, 10, "res_km"); err != nil {
		t.Fatalf("min bound rejected: %v", err)
	}
	if err := ValidateNumericRange(10, 0, 10, "res_km"); err != nil {
		t.Fatalf("max bound rejected: %v", err)
	}
	if err := ValidateNumericRange(10.01, 0, 10, "res_km"); err == nil {
		t.Fatalf("out-of-range value accepted")
	}
	if err := ValidateNumericRange(nan(), 0, 10, "res_km"); err == nil {
		t.Fatalf("NaN accepted")
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}

func TestSanitizeFilename_EmptyAndDots(t *testing.T) {
	for _, in := range []string{"", "...", ". . .", "   "} {
		if got := SanitizeFilename(in); got != "untitled" {
			t.Errorf("SanitizeFilename(%q) = %q, want \"untitled\"", in, got)
		}
	}
}

func TestSanitizeFilename_ReplacesIllegalChars(t *testing.T) {
	cases := []struct{ in, want string }{
		{"café image.png", "café image.png"},
		{"a/b\\c.png", "a_b_c.png"},
		{"con<tro\x01l>.jpg", "con_tro_l_.jpg"},
		{"q?u*o\"t:e|d.png", "q_u_o_t_e_d.png"},
		{"  spaced.png  ", "spaced.png"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFilename_TruncatesPreservingExtension(t *testing.T) {
	long := strings.Repeat("x", 300) + ".png"
	got := SanitizeFilename(long)
	if len(got) > MaxFilenameLength {
		t.Fatalf("sanitized name is %d bytes, want <= %d", len(got), MaxFilenameLength)
	}
	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("extension not preserved: %q", got)
	}
}

func TestValidateToolArgument_WhitelistedValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"res_km", "2"},
		{"res_km", "0.5"},
		{"false_colour", "true"},
		{"crop", "100,200,300,400"},
		{"timestamp", "2024-06-01T12:30:00Z"},
		{"output", "out/processed.png"},
		{"interpolate", "false"},
		{"brightness", "-0.2"},
		{"contrast", "1.1"},
		{"saturation", "0"},
	}
	for _, tc := range cases {
		if err := ValidateToolArgument(tc.key, tc.value); err != nil {
			t.Errorf("ValidateToolArgument(%q, %q) = %v, want nil", tc.key, tc.value, err)
		}
	}
}

func TestValidateToolArgument_RejectsUnknownKeysAndBadValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"rm", "-rf"},
		{"shell", "true"},
		{"", "x"},
		{"res_km", "-2"},
		{"res_km", "; rm -rf /"},
		{"false_colour", "yes"},
		{"crop", "100;200"},
		{"timestamp", "2024-06-01 12:30:00"},
		{"brightness", "0x1f"},
	}
	for _, tc := range cases {
		se := mustSecurityError(t, ValidateToolArgument(tc.key, tc.value))
		if se.Field != tc.key {
			t.Errorf("SecurityError.Field = %q, want %q", se.Field, tc.key)
		}
	}
}

func TestValidateCommandArgs_InjectionIndicators(t *testing.T) {
	bad := [][]string{
		{"-r", "2; rm -rf /"},
		{"a", "b && c"},
		{"$(whoami)"},
		{"`id`"},
		{"%2e%2e/escape"},
		{"value\nwith newline"},
		{"hex\\x41escape"},
	}
	for _, args := range bad {
		if err := ValidateCommandArgs(args, 0); err == nil {
			t.Errorf("ValidateCommandArgs(%q) = nil, want SecurityError", args)
		}
	}
	good := []string{"/opt/sanchez/sanchez", "geostationary", "-s", "in.png", "-o", "out.png", "-r", "2"}
	if err := ValidateCommandArgs(good, 0); err != nil {
		t.Fatalf("clean vector rejected: %v", err)
	}
}

func TestValidateCommandArgs_LengthCap(t *testing.T) {
	args := make([]string, DefaultMaxArgs+1)
	for i := range args {
		args[i] = "a"
	}
	if err := ValidateCommandArgs(args, 0); err == nil {
		t.Fatalf("oversized vector accepted")
	}
	if err := ValidateCommandArgs(args[:DefaultMaxArgs], 0); err != nil {
		t.Fatalf("vector at cap rejected: %v", err)
	}
}

func TestValidateEncoder(t *testing.T) {
	for _, name := range []string{"libx264", "libx265", "libvpx-vp9", "mpeg4", "ffv1"} {
		if err := ValidateEncoder(name); err != nil {
			t.Errorf("ValidateEncoder(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"", "libx264; rm", "h264", "LIBX264"} {
		if err := ValidateEncoder(name); err == nil {
			t.Errorf("ValidateEncoder(%q) = nil, want SecurityError", name)
		}
	}
}
