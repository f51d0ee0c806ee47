// Command faketool stands in for the external satellite image processor
// in integration tests. It understands the same invocation shape
// (geostationary -s <input> -o <output> [flags…]) and switches behavior
// via FAKETOOL_MODE:
//
//	copy (default)  copy the input file to the output path
//	grow            write the output in chunks with pauses, for progress tests
//	sleep           sleep FAKETOOL_SLEEP_MS milliseconds, then copy
//	fail            print diagnostics to stderr and exit 2
//	no-output       exit 0 without writing the output file
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

func main() {
	for _, a := range os.Args[1:] {
		switch a {
		case "--version":
			fmt.Println("faketool 1.0.0")
			return
		case "--help":
			fmt.Println("Usage: faketool geostationary -s <input> -o <output> [options]")
			return
		}
	}

	input, output := flagValue("-s"), flagValue("-o")
	if input == "" || output == "" {
		fmt.Fprintln(os.Stderr, "faketool: missing -s or -o")
		os.Exit(64)
	}

	switch os.Getenv("FAKETOOL_MODE") {
	case "", "copy":
		copyFile(input, output)
	case "grow":
		grow(input, output)
	case "sleep":
		time.Sleep(time.Duration(envInt("FAKETOOL_SLEEP_MS", 10000)) * time.Millisecond)
		copyFile(input, output)
	case "fail":
		fmt.Fprintln(os.Stderr, "faketool: synthetic failure")
		os.Exit(2)
	case "no-output":
		return
	default:
		fmt.Fprintln(os.Stderr, "faketool: unknown mode")
		os.Exit(64)
	}
}

func flagValue(name string) string {
	args := os.Args[1:]
	for i, a := range args {
		if a == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func copyFile(src, dst string) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faketool: read input: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "faketool: write output: %v\n", err)
		os.Exit(1)
	}
}

// grow appends the input in four slices with pauses between them so a
// watcher can observe the output file growing.
func grow(src, dst string) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faketool: read input: %v\n", err)
		os.Exit(1)
	}
	f, err := os.Create(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "faketool: create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	step := len(data)/4 + 1
	for off := 0; off < len(data); off += step {
		end := off + step
		if end > len(data) {
			end = len(data)
		}
		if _, err := f.Write(data[off:end]); err != nil {
			fmt.Fprintf(os.Stderr, "faketool: write output: %v\n", err)
			os.Exit(1)
		}
		_ = f.Sync()
		time.Sleep(time.Duration(envInt("FAKETOOL_STEP_MS", 120)) * time.Millisecond)
	}
}
