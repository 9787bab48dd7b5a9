// Package procfs reads the kernel's mountstats report.
package procfs

import (
	"fmt"
	"io"
	"os"
)

// DefaultPath is where the kernel exposes per-mount statistics on Linux.
const DefaultPath = "/proc/self/mountstats"

// Open opens the mountstats report at path for streaming. An empty path
// means DefaultPath.
func Open(path string) (io.ReadCloser, error) {
	if path == "" {
		path = DefaultPath
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mountstats file: %w", err)
	}
	return f, nil
}

// Read returns the entire mountstats report at path. An empty path means
// DefaultPath.
func Read(path string) ([]byte, error) {
	if path == "" {
		path = DefaultPath
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mountstats file: %w", err)
	}
	return content, nil
}
