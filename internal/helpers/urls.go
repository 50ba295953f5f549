package helpers

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// ErrScriptFilenameUnavailable indicates the runtime caller path could not be resolved.
	ErrScriptFilenameUnavailable = errors.New("failed to get script filename")
	// ErrOpenTextFile indicates opening a text file failed.
	ErrOpenTextFile = errors.New("failed to open text file")
	// ErrScanTextFile indicates scanner iteration over a text file failed.
	ErrScanTextFile = errors.New("failed to scan text file")
)

// WasRunFromSrc checks if the binary was run from a Go build temp directory.
func WasRunFromSrc() bool {
	return strings.HasPrefix(os.Args[0], filepath.Join(os.TempDir(), "go-build"))
}

// GetScriptDir returns the directory of the running binary, or of this
// source file under `go run`.
func GetScriptDir() (string, error) {
	if WasRunFromSrc() {
		_, fname, _, ok := runtime.Caller(0)
		if !ok {
			return "", ErrScriptFilenameUnavailable
		}
		return filepath.Dir(fname), nil
	}
	fname, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	return filepath.Dir(fname), nil
}

// ReadTxtFile reads the non-empty lines of a URL list. Lines starting
// with # are comments.
func ReadTxtFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrOpenTextFile, path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrScanTextFile, path, err)
	}
	return lines, nil
}

// ProcessUrls expands .txt URL lists and drops duplicates, keeping first
// occurrence order. URLs compare exactly since video ids are case-sensitive.
func ProcessUrls(inputs []string) ([]string, error) {
	var (
		processed []string
		seen      = make(map[string]struct{})
		lists     = make(map[string]struct{})
	)
	add := func(u string) {
		u = strings.TrimSuffix(strings.TrimSpace(u), "/")
		if u == "" {
			return
		}
		if _, dup := seen[u]; !dup {
			seen[u] = struct{}{}
			processed = append(processed, u)
		}
	}
	for _, in := range inputs {
		if !strings.HasSuffix(in, ".txt") {
			add(in)
			continue
		}
		if _, done := lists[in]; done {
			continue
		}
		lines, err := ReadTxtFile(in)
		if err != nil {
			return nil, err
		}
		for _, line := range lines {
			add(line)
		}
		lists[in] = struct{}{}
	}
	return processed, nil
}
