package helpers

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

var sanRegex = regexp.MustCompile(`[\/:*?"><|]`)

// Sanitise cleans a filename by replacing invalid characters.
func Sanitise(filename string) string {
	san := sanRegex.ReplaceAllString(filename, "_")
	return strings.TrimSpace(san)
}

// MakeDirs creates directories recursively.
func MakeDirs(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileSize returns the size of a regular file, or 0 if it is missing.
func FileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return 0
	}
	return fi.Size()
}

// ValidatePath checks that a path does not contain dangerous characters.
func ValidatePath(path string) error {
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

// WriteFileAtomic writes data to a sibling temp file and renames it over path.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Truncate cuts s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// FilenameFromURL derives a local filename from the last path element of a
// URL, falling back to "download" when there is none.
func FilenameFromURL(rawURL string) string {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	name := ""
	if i := strings.Index(u, "/"); i >= 0 {
		name = path.Base(u[i:])
	}
	if name == "/" || name == "." {
		name = ""
	}
	name = Sanitise(name)
	if name == "" {
		return "download"
	}
	return name
}
