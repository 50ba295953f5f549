package delegate

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Engine leftovers that never count as a finished output.
var skippedExtensions = []string{".part", ".ytdl", ".temp", ".tmp"}

// Snapshot returns the entry names of dir. A missing dir yields an empty set.
func Snapshot(dir string) map[string]struct{} {
	names := map[string]struct{}{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return names
	}
	for _, e := range entries {
		names[e.Name()] = struct{}{}
	}
	return names
}

// Resolve locates the file an engine produced in dir. The first layer that
// yields a path wins:
//
//  1. the first candidate that exists on disk (hook or engine reported)
//  2. the newest regular file absent from the before snapshot
//  3. the newest regular file whose name starts with prefix
//  4. template itself, which the caller's size check then rejects
//
// Layers 2 and 3 are best effort: another process writing into dir during
// the download can be picked up instead.
func Resolve(dir, prefix, template string, candidates []string, before map[string]struct{}) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}

	files := listFiles(dir)
	if p := newest(files, func(f fileEntry) bool {
		_, seen := before[f.name]
		return !seen
	}); p != "" {
		return p
	}
	if p := newest(files, func(f fileEntry) bool {
		return strings.HasPrefix(f.name, prefix)
	}); p != "" {
		return p
	}
	return template
}

type fileEntry struct {
	name    string
	path    string
	created time.Time
}

func listFiles(dir string) []fileEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []fileEntry
	for _, e := range entries {
		if !e.Type().IsRegular() || isSkipped(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		p := filepath.Join(dir, e.Name())
		files = append(files, fileEntry{name: e.Name(), path: p, created: creationTime(p, fi)})
	}
	return files
}

func newest(files []fileEntry, keep func(fileEntry) bool) string {
	var best *fileEntry
	for i := range files {
		if !keep(files[i]) {
			continue
		}
		if best == nil || files[i].created.After(best.created) {
			best = &files[i]
		}
	}
	if best == nil {
		return ""
	}
	return best.path
}

func isSkipped(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
