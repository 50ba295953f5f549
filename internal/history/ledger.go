// Package history stores the bounded record of download attempts.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
)

const lockRetries = 50

// DefaultPath returns ~/.cache/prodl/history.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cache", "prodl", "history.json"), nil
}

// Ledger is a JSON-file backed list of HistoryRecords, oldest first,
// holding at most model.MaxHistory entries.
//
// Read failures yield an empty list and write failures are logged; neither
// is returned to the caller. Writes are serialized by a mutex within the
// process and by a lock file across processes.
type Ledger struct {
	path string
	log  logger.Logger
	now  func() time.Time
	mu   sync.Mutex
}

// Open returns a Ledger backed by path. The file is created on first write.
func Open(path string, log logger.Logger) *Ledger {
	if log == nil {
		log = logger.Nop()
	}
	return &Ledger{path: path, log: log, now: time.Now}
}

// Path returns the backing file path.
func (l *Ledger) Path() string { return l.path }

// Add appends rec, filling Timestamp when empty, and evicts the oldest
// records beyond model.MaxHistory. It returns the stored record.
func (l *Ledger) Add(rec model.HistoryRecord) model.HistoryRecord {
	if rec.Timestamp == "" {
		rec.Timestamp = l.now().Format(model.HistoryTimeLayout)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.withLock(func() error {
		records := append(l.load(), rec)
		if len(records) > model.MaxHistory {
			records = records[len(records)-model.MaxHistory:]
		}
		return l.save(records)
	})
	if err != nil {
		l.log.Error("history write failed", "path", l.path, "err", err)
	}
	return rec
}

// All returns every stored record, oldest first.
func (l *Ledger) All() []model.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Recent returns up to n records, newest first.
func (l *Ledger) Recent(n int) []model.HistoryRecord {
	all := l.All()
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]model.HistoryRecord, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out
}

// Clear removes every record.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.withLock(func() error { return l.save(nil) }); err != nil {
		l.log.Error("history clear failed", "path", l.path, "err", err)
	}
}

func (l *Ledger) withLock(fn func() error) error {
	lock, err := acquireLock(l.path+".lock", lockRetries)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.release(); releaseErr != nil {
			l.log.Warn("history lock release failed", "err", releaseErr)
		}
	}()
	return fn()
}

func (l *Ledger) load() []model.HistoryRecord {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.log.Warn("history read failed", "path", l.path, "err", err)
		}
		return nil
	}
	var records []model.HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		l.log.Warn("history file corrupt, starting empty", "path", l.path, "err", err)
		return nil
	}
	return records
}

func (l *Ledger) save(records []model.HistoryRecord) error {
	if records == nil {
		records = []model.HistoryRecord{}
	}
	if err := helpers.MakeDirs(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	return helpers.WriteFileAtomic(l.path, buf.Bytes(), 0644)
}
