package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
)

const statusWriteInterval = 250 * time.Millisecond

// fileStatus is the JSON document written by StatusFile.
type fileStatus struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	State     string `json:"state"`
	UpdatedAt string `json:"updatedAt"`
	model.ProgressEvent
}

// StatusFile mirrors the latest event of a request into a JSON file so
// other processes can poll it. Writes are throttled except for terminal
// events.
type StatusFile struct {
	path string
	id   string
	url  string
	log  logger.Logger

	mu        sync.Mutex
	lastWrite time.Time
	warnOnce  sync.Once
}

// NewStatusFile returns a StatusFile writing to path.
func NewStatusFile(path, id, url string, log logger.Logger) *StatusFile {
	if log == nil {
		log = logger.Nop()
	}
	return &StatusFile{path: path, id: id, url: url, log: log}
}

// Report writes ev to disk, subject to throttling.
func (s *StatusFile) Report(ev model.ProgressEvent) {
	s.mu.Lock()
	now := time.Now()
	if !ev.Terminal() && now.Sub(s.lastWrite) < statusWriteInterval {
		s.mu.Unlock()
		return
	}
	s.lastWrite = now
	s.mu.Unlock()

	state := "running"
	switch {
	case ev.Success:
		state = "done"
	case ev.Failed:
		state = "failed"
	}
	data, err := json.MarshalIndent(fileStatus{
		ID:            s.id,
		URL:           s.url,
		State:         state,
		UpdatedAt:     now.UTC().Format(time.RFC3339),
		ProgressEvent: ev,
	}, "", "  ")
	if err != nil {
		return
	}
	if err := helpers.WriteFileAtomic(s.path, data, 0644); err != nil {
		s.warnOnce.Do(func() {
			s.log.Warn("failed to write status file", "path", s.path, "err", err)
		})
	}
}

// Follow forwards every event from ch to r until ch is closed.
func Follow(ch <-chan model.ProgressEvent, r Reporter) {
	for ev := range ch {
		r.Report(ev)
	}
}
