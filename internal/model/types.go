package model

import (
	"fmt"
	"strings"
)

// DownloadRequest is one user submission.
type DownloadRequest struct {
	URL      string
	SavePath string
}

// ValidateURL checks the http(s) scheme invariant of a request URL.
func ValidateURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w %q: must start with http:// or https://", ErrInvalidURL, url)
	}
	return nil
}

// ProgressEvent is a status update emitted by a running download.
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Success bool   `json:"success,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

// Terminal reports whether the event ends the request.
func (e ProgressEvent) Terminal() bool {
	return e.Success || e.Failed
}

// TransferState tracks one in-flight resumable transfer.
type TransferState struct {
	DestinationPath string
	PartialPath     string
	BytesWritten    int64
	TotalBytes      int64 // 0 when unknown
	Resuming        bool
}

// HistoryRecord is one completed download attempt.
type HistoryRecord struct {
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	Filepath  string `json:"filepath"`
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

// Config is the on-disk configuration (config.json).
type Config struct {
	OutPath         string  `json:"outPath"`
	StorageRoot     string  `json:"storageRoot"`
	HistoryPath     string  `json:"historyPath"`
	Format          string  `json:"format"`
	UserAgent       string  `json:"userAgent"`
	AcceptLanguage  string  `json:"acceptLanguage"`
	Retries         int     `json:"retries"`
	FragmentRetries int     `json:"fragmentRetries"`
	TimeoutSeconds  int     `json:"timeoutSeconds"`
	ProgressStart   int     `json:"progressStart"`
	ProgressEnd     int     `json:"progressEnd"`
	RateLimit       int64   `json:"rateLimit"` // bytes per second, 0 = unlimited
	InstallEngine   bool    `json:"installEngine"`
	EnginePath      string  `json:"enginePath"` // yt-dlp binary, "" = PATH
	StatusFile      string  `json:"statusFile"`
	ChunkSize       int     `json:"chunkSize"`
	EngineInterval  float64 `json:"engineIntervalSeconds"`
}
