// Package transfer implements resumable chunked HTTP downloads into
// sibling .part files that are renamed into place on completion.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	BaseProgress int // percent reported before the first byte, default 20
	ProgressSpan int // percent range covered by the body, default 70
	ChunkSize    int
	Timeout      time.Duration
	UserAgent    string
	RateLimit    int64 // bytes per second, 0 = unlimited
	Client       *http.Client
}

// Engine downloads direct byte-stream URLs.
type Engine struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// New returns an Engine with opts applied over the defaults.
func New(opts Options, log logger.Logger) *Engine {
	if opts.BaseProgress == 0 && opts.ProgressSpan == 0 {
		opts.BaseProgress, opts.ProgressSpan = 20, 70
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{opts: opts, client: opts.Client, log: log}
	if e.client == nil {
		e.client = NewClient(opts.Timeout)
	}
	if opts.RateLimit > 0 {
		burst := opts.ChunkSize
		if int64(burst) < opts.RateLimit {
			burst = int(opts.RateLimit)
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return e
}

// PartialPath returns the in-progress path for dest.
func PartialPath(dest string) string {
	return dest + ".part"
}

// Fetch downloads url to dest, resuming from an existing dest.part when the
// server honours byte ranges. dest only ever appears fully written.
func (e *Engine) Fetch(ctx context.Context, url, dest string, rep progress.Reporter) error {
	if rep == nil {
		rep = progress.Discard
	}
	st := &model.TransferState{DestinationPath: dest, PartialPath: PartialPath(dest)}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	existing, err := preparePartial(st.PartialPath)
	if err != nil {
		return err
	}
	log := e.log.With("url", url, "dest", dest)

	resp, cancel, err := e.get(ctx, url, existing)
	if err != nil {
		return err
	}
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	if existing > 0 {
		switch resp.StatusCode {
		case http.StatusRequestedRangeNotSatisfiable:
			resp.Body.Close()
			log.Info("partial file already complete", "bytes", existing, "reason", model.ErrRangeRejected)
			return finalize(st.PartialPath, dest)
		case http.StatusOK:
			resp.Body.Close()
			cancel()
			log.Info("restarting transfer from zero", "discarded", existing, "reason", model.ErrRangeIgnored)
			if err := os.Remove(st.PartialPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to discard partial file: %w", err)
			}
			existing = 0
			if resp, cancel, err = e.get(ctx, url, 0); err != nil {
				return err
			}
		}
	}
	defer resp.Body.Close()

	st.Resuming = existing > 0 && resp.StatusCode == http.StatusPartialContent
	if resp.StatusCode != http.StatusOK && !(resp.StatusCode == http.StatusPartialContent && existing > 0) {
		return &model.TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if st.Resuming {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		st.BytesWritten = existing
	}
	if resp.ContentLength > 0 {
		st.TotalBytes = st.BytesWritten + resp.ContentLength
	}
	log.Debug("transfer started", "status", resp.StatusCode, "resume_from", st.BytesWritten,
		"total", humanize.Bytes(uint64(max(st.TotalBytes, 0))))

	f, err := openPartial(st.PartialPath, flags)
	if err != nil {
		return err
	}
	if err := e.stream(ctx, url, resp.Body, f, st, rep, cancel); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close partial file: %w", err)
	}
	return finalize(st.PartialPath, dest)
}

func (e *Engine) get(ctx context.Context, url string, from int64) (*http.Response, context.CancelFunc, error) {
	reqCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("%w %q: %w", model.ErrInvalidURL, url, err)
	}
	req.Header.Set("User-Agent", e.opts.UserAgent)
	if from > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", from))
	}
	resp, err := e.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, &model.TransportError{URL: url, Err: err}
	}
	return resp, cancel, nil
}

func (e *Engine) stream(ctx context.Context, url string, body io.Reader, w io.Writer, st *model.TransferState, rep progress.Reporter, cancel context.CancelFunc) error {
	ir := newIdleReader(body, e.opts.Timeout, cancel)
	defer ir.stop()

	buf := make([]byte, e.opts.ChunkSize)
	started := time.Now()
	streamed := int64(0)
	lastPct := -1
	for {
		n, rerr := ir.Read(buf)
		if n > 0 {
			if e.limiter != nil {
				if err := e.limiter.WaitN(ctx, n); err != nil {
					return err
				}
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write partial file: %w", err)
			}
			st.BytesWritten += int64(n)
			streamed += int64(n)
			if st.TotalBytes > 0 {
				pct := e.percent(st.BytesWritten, st.TotalBytes)
				if pct != lastPct {
					lastPct = pct
					rep.Report(progress.Status(pct, transferMessage(st, streamed, started)))
				}
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return &model.TransportError{URL: url, Err: rerr}
		}
	}
}

func (e *Engine) percent(written, total int64) int {
	limit := e.opts.BaseProgress + e.opts.ProgressSpan
	pct := int(float64(written)/float64(total)*float64(e.opts.ProgressSpan)) + e.opts.BaseProgress
	if pct > limit {
		return limit
	}
	return pct
}

func transferMessage(st *model.TransferState, streamed int64, started time.Time) string {
	msg := fmt.Sprintf("Downloading %s / %s", humanize.Bytes(uint64(st.BytesWritten)), humanize.Bytes(uint64(st.TotalBytes)))
	if elapsed := time.Since(started).Seconds(); elapsed > 0 {
		msg += fmt.Sprintf("  %s/s", humanize.Bytes(uint64(float64(streamed)/elapsed)))
	}
	return msg
}

// preparePartial returns the size of a reusable partial file. A partial
// file we cannot write to is removed; if that fails the caller gets
// ErrPermissionDenied with the command that fixes it.
func preparePartial(part string) (int64, error) {
	fi, err := os.Stat(part)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat partial file: %w", err)
	}
	f, err := os.OpenFile(part, os.O_WRONLY|os.O_APPEND, 0)
	if err == nil {
		f.Close()
		return fi.Size(), nil
	}
	if rmErr := os.Remove(part); rmErr != nil {
		return 0, &model.PermissionError{Path: part, Err: rmErr}
	}
	return 0, nil
}

// openPartial opens part for writing. Only permission failures get the
// PermissionError remedy; a full or read-only disk is reported as is.
func openPartial(part string, flags int) (*os.File, error) {
	f, err := os.OpenFile(part, flags, 0644)
	if err == nil {
		return f, nil
	}
	if os.IsPermission(err) {
		return nil, &model.PermissionError{Path: part, Err: err}
	}
	return nil, fmt.Errorf("failed to open partial file: %w", err)
}

func finalize(part, dest string) error {
	if err := os.Rename(part, dest); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", dest, err)
	}
	return nil
}

// IsTransportError reports whether err came from the network layer and
// returns its HTTP status when there was one.
func IsTransportError(err error) (int, bool) {
	var te *model.TransportError
	if errors.As(err, &te) {
		return te.StatusCode, true
	}
	return 0, false
}
