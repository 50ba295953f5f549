// Package orchestrator runs download attempts end to end: it picks the
// retrieval strategy, verifies the artifact and records every attempt in
// the history ledger.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
	"github.com/jmagar/prodl/internal/router"
	"github.com/jmagar/prodl/internal/transfer"
)

// Ledger records finished attempts.
type Ledger interface {
	Add(rec model.HistoryRecord) model.HistoryRecord
}

// Result is the outcome of one attempt.
type Result struct {
	ID     string
	Record model.HistoryRecord
	Size   int64
	Err    error
}

// Orchestrator executes download requests.
type Orchestrator struct {
	router *router.Router
	ledger Ledger
	log    logger.Logger
	newID  func() string
}

// New returns an Orchestrator.
func New(r *router.Router, ledger Ledger, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{router: r, ledger: ledger, log: log, newID: uuid.NewString}
}

// Task is a request running in the background.
type Task struct {
	ID     string
	Events *progress.Channel

	done   chan struct{}
	result Result
}

// Done is closed once the attempt has finished and been recorded.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the attempt finishes and returns its result.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

// Submit validates req.URL and starts Run on its own goroutine. An invalid
// URL is rejected here with no task and no history entry.
func (o *Orchestrator) Submit(ctx context.Context, req model.DownloadRequest) (*Task, error) {
	return o.start(ctx, req, func(ctx context.Context, rep progress.Reporter) Result {
		return o.Run(ctx, req, rep)
	})
}

// SubmitWith is Submit for an explicitly chosen strategy.
func (o *Orchestrator) SubmitWith(ctx context.Context, req model.DownloadRequest, label string, s router.Strategy) (*Task, error) {
	return o.start(ctx, req, func(ctx context.Context, rep progress.Reporter) Result {
		return o.RunWith(ctx, req, label, s, rep)
	})
}

func (o *Orchestrator) start(ctx context.Context, req model.DownloadRequest, run func(context.Context, progress.Reporter) Result) (*Task, error) {
	if err := model.ValidateURL(req.URL); err != nil {
		return nil, err
	}
	t := &Task{Events: progress.NewChannel(), done: make(chan struct{})}
	id := o.newID()
	t.ID = id
	go func() {
		defer close(t.done)
		defer t.Events.Close()
		t.result = run(withAttemptID(ctx, id), t.Events)
	}()
	return t, nil
}

// Run executes req on the calling goroutine, reporting to rep. Exactly one
// history record is written per call, whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, req model.DownloadRequest, rep progress.Reporter) Result {
	return o.execute(ctx, req, rep, func(rec *model.HistoryRecord) (string, error) {
		rep.Report(progress.Status(5, "Detecting platform..."))
		kind := router.Classify(req.URL)
		rec.Platform = kind.Label()
		strategy, err := o.router.Select(kind)
		if err != nil {
			return "", err
		}
		return strategy.Fetch(ctx, req.URL, req.SavePath, kind, rep)
	})
}

// RunWith executes req through s, bypassing classification. label is
// stored as the platform of the history record.
func (o *Orchestrator) RunWith(ctx context.Context, req model.DownloadRequest, label string, s router.Strategy, rep progress.Reporter) Result {
	return o.execute(ctx, req, rep, func(rec *model.HistoryRecord) (string, error) {
		rec.Platform = label
		rep.Report(progress.Status(5, "Starting "+label+" download..."))
		return s.Fetch(ctx, req.URL, req.SavePath, model.PlatformUnsupported, rep)
	})
}

func (o *Orchestrator) execute(ctx context.Context, req model.DownloadRequest, rep progress.Reporter, fetch func(*model.HistoryRecord) (string, error)) (res Result) {
	if rep == nil {
		rep = progress.Discard
	}
	res.ID = attemptID(ctx)
	if res.ID == "" {
		res.ID = o.newID()
	}
	log := o.log.With("attempt", res.ID, "url", req.URL)
	rec := model.HistoryRecord{URL: req.URL, Platform: model.PlatformUnsupported.Label()}

	defer func() {
		if p := recover(); p != nil {
			log.Error("download panicked", "panic", p)
			res.Err = fmt.Errorf("internal error: %v", p)
			rep.Report(progress.Failed(failureMessage(res.Err)))
		}
		rec.Success = res.Err == nil
		res.Record = o.ledger.Add(rec)
	}()

	if err := helpers.MakeDirs(req.SavePath); err != nil {
		res.Err = fmt.Errorf("failed to create save path: %w", err)
		log.Error("save path unavailable", "path", req.SavePath, "err", err)
		rep.Report(progress.Failed(failureMessage(res.Err)))
		return res
	}

	path, err := fetch(&rec)
	if err != nil {
		res.Err = err
		if status, ok := transfer.IsTransportError(err); ok && status != 0 {
			log = log.With("status", status)
		}
		log.Warn("download failed", "platform", rec.Platform, "err", err)
		rep.Report(progress.Failed(failureMessage(err)))
		return res
	}
	rec.Filepath = path

	size := helpers.FileSize(path)
	if size <= 0 {
		res.Err = fmt.Errorf("%w: %s", model.ErrArtifactMissing, path)
		log.Error("file not found after download", "path", path)
		rep.Report(progress.Failed("File missing or empty!"))
		return res
	}
	res.Size = size
	log.Info("file ready", "path", path, "size", humanize.IBytes(uint64(size)))
	rep.Report(progress.Succeeded(fmt.Sprintf("Done! Saved %.1f MB", float64(size)/(1024*1024))))
	return res
}

// failureMessage renders err as a single status line of bounded length.
func failureMessage(err error) string {
	if errors.Is(err, model.ErrUnsupportedPlatform) {
		return "Unsupported platform!"
	}
	return helpers.Truncate("Error: "+err.Error(), model.MaxMessageLen)
}

type attemptKey struct{}

func withAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptKey{}, id)
}

func attemptID(ctx context.Context) string {
	id, _ := ctx.Value(attemptKey{}).(string)
	return id
}
