package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jmagar/prodl/internal/config"
	"github.com/jmagar/prodl/internal/delegate"
	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/history"
	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/orchestrator"
	"github.com/jmagar/prodl/internal/progress"
	"github.com/jmagar/prodl/internal/router"
	"github.com/jmagar/prodl/internal/share"
	"github.com/jmagar/prodl/internal/transfer"
	"github.com/jmagar/prodl/internal/ui"
)

const (
	directLabel  = "Direct"
	eventsBuffer = 32
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg      *model.Config
	log      logger.Logger
	ledger   *history.Ledger
	orch     *orchestrator.Orchestrator
	direct   router.DirectStrategy
	savePath string
	in       io.Reader
	out      io.Writer
	tty      bool
}

func newApp(cfg *model.Config, log logger.Logger, in io.Reader, out *os.File) (*app, error) {
	savePath, err := config.SavePath(cfg)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	engine := transfer.New(transfer.Options{
		ChunkSize: cfg.ChunkSize,
		Timeout:   timeout,
		UserAgent: cfg.UserAgent,
		RateLimit: cfg.RateLimit,
	}, log)
	ytdlp := delegate.NewYTDLP(cfg.InstallEngine, time.Duration(cfg.EngineInterval*float64(time.Second)), log)
	ytdlp.Executable = cfg.EnginePath
	adapter := delegate.NewAdapter(
		ytdlp,
		delegate.Config{
			Format:          cfg.Format,
			Retries:         cfg.Retries,
			FragmentRetries: cfg.FragmentRetries,
			SocketTimeout:   timeout,
			UserAgent:       cfg.UserAgent,
			AcceptLanguage:  cfg.AcceptLanguage,
			ProgressStart:   cfg.ProgressStart,
			ProgressEnd:     cfg.ProgressEnd,
		},
		log,
	)
	ledger := history.Open(cfg.HistoryPath, log)

	return &app{
		cfg:      cfg,
		log:      log,
		ledger:   ledger,
		orch:     orchestrator.New(router.New(adapter), ledger, log),
		direct:   router.DirectStrategy{Engine: engine},
		savePath: savePath,
		in:       in,
		out:      out,
		tty:      ui.IsTerminal(out),
	}, nil
}

// download submits url and renders its events until the attempt is
// recorded. A nil strategy routes by platform.
func (a *app) download(ctx context.Context, url string, s router.Strategy, label string) error {
	req := model.DownloadRequest{URL: url, SavePath: a.savePath}

	var (
		task *orchestrator.Task
		err  error
	)
	if s == nil {
		task, err = a.orch.Submit(ctx, req)
	} else {
		task, err = a.orch.SubmitWith(ctx, req, label, s)
	}
	if err != nil {
		ui.PrintError(fmt.Sprintf("%s: %v", url, err))
		return err
	}

	var wg sync.WaitGroup
	watch := func(r progress.Reporter) {
		ch := task.Events.Subscribe(eventsBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			progress.Follow(ch, r)
		}()
	}
	watch(ui.NewProgressPrinter(a.out, a.tty))
	if a.cfg.StatusFile != "" {
		watch(progress.NewStatusFile(a.cfg.StatusFile, task.ID, url, a.log))
	}

	res := task.Wait()
	wg.Wait()
	a.log.Debug("attempt finished", "attempt", task.ID, "last", task.Events.Last().Message)
	if res.Err == nil {
		fmt.Fprintf(a.out, "  %s %s\n", ui.SymbolArrow, res.Record.Filepath)
	}
	return res.Err
}

func (a *app) get(ctx context.Context, inputs []string) int {
	urls, err := helpers.ProcessUrls(inputs)
	if err != nil {
		ui.PrintError(fmt.Sprintf("Failed to process URLs: %v", err))
		return exitFailure
	}
	return a.batch(ctx, urls, nil, "")
}

func (a *app) fetch(ctx context.Context, url string) int {
	return a.batch(ctx, []string{url}, a.direct, directLabel)
}

func (a *app) batch(ctx context.Context, urls []string, s router.Strategy, label string) int {
	failed := 0
	for i, url := range urls {
		if ctx.Err() != nil {
			ui.PrintWarning("Interrupted")
			return exitFailure
		}
		if len(urls) > 1 {
			ui.PrintDownload(fmt.Sprintf("[%d/%d] %s", i+1, len(urls), url))
		}
		if err := a.download(ctx, url, s, label); err != nil {
			failed++
		}
	}
	if len(urls) > 1 {
		ui.PrintInfo(fmt.Sprintf("%d of %d downloads succeeded", len(urls)-failed, len(urls)))
	}
	if failed > 0 {
		return exitFailure
	}
	return exitOK
}

func (a *app) history(wipe bool, limit int) int {
	if wipe {
		a.ledger.Clear()
		ui.PrintSuccess("History cleared")
		return exitOK
	}
	ui.RenderHistory(a.out, a.ledger.Recent(limit), ui.GetTermWidth())
	return exitOK
}

func (a *app) redownload(ctx context.Context, index int) int {
	if index == 0 {
		index = 1
	}
	records := a.ledger.Recent(0)
	if index < 1 || index > len(records) {
		ui.PrintError(fmt.Sprintf("No history entry #%d (%d stored)", index, len(records)))
		return exitUsage
	}
	rec := records[index-1]
	if rec.URL == "" {
		ui.PrintError("No URL stored for this entry.")
		return exitFailure
	}
	if rec.Platform == directLabel {
		return a.fetch(ctx, rec.URL)
	}
	return a.batch(ctx, []string{rec.URL}, nil, "")
}

// share reads share payloads one per line and downloads the URL each
// carries. Re-delivered payloads are skipped.
func (a *app) share(ctx context.Context) int {
	dedup := share.NewDedup()
	var urls []string
	sc := bufio.NewScanner(a.in)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || dedup.Seen(text) {
			continue
		}
		url, ok := share.ExtractURL(text)
		if !ok {
			ui.PrintWarning("No URL found in shared text")
			continue
		}
		urls = append(urls, url)
	}
	if err := sc.Err(); err != nil {
		ui.PrintError(fmt.Sprintf("Failed to read shared text: %v", err))
		return exitFailure
	}
	if len(urls) == 0 {
		return exitOK
	}
	return a.batch(ctx, urls, nil, "")
}
