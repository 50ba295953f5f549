package delegate

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"

	"github.com/jmagar/prodl/internal/logger"
)

const defaultHookInterval = 500 * time.Millisecond

// Request headers the engine forwards.
const (
	HeaderUserAgent      = "User-Agent"
	HeaderAcceptLanguage = "Accept-Language"
)

// printedPathTemplate makes yt-dlp print the final path once post-processing
// has moved the file into place.
const printedPathTemplate = "after_move:filepath"

// YTDLP is the Engine backed by the yt-dlp binary.
type YTDLP struct {
	// Executable overrides the yt-dlp binary found on PATH.
	Executable string

	install  bool
	interval time.Duration
	log      logger.Logger

	installOnce sync.Once
	installErr  error
}

// NewYTDLP returns a yt-dlp engine. With install set, a pinned yt-dlp
// binary is downloaded into the user cache on first use when none is on
// PATH.
func NewYTDLP(install bool, interval time.Duration, log logger.Logger) *YTDLP {
	if interval <= 0 {
		interval = defaultHookInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &YTDLP{install: install, interval: interval, log: log}
}

// Download runs yt-dlp for url and blocks until it exits. It returns the
// path yt-dlp printed after moving the file, or "" when none was printed.
//
// Only User-Agent and Accept-Language are forwarded from opts.Headers:
// go-ytdlp keeps a single --add-headers value, so the agent goes through
// --user-agent and the language takes the one header slot.
func (y *YTDLP) Download(ctx context.Context, url string, opts Options) (string, error) {
	if y.Executable == "" {
		if err := y.ensureInstalled(ctx); err != nil {
			return "", err
		}
	}

	dl := ytdlp.New().
		Format(opts.Format).
		Output(opts.OutputTemplate).
		Retries(strconv.Itoa(opts.Retries)).
		FragmentRetries(strconv.Itoa(opts.FragmentRetries)).
		SocketTimeout(opts.SocketTimeout.Seconds()).
		NoWarnings().
		Print(printedPathTemplate)
	if y.Executable != "" {
		dl = dl.SetExecutable(y.Executable)
	}
	if opts.NoCheckCertificates {
		dl = dl.NoCheckCertificates()
	}
	if ua := opts.Headers[HeaderUserAgent]; ua != "" {
		dl = dl.UserAgent(ua)
	}
	if lang := opts.Headers[HeaderAcceptLanguage]; lang != "" {
		dl = dl.AddHeaders(HeaderAcceptLanguage + ":" + lang)
	}
	for k := range opts.Headers {
		if k != HeaderUserAgent && k != HeaderAcceptLanguage {
			y.log.Warn("header not forwarded to yt-dlp", "header", k)
		}
	}

	if opts.Hook != nil {
		// --print implies --quiet, which hides progress without --progress.
		dl = dl.Progress()
		dl.ProgressFunc(y.interval, func(update ytdlp.ProgressUpdate) {
			opts.Hook(hookEvent(&update))
		})
	}

	y.log.Debug("starting yt-dlp", "url", url, "template", opts.OutputTemplate)
	res, err := dl.Run(ctx, url)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	if res == nil {
		return "", nil
	}
	return printedPath(res.Stdout), nil
}

// printedPath returns the last stdout line naming an existing regular file.
func printedPath(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		p := strings.TrimSpace(lines[i])
		if p == "" {
			continue
		}
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			return p
		}
	}
	return ""
}

func (y *YTDLP) ensureInstalled(ctx context.Context) error {
	if !y.install {
		return nil
	}
	y.installOnce.Do(func() {
		_, y.installErr = ytdlp.Install(ctx, nil)
		if y.installErr != nil {
			y.log.Error("yt-dlp install failed", "err", y.installErr)
		}
	})
	return y.installErr
}

func hookEvent(u *ytdlp.ProgressUpdate) HookEvent {
	ev := HookEvent{
		Status:     string(u.Status),
		PercentStr: u.PercentString(),
		ETAStr:     formatETA(u.ETA()),
		Filename:   u.Filename,
	}
	if !u.Started.IsZero() {
		if elapsed := time.Since(u.Started).Seconds(); elapsed > 0 && u.DownloadedBytes > 0 {
			ev.SpeedStr = humanize.Bytes(uint64(float64(u.DownloadedBytes)/elapsed)) + "/s"
		}
	}
	return ev
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return "--:--"
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", m, s)
}
