// Package delegate drives an external extraction engine (yt-dlp) for the
// platforms that need one, turning its progress hooks into channel events
// and locating the file it wrote.
package delegate

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/progress"
)

const (
	DefaultFormat         = "best[ext=mp4]/best"
	DefaultUserAgent      = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	resolvePercent = 93
)

// Hook statuses reported by the engine.
const (
	StatusDownloading = "downloading"
	StatusFinished    = "finished"
)

// HookEvent is one progress notification from the engine.
type HookEvent struct {
	Status       string
	PercentStr   string
	SpeedStr     string
	ETAStr       string
	Filename     string
	InfoFilename string
}

// Options is what the adapter hands the engine for one download.
type Options struct {
	Format              string
	OutputTemplate      string
	Retries             int
	FragmentRetries     int
	SocketTimeout       time.Duration
	NoCheckCertificates bool
	Headers             map[string]string
	Hook                func(HookEvent)
}

// Engine performs a blocking download. It returns the output filename when
// it can tell, or "".
type Engine interface {
	Download(ctx context.Context, url string, opts Options) (string, error)
}

// Config holds the adapter's tunables.
type Config struct {
	Format          string
	Retries         int
	FragmentRetries int
	SocketTimeout   time.Duration
	UserAgent       string
	AcceptLanguage  string
	ProgressStart   int
	ProgressEnd     int
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		Format:          DefaultFormat,
		Retries:         5,
		FragmentRetries: 5,
		SocketTimeout:   30 * time.Second,
		UserAgent:       DefaultUserAgent,
		AcceptLanguage:  DefaultAcceptLanguage,
		ProgressStart:   15,
		ProgressEnd:     90,
	}
}

// Adapter fetches platform URLs through an Engine.
type Adapter struct {
	engine Engine
	cfg    Config
	log    logger.Logger
}

// NewAdapter returns an Adapter. Zero fields of cfg take DefaultConfig values.
func NewAdapter(engine Engine, cfg Config, log logger.Logger) *Adapter {
	def := DefaultConfig()
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.Retries <= 0 {
		cfg.Retries = def.Retries
	}
	if cfg.FragmentRetries <= 0 {
		cfg.FragmentRetries = def.FragmentRetries
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = def.SocketTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = def.AcceptLanguage
	}
	if cfg.ProgressEnd <= cfg.ProgressStart {
		cfg.ProgressStart, cfg.ProgressEnd = def.ProgressStart, def.ProgressEnd
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{engine: engine, cfg: cfg, log: log}
}

// OutputTemplate returns the engine output template for kind under dir.
// Files are keyed by content id since titles can contain path separators.
func OutputTemplate(dir string, kind model.PlatformKind) string {
	return filepath.Join(dir, filePrefix(kind)+"%(id)s.%(ext)s")
}

func filePrefix(kind model.PlatformKind) string {
	return strings.ToLower(kind.Label()) + "_"
}

// Fetch downloads url into savePath and returns the path of the produced
// file. The path is not verified; an unresolved download returns the raw
// output template.
func (a *Adapter) Fetch(ctx context.Context, url, savePath string, kind model.PlatformKind, rep progress.Reporter) (string, error) {
	if rep == nil {
		rep = progress.Discard
	}
	label := kind.Label()
	tmpl := OutputTemplate(savePath, kind)
	before := Snapshot(savePath)

	if kind == model.PlatformTikTok {
		rep.Report(progress.Status(a.cfg.ProgressStart, "Fetching TikTok data..."))
	}
	rep.Report(progress.Status(a.cfg.ProgressStart, "Connecting to "+label+"..."))

	hooks := &hookResult{}
	opts := Options{
		Format:              a.cfg.Format,
		OutputTemplate:      tmpl,
		Retries:             a.cfg.Retries,
		FragmentRetries:     a.cfg.FragmentRetries,
		SocketTimeout:       a.cfg.SocketTimeout,
		NoCheckCertificates: true,
		Headers: map[string]string{
			HeaderUserAgent:      a.cfg.UserAgent,
			HeaderAcceptLanguage: a.cfg.AcceptLanguage,
		},
		Hook: func(ev HookEvent) { a.onHook(ev, label, rep, hooks) },
	}
	reported, err := a.engine.Download(ctx, url, opts)
	if err != nil {
		return "", err
	}

	rep.Report(progress.Status(resolvePercent, "Locating file..."))
	candidates := append(hooks.paths(), reported)
	path := Resolve(savePath, filePrefix(kind), tmpl, candidates, before)
	if path == tmpl {
		a.log.Warn("could not locate engine output", "dir", savePath, "err", model.ErrOutputUnresolved)
	}
	return path, nil
}

func (a *Adapter) onHook(ev HookEvent, label string, rep progress.Reporter, res *hookResult) {
	switch ev.Status {
	case StatusDownloading:
		pct, ok := ParsePercent(ev.PercentStr)
		if !ok {
			a.log.Debug("dropping malformed progress", "percent", ev.PercentStr)
			return
		}
		msg := fmt.Sprintf("%s: %.0f%%  %s  ETA %s", label, pct, strings.TrimSpace(ev.SpeedStr), strings.TrimSpace(ev.ETAStr))
		rep.Report(progress.Status(Remap(pct, a.cfg.ProgressStart, a.cfg.ProgressEnd), msg))
	case StatusFinished:
		p := ev.Filename
		if p == "" {
			p = ev.InfoFilename
		}
		res.add(p)
	}
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// ParsePercent parses an engine percent string such as " 42.7%".
func ParsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(ansiRegex.ReplaceAllString(s, ""))
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Remap maps pct (0..100) into start..end.
func Remap(pct float64, start, end int) int {
	pct = math.Max(0, math.Min(100, pct))
	factor := float64(end-start) / 100
	return start + int(pct*factor)
}

// hookResult collects output paths reported by finished hooks during one
// Download call.
type hookResult struct {
	mu    sync.Mutex
	found []string
}

func (h *hookResult) add(p string) {
	if p == "" {
		return
	}
	h.mu.Lock()
	h.found = append(h.found, p)
	h.mu.Unlock()
}

// paths returns the reported paths, latest first.
func (h *hookResult) paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.found))
	for i := len(h.found) - 1; i >= 0; i-- {
		out = append(out, h.found[i])
	}
	return out
}
