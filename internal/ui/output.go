package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/model"
)

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorGreen, SymbolCheck, ColorReset, msg, ColorReset)
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorRed, SymbolCross, ColorReset, msg, ColorReset)
}

// PrintInfo prints an info message.
func PrintInfo(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorBlue, SymbolInfo, ColorReset, msg, ColorReset)
}

// PrintWarning prints a warning message.
func PrintWarning(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorYellow, SymbolWarning, ColorReset, msg, ColorReset)
}

// PrintDownload prints a download message.
func PrintDownload(msg string) {
	fmt.Printf("%s%s%s %s%s\n", ColorCyan, SymbolDownload, ColorReset, msg, ColorReset)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ProgressPrinter draws progress events for one request. On a terminal it
// redraws a single line; otherwise it prints one line per message change.
type ProgressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	lastMsg string
	drawn   bool
}

// NewProgressPrinter returns a printer writing to w. tty selects
// in-place redrawing.
func NewProgressPrinter(w io.Writer, tty bool) *ProgressPrinter {
	return &ProgressPrinter{w: w, tty: tty}
}

// Report draws ev. Terminal events end the line with a status symbol.
func (p *ProgressPrinter) Report(ev model.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ev.Terminal() {
		if p.drawn && p.tty {
			fmt.Fprint(p.w, "\r\033[K")
		}
		symbol, color := SymbolCheck, ColorGreen
		if ev.Failed {
			symbol, color = SymbolCross, ColorRed
		}
		fmt.Fprintf(p.w, "%s%s%s %s\n", color, symbol, ColorReset, ev.Message)
		p.drawn = false
		return
	}
	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s", ProgressLine(ev.Percent, ev.Message, GetTermWidth()))
		p.drawn = true
		return
	}
	if ev.Message != p.lastMsg {
		fmt.Fprintf(p.w, "%3d%% %s\n", ev.Percent, ev.Message)
		p.lastMsg = ev.Message
	}
}

// RenderHistory writes records as a table, newest first as given.
func RenderHistory(w io.Writer, records []model.HistoryRecord, width int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No downloads yet.")
		return
	}
	t := NewTable(
		TableColumn{Header: "#", Width: 3, Align: "right"},
		TableColumn{Header: "", Width: 1, Align: "center"},
		TableColumn{Header: "Platform", Width: 9},
		TableColumn{Header: "When", Width: 16},
		TableColumn{Header: "Size", Width: 8, Align: "right"},
		TableColumn{Header: "File / URL", Width: 60},
	)
	for i, rec := range records {
		mark := ColorRed + SymbolCross + ColorReset
		if rec.Success {
			mark = ColorGreen + SymbolCheck + ColorReset
		}
		size := "-"
		if n := helpers.FileSize(rec.Filepath); n > 0 {
			size = humanize.IBytes(uint64(n))
		}
		detail := rec.Filepath
		if detail == "" {
			detail = rec.URL
		}
		if detail == "" {
			detail = "No file path stored."
		}
		t.AddRow(fmt.Sprint(i+1), mark, rec.Platform, rec.Timestamp, size, strings.TrimSpace(detail))
	}
	t.Render(w, width)
}
