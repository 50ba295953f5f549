package ui

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeLeft     = "├"
	BoxTeeRight    = "┤"
	BoxTeeTop      = "┬"
	BoxTeeBottom   = "┴"
	BoxCross       = "┼"
)

// AnsiRegex is compiled once for performance.
var AnsiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

const termWidthCacheTTL = 500 * time.Millisecond

var (
	termWidthMu         sync.Mutex
	cachedTermWidth     = 80
	cachedTermWidthTime time.Time
)

// GetTermWidth returns the terminal width, defaulting to 80.
func GetTermWidth() int {
	termWidthMu.Lock()
	if time.Since(cachedTermWidthTime) <= termWidthCacheTTL && cachedTermWidth > 0 {
		width := cachedTermWidth
		termWidthMu.Unlock()
		return width
	}
	termWidthMu.Unlock()

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width == 0 {
		width = 80
	}

	termWidthMu.Lock()
	cachedTermWidth = width
	cachedTermWidthTime = time.Now()
	termWidthMu.Unlock()

	return width
}

// StripAnsiCodes removes ANSI escape sequences from a string.
func StripAnsiCodes(s string) string {
	return AnsiRegex.ReplaceAllString(s, "")
}

// VisibleLength returns the visible length of a string (excluding ANSI codes).
func VisibleLength(s string) int {
	return utf8.RuneCountInString(StripAnsiCodes(s))
}

// TruncateWithEllipsis truncates a string to maxLen with ellipsis if needed.
func TruncateWithEllipsis(s string, maxLen int) string {
	visibleLen := VisibleLength(s)
	if visibleLen <= maxLen {
		return s
	}
	if maxLen <= 3 {
		stripped := StripAnsiCodes(s)
		runes := []rune(stripped)
		if len(runes) <= maxLen {
			return stripped
		}
		return string(runes[:maxLen])
	}

	codes := AnsiRegex.FindAllString(s, -1)
	stripped := StripAnsiCodes(s)
	runes := []rune(stripped)
	truncated := string(runes[:maxLen-3]) + "..."

	if len(codes) > 0 {
		return codes[0] + truncated + ColorReset
	}

	return truncated
}

// PadRight pads a string to the specified width using visible length.
func PadRight(s string, width int) string {
	visLen := VisibleLength(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visLen)
}

// PadCenter centers a string in the specified width using visible length.
func PadCenter(s string, width int) string {
	visLen := VisibleLength(s)
	if visLen >= width {
		return s
	}
	padding := width - visLen
	leftPad := padding / 2
	rightPad := padding - leftPad
	return strings.Repeat(" ", leftPad) + s + strings.Repeat(" ", rightPad)
}

// TableColumn describes one column of a Table.
type TableColumn struct {
	Header string
	Width  int
	Align  string // "left", "right", "center"
}

// Table is a boxed, width-aware text table.
type Table struct {
	Columns []TableColumn
	Rows    [][]string
}

// NewTable creates a new table.
func NewTable(columns ...TableColumn) *Table {
	return &Table{Columns: columns}
}

// AddRow adds a row, padding or cutting cells to the column count.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Render writes the table to w, shrinking columns to fit width.
func (t *Table) Render(w io.Writer, width int) {
	if len(t.Columns) == 0 {
		return
	}
	cols := t.fit(width)

	border := func(left, mid, right string) {
		parts := make([]string, len(cols))
		for i, c := range cols {
			parts[i] = strings.Repeat(BoxHorizontal, c.Width+2)
		}
		fmt.Fprintln(w, ColorCyan+left+strings.Join(parts, mid)+right+ColorReset)
	}
	line := func(cells []string, header bool) {
		var b strings.Builder
		b.WriteString(ColorCyan + BoxVertical + ColorReset)
		for i, c := range cols {
			cell := TruncateWithEllipsis(cells[i], c.Width)
			if header {
				cell = ColorBold + PadCenter(cell, c.Width) + ColorReset
			} else {
				cell = align(cell, c)
			}
			b.WriteString(" " + cell + " " + ColorCyan + BoxVertical + ColorReset)
		}
		fmt.Fprintln(w, b.String())
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header
	}
	border(BoxTopLeft, BoxTeeTop, BoxTopRight)
	line(headers, true)
	border(BoxTeeLeft, BoxCross, BoxTeeRight)
	for _, row := range t.Rows {
		line(row, false)
	}
	border(BoxBottomLeft, BoxTeeBottom, BoxBottomRight)
}

func (t *Table) fit(width int) []TableColumn {
	available := width - (len(t.Columns) + 1) - len(t.Columns)*2
	requested := 0
	for _, c := range t.Columns {
		requested += c.Width
	}
	cols := append([]TableColumn(nil), t.Columns...)
	if requested > available && available > 0 {
		for i := range cols {
			cols[i].Width = max(cols[i].Width*available/requested, 4)
		}
	}
	return cols
}

func align(cell string, c TableColumn) string {
	switch c.Align {
	case "right":
		if pad := c.Width - VisibleLength(cell); pad > 0 {
			return strings.Repeat(" ", pad) + cell
		}
		return cell
	case "center":
		return PadCenter(cell, c.Width)
	default:
		return PadRight(cell, c.Width)
	}
}

// ProgressLine renders a single-line progress bar for percent and msg,
// fitted to width visible columns.
func ProgressLine(percent int, msg string, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	barWidth := 30
	if width < 60 {
		barWidth = 15
	}
	filled := (percent * barWidth) / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	line := fmt.Sprintf("%s[%s%s%s]%s %s%3d%%%s ",
		ColorCyan, ColorGreen, bar, ColorCyan, ColorReset,
		ColorBold, percent, ColorReset)
	room := width - VisibleLength(line) - 1
	if room > 0 {
		line += TruncateWithEllipsis(msg, room)
	}
	return line
}
