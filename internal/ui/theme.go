package ui

import (
	"os"
	"strings"
)

// ANSI color codes - exported for use across packages.
var (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[91m"
	ColorGreen  = "\033[92m"
	ColorYellow = "\033[93m"
	ColorBlue   = "\033[94m"
	ColorPurple = "\033[95m"
	ColorCyan   = "\033[96m"
	ColorBold   = "\033[1m"
	ActiveTheme = "nordonedark"
)

// Unicode symbols
var (
	SymbolCheck    = "✓"
	SymbolCross    = "✗"
	SymbolArrow    = "→"
	SymbolDownload = "⬇"
	SymbolInfo     = "ℹ"
	SymbolWarning  = "⚠"
)

// palette lists red, green, yellow, blue, purple and cyan in order.
type palette [6]string

var themes = map[string]struct{ truecolor, c256 palette }{
	"nordonedark": {
		truecolor: palette{
			"\033[1;38;2;224;108;117m", "\033[1;38;2;152;195;121m", "\033[1;38;2;229;192;123m",
			"\033[1;38;2;143;188;255m", "\033[1;38;2;180;142;255m", "\033[1;38;2;136;220;255m",
		},
		c256: palette{
			"\033[1;38;5;210m", "\033[1;38;5;114m", "\033[1;38;5;222m",
			"\033[1;38;5;111m", "\033[1;38;5;183m", "\033[1;38;5;159m",
		},
	},
	"vivid": {
		truecolor: palette{
			"\033[1;38;2;255;76;102m", "\033[1;38;2;80;250;123m", "\033[1;38;2;255;221;87m",
			"\033[1;38;2;110;196;255m", "\033[1;38;2;215;130;255m", "\033[1;38;2;0;245;255m",
		},
		c256: palette{
			"\033[1;38;5;203m", "\033[1;38;5;84m", "\033[1;38;5;227m",
			"\033[1;38;5;81m", "\033[1;38;5;177m", "\033[1;38;5;51m",
		},
	},
}

func init() {
	InitColorPalette()
}

// InitColorPalette selects the color theme based on PRODL_THEME. Setting
// NO_COLOR disables colors entirely.
func InitColorPalette() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		ColorReset, ColorRed, ColorGreen, ColorYellow = "", "", "", ""
		ColorBlue, ColorPurple, ColorCyan, ColorBold = "", "", "", ""
		return
	}
	if theme := strings.ToLower(strings.TrimSpace(os.Getenv("PRODL_THEME"))); theme != "" {
		ActiveTheme = theme
	}
	t, ok := themes[ActiveTheme]
	if !ok {
		return
	}
	switch {
	case SupportsTruecolor():
		apply(t.truecolor)
	case Supports256Color():
		apply(t.c256)
	}
}

func apply(p palette) {
	ColorRed, ColorGreen, ColorYellow = p[0], p[1], p[2]
	ColorBlue, ColorPurple, ColorCyan = p[3], p[4], p[5]
}

// SupportsTruecolor checks if the terminal supports 24-bit color.
func SupportsTruecolor() bool {
	term := strings.ToLower(os.Getenv("TERM"))
	colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
	return strings.Contains(colorTerm, "truecolor") ||
		strings.Contains(colorTerm, "24bit") ||
		strings.Contains(term, "truecolor") ||
		strings.Contains(term, "24bit")
}

// Supports256Color checks if the terminal supports 256 colors.
func Supports256Color() bool {
	return strings.Contains(strings.ToLower(os.Getenv("TERM")), "256color")
}
