package main

import (
	"fmt"
	"strings"

	"github.com/jmagar/prodl/internal/ui"
)

func argsDescription() string {
	var b strings.Builder

	heading := func(title string) {
		fmt.Fprintf(&b, "\n%s◆ %s%s\n", ui.ColorBold, title, ui.ColorReset)
		fmt.Fprintf(&b, "%s%s%s\n", ui.ColorCyan, strings.Repeat(ui.BoxHorizontal, 60), ui.ColorReset)
	}
	cmd := func(syntax, description string) {
		fmt.Fprintf(&b, "  %s•%s %s%-28s%s %s\n", ui.ColorGreen, ui.ColorReset, ui.ColorCyan, syntax, ui.ColorReset, description)
	}
	example := func(syntax string) {
		fmt.Fprintf(&b, "  %s▸%s %s%s%s\n", ui.ColorYellow, ui.ColorReset, ui.ColorCyan, syntax, ui.ColorReset)
	}

	fmt.Fprintf(&b, "%s%s Save videos from TikTok, YouTube and Instagram%s\n", ui.ColorBold, ui.SymbolDownload, ui.ColorReset)

	heading("COMMANDS")
	cmd("get <url|file.txt>...", "Download one or more videos")
	cmd("fetch <url>", "Resumable download of a direct file or .m3u8")
	cmd("history [-n N] [--clear]", "Show or clear recent downloads")
	cmd("redownload [N]", "Download history entry N again (1 = newest)")
	cmd("share", "Read shared text from stdin and download its URLs")
	cmd("completion <shell>", "Print a bash, zsh or fish completion script")

	heading("EXAMPLES")
	example("prodl get https://vm.tiktok.com/ZMabc123/")
	example("prodl -o ~/Videos get https://youtu.be/dQw4w9WgXcQ")
	example("prodl --rate-limit 1048576 fetch https://example.com/clip.mp4")
	example("echo 'look at this https://www.instagram.com/reel/xyz/' | prodl share")

	return b.String()
}
