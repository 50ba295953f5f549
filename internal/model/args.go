package model

// GetCmd downloads one or more URLs through the platform router.
type GetCmd struct {
	Urls []string `arg:"positional,required" help:"video URLs or paths to .txt files with one URL per line"`
}

// FetchCmd downloads a direct file or HLS playlist with the transfer engine.
type FetchCmd struct {
	URL string `arg:"positional,required" help:"direct media or .m3u8 URL"`
}

// HistoryCmd lists or clears the download history.
type HistoryCmd struct {
	Clear bool `arg:"--clear" help:"remove every history record"`
	Limit int  `arg:"-n,--limit" default:"50" help:"number of records to show"`
}

// RedownloadCmd repeats an earlier attempt from history.
type RedownloadCmd struct {
	Index int `arg:"positional" help:"history position, 1 (the default) is the most recent"`
}

// CompletionCmd prints a shell completion script.
type CompletionCmd struct {
	Shell string `arg:"positional" help:"bash, zsh or fish"`
}

// ShareCmd reads shared text from stdin and downloads the URLs it contains.
type ShareCmd struct{}

// Args is the command line accepted by prodl.
type Args struct {
	Get        *GetCmd        `arg:"subcommand:get" help:"download videos from TikTok, YouTube or Instagram"`
	Fetch      *FetchCmd      `arg:"subcommand:fetch" help:"download a direct URL with resume support"`
	History    *HistoryCmd    `arg:"subcommand:history" help:"show recent downloads"`
	Redownload *RedownloadCmd `arg:"subcommand:redownload" help:"download a history entry again"`
	Share      *ShareCmd      `arg:"subcommand:share" help:"extract URLs from shared text on stdin"`
	Completion *CompletionCmd `arg:"subcommand:completion" help:"print a shell completion script"`

	OutPath       string `arg:"-o,--out,env:PRODL_OUT" help:"where to save downloads. Made if it doesn't already exist."`
	HistoryFile   string `arg:"--history-file" help:"history ledger location"`
	StatusFile    string `arg:"--status-file" help:"write the latest progress event as JSON to this file"`
	RateLimit     int64  `arg:"--rate-limit" help:"cap direct transfers to this many bytes per second"`
	InstallEngine bool   `arg:"--install-engine" help:"download yt-dlp if it is not on PATH"`
	LogLevel      string `arg:"--log-level" help:"debug, info, warn or error (default from LOG_LEVEL)"`
}

// ArgsDescriptionFunc supplies the help banner. The CLI sets it so the
// model layer stays free of terminal code.
var ArgsDescriptionFunc func() string

// Description provides custom help text for go-arg.
func (Args) Description() string {
	if ArgsDescriptionFunc != nil {
		return ArgsDescriptionFunc()
	}
	return "Save videos from TikTok, YouTube and Instagram."
}
