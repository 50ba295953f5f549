//go:build !windows

package delegate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes a yt-dlp stand-in that records one argument per line
// and prints printed on stdout.
func fakeBinary(t *testing.T, printed string) (exe, argsFile string) {
	t.Helper()
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args")
	exe = filepath.Join(dir, "yt-dlp")
	script := "#!/bin/sh\nfor a in \"$@\"; do printf '%s\\n' \"$a\" >> '" + argsFile + "'; done\n"
	if printed != "" {
		script += "printf '%s\\n' '" + printed + "'\n"
	}
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))
	return exe, argsFile
}

func recordedArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// valuesOf returns every argument that follows flag.
func valuesOf(args []string, flag string) []string {
	var out []string
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			out = append(out, args[i+1])
		}
	}
	return out
}

func defaultOptions(dir string) Options {
	cfg := DefaultConfig()
	return Options{
		Format:              cfg.Format,
		OutputTemplate:      filepath.Join(dir, "youtube_%(id)s.%(ext)s"),
		Retries:             cfg.Retries,
		FragmentRetries:     cfg.FragmentRetries,
		SocketTimeout:       cfg.SocketTimeout,
		NoCheckCertificates: true,
		Headers: map[string]string{
			HeaderUserAgent:      "UA x",
			HeaderAcceptLanguage: DefaultAcceptLanguage,
		},
	}
}

func TestYTDLP_DownloadFlags(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "youtube_abc.mp4")
	require.NoError(t, os.WriteFile(saved, []byte("video"), 0o644))
	exe, argsFile := fakeBinary(t, saved)

	y := NewYTDLP(false, time.Second, nil)
	y.Executable = exe
	got, err := y.Download(context.Background(), "https://youtu.be/abc", defaultOptions(dir))
	require.NoError(t, err)
	assert.Equal(t, saved, got, "printed path is returned")

	args := recordedArgs(t, argsFile)
	assert.Equal(t, []string{"best[ext=mp4]/best"}, valuesOf(args, "--format"))
	assert.Equal(t, []string{"5"}, valuesOf(args, "--retries"))
	assert.Equal(t, []string{"5"}, valuesOf(args, "--fragment-retries"))
	assert.Equal(t, []string{"30"}, valuesOf(args, "--socket-timeout"))
	assert.Contains(t, args, "--no-check-certificates")
	assert.Equal(t, []string{"UA x"}, valuesOf(args, "--user-agent"))
	assert.Equal(t, []string{"Accept-Language:en-US,en;q=0.9"}, valuesOf(args, "--add-headers"))
	assert.Equal(t, []string{printedPathTemplate}, valuesOf(args, "--print"))
	assert.Equal(t, "https://youtu.be/abc", args[len(args)-1])
}

func TestYTDLP_NoPrintedPath(t *testing.T) {
	exe, _ := fakeBinary(t, "")
	y := NewYTDLP(false, time.Second, nil)
	y.Executable = exe

	got, err := y.Download(context.Background(), "https://youtu.be/abc", defaultOptions(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPrintedPath(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "tiktok_1.mp4")
	require.NoError(t, os.WriteFile(saved, []byte("x"), 0o644))

	assert.Equal(t, saved, printedPath("[info] extracting\n"+saved+"\n\n"))
	assert.Equal(t, saved, printedPath(saved+"\n"+filepath.Join(dir, "missing.mp4")+"\n"))
	assert.Empty(t, printedPath("[download] 100%\n"+dir+"\n"))
}

func TestHookEvent_FinishedCarriesFilename(t *testing.T) {
	ev := hookEvent(&ytdlp.ProgressUpdate{Status: "finished", Filename: "/videos/youtube_abc.mp4"})
	assert.Equal(t, StatusFinished, ev.Status)
	assert.Equal(t, "/videos/youtube_abc.mp4", ev.Filename)
	assert.Empty(t, ev.SpeedStr)
}

func TestHookEvent_SpeedFromStart(t *testing.T) {
	ev := hookEvent(&ytdlp.ProgressUpdate{
		Status:          "downloading",
		Started:         time.Now().Add(-2 * time.Second),
		DownloadedBytes: 4 * 1000 * 1000,
	})
	assert.Equal(t, StatusDownloading, ev.Status)
	assert.True(t, strings.HasSuffix(ev.SpeedStr, "MB/s"), "got %q", ev.SpeedStr)
}
