package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/testutil"
)

func writeJSON(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envStorageRoot, envHistory, envRateLimit} {
		t.Setenv(k, "")
	}
}

func TestReadConfig_MissingFileUsesDefaults(t *testing.T) {
	testutil.WithTempHome(t)
	testutil.ChdirTemp(t)

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if LoadedConfigPath != "" {
		t.Fatalf("expected no loaded path, got %q", LoadedConfigPath)
	}
	if *cfg != Defaults() {
		t.Fatalf("expected defaults, got %+v", *cfg)
	}
	if cfg.Format != "best[ext=mp4]/best" || cfg.ProgressStart != 15 || cfg.ProgressEnd != 90 {
		t.Fatalf("unexpected default values: %+v", *cfg)
	}
}

func TestReadConfig_SearchOrder(t *testing.T) {
	home := testutil.WithTempHome(t)
	testutil.ChdirTemp(t)

	writeJSON(t, filepath.Join(home, ".config", "prodl", "config.json"), `{"retries": 9}`)
	writeJSON(t, filepath.Join(home, ".prodl", "config.json"), `{"retries": 7, "outPath": "/media"}`)

	cfg, err := ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Retries != 7 || cfg.OutPath != "/media" {
		t.Fatalf("expected ~/.prodl config to win, got %+v", *cfg)
	}
	if cfg.FragmentRetries != 5 {
		t.Fatalf("unset fields should keep defaults, got %d", cfg.FragmentRetries)
	}

	writeJSON(t, "config.json", `{"retries": 1}`)
	cfg, err = ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Retries != 1 || LoadedConfigPath != "config.json" {
		t.Fatalf("expected ./config.json to win, got retries=%d path=%q", cfg.Retries, LoadedConfigPath)
	}
}

func TestReadConfig_InvalidJSON(t *testing.T) {
	testutil.WithTempHome(t)
	testutil.ChdirTemp(t)
	writeJSON(t, "config.json", `{not json`)

	if _, err := ReadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(envStorageRoot, "/storage/emulated/0")
	t.Setenv(envRateLimit, "4096")

	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.StorageRoot != "/storage/emulated/0" || cfg.RateLimit != 4096 {
		t.Fatalf("env not applied: %+v", cfg)
	}

	t.Setenv(envRateLimit, "fast")
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatal("expected error for invalid rate limit")
	}
}

func TestResolve_Precedence(t *testing.T) {
	home := testutil.WithTempHome(t)
	testutil.ChdirTemp(t)
	clearEnv(t)
	writeJSON(t, "config.json", `{"rateLimit": 100, "outPath": "from-file"}`)

	cfg, err := Resolve(&model.Args{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.RateLimit != 100 || cfg.OutPath != "from-file" {
		t.Fatalf("expected file values, got %+v", *cfg)
	}
	if want := filepath.Join(home, ".cache", "prodl", "history.json"); cfg.HistoryPath != want {
		t.Fatalf("history path = %q, want %q", cfg.HistoryPath, want)
	}

	t.Setenv(envRateLimit, "200")
	cfg, err = Resolve(&model.Args{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.RateLimit != 200 {
		t.Fatalf("env should override file, got %d", cfg.RateLimit)
	}

	cfg, err = Resolve(&model.Args{RateLimit: 300, OutPath: "from-flag", HistoryFile: "h.json"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.RateLimit != 300 || cfg.OutPath != "from-flag" || cfg.HistoryPath != "h.json" {
		t.Fatalf("flags should override env and file, got %+v", *cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Config)
		wantErr bool
	}{
		{"defaults", func(*model.Config) {}, false},
		{"negative retries", func(c *model.Config) { c.Retries = -1 }, true},
		{"zero timeout", func(c *model.Config) { c.TimeoutSeconds = 0 }, true},
		{"inverted range", func(c *model.Config) { c.ProgressStart, c.ProgressEnd = 90, 15 }, true},
		{"range past 100", func(c *model.Config) { c.ProgressEnd = 101 }, true},
		{"newline in path", func(c *model.Config) { c.OutPath = "bad\npath" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := Validate(&cfg); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSavePath(t *testing.T) {
	cfg := Defaults()
	cfg.StorageRoot = "/sdcard"
	got, err := SavePath(&cfg)
	if err != nil {
		t.Fatalf("SavePath: %v", err)
	}
	if want := filepath.Join("/sdcard", "Download", "ProDownloader"); got != want {
		t.Fatalf("SavePath = %q, want %q", got, want)
	}

	cfg.OutPath = "/videos"
	if got, _ := SavePath(&cfg); got != "/videos" {
		t.Fatalf("explicit output path should win, got %q", got)
	}

	cfg.OutPath, cfg.StorageRoot = "", ""
	got, err = SavePath(&cfg)
	if err != nil {
		t.Fatalf("SavePath: %v", err)
	}
	if filepath.Base(got) != "downloads" {
		t.Fatalf("expected binary-relative downloads dir, got %q", got)
	}
}

func TestParseArgs_Subcommands(t *testing.T) {
	t.Setenv("PRODL_OUT", "")

	args, _, err := ParseArgs([]string{"get", "https://youtu.be/a", "https://vm.tiktok.com/b"})
	if err != nil {
		t.Fatalf("ParseArgs get: %v", err)
	}
	if args.Get == nil || len(args.Get.Urls) != 2 {
		t.Fatalf("expected two urls, got %+v", args.Get)
	}

	args, _, err = ParseArgs([]string{"-o", "/tmp/out", "history", "-n", "5"})
	if err != nil {
		t.Fatalf("ParseArgs history: %v", err)
	}
	if args.History == nil || args.History.Limit != 5 || args.OutPath != "/tmp/out" {
		t.Fatalf("unexpected history args: %+v %+v", args, args.History)
	}

	args, _, err = ParseArgs([]string{"redownload"})
	if err != nil {
		t.Fatalf("ParseArgs redownload: %v", err)
	}
	if args.Redownload == nil || args.Redownload.Index != 0 {
		t.Fatalf("expected unset index, got %+v", args.Redownload)
	}

	if _, _, err := ParseArgs([]string{"--bogus"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
