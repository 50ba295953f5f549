package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alexflint/go-arg"

	"github.com/jmagar/prodl/internal/delegate"
	"github.com/jmagar/prodl/internal/helpers"
	"github.com/jmagar/prodl/internal/history"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/transfer"
)

// LoadedConfigPath tracks which config file was read, or "" when defaults were used.
var LoadedConfigPath string

const (
	envStorageRoot = "PRODL_STORAGE_ROOT"
	envHistory     = "PRODL_HISTORY"
	envRateLimit   = "PRODL_RATE_LIMIT"
)

// Defaults returns the settings used when no config file exists.
func Defaults() model.Config {
	def := delegate.DefaultConfig()
	return model.Config{
		Format:          def.Format,
		UserAgent:       def.UserAgent,
		AcceptLanguage:  def.AcceptLanguage,
		Retries:         def.Retries,
		FragmentRetries: def.FragmentRetries,
		TimeoutSeconds:  int(def.SocketTimeout.Seconds()),
		ProgressStart:   def.ProgressStart,
		ProgressEnd:     def.ProgressEnd,
		ChunkSize:       transfer.DefaultChunkSize,
		EngineInterval:  0.5,
	}
}

// SearchPaths lists the config file locations in lookup order.
func SearchPaths() []string {
	paths := []string{"config.json"}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".prodl", "config.json"),
			filepath.Join(homeDir, ".config", "prodl", "config.json"),
		)
	}
	return paths
}

// ReadConfig reads the first config file found in SearchPaths over
// Defaults. A missing file is not an error.
func ReadConfig() (*model.Config, error) {
	cfg := Defaults()
	LoadedConfigPath = ""

	for _, path := range SearchPaths() {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config at %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config at %s: %w", path, err)
		}
		LoadedConfigPath = path
		break
	}
	return &cfg, nil
}

// ApplyEnv overlays PRODL_* environment variables onto cfg.
func ApplyEnv(cfg *model.Config) error {
	if v := strings.TrimSpace(os.Getenv(envStorageRoot)); v != "" {
		cfg.StorageRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(envHistory)); v != "" {
		cfg.HistoryPath = v
	}
	if v := strings.TrimSpace(os.Getenv(envRateLimit)); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative number of bytes per second, got %q", envRateLimit, v)
		}
		cfg.RateLimit = n
	}
	return nil
}

// NewParser returns the go-arg parser for args.
func NewParser(args *model.Args) (*arg.Parser, error) {
	return arg.NewParser(arg.Config{Program: "prodl"}, args)
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (*model.Args, *arg.Parser, error) {
	var args model.Args
	p, err := NewParser(&args)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Parse(argv); err != nil {
		return &args, p, err
	}
	return &args, p, nil
}

// Resolve merges defaults, the config file, the environment and args, in
// increasing precedence, and validates the result.
func Resolve(args *model.Args) (*model.Config, error) {
	cfg, err := ReadConfig()
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if args != nil {
		if args.OutPath != "" {
			cfg.OutPath = args.OutPath
		}
		if args.HistoryFile != "" {
			cfg.HistoryPath = args.HistoryFile
		}
		if args.StatusFile != "" {
			cfg.StatusFile = args.StatusFile
		}
		if args.RateLimit > 0 {
			cfg.RateLimit = args.RateLimit
		}
		if args.InstallEngine {
			cfg.InstallEngine = true
		}
	}

	cfg.OutPath = strings.TrimSpace(cfg.OutPath)
	cfg.StorageRoot = strings.TrimSpace(cfg.StorageRoot)
	cfg.HistoryPath = strings.TrimSpace(cfg.HistoryPath)
	if cfg.HistoryPath == "" {
		if cfg.HistoryPath, err = history.DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range setting in cfg.
func Validate(cfg *model.Config) error {
	switch {
	case cfg.Retries < 0 || cfg.FragmentRetries < 0:
		return errors.New("retries must not be negative")
	case cfg.TimeoutSeconds <= 0:
		return errors.New("timeoutSeconds must be positive")
	case cfg.ProgressStart < 0 || cfg.ProgressEnd > 100 || cfg.ProgressStart >= cfg.ProgressEnd:
		return fmt.Errorf("progress range %d-%d must satisfy 0 <= start < end <= 100", cfg.ProgressStart, cfg.ProgressEnd)
	case cfg.RateLimit < 0:
		return errors.New("rateLimit must not be negative")
	}
	if cfg.OutPath != "" {
		if err := helpers.ValidatePath(cfg.OutPath); err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
	}
	return nil
}

// SavePath returns the directory downloads are written to. An explicit
// output path wins, then <storage root>/Download/ProDownloader, then a
// downloads directory next to the binary.
func SavePath(cfg *model.Config) (string, error) {
	if cfg.OutPath != "" {
		return cfg.OutPath, nil
	}
	if cfg.StorageRoot != "" {
		return filepath.Join(cfg.StorageRoot, "Download", "ProDownloader"), nil
	}
	dir, err := helpers.GetScriptDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate binary directory: %w", err)
	}
	return filepath.Join(dir, "downloads"), nil
}
