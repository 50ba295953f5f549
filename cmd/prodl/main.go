package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/joho/godotenv"

	"github.com/jmagar/prodl/internal/completion"
	"github.com/jmagar/prodl/internal/config"
	"github.com/jmagar/prodl/internal/logger"
	"github.com/jmagar/prodl/internal/model"
	"github.com/jmagar/prodl/internal/ui"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func init() {
	// .env is optional
	_ = godotenv.Load()
	model.ArgsDescriptionFunc = argsDescription
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, argv []string, in io.Reader, out *os.File) int {
	if len(argv) > 0 && argv[0] == "help" {
		argv[0] = "--help"
	}

	args, p, err := config.ParseArgs(argv)
	switch {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(out)
		return exitOK
	case err != nil:
		if p != nil {
			p.WriteUsage(os.Stderr)
		}
		ui.PrintError(err.Error())
		return exitUsage
	case p.Subcommand() == nil:
		p.WriteHelp(out)
		return exitOK
	}

	if args.Completion != nil {
		return completionCmd(out, args.Completion.Shell)
	}

	log := logger.New(logger.LoadConfig(args.LogLevel))
	cfg, err := config.Resolve(args)
	if err != nil {
		ui.PrintError(fmt.Sprintf("Failed to load config: %v", err))
		return exitUsage
	}
	if config.LoadedConfigPath != "" {
		log.Debug("config loaded", "path", config.LoadedConfigPath)
	}

	a, err := newApp(cfg, log, in, out)
	if err != nil {
		ui.PrintError(err.Error())
		return exitFailure
	}

	switch {
	case args.Get != nil:
		return a.get(ctx, args.Get.Urls)
	case args.Fetch != nil:
		return a.fetch(ctx, args.Fetch.URL)
	case args.History != nil:
		return a.history(args.History.Clear, args.History.Limit)
	case args.Redownload != nil:
		return a.redownload(ctx, args.Redownload.Index)
	case args.Share != nil:
		return a.share(ctx)
	}
	return exitOK
}

func completionCmd(out io.Writer, shell string) int {
	if shell == "" {
		fmt.Fprint(out, completion.Usage)
		return exitOK
	}
	script, err := completion.Script(shell)
	if err != nil {
		ui.PrintError(err.Error())
		return exitUsage
	}
	fmt.Fprint(out, script)
	return exitOK
}
