package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/zpeople/internal/cli"
	"github.com/zarlcorp/zpeople/internal/session"
	"github.com/zarlcorp/zpeople/internal/settings"
	"github.com/zarlcorp/zpeople/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("zpeople"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	args, configPath := configFlag(os.Args[1:])
	args, ephemeral := ephemeralFlag(args)

	cfg, err := settings.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zpeople: %v\n", err)
		os.Exit(1)
	}

	if len(args) > 0 {
		log, closeLog := newLogger(cfg, os.Stderr)
		runCLI(ctx, cfg, log, args)
		closeLog()
		_ = app.Close()
		return
	}

	log, closeLog := newLogger(cfg, io.Discard)
	err = runTUI(cfg, log, ephemeral)
	closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "zpeople: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "zpeople: shutdown: %v\n", err)
		os.Exit(1)
	}
}

func runCLI(_ context.Context, cfg *settings.Settings, log *slog.Logger, args []string) {
	dir := cli.SessionDir(cfg)

	switch cmd := args[0]; cmd {
	case "version":
		fmt.Printf("zpeople %s\n", version)
	case "list":
		cli.CmdList(dir, log, args[1:])
	case "show":
		cli.CmdShow(dir, log, requireID(args), args[2:])
	case "add":
		cli.CmdAdd(dir, log)
	case "delete":
		cli.CmdDelete(dir, log, requireID(args))
	case "anonymize":
		cli.CmdAnonymize(dir, log, requireID(args))
	case "end-session":
		cli.CmdEndSession(dir)
	case "settings":
		cli.CmdSettings(cfg)
	default:
		fmt.Fprintf(os.Stderr, "zpeople: unknown command %q\n", cmd)
		os.Exit(1)
	}
}

func runTUI(cfg *settings.Settings, log *slog.Logger, ephemeral bool) error {
	dir := cli.SessionDir(cfg)

	m := tui.New(tui.Options{
		Version:    version,
		SessionDir: dir,
		FirstRun:   session.IsNew(dir),
		Ephemeral:  ephemeral,
		Logger:     log,
	})
	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := finalModel.(tui.Model); ok {
		fm.Close()
	}

	return nil
}

// newLogger builds the process logger. It writes to the settings log file
// when one is set and to fallback otherwise.
func newLogger(cfg *settings.Settings, fallback io.Writer) (*slog.Logger, func()) {
	level, _ := cfg.Level()

	w, closeFn := fallback, func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zpeople: log file: %v\n", err)
		} else {
			w, closeFn = f, func() { _ = f.Close() }
		}
	}

	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)
	return log, closeFn
}

func requireID(args []string) string {
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: zpeople %s <id>\n", args[0])
		os.Exit(1)
	}
	return args[1]
}

// configFlag removes --config <path> from args.
func configFlag(args []string) ([]string, string) {
	path := settings.DefaultPath()
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			path = args[i+1]
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out, path
}

// ephemeralFlag removes --ephemeral from args.
func ephemeralFlag(args []string) ([]string, bool) {
	out := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if a == "--ephemeral" {
			found = true
			continue
		}
		out = append(out, a)
	}
	return out, found
}
