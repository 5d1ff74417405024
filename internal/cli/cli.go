// Package cli implements the hellovia command: serve the toggle page, check
// and bundle it, or run it in the terminal.
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/mattn/go-isatty"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	via "github.com/ryanhamamura/hellovia"
	"github.com/ryanhamamura/hellovia/h"
	"github.com/ryanhamamura/hellovia/internal/buildcfg"
	"github.com/ryanhamamura/hellovia/internal/bundle"
	"github.com/ryanhamamura/hellovia/internal/lint"
	"github.com/ryanhamamura/hellovia/tui"
	"github.com/ryanhamamura/hellovia/vianats"
	"github.com/ryanhamamura/hellovia/views/toggle"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// IO is where a command reads and writes.
type IO struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	IsTerm bool
}

// StdIO returns the process streams.
func StdIO() IO {
	return IO{
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		IsTerm: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

type common struct {
	config   string
	logLevel string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "build configuration file (YAML)")
	fs.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func (c *common) load(stdio IO) (buildcfg.Config, zerolog.Logger, error) {
	cfg, err := buildcfg.Load(c.config)
	if err != nil {
		return buildcfg.Config{}, zerolog.Nop(), err
	}
	level, err := zerolog.ParseLevel(c.logLevel)
	if err != nil {
		return buildcfg.Config{}, zerolog.Nop(), fmt.Errorf("log-level: %w", err)
	}
	return cfg, newLogger(stdio, cfg.Dev(), level), nil
}

func newLogger(stdio IO, dev bool, level zerolog.Level) zerolog.Logger {
	if dev || stdio.IsTerm {
		return zerolog.New(zerolog.ConsoleWriter{Out: stdio.Err, TimeFormat: "15:04:05", NoColor: !stdio.IsTerm}).
			With().Timestamp().Logger().Level(level)
	}
	return zerolog.New(stdio.Err).With().Timestamp().Logger().Level(level)
}

// Pages are the client-side renders the bundler knows, by entry route.
func Pages(cfg buildcfg.Config) bundle.Pages {
	return bundle.Pages{
		"/": func() h.H { return toggle.RenderClient(toggle.NewState(cfg.Hello)) },
	}
}

// Run dispatches subcommands and returns an exit code.
func Run(args []string, stdio IO) int {
	if len(args) == 0 {
		PrintHelp(stdio.Err)
		return ExitUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(stdio.Out)
		return ExitOK
	case "serve":
		return runServe(rest, stdio)
	case "build":
		return runBuild(rest, stdio)
	case "lint":
		return runLint(rest, stdio)
	case "tui":
		return runTUI(rest, stdio)
	}
	fmt.Fprintf(stdio.Err, "unknown subcommand: %s\n\n", cmd)
	PrintHelp(stdio.Err)
	return ExitUsage
}

// PrintHelp writes the usage text.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `hellovia - a toggle, three ways

Usage:
  hellovia <subcommand> [flags]

Subcommands:
  serve   serve the page with live updates
  build   check the sources, then write the static bundle
  lint    check the sources only
  tui     run the page in the terminal

Run 'hellovia <subcommand> -h' for the flags of a subcommand.
`)
}

func runLint(args []string, stdio IO) int {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg, logger, err := c.load(stdio)
	if err != nil {
		fmt.Fprintf(stdio.Err, "lint: %v\n", err)
		return ExitError
	}
	if !check(cfg, logger, stdio) {
		return ExitError
	}
	return ExitOK
}

// check runs the static check and prints findings. It reports whether the
// sources are clean.
func check(cfg buildcfg.Config, logger zerolog.Logger, stdio IO) bool {
	findings, err := lint.Run(lint.Options{
		Dir:        cfg.Lint.Dir,
		Extensions: cfg.Lint.Extensions,
		Exclude:    cfg.Lint.Exclude,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("lint failed")
		return false
	}
	for _, f := range findings {
		fmt.Fprintln(stdio.Out, f)
	}
	return len(findings) == 0
}

func runBuild(args []string, stdio IO) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	var c common
	c.register(fs)
	skipLint := fs.Bool("skip-lint", false, "write the bundle without the static check")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg, logger, err := c.load(stdio)
	if err != nil {
		fmt.Fprintf(stdio.Err, "build: %v\n", err)
		return ExitError
	}
	if !*skipLint && !check(cfg, logger, stdio) {
		logger.Error().Msg("build stopped: static check failed")
		return ExitError
	}
	out, err := bundle.Build(cfg, Pages(cfg), logger)
	if err != nil {
		logger.Error().Err(err).Msg("build failed")
		return ExitError
	}
	fmt.Fprintln(stdio.Out, out)
	return ExitOK
}

func runTUI(args []string, stdio IO) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	var c common
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg, logger, err := c.load(stdio)
	if err != nil {
		fmt.Fprintf(stdio.Err, "tui: %v\n", err)
		return ExitError
	}
	final, err := tui.Run(cfg.Hello, stdio.In, stdio.Out)
	if err != nil {
		logger.Error().Err(err).Msg("tui failed")
		return ExitError
	}
	logger.Debug().Stringer("state", final).Msg("tui done")
	return ExitOK
}

type serveFlags struct {
	common
	addr       string
	sessions   string
	sessionsDB string
	natsDir    string
	contextTTL time.Duration
}

func runServe(args []string, stdio IO) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stdio.Err)
	var f serveFlags
	f.register(fs)
	fs.StringVar(&f.addr, "addr", ":3000", "http listen address")
	fs.StringVar(&f.sessions, "sessions", "", "session store: memory or sqlite (empty disables sessions)")
	fs.StringVar(&f.sessionsDB, "sessions-db", "sessions.db", "sqlite file for -sessions sqlite")
	fs.StringVar(&f.natsDir, "nats-dir", "", "run an embedded NATS server in this directory and publish flip events")
	fs.DurationVar(&f.contextTTL, "context-ttl", 0, "reap page contexts without a live stream after this long (0 = 30s)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg, logger, err := f.load(stdio)
	if err != nil {
		fmt.Fprintf(stdio.Err, "serve: %v\n", err)
		return ExitError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, cleanup, err := newApp(ctx, cfg, f, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve: setup failed")
		return ExitError
	}
	defer cleanup()

	if err := v.Start(); err != nil {
		logger.Error().Err(err).Msg("serve failed")
		return ExitError
	}
	return ExitOK
}

// newApp wires the via app for cfg. On success the returned cleanup releases
// what setup opened outside the app.
func newApp(ctx context.Context, cfg buildcfg.Config, f serveFlags, logger zerolog.Logger) (*via.V, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := via.Options{
		DevMode:       cfg.Dev(),
		ServerAddress: f.addr,
		Logger:        &logger,
		DocumentTitle: cfg.Title,
		MountID:       cfg.Mount,
		ContextTTL:    f.contextTTL,
	}

	switch f.sessions {
	case "":
	case "memory":
		opts.SessionManager = scs.New()
	case "sqlite":
		db, err := sql.Open("sqlite3", f.sessionsDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open sessions db: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		sm, err := via.NewSQLiteSessionManager(db, 5*time.Minute)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts.SessionManager = sm
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", f.sessions)
	}

	if f.natsDir != "" {
		ps, err := vianats.New(ctx, f.natsDir)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if _, err := ps.Subscribe(toggle.FlippedSubject, logFlips(logger)); err != nil {
			_ = ps.Close()
			cleanup()
			return nil, nil, err
		}
		// the app closes the pubsub on shutdown
		opts.PubSub = ps
	}

	v := via.New()
	v.Config(opts)
	v.Page(cfg.Entry, toggle.Page(cfg.Hello))
	if st, err := os.Stat(cfg.Output.Path); err == nil && st.IsDir() {
		v.Static("/dist/", cfg.Output.Path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Str("path", cfg.Output.Path).Msg("bundle directory not served")
	}
	return v, cleanup, nil
}

// logFlips logs every flip event. Messages that are not flip events are
// logged as warnings and skipped.
func logFlips(logger zerolog.Logger) func([]byte) {
	return func(data []byte) {
		var e toggle.Event
		if err := json.Unmarshal(data, &e); err != nil {
			logger.Warn().Err(err).Str("subject", toggle.FlippedSubject).Msg("skipping undecodable flip event")
			return
		}
		logger.Info().Str("via-ctx", e.Ctx).Bool("toggle", e.Toggle).Msg("flip")
	}
}
