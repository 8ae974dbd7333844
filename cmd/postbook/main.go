package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eringen/postbook"
	"github.com/eringen/postbook/book"
	"github.com/eringen/postbook/feed"
)

// version is set at build time via ldflags.
var version = "dev"

func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := envFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = postbook.LoadConfig(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		env.Cfg.Logging.Level = "debug"
	}
	if env.Log, env.closeLog, err = postbook.NewLogger(env.Cfg.Logging); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if configFile == "" {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)

	env.Log.Debug("Program ended", zap.Duration("elapsed", env.uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	if env.closeLog != nil {
		if er := env.closeLog(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close log: %w", er))
		}
	}
	return
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := envFromContext(ctx)
	if env.closeLog != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "postbook",
		Usage:           "turns a feed of short posts into a printable book",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
		},
		Commands: []*cli.Command{
			{
				Name:         "serve",
				Usage:        "Serves the spread preview and export endpoints",
				OnUsageError: usageErrorHandler,
				Action:       serve,
			},
			{
				Name:         "import",
				Usage:        "Replaces the stored feed with a JSON feed file",
				OnUsageError: usageErrorHandler,
				Action:       importFeed,
				ArgsUsage:    "SOURCE",
			},
			{
				Name:         "layout",
				Usage:        "Prints the page layout as JSON",
				OnUsageError: usageErrorHandler,
				Action:       printLayout,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "chunks", Usage: "include every page's chunks"},
				},
				ArgsUsage: "[SOURCE]",
			},
			{
				Name:         "export",
				Usage:        "Renders the book to PDF",
				OnUsageError: usageErrorHandler,
				Action:       export,
				ArgsUsage:    "[DESTINATION]",
			},
			{
				Name:         "pages",
				Usage:        "Writes every page as a standalone HTML document",
				OnUsageError: usageErrorHandler,
				Action:       writePages,
				ArgsUsage:    "DIRECTORY",
			},
			{
				Name:         "dumpconfig",
				Usage:        "Dumps either default or actual configuration (YAML)",
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default configuration"},
				},
				ArgsUsage: "[DESTINATION]",
			},
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func serve(ctx context.Context, _ *cli.Command) (err error) {
	env := envFromContext(ctx)

	a, err := postbook.New(env.Cfg, postbook.WithLogger(env.Log))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	done := make(chan error, 1)
	go func() {
		done <- a.Start()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}
	env.Log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-done
}

func readFeed(fname string) (*feed.Feed, error) {
	in, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to open feed '%s': %w", fname, err)
	}
	defer in.Close()

	f, err := feed.Decode(in)
	if err != nil {
		return nil, fmt.Errorf("unable to decode feed '%s': %w", fname, err)
	}
	return f, nil
}

func importFeed(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)

	fname := cmd.Args().Get(0)
	if fname == "" {
		return errors.New("no feed file specified")
	}
	f, err := readFeed(fname)
	if err != nil {
		return err
	}

	a, err := env.app()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	_, err = a.Import(ctx, f)
	return err
}

// loadBook builds the book from fname when given, otherwise from the store.
func loadBook(ctx context.Context, env *localEnv, fname string) (b *book.Book, err error) {
	a, err := postbook.New(env.Cfg, postbook.WithLogger(env.Log))
	if err != nil {
		return nil, err
	}
	if fname != "" {
		f, err := readFeed(fname)
		if err != nil {
			return nil, err
		}
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("invalid feed '%s': %w", fname, err)
		}
		return a.BookFrom(ctx, f)
	}
	if err := a.Open(); err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()
	return a.Book(ctx)
}

type layoutOutput struct {
	book.Summary
	Layouts any `json:"layouts,omitempty"`
}

func printLayout(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	b, err := loadBook(ctx, env, cmd.Args().Get(0))
	if err != nil {
		return err
	}
	out := layoutOutput{Summary: b.Summary()}
	if cmd.Bool("chunks") {
		out.Layouts = b.Layouts
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func export(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)

	a, err := env.app()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	b, err := a.Book(ctx)
	if err != nil {
		return err
	}
	fname := cmd.Args().Get(0)
	if fname == "" {
		fname = postbook.ExportFilename(b)
	}
	if err := a.ExportFile(ctx, b, fname); err != nil {
		return err
	}
	env.Log.Info("Book written", zap.String("file", fname), zap.Int("pages", len(b.Pages)))
	return nil
}

func writePages(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	dir := cmd.Args().Get(0)
	if dir == "" {
		return errors.New("no destination directory specified")
	}
	b, err := loadBook(ctx, env, "")
	if err != nil {
		return err
	}
	names, err := postbook.WritePages(ctx, b, dir)
	if err != nil {
		return err
	}
	env.Log.Info("Pages written", zap.String("dir", dir), zap.Int("pages", len(names)))
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) (err error) {
	env := envFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var out io.Writer = os.Stdout
	if fname != "" {
		var f *os.File
		if f, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer func() {
			err = multierr.Append(err, f.Close())
		}()
		out = f
	}

	cfg := env.Cfg
	state := "actual"
	if cmd.Bool("default") {
		state = "default"
		cfg = postbook.DefaultConfig()
	}
	data, err := postbook.DumpConfig(cfg)
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if fname == "" {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
