// Package cli is the console's command-line front end. It owns presentation:
// API failures are shown by their server message, anything else by a generic
// fallback, and session redirects are printed instead of followed.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/config"
	"github.com/hafizbahtiar/console/internal/logger"
	"github.com/hafizbahtiar/console/internal/session"
	"github.com/hafizbahtiar/console/internal/storage"
	"github.com/hafizbahtiar/console/internal/tokens"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const genericFailure = "Something went wrong. Please try again."

// Options overrides process defaults; tests use it to run commands against
// an in-process backend.
type Options struct {
	Config  *config.Config
	Storage storage.Storage
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
}

type app struct {
	opts Options
	cfg  config.Config
	log  *slog.Logger

	in      *bufio.Reader
	tokens  *tokens.Store
	api     *client.Client
	sess    *session.Session
	closers []func()
}

// displayError carries the line shown to the user while keeping the cause
// reachable through errors.Is/As.
type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }

// present turns err into what the user sees: the server's message for API
// errors, otherwise fallback.
func present(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &displayError{msg: client.Message(err, fallback), err: err}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}

	a := &app{opts: opts, in: bufio.NewReader(opts.In)}
	defer a.close()

	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(opts.Out)
	cmd.SetErr(opts.Err)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var de *displayError
		if errors.As(err, &de) {
			fmt.Fprintf(opts.Err, "Error: %s\n", de.msg)
		} else {
			fmt.Fprintf(opts.Err, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "console",
		Short:         "Personal console client",
		Long:          "Sign in to the console backend, inspect the session and call its API.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	cmd.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.statusCmd(),
		a.apiCmd(),
		a.financeCmd(),
		a.serveCmd(),
		a.mockAPICmd(),
		versionCmd(),
	)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "console version %s (build: %s)\n", Version, BuildTime)
		},
	}
}

func (a *app) loadConfig() error {
	if a.opts.Config != nil {
		a.cfg = *a.opts.Config
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		a.cfg = cfg
	}

	a.log = logger.Init(logger.Config{
		Service:   a.cfg.Logging.Service,
		Version:   a.cfg.Logging.Version,
		Env:       logger.Env(a.cfg.Logging.Env),
		Backend:   logger.Backend(a.cfg.Logging.Backend),
		Debug:     a.cfg.Logging.Debug,
		AddSource: a.cfg.Logging.AddSource,
		Output:    a.opts.Err,
	})
	return nil
}

// connect wires storage, token store, client and session on first use.
func (a *app) connect(ctx context.Context) error {
	if a.sess != nil {
		return nil
	}

	store := a.opts.Storage
	if store == nil {
		s, closeFn, err := storage.Open(ctx, a.cfg.Storage)
		if err != nil {
			return fmt.Errorf("open %s storage: %w", a.cfg.Storage.Driver, err)
		}
		a.closers = append(a.closers, closeFn)
		store = s
	}

	a.tokens = tokens.NewStore(store, a.log)
	a.api = client.New(a.cfg.API, a.tokens.TokenSource(), client.WithLogger(a.log))
	a.sess = session.New(a.api, a.tokens, session.NavigatorFunc(a.navigate),
		session.WithLogger(a.log),
		session.WithRoutes(a.cfg.Guard.LandingRoute, a.cfg.Guard.LoginRoute),
	)
	return nil
}

func (a *app) navigate(route string) {
	fmt.Fprintf(a.opts.Err, "-> %s\n", route)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// prompt reads one line from stdin when value is empty.
func (a *app) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(a.opts.Err, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}
