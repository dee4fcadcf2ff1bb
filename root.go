package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/tonimelisma/moneyboard/internal/api"
	"github.com/tonimelisma/moneyboard/internal/config"
	"github.com/tonimelisma/moneyboard/internal/credstore"
	"github.com/tonimelisma/moneyboard/internal/usermsg"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run even when the config
// file is missing or invalid ("config init", "config set").
const skipConfigAnnotation = "skip-config"

// CLIFlags holds the persistent flags shared by every command.
type CLIFlags struct {
	ConfigPath string
	APIURL     string
	JSON       bool
	Verbose    bool
	Quiet      bool
}

// CLIContext is built once per invocation by the root pre-run and carried in
// the command context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved // nil for skip-config commands
	Logger *slog.Logger
	Lang   language.Tag
	Stdout io.Writer
	Stderr io.Writer

	store  credstore.Store
	client *api.Client
}

type cliContextKey struct{}

func withCLIContext(ctx context.Context, cc *CLIContext) context.Context {
	return context.WithValue(ctx, cliContextKey{}, cc)
}

// cliContextFrom returns the CLIContext installed by the root pre-run, if any.
func cliContextFrom(ctx context.Context) (*CLIContext, bool) {
	if ctx == nil {
		return nil, false
	}

	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)

	return cc, ok
}

// mustCLIContext returns the CLIContext installed by the root pre-run.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := cliContextFrom(ctx)
	if !ok {
		panic("moneyboard: command context has no CLIContext")
	}

	return cc
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if !cc.Flags.Quiet {
		fmt.Fprintf(cc.Stderr, format, args...)
	}
}

// newRootCmd builds the root command with all subcommands registered.
func newRootCmd() *cobra.Command {
	var flags CLIFlags

	cmd := &cobra.Command{
		Use:     "moneyboard",
		Short:   "Personal finance client",
		Long:    "A command-line client for the moneyboard personal finance backend.",
		Version: version,
		// We print errors ourselves, localized.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd, flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return mustCLIContext(cmd.Context()).Close()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flags.APIURL, "api-url", "", "backend base URL (overrides api_url)")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newPasswdCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newAccountsCmd())
	cmd.AddCommand(newCategoriesCmd())
	cmd.AddCommand(newTransactionsCmd())
	cmd.AddCommand(newBudgetsCmd())
	cmd.AddCommand(newGoalsCmd())
	cmd.AddCommand(newDebtsCmd())
	cmd.AddCommand(newInvestmentsCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newHealthCmd())

	return cmd
}

// setupCLIContext resolves configuration, builds the logger and installs the
// CLIContext on the command.
func setupCLIContext(cmd *cobra.Command, flags CLIFlags) error {
	cc := &CLIContext{
		Flags:  flags,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}

	if cmd.Annotations[skipConfigAnnotation] == "" {
		resolved, err := config.Resolve(config.ReadEnvOverrides(), config.CLIOverrides{
			ConfigPath: flags.ConfigPath,
			APIURL:     flags.APIURL,
		})
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cc.Cfg = resolved
	}

	cc.Logger = buildLogger(cc.Cfg, flags, cc.Stderr)
	cc.Lang = usermsg.Language(languageSetting(cc.Cfg))

	cmd.SetContext(withCLIContext(cmd.Context(), cc))

	return nil
}

func languageSetting(cfg *config.Resolved) string {
	if cfg == nil {
		return ""
	}

	return cfg.Language
}

// buildLogger creates an slog.Logger from the resolved config and CLI flags.
// The config log level is the baseline; --verbose and --quiet override it.
// log_format "auto" picks text on a terminal and JSON otherwise.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// isTerminal reports whether w is a terminal file descriptor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Close releases the credential store if one was opened.
func (cc *CLIContext) Close() error {
	if cc.store == nil {
		return nil
	}

	err := cc.store.Close()
	cc.store, cc.client = nil, nil

	return err
}

// errorMessage renders err for the terminal. Client errors are localized;
// anything else is shown as is.
func errorMessage(err error, lang language.Tag) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) || errors.Is(err, api.ErrNotLoggedIn) || errors.Is(err, context.Canceled) {
		return usermsg.For(err, lang)
	}

	return err.Error()
}

// exitOnError prints a localized message for err to stderr and exits.
// The raw error goes to the debug log.
func exitOnError(err error, cc *CLIContext) {
	lang := language.English

	if cc != nil {
		lang = cc.Lang
		cc.Logger.Debug("command failed", slog.String("error", err.Error()))
		_ = cc.Close()
	}

	fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err, lang))
	os.Exit(1)
}
