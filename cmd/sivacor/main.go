package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sivacor/sivacor-cli/internal/render"
	"github.com/sivacor/sivacor-cli/internal/services"
	"github.com/sivacor/sivacor-cli/internal/tracing"
	"github.com/sivacor/sivacor-cli/pkg/app"
	"github.com/sivacor/sivacor-cli/pkg/config"
	"github.com/sivacor/sivacor-cli/pkg/domain"
)

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

// cli carries the global flags and the lazily built application shared by
// every subcommand.
type cli struct {
	ui     *ui
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	profileName string
	apiURL      string
	logLevel    string
	logFormat   string
	noColor     bool

	cfg         *config.Config
	logger      *slog.Logger
	interactive bool
	stopTracing func(context.Context) error
	appOpts     []app.ApplicationOption
	app         *app.Application
}

func main() {
	c := &cli{ui: newUI(), stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	root := newRootCmd(c)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, c.ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "sivacor",
		Short: "SIVACOR CLI",
		Long:  "SIVACOR CLI for inspecting users, submissions and jobs on a Girder server.",
	}
	root.SetHelpTemplate(helpTemplate(c.ui))
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "Girder API URL (default $GIRDER_API_URL or "+config.DefaultAPIURL+")")
	root.PersistentFlags().StringVar(&c.profileName, "profile", "", "Config profile")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Log format: text or json")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "Disable colored output")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Path(), c.profileName)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("api-url") {
			cfg.APIURL = strings.TrimRight(strings.TrimSpace(c.apiURL), "/")
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = strings.ToLower(c.logLevel)
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = strings.ToLower(c.logFormat)
		}
		if c.noColor {
			color.NoColor = true
		}
		c.cfg = cfg
		c.logger = app.NewLogger(c.stderr, cfg.LogLevel, cfg.LogFormat)
		c.interactive = isTerminalWriter(c.stderr)

		stop, err := tracing.Setup(cmd.Context(), tracing.Config{
			Enabled:      cfg.TracingEnabled,
			OTLPEndpoint: cfg.OTLPEndpoint,
			OTLPInsecure: cfg.OTLPInsecure,
		}, c.logger)
		if err != nil {
			return err
		}
		c.stopTracing = stop
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if c.stopTracing == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.stopTracing(ctx); err != nil {
			c.logger.Warn("tracing shutdown failed", "err", err)
		}
		return nil
	}

	root.AddCommand(initCmd(c))
	root.AddCommand(configCmd(c))
	root.AddCommand(userCmd(c))
	root.AddCommand(submissionCmd(c))
	root.AddCommand(jobCmd(c))
	return root
}

// connect authenticates on first use. Profile commands never call it, so
// they work without an API key.
func (c *cli) connect(ctx context.Context) (*app.Application, error) {
	if c.app != nil {
		return c.app, nil
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	stop := c.spin("Authenticating...")
	opts := append([]app.ApplicationOption{app.WithLogger(c.logger)}, c.appOpts...)
	a, err := app.NewApplication(ctx, c.cfg, opts...)
	stop()
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) printer() *render.Printer {
	return render.New(c.stdout, c.cfg.Location(), c.noColor || color.NoColor)
}

// spin shows a spinner on stderr while a request runs. It stays silent
// when stderr is not a terminal.
func (c *cli) spin(msg string) func() {
	if !c.interactive {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(c.stderr))
	s.Suffix = " " + msg
	s.Start()
	return s.Stop
}

func (c *cli) warnf(format string, args ...any) {
	fmt.Fprintln(c.stderr, c.ui.warn("[WARN]"), fmt.Sprintf(format, args...))
}

func (c *cli) infof(format string, args ...any) {
	fmt.Fprintln(c.stderr, c.ui.info("[INFO]"), fmt.Sprintf(format, args...))
}

func (c *cli) okf(format string, args ...any) {
	fmt.Fprintln(c.stdout, c.ui.ok("[OK]"), fmt.Sprintf(format, args...))
}

// resolveUser runs a user search, listing the candidates when the text
// is ambiguous.
func (c *cli) resolveUser(ctx context.Context, a *app.Application, text string) (*domain.User, error) {
	stop := c.spin("Searching users...")
	u, err := a.Users.Search(ctx, text)
	stop()
	var amb *services.AmbiguousMatchError
	switch {
	case errors.As(err, &amb):
		c.warnf("Multiple users found matching '%s':", text)
		for _, cand := range amb.Candidates {
			fmt.Fprintln(c.stderr, "  "+cand.Identity())
		}
		return nil, err
	case errors.Is(err, services.ErrNotFound):
		return nil, fmt.Errorf("no user found matching '%s'", text)
	case err != nil:
		return nil, err
	}
	return u, nil
}

func helpTemplate(ui *ui) string {
	title := ui.title("sivacor")
	return fmt.Sprintf(`%s: CLI for SIVACOR

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  sivacor init
  sivacor user list
  sivacor submission list --user ada --since 2025-01-01 --head 20
  sivacor submission get sub-0042 --download stdout --download tro
  sivacor job list --status 4
  sivacor job stream

`, title, config.Path())
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func isTerminalReader(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// promptSecret reads a secret with echo disabled on a terminal, or a plain
// line from r otherwise.
func promptSecret(c *cli, r *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(c.stderr, "%s: ", label)
	if f, ok := c.stdin.(*os.File); ok && isTerminalReader(f) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func prompt(c *cli, r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Fprintf(c.stderr, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(c.stderr, "%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}
