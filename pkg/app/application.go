package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sivacor/sivacor-cli/internal/services"
	"github.com/sivacor/sivacor-cli/pkg/config"
	"github.com/sivacor/sivacor-cli/pkg/girder"
)

// Application holds an authenticated API client and the services built on
// it for one CLI invocation.
type Application struct {
	Config      *config.Config
	Client      *girder.Client
	Users       services.UserService
	Jobs        services.JobService
	Submissions services.SubmissionService
	Logger      *slog.Logger

	clientOpts []girder.Option
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithLogger sets the logger shared by the client and services
func WithLogger(logger *slog.Logger) ApplicationOption {
	return func(app *Application) error {
		app.Logger = logger
		return nil
	}
}

// WithHTTPClient replaces the client used for REST calls
func WithHTTPClient(hc *http.Client) ApplicationOption {
	return func(app *Application) error {
		app.clientOpts = append(app.clientOpts, girder.WithHTTPClient(hc))
		return nil
	}
}

// WithPageSize sets the page size of paginated listings
func WithPageSize(n int) ApplicationOption {
	return func(app *Application) error {
		if n <= 0 {
			return fmt.Errorf("page size must be positive, got %d", n)
		}
		app.clientOpts = append(app.clientOpts, girder.WithPageSize(n))
		return nil
	}
}

// NewApplication validates cfg, exchanges the API key for a session token
// and wires the services.
func NewApplication(ctx context.Context, cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &Application{Config: cfg}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	if app.Logger == nil {
		app.Logger = slog.Default()
	}

	clientOpts := append([]girder.Option{girder.WithLogger(app.Logger)}, app.clientOpts...)
	app.Client = girder.New(cfg.APIURL, clientOpts...)
	if err := app.Client.Authenticate(ctx, cfg.APIKey); err != nil {
		return nil, fmt.Errorf("authenticate with %s: %w", cfg.APIURL, err)
	}

	app.Users = services.NewUserService(app.Client, app.Logger)
	app.Jobs = services.NewJobService(app.Client, app.Logger)
	app.Submissions = services.NewSubmissionService(app.Client, app.Users, app.Jobs, app.Logger)
	return app, nil
}

// NewLogger builds the CLI logger. Logs go to w, never to stdout, so JSON
// output stays parseable.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lv := new(slog.LevelVar)
	switch level {
	case "debug":
		lv.Set(slog.LevelDebug)
	case "info":
		lv.Set(slog.LevelInfo)
	case "error":
		lv.Set(slog.LevelError)
	default:
		lv.Set(slog.LevelWarn)
	}
	var handler slog.Handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
	}
	return slog.New(handler).With("service", "sivacor-cli")
}
