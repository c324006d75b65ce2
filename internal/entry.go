// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/devpub/internal/apperr"
	"github.com/starford/devpub/internal/checksum"
	"github.com/starford/devpub/internal/forem"
	"github.com/starford/devpub/internal/mcpserver"
	"github.com/starford/devpub/internal/models"
	"github.com/starford/devpub/internal/publisher"
	"github.com/starford/devpub/internal/storage"
	"github.com/starford/devpub/internal/watcher"
)

// Version is reported by the MCP server. Overridden at build time.
var Version = "dev"

// deps is everything a mode needs once pre-flight checks have passed.
type deps struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	client *forem.Client
	svc    *publisher.Service
}

// Run publishes every article once. It fails with apperr.ErrPublishFailed
// when at least one file could not be published.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.bootstrap(app.out)
	if err != nil {
		return err
	}

	sum, err := rt.svc.Run(ctx)
	if err != nil {
		return err
	}
	if !sum.OK() {
		return fmt.Errorf("%w: %d of %d articles failed", apperr.ErrPublishFailed, len(sum.Failed), sum.Total)
	}
	return nil
}

// RunWatch publishes every article once and then republishes files as they
// change on disk until ctx is cancelled or a termination signal arrives.
func RunWatch(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.bootstrap(app.out)
	if err != nil {
		return err
	}
	logger := rt.logger

	sum, err := rt.svc.Run(ctx)
	if err != nil {
		return err
	}
	if !sum.OK() {
		logger.Warn("initial batch incomplete", slog.Any("failed", sum.Failed))
	}

	published, attempted := seedLedgers(sum.Outcomes)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	publish := func(name string) {
		out := rt.svc.PublishFile(gCtx, name)
		if out.Checksum != "" {
			attempted[name] = out.Checksum
		}
		if out.OK() {
			published[name] = out.Checksum
		}
	}

	g.Go(func() error {
		defer cancel()
		return watcher.Watch(gCtx, rt.store.Root(), rt.store.Ext(), rt.cfg.Watch.Debounce, logger,
			func(name string) {
				data, err := rt.store.Read(name)
				if err != nil {
					logger.Warn("watch: read failed", slog.String("file", name), slog.String("error", err.Error()))
					return
				}
				if !published.Changed(name, data) {
					logger.Debug("watch: content unchanged", slog.String("file", name))
					return
				}
				publish(name)
			},
			// Changes made between the batch and the watch registration
			// produced no events; pick them up once the watch is live.
			watcher.OnReady(func() {
				catchUp(rt.store, attempted, logger, publish)
			}))
	})

	g.Go(func() error {
		waitForSignal(gCtx, logger, cancel)
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	logger.Info("watch stopped")
	return nil
}

// RunMCP authenticates and then serves the publishing tools over the
// configured input and output streams. The console report goes to the log
// output so the protocol stream stays clean.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := app.bootstrap(app.logOut)
	if err != nil {
		return err
	}
	if _, err := rt.svc.Authenticate(ctx); err != nil {
		return err
	}

	srv := mcpserver.New(rt.svc, rt.client, rt.store, Version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		rt.logger.Info("mcp server listening on stdio")
		if err := srv.Listen(gCtx, app.in, app.out); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		waitForSignal(gCtx, rt.logger, cancel)
		return nil
	})

	return g.Wait()
}

func newApplication(opts []Option) *application {
	app := &application{
		out:    os.Stdout,
		logOut: os.Stderr,
		in:     os.Stdin,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		app.config = NewDefaultConfig()
	}
	return app
}

// bootstrap runs the pre-flight checks in order: credential, articles
// directory, then builds the client. No network traffic happens here.
func (a *application) bootstrap(report io.Writer) (*deps, error) {
	cfg := a.config

	logger := newLogger(a.logOut, cfg.App)
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("base_url", cfg.Forem.BaseURL),
		slog.String("articles_dir", cfg.Articles.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	apiKey := os.Getenv(cfg.Forem.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s is not set", apperr.ErrMissingCredential, cfg.Forem.APIKeyEnv)
	}

	store, err := storage.NewFS(cfg.Articles.Dir, cfg.Articles.Extension)
	if err != nil {
		return nil, err
	}

	clientOpts := []forem.Option{
		forem.WithUserAgent(cfg.Forem.UserAgent),
		forem.WithLogger(logger),
	}
	if cfg.Forem.Timeout > 0 {
		clientOpts = append(clientOpts, forem.WithTimeout(cfg.Forem.Timeout))
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, forem.WithHTTPClient(a.httpClient))
	}
	client := forem.New(cfg.Forem.BaseURL, apiKey, clientOpts...)

	svc := publisher.NewService(client, store,
		publisher.WithReporter(publisher.NewReporter(report)),
		publisher.WithLogger(logger))

	return &deps{cfg: cfg, logger: logger, store: store, client: client, svc: svc}, nil
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// seedLedgers builds two ledgers from the batch outcomes: published holds
// the digest of the bytes each successful publish actually sent, attempted
// holds the digest of every file that could be read, successful or not.
func seedLedgers(outcomes []models.Outcome) (published, attempted checksum.Ledger) {
	published = make(checksum.Ledger, len(outcomes))
	attempted = make(checksum.Ledger, len(outcomes))
	for _, o := range outcomes {
		if o.Checksum == "" {
			continue
		}
		attempted[o.File] = o.Checksum
		if o.OK() {
			published[o.File] = o.Checksum
		}
	}
	return published, attempted
}

// catchUp publishes every file whose content differs from what the batch
// attempted. Files that cannot be listed or read are left to the next event.
func catchUp(store storage.Provider, attempted checksum.Ledger, logger *slog.Logger, publish func(name string)) {
	files, err := store.List()
	if err != nil {
		logger.Warn("watch: rescan failed", slog.String("error", err.Error()))
		return
	}
	for _, f := range files {
		data, err := store.Read(f.Name)
		if err != nil {
			logger.Debug("watch: rescan read failed", slog.String("file", f.Name), slog.String("error", err.Error()))
			continue
		}
		if attempted.Changed(f.Name, data) {
			publish(f.Name)
		}
	}
}

func waitForSignal(ctx context.Context, logger *slog.Logger, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	case <-ctx.Done():
	}
}
