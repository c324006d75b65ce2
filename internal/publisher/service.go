// Package publisher drives the create-or-update synchronisation of local
// articles against the remote service.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/devpub/internal/checksum"
	"github.com/starford/devpub/internal/forem"
	"github.com/starford/devpub/internal/models"
	"github.com/starford/devpub/internal/parser"
	"github.com/starford/devpub/internal/storage"
)

// Summary is the tally of one batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    []string
	// Outcomes holds one entry per processed file, in processing order.
	Outcomes []models.Outcome
}

// OK reports whether every file was published. An empty batch is OK.
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}

// Service publishes article files through a forem.API, one at a time.
type Service struct {
	api    forem.API
	store  storage.Provider
	report *Reporter
	logger *slog.Logger
}

// Option is a functional option for configuring the service.
type Option func(*Service)

// WithReporter sets the console reporter.
func WithReporter(r *Reporter) Option {
	return func(s *Service) {
		if r != nil {
			s.report = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a publisher over api and store.
func NewService(api forem.API, store storage.Provider, opts ...Option) *Service {
	s := &Service{
		api:    api,
		store:  store,
		report: NewReporter(nil),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run authenticates and then publishes every article file. Authentication
// failure aborts before any file is touched.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	if _, err := s.Authenticate(ctx); err != nil {
		return Summary{}, err
	}
	return s.PublishAll(ctx)
}

// Authenticate verifies the credential and reports the account.
func (s *Service) Authenticate(ctx context.Context) (*models.User, error) {
	u, err := s.api.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	s.report.Authenticated(u)
	s.logger.Info("authenticated", slog.String("username", u.Username))
	return u, nil
}

// PublishAll publishes every file in the store. A failing file is reported
// and skipped; it never stops the batch.
func (s *Service) PublishAll(ctx context.Context) (Summary, error) {
	files, err := s.store.List()
	if err != nil {
		return Summary{}, fmt.Errorf("publisher: list articles: %w", err)
	}
	if len(files) == 0 {
		s.report.NoFiles(s.store.Root())
		return Summary{}, nil
	}

	sum := Summary{Total: len(files)}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		out := s.PublishFile(ctx, f.Name)
		sum.Outcomes = append(sum.Outcomes, out)
		if out.OK() {
			sum.Succeeded++
		} else {
			sum.Failed = append(sum.Failed, f.Name)
		}
	}

	s.report.Summary(sum)
	s.logger.Info("batch finished",
		slog.Int("total", sum.Total),
		slog.Int("succeeded", sum.Succeeded),
		slog.Int("failed", len(sum.Failed)))
	return sum, nil
}

// PublishFile reads, parses and publishes one file.
func (s *Service) PublishFile(ctx context.Context, name string) models.Outcome {
	s.report.Processing(name)

	out := s.publish(ctx, name)
	if out.Err != nil {
		s.report.Failed(out)
		s.logger.Warn("publish failed", slog.String("file", name), slog.String("error", out.Err.Error()))
		return out
	}

	s.report.Published(out)
	s.logger.Debug("published",
		slog.String("file", name),
		slog.String("action", out.Action),
		slog.Int("post_id", out.PostID))
	return out
}

func (s *Service) publish(ctx context.Context, name string) models.Outcome {
	out := models.Outcome{File: name}

	data, err := s.store.Read(name)
	if err != nil {
		out.Err = err
		return out
	}
	out.Checksum = checksum.Sum(data)

	article, err := parser.Parse(name, data)
	if err != nil {
		out.Err = err
		return out
	}
	out.Title = article.Title

	existing, err := s.api.FindByTitle(ctx, article.Title)
	if err != nil {
		out.Err = err
		return out
	}

	var post *models.Post
	if existing != nil {
		s.report.Updating(existing.ID)
		out.Action = models.ActionUpdated
		post, err = s.api.UpdatePost(ctx, existing.ID, UpdateFields(article))
	} else {
		s.report.Creating()
		out.Action = models.ActionCreated
		post, err = s.api.CreatePost(ctx, CreateFields(article))
	}
	if err != nil {
		out.Err = err
		return out
	}

	out.Title = post.Title
	out.PostID = post.ID
	out.URL = post.URL
	out.Published = post.Published
	return out
}
