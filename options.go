package cvserve

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/DigitumDei/cvserve/internal/config"
	"github.com/DigitumDei/cvserve/internal/gitsync"
	"github.com/DigitumDei/cvserve/internal/pipeline"
)

// ConfigResolver produces per-request settings.
type ConfigResolver interface {
	Resolve(ctx context.Context) (config.Settings, error)
}

// Synchronizer brings the working copy up to date and calls fn with its
// directory while no other sync can modify it.
type Synchronizer interface {
	SyncWith(ctx context.Context, repoURL string, fn func(dir string) error) (gitsync.Outcome, error)
}

// PDFRenderer prints a complete HTML document to PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
	Close() error
}

// Option configures a Handler.
type Option func(*Handler)

// WithOptions sets the service options. Components not injected explicitly
// are built from them.
func WithOptions(opts *config.Options) Option {
	return func(h *Handler) {
		if opts != nil {
			h.opts = opts
		}
	}
}

// WithResolver replaces the Secret Manager + environment resolver.
func WithResolver(r ConfigResolver) Option {
	return func(h *Handler) {
		h.resolver = r
	}
}

// WithSynchronizer replaces the git synchronizer.
func WithSynchronizer(s Synchronizer) Option {
	return func(h *Handler) {
		h.sync = s
	}
}

// WithConverter replaces the Markdown converter.
func WithConverter(c pipeline.Converter) Option {
	return func(h *Handler) {
		h.converter = c
	}
}

// WithPDFRenderer replaces the headless Chrome renderer.
func WithPDFRenderer(r PDFRenderer) Option {
	return func(h *Handler) {
		h.pdf = r
	}
}

// WithLogger sets the logger used for request logs.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}
