package cvserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"

	"github.com/DigitumDei/cvserve/internal/config"
	"github.com/DigitumDei/cvserve/internal/gitsync"
	"github.com/DigitumDei/cvserve/internal/hints"
	"github.com/DigitumDei/cvserve/internal/metrics"
	"github.com/DigitumDei/cvserve/internal/pdf"
	"github.com/DigitumDei/cvserve/internal/pipeline"
	"github.com/DigitumDei/cvserve/internal/secrets"
)

// Link labels shown above the HTML document.
const (
	PDFLinkLabel    = "Download as PDF"
	SourceLinkLabel = "View source repository"
)

// PDFQueryParam selects PDF output when present, whatever its value.
const PDFQueryParam = "pdf"

const (
	formatHTML = "html"
	formatPDF  = "pdf"
)

// Handler serves the CV. It is safe for concurrent use.
type Handler struct {
	opts      *config.Options
	resolver  ConfigResolver
	sync      Synchronizer
	converter pipeline.Converter
	pdf       PDFRenderer
	log       *logger.Logger
}

var _ http.Handler = (*Handler)(nil)

// NewHandler creates a Handler. Components not supplied through options are
// built from the Options: the Secret Manager resolver, a synchronizer on
// Options.WorkDir, the Goldmark converter and the go-rod renderer.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		opts: config.DefaultOptions(),
		log:  logger.StandardLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.resolver == nil {
		h.resolver = config.NewResolver(secrets.NewGCPStore(), nil)
	}
	if h.sync == nil {
		h.sync = gitsync.New(h.opts.WorkDir,
			gitsync.WithDepth(h.opts.Depth),
			gitsync.WithPullRetries(h.opts.PullRetries),
		)
	}
	if h.converter == nil {
		h.converter = pipeline.NewGoldmarkConverter()
	}
	if h.pdf == nil {
		h.pdf = pdf.NewRodRenderer(pdf.Options{
			PageSize:   h.opts.Page.Size,
			Margin:     h.opts.Page.Margin,
			Timeout:    h.opts.PDFTimeoutDuration(),
			BrowserBin: h.opts.PDF.BrowserBin,
		})
	}
	return h
}

// Close releases the PDF renderer.
func (h *Handler) Close() error {
	if h.pdf != nil {
		return h.pdf.Close()
	}
	return nil
}

// response is a fully rendered reply. Nothing is written to the client
// until one exists.
type response struct {
	contentType string
	disposition string
	body        []byte
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format := formatHTML
	if r.URL.Query().Has(PDFQueryParam) {
		format = formatPDF
	}
	log := h.log.WithFields(logger.Fields{"format": format, "path": r.URL.Path})
	if id := middleware.GetReqID(r.Context()); id != "" {
		log = log.WithField("request_id", id)
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("[handler] Recovered from panic")
			writeText(w, format, http.StatusInternalServerError, GenericErrorMessage)
		}
	}()

	start := time.Now()
	resp, err := h.serve(r.Context(), r, format, log)
	if err != nil {
		status, body := errorResponse(err)
		log.WithError(err).WithField("status", status).Error("[handler] Request failed")
		writeText(w, format, status, body)
		return
	}

	metrics.Render(format, start)
	w.Header().Set("Content-Type", resp.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.body)))
	if resp.disposition != "" {
		w.Header().Set("Content-Disposition", resp.disposition)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.body)
	metrics.Request(format, http.StatusOK)
	log.WithField("duration", time.Since(start).String()).Info("[handler] Served document")
}

func (h *Handler) serve(ctx context.Context, r *http.Request, format string, log *logger.Entry) (*response, error) {
	settings, err := h.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("[handler] Serving %s from %s", settings.FilePath, gitsync.RedactURL(settings.RepoURL))

	markdown, err := h.fetch(ctx, settings, log)
	if err != nil {
		return nil, err
	}

	page := pipeline.Page{
		Title: h.opts.Document.Title,
		Lang:  h.opts.Document.Lang,
		Mode:  pipeline.ModeScreen,
	}
	if format == formatPDF {
		page.Mode = pipeline.ModePrint
	} else {
		page.Links = documentLinks(r.URL, settings.RepoURL)
	}

	doc, err := pipeline.Render(ctx, h.converter, markdown, page)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", settings.FilePath, err)
	}

	if format == formatHTML {
		return &response{contentType: "text/html; charset=utf-8", body: []byte(doc)}, nil
	}

	pdfCtx, cancel := context.WithTimeout(ctx, h.opts.PDFTimeoutDuration())
	defer cancel()

	data, err := h.pdf.RenderPDF(pdfCtx, doc)
	if err != nil {
		return nil, fmt.Errorf("printing PDF: %w", err)
	}
	return &response{
		contentType: "application/pdf",
		disposition: `attachment; filename="` + h.opts.Document.BaseName + `.pdf"`,
		body:        data,
	}, nil
}

// fetch syncs the working copy and reads the source while holding its lock.
func (h *Handler) fetch(ctx context.Context, settings config.Settings, log *logger.Entry) (string, error) {
	syncCtx, cancel := context.WithTimeout(ctx, h.opts.SyncTimeoutDuration())
	defer cancel()

	var markdown string
	outcome, err := h.sync.SyncWith(syncCtx, settings.RepoURL, func(dir string) error {
		var readErr error
		markdown, readErr = pipeline.ReadSource(dir, settings.FilePath)
		return readErr
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("[handler] Repository sync timed out" + hints.ForSyncTimeout())
		}
		return "", err
	}
	log.WithField("outcome", outcome.String()).Debug("[handler] Working copy ready")
	return markdown, nil
}

// documentLinks builds the links block: the current URL with the pdf flag
// added, and the repository when it is browsable over http(s).
func documentLinks(reqURL *url.URL, repoURL string) []pipeline.Link {
	q := reqURL.Query()
	q.Set(PDFQueryParam, "1")
	links := []pipeline.Link{{Label: PDFLinkLabel, Href: "?" + q.Encode()}}

	if u, err := url.Parse(gitsync.RedactURL(repoURL)); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		links = append(links, pipeline.Link{Label: SourceLinkLabel, Href: u.String()})
	}
	return links
}

// writeText writes a complete plain-text error body.
func writeText(w http.ResponseWriter, format string, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
	metrics.Request(format, status)
}
