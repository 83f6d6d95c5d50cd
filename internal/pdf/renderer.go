package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	logger "github.com/sirupsen/logrus"

	"github.com/DigitumDei/cvserve/internal/fileutil"
	"github.com/DigitumDei/cvserve/internal/hints"
	"github.com/DigitumDei/cvserve/internal/process"
)

// Environment variables read when launching the browser.
const (
	EnvBrowserBin = "ROD_BROWSER_BIN"
	EnvNoSandbox  = "ROD_NO_SANDBOX"
	EnvCI         = "CI"
)

// DefaultTimeout bounds page load plus print when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Paper dimensions in inches.
var paperSizes = map[string][2]float64{
	"letter": {8.5, 11},
	"a4":     {8.27, 11.69},
	"legal":  {8.5, 14},
}

// Options controls page geometry and the browser.
type Options struct {
	PageSize   string  // "letter", "a4" or "legal"; unknown values fall back to a4
	Margin     float64 // inches, all sides
	Timeout    time.Duration
	BrowserBin string // overrides ROD_BROWSER_BIN
}

// fileRenderer prints a local HTML file. Split out so RodRenderer can be
// tested without a browser.
type fileRenderer interface {
	RenderFile(ctx context.Context, path string) ([]byte, error)
	Close() error
}

// RodRenderer converts HTML documents to PDF bytes.
// It is safe for concurrent use.
type RodRenderer struct {
	files fileRenderer
}

// NewRodRenderer creates a renderer. The browser is not started until the
// first RenderPDF call.
func NewRodRenderer(opts Options) *RodRenderer {
	return &RodRenderer{files: &rodBrowser{opts: opts}}
}

// RenderPDF writes htmlContent to a temp file, loads it in headless Chrome
// and prints it.
func (r *RodRenderer) RenderPDF(ctx context.Context, htmlContent string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return r.files.RenderFile(ctx, tmpPath)
}

// Close shuts the browser down. Safe to call more than once.
func (r *RodRenderer) Close() error {
	return r.files.Close()
}

// rodBrowser implements fileRenderer with a lazily launched browser.
// Rod downloads Chromium on first run if no binary is found.
type rodBrowser struct {
	opts Options

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	closed   bool
}

// ensureBrowser launches and connects on first use.
func (b *rodBrowser) ensureBrowser() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New()

	bin := b.opts.BrowserBin
	if bin == "" {
		bin = os.Getenv(EnvBrowserBin)
	}
	if bin != "" {
		l = l.Bin(bin)
	}
	if noSandbox(bin) {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		process.KillTree(l.PID())
		l.Kill()
		return nil, fmt.Errorf("%w: %v%s", ErrBrowserConnect, err, hints.ForBrowserConnect())
	}

	logger.WithField("pid", l.PID()).Info("[pdf] Browser started")
	b.launcher = l
	b.browser = browser
	return browser, nil
}

// noSandbox reports whether Chrome's sandbox must be disabled, as it must
// inside CI runners and most containers.
func noSandbox(bin string) bool {
	if bin != "" || os.Getenv(EnvCI) == "true" {
		return true
	}
	switch strings.ToLower(os.Getenv(EnvNoSandbox)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Close releases browser resources and kills any leftover processes.
func (b *rodBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.browser == nil {
		return nil
	}

	err := b.browser.Close()
	process.KillTree(b.launcher.PID())
	b.launcher.Kill()
	b.launcher.Cleanup()

	b.browser = nil
	b.launcher = nil
	return err
}

// discard forgets browser if it is still the current one and kills its
// process tree. Another caller may already have replaced it.
func (b *rodBrowser) discard(browser *rod.Browser) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil || b.browser != browser {
		return
	}

	l := b.launcher
	b.browser = nil
	b.launcher = nil

	if l != nil && l.PID() > 0 {
		logger.WithField("pid", l.PID()).Warn("[pdf] Browser unreachable, will relaunch")
		process.KillTree(l.PID())
		l.Kill()
		l.Cleanup()
	}
}

// RenderFile opens a local HTML file in headless Chrome and renders it to PDF.
func (b *rodBrowser) RenderFile(ctx context.Context, filePath string) ([]byte, error) {
	browser, err := b.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		// Opening a target is the first call that reaches Chrome, so a
		// crashed or killed browser fails here. Drop it so the next render
		// launches a new one.
		b.discard(browser)
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := b.opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	page = page.Context(ctx).Timeout(timeout)

	if err := page.WaitLoad(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v%s", ErrPageLoad, err, hints.ForPDFTimeout())
		}
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(buildPDFOptions(b.opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// buildPDFOptions maps Options onto Chrome's print parameters.
func buildPDFOptions(opts Options) *proto.PagePrintToPDF {
	size, ok := paperSizes[strings.ToLower(opts.PageSize)]
	if !ok {
		size = paperSizes["a4"]
	}
	margin := opts.Margin
	if margin <= 0 {
		margin = 0.5
	}

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(size[0]),
		PaperHeight:     floatPtr(size[1]),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
