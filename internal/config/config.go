package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/DigitumDei/cvserve/internal/yamlutil"
)

// Sentinel errors for options loading.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidOption  = errors.New("invalid option")
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Margin bounds in inches.
const (
	MinMargin = 0.25
	MaxMargin = 3.0
)

// MaxPullRetries caps transient-failure retries of the incremental update.
const MaxPullRetries = 10

// Options holds the service configuration that is not per-request.
type Options struct {
	WorkDir     string          `yaml:"workDir"`     // Fixed working-copy path
	Depth       int             `yaml:"depth"`       // Clone/pull depth, 0 = full history
	PullRetries int             `yaml:"pullRetries"` // Retries for transient update failures
	SyncTimeout string          `yaml:"syncTimeout"` // Go duration, e.g. "60s"
	Document    DocumentOptions `yaml:"document"`
	Page        PageOptions     `yaml:"page"`
	PDF         PDFOptions      `yaml:"pdf"`
}

// DocumentOptions controls the HTML boilerplate and download name.
type DocumentOptions struct {
	Title    string `yaml:"title"`
	BaseName string `yaml:"baseName"` // PDF attachment is <baseName>.pdf
	Lang     string `yaml:"lang"`
}

// PageOptions controls PDF page geometry.
type PageOptions struct {
	Size   string  `yaml:"size"`   // "letter", "a4", "legal"
	Margin float64 `yaml:"margin"` // inches, applied to all sides
}

// PDFOptions controls the headless browser.
type PDFOptions struct {
	Timeout    string `yaml:"timeout"`    // Go duration for page load + print
	BrowserBin string `yaml:"browserBin"` // Empty = ROD_BROWSER_BIN or managed Chromium
}

// DefaultOptions returns the options used when no config file is given.
func DefaultOptions() *Options {
	return &Options{
		WorkDir:     "/tmp/cv_repo",
		Depth:       1,
		PullRetries: 2,
		SyncTimeout: "60s",
		Document: DocumentOptions{
			Title:    "Curriculum Vitae",
			BaseName: "cv",
			Lang:     "en",
		},
		Page: PageOptions{
			Size:   PageSizeA4,
			Margin: 0.5,
		},
		PDF: PDFOptions{
			Timeout: "30s",
		},
	}
}

// Validate checks every field and returns the first problem found.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.WorkDir) == "" {
		return fmt.Errorf("%w: workDir: must not be empty", ErrInvalidOption)
	}
	if o.Depth < 0 {
		return fmt.Errorf("%w: depth: must be >= 0, got %d", ErrInvalidOption, o.Depth)
	}
	if o.PullRetries < 0 || o.PullRetries > MaxPullRetries {
		return fmt.Errorf("%w: pullRetries: must be between 0 and %d, got %d", ErrInvalidOption, MaxPullRetries, o.PullRetries)
	}
	if _, err := parsePositiveDuration("syncTimeout", o.SyncTimeout); err != nil {
		return err
	}
	if _, err := parsePositiveDuration("pdf.timeout", o.PDF.Timeout); err != nil {
		return err
	}

	switch strings.ToLower(o.Page.Size) {
	case PageSizeLetter, PageSizeA4, PageSizeLegal:
	default:
		return fmt.Errorf("%w: page.size: %q (must be letter, a4, or legal)", ErrInvalidOption, o.Page.Size)
	}
	if o.Page.Margin < MinMargin || o.Page.Margin > MaxMargin {
		return fmt.Errorf("%w: page.margin: %.2f (must be between %.2f and %.2f)", ErrInvalidOption, o.Page.Margin, MinMargin, MaxMargin)
	}

	// BaseName ends up inside a quoted Content-Disposition filename.
	name := o.Document.BaseName
	if name == "" || strings.ContainsAny(name, "/\\\"\r\n\x00") {
		return fmt.Errorf("%w: document.baseName: %q", ErrInvalidOption, name)
	}
	return nil
}

// SyncTimeoutDuration returns the parsed sync timeout, or 60s if unparsable.
func (o *Options) SyncTimeoutDuration() time.Duration {
	d, err := parsePositiveDuration("syncTimeout", o.SyncTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// PDFTimeoutDuration returns the parsed PDF timeout, or 30s if unparsable.
func (o *Options) PDFTimeoutDuration() time.Duration {
	d, err := parsePositiveDuration("pdf.timeout", o.PDF.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func parsePositiveDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidOption, field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s: must be positive, got %s", ErrInvalidOption, field, s)
	}
	return d, nil
}

// LoadOptions reads a YAML file over DefaultOptions and validates the result.
// Fields absent from the file keep their default values.
func LoadOptions(path string) (*Options, error) {
	opts := DefaultOptions()
	if err := yamlutil.DecodeFile(path, opts); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// Load builds Options from an optional YAML file, then overlays CVSERVE_*
// variables and validates the result. An empty path falls back to
// CVSERVE_CONFIG; with neither set the defaults are used.
func Load(path string, lookup LookupFunc) (*Options, error) {
	if lookup == nil {
		lookup = OSLookup
	}
	if path == "" {
		path = lookup.get(EnvConfigPath)
	}

	opts := DefaultOptions()
	if path != "" {
		loaded, err := LoadOptions(path)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}

	if err := ApplyEnv(opts, lookup); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}
