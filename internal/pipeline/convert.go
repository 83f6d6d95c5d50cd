package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// ErrHTMLConversion indicates HTML conversion failed.
var ErrHTMLConversion = errors.New("HTML conversion failed")

// HighlightStyle is the chroma style used for fenced code blocks.
const HighlightStyle = "github"

// Converter renders preprocessed Markdown to an HTML fragment.
type Converter interface {
	ToFragment(ctx context.Context, content string) (string, error)
}

// GoldmarkConverter converts Markdown to HTML using goldmark (pure Go).
type GoldmarkConverter struct {
	md goldmark.Markdown
}

// NewGoldmarkConverter creates a GoldmarkConverter with GFM extensions,
// footnotes, attribute syntax, and syntax highlighting.
func NewGoldmarkConverter() *GoldmarkConverter {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,      // Tables, strikethrough, autolinks, task lists
			extension.Footnote, // [^1] footnotes
			highlighting.NewHighlighting(
				highlighting.WithStyle(HighlightStyle),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true), // Styles come from ChromaCSS in the document head
				),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(), // # Heading {#id .class}
		),
		// Raw HTML is omitted: WithUnsafe is not set. The ==highlight== and
		// page-break features use placeholders resolved by FinalizeFragment.
	)
	return &GoldmarkConverter{md: md}
}

// ToFragment converts Markdown content to an HTML fragment.
// Goldmark doesn't support context, so conversion runs in a goroutine and
// the caller returns early on cancellation.
func (c *GoldmarkConverter) ToFragment(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		html string
		err  error
	}

	done := make(chan result, 1)

	go func() {
		var buf bytes.Buffer
		if err := c.md.Convert([]byte(content), &buf); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrHTMLConversion, err)}
			return
		}
		done <- result{html: buf.String()}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.html, r.err
	}
}

// Render runs every stage after ReadSource and returns the full document.
func Render(ctx context.Context, conv Converter, markdown string, page Page) (string, error) {
	fragment, err := conv.ToFragment(ctx, Preprocess(markdown))
	if err != nil {
		return "", err
	}
	return Wrap(FinalizeFragment(fragment, page.Mode), page), nil
}
