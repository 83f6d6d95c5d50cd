package pipeline

import (
	"html"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/DigitumDei/cvserve/internal/assets"
)

// Mode selects the styling a document is wrapped with.
type Mode int

const (
	// ModeScreen is the browser view, with the links block.
	ModeScreen Mode = iota
	// ModePrint is the PDF input: print styling, no links block.
	ModePrint
)

func (m Mode) String() string {
	if m == ModePrint {
		return "print"
	}
	return "screen"
}

// Link is one entry of the links block shown above the document.
type Link struct {
	Label string
	Href  string
}

// Page describes the boilerplate around a fragment.
type Page struct {
	Title string
	Lang  string
	Mode  Mode
	Links []Link // Rendered only in ModeScreen
}

// ContainerClass is the class of the element holding the fragment.
const ContainerClass = "container"

// Embedded stylesheets. The base sheet applies to both modes.
var (
	baseCSS   = mustLoadStyle(assets.StyleBase)
	screenCSS = mustLoadStyle(assets.StyleScreen)
	printCSS  = mustLoadStyle(assets.StylePrint)
)

func mustLoadStyle(name string) string {
	css, err := assets.LoadStyle(name)
	if err != nil {
		panic(err)
	}
	return css
}

// ChromaCSS returns the stylesheet for highlighted code blocks.
var ChromaCSS = sync.OnceValue(func() string {
	var b strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&b, styles.Get(HighlightStyle)); err != nil {
		return ""
	}
	return b.String()
})

// Stylesheet returns the full CSS for mode.
func Stylesheet(mode Mode) string {
	css := baseCSS
	if mode == ModePrint {
		css += printCSS
	} else {
		css += screenCSS
	}
	return css + ChromaCSS()
}

// Wrap places fragment inside the fixed document boilerplate. The
// container's inner content is exactly fragment, so ExtractContainer
// recovers it unchanged.
func Wrap(fragment string, page Page) string {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="` + html.EscapeString(lang) + "\">\n")
	b.WriteString("<head>\n")
	b.WriteString("<meta charset=\"UTF-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	b.WriteString("<title>" + html.EscapeString(page.Title) + "</title>\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	if page.Mode == ModeScreen && len(page.Links) > 0 {
		b.WriteString(linksBlock(page.Links))
	}
	b.WriteString(`<div class="` + ContainerClass + `">`)
	b.WriteString(fragment)
	b.WriteString("</div>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")

	return InjectCSS(b.String(), Stylesheet(page.Mode))
}

func linksBlock(links []Link) string {
	var b strings.Builder
	b.WriteString(`<nav class="links">`)
	for _, l := range links {
		b.WriteString(`<a href="` + html.EscapeString(l.Href) + `">` + html.EscapeString(l.Label) + `</a>`)
	}
	b.WriteString("</nav>\n")
	return b.String()
}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
// CSS content is sanitized to prevent injection attacks.
func InjectCSS(htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	styleBlock := "<style>\n" + sanitizeCSS(cssContent) + "</style>\n"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		// Find the closing > of <body...>
		closeIdx := strings.Index(htmlContent[idx:], ">")
		if closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
