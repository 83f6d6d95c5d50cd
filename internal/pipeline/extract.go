package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrNoContainer indicates the document has no complete container element.
var ErrNoContainer = errors.New("container element not found")

// ExtractContainer returns the raw markup between the opening tag of the
// first <div class="container"> and its matching </div>. The bytes are
// returned as written, not re-serialized.
func ExtractContainer(doc string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(doc))

	var (
		offset int
		start  = -1
		depth  int
	)

	for {
		tt := z.Next()
		raw := len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", ErrNoContainer
			}
			return "", fmt.Errorf("tokenizing document: %w", z.Err())

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.Div {
				break
			}
			if start >= 0 {
				depth++
				break
			}
			if hasAttr && hasClass(z, ContainerClass) {
				start = offset + raw
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if start < 0 || atom.Lookup(name) != atom.Div {
				break
			}
			if depth == 0 {
				return doc[start:offset], nil
			}
			depth--
		}

		offset += raw
	}
}

// hasClass reports whether the current tag's class attribute contains class.
// Must be called right after TagName.
func hasClass(z *html.Tokenizer, class string) bool {
	for {
		key, val, more := z.TagAttr()
		if bytes.Equal(key, []byte("class")) {
			for _, c := range strings.Fields(string(val)) {
				if c == class {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}
