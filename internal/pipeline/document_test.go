package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSanitizeCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no escape needed",
			input:    "body { color: red; }",
			expected: "body { color: red; }",
		},
		{
			name:     "escapes style close",
			input:    "</style>",
			expected: `<\/style>`,
		},
		{
			name:     "multiple occurrences",
			input:    "</a></b>",
			expected: `<\/a><\/b>`,
		},
		{
			name:     "case variation STYLE",
			input:    "</STYLE>",
			expected: `<\/STYLE>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sanitizeCSS(tt.input)
			if got != tt.expected {
				t.Errorf("sanitizeCSS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInjectCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		html     string
		css      string
		expected string
	}{
		{
			name:     "empty CSS returns unchanged",
			html:     "<html><head></head></html>",
			css:      "",
			expected: "<html><head></head></html>",
		},
		{
			name:     "inserts before </head>",
			html:     "<html><head><title>T</title></head><body></body></html>",
			css:      "p{}",
			expected: "<html><head><title>T</title><style>\np{}</style>\n</head><body></body></html>",
		},
		{
			name:     "uppercase HEAD",
			html:     "<HTML><HEAD></HEAD></HTML>",
			css:      "p{}",
			expected: "<HTML><HEAD><style>\np{}</style>\n</HEAD></HTML>",
		},
		{
			name:     "after <body> when no head",
			html:     `<body class="x"><p>Hi</p></body>`,
			css:      "p{}",
			expected: "<body class=\"x\"><style>\np{}</style>\n<p>Hi</p></body>",
		},
		{
			name:     "prepends fragment",
			html:     "<p>Hi</p>",
			css:      "p{}",
			expected: "<style>\np{}</style>\n<p>Hi</p>",
		},
		{
			name:     "sanitizes closing tag",
			html:     "<head></head>",
			css:      "</style><script>",
			expected: "<head><style>\n<\\/style><script></style>\n</head>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InjectCSS(tt.html, tt.css); got != tt.expected {
				t.Errorf("InjectCSS() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	links := []Link{
		{Label: "Download as PDF", Href: "/cv?lang=en&pdf=1"},
		{Label: "Source repository", Href: "https://github.com/jane/cv"},
	}

	t.Run("screen includes links block", func(t *testing.T) {
		t.Parallel()

		got := Wrap("<h1>Title</h1>\n", Page{Title: "Jane <CV>", Lang: "de", Mode: ModeScreen, Links: links})
		for _, want := range []string{
			"<!DOCTYPE html>",
			`<html lang="de">`,
			`<meta charset="UTF-8">`,
			"<title>Jane &lt;CV&gt;</title>",
			`<nav class="links">`,
			`<a href="/cv?lang=en&amp;pdf=1">Download as PDF</a>`,
			`<a href="https://github.com/jane/cv">Source repository</a>`,
			`<div class="container"><h1>Title</h1>`,
			"box-shadow: 0 4px 6px",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("Wrap() missing %q", want)
			}
		}
		if strings.Index(got, `<nav class="links">`) > strings.Index(got, `<div class="container">`) {
			t.Error("links block must precede the container")
		}
		if strings.Count(got, "<style>") != 1 {
			t.Errorf("Wrap() has %d style blocks, want 1", strings.Count(got, "<style>"))
		}
	})

	t.Run("print omits links and adds print rules", func(t *testing.T) {
		t.Parallel()

		got := Wrap("<h2>Experience</h2>\n", Page{Title: "CV", Mode: ModePrint, Links: links})
		if strings.Contains(got, "<nav") || strings.Contains(got, "Download as PDF") {
			t.Error("print Wrap() must not contain the links block")
		}
		if !strings.Contains(got, "h2 { page-break-before: always; }") {
			t.Error("print Wrap() missing h2 page break rule")
		}
		if !strings.Contains(got, "box-shadow: none") {
			t.Error("print Wrap() should remove the container shadow")
		}
	})

	t.Run("screen without links", func(t *testing.T) {
		t.Parallel()

		if got := Wrap("<p>x</p>", Page{Mode: ModeScreen}); strings.Contains(got, "<nav") {
			t.Error("Wrap() rendered an empty links block")
		}
	})

	t.Run("default lang", func(t *testing.T) {
		t.Parallel()

		if got := Wrap("", Page{}); !strings.Contains(got, `<html lang="en">`) {
			t.Error(`Wrap() default lang should be "en"`)
		}
	})

	t.Run("chroma stylesheet included", func(t *testing.T) {
		t.Parallel()

		css := ChromaCSS()
		if !strings.Contains(css, ".chroma") {
			t.Fatalf("ChromaCSS() = %q, want .chroma rules", css)
		}
		if got := Wrap("", Page{}); !strings.Contains(got, ".chroma") {
			t.Error("Wrap() missing chroma rules")
		}
	})
}

func TestWrapExtractRoundTrip(t *testing.T) {
	t.Parallel()

	conv := NewGoldmarkConverter()
	inputs := map[string]string{
		"empty":     "",
		"title":     "# Title\n\nHello",
		"footnotes": "Claim[^1]\n\n[^1]: Nested <div> markup\n",
		"code":      "```html\n<div class=\"container\"></div>\n```\n",
		"table":     "| a | b |\n|---|---|\n| 1 | 2 |\n",
		"unicode":   "# Zoë Ångström\n\n日本語 — ✓\n",
	}

	for name, input := range inputs {
		for _, mode := range []Mode{ModeScreen, ModePrint} {
			t.Run(name+"/"+mode.String(), func(t *testing.T) {
				t.Parallel()

				fragment, err := conv.ToFragment(context.Background(), Preprocess(input))
				if err != nil {
					t.Fatalf("ToFragment() unexpected error: %v", err)
				}
				fragment = FinalizeFragment(fragment, mode)

				doc := Wrap(fragment, Page{
					Title: "CV",
					Mode:  mode,
					Links: []Link{{Label: "Download as PDF", Href: "?pdf=1"}},
				})
				got, err := ExtractContainer(doc)
				if err != nil {
					t.Fatalf("ExtractContainer() unexpected error: %v", err)
				}
				if got != fragment {
					t.Errorf("round trip mismatch:\ngot:  %q\nwant: %q", got, fragment)
				}
			})
		}
	}
}

func TestExtractContainer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		want    string
		wantErr error
	}{
		{
			name: "nested divs",
			doc:  `<body><div class="container"><div><p>a</p></div><div>b</div></div><div>after</div></body>`,
			want: `<div><p>a</p></div><div>b</div>`,
		},
		{
			name: "multiple classes",
			doc:  `<div class="wide container dark">x</div>`,
			want: "x",
		},
		{
			name: "skips other divs",
			doc:  `<div class="links">no</div><div id="c" class="container">yes</div>`,
			want: "yes",
		},
		{
			name: "uppercase tags",
			doc:  `<DIV CLASS="container"><P>x</P></DIV>`,
			want: "<P>x</P>",
		},
		{
			name:    "no container",
			doc:     `<div class="other">x</div>`,
			wantErr: ErrNoContainer,
		},
		{
			name:    "unterminated container",
			doc:     `<div class="container"><p>x</p>`,
			wantErr: ErrNoContainer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExtractContainer(tt.doc)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ExtractContainer() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractContainer() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractContainer() = %q, want %q", got, tt.want)
			}
		})
	}
}
