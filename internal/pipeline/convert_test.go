package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGoldmarkConverter_ToFragment(t *testing.T) {
	t.Parallel()

	conv := NewGoldmarkConverter()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading without generated id",
			input:    "# Title\n\nHello",
			contains: []string{"<h1>Title</h1>", "<p>Hello</p>"},
		},
		{
			name:     "table",
			input:    "| Skill | Years |\n|---|---|\n| Go | 8 |\n",
			contains: []string{"<table>", "<th>Skill</th>", "<td>Go</td>"},
		},
		{
			name:     "strikethrough",
			input:    "~~old~~ new",
			contains: []string{"<del>old</del>"},
		},
		{
			name:     "fenced code highlighted with classes",
			input:    "```go\nfunc main() {}\n```\n",
			contains: []string{`class="chroma"`, "<span class="},
		},
		{
			name:     "heading attributes",
			input:    "## Experience {#experience .section}\n",
			contains: []string{`id="experience"`, `class="section"`, ">Experience</h2>"},
		},
		{
			name:     "footnote",
			input:    "Claim[^1]\n\n[^1]: Source\n",
			contains: []string{`class="footnotes"`, "Source"},
		},
		{
			name:     "raw html omitted",
			input:    "<script>alert(1)</script>\n\nText",
			contains: []string{"<p>Text</p>"},
			excludes: []string{"<script>"},
		},
		{
			name:     "soft line break is not hard wrap",
			input:    "line one\nline two",
			contains: []string{"line one\nline two"},
			excludes: []string{"<br"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := conv.ToFragment(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ToFragment() unexpected error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("ToFragment() missing %q in:\n%s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("ToFragment() should not contain %q in:\n%s", bad, got)
				}
			}
		})
	}
}

func TestGoldmarkConverter_Deterministic(t *testing.T) {
	t.Parallel()

	conv := NewGoldmarkConverter()
	input := "# Jane Doe\n\n## Skills\n\n- Go\n- ==Kubernetes==\n\n```yaml\nkey: value\n```\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"
	page := Page{Title: "CV", Lang: "en", Mode: ModeScreen, Links: []Link{{Label: "Download as PDF", Href: "/?pdf=1"}}}

	first, err := Render(context.Background(), conv, input, page)
	if err != nil {
		t.Fatalf("Render() unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := Render(context.Background(), conv, input, page)
		if err != nil {
			t.Fatalf("Render() unexpected error: %v", err)
		}
		if got != first {
			t.Fatalf("Render() run %d differs from first run", i+2)
		}
	}
}

func TestGoldmarkConverter_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGoldmarkConverter().ToFragment(ctx, "# Title")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ToFragment() error = %v, want context.Canceled", err)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	conv := NewGoldmarkConverter()
	input := "# Title\n\nA ==key== point\n\n<!-- pagebreak -->\n\nB"

	t.Run("screen", func(t *testing.T) {
		t.Parallel()
		got, err := Render(context.Background(), conv, input, Page{Title: "CV", Mode: ModeScreen})
		if err != nil {
			t.Fatalf("Render() unexpected error: %v", err)
		}
		if !strings.Contains(got, "<mark>key</mark>") {
			t.Error("Render() missing <mark>")
		}
		if strings.Contains(got, `<div class="page-break">`) {
			t.Error("screen Render() should not contain page-break div")
		}
		if strings.Contains(got, PageBreakPlaceholder) {
			t.Error("Render() left page-break placeholder")
		}
	})

	t.Run("print", func(t *testing.T) {
		t.Parallel()
		got, err := Render(context.Background(), conv, input, Page{Title: "CV", Mode: ModePrint})
		if err != nil {
			t.Fatalf("Render() unexpected error: %v", err)
		}
		if !strings.Contains(got, `<div class="page-break"></div>`) {
			t.Error("print Render() missing page-break div")
		}
	})
}

func TestRender_CodeKeepsOperators(t *testing.T) {
	t.Parallel()

	conv := NewGoldmarkConverter()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "fenced block", input: "```go\nif a == b || c == d {\n}\n```\n", want: `<span class="o">==</span>`},
		{name: "code span", input: "Use `x == 1 || y == 2` here.", want: "<code>x == 1 || y == 2</code>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Render(context.Background(), conv, tt.input, Page{})
			if err != nil {
				t.Fatalf("Render() unexpected error: %v", err)
			}
			if strings.Contains(got, "<mark>") {
				t.Errorf("Render() injected <mark> into code:\n%s", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Render() missing %q", tt.want)
			}
		})
	}
}

// failingConverter returns a fixed error.
type failingConverter struct{ err error }

func (f failingConverter) ToFragment(context.Context, string) (string, error) { return "", f.err }

func TestRender_ConverterError(t *testing.T) {
	t.Parallel()

	_, err := Render(context.Background(), failingConverter{err: ErrHTMLConversion}, "# x", Page{})
	if !errors.Is(err, ErrHTMLConversion) {
		t.Errorf("Render() error = %v, want ErrHTMLConversion", err)
	}
}
