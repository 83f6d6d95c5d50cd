package pipeline

import (
	"regexp"
	"strings"
)

// Highlight and page-break placeholders use Unicode Private Use Area
// characters. They pass through Goldmark unchanged (no WithUnsafe needed)
// and are resolved by FinalizeFragment.
const (
	MarkStartPlaceholder = "\uE000" // U+E000: Private Use Area start
	MarkEndPlaceholder   = "\uE001" // U+E001: Private Use Area end
	PageBreakPlaceholder = "\uE002" // U+E002: page break
)

var (
	crlfOrCR = regexp.MustCompile(`\r\n?`)

	// Three or more newlines, i.e. two or more blank lines
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)

	// Highlight syntax ==text==
	highlightPattern = regexp.MustCompile(`==(.*?)==`)

	// PDF-only page break: "<!-- pagebreak -->" or "\pagebreak" alone on a line
	pageBreakLine = regexp.MustCompile(`^\s*(?:<!--\s*pagebreak\s*-->|\\pagebreak)\s*$`)

	fenceOpen = regexp.MustCompile("^\\s{0,3}(`{3,}|~{3,})")
)

// Preprocess applies all source transformations ahead of Markdown conversion.
// Fenced code blocks and inline code spans are passed through verbatim.
func Preprocess(content string) string {
	content = normalizeLineEndings(content)
	return mapOutsideFences(content, func(prose string) string {
		prose = convertPageBreaks(prose)
		prose = convertHighlights(prose)
		return compressBlankLines(prose)
	})
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// mapOutsideFences calls fn on each run of lines outside fenced code blocks
// and leaves fence lines and their contents untouched. An unclosed fence
// extends to the end of the content.
func mapOutsideFences(content string, fn func(string) string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	var (
		prose []string
		fence string
	)

	flush := func() {
		if len(prose) > 0 {
			out = append(out, fn(strings.Join(prose, "\n")))
			prose = prose[:0]
		}
	}

	for _, line := range lines {
		if fence != "" {
			out = append(out, line)
			if closesFence(line, fence) {
				fence = ""
			}
			continue
		}
		if m := fenceOpen.FindStringSubmatch(line); m != nil {
			flush()
			fence = m[1]
			out = append(out, line)
			continue
		}
		prose = append(prose, line)
	}
	flush()

	return strings.Join(out, "\n")
}

// closesFence reports whether line closes a fence opened with open: the same
// character, at least as long, nothing but whitespace around it.
func closesFence(line, open string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= len(open) && strings.TrimLeft(trimmed, open[:1]) == ""
}

// compressBlankLines collapses runs of blank lines into a single one.
func compressBlankLines(content string) string {
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// convertHighlights transforms ==text== to placeholder markers outside
// backtick code spans.
func convertHighlights(content string) string {
	var b strings.Builder
	rest := content
	for {
		open := strings.IndexByte(rest, '`')
		if open < 0 {
			b.WriteString(highlightPattern.ReplaceAllString(rest, MarkStartPlaceholder+"$1"+MarkEndPlaceholder))
			return b.String()
		}
		b.WriteString(highlightPattern.ReplaceAllString(rest[:open], MarkStartPlaceholder+"$1"+MarkEndPlaceholder))

		n := backtickRun(rest[open:])
		spanEnd := open + n
		if end := closingBackticks(rest[spanEnd:], n); end >= 0 {
			spanEnd += end + n
		}
		// An opener without a matching closer is literal text.
		b.WriteString(rest[open:spanEnd])
		rest = rest[spanEnd:]
	}
}

// backtickRun returns the number of leading backticks in s.
func backtickRun(s string) int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	return n
}

// closingBackticks returns the offset of the first run of exactly n
// backticks in s, or -1.
func closingBackticks(s string, n int) int {
	for pos := 0; pos < len(s); {
		i := strings.IndexByte(s[pos:], '`')
		if i < 0 {
			return -1
		}
		run := backtickRun(s[pos+i:])
		if run == n {
			return pos + i
		}
		pos += i + run
	}
	return -1
}

// convertPageBreaks replaces page-break directive lines with a placeholder
// paragraph. Callers pass text that is already outside fenced code.
func convertPageBreaks(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if pageBreakLine.MatchString(line) {
			lines[i] = "\n" + PageBreakPlaceholder + "\n"
		}
	}
	return strings.Join(lines, "\n")
}

// FinalizeFragment resolves placeholders left by Preprocess. Highlights
// become <mark>; page breaks become a page-break div in ModePrint and are
// dropped in ModeScreen.
func FinalizeFragment(fragment string, mode Mode) string {
	fragment = ConvertMarkPlaceholders(fragment)

	pageBreak := ""
	if mode == ModePrint {
		pageBreak = "<div class=\"page-break\"></div>\n"
	}
	fragment = strings.ReplaceAll(fragment, "<p>"+PageBreakPlaceholder+"</p>\n", pageBreak)
	return strings.ReplaceAll(fragment, PageBreakPlaceholder, "")
}

// ConvertMarkPlaceholders converts placeholder markers to <mark> tags.
func ConvertMarkPlaceholders(content string) string {
	return strings.ReplaceAll(
		strings.ReplaceAll(content, MarkStartPlaceholder, "<mark>"),
		MarkEndPlaceholder, "</mark>",
	)
}
