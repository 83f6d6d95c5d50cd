// Package pipeline turns a Markdown source file into a complete HTML document.
//
// Stages run in order:
//   - ReadSource loads the file from the working copy
//   - Preprocess normalizes line endings and rewrites ==highlight== and
//     page-break directives into placeholders
//   - Converter.ToFragment renders Markdown via Goldmark
//   - FinalizeFragment resolves placeholders for the requested Mode
//   - Wrap places the fragment in the fixed boilerplate
//
// PDF output is handled by internal/pdf, which prints the ModePrint document.
package pipeline
