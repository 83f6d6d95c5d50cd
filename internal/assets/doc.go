// Package assets provides the stylesheets embedded in every served document.
//
// Styles are plain CSS files under styles/, compiled into the binary with
// go:embed and addressed by name without the .css extension:
//
//	styles/
//	├── base.css     # Typography and layout shared by both modes
//	├── screen.css   # Browser view: the links block
//	└── print.css    # PDF input: page breaks, no shadows or background
//
// Asset names are validated to prevent path traversal.
package assets
