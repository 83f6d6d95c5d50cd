// Package pdf prints HTML documents to PDF with headless Chrome (go-rod).
//
// One browser is launched on first use and shared by every render until
// Close. Each render opens its own page, so concurrent requests on a warm
// instance do not wait on each other beyond the page load.
package pdf
