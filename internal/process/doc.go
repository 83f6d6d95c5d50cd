// Package process kills browser process trees left behind by the PDF renderer.
package process
