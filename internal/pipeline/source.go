package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// NotFoundError reports that the Markdown source is absent from the
// working copy. Error names the path and is safe to return to callers.
type NotFoundError struct {
	Rel string // path inside the repository, as configured
	Abs string // resolved path on disk
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Markdown file '%s' not found in the repository at '%s'.", e.Rel, e.Abs)
}

func (e *NotFoundError) Unwrap() error { return fs.ErrNotExist }

// ReadSource reads rel from the working copy rooted at root.
// A missing file, or a directory at the path, yields *NotFoundError.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func ReadSource(root, rel string) (string, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", &NotFoundError{Rel: rel, Abs: abs}
	}
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", rel, err)
	}

	data, err := os.ReadFile(abs) // #nosec G304 -- rel is validated to stay inside root
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
