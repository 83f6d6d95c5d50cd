package gitsync

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Sentinel errors for synchronizer state checks.
var (
	ErrOriginMismatch = errors.New("origin URL does not match requested URL")
	ErrNoOrigin       = errors.New("repository has no origin URL")
	ErrLockTimeout    = errors.New("timed out waiting for working copy lock")
)

// Outcome is the terminal state of one Sync call.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCloned
	OutcomeUpdated
	OutcomeRecloned
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCloned:
		return "cloned"
	case OutcomeUpdated:
		return "updated"
	case OutcomeRecloned:
		return "recloned"
	default:
		return "none"
	}
}

// SyncError reports a git operation the synchronizer could not recover from.
// Output holds the remote's progress/sideband text captured during the
// operation. URLs in Error and Diagnostic have credentials stripped.
type SyncError struct {
	Op     string // "clone" or "remove"
	URL    string
	Output string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("git %s %s: %s", e.Op, RedactURL(e.URL), e.redact(e.Err.Error()))
}

func (e *SyncError) Unwrap() error { return e.Err }

// Diagnostic returns the text shown to callers: captured remote output
// followed by the underlying error.
func (e *SyncError) Diagnostic() string {
	var b strings.Builder
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString(e.redact(out))
		b.WriteString("\n")
	}
	b.WriteString(e.redact(e.Err.Error()))
	return b.String()
}

func (e *SyncError) redact(s string) string {
	if e.URL == "" {
		return s
	}
	if clean := RedactURL(e.URL); clean != e.URL {
		return strings.ReplaceAll(s, e.URL, clean)
	}
	return s
}

// RedactURL strips user info (tokens, passwords) from a repository URL.
// Values that do not parse as URLs with a scheme are returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}
