// Package hints provides actionable hints for common deployment failures.
// Hints are formatted consistently as "\n  hint: <text>" for appending to log messages.
package hints

import (
	"os"
	"strings"

	"github.com/DigitumDei/cvserve/internal/fileutil"
)

// IsInContainer detects if running inside a Docker container or similar.
// Checks for /.dockerenv file which Docker creates automatically.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ciVars are set by the common CI providers.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsInCI reports whether a CI provider variable is set.
func IsInCI() bool {
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// ForBrowserConnect returns hints for browser launch errors.
// Detects CI/Docker environment and suggests relevant environment variables.
func ForBrowserConnect() string {
	var hints []string

	if (IsInCI() || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use an installed Chrome")
	}

	return formatHints(hints)
}

// ForPDFTimeout returns a hint about raising the print timeout.
func ForPDFTimeout() string {
	return format("raise CVSERVE_PDF_TIMEOUT for large documents")
}

// ForSyncTimeout returns a hint about raising the repository sync timeout.
func ForSyncTimeout() string {
	return format("raise CVSERVE_SYNC_TIMEOUT or reduce CVSERVE_DEPTH for large repositories")
}

// ForConfigNotFound returns a hint for a missing options file.
func ForConfigNotFound(path string) string {
	hint := "use --config /path/to/cvserve.yaml or unset CVSERVE_CONFIG"
	if path != "" {
		hint = "create " + path + " or " + hint
	}
	return format(hint)
}

// format creates a single hint string with consistent formatting.
func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

// formatHints joins multiple hints with consistent formatting.
func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
