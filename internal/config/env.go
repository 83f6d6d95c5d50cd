package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables read by the resolver and the options overlay.
const (
	EnvProjectID          = "PROJECT_ID"
	EnvGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"
	EnvGCPProject         = "GCP_PROJECT"
	EnvRepoURLSecretID    = "REPO_URL_SECRET_ID"
	EnvFilePathSecretID   = "FILE_PATH_SECRET_ID"
	EnvRepoURL            = "REPO_URL"
	EnvFilePathInRepo     = "FILE_PATH_IN_REPO"

	EnvConfigPath   = "CVSERVE_CONFIG"
	EnvWorkDir      = "CVSERVE_WORKDIR"
	EnvDepth        = "CVSERVE_DEPTH"
	EnvPullRetries  = "CVSERVE_PULL_RETRIES"
	EnvSyncTimeout  = "CVSERVE_SYNC_TIMEOUT"
	EnvPDFTimeout   = "CVSERVE_PDF_TIMEOUT"
	EnvPageSize     = "CVSERVE_PAGE_SIZE"
	EnvDocumentName = "CVSERVE_DOCUMENT_NAME"
	EnvTitle        = "CVSERVE_TITLE"
	EnvContainer    = "CVSERVE_CONTAINER"
	EnvLogLevel     = "LOG_LEVEL"
)

// knownEnvVars lists valid CVSERVE_* environment variables.
// Used to detect typos and warn operators about unknown variables.
var knownEnvVars = map[string]bool{
	EnvConfigPath:   true,
	EnvWorkDir:      true,
	EnvDepth:        true,
	EnvPullRetries:  true,
	EnvSyncTimeout:  true,
	EnvPDFTimeout:   true,
	EnvPageSize:     true,
	EnvDocumentName: true,
	EnvTitle:        true,
	EnvContainer:    true,
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// OSLookup reads from the process environment.
func OSLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// get returns the trimmed value of key, or "" when unset.
func (l LookupFunc) get(key string) string {
	v, ok := l(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// ApplyEnv overlays CVSERVE_* values onto opts. Env beats the config file;
// command-line flags are applied after this by the caller.
// Malformed numbers are reported rather than silently ignored.
func ApplyEnv(opts *Options, lookup LookupFunc) error {
	if lookup == nil {
		lookup = OSLookup
	}

	var errs []error

	if v := lookup.get(EnvWorkDir); v != "" {
		opts.WorkDir = v
	}
	if v := lookup.get(EnvDepth); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidOption, EnvDepth, v))
		} else {
			opts.Depth = n
		}
	}
	if v := lookup.get(EnvPullRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidOption, EnvPullRetries, v))
		} else {
			opts.PullRetries = n
		}
	}
	if v := lookup.get(EnvSyncTimeout); v != "" {
		opts.SyncTimeout = v
	}
	if v := lookup.get(EnvPDFTimeout); v != "" {
		opts.PDF.Timeout = v
	}
	if v := lookup.get(EnvPageSize); v != "" {
		opts.Page.Size = v
	}
	if v := lookup.get(EnvDocumentName); v != "" {
		opts.Document.BaseName = v
	}
	if v := lookup.get(EnvTitle); v != "" {
		opts.Document.Title = v
	}

	return errors.Join(errs...)
}

// UnknownEnvVars returns CVSERVE_* variables in environ that are not recognised.
// Helps catch typos like CVSERVE_WORK_DIR instead of CVSERVE_WORKDIR.
func UnknownEnvVars(environ []string) []string {
	var unknown []string
	for _, env := range environ {
		if !strings.HasPrefix(env, "CVSERVE_") {
			continue
		}
		name, _, _ := strings.Cut(env, "=")
		if !knownEnvVars[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
