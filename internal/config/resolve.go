package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// DefaultFilePath is used when no source supplies the file path.
const DefaultFilePath = "cv.md"

// PlaceholderRepoURL is the value shipped in deployment templates.
// Treated as unconfigured.
const PlaceholderRepoURL = "YOUR_GIT_REPO_URL_HERE"

// Reasons carried by ConfigError.
var (
	ErrRepoURLMissing     = errors.New("repository URL is not configured")
	ErrRepoURLPlaceholder = errors.New("repository URL is a placeholder")
	ErrFileOutsideRepo    = errors.New("file path is not inside the repository")
)

// ConfigError reports configuration that prevents serving any document.
// Message is safe to show to the caller.
type ConfigError struct {
	Key     string
	Reason  error
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func (e *ConfigError) Unwrap() error { return e.Reason }

// Source identifies where a resolved value came from.
type Source string

const (
	SourceSecret  Source = "secret"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Settings is the per-request configuration.
type Settings struct {
	RepoURL  string
	FilePath string

	RepoURLSource  Source
	FilePathSource Source
}

// SecretStore reads the latest version of a named secret.
type SecretStore interface {
	AccessSecret(ctx context.Context, projectID, secretID string) (string, error)
}

// Resolver resolves Settings from a secret store and the environment.
type Resolver struct {
	secrets SecretStore
	lookup  LookupFunc
}

// NewResolver creates a Resolver. A nil store disables the secret path;
// a nil lookup reads the process environment.
func NewResolver(secrets SecretStore, lookup LookupFunc) *Resolver {
	if lookup == nil {
		lookup = OSLookup
	}
	return &Resolver{secrets: secrets, lookup: lookup}
}

// key describes one logical setting and where to look for it.
type key struct {
	name     string // direct env var, also used in messages
	secretID string // env var holding the secret id
	fallback string
}

var (
	repoURLKey  = key{name: EnvRepoURL, secretID: EnvRepoURLSecretID}
	filePathKey = key{name: EnvFilePathInRepo, secretID: EnvFilePathSecretID, fallback: DefaultFilePath}
)

// Resolve produces Settings using secret > env > default precedence.
// Returns *ConfigError when the repository URL is unusable or the file
// path escapes the repository.
func (r *Resolver) Resolve(ctx context.Context) (Settings, error) {
	project := r.projectID()

	repoURL, repoSrc := r.resolveKey(ctx, project, repoURLKey)
	filePath, fileSrc := r.resolveKey(ctx, project, filePathKey)

	s := Settings{
		RepoURL:        repoURL,
		FilePath:       filePath,
		RepoURLSource:  repoSrc,
		FilePathSource: fileSrc,
	}

	if repoURL == "" {
		return s, &ConfigError{
			Key:    EnvRepoURL,
			Reason: ErrRepoURLMissing,
			Message: fmt.Sprintf("Error: %s is not configured. Set %s (and ensure %s is available) or %s environment variables.",
				EnvRepoURL, EnvRepoURLSecretID, EnvProjectID, EnvRepoURL),
		}
	}
	if repoURL == PlaceholderRepoURL {
		return s, &ConfigError{
			Key:     EnvRepoURL,
			Reason:  ErrRepoURLPlaceholder,
			Message: fmt.Sprintf("Error: %s is set to a placeholder value. Please configure it correctly.", EnvRepoURL),
		}
	}
	if !filepath.IsLocal(filepath.FromSlash(filePath)) {
		return s, &ConfigError{
			Key:     EnvFilePathInRepo,
			Reason:  ErrFileOutsideRepo,
			Message: fmt.Sprintf("Error: %s %q must be a relative path inside the repository.", EnvFilePathInRepo, filePath),
		}
	}

	return s, nil
}

// projectID returns the first non-empty project variable.
func (r *Resolver) projectID() string {
	for _, name := range []string{EnvProjectID, EnvGoogleCloudProject, EnvGCPProject} {
		if v := r.lookup.get(name); v != "" {
			return v
		}
	}
	return ""
}

func (r *Resolver) resolveKey(ctx context.Context, project string, k key) (string, Source) {
	log := logger.WithField("key", k.name)

	if secretID := r.lookup.get(k.secretID); project != "" && secretID != "" && r.secrets != nil {
		value, err := r.secrets.AccessSecret(ctx, project, secretID)
		switch {
		case err != nil:
			log.WithError(err).Warnf("[config] Error accessing secret %q in project %q, falling back", secretID, project)
		case strings.TrimSpace(value) != "":
			log.WithField("source", SourceSecret).Infof("[config] Using %s from Secret Manager (secret ID: %s)", k.name, secretID)
			return strings.TrimSpace(value), SourceSecret
		default:
			log.Warnf("[config] Secret %q is empty, falling back", secretID)
		}
	}

	if v := r.lookup.get(k.name); v != "" {
		log.WithField("source", SourceEnv).Infof("[config] Using %s from direct environment variable", k.name)
		return v, SourceEnv
	}

	if k.fallback != "" {
		log.WithField("source", SourceDefault).Infof("[config] %s not configured, defaulting to %q", k.name, k.fallback)
		return k.fallback, SourceDefault
	}

	log.WithField("source", SourceNone).Warnf("[config] %s not configured", k.name)
	return "", SourceNone
}
