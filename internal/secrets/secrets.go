// Package secrets reads configuration secrets from Google Secret Manager.
package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/api/option"
	secretmanager "google.golang.org/api/secretmanager/v1"
)

// ErrSecretNotFound is returned by StaticStore for unknown secrets.
var ErrSecretNotFound = errors.New("secret not found")

// versionName builds the resource name of a secret's latest version.
func versionName(projectID, secretID string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretID)
}

// GCPStore reads secrets through the Secret Manager REST API.
// The service client is created on first use, so instances that never
// configure a secret id never authenticate.
type GCPStore struct {
	opts []option.ClientOption

	mu  sync.Mutex
	svc *secretmanager.Service
}

// NewGCPStore creates a GCPStore. Options are passed to the API client
// (e.g. option.WithEndpoint in tests); application default credentials
// are used otherwise.
func NewGCPStore(opts ...option.ClientOption) *GCPStore {
	return &GCPStore{opts: opts}
}

func (s *GCPStore) service(ctx context.Context) (*secretmanager.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.svc != nil {
		return s.svc, nil
	}
	svc, err := secretmanager.NewService(ctx, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	s.svc = svc
	return svc, nil
}

// AccessSecret returns the decoded payload of the latest secret version.
func (s *GCPStore) AccessSecret(ctx context.Context, projectID, secretID string) (string, error) {
	svc, err := s.service(ctx)
	if err != nil {
		return "", err
	}

	name := versionName(projectID, secretID)
	resp, err := svc.Projects.Secrets.Versions.Access(name).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("accessing %s: %w", name, err)
	}
	if resp.Payload == nil {
		return "", fmt.Errorf("accessing %s: empty payload", name)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Payload.Data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", name, err)
	}
	return string(data), nil
}

// StaticStore serves secrets from memory, keyed by "<project>/<secret>".
type StaticStore map[string]string

// AccessSecret returns the stored value or ErrSecretNotFound.
func (s StaticStore) AccessSecret(_ context.Context, projectID, secretID string) (string, error) {
	v, ok := s[projectID+"/"+secretID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, versionName(projectID, secretID))
	}
	return v, nil
}
