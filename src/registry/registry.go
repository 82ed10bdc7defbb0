// Package registry provides an abstraction over container registries
// (Google Artifact Registry, Docker Hub, generic v2) for tag listing,
// existence checks, and retention pruning. The pipeline itself pushes via
// docker; this package covers the API-side operations the push path can't.
package registry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Registry is the interface every registry provider implements.
type Registry interface {
	// Provider returns the registry vendor name.
	Provider() string

	// ListTags returns all tags for a repository.
	ListTags(ctx context.Context, repo string) ([]TagInfo, error)

	// DeleteTag removes a single tag from a repository.
	DeleteTag(ctx context.Context, repo string, tag string) error
}

// TagInfo describes a single tag in a container registry.
type TagInfo struct {
	Name      string
	Digest    string
	CreatedAt time.Time
}

// New creates a registry client for the given provider.
//
//	gar:       host is {region}-docker.pkg.dev; token is a gcloud access token
//	dockerhub: credentials from the env prefix (PREFIX_USER/PREFIX_PASS)
//	generic:   v2 API with basic auth from the env prefix
func New(provider, host, credentialPrefix, token string) (Registry, error) {
	user, pass := resolveCredentials(credentialPrefix)

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gar", "":
		return NewGAR(host, token), nil
	case "dockerhub":
		return NewDockerHub(user, pass), nil
	case "generic":
		return NewGeneric(host, user, pass), nil
	default:
		return nil, fmt.Errorf("registry: unsupported provider %q (valid: gar, dockerhub, generic)", provider)
	}
}

// TagExists reports whether a tag is already present in the repository.
// The pipeline uses this to keep commit-SHA tags immutable: an existing
// tag is never overwritten.
func TagExists(ctx context.Context, reg Registry, repo, tag string) (bool, error) {
	tags, err := reg.ListTags(ctx, repo)
	if err != nil {
		return false, err
	}
	for _, t := range tags {
		if t.Name == tag {
			return true, nil
		}
	}
	return false, nil
}

// resolveCredentials reads USER and PASS env vars using the configured
// prefix. Returns empty strings if no prefix or vars are unset.
func resolveCredentials(prefix string) (user, pass string) {
	if prefix == "" {
		return "", ""
	}
	p := strings.ToUpper(prefix)
	return os.Getenv(p + "_USER"), os.Getenv(p + "_PASS")
}
