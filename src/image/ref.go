// Package image builds and pushes the container image via docker buildx.
// The image reference format is fixed by the pipeline contract:
// {region}-docker.pkg.dev/{project}/{repository}/{name}:{sha}.
package image

import (
	"fmt"
	"strings"

	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/gitver"
)

// Ref is a fully qualified container image reference.
type Ref struct {
	Registry   string // {region}-docker.pkg.dev
	Project    string
	Repository string
	Name       string
	Tag        string
}

// String renders the full reference.
func (r Ref) String() string {
	return fmt.Sprintf("%s/%s/%s/%s:%s", r.Registry, r.Project, r.Repository, r.Name, r.Tag)
}

// Repo returns the repository path without registry host or tag,
// as registry APIs expect it.
func (r Ref) Repo() string {
	return fmt.Sprintf("%s/%s/%s", r.Project, r.Repository, r.Name)
}

// Resolve builds the image reference set for a commit. The first reference
// is always the commit-SHA tag (unique per commit, never overwritten);
// extra_tags templates follow.
func Resolve(project, region string, cfg config.ImageConfig, info *gitver.Info) ([]Ref, error) {
	if info == nil || info.SHA == "" {
		return nil, fmt.Errorf("image: no commit metadata, cannot resolve tag")
	}

	base := Ref{
		Registry:   RegistryHost(region),
		Project:    project,
		Repository: cfg.Repository,
		Name:       cfg.Name,
		Tag:        info.SHA,
	}

	refs := []Ref{base}
	seen := map[string]bool{base.Tag: true}

	for _, tmpl := range cfg.ExtraTags {
		tag := gitver.ResolveTemplate(tmpl, info)
		if tag == "" || strings.Contains(tag, "{") || seen[tag] {
			continue // unresolved or duplicate template, skip
		}
		extra := base
		extra.Tag = tag
		refs = append(refs, extra)
		seen[tag] = true
	}

	return refs, nil
}

// RegistryHost returns the Artifact Registry docker host for a region.
func RegistryHost(region string) string {
	return fmt.Sprintf("%s-docker.pkg.dev", region)
}
