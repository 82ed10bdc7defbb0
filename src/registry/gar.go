package registry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const garAPIBase = "https://artifactregistry.googleapis.com/v1"

// GAR implements the Registry interface for Google Artifact Registry.
// Uses the Artifact Registry REST API with a gcloud access token — the
// docker v2 endpoint on {region}-docker.pkg.dev has no creation times,
// which retention needs.
type GAR struct {
	client   httpClient
	location string
}

// NewGAR creates a client for an Artifact Registry docker host
// ({region}-docker.pkg.dev), authenticating with an OAuth access token.
func NewGAR(host, token string) *GAR {
	g := &GAR{
		location: strings.TrimSuffix(host, "-docker.pkg.dev"),
	}
	if token != "" {
		g.client.headers = map[string]string{
			"Authorization": "Bearer " + token,
		}
	}
	return g
}

func (g *GAR) Provider() string { return "gar" }

// parent converts "{project}/{repository}/{image}" into the API resource
// prefix for the package.
func (g *GAR) parent(repo string) (string, error) {
	parts := strings.SplitN(repo, "/", 3)
	if len(parts) != 3 {
		return "", fmt.Errorf("gar: repo must be project/repository/image, got %q", repo)
	}
	return fmt.Sprintf("projects/%s/locations/%s/repositories/%s/packages/%s",
		parts[0], g.location, parts[1], url.PathEscape(parts[2])), nil
}

func (g *GAR) ListTags(ctx context.Context, repo string) ([]TagInfo, error) {
	parent, err := g.parent(repo)
	if err != nil {
		return nil, err
	}

	// Version create times first, then join tags onto them.
	created := make(map[string]time.Time)
	pageURL := fmt.Sprintf("%s/%s/versions?pageSize=1000", garAPIBase, parent)
	for pageURL != "" {
		var page struct {
			Versions []struct {
				Name       string    `json:"name"`
				CreateTime time.Time `json:"createTime"`
			} `json:"versions"`
			NextPageToken string `json:"nextPageToken"`
		}
		if _, err := g.client.doJSON(ctx, "GET", pageURL, nil, &page); err != nil {
			return nil, fmt.Errorf("gar: listing versions for %s: %w", repo, err)
		}
		for _, v := range page.Versions {
			created[v.Name] = v.CreateTime
		}
		pageURL = nextPage(fmt.Sprintf("%s/%s/versions?pageSize=1000", garAPIBase, parent), page.NextPageToken)
	}

	var tags []TagInfo
	pageURL = fmt.Sprintf("%s/%s/tags?pageSize=1000", garAPIBase, parent)
	for pageURL != "" {
		var page struct {
			Tags []struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"tags"`
			NextPageToken string `json:"nextPageToken"`
		}
		if _, err := g.client.doJSON(ctx, "GET", pageURL, nil, &page); err != nil {
			return nil, fmt.Errorf("gar: listing tags for %s: %w", repo, err)
		}
		for _, t := range page.Tags {
			tags = append(tags, TagInfo{
				Name:      tagBasename(t.Name),
				Digest:    versionDigest(t.Version),
				CreatedAt: created[t.Version],
			})
		}
		pageURL = nextPage(fmt.Sprintf("%s/%s/tags?pageSize=1000", garAPIBase, parent), page.NextPageToken)
	}

	return tags, nil
}

func (g *GAR) DeleteTag(ctx context.Context, repo string, tag string) error {
	parent, err := g.parent(repo)
	if err != nil {
		return err
	}

	deleteURL := fmt.Sprintf("%s/%s/tags/%s", garAPIBase, parent, url.PathEscape(tag))
	if _, err := g.client.doJSON(ctx, "DELETE", deleteURL, nil, nil); err != nil {
		return fmt.Errorf("gar: deleting tag %s:%s: %w", repo, tag, err)
	}
	return nil
}

// tagBasename extracts the tag name from its full resource name.
func tagBasename(resource string) string {
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		return resource[i+1:]
	}
	return resource
}

// versionDigest extracts the sha256 digest from a version resource name.
func versionDigest(resource string) string {
	if i := strings.LastIndex(resource, "/"); i >= 0 {
		return resource[i+1:]
	}
	return resource
}

func nextPage(base, token string) string {
	if token == "" {
		return ""
	}
	return base + "&pageToken=" + url.QueryEscape(token)
}
