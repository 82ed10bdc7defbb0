package registry

import (
	"context"
	"encoding/base64"
	"fmt"
)

// Generic implements the Registry interface for plain docker registry v2
// APIs. The v2 API exposes no tag timestamps, so retention against a
// generic registry only supports keep_last. Tag deletion goes through the
// manifest digest, which requires the registry to allow deletes.
type Generic struct {
	client httpClient
	base   string
}

func NewGeneric(host, user, pass string) *Generic {
	g := &Generic{
		base: "https://" + host,
	}
	if user != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		g.client.headers = map[string]string{
			"Authorization": "Basic " + auth,
		}
	}
	return g
}

func (g *Generic) Provider() string { return "generic" }

func (g *Generic) ListTags(ctx context.Context, repo string) ([]TagInfo, error) {
	var resp struct {
		Tags []string `json:"tags"`
	}
	url := fmt.Sprintf("%s/v2/%s/tags/list", g.base, repo)
	if _, err := g.client.doJSON(ctx, "GET", url, nil, &resp); err != nil {
		return nil, fmt.Errorf("generic: listing tags for %s: %w", repo, err)
	}

	tags := make([]TagInfo, 0, len(resp.Tags))
	for _, t := range resp.Tags {
		tags = append(tags, TagInfo{Name: t})
	}
	return tags, nil
}

func (g *Generic) DeleteTag(ctx context.Context, repo string, tag string) error {
	// Resolve the tag to its manifest digest, then delete the manifest.
	digest, err := g.resolveDigest(ctx, repo, tag)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v2/%s/manifests/%s", g.base, repo, digest)
	if _, err := g.client.doJSON(ctx, "DELETE", url, nil, nil); err != nil {
		return fmt.Errorf("generic: deleting %s:%s: %w", repo, tag, err)
	}
	return nil
}

func (g *Generic) resolveDigest(ctx context.Context, repo, tag string) (string, error) {
	url := fmt.Sprintf("%s/v2/%s/manifests/%s", g.base, repo, tag)

	headers := map[string]string{
		"Accept": "application/vnd.docker.distribution.manifest.v2+json",
	}
	for k, v := range g.client.headers {
		headers[k] = v
	}
	head := httpClient{headers: headers}

	resp, err := head.doJSON(ctx, "HEAD", url, nil, nil)
	if err != nil {
		return "", fmt.Errorf("generic: resolving digest for %s:%s: %w", repo, tag, err)
	}
	digest := resp.Header.Get("Docker-Content-Digest")
	if digest == "" {
		return "", fmt.Errorf("generic: registry returned no digest for %s:%s", repo, tag)
	}
	return digest, nil
}
