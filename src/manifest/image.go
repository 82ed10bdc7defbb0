package manifest

import (
	"fmt"
	"strings"
)

// RewriteImage points every container whose image matches imageName (by
// repository basename, any tag) at the resolved per-commit reference.
// Returns how many containers were rewritten. The manifests stay
// author-maintained; only the image tag is pinned to the triggering commit.
func RewriteImage(docs []*Document, imageName, ref string) (int, error) {
	rewritten := 0
	for _, doc := range docs {
		if !IsWorkload(doc.Kind) {
			continue
		}

		changed := false
		for _, c := range podContainers(doc) {
			current, _ := c["image"].(string)
			if current == "" || !imageMatches(current, imageName) {
				continue
			}
			if current != ref {
				c["image"] = ref
				changed = true
			}
			rewritten++
		}

		if changed {
			if err := doc.Remarshal(); err != nil {
				return rewritten, err
			}
		}
	}

	if rewritten == 0 {
		return 0, fmt.Errorf("no container in any workload references image %q", imageName)
	}
	return rewritten, nil
}

// imageMatches reports whether an image reference's repository basename
// equals the configured image name, regardless of registry path or tag.
func imageMatches(ref, imageName string) bool {
	repo := ref
	if i := strings.LastIndex(repo, "@"); i >= 0 {
		repo = repo[:i]
	}
	// Strip the tag, careful not to cut a registry port.
	if i := strings.LastIndex(repo, ":"); i > strings.LastIndex(repo, "/") {
		repo = repo[:i]
	}
	if i := strings.LastIndex(repo, "/"); i >= 0 {
		repo = repo[i+1:]
	}
	return repo == imageName
}
