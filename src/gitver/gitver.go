// Package gitver resolves commit metadata and version info from the
// repository. It is the shared foundation for image tag resolution: the
// pipeline's core invariant is that the image tag equals the triggering
// commit's SHA.
package gitver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info holds resolved commit and version metadata.
type Info struct {
	SHA     string // short SHA (7 chars) — the image tag
	FullSHA string
	Branch  string // empty on detached HEAD

	Version    string // nearest semver tag without the v prefix, or 0.0.0-dev+SHA
	Major      string
	Minor      string
	Patch      string
	Prerelease string
	IsRelease  bool // true if HEAD is exactly at a semver tag

	Dirty bool // uncommitted changes in the worktree
}

// Detect resolves commit metadata from the repository at rootDir.
func Detect(rootDir string) (*Info, error) {
	repo, err := git.PlainOpen(rootDir)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	info := &Info{
		FullSHA: head.Hash().String(),
		SHA:     head.Hash().String()[:7],
	}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	if dirty, dErr := worktreeDirty(repo); dErr == nil {
		info.Dirty = dirty
	}

	tag, exact := nearestSemverTag(repo, head.Hash())
	if tag == nil {
		info.Version = fmt.Sprintf("0.0.0-dev+%s", info.SHA)
		info.Major, info.Minor, info.Patch = "0", "0", "0"
		return info, nil
	}

	info.Major = fmt.Sprintf("%d", tag.Major())
	info.Minor = fmt.Sprintf("%d", tag.Minor())
	info.Patch = fmt.Sprintf("%d", tag.Patch())
	info.Prerelease = tag.Prerelease()
	info.IsRelease = exact
	info.Version = tag.String()
	if !exact {
		info.Version = fmt.Sprintf("%s-dev+%s", tag.String(), info.SHA)
	}

	return info, nil
}

// worktreeDirty reports whether the worktree has uncommitted changes.
func worktreeDirty(repo *git.Repository) (bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

// nearestSemverTag returns the highest semver tag in the repository and
// whether it points at head. go-git has no `describe`, so "nearest" is
// approximated as the highest version — tags here are release markers,
// not arbitrary refs.
func nearestSemverTag(repo *git.Repository, head plumbing.Hash) (*semver.Version, bool) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, false
	}
	defer iter.Close()

	var best *semver.Version
	exact := false

	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		name := strings.TrimPrefix(ref.Name().Short(), "v")
		v, vErr := semver.StrictNewVersion(name)
		if vErr != nil {
			return nil // non-semver tag, ignore
		}

		hash := ref.Hash()
		if obj, tErr := repo.TagObject(ref.Hash()); tErr == nil {
			hash = obj.Target // annotated tag
		}

		if best == nil || v.GreaterThan(best) {
			best = v
			exact = hash == head
		}
		return nil
	})

	return best, exact
}
