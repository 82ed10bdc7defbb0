package pipeline

import (
	"github.com/gantryci/gantry/src/build"
	"github.com/gantryci/gantry/src/config"
	"github.com/gantryci/gantry/src/gitver"
	"github.com/gantryci/gantry/src/image"
	"github.com/gantryci/gantry/src/manifest"
)

// RunContext carries state between stages. Early stages fill it in, later
// stages read from it. One RunContext per run — stages never share state
// any other way.
type RunContext struct {
	RunID   string
	RootDir string
	Verbose bool

	Config *config.Config

	// Set by the source stage.
	Git *gitver.Info

	// Set by the build stage.
	Build *build.Result

	// Set by the image stage. Refs[0] is always the commit-SHA tag.
	Refs []image.Ref

	// Set by the cluster stage: path KUBECONFIG points at for kubectl.
	KubeconfigPath string

	// Set by the deploy stage, after ordering and image rewriting.
	Docs []*manifest.Document
}

// SHARef returns the canonical commit-SHA image reference, or zero Ref if
// the image stage has not run.
func (rc *RunContext) SHARef() image.Ref {
	if len(rc.Refs) == 0 {
		return image.Ref{}
	}
	return rc.Refs[0]
}
