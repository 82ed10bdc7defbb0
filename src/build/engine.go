package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gantryci/gantry/src/config"
)

// Engine is the interface every build engine implements.
type Engine interface {
	Name() string
	// Detect inspects rootDir and reports whether this engine's manifest
	// is present, returning the manifest path.
	Detect(ctx context.Context, rootDir string) (*Detection, error)
	// Plan resolves the build invocation from config and detection.
	Plan(ctx context.Context, cfg config.BuildConfig, det *Detection) (*Plan, error)
	// Execute runs the build. Fatal on compile/test error, no retry.
	Execute(ctx context.Context, plan *Plan) (*Result, error)
}

// Detection describes what an engine found in the source tree.
type Detection struct {
	Manifest string // dependency manifest path (pom.xml, build.gradle)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Engine{}
)

// Register adds an engine constructor to the global registry.
// Called from init() in each engine file.
func Register(name string, constructor func() Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("build: duplicate engine registration: %s", name))
	}
	registry[name] = constructor
}

// Get returns a new instance of the named engine.
func Get(name string) (Engine, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("build: unknown engine: %s", name)
	}
	return ctor(), nil
}

// DetectManifest resolves the dependency manifest the plan and cache key
// derive from: the configured path when set (relative to rootDir),
// otherwise the engine's own detection. A configured path that does not
// exist is an error, not a fallback.
func DetectManifest(ctx context.Context, e Engine, cfg config.BuildConfig, rootDir string) (*Detection, error) {
	if cfg.Manifest == "" {
		return e.Detect(ctx, rootDir)
	}
	manifest := cfg.Manifest
	if !filepath.IsAbs(manifest) {
		manifest = filepath.Join(rootDir, manifest)
	}
	if _, err := os.Stat(manifest); err != nil {
		return nil, fmt.Errorf("configured build manifest %s: %w", cfg.Manifest, err)
	}
	return &Detection{Manifest: manifest}, nil
}

// All returns sorted names of all registered engines.
func All() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
