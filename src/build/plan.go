package build

import "time"

// Plan is the resolved execution plan for a package build.
type Plan struct {
	Tool     string   // engine name
	Command  string   // external binary (mvn, gradle)
	Args     []string // full argument list
	Dir      string   // working directory
	Manifest string   // dependency manifest the cache key derives from
	Artifact string   // glob matching the packaged output
	CacheDir string   // dependency cache location, "" = cache disabled
	Env      []string // extra environment (KEY=VALUE)
}

// Result captures the outcome of a build.
type Result struct {
	Tool      string
	Status    string // success, failed
	Duration  time.Duration
	Artifact  string // resolved artifact path
	CacheHit  bool   // dependency cache was restored
	CacheSkip bool   // cache disabled or unavailable (best-effort)
	Error     error
}
