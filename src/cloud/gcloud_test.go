package cloud

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveKeyFile(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/env/key.json")

	if got := ResolveKeyFile("/cfg/key.json"); got != "/cfg/key.json" {
		t.Errorf("configured path must win, got %q", got)
	}
	if got := ResolveKeyFile(""); got != "/env/key.json" {
		t.Errorf("empty config must fall back to env, got %q", got)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if got := ResolveKeyFile(""); got != "" {
		t.Errorf("no key anywhere must mean ambient auth, got %q", got)
	}
}

func TestCleanupKubeconfig(t *testing.T) {
	f, err := os.CreateTemp("", "gantry-kubeconfig-")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	f.Close()

	if err := CleanupKubeconfig(f.Name()); err != nil {
		t.Fatalf("CleanupKubeconfig: %v", err)
	}
	if _, err := os.Stat(f.Name()); !os.IsNotExist(err) {
		t.Error("run kubeconfig must be removed")
	}

	// Re-running a cleanup on an already-removed file is fine.
	if err := CleanupKubeconfig(f.Name()); err != nil {
		t.Errorf("second cleanup: %v", err)
	}
	if err := CleanupKubeconfig(""); err != nil {
		t.Errorf("empty path: %v", err)
	}
}

func TestCleanupKubeconfigRefusesForeignPaths(t *testing.T) {
	real := filepath.Join(t.TempDir(), "kubeconfig")
	if err := os.WriteFile(real, []byte("clusters: []"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := CleanupKubeconfig(real); err == nil {
		t.Fatal("paths outside the run temp dir must be refused")
	}
	if _, err := os.Stat(real); err != nil {
		t.Error("a foreign kubeconfig must survive cleanup")
	}
}
