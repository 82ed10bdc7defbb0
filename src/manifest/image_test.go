package manifest

import (
	"strings"
	"testing"
)

func TestRewriteImage(t *testing.T) {
	docs := parseAll(t, deploymentYAML, serviceYAML)
	ref := "europe-west1-docker.pkg.dev/acme/services/orders:abc1234"

	n, err := RewriteImage(docs, "orders", ref)
	if err != nil {
		t.Fatalf("RewriteImage: %v", err)
	}
	if n != 1 {
		t.Errorf("rewritten = %d, want 1", n)
	}
	if !strings.Contains(string(docs[0].Raw), ref) {
		t.Error("deployment Raw not rewritten to the pinned reference")
	}
	if strings.Contains(string(docs[0].Raw), "orders:latest") {
		t.Error("old image reference still present")
	}
}

func TestRewriteImageAlreadyPinned(t *testing.T) {
	pinned := strings.Replace(deploymentYAML,
		"image: orders:latest",
		"image: europe-west1-docker.pkg.dev/acme/services/orders:abc1234", 1)
	docs := parseAll(t, pinned)

	n, err := RewriteImage(docs, "orders", "europe-west1-docker.pkg.dev/acme/services/orders:abc1234")
	if err != nil {
		t.Fatalf("RewriteImage: %v", err)
	}
	if n != 1 {
		t.Errorf("rewritten = %d, want the matching container counted", n)
	}
}

func TestRewriteImageIgnoresOtherContainers(t *testing.T) {
	sidecar := strings.Replace(deploymentYAML,
		"image: orders:latest",
		"image: orders:latest\n        - name: proxy\n          image: envoy:v1.30", 1)
	docs := parseAll(t, sidecar)

	_, err := RewriteImage(docs, "orders", "r.dev/acme/services/orders:abc")
	if err != nil {
		t.Fatalf("RewriteImage: %v", err)
	}
	if !strings.Contains(string(docs[0].Raw), "envoy:v1.30") {
		t.Error("unrelated sidecar image must stay untouched")
	}
}

func TestRewriteImageNoMatchIsError(t *testing.T) {
	docs := parseAll(t, deploymentYAML)
	if _, err := RewriteImage(docs, "billing", "r.dev/acme/services/billing:abc"); err == nil {
		t.Fatal("expected error when no container references the image")
	}
}

func TestImageMatches(t *testing.T) {
	tests := []struct {
		ref  string
		name string
		want bool
	}{
		{"orders:latest", "orders", true},
		{"orders", "orders", true},
		{"registry.local:5000/team/orders:v1", "orders", true},
		{"r.dev/acme/services/orders@sha256:deadbeef", "orders", true},
		{"billing:latest", "orders", false},
		{"team/orders-worker:v1", "orders", false},
	}
	for _, tt := range tests {
		if got := imageMatches(tt.ref, tt.name); got != tt.want {
			t.Errorf("imageMatches(%q, %q) = %v, want %v", tt.ref, tt.name, got, tt.want)
		}
	}
}
