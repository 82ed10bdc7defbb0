// Package artifact archives the packaged build output to an S3-compatible
// object store. The build artifact is otherwise ephemeral — produced once
// per run, consumed by the image build, discarded after. Archival failures
// never fail the run.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gantryci/gantry/src/config"
)

// Archiver uploads build artifacts keyed by run ID and commit SHA.
type Archiver struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewArchiver creates an archiver from config. Credentials come from the
// configured env prefix (PREFIX_ACCESS_KEY / PREFIX_SECRET_KEY).
func NewArchiver(cfg config.ArchiveConfig) (*Archiver, error) {
	if !cfg.Active() {
		return nil, fmt.Errorf("artifact: archival is not configured")
	}

	accessKey, secretKey := resolveKeys(cfg.Credentials)
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: cfg.UseTLS(),
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: connecting to %s: %w", cfg.Endpoint, err)
	}

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload stores the artifact under {prefix}/{sha}/{runID}/{basename}.
// Returns the object key.
func (a *Archiver) Upload(ctx context.Context, artifactPath, sha, runID string) (string, error) {
	info, err := os.Stat(artifactPath)
	if err != nil {
		return "", fmt.Errorf("artifact: %w", err)
	}

	key := path.Join(a.prefix, sha, runID, filepath.Base(artifactPath))
	_, err = a.client.FPutObject(ctx, a.bucket, key, artifactPath, minio.PutObjectOptions{
		ContentType: contentType(artifactPath),
	})
	if err != nil {
		return "", fmt.Errorf("artifact: uploading %s (%d bytes): %w", key, info.Size(), err)
	}
	return key, nil
}

func contentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".jar", ".war", ".ear":
		return "application/java-archive"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

func resolveKeys(prefix string) (access, secret string) {
	if prefix == "" {
		return "", ""
	}
	p := strings.ToUpper(prefix)
	return os.Getenv(p + "_ACCESS_KEY"), os.Getenv(p + "_SECRET_KEY")
}
