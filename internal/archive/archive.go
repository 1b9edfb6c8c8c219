// Package archive uploads the final descriptor snapshot and run log of each
// ingestion run to an object store, when one is configured. Archive failures
// never fail a run.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/als-computing/ingest-core/internal/descriptor"
)

// Config selects the archive target. Empty Endpoint or Bucket disables
// archiving.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// Enabled reports whether the config points at a usable target.
func (c Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Archive writes run artifacts to a MinIO/S3 bucket.
type Archive struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates an archive from config; returns (nil, nil) when disabled.
func New(cfg Config) (*Archive, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive client: %w", err)
	}
	return &Archive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// StoreRun uploads the descriptor snapshot and run log under
// <prefix>/<dataset-slug>/<run-id>.*.
func (a *Archive) StoreRun(ctx context.Context, runID string, d *descriptor.Descriptor, logLines []string) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	slug := d.Tracker.TrackerDatasetID
	if slug == "" {
		slug = "unlinked"
	}

	snapshot, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := a.put(ctx, a.key(slug, runID+".descriptor.json"), snapshot, "application/json"); err != nil {
		return err
	}

	log := []byte(strings.Join(logLines, "\n") + "\n")
	return a.put(ctx, a.key(slug, runID+".log"), log, "text/plain")
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("bucket check: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

func (a *Archive) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (a *Archive) key(parts ...string) string {
	all := append([]string{a.prefix}, parts...)
	return strings.Trim(strings.Join(all, "/"), "/")
}
