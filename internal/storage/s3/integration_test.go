//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/costnav/costnav/internal/storage"
)

func TestStoreReadsObjectsFromMinIO(t *testing.T) {
	endpoint := envOr("COSTNAV_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("COSTNAV_TEST_S3_ENDPOINT is not set")
	}

	cfg := Config{
		Endpoint:        endpoint,
		Region:          envOr("COSTNAV_TEST_S3_REGION", "us-east-1"),
		Bucket:          envOr("COSTNAV_TEST_S3_BUCKET", "costnav-it"),
		AccessKeyID:     envOr("COSTNAV_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey: envOr("COSTNAV_TEST_S3_SECRET_KEY", "miniostorage"),
		UseSSL:          false,
		Prefix:          "integration-tests",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	key := "cms/providers.csv"
	payload := []byte("provider_id,provider_name\n330001,TEST HOSPITAL 1\n")
	seedObject(ctx, t, cfg, "integration-tests/"+key, payload)

	store, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stat, err := store.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Size != int64(len(payload)) {
		t.Fatalf("Stat().Size = %d, want %d", stat.Size, len(payload))
	}

	reader, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	readPayload, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll() error = %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("reader.Close() error = %v", err)
	}
	if !bytes.Equal(readPayload, payload) {
		t.Fatalf("Get() payload = %q, want %q", string(readPayload), string(payload))
	}

	if _, err := store.Stat(ctx, "cms/does-not-exist.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() for missing key error = %v, want ErrObjectNotFound", err)
	}
}

// seedObject uploads the fixture directly through the MinIO SDK because the
// store itself is read-only.
func seedObject(ctx context.Context, t *testing.T, cfg Config, key string, payload []byte) {
	t.Helper()

	host, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		t.Fatalf("parseEndpoint() error = %v", err)
	}
	mc, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		t.Fatalf("minio.New() error = %v", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		t.Fatalf("BucketExists() error = %v", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			t.Fatalf("MakeBucket() error = %v", err)
		}
	}
	if _, err := mc.PutObject(ctx, cfg.Bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
