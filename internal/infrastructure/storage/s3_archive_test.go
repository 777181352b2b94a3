package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hungrytum/franchise-billing/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "franchise-statements",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3StatementArchive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3StatementArchive(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	tests := []struct {
		name    string
		mutate  func(c *config.StorageConfig)
		wantErr string
	}{
		{"missing bucket", func(c *config.StorageConfig) { c.Bucket = "" }, "bucket is required"},
		{"missing access key", func(c *config.StorageConfig) { c.AccessKey = "" }, "access key is required"},
		{"missing secret key", func(c *config.StorageConfig) { c.SecretKey = "" }, "secret key is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testStorageConfig()
			tt.mutate(cfg)
			_, err := NewS3StatementArchive(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config creates archive", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PresignExpiration = 5 * time.Minute
		archive, err := NewS3StatementArchive(cfg)
		require.NoError(t, err)
		assert.Equal(t, "franchise-statements", archive.Bucket())
		assert.Equal(t, 5*time.Minute, archive.presignExpiration)
	})

	t.Run("default presign expiration is 15 minutes", func(t *testing.T) {
		archive, err := NewS3StatementArchive(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, archive.presignExpiration)
	})

	t.Run("empty endpoint targets AWS", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.Endpoint = ""
		archive, err := NewS3StatementArchive(cfg)
		require.NoError(t, err)
		require.NotNil(t, archive)
	})
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"", false, ""},
		{"localhost:9000", false, "http://localhost:9000"},
		{"minio.internal:9000", true, "https://minio.internal:9000"},
		{"https://s3.eu-west-2.amazonaws.com", false, "https://s3.eu-west-2.amazonaws.com"},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestS3StatementArchive_Options(t *testing.T) {
	t.Run("WithLogger sets custom logger", func(t *testing.T) {
		archive, err := NewS3StatementArchive(testStorageConfig(), WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.NotNil(t, archive.logger)
	})

	t.Run("WithPresignExpiration overrides config", func(t *testing.T) {
		archive, err := NewS3StatementArchive(testStorageConfig(), WithPresignExpiration(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, archive.presignExpiration)
	})
}

func TestS3StatementArchive_DownloadURL(t *testing.T) {
	archive, err := NewS3StatementArchive(testStorageConfig())
	require.NoError(t, err)

	t.Run("presigns a GET for the key", func(t *testing.T) {
		key := "reports/3f2c/2026-01-06/Wing Shack-deliveroo-invoice.pdf"
		link, expiresAt, err := archive.DownloadURL(context.Background(), key)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(link, "http://localhost:9000/franchise-statements/reports/3f2c/2026-01-06/"))
		assert.Contains(t, link, "X-Amz-Signature")
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)
	})

	t.Run("empty key", func(t *testing.T) {
		_, _, err := archive.DownloadURL(context.Background(), "")
		assert.ErrorIs(t, err, ErrKeyRequired)
	})
}

func TestS3StatementArchive_EmptyKey(t *testing.T) {
	archive, err := NewS3StatementArchive(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, archive.Put(ctx, "", []byte("x"), "text/csv"), ErrKeyRequired)
	_, err = archive.Get(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
	_, err = archive.Exists(ctx, "")
	assert.ErrorIs(t, err, ErrKeyRequired)
	assert.ErrorIs(t, archive.Delete(ctx, ""), ErrKeyRequired)
}

// Integration tests need an S3-compatible server, e.g.
// STORAGE_INTEGRATION_ENDPOINT=http://localhost:9000 with minioadmin credentials.
func newIntegrationArchive(t *testing.T) *S3StatementArchive {
	t.Helper()
	endpoint := os.Getenv("STORAGE_INTEGRATION_ENDPOINT")
	if endpoint == "" {
		t.Skip("set STORAGE_INTEGRATION_ENDPOINT to run object storage integration tests")
	}
	cfg := &config.StorageConfig{
		Bucket:       "statements-integration",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		Endpoint:     endpoint,
		UsePathStyle: true,
	}
	archive, err := NewS3StatementArchive(cfg, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, archive.EnsureBucket(context.Background()))
	return archive
}

func TestIntegration_PutGetDelete(t *testing.T) {
	archive := newIntegrationArchive(t)
	ctx := context.Background()
	key := "reports/integration/2026-01-06/manual-ubereats-statement.csv"
	body := []byte("Payout period,Sales (incl. VAT)\n06/01/2026 - 12/01/2026,1234.56\n")

	require.NoError(t, archive.Put(ctx, key, body, "text/csv"))

	exists, err := archive.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := archive.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	require.NoError(t, archive.Delete(ctx, key))
	exists, err = archive.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = archive.Get(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
