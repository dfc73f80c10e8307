package dataset

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteCatalog = `[
  {"category": "milk", "name": "Whole milk", "brand": "Farm", "weight": "1 l",
   "prices": {"oda": 19.9}, "nutrition": {"energy_kcal": 64, "protein": 3.4, "carbohydrate": 4.7, "fat": 3.5}}
]`

func testConfig(dir, url string) *config.Config {
	return &config.Config{
		Catalog: config.CatalogConfig{URL: url},
		Data: config.DataConfig{
			Dir:          dir,
			CatalogPath:  filepath.Join(dir, "catalog.json"),
			MetadataPath: filepath.Join(dir, "metadata.json"),
			LockFile:     filepath.Join(dir, "refresh.lock"),
		},
	}
}

func newTestManager(cfg *config.Config) *Manager {
	m := NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.waitInterval = 10 * time.Millisecond
	return m
}

func catalogServer(t *testing.T, etag, body string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	downloads := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if etag != "" {
			w.Header().Set("ETag", etag)
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if r.Method == http.MethodGet {
			downloads.Add(1)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, downloads
}

func writeMetadata(t *testing.T, cfg *config.Config, meta Metadata) {
	t.Helper()
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Data.MetadataPath, data, 0o644))
}

func TestManager_EnsureCatalog_Seed(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir, "")
	m := newTestManager(cfg)

	updated, err := m.EnsureCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)

	data, err := os.ReadFile(cfg.Data.CatalogPath)
	require.NoError(t, err)
	assert.Equal(t, catalog.SeedJSON(), data)

	meta, err := m.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, SourceEmbedded, meta.Source)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Positive(t, meta.Products)

	sum, err := computeSHA256(cfg.Data.CatalogPath)
	require.NoError(t, err)
	assert.Equal(t, sum, meta.SHA256)

	// second call leaves the existing file alone
	updated, err = m.EnsureCatalog(context.Background())
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestManager_EnsureCatalog_Remote(t *testing.T) {
	tests := []struct {
		name               string
		existing           string
		meta               *Metadata
		etag               string
		status             int
		disableRemoteCheck bool
		expectUpdated      bool
		expectDownloads    int
		expectError        bool
	}{
		{
			name:            "missing file is downloaded",
			etag:            `"v1"`,
			status:          http.StatusOK,
			expectUpdated:   true,
			expectDownloads: 1,
		},
		{
			name:     "matching etag skips download",
			existing: remoteCatalog,
			meta:     &Metadata{ETag: `"v1"`, Size: int64(len(remoteCatalog))},
			etag:     `"v1"`,
			status:   http.StatusOK,
		},
		{
			name:            "changed etag downloads again",
			existing:        remoteCatalog,
			meta:            &Metadata{ETag: `"v0"`, Size: int64(len(remoteCatalog))},
			etag:            `"v1"`,
			status:          http.StatusOK,
			expectUpdated:   true,
			expectDownloads: 1,
		},
		{
			name:     "size comparison without etag",
			existing: remoteCatalog,
			meta:     &Metadata{Size: int64(len(remoteCatalog))},
			status:   http.StatusOK,
		},
		{
			name:               "remote check disabled keeps local file",
			existing:           "[]",
			etag:               `"v2"`,
			status:             http.StatusOK,
			disableRemoteCheck: true,
		},
		{
			name:        "server error on first download",
			status:      http.StatusInternalServerError,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			srv, downloads := catalogServer(t, tt.etag, remoteCatalog, tt.status)
			cfg := testConfig(dir, srv.URL+"/catalog.json")
			cfg.Data.DisableRemoteCheck = tt.disableRemoteCheck

			if tt.existing != "" {
				require.NoError(t, os.WriteFile(cfg.Data.CatalogPath, []byte(tt.existing), 0o644))
			}
			if tt.meta != nil {
				writeMetadata(t, cfg, *tt.meta)
			}

			updated, err := newTestManager(cfg).EnsureCatalog(context.Background())
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectUpdated, updated)
			assert.Equal(t, int32(tt.expectDownloads), downloads.Load())

			if tt.expectUpdated {
				data, err := os.ReadFile(cfg.Data.CatalogPath)
				require.NoError(t, err)
				assert.Equal(t, remoteCatalog, string(data))
			}
		})
	}
}

func TestManager_DownloadWritesMetadata(t *testing.T) {
	dir := t.TempDir()
	srv, _ := catalogServer(t, `"abc"`, remoteCatalog, http.StatusOK)
	cfg := testConfig(dir, srv.URL)
	m := newTestManager(cfg)

	_, err := m.EnsureCatalog(context.Background())
	require.NoError(t, err)

	meta, err := m.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, meta.ETag)
	assert.Equal(t, srv.URL, meta.Source)
	assert.Equal(t, 1, meta.Products)
	assert.Equal(t, int64(len(remoteCatalog)), meta.Size)
	assert.WithinDuration(t, time.Now(), meta.DownloadedAt, time.Minute)

	_, err = os.Stat(cfg.Data.LockFile)
	assert.True(t, os.IsNotExist(err), "lock file should be released")
}

func TestManager_InvalidCatalogKeepsCurrentFile(t *testing.T) {
	dir := t.TempDir()
	srv, _ := catalogServer(t, `"bad"`, `{"not": "a list"}`, http.StatusOK)
	cfg := testConfig(dir, srv.URL)
	require.NoError(t, os.WriteFile(cfg.Data.CatalogPath, []byte(remoteCatalog), 0o644))

	_, err := newTestManager(cfg).EnsureCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")

	data, err := os.ReadFile(cfg.Data.CatalogPath)
	require.NoError(t, err)
	assert.Equal(t, remoteCatalog, string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestManager_WaitsForOtherInstance(t *testing.T) {
	dir := t.TempDir()
	srv, downloads := catalogServer(t, "", remoteCatalog, http.StatusOK)
	cfg := testConfig(dir, srv.URL)
	require.NoError(t, os.WriteFile(cfg.Data.LockFile, []byte("other"), 0o644))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestManager(cfg).EnsureCatalog(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, downloads.Load())
}

func TestManager_WaitCompletesWhenLockReleased(t *testing.T) {
	dir := t.TempDir()
	srv, downloads := catalogServer(t, "", remoteCatalog, http.StatusOK)
	cfg := testConfig(dir, srv.URL)
	require.NoError(t, os.WriteFile(cfg.Data.LockFile, []byte("other"), 0o644))

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(cfg.Data.CatalogPath, []byte(remoteCatalog), 0o644)
		_ = os.Remove(cfg.Data.LockFile)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	updated, err := newTestManager(cfg).EnsureCatalog(ctx)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Zero(t, downloads.Load())
}

func TestManager_IgnoreLock(t *testing.T) {
	dir := t.TempDir()
	srv, downloads := catalogServer(t, "", remoteCatalog, http.StatusOK)
	cfg := testConfig(dir, srv.URL)
	cfg.Data.IgnoreLock = true
	require.NoError(t, os.WriteFile(cfg.Data.LockFile, []byte("stale"), 0o644))

	updated, err := newTestManager(cfg).EnsureCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, int32(1), downloads.Load())

	_, err = os.Stat(cfg.Data.LockFile)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireReleaseLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "nested", "test.lock")

	lock, err := acquireLock(lockPath)
	require.NoError(t, err)
	require.NotNil(t, lock)

	_, err = acquireLock(lockPath)
	assert.Error(t, err, "second acquire should fail while held")

	releaseLock(lock, lockPath)
	_, err = os.Stat(lockPath)
	assert.True(t, os.IsNotExist(err))

	lock, err = acquireLock(lockPath)
	require.NoError(t, err)
	releaseLock(lock, lockPath)
}

func TestComputeSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	hash, err := computeSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", hash)

	_, err = computeSHA256(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestMetadata_SaveLoad(t *testing.T) {
	cfg := testConfig(t.TempDir(), "")
	m := newTestManager(cfg)

	original := &Metadata{
		SHA256:       "deadbeef",
		DownloadedAt: time.Now().UTC().Truncate(time.Second),
		ETag:         `"etag"`,
		Size:         1024,
		Source:       "https://example.com/catalog.json",
		Products:     12,
	}
	require.NoError(t, m.saveMetadata(original))

	loaded, err := m.LoadMetadata()
	require.NoError(t, err)
	assert.Equal(t, original.SHA256, loaded.SHA256)
	assert.Equal(t, original.ETag, loaded.ETag)
	assert.Equal(t, original.Size, loaded.Size)
	assert.Equal(t, original.Source, loaded.Source)
	assert.Equal(t, original.Products, loaded.Products)
	assert.True(t, original.DownloadedAt.Equal(loaded.DownloadedAt))
}
