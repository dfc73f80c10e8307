// Package dataset keeps the catalog file on disk: written from the embedded seed
// catalog, or downloaded and refreshed from a remote URL
package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/config"
)

// SourceEmbedded marks metadata for a catalog written from the embedded seed
const SourceEmbedded = "embedded"

// Metadata describes the catalog file currently on disk
type Metadata struct {
	SHA256       string    `json:"sha256"`
	DownloadedAt time.Time `json:"downloaded_at"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
	Source       string    `json:"source"`
	Products     int       `json:"products,omitempty"`
}

// Manager handles catalog downloads and metadata
type Manager struct {
	url                string
	catalogPath        string
	metadataPath       string
	lockPath           string
	disableRemoteCheck bool
	ignoreLock         bool
	client             *http.Client
	waitInterval       time.Duration
	log                *slog.Logger
}

// NewManager creates a catalog file manager from the config
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		url:                cfg.Catalog.URL,
		catalogPath:        cfg.Data.CatalogPath,
		metadataPath:       cfg.Data.MetadataPath,
		lockPath:           cfg.Data.LockFile,
		disableRemoteCheck: cfg.Data.DisableRemoteCheck,
		ignoreLock:         cfg.Data.IgnoreLock,
		client:             &http.Client{Timeout: 5 * time.Minute},
		waitInterval:       2 * time.Second,
		log:                logger,
	}
}

// CatalogPath returns where the catalog file lives
func (m *Manager) CatalogPath() string {
	return m.catalogPath
}

// EnsureCatalog makes sure a usable catalog file exists. It reports whether the
// file was (re)written so callers know to reload their catalog source.
func (m *Manager) EnsureCatalog(ctx context.Context) (bool, error) {
	start := time.Now()
	m.log.Info("Ensuring catalog is available", "catalog_path", m.catalogPath, "remote", m.url != "")

	_, statErr := os.Stat(m.catalogPath)
	exists := statErr == nil

	if m.url == "" {
		if exists {
			m.log.Info("Using existing catalog file", "duration", time.Since(start))
			return false, nil
		}
		if err := m.writeSeed(); err != nil {
			return false, fmt.Errorf("failed to write seed catalog: %w", err)
		}
		m.log.Info("Seed catalog written", "duration", time.Since(start))
		return true, nil
	}

	if exists {
		if m.disableRemoteCheck {
			m.log.Info("Remote checks disabled, using local catalog", "duration", time.Since(start))
			return false, nil
		}
		upToDate, err := m.isUpToDate(ctx)
		if err != nil {
			m.log.Warn("Failed to verify catalog freshness", "error", err)
		}
		if upToDate {
			m.log.Info("Catalog is up-to-date", "duration", time.Since(start))
			return false, nil
		}
	}

	if err := m.downloadWithLock(ctx); err != nil {
		return false, fmt.Errorf("failed to download catalog: %w", err)
	}
	m.log.Info("Catalog ensured", "duration", time.Since(start))
	return true, nil
}

func (m *Manager) writeSeed() error {
	data := catalog.SeedJSON()
	products, err := catalog.DecodeProducts(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := m.install(bytes.NewReader(data)); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	return m.saveMetadata(&Metadata{
		SHA256:       hex.EncodeToString(sum[:]),
		DownloadedAt: time.Now().UTC(),
		Size:         int64(len(data)),
		Source:       SourceEmbedded,
		Products:     len(products),
	})
}

// isUpToDate compares local metadata with a HEAD of the remote file
func (m *Manager) isUpToDate(ctx context.Context) (bool, error) {
	local, err := m.loadMetadata()
	if err != nil {
		m.log.Debug("No local metadata found", "error", err)
		return false, nil
	}

	remote, err := m.remoteMetadata(ctx)
	if err != nil {
		return false, err
	}

	if remote.ETag != "" && local.ETag != "" {
		upToDate := remote.ETag == local.ETag
		m.log.Debug("ETag comparison", "local", local.ETag, "remote", remote.ETag, "up_to_date", upToDate)
		return upToDate, nil
	}

	upToDate := remote.Size == local.Size
	m.log.Debug("Size comparison", "local", local.Size, "remote", remote.Size, "up_to_date", upToDate)
	return upToDate, nil
}

func (m *Manager) remoteMetadata(ctx context.Context) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HEAD request failed with status: %d", resp.StatusCode)
	}
	return &Metadata{ETag: resp.Header.Get("ETag"), Size: resp.ContentLength}, nil
}

// downloadWithLock downloads the catalog while holding the lock file; another holder
// means another instance is downloading, so we wait for its result instead
func (m *Manager) downloadWithLock(ctx context.Context) error {
	if m.ignoreLock {
		if _, err := os.Stat(m.lockPath); err == nil {
			m.log.Warn("ignore_lock set, removing existing lock file", "lock_path", m.lockPath)
			if err := os.Remove(m.lockPath); err != nil {
				m.log.Warn("Failed to remove lock file", "error", err)
			}
		}
	}

	lock, err := acquireLock(m.lockPath)
	if err != nil {
		if !m.ignoreLock {
			m.log.Info("Another instance is downloading, waiting", "lock_path", m.lockPath)
			return m.waitForDownload(ctx)
		}
		m.log.Warn("ignore_lock set but lock still unavailable, proceeding anyway", "error", err)
	}
	if lock != nil {
		defer releaseLock(lock, m.lockPath)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return err
	}
	m.log.Info("Downloading catalog", "url", m.url)
	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read catalog body: %w", err)
	}

	// JSON catalogs are decoded before they replace the current file; parquet is left to DuckDB
	products := 0
	if !isParquet(m.catalogPath) {
		decoded, err := catalog.DecodeProducts(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("downloaded catalog is invalid: %w", err)
		}
		products = len(decoded)
	}

	if err := m.install(bytes.NewReader(data)); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	meta := &Metadata{
		SHA256:       hex.EncodeToString(sum[:]),
		DownloadedAt: time.Now().UTC(),
		ETag:         resp.Header.Get("ETag"),
		Size:         int64(len(data)),
		Source:       m.url,
		Products:     products,
	}
	if err := m.saveMetadata(meta); err != nil {
		m.log.Warn("Failed to save metadata", "error", err)
	}

	m.log.Info("Catalog downloaded", "bytes", len(data), "products", products, "sha256", meta.SHA256[:16], "duration", time.Since(start))
	return nil
}

// install writes r next to the catalog file and renames it into place
func (m *Manager) install(r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(m.catalogPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.catalogPath), filepath.Base(m.catalogPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, m.catalogPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move catalog into place: %w", err)
	}
	return nil
}

func (m *Manager) waitForDownload(ctx context.Context) error {
	ticker := time.NewTicker(m.waitInterval)
	defer ticker.Stop()
	timeout := time.After(10 * time.Minute)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for download by other instance")
		case <-ticker.C:
			if _, err := os.Stat(m.lockPath); os.IsNotExist(err) {
				if _, err := os.Stat(m.catalogPath); err == nil {
					m.log.Info("Catalog available after other instance completed")
					return nil
				}
			}
		}
	}
}

// LoadMetadata returns the metadata of the catalog on disk
func (m *Manager) LoadMetadata() (*Metadata, error) {
	return m.loadMetadata()
}

func (m *Manager) loadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(m.metadataPath)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Manager) saveMetadata(meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.metadataPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.metadataPath, data, 0o644)
}

func isParquet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".parquet")
}

// acquireLock creates the lock file exclusively; it fails while another holder exists
func acquireLock(lockPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

func releaseLock(f *os.File, lockPath string) {
	f.Close()
	os.Remove(lockPath)
}

// computeSHA256 hashes a file on disk
func computeSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
