// Package dbupdate implements the `db update` verb: it downloads the
// OSV.dev bulk advisory export for the npm ecosystem and pre-warms the
// advisory detail cache. The enrichment pass reads a detail document from
// that cache before calling the network; enrichment runs only on online
// scans with fallback calls enabled, so offline scans do not read it.
package dbupdate

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bardcheck/bardscan/internal/cache"
	"github.com/bardcheck/bardscan/internal/models"
	"github.com/bardcheck/bardscan/internal/osv"
)

// DefaultBulkURL is OSV.dev's per-ecosystem bulk export for npm.
const DefaultBulkURL = "https://osv-vulnerabilities.storage.googleapis.com/npm/all.zip"

const downloadTimeout = 10 * time.Minute

// Updater downloads the bulk export and populates the detail cache.
type Updater struct {
	HTTP    *http.Client
	BulkURL string
	Log     func(message string)
}

func New(httpClient *http.Client) *Updater {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Updater{
		HTTP:    httpClient,
		BulkURL: DefaultBulkURL,
		Log:     func(string) {},
	}
}

// Run downloads the advisory archive and writes every advisory document
// into the detail cache namespace under opts.OutDir, returning the number
// of advisories cached. Individual malformed archive entries are skipped;
// only download and local I/O failures abort.
func (u *Updater) Run(ctx context.Context, opts models.DbUpdateOptions) (int, error) {
	store := cache.New(opts.OutDir, false)
	if err := store.EnsureRoot(); err != nil {
		return 0, models.WrapScanError(models.OutDirUnwritable, store.Root(), err)
	}

	if opts.BulkURL != "" {
		u.BulkURL = opts.BulkURL
	}

	archivePath, err := u.download(ctx)
	if err != nil {
		return 0, err
	}
	defer os.Remove(archivePath)

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening advisory archive: %w", err)
	}
	defer reader.Close()

	count := 0
	for _, entry := range reader.File {
		if !strings.HasSuffix(entry.Name, ".json") {
			continue
		}
		doc, err := readArchiveEntry(entry)
		if err != nil {
			u.Log(fmt.Sprintf("skipping %s: %v", entry.Name, err))
			continue
		}

		var header struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(doc, &header); err != nil || header.ID == "" {
			u.Log(fmt.Sprintf("skipping %s: no advisory id", entry.Name))
			continue
		}

		if err := store.Put(cache.NamespaceDetail, osv.DetailCacheKey(header.ID), json.RawMessage(doc)); err != nil {
			return count, models.WrapScanError(models.OutDirUnwritable, store.Root(), err)
		}
		count++
	}

	return count, nil
}

// download streams the bulk archive to a temp file; zip reading needs
// random access, so the body cannot be consumed directly.
func (u *Updater) download(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.BulkURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := u.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading advisory export: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("advisory export returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "bardscan-osv-*.zip")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing advisory export: %w", err)
	}
	return tmp.Name(), nil
}

func readArchiveEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
