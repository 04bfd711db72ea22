// Package workbook resolves the configured workbook location to a local
// file, downloading remote workbooks with HTTP caching.
package workbook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	appLog "rehearsalcal/internal/log"
	"rehearsalcal/internal/model"
)

const (
	metaFile = "meta.json"
	bodyFile = "workbook.xlsx"
)

// Result is the local copy of a workbook.
type Result struct {
	Path      string
	FromCache bool // true if the cached copy was reused (304 or fallback)
}

// cacheEntry holds HTTP cache metadata for a single workbook URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads workbooks with ETag / Last-Modified revalidation and
// keeps the last good copy on disk.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching below cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/workbook-cache"
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cacheDir: cacheDir,
	}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve returns a local path for location. Local paths are returned as
// given; URLs are fetched into the cache.
func (f *Fetcher) Resolve(ctx context.Context, location string) (Result, error) {
	if location == "" {
		return Result{}, &model.IOError{Op: "resolve workbook", Err: errors.New("workbook location is empty")}
	}
	if !IsRemote(location) {
		return Result{Path: location}, nil
	}
	res, err := f.Fetch(ctx, location)
	if err != nil {
		return Result{}, &model.IOError{Op: "fetch workbook", Path: redactURL(location), Err: err}
	}
	return res, nil
}

// Fetch downloads rawURL, honoring ETag and Last-Modified. On network
// errors or non-OK responses the cached copy is used when present.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	cachePath := f.cachePathForURL(rawURL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return Result{}, err
	}

	bodyPath := filepath.Join(cachePath, bodyFile)
	meta, _ := f.loadCacheMeta(cachePath)
	cached := fileExists(bodyPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	if cached && meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if cached && meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("workbook fetch start", "url", redactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if cached {
			appLog.Error("workbook fetch network error, using cached copy", err, "url", redactURL(rawURL))
			return Result{Path: bodyPath, FromCache: true}, nil
		}
		return Result{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		newMeta := cacheEntry{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := f.saveCache(cachePath, newMeta, resp.Body); err != nil {
			if cached {
				appLog.Error("workbook cache save failed, using cached copy", err, "url", redactURL(rawURL))
				return Result{Path: bodyPath, FromCache: true}, nil
			}
			return Result{}, err
		}
		appLog.Info("workbook fetch success", "url", redactURL(rawURL), "status", resp.StatusCode, "from_cache", false)
		return Result{Path: bodyPath}, nil

	case http.StatusNotModified:
		if !cached {
			return Result{}, errors.New("received 304 Not Modified but no cached workbook available")
		}
		appLog.Info("workbook not modified; using cache", "url", redactURL(rawURL))
		return Result{Path: bodyPath, FromCache: true}, nil

	default:
		if cached {
			appLog.Error("workbook fetch non-OK, using cached copy", errors.New(resp.Status), "url", redactURL(rawURL), "status", resp.StatusCode)
			return Result{Path: bodyPath, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func (f *Fetcher) loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, metaFile))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

// saveCache streams the body into a temp file and renames it into place
// before writing meta, so meta never points at a partial body.
func (f *Fetcher) saveCache(cachePath string, meta cacheEntry, body io.Reader) error {
	tmp, err := os.CreateTemp(cachePath, ".workbook-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(cachePath, bodyFile)); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, metaFile), data, 0o600)
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// redactURL keeps scheme and host only; shared workbook links usually
// carry access tokens in path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "workbook://...(redacted)"
	}
	return strings.TrimSuffix(u.Scheme+"://"+u.Host, "/") + "/...(redacted)"
}
