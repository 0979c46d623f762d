// Package artifacts persists scrape artifacts on disk so the extraction
// pipeline can memoize expensive fetch and extract work between runs.
//
// The store keeps two artifact kinds per profile slug: raw page HTML under
// html/<slug>.html and extracted structured profiles under json/<slug>.json.
// Writes go through a temp file and rename so readers never observe a
// partially written artifact.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/north-cloud/sourcing/internal/logger"
	"github.com/north-cloud/sourcing/internal/profile"
)

// Artifact kinds managed by the store.
const (
	KindHTML = "html"
	KindJSON = "json"
)

// Info describes one stored artifact.
type Info struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store is an on-disk artifact store rooted at a single directory.
type Store struct {
	root   string
	logger logger.Logger
}

// NewStore creates the html/ and json/ subdirectories under root if needed.
func NewStore(root string, log logger.Logger) (*Store, error) {
	for _, kind := range []string{KindHTML, KindJSON} {
		if err := os.MkdirAll(filepath.Join(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir %s: %w", kind, err)
		}
	}
	return &Store{root: root, logger: log}, nil
}

func (s *Store) path(kind, slug string) string {
	ext := ".html"
	if kind == KindJSON {
		ext = ".json"
	}
	return filepath.Join(s.root, kind, slug+ext)
}

// Has reports whether a non-empty artifact of the given kind exists for slug.
func (s *Store) Has(kind, slug string) bool {
	fi, err := os.Stat(s.path(kind, slug))
	return err == nil && fi.Size() > 0
}

// Stat returns metadata for an artifact, or nil if it does not exist.
func (s *Store) Stat(kind, slug string) *Info {
	p := s.path(kind, slug)
	fi, err := os.Stat(p)
	if err != nil {
		return nil
	}
	return &Info{Path: p, Size: fi.Size(), ModTime: fi.ModTime()}
}

// GetHTML returns the raw HTML artifact for slug.
func (s *Store) GetHTML(slug string) ([]byte, error) {
	data, err := os.ReadFile(s.path(KindHTML, slug))
	if err != nil {
		return nil, fmt.Errorf("read html artifact for %s: %w", slug, err)
	}
	return data, nil
}

// PutHTML stores the raw HTML artifact for slug.
func (s *Store) PutHTML(slug string, html []byte) error {
	if err := s.writeAtomic(s.path(KindHTML, slug), html); err != nil {
		return fmt.Errorf("write html artifact for %s: %w", slug, err)
	}
	s.logger.Debug("Stored HTML artifact",
		logger.String("slug", slug),
		logger.Int("bytes", len(html)))
	return nil
}

// GetProfile returns the structured profile artifact for slug.
func (s *Store) GetProfile(slug string) (*profile.Profile, error) {
	data, err := os.ReadFile(s.path(KindJSON, slug))
	if err != nil {
		return nil, fmt.Errorf("read profile artifact for %s: %w", slug, err)
	}
	var p profile.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile artifact for %s: %w", slug, err)
	}
	return &p, nil
}

// PutProfile stores the structured profile artifact for slug.
func (s *Store) PutProfile(slug string, p *profile.Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile artifact for %s: %w", slug, err)
	}
	if err := s.writeAtomic(s.path(KindJSON, slug), data); err != nil {
		return fmt.Errorf("write profile artifact for %s: %w", slug, err)
	}
	s.logger.Debug("Stored profile artifact", logger.String("slug", slug))
	return nil
}

// Delete removes both artifacts for slug. Missing files are not an error.
func (s *Store) Delete(slug string) error {
	for _, kind := range []string{KindHTML, KindJSON} {
		if err := os.Remove(s.path(kind, slug)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s artifact for %s: %w", kind, slug, err)
		}
	}
	return nil
}

// Sweep removes artifacts whose modification time is older than maxAge and
// returns the number of files removed.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, kind := range []string{KindHTML, KindJSON} {
		entries, err := os.ReadDir(filepath.Join(s.root, kind))
		if err != nil {
			return removed, fmt.Errorf("read artifact dir %s: %w", kind, err)
		}
		for _, entry := range entries {
			fi, err := entry.Info()
			if err != nil || fi.IsDir() {
				continue
			}
			if fi.ModTime().Before(cutoff) {
				if err := os.Remove(filepath.Join(s.root, kind, entry.Name())); err != nil {
					s.logger.Warn("Failed to sweep artifact",
						logger.String("name", entry.Name()),
						logger.Error(err))
					continue
				}
				removed++
			}
		}
	}
	if removed > 0 {
		s.logger.Info("Swept expired artifacts", logger.Int("removed", removed))
	}
	return removed, nil
}

// writeAtomic writes data next to path and renames it into place so a
// concurrent reader sees either the old artifact or the new one, never a
// partial write.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
