// Package backup stores and restores opaque snapshots of the entity store as
// gzip-compressed JSON blobs on local disk. Callers treat the blob format as
// opaque; the only contract is that Restore accepts what Create produced.
package backup

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rentroll.org/internal/store"
)

const blobSuffix = ".rentroll.gz"

// Info describes one stored backup blob.
type Info struct {
	Name string    `json:"name"`
	Size int64     `json:"size"`
	Date time.Time `json:"date"`
}

// Manager reads and writes backup blobs under a single directory.
type Manager struct {
	dir   string
	store store.Snapshotter
	now   func() time.Time
}

// NewManager creates a manager writing blobs into dir.
func NewManager(dir string, st store.Snapshotter) *Manager {
	return &Manager{dir: dir, store: st, now: time.Now}
}

// Create exports the store and writes a new timestamped blob, returning its
// descriptor.
func (m *Manager) Create(ctx context.Context) (Info, error) {
	snap, err := m.store.Export(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("export store: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Info{}, err
	}

	name := m.now().UTC().Format("20060102-150405") + blobSuffix
	path := filepath.Join(m.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return Info{}, err
	}
	zw := gzip.NewWriter(f)
	encErr := json.NewEncoder(zw).Encode(snap)
	if err := zw.Close(); encErr == nil {
		encErr = err
	}
	if err := f.Close(); encErr == nil {
		encErr = err
	}
	if encErr != nil {
		_ = os.Remove(path)
		return Info{}, encErr
	}

	st, err := os.Stat(path)
	if err != nil {
		return Info{}, err
	}
	return Info{Name: name, Size: st.Size(), Date: st.ModTime().UTC()}, nil
}

// Restore replaces the store contents wholesale with the named blob.
func (m *Manager) Restore(ctx context.Context, name string) error {
	path, err := m.blobPath(name)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.ErrNotFound
		}
		return err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("corrupt backup %s: %w", name, err)
	}
	defer zr.Close()

	var snap store.Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return fmt.Errorf("corrupt backup %s: %w", name, err)
	}
	return m.store.Import(ctx, &snap)
}

// List returns all stored blobs, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), blobSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Name: e.Name(), Size: fi.Size(), Date: fi.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// Delete removes the named blob.
func (m *Manager) Delete(name string) error {
	path, err := m.blobPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.ErrNotFound
		}
		return err
	}
	return nil
}

func (m *Manager) blobPath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, blobSuffix) {
		return "", fmt.Errorf("%w: invalid backup name", store.ErrValidation)
	}
	return filepath.Join(m.dir, name), nil
}
