package output

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiskStore writes output under root/<runID>/<path>. It is what the CLI uses
// to materialise a generated project on the local filesystem.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: strings.TrimSpace(root)}
}

// Root returns the directory the store writes into.
func (s *DiskStore) Root() string {
	if s == nil {
		return ""
	}
	return s.root
}

// RunDir returns the directory holding the files of runID.
func (s *DiskStore) RunDir(runID string) (string, error) {
	return s.runRoot(runID)
}

func (s *DiskStore) Put(_ context.Context, runID, path string, content []byte) error {
	full, err := s.pathFor(runID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *DiskStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	full, err := s.pathFor(runID, path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return raw, err
}

func (s *DiskStore) GetURL(_ context.Context, runID, path string) (string, error) {
	if _, err := s.pathFor(runID, path); err != nil {
		return "", err
	}
	return "", nil
}

func (s *DiskStore) List(_ context.Context, runID string) ([]string, error) {
	runRoot, err := s.runRoot(runID)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, 32)
	walkErr := filepath.WalkDir(runRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(runRoot, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, walkErr
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *DiskStore) runRoot(runID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	if s.root == "" {
		return "", fmt.Errorf("root is required")
	}
	runID, err := normalizeRunID(runID)
	if err != nil {
		return "", err
	}
	if unsafePath(runID) || strings.Contains(runID, "/") {
		return "", fmt.Errorf("invalid run_id: %s", runID)
	}
	return filepath.Join(s.root, runID), nil
}

func (s *DiskStore) pathFor(runID, path string) (string, error) {
	runRoot, err := s.runRoot(runID)
	if err != nil {
		return "", err
	}
	// a leading slash is relative to the run directory
	_, path, err = normalizeKey(runID, path)
	if err != nil {
		return "", err
	}
	if unsafePath(path) {
		return "", fmt.Errorf("invalid path: %s", path)
	}
	return filepath.Join(runRoot, filepath.FromSlash(path)), nil
}

// unsafePath reports whether p could escape its parent directory.
func unsafePath(p string) bool {
	if filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

var _ Store = (*DiskStore)(nil)
