// Package output persists assembled files of a generation run, keyed by
// run id and artifact path.
package output

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pwabuilder/internal/utils"
)

// Store is the sink the generation service writes assembled files to.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	// GetURL returns a download URL when the backend can serve one, "" otherwise.
	GetURL(ctx context.Context, runID, path string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

var ErrNotFound = errors.New("output file not found")

// normalizeKey trims and validates a (runID, path) pair. Paths are stored
// with forward slashes, without a leading slash and without empty or "."
// segments, so "/pubspec.yaml" and "./pubspec.yaml" name the same file in
// every backend.
func normalizeKey(runID, path string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", "", fmt.Errorf("run_id is required")
	}
	path = cleanPath(path)
	if path == "" {
		return "", "", fmt.Errorf("path is required")
	}
	return runID, path, nil
}

func normalizeRunID(runID string) (string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return "", fmt.Errorf("run_id is required")
	}
	return runID, nil
}

// Key joins run id and path the way every flat backend addresses a file.
func Key(runID, path string) string {
	return strings.TrimSpace(runID) + "/" + cleanPath(path)
}

func cleanPath(p string) string {
	return strings.Join(utils.SplitPath(p), "/")
}
