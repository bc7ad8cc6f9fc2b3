package artifact

import (
	"fmt"
	"strings"

	"pwabuilder/internal/utils"
)

// Artifact is a single generated source file as handed over by the template
// renderer. Path is its unique key inside a generation run.
type Artifact struct {
	Path         string   `json:"path"`
	Content      string   `json:"content"`
	Dependencies []string `json:"dependencies,omitempty"`
	Exports      []string `json:"exports,omitempty"`
}

// MissingDependency reports a declared dependency whose target was never ingested.
type MissingDependency struct {
	ArtifactPath          string `json:"artifact_path"`
	MissingDependencyPath string `json:"missing_dependency_path"`
}

func (m MissingDependency) String() string {
	return m.ArtifactPath + " -> " + m.MissingDependencyPath
}

// Normalize canonicalises the path and every dependency with NormalizePath
// and drops empty entries. It returns a copy and never touches the
// receiver's slices.
func (a Artifact) Normalize() Artifact {
	out := Artifact{
		Path:    NormalizePath(a.Path),
		Content: a.Content,
	}
	if len(a.Dependencies) > 0 {
		out.Dependencies = make([]string, 0, len(a.Dependencies))
		for _, dep := range a.Dependencies {
			dep = NormalizePath(dep)
			if dep == "" {
				continue
			}
			out.Dependencies = append(out.Dependencies, dep)
		}
	}
	if len(a.Exports) > 0 {
		out.Exports = make([]string, 0, len(a.Exports))
		for _, sym := range a.Exports {
			sym = strings.TrimSpace(sym)
			if sym == "" {
				continue
			}
			out.Exports = append(out.Exports, sym)
		}
	}
	return out
}

// Validate reports whether the artifact can be ingested.
func (a Artifact) Validate() error {
	if NormalizePath(a.Path) == "" {
		return fmt.Errorf("artifact path is required")
	}
	return nil
}

// Clone returns a deep copy.
func (a Artifact) Clone() Artifact {
	return Artifact{
		Path:         a.Path,
		Content:      a.Content,
		Dependencies: append([]string(nil), a.Dependencies...),
		Exports:      append([]string(nil), a.Exports...),
	}
}

// NormalizePath returns the canonical key for p: forward slashes, no leading
// slash, no empty or "." segments. "./lib/a.dart", "/lib//a.dart" and
// "lib\\a.dart" all map to "lib/a.dart".
func NormalizePath(p string) string {
	return strings.Join(utils.SplitPath(p), "/")
}
