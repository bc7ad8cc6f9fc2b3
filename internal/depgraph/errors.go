package depgraph

import (
	"errors"
	"fmt"
	"strings"

	"pwabuilder/internal/artifact"
)

var (
	ErrNotFound          = errors.New("artifact not found")
	ErrCyclicDependency  = errors.New("cyclic dependency")
	ErrMissingDependency = errors.New("missing dependency")
)

// NotFoundError is returned when an operation names a path that was never ingested.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact %q not found", e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CyclicDependencyError carries the cycle as a path sequence that starts and
// ends on the same artifact, e.g. [a b c a].
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Cycle, " -> ")
}

func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// MissingDependencyError is only produced under MissingError policy.
type MissingDependencyError struct {
	Missing []artifact.MissingDependency
}

func (e *MissingDependencyError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("%d missing dependencies: %s", len(e.Missing), strings.Join(parts, ", "))
}

func (e *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}
