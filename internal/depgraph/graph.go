// Package depgraph tracks dependency edges between the artifacts of one
// generation run. It answers three questions: in which order the artifacts can
// be emitted, which declared dependencies were never produced, and what import
// block each artifact needs.
//
// A Graph is plain in-memory state without locks. It is meant to be owned by a
// single run; callers that share one across goroutines must serialise access.
package depgraph

import (
	"log"
	"sort"

	"pwabuilder/internal/artifact"
)

// MissingPolicy controls how declared dependencies without a node are treated.
type MissingPolicy int

const (
	MissingIgnore MissingPolicy = iota // default: skip silently, report via MissingDependencies
	MissingWarn                        // skip, but log every missing edge during Assemble
	MissingError                       // fail GenerationOrder and Assemble
)

// node is one arena slot. Forward edges are kept as paths because the target
// may be ingested later; reverse edges are arena indices recorded at insertion.
type node struct {
	art        artifact.Artifact
	dependsOn  []string
	dependedBy map[int]struct{}
}

// Graph is the artifact store. Nodes live in a dense arena addressed by index;
// index maps a path to its slot.
type Graph struct {
	nodes []*node
	index map[string]int

	format ImportFormatter
	policy MissingPolicy
	logger *log.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithImportFormatter sets the directive syntax used by ImportBlock.
func WithImportFormatter(f ImportFormatter) Option {
	return func(g *Graph) {
		if f != nil {
			g.format = f
		}
	}
}

// WithMissingPolicy selects lenient or strict handling of missing dependencies.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(g *Graph) { g.policy = p }
}

// WithLogger sets the logger used under MissingWarn.
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		index:  make(map[string]int),
		format: RelativeImport,
		policy: MissingIgnore,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddArtifact inserts a or replaces the node already stored under a.Path.
// Replacing swaps the forward edges and keeps reverse edges recorded by other
// nodes. A dependency on a path that is not present yet is accepted and adds
// no reverse edge. An artifact whose path normalizes to "" is skipped and
// logged.
func (g *Graph) AddArtifact(a artifact.Artifact) {
	a = a.Normalize()
	if a.Path == "" {
		g.logger.Printf("depgraph: skipping artifact without path (%d dependencies)", len(a.Dependencies))
		return
	}
	deps := dedupe(a.Dependencies)

	idx, exists := g.index[a.Path]
	if exists {
		prev := g.nodes[idx]
		// drop reverse edges for dependencies the new version no longer declares
		keep := make(map[string]struct{}, len(deps))
		for _, d := range deps {
			keep[d] = struct{}{}
		}
		for _, d := range prev.dependsOn {
			if _, ok := keep[d]; ok {
				continue
			}
			if t, ok := g.index[d]; ok {
				delete(g.nodes[t].dependedBy, idx)
			}
		}
		prev.art = a
		prev.dependsOn = deps
	} else {
		idx = len(g.nodes)
		g.nodes = append(g.nodes, &node{
			art:        a,
			dependsOn:  deps,
			dependedBy: make(map[int]struct{}),
		})
		g.index[a.Path] = idx
	}

	for _, d := range deps {
		if t, ok := g.index[d]; ok {
			g.nodes[t].dependedBy[idx] = struct{}{}
		}
	}
}

// Artifacts returns copies of every ingested artifact in no particular order.
func (g *Graph) Artifacts() []artifact.Artifact {
	out := make([]artifact.Artifact, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.art.Clone())
	}
	return out
}

// Artifact returns a copy of the artifact stored under path.
func (g *Graph) Artifact(path string) (artifact.Artifact, bool) {
	idx, ok := g.index[artifact.NormalizePath(path)]
	if !ok {
		return artifact.Artifact{}, false
	}
	return g.nodes[idx].art.Clone(), true
}

// Clear drops every node and edge.
func (g *Graph) Clear() {
	g.nodes = nil
	g.index = make(map[string]int)
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

func (g *Graph) Has(path string) bool {
	_, ok := g.index[artifact.NormalizePath(path)]
	return ok
}

// DependsOn returns the deduplicated dependency paths of path, sorted. Paths
// without a node are included.
func (g *Graph) DependsOn(path string) []string {
	idx, ok := g.index[artifact.NormalizePath(path)]
	if !ok {
		return nil
	}
	return append([]string(nil), g.nodes[idx].dependsOn...)
}

// DependedBy returns the paths that declared a dependency on path while it was
// present, sorted.
func (g *Graph) DependedBy(path string) []string {
	idx, ok := g.index[artifact.NormalizePath(path)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.nodes[idx].dependedBy))
	for by := range g.nodes[idx].dependedBy {
		out = append(out, g.nodes[by].art.Path)
	}
	sort.Strings(out)
	return out
}

// resolved returns the arena indices of idx's dependencies that have a node.
func (g *Graph) resolved(idx int) []int {
	deps := g.nodes[idx].dependsOn
	out := make([]int, 0, len(deps))
	for _, d := range deps {
		if t, ok := g.index[d]; ok {
			out = append(out, t)
		}
	}
	return out
}

// sortedIndices returns arena indices ordered by path.
func (g *Graph) sortedIndices() []int {
	out := make([]int, len(g.nodes))
	for i := range g.nodes {
		out[i] = i
	}
	sort.Slice(out, func(i, j int) bool {
		return g.nodes[out[i]].art.Path < g.nodes[out[j]].art.Path
	})
	return out
}

func dedupe(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
