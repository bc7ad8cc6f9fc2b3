package depgraph

import (
	"sort"
	"strings"

	"pwabuilder/internal/artifact"
)

// ImportBlock returns one import directive per dependency of path that has a
// node, sorted by target path and joined with "\n". It is empty when path is
// unknown or has nothing to import.
func (g *Graph) ImportBlock(path string) string {
	idx, ok := g.index[artifact.NormalizePath(path)]
	if !ok {
		return ""
	}
	from := g.nodes[idx].art.Path
	lines := make([]string, 0, len(g.nodes[idx].dependsOn))
	for _, dep := range g.nodes[idx].dependsOn {
		if _, ok := g.index[dep]; !ok {
			continue
		}
		lines = append(lines, g.format(from, dep))
	}
	return strings.Join(lines, "\n")
}

// MissingDependencies lists every (artifact, dependency) pair whose target has
// no node, sorted by artifact path then dependency path. It never mutates the
// graph and may be called at any point of ingestion.
func (g *Graph) MissingDependencies() []artifact.MissingDependency {
	var out []artifact.MissingDependency
	for _, n := range g.nodes {
		out = append(out, g.missingOf(n)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ArtifactPath != out[j].ArtifactPath {
			return out[i].ArtifactPath < out[j].ArtifactPath
		}
		return out[i].MissingDependencyPath < out[j].MissingDependencyPath
	})
	return out
}

func (g *Graph) missingOf(n *node) []artifact.MissingDependency {
	var out []artifact.MissingDependency
	for _, dep := range n.dependsOn {
		if _, ok := g.index[dep]; ok {
			continue
		}
		out = append(out, artifact.MissingDependency{
			ArtifactPath:          n.art.Path,
			MissingDependencyPath: dep,
		})
	}
	return out
}

// Assemble returns the content of path with its import block spliced in
// after the leading comment header. The header's trailing blank line, if
// any, is replaced by the blank line that separates the imports from the body.
// Content is returned unchanged when there is nothing to import.
func (g *Graph) Assemble(path string) (string, error) {
	idx, ok := g.index[artifact.NormalizePath(path)]
	if !ok {
		return "", &NotFoundError{Path: path}
	}
	n := g.nodes[idx]

	if missing := g.missingOf(n); len(missing) > 0 {
		switch g.policy {
		case MissingError:
			return "", &MissingDependencyError{Missing: missing}
		case MissingWarn:
			for _, m := range missing {
				g.logger.Printf("WARNING: %s imports %s which was not generated", m.ArtifactPath, m.MissingDependencyPath)
			}
		}
	}

	block := g.ImportBlock(n.art.Path)
	if block == "" {
		return n.art.Content, nil
	}

	content := n.art.Content
	nl := lineBreak(content)
	if nl != "\n" {
		block = strings.ReplaceAll(block, "\n", nl)
	}

	commentEnd, headerEnd := scanHeader(content)
	var sb strings.Builder
	sb.Grow(len(content) + len(block) + 2*len(nl) + 1)
	sb.WriteString(content[:commentEnd])
	if commentEnd > 0 && !strings.HasSuffix(content[:commentEnd], "\n") {
		sb.WriteString(nl)
	}
	sb.WriteString(block)
	sb.WriteString(nl)
	sb.WriteString(nl)
	sb.WriteString(content[headerEnd:])
	return sb.String(), nil
}
