package utils

import (
	"strings"
)

// SplitPath breaks a slash-separated path into its non-empty segments.
// "." segments are dropped; ".." is kept as-is.
func SplitPath(p string) []string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if p == "" {
		return nil
	}
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		if seg == "" || seg == "." {
			continue
		}
		out = append(out, seg)
	}
	return out
}

// RelativePath returns the path to use in an import written inside from that
// points at to. from is treated as a file, so its last segment is ignored.
//
//	RelativePath("lib/widgets/a.dart", "lib/widgets/b.dart") == "b.dart"
//	RelativePath("lib/widgets/a.dart", "lib/theme/t.dart")   == "../theme/t.dart"
//
// The result only depends on the two strings.
func RelativePath(from, to string) string {
	fromDirs := SplitPath(from)
	if len(fromDirs) > 0 {
		fromDirs = fromDirs[:len(fromDirs)-1]
	}
	toSegs := SplitPath(to)
	if len(toSegs) == 0 {
		return ""
	}
	toDirs := toSegs[:len(toSegs)-1]

	common := 0
	for common < len(fromDirs) && common < len(toDirs) && fromDirs[common] == toDirs[common] {
		common++
	}

	out := make([]string, 0, len(fromDirs)-common+len(toSegs)-common)
	for range fromDirs[common:] {
		out = append(out, "..")
	}
	out = append(out, toSegs[common:]...)
	return strings.Join(out, "/")
}
