package depgraph

import (
	"strings"

	"pwabuilder/internal/utils"
)

// ImportFormatter renders one import directive written in from that points at to.
type ImportFormatter func(from, to string) string

// RelativeImport emits Dart relative imports: import '../theme/app_theme.dart';
func RelativeImport(from, to string) string {
	return "import '" + utils.RelativePath(from, to) + "';"
}

// PackageImport emits Dart package imports rooted at lib/:
// import 'package:<name>/theme/app_theme.dart';
// Targets outside lib/ fall back to a relative import.
func PackageImport(name string) ImportFormatter {
	name = strings.TrimSpace(name)
	return func(from, to string) string {
		segs := utils.SplitPath(to)
		if name == "" || len(segs) < 2 || segs[0] != "lib" {
			return RelativeImport(from, to)
		}
		return "import 'package:" + name + "/" + strings.Join(segs[1:], "/") + "';"
	}
}
