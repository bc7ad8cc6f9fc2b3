package depgraph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"pwabuilder/internal/artifact"
)

func TestImportBlockSortedRelativeImports(t *testing.T) {
	g := New()
	g.AddArtifact(art("lib/widgets/glass_button.dart",
		"lib/widgets/glass_container.dart",
		"lib/theme/app_theme_extensions.dart",
		"lib/missing.dart",
	))
	g.AddArtifact(art("lib/widgets/glass_container.dart"))
	g.AddArtifact(art("lib/theme/app_theme_extensions.dart"))

	got := g.ImportBlock("lib/widgets/glass_button.dart")
	want := "import '../theme/app_theme_extensions.dart';\n" +
		"import 'glass_container.dart';"
	if got != want {
		t.Fatalf("ImportBlock = %q, want %q", got, want)
	}
}

func TestImportBlockEmptyWithoutResolvableDependencies(t *testing.T) {
	g := New()
	g.AddArtifact(art("a", "ghost"))
	if got := g.ImportBlock("a"); got != "" {
		t.Fatalf("ImportBlock = %q, want empty", got)
	}
}

func TestImportBlockPackageFormatter(t *testing.T) {
	g := New(WithImportFormatter(PackageImport("todo_app")))
	g.AddArtifact(art("lib/main.dart", "lib/app.dart", "tool/gen.dart"))
	g.AddArtifact(art("lib/app.dart"))
	g.AddArtifact(art("tool/gen.dart"))

	want := "import 'package:todo_app/app.dart';\n" +
		"import '../tool/gen.dart';"
	if got := g.ImportBlock("lib/main.dart"); got != want {
		t.Fatalf("ImportBlock = %q, want %q", got, want)
	}
}

func TestMissingDependencies(t *testing.T) {
	g := New()
	g.AddArtifact(artifact.Artifact{Path: "X", Content: "class X {}", Dependencies: []string{"Y"}})

	want := []artifact.MissingDependency{{ArtifactPath: "X", MissingDependencyPath: "Y"}}
	if got := g.MissingDependencies(); !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingDependencies = %#v, want %#v", got, want)
	}

	out, err := g.Assemble("X")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out != "class X {}" {
		t.Fatalf("Assemble = %q", out)
	}
}

func TestMissingDependenciesIdempotent(t *testing.T) {
	g := New()
	g.AddArtifact(art("b", "z", "a"))
	g.AddArtifact(art("a", "q"))

	first := g.MissingDependencies()
	second := g.MissingDependencies()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated calls differ: %#v vs %#v", first, second)
	}
	want := []artifact.MissingDependency{
		{ArtifactPath: "a", MissingDependencyPath: "q"},
		{ArtifactPath: "b", MissingDependencyPath: "z"},
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("MissingDependencies = %#v, want %#v", first, want)
	}
}

func TestMissingDependenciesShrinksAsArtifactsArrive(t *testing.T) {
	g := New()
	g.AddArtifact(art("a", "b"))
	if n := len(g.MissingDependencies()); n != 1 {
		t.Fatalf("missing before = %d, want 1", n)
	}

	g.AddArtifact(art("b"))
	if n := len(g.MissingDependencies()); n != 0 {
		t.Fatalf("missing after = %d, want 0", n)
	}
}

func TestMissingDependenciesResolvesDottedPaths(t *testing.T) {
	g := New()
	g.AddArtifact(art("lib/a.dart", "./lib/b.dart", "lib//c.dart"))
	g.AddArtifact(art("lib/b.dart"))

	want := []artifact.MissingDependency{{ArtifactPath: "lib/a.dart", MissingDependencyPath: "lib/c.dart"}}
	if got := g.MissingDependencies(); !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingDependencies = %#v, want %#v", got, want)
	}
	out, err := g.Assemble("./lib/a.dart")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.HasPrefix(out, "// lib/a.dart\nimport 'b.dart';\n\n") {
		t.Fatalf("Assemble = %q", out)
	}
}

func TestAssembleNotFound(t *testing.T) {
	g := New()
	_, err := g.Assemble("lib/nowhere.dart")

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Path != "lib/nowhere.dart" {
		t.Fatalf("expected *NotFoundError for lib/nowhere.dart, got %#v", err)
	}
}

func TestAssembleSplicing(t *testing.T) {
	const importLine = "import 'foo_dep.dart';"
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "header with blank line",
			content: "// header\n\nclass Foo {}",
			want:    "// header\n" + importLine + "\n\n" + "class Foo {}",
		},
		{
			name:    "no comments",
			content: "class Foo {}",
			want:    importLine + "\n\n" + "class Foo {}",
		},
		{
			name:    "comment block without blank line",
			content: "// GENERATED CODE\n// do not edit\nclass Foo {}",
			want:    "// GENERATED CODE\n// do not edit\n" + importLine + "\n\n" + "class Foo {}",
		},
		{
			name:    "header only without trailing newline",
			content: "// header",
			want:    "// header\n" + importLine + "\n\n",
		},
		{
			name:    "header only with blank line",
			content: "// header\n\n",
			want:    "// header\n" + importLine + "\n\n",
		},
		{
			name:    "only one blank line is consumed",
			content: "// header\n\n\nclass Foo {}",
			want:    "// header\n" + importLine + "\n\n" + "\nclass Foo {}",
		},
		{
			name:    "leading blank line is not a header",
			content: "\nclass Foo {}",
			want:    importLine + "\n\n" + "\nclass Foo {}",
		},
		{
			name:    "doc comments count as header",
			content: "/// Foo widget.\n  // indented\nclass Foo {}",
			want:    "/// Foo widget.\n  // indented\n" + importLine + "\n\n" + "class Foo {}",
		},
		{
			name:    "crlf line endings",
			content: "// header\r\n\r\nclass Foo {}",
			want:    "// header\r\n" + importLine + "\r\n\r\n" + "class Foo {}",
		},
		{
			name:    "empty content",
			content: "",
			want:    importLine + "\n\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New()
			g.AddArtifact(artifact.Artifact{Path: "lib/foo.dart", Content: tc.content, Dependencies: []string{"lib/foo_dep.dart"}})
			g.AddArtifact(artifact.Artifact{Path: "lib/foo_dep.dart", Content: "class Dep {}"})

			got, err := g.Assemble("lib/foo.dart")
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Assemble = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAssembleCRLFMultipleImports(t *testing.T) {
	g := New()
	g.AddArtifact(artifact.Artifact{Path: "a.dart", Content: "class A {}\r\n", Dependencies: []string{"b.dart", "c.dart"}})
	g.AddArtifact(art("b.dart"))
	g.AddArtifact(art("c.dart"))

	got, err := g.Assemble("a.dart")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := "import 'b.dart';\r\nimport 'c.dart';\r\n\r\nclass A {}\r\n"
	if got != want {
		t.Fatalf("Assemble = %q, want %q", got, want)
	}
}

func TestAssembleStrictPolicy(t *testing.T) {
	g := New(WithMissingPolicy(MissingError))
	g.AddArtifact(art("a", "ghost"))

	if _, err := g.Assemble("a"); !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

func TestAssembleWarnPolicyLogs(t *testing.T) {
	g, logs := quietGraph(WithMissingPolicy(MissingWarn))
	g.AddArtifact(artifact.Artifact{Path: "a", Content: "body", Dependencies: []string{"ghost"}})

	out, err := g.Assemble("a")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out != "body" {
		t.Fatalf("Assemble = %q", out)
	}
	if !strings.Contains(logs.String(), "WARNING: a imports ghost which was not generated") {
		t.Fatalf("log = %q", logs.String())
	}
}
