// Command assemble runs one generation pass over a JSON manifest of rendered
// artifacts and writes the assembled files to disk.
//
//	assemble -manifest artifacts.json -out gen [-strict] [-run id] [-import-style package:app]
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"pwabuilder/internal/artifact"
	"pwabuilder/internal/depgraph"
	"pwabuilder/internal/gateway/config"
	"pwabuilder/internal/gateway/repository/output"
	"pwabuilder/internal/gateway/run"
	"pwabuilder/internal/gateway/service/generation"
)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	exitPartial = 3
)

func main() {
	_ = godotenv.Load()
	os.Exit(runCLI(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func runCLI(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("assemble", flag.ContinueOnError)
	fs.SetOutput(stderr)
	manifest := fs.String("manifest", "", `path to the artifact manifest (JSON), "-" for stdin`)
	outDir := fs.String("out", "gen", "output directory")
	strict := fs.Bool("strict", false, "fail when a declared dependency was not generated")
	runID := fs.String("run", "", "run id (generated when empty)")
	importStyle := fs.String("import-style", firstNonEmpty(os.Getenv("IMPORT_STYLE"), "dart"), "dart or package:<name>")
	traceDir := fs.String("trace", "", "directory for the JSONL run trace (disabled when empty)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	logger := log.New(stderr, "", log.LstdFlags)

	if strings.TrimSpace(*manifest) == "" {
		fmt.Fprintln(stderr, "-manifest is required")
		fs.Usage()
		return exitUsage
	}
	artifacts, err := readManifest(*manifest, stdin)
	if err != nil {
		logger.Printf("read manifest: %v", err)
		return exitUsage
	}
	format, err := (&config.Config{ImportStyle: *importStyle}).ImportFormatter()
	if err != nil {
		logger.Printf("%v", err)
		return exitUsage
	}

	opts := []generation.Option{
		generation.WithImportFormatter(format),
		generation.WithLogger(logger),
	}
	if strings.TrimSpace(*traceDir) != "" {
		opts = append(opts, generation.WithTraceLogger(run.NewTraceLogger(*traceDir)))
	}
	store := output.NewDiskStore(*outDir)
	svc := generation.New(store, opts...)

	report, err := svc.Run(context.Background(), generation.RunRequest{
		RunID:     *runID,
		Artifacts: artifacts,
		Strict:    *strict,
	})
	if report != nil {
		printReport(stdout, report)
	}
	if err != nil {
		var cycle *depgraph.CyclicDependencyError
		if errors.As(err, &cycle) {
			fmt.Fprintf(stderr, "cycle: %s\n", strings.Join(cycle.Cycle, " -> "))
		}
		logger.Printf("generation failed: %v", err)
		return exitFailed
	}

	dir, _ := store.RunDir(report.RunID)
	fmt.Fprintf(stdout, "wrote %d files to %s\n", len(report.Files), dir)
	if len(report.Failed) > 0 {
		return exitPartial
	}
	return exitOK
}

// readManifest accepts either a JSON array of artifacts or an object with an
// "artifacts" field.
func readManifest(path string, stdin io.Reader) ([]artifact.Artifact, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []artifact.Artifact
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Artifacts []artifact.Artifact `json:"artifacts"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return wrapped.Artifacts, nil
}

func printReport(w io.Writer, r *generation.RunReport) {
	fmt.Fprintf(w, "run: %s\n", r.RunID)
	if len(r.Order) > 0 {
		fmt.Fprintln(w, "order:")
		for i, p := range r.Order {
			fmt.Fprintf(w, "  %3d  %s\n", i+1, p)
		}
	}
	if len(r.Levels) > 0 {
		fmt.Fprintf(w, "levels: %d\n", len(r.Levels))
	}
	if len(r.Missing) > 0 {
		fmt.Fprintln(w, "missing dependencies:")
		for _, m := range r.Missing {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "failed: %s: %s\n", f.Path, f.Error)
	}
	if r.Tree != "" {
		fmt.Fprintln(w, r.Tree)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
