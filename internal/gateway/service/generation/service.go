// Package generation drives one artifact generation run: ingest rendered
// artifacts into a dependency graph, order them, splice imports and persist
// the assembled files.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"pwabuilder/internal/artifact"
	"pwabuilder/internal/depgraph"
	"pwabuilder/internal/gateway/repository/output"
	"pwabuilder/internal/gateway/run"
	"pwabuilder/internal/utils"
)

const traceSource = "generation"

var ErrInvalidRequest = errors.New("invalid generation request")

type RunRequest struct {
	RunID     string
	Artifacts []artifact.Artifact
	// Strict turns missing dependencies into a run failure.
	Strict bool
}

type FileFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type RunReport struct {
	RunID   string                       `json:"run_id"`
	Order   []string                     `json:"order"`
	Levels  [][]string                   `json:"levels,omitempty"`
	Missing []artifact.MissingDependency `json:"missing,omitempty"`
	Files   []string                     `json:"files"`
	Failed  []FileFailure                `json:"failed,omitempty"`
	Tree    string                       `json:"tree,omitempty"`
}

type FileContent struct {
	Path    string
	Content []byte
	URL     string
}

type Service struct {
	store  output.Store
	broker *run.EventBroker
	trace  *run.TraceLogger
	ids    *utils.RunIDGenerator
	format depgraph.ImportFormatter
	strict bool
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Service)

func WithTraceLogger(l *run.TraceLogger) Option {
	return func(s *Service) { s.trace = l }
}

func WithEventBroker(b *run.EventBroker) Option {
	return func(s *Service) {
		if b != nil {
			s.broker = b
		}
	}
}

func WithImportFormatter(f depgraph.ImportFormatter) Option {
	return func(s *Service) {
		if f != nil {
			s.format = f
		}
	}
}

// WithStrictDefault makes every run strict regardless of RunRequest.Strict.
func WithStrictDefault(strict bool) Option {
	return func(s *Service) { s.strict = strict }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(store output.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		broker: run.NewEventBroker(),
		ids:    utils.NewRunIDGenerator(),
		format: depgraph.RelativeImport,
		logger: log.Default(),
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one generation run. The report is returned together with the
// error whenever the request passed validation, so callers can still show
// the missing dependencies of a run that failed on a cycle.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("generation service is not initialized")
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = s.ids.Next(fmt.Sprintf("run-%d", time.Now().UnixNano()))
	} else {
		s.ids.Reserve(runID)
	}

	lock := s.runLock(runID)
	lock.Lock()
	defer lock.Unlock()
	s.broker.Reopen(runID)

	strict := req.Strict || s.strict
	policy := depgraph.MissingWarn
	if strict {
		policy = depgraph.MissingError
	}
	g := depgraph.New(
		depgraph.WithImportFormatter(s.format),
		depgraph.WithMissingPolicy(policy),
		depgraph.WithLogger(s.logger),
	)

	report := &RunReport{RunID: runID, Files: []string{}}
	s.publish(run.Event{RunID: runID, Kind: run.EventRunStarted,
		Message: fmt.Sprintf("%d artifacts, strict=%t", len(req.Artifacts), strict)})

	for _, a := range req.Artifacts {
		g.AddArtifact(a)
	}

	report.Missing = g.MissingDependencies()
	for _, m := range report.Missing {
		s.publish(run.Event{RunID: runID, Kind: run.EventMissingDependency, Path: m.ArtifactPath, Dependency: m.MissingDependencyPath})
	}

	order, err := g.GenerationOrder()
	if err != nil {
		return report, s.fail(runID, err)
	}
	report.Order = order
	if report.Levels, err = g.Levels(); err != nil {
		return report, s.fail(runID, err)
	}

	for _, path := range order {
		if err := ctx.Err(); err != nil {
			return report, s.fail(runID, err)
		}
		content, err := g.Assemble(path)
		if err != nil {
			// only this artifact is affected
			report.Failed = append(report.Failed, FileFailure{Path: path, Error: err.Error()})
			continue
		}
		if err := s.store.Put(ctx, runID, path, []byte(content)); err != nil {
			report.Failed = append(report.Failed, FileFailure{Path: path, Error: err.Error()})
			s.logger.Printf("generation: run=%s write %s failed: %v", runID, path, err)
			continue
		}
		report.Files = append(report.Files, path)
		s.publish(run.Event{RunID: runID, Kind: run.EventFileWritten, Path: path})
	}
	report.Tree = utils.PathsToTree(report.Files)

	s.publish(run.Event{RunID: runID, Kind: run.EventRunFinished,
		Message: fmt.Sprintf("%d written, %d failed, %d missing", len(report.Files), len(report.Failed), len(report.Missing))})
	s.logger.Printf("generation: run=%s files=%d failed=%d missing=%d levels=%d",
		runID, len(report.Files), len(report.Failed), len(report.Missing), len(report.Levels))
	return report, nil
}

// Subscribe streams the events of runID. See run.EventBroker.Subscribe.
func (s *Service) Subscribe(ctx context.Context, runID string) (<-chan run.Event, error) {
	return s.broker.Subscribe(ctx, runID)
}

// Files lists the persisted output of runID.
func (s *Service) Files(ctx context.Context, runID string) ([]string, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("%w: run_id is required", ErrInvalidRequest)
	}
	return s.store.List(ctx, runID)
}

// File reads back one assembled file and, when the store can serve it, a
// download URL.
func (s *Service) File(ctx context.Context, runID, path string) (*FileContent, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("%w: run_id is required", ErrInvalidRequest)
	}
	path = artifact.NormalizePath(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	content, err := s.store.Get(ctx, runID, path)
	if err != nil {
		return nil, err
	}
	url, err := s.store.GetURL(ctx, runID, path)
	if err != nil {
		s.logger.Printf("generation: run=%s url for %s: %v", runID, path, err)
		url = ""
	}
	return &FileContent{Path: path, Content: content, URL: url}, nil
}

// Trace returns the persisted trace of runID.
func (s *Service) Trace(runID string) ([]run.TraceEntry, error) {
	if s.trace == nil {
		return []run.TraceEntry{}, nil
	}
	return s.trace.Read(runID)
}

func validate(req RunRequest) error {
	if len(req.Artifacts) == 0 {
		return fmt.Errorf("%w: at least one artifact is required", ErrInvalidRequest)
	}
	for i, a := range req.Artifacts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: artifacts[%d]: %v", ErrInvalidRequest, i, err)
		}
	}
	return nil
}

func (s *Service) runLock(runID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[runID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[runID] = l
	}
	return l
}

func (s *Service) fail(runID string, err error) error {
	s.publish(run.Event{RunID: runID, Kind: run.EventRunFailed, Message: err.Error()})
	s.logger.Printf("generation: run=%s failed: %v", runID, err)
	return err
}

func (s *Service) publish(ev run.Event) {
	ev = s.broker.Publish(ev)
	fields := map[string]any{"seq": ev.Seq}
	if ev.Path != "" {
		fields["path"] = ev.Path
	}
	if ev.Dependency != "" {
		fields["dependency"] = ev.Dependency
	}
	if ev.Message != "" {
		fields["message"] = ev.Message
	}
	if err := s.trace.Append(ev.RunID, traceSource, string(ev.Kind), fields); err != nil {
		s.logger.Printf("generation: run=%s trace: %v", ev.RunID, err)
	}
}
