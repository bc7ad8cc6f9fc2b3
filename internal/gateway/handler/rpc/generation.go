package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"pwabuilder/internal/artifact"
	"pwabuilder/internal/depgraph"
	"pwabuilder/internal/gateway/repository/output"
	"pwabuilder/internal/gateway/service/generation"
	"pwabuilder/internal/utils"
)

const (
	GenerationServiceName     = "pwabuilder.v1.GenerationService"
	GenerateProcedure         = "/" + GenerationServiceName + "/Generate"
	GetFileProcedure          = "/" + GenerationServiceName + "/GetFile"
	ListFilesProcedure        = "/" + GenerationServiceName + "/ListFiles"
	generationServicePathBase = "/" + GenerationServiceName + "/"
)

// GenerationHandler exposes the generation service over Connect. Messages are
// google.protobuf.Struct values so clients need no generated stubs.
type GenerationHandler struct {
	svc *generation.Service
}

func NewGenerationHandler(svc *generation.Service) *GenerationHandler {
	return &GenerationHandler{svc: svc}
}

type generateRequest struct {
	RunID     string              `json:"run_id"`
	Strict    bool                `json:"strict"`
	Artifacts []artifact.Artifact `json:"artifacts"`
}

type fileRequest struct {
	RunID string `json:"run_id"`
	Path  string `json:"path"`
}

// Handler returns the service path prefix and an http.Handler serving every
// procedure below it, in the shape mux.Handle expects.
func (h *GenerationHandler) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GenerateProcedure, connect.NewUnaryHandler(GenerateProcedure, h.Generate, opts...))
	mux.Handle(GetFileProcedure, connect.NewUnaryHandler(GetFileProcedure, h.GetFile, opts...))
	mux.Handle(ListFilesProcedure, connect.NewUnaryHandler(ListFilesProcedure, h.ListFiles, opts...))
	return generationServicePathBase, mux
}

func (h *GenerationHandler) Generate(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in generateRequest
	if err := decodeStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	report, err := h.svc.Run(ctx, generation.RunRequest{
		RunID:     in.RunID,
		Artifacts: in.Artifacts,
		Strict:    in.Strict,
	})
	if err != nil {
		return nil, toGenerationError(err, report)
	}
	out, err := encodeStruct(report)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (h *GenerationHandler) GetFile(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in fileRequest
	if err := decodeStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	f, err := h.svc.File(ctx, in.RunID, in.Path)
	if err != nil {
		return nil, toGenerationError(err, nil)
	}
	out, err := structpb.NewStruct(map[string]any{
		"run_id":  strings.TrimSpace(in.RunID),
		"path":    f.Path,
		"content": string(f.Content),
		"url":     f.URL,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func (h *GenerationHandler) ListFiles(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in fileRequest
	if err := decodeStruct(req.Msg, &in); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	paths, err := h.svc.Files(ctx, in.RunID)
	if err != nil {
		return nil, toGenerationError(err, nil)
	}
	list := make([]any, 0, len(paths))
	for _, p := range paths {
		list = append(list, p)
	}
	out, err := structpb.NewStruct(map[string]any{
		"run_id": strings.TrimSpace(in.RunID),
		"paths":  list,
		"tree":   utils.PathsToTree(paths),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// toGenerationError maps service errors to Connect codes. A partial report,
// when present, travels as an error detail.
func toGenerationError(err error, report *generation.RunReport) error {
	var cerr *connect.Error
	switch {
	case errors.Is(err, generation.ErrInvalidRequest):
		cerr = connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, depgraph.ErrCyclicDependency), errors.Is(err, depgraph.ErrMissingDependency):
		cerr = connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, output.ErrNotFound), errors.Is(err, depgraph.ErrNotFound):
		cerr = connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		cerr = connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		cerr = connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		cerr = connect.NewError(connect.CodeInternal, fmt.Errorf("generation failed: %w", err))
	}
	if report != nil {
		if msg, encErr := encodeStruct(report); encErr == nil {
			if detail, detErr := connect.NewErrorDetail(msg); detErr == nil {
				cerr.AddDetail(detail)
			}
		}
	}
	return cerr
}

func decodeStruct(msg *structpb.Struct, v any) error {
	if msg == nil {
		return fmt.Errorf("request body is required")
	}
	raw, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func encodeStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}
