// Package api provides the gRPC admin API for switchboard.
//
// The service is declared by hand (see desc.go) and speaks JSON over gRPC, so
// there is no generated code. Every call is authenticated by the auth
// interceptor; importing additionally requires a superuser principal.
package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/solatis/switchboard/internal/core/auth"
	"github.com/solatis/switchboard/internal/core/config"
	"github.com/solatis/switchboard/internal/editor"
	"github.com/solatis/switchboard/internal/transport"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AdminService implements AdminServer.
// Thin orchestration over the editor workflow and the transport codec.
type AdminService struct {
	store          editor.Store
	editor         *editor.Editor
	codec          *transport.Codec
	maxImportBytes int
	logger         *zap.Logger
}

// NewAdminService creates the service.
func NewAdminService(store editor.Store, ed *editor.Editor, codec *transport.Codec, cfg *config.AdminAPIConfig, logger *zap.Logger) (*AdminService, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if ed == nil {
		return nil, fmt.Errorf("editor cannot be nil")
	}
	if codec == nil {
		return nil, fmt.Errorf("codec cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		store:          store,
		editor:         ed,
		codec:          codec,
		maxImportBytes: cfg.MaxImportBytes,
		logger:         logger,
	}, nil
}

// ListSwitches returns every stored switch ordered by name.
func (s *AdminService) ListSwitches(ctx context.Context, req *ListSwitchesRequest) (*ListSwitchesResponse, error) {
	switches, err := s.store.Switches(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &ListSwitchesResponse{Switches: switches}, nil
}

// Choices returns the operator and argument choices the editor offers.
func (s *AdminService) Choices(ctx context.Context, req *ChoicesRequest) (*ChoicesResponse, error) {
	m := s.editor.Materializer()
	return &ChoicesResponse{
		Operators:         m.Operators().Choices(),
		Arguments:         m.Arguments().Choices(),
		OperatorArguments: m.Operators().Arguments(),
	}, nil
}

// UpdateSwitch applies one editor submission. An invalid submission is not an
// RPC error: the response carries the outcome "invalid" and per-field messages.
func (s *AdminService) UpdateSwitch(ctx context.Context, req *UpdateSwitchRequest) (*UpdateSwitchResponse, error) {
	outcome, page, err := s.editor.Update(ctx, url.Values(req.Values))
	if err != nil {
		return nil, statusFromError(err)
	}

	resp := &UpdateSwitchResponse{Outcome: outcome.String()}
	if outcome == editor.OutcomeInvalid && page != nil && len(page.Switches) > 0 {
		resp.Errors = page.Switches[0].AllErrors()
		resp.Notice = page.Notices[editor.NoticeError]
	}
	return resp, nil
}

// DeleteSwitch removes a switch through the editor's delete path.
func (s *AdminService) DeleteSwitch(ctx context.Context, req *DeleteSwitchRequest) (*DeleteSwitchResponse, error) {
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	values := url.Values{
		editor.FieldName:   {req.Name},
		editor.FieldDelete: {"on"},
	}
	if _, _, err := s.editor.Update(ctx, values); err != nil {
		return nil, statusFromError(err)
	}
	return &DeleteSwitchResponse{}, nil
}

// ExportSwitches armors the named switches, or all when none are named.
func (s *AdminService) ExportSwitches(ctx context.Context, req *ExportSwitchesRequest) (*ExportSwitchesResponse, error) {
	block, err := s.codec.Export(ctx, req.Names)
	if err != nil {
		return nil, statusFromError(err)
	}
	return &ExportSwitchesResponse{SwitchBlock: block}, nil
}

// ImportSwitches registers every switch in an armored block.
// Requires a superuser principal.
func (s *AdminService) ImportSwitches(ctx context.Context, req *ImportSwitchesRequest) (*ImportSwitchesResponse, error) {
	if err := auth.RequireSuperuser(ctx); err != nil {
		return nil, statusFromError(err)
	}
	if len(req.SwitchBlock) > s.maxImportBytes {
		return nil, status.Errorf(codes.ResourceExhausted,
			"switch block is %d bytes, limit is %d", len(req.SwitchBlock), s.maxImportBytes)
	}

	result, err := s.codec.Import(ctx, req.SwitchBlock)
	if err != nil {
		return nil, statusFromError(err)
	}

	principal := auth.PrincipalFromContext(ctx)
	s.logger.Info("switch block imported",
		zap.String("principal", principal.ID),
		zap.String("import_id", result.ImportID),
		zap.Int("registered", len(result.Registered)),
		zap.Int("failed", len(result.Failed)))

	resp := &ImportSwitchesResponse{
		ImportID:   result.ImportID,
		Registered: result.Registered,
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, ImportFailure{Name: f.Name, Error: f.Err.Error()})
	}
	return resp, nil
}
