package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/compiler"
	"github.com/mcdev12/tempo/go/internal/run/runrpc"
)

// SessionApp defines what the service layer needs from the session application
type SessionApp interface {
	Init(ctx context.Context, id string, tree models.Segment) (*models.Snapshot, error)
	Snapshot(ctx context.Context, id string) (*models.Snapshot, error)
	ApplyEvent(ctx context.Context, id string, event models.ControlEvent) (*models.Snapshot, error)
	UpdateSettings(ctx context.Context, id string, settings models.RunSettings) (*models.Snapshot, error)
}

// Service exposes the session app over Connect
type Service struct {
	app  SessionApp
	auth Authorizer
}

// NewService creates a new run service
func NewService(app SessionApp, auth Authorizer) *Service {
	if auth == nil {
		auth = AllowAll{}
	}
	return &Service{
		app:  app,
		auth: auth,
	}
}

// Handler returns the mount path and HTTP handler serving every run procedure
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(runrpc.JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(runrpc.InitProcedure, connect.NewUnaryHandler(runrpc.InitProcedure, s.Init, opts...))
	mux.Handle(runrpc.GetSnapshotProcedure, connect.NewUnaryHandler(runrpc.GetSnapshotProcedure, s.GetSnapshot, opts...))
	mux.Handle(runrpc.ApplyEventProcedure, connect.NewUnaryHandler(runrpc.ApplyEventProcedure, s.ApplyEvent, opts...))
	mux.Handle(runrpc.UpdateSettingsProcedure, connect.NewUnaryHandler(runrpc.UpdateSettingsProcedure, s.UpdateSettings, opts...))
	return "/" + runrpc.ServiceName + "/", mux
}

// Init creates a session from a compiled tree or a workout to compile
func (s *Service) Init(ctx context.Context, req *connect.Request[runrpc.InitRequest]) (*connect.Response[runrpc.SnapshotResponse], error) {
	if err := s.auth.Authorize(ctx, req.Msg.SessionID, req.Header()); err != nil {
		return nil, toConnectError(err)
	}

	tree, err := treeFromRequest(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	snap, err := s.app.Init(ctx, req.Msg.SessionID, tree)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&runrpc.SnapshotResponse{Snapshot: *snap}), nil
}

// GetSnapshot returns the current snapshot of a session
func (s *Service) GetSnapshot(ctx context.Context, req *connect.Request[runrpc.GetSnapshotRequest]) (*connect.Response[runrpc.SnapshotResponse], error) {
	snap, err := s.app.Snapshot(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&runrpc.SnapshotResponse{Snapshot: *snap}), nil
}

// ApplyEvent appends a control event from the session's controller
func (s *Service) ApplyEvent(ctx context.Context, req *connect.Request[runrpc.ApplyEventRequest]) (*connect.Response[runrpc.SnapshotResponse], error) {
	if err := s.auth.Authorize(ctx, req.Msg.SessionID, req.Header()); err != nil {
		return nil, toConnectError(err)
	}

	snap, err := s.app.ApplyEvent(ctx, req.Msg.SessionID, req.Msg.Event)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&runrpc.SnapshotResponse{Snapshot: *snap}), nil
}

// UpdateSettings changes the settings of a session that has not started
func (s *Service) UpdateSettings(ctx context.Context, req *connect.Request[runrpc.UpdateSettingsRequest]) (*connect.Response[runrpc.SnapshotResponse], error) {
	if err := s.auth.Authorize(ctx, req.Msg.SessionID, req.Header()); err != nil {
		return nil, toConnectError(err)
	}

	snap, err := s.app.UpdateSettings(ctx, req.Msg.SessionID, models.RunSettings{TimeScale: req.Msg.TimeScale})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&runrpc.SnapshotResponse{Snapshot: *snap}), nil
}

func treeFromRequest(req *runrpc.InitRequest) (models.Segment, error) {
	switch {
	case req.Tree != nil && req.Workout != nil:
		return models.Segment{}, errors.New("set either tree or workout, not both")
	case req.Tree != nil:
		return *req.Tree, nil
	case req.Workout != nil:
		tree, err := compiler.Compile(*req.Workout)
		if err != nil {
			return models.Segment{}, fmt.Errorf("failed to compile workout: %w", err)
		}
		return tree, nil
	default:
		return models.Segment{}, errors.New("tree or workout is required")
	}
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrRunStarted):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrUnauthorized):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		log.Error().Err(err).Msg("run service call failed")
		return connect.NewError(connect.CodeInternal, err)
	}
}
