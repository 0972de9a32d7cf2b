package clients

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/runrpc"
)

// RunClient calls the run service of a tempo server.
type RunClient struct {
	*BaseClient

	init           *connect.Client[runrpc.InitRequest, runrpc.SnapshotResponse]
	getSnapshot    *connect.Client[runrpc.GetSnapshotRequest, runrpc.SnapshotResponse]
	applyEvent     *connect.Client[runrpc.ApplyEventRequest, runrpc.SnapshotResponse]
	updateSettings *connect.Client[runrpc.UpdateSettingsRequest, runrpc.SnapshotResponse]
}

// NewRunClient creates a client for the server at baseURL, e.g. http://localhost:8080
func NewRunClient(baseURL string, opts ...connect.ClientOption) *RunClient {
	c := &RunClient{BaseClient: NewBaseClient(baseURL)}

	opts = append([]connect.ClientOption{
		connect.WithCodec(runrpc.JSONCodec{}),
		connect.WithInterceptors(c.headerInterceptor()),
	}, opts...)

	c.init = connect.NewClient[runrpc.InitRequest, runrpc.SnapshotResponse](c.client, baseURL+runrpc.InitProcedure, opts...)
	c.getSnapshot = connect.NewClient[runrpc.GetSnapshotRequest, runrpc.SnapshotResponse](c.client, baseURL+runrpc.GetSnapshotProcedure, opts...)
	c.applyEvent = connect.NewClient[runrpc.ApplyEventRequest, runrpc.SnapshotResponse](c.client, baseURL+runrpc.ApplyEventProcedure, opts...)
	c.updateSettings = connect.NewClient[runrpc.UpdateSettingsRequest, runrpc.SnapshotResponse](c.client, baseURL+runrpc.UpdateSettingsProcedure, opts...)
	return c
}

// SetControllerToken authenticates write calls.
func (c *RunClient) SetControllerToken(token string) {
	c.SetHeader(runrpc.ControllerTokenHeader, token)
}

// Init creates a session from an already compiled tree.
func (c *RunClient) Init(ctx context.Context, sessionID string, tree models.Segment) (*models.Snapshot, error) {
	return c.call(c.init.CallUnary(ctx, connect.NewRequest(&runrpc.InitRequest{SessionID: sessionID, Tree: &tree})))
}

// InitWorkout creates a session from a workout the server compiles.
func (c *RunClient) InitWorkout(ctx context.Context, sessionID string, workout models.Workout) (*models.Snapshot, error) {
	return c.call(c.init.CallUnary(ctx, connect.NewRequest(&runrpc.InitRequest{SessionID: sessionID, Workout: &workout})))
}

func (c *RunClient) GetSnapshot(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	return c.call(c.getSnapshot.CallUnary(ctx, connect.NewRequest(&runrpc.GetSnapshotRequest{SessionID: sessionID})))
}

func (c *RunClient) ApplyEvent(ctx context.Context, sessionID string, event models.ControlEvent) (*models.Snapshot, error) {
	return c.call(c.applyEvent.CallUnary(ctx, connect.NewRequest(&runrpc.ApplyEventRequest{SessionID: sessionID, Event: event})))
}

func (c *RunClient) UpdateSettings(ctx context.Context, sessionID string, timeScale float64) (*models.Snapshot, error) {
	return c.call(c.updateSettings.CallUnary(ctx, connect.NewRequest(&runrpc.UpdateSettingsRequest{SessionID: sessionID, TimeScale: timeScale})))
}

func (c *RunClient) call(res *connect.Response[runrpc.SnapshotResponse], err error) (*models.Snapshot, error) {
	if err != nil {
		return nil, fmt.Errorf("run service call failed: %w", err)
	}
	return &res.Msg.Snapshot, nil
}
