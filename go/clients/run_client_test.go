package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/repository"
	"github.com/mcdev12/tempo/go/internal/run/session"
)

func newServer(t *testing.T, token string) string {
	t.Helper()
	app := session.NewApp(repository.NewMemory(), nil, session.DefaultConfig())
	t.Cleanup(app.Close)

	mux := http.NewServeMux()
	mux.Handle(session.NewService(app, session.TokenAuthorizer{Token: token}).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRunClientDrivesASession(t *testing.T) {
	ctx := context.Background()
	c := NewRunClient(newServer(t, "coach"))
	c.SetControllerToken("coach")

	snap, err := c.InitWorkout(ctx, "gym", models.Workout{
		Title:  "Stretch",
		Blocks: []models.Block{{Type: models.BlockTypeStep, BlockID: "s1", Label: "Hamstrings"}},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if snap.Tree.Label != "Stretch" {
		t.Fatalf("unexpected tree: %+v", snap.Tree)
	}

	if _, err := c.UpdateSettings(ctx, "gym", 2); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	snap, err = c.ApplyEvent(ctx, "gym", models.ControlEvent{ID: "e1", Type: models.EventTypeStart, AtMs: snap.ServerNowMs})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if snap.TimeScale != 2 || snap.Derived.Active == nil || snap.Derived.Active.BlockID != "s1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	snap, err = c.GetSnapshot(ctx, "gym")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(snap.Events))
	}
}

func TestRunClientSurfacesConnectCodes(t *testing.T) {
	ctx := context.Background()
	c := NewRunClient(newServer(t, "coach"))

	if _, err := c.GetSnapshot(ctx, "missing"); connect.CodeOf(err) != connect.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	tree := models.Segment{Kind: models.SegmentKindStep, BlockID: "s"}
	if _, err := c.Init(ctx, "gym", tree); connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Fatalf("expected permission denied on init without a token, got %v", err)
	}
	c.SetControllerToken("coach")
	if _, err := c.Init(ctx, "gym", tree); err != nil {
		t.Fatalf("init: %v", err)
	}
	c.SetControllerToken("")
	_, err := c.ApplyEvent(ctx, "gym", models.ControlEvent{ID: "e1", Type: models.EventTypeStart})
	if connect.CodeOf(err) != connect.CodePermissionDenied {
		t.Fatalf("expected permission denied without a token, got %v", err)
	}
}
