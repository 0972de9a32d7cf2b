package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/repository"
	"github.com/mcdev12/tempo/go/internal/run/session"
)

const plan = `
title: Tabata
blocks:
  - type: interval
    blockId: tabata
    rounds: 8
    workMs: 20000
    restMs: 10000
`

func writePlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(plan), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestRunPrintsCompiledTree(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), options{planPath: writePlan(t)}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var tree models.Segment
	if err := json.Unmarshal(out.Bytes(), &tree); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if tree.Label != "Tabata" || len(tree.Children) != 1 || tree.Children[0].Kind != models.SegmentKindRepeat {
		t.Fatalf("unexpected tree: %+v", tree)
	}
}

func TestRunInitializesSession(t *testing.T) {
	app := session.NewApp(repository.NewMemory(), nil, session.DefaultConfig())
	defer app.Close()
	mux := http.NewServeMux()
	mux.Handle(session.NewService(app, nil).Handler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	opts := options{planPath: writePlan(t), serverURL: srv.URL, sessionID: "gym"}
	if err := run(context.Background(), opts, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap, err := app.Snapshot(context.Background(), "gym")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Tree.Label != "Tabata" {
		t.Fatalf("unexpected session tree: %+v", snap.Tree)
	}
}

func TestRunValidatesFlags(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), options{}, &out); err == nil {
		t.Fatalf("expected -plan to be required")
	}
	if err := run(context.Background(), options{planPath: writePlan(t), serverURL: "http://localhost:1"}, &out); err == nil {
		t.Fatalf("expected -session to be required with -server")
	}
}
