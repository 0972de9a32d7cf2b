package main

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/schema"
)

// fakeDB reports ids it has already seen as conflicts.
type fakeDB struct {
	seen    map[string]bool
	records map[string][]byte
	failOn  string
}

func (f *fakeDB) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	id := args[0].(string)
	if id == f.failOn {
		return pgconn.CommandTag{}, errors.New("connection reset")
	}
	if f.seen[id] {
		return pgconn.NewCommandTag("INSERT 0 0"), nil
	}
	f.seen[id] = true
	f.records[id] = args[2].([]byte)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestImportRecords(t *testing.T) {
	db := &fakeDB{seen: map[string]bool{"dup": true}, records: map[string][]byte{}, failOn: "flaky"}
	data := []byte(`[
		{"id":"legacy","tree":{"kind":"step","blockId":"s"},"events":[{"id":"n","type":"next","atMs":5}],"timeScale":2},
		{"id":"dup","schemaVersion":2,"tree":{"kind":"step","blockId":"s"},"events":[],"settings":{"timeScale":1}},
		{"id":"flaky","schemaVersion":2,"tree":{"kind":"step","blockId":"s"},"events":[],"settings":{"timeScale":1}},
		{"id":"future","schemaVersion":99}
	]`)

	s, err := importRecords(context.Background(), db, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if s.total != 4 || s.inserted != 1 || s.skipped != 1 || s.errs != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	sess, err := schema.Upgrade(db.records["legacy"])
	if err != nil {
		t.Fatalf("stored record does not decode: %v", err)
	}
	if sess.SchemaVersion != models.SessionSchemaVersion || sess.Settings.TimeScale != 2 {
		t.Fatalf("expected the legacy record to be stored upgraded, got %+v", sess)
	}
	if sess.Events[0].Type != models.EventTypeAdvance {
		t.Fatalf("expected the legacy alias to be stored as advance, got %s", sess.Events[0].Type)
	}
}

func TestImportRecordsRejectsNonArray(t *testing.T) {
	if _, err := importRecords(context.Background(), &fakeDB{}, []byte(`{"id":"x"}`)); err == nil {
		t.Fatalf("expected an error for a non-array export")
	}
}
