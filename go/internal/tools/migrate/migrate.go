package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/tempo/go/internal/dbconfig"
	"github.com/mcdev12/tempo/go/internal/models"
	"github.com/mcdev12/tempo/go/internal/run/repository"
	"github.com/mcdev12/tempo/go/internal/run/schema"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type summary struct {
	total    int
	inserted int
	skipped  int
	errs     int
}

func main() {
	importPath := flag.String("import", "", "JSON array of exported session records to load after migrating")
	flag.Parse()

	ctx := context.Background()

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Create tables
	if _, err := pool.Exec(ctx, repository.PostgresSchema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Schema applied to %s\n", cfg.Database)

	if *importPath == "" {
		return
	}

	// 3) Load exported records, upgrading old versions on the way in
	data, err := os.ReadFile(*importPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	s, err := importRecords(ctx, pool, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(
		"Session import complete: %d total, %d inserted, %d skipped, %d errors\n",
		s.total, s.inserted, s.skipped, s.errs,
	)
}

// importRecords inserts each record unless a session with its id exists.
// Records that fail to upgrade or insert are counted and skipped.
func importRecords(ctx context.Context, db execer, data []byte) (summary, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return summary{}, fmt.Errorf("unmarshal JSON: %w", err)
	}

	s := summary{total: len(records)}
	for i, raw := range records {
		sess, err := schema.Upgrade(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error upgrading record %d: %v\n", i, err)
			s.errs++
			continue
		}
		record, err := schema.Encode(sess)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error encoding session %s: %v\n", sess.ID, err)
			s.errs++
			continue
		}

		cmdTag, err := db.Exec(ctx, `
            INSERT INTO run_sessions (
              session_id, schema_version, record, created_at, updated_at
            ) VALUES (
              $1,$2,$3,$4,$5
            )
            ON CONFLICT (session_id) DO NOTHING
        `,
			sess.ID, models.SessionSchemaVersion, record, sess.CreatedAt, sess.UpdatedAt,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting session %s: %v\n", sess.ID, err)
			s.errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			s.inserted++
		} else {
			s.skipped++
		}
	}
	return s, nil
}
