package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mcdev12/tempo/go/clients"
	"github.com/mcdev12/tempo/go/internal/run/compiler"
)

type options struct {
	planPath  string
	serverURL string
	sessionID string
	token     string
}

func main() {
	var opts options
	flag.StringVar(&opts.planPath, "plan", "", "YAML workout plan to compile (required)")
	flag.StringVar(&opts.serverURL, "server", "", "tempo server to create a session on, e.g. http://localhost:8080")
	flag.StringVar(&opts.sessionID, "session", "", "session id to initialize when -server is set")
	flag.StringVar(&opts.token, "token", os.Getenv("CONTROLLER_TOKEN"), "controller token")
	flag.Parse()

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// run compiles the plan and prints the runtime tree as JSON. With a server
// set, it also initializes a session from the tree.
func run(ctx context.Context, opts options, out io.Writer) error {
	if opts.planPath == "" {
		return fmt.Errorf("-plan is required")
	}
	f, err := os.Open(opts.planPath)
	if err != nil {
		return fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()

	tree, err := compiler.CompileYAML(f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("write tree: %w", err)
	}

	if opts.serverURL == "" {
		return nil
	}
	if opts.sessionID == "" {
		return fmt.Errorf("-session is required with -server")
	}

	client := clients.NewRunClient(opts.serverURL)
	if opts.token != "" {
		client.SetControllerToken(opts.token)
	}
	snap, err := client.Init(ctx, opts.sessionID, tree)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Session %s ready: %d events, status %s\n", snap.ID, len(snap.Events), snap.Derived.Status)
	return nil
}
