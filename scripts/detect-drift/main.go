// detect-drift compares the live base schema against a lock snapshot and
// reports added tables, removed tables, and per-table field deltas.
//
// Exit codes: 0 means no drift, 1 means a runtime failure, 2 means drift
// was detected. CI gates on the exit code; humans read the JSON report.
//
// Usage: go run ./scripts/detect-drift [-lock schema.lock.json]
//
// Credentials come from AIRTABLE_API_TOKEN and AIRTABLE_BASE_ID.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gets-logistics/gets-engine/pkg/recordstore"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
)

func main() {
	lockPath := flag.String("lock", "schema.lock.json", "path to the lock snapshot")
	timeout := flag.Duration("timeout", 30*time.Second, "metadata fetch timeout")
	flag.Parse()

	token := os.Getenv("AIRTABLE_API_TOKEN")
	baseID := os.Getenv("AIRTABLE_BASE_ID")
	if token == "" || baseID == "" {
		fmt.Fprintln(os.Stderr, "AIRTABLE_API_TOKEN and AIRTABLE_BASE_ID must be set")
		os.Exit(1)
	}

	lock, err := schemalock.ReadLock(*lockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load lock: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := recordstore.NewClient(token, baseID)
	live, err := client.FetchBaseSchema(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch base schema: %v\n", err)
		os.Exit(1)
	}

	drift := schemalock.Diff(live, lock)
	if drift.Clean() {
		fmt.Printf("no drift against %s (generated %s)\n", *lockPath, lock.GeneratedAt)
		return
	}

	report, err := json.MarshalIndent(drift, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode drift report: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(report))
	os.Exit(2)
}
