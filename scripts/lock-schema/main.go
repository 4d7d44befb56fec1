// lock-schema freezes the live base schema into a lock snapshot.
//
// It fetches the table/field metadata from the record store, filters it
// down to the tables and fields the engine depends on, and writes the
// result as JSON. Tables or fields absent from the live base are recorded
// as missing rather than failing the run, so the output always reflects
// the full required surface.
//
// Usage: go run ./scripts/lock-schema [-out schema.lock.json]
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
	out := flag.String("out", "schema.lock.json", "output path for the lock snapshot")
	timeout := flag.Duration("timeout", 30*time.Second, "metadata fetch timeout")
	flag.Parse()

	token := os.Getenv("AIRTABLE_API_TOKEN")
	baseID := os.Getenv("AIRTABLE_BASE_ID")
	if token == "" || baseID == "" {
		fmt.Fprintln(os.Stderr, "AIRTABLE_API_TOKEN and AIRTABLE_BASE_ID must be set")
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

	generatedAt := time.Now().Format("2006-01-02T15:04:05-0700")
	lock := schemalock.BuildLock(live, schemalock.RequiredTables, baseID, generatedAt)

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode lock: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}

	missing := 0
	for name, t := range lock.Tables {
		if t.Missing {
			fmt.Fprintf(os.Stderr, "warning: table %s is missing from the live base\n", name)
			missing++
			continue
		}
		for _, f := range t.MissingFields {
			fmt.Fprintf(os.Stderr, "warning: field %s.%s is missing from the live base\n", name, f)
		}
	}
	fmt.Printf("wrote %s (%d tables, %d missing)\n", *out, len(lock.Tables), missing)
}
