// Command fixture-export captures a journaled session as a replay
// fixture: the envelope sequence plus the hash it replays to, for
// hash-regression checks against future builds.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zenb-io/zenb/go-core/internal/domain"
	"github.com/zenb-io/zenb/go-core/internal/journal"
	"github.com/zenb-io/zenb/go-core/internal/replay"
)

func main() {
	dbPath := flag.String("db", "", "path to journal db")
	sessionID := flag.String("session", "", "session id to export")
	out := flag.String("out", "", "output fixture path")
	desc := flag.String("desc", "", "fixture description")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db journal.db --session <id> --out fixture.json [--desc text]")
		os.Exit(2)
	}

	j, err := journal.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer j.Close()

	envs, err := j.LoadSession(domain.SessionID(*sessionID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session: %v\n", err)
		os.Exit(1)
	}
	if len(envs) == 0 {
		fmt.Fprintf(os.Stderr, "session %s has no events\n", *sessionID)
		os.Exit(1)
	}

	description := *desc
	if description == "" {
		description = fmt.Sprintf("session %s (%d events)", *sessionID, len(envs))
	}

	if err := replay.SaveFixture(*out, description, envs); err != nil {
		fmt.Fprintf(os.Stderr, "export fixture: %v\n", err)
		os.Exit(1)
	}

	hash, err := replay.VerifyFixture(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify fixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d events to %s (hash %s)\n", len(envs), *out, hash)
}
