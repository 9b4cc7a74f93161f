// Command replay rebuilds a session's aggregate from its envelope log
// and verifies the determinism contract: two independent replays must
// hash identically, and fixtures must replay to their recorded hash.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/zenb-io/zenb/go-core/internal/domain"
	"github.com/zenb-io/zenb/go-core/internal/journal"
	"github.com/zenb-io/zenb/go-core/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to journal db (DB mode, requires --session)")
	sessionID := flag.String("session", "", "session id to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	flag.Parse()

	dbMode := *dbPath != "" && *sessionID != ""
	fixtureMode := *fixturePath != ""
	if dbMode == fixtureMode {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/journal.db --session <id>")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if fixtureMode {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, sessionID string) int {
	j, err := journal.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		return 2
	}
	defer j.Close()

	envs, err := j.LoadSession(domain.SessionID(sessionID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load session: %v\n", err)
		return 2
	}
	if len(envs) == 0 {
		fmt.Fprintf(os.Stderr, "session %s has no events\n", sessionID)
		return 2
	}

	hash, err := replay.VerifyDeterminism(envs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}

	printEvents(envs)
	fmt.Printf("\n%d events replayed, hash %s (verified across two replays)\n", len(envs), hash)
	return 0
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	f, envs, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	hash, err := replay.VerifyDeterminism(envs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}

	printEvents(envs)
	match := "OK"
	exit := 0
	if hash != f.ExpectedHash {
		match = "DIFF"
		exit = 1
	}
	fmt.Printf("\nExpected: %s\nReplayed: %s\nMatch:    %s\n", f.ExpectedHash, hash, match)
	return exit
}

// #endregion fixture-mode

// #region output

func printEvents(envs []domain.Envelope) {
	fmt.Printf("%-5s| %-14s| %s\n", "Seq", "Ts (us)", "Kind")
	fmt.Printf("%-5s+%-15s+%s\n", "-----", "---------------", "----------------------")
	for _, env := range envs {
		fmt.Printf("%-5d| %-14d| %s\n", env.Seq, env.TsUs, env.Event.Kind())
	}
}

// #endregion output
