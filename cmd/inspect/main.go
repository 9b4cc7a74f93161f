// Command inspect lists journaled sessions and shows the replayed
// aggregate state of a single session.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/zenb-io/zenb/go-core/internal/domain"
	"github.com/zenb-io/zenb/go-core/internal/journal"
	"github.com/zenb-io/zenb/go-core/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to journal db")
	sessionID := flag.String("session", "", "show single session detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/journal.db [--session id] [--json]")
		os.Exit(2)
	}

	j, err := journal.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}
	defer j.Close()

	if *sessionID != "" {
		err = runDetailMode(j, domain.SessionID(*sessionID), *jsonOut)
	} else {
		err = runListMode(j, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID  string `json:"session_id"`
	EventCount int64  `json:"event_count"`
	LastTsUs   int64  `json:"last_ts_us"`
}

func runListMode(j *journal.Journal, jsonOut bool) error {
	infos, err := j.ListSessions()
	if err != nil {
		return err
	}

	rows := make([]listRow, len(infos))
	for i, info := range infos {
		rows[i] = listRow{
			SessionID:  string(info.SessionID),
			EventCount: info.EventCount,
			LastTsUs:   info.LastTsUs,
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("%-38s| %-8s| %s\n", "Session", "Events", "Last ts (us)")
	for _, r := range rows {
		fmt.Printf("%-38s| %-8d| %d\n", r.SessionID, r.EventCount, r.LastTsUs)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOut struct {
	State domain.BreathState `json:"state"`
	Hash  string             `json:"hash"`
}

func runDetailMode(j *journal.Journal, id domain.SessionID, jsonOut bool) error {
	envs, err := j.LoadSession(id)
	if err != nil {
		return err
	}
	if len(envs) == 0 {
		return fmt.Errorf("session %s has no events", id)
	}

	state, err := replay.Replay(envs)
	if err != nil {
		return err
	}
	hash, err := state.Hash()
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detailOut{State: state, Hash: hash})
	}

	fmt.Printf("Session:  %s\n", state.SessionID)
	fmt.Printf("Mode:     %s\n", state.Mode)
	fmt.Printf("Events:   %d (seq watermark %d)\n", state.EventCount, state.LastSeq)
	fmt.Printf("Cycles:   %d\n", state.CyclesCompleted)
	if state.LastDecision != nil {
		fmt.Printf("Decision: %.2f bpm @ conf %.2f (poll %dms)\n",
			state.LastDecision.TargetRateBPM, state.LastDecision.Confidence,
			state.LastDecision.RecommendedPollIntervalMS)
	}
	fmt.Printf("Belief:   p=%v conf=%.2f mode=%d\n", state.BeliefP, state.BeliefConf, state.BeliefMode)
	fmt.Printf("Hash:     %s\n", hash)
	return nil
}

// #endregion detail-mode
