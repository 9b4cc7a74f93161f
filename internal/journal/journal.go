// Package journal persists session envelopes in SQLite as an
// append-only log, enforcing the strict per-session seq ordering the
// replay invariant depends on.
package journal

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/zenb-io/zenb/go-core/internal/domain"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	started_us  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	session_id     TEXT NOT NULL,
	seq            INTEGER NOT NULL,
	ts_us          INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	envelope_json  TEXT NOT NULL,
	PRIMARY KEY (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// #endregion schema

// #region journal-struct

// Journal is the durable envelope log. Appends are serialized per
// process; the (session_id, seq) primary key backstops the ordering
// invariant against any second writer.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// SessionInfo summarizes one journaled session.
type SessionInfo struct {
	SessionID  domain.SessionID
	EventCount int64
	LastTsUs   int64
}

// #endregion journal-struct

// #region constructor

// Open opens (or creates) a journal database and runs migrations.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// DB returns the underlying *sql.DB for inspection tooling.
func (j *Journal) DB() *sql.DB {
	return j.db
}

// #endregion constructor

// #region append

// Append durably appends one envelope. The envelope's Seq must be
// exactly one past the session's current watermark and its timestamp
// must not regress; violations surface the domain protocol errors
// rather than being patched.
func (j *Journal) Append(env domain.Envelope) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := domain.MarshalEnvelope(env)
	if err != nil {
		return fmt.Errorf("append seq %d: %w", env.Seq, err)
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq, lastTsUs int64
	err = tx.QueryRow(
		`SELECT seq, ts_us FROM events WHERE session_id = ? ORDER BY seq DESC LIMIT 1`,
		string(env.SessionID),
	).Scan(&lastSeq, &lastTsUs)
	switch {
	case err == sql.ErrNoRows:
		lastSeq, lastTsUs = 0, 0
	case err != nil:
		return fmt.Errorf("read watermark: %w", err)
	}

	switch {
	case env.Seq == uint64(lastSeq)+1:
		// in order
	case env.Seq <= uint64(lastSeq):
		return fmt.Errorf("append seq %d at watermark %d: %w", env.Seq, lastSeq, domain.ErrDuplicateSeq)
	default:
		return fmt.Errorf("append seq %d at watermark %d: %w", env.Seq, lastSeq, domain.ErrSequenceGap)
	}
	if lastSeq > 0 && env.TsUs < lastTsUs {
		return fmt.Errorf("append ts %dus after %dus: %w", env.TsUs, lastTsUs, domain.ErrTimestampRegression)
	}

	if env.Seq == 1 {
		if _, err := tx.Exec(
			`INSERT INTO sessions (session_id, started_us) VALUES (?, ?)`,
			string(env.SessionID), env.TsUs,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO events (session_id, seq, ts_us, kind, envelope_json) VALUES (?, ?, ?, ?, ?)`,
		string(env.SessionID), int64(env.Seq), env.TsUs, string(env.Event.Kind()), string(data),
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return tx.Commit()
}

// #endregion append

// #region load

// LoadSession returns a session's envelopes in seq order, verifying
// contiguity from 1. A gap in the stored log is a protocol fault that
// aborts the load; replaying around it would mis-hash the aggregate.
func (j *Journal) LoadSession(id domain.SessionID) ([]domain.Envelope, error) {
	rows, err := j.db.Query(
		`SELECT envelope_json FROM events WHERE session_id = ? ORDER BY seq ASC`,
		string(id),
	)
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}
	defer rows.Close()

	var envs []domain.Envelope
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan envelope: %w", err)
		}
		env, err := domain.UnmarshalEnvelope([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		if want := uint64(len(envs)) + 1; env.Seq != want {
			return nil, fmt.Errorf("stored log seq %d where %d expected: %w", env.Seq, want, domain.ErrSequenceGap)
		}
		envs = append(envs, env)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session %s: %w", id, err)
	}
	return envs, nil
}

// ListSessions summarizes all journaled sessions, most recent first.
func (j *Journal) ListSessions() ([]SessionInfo, error) {
	rows, err := j.db.Query(
		`SELECT s.session_id, COUNT(e.seq), COALESCE(MAX(e.ts_us), s.started_us)
		 FROM sessions s LEFT JOIN events e ON e.session_id = s.session_id
		 GROUP BY s.session_id ORDER BY s.started_us DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var sid string
		if err := rows.Scan(&sid, &info.EventCount, &info.LastTsUs); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.SessionID = domain.SessionID(sid)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// #endregion load
