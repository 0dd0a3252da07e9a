package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder journals activity to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_cycles (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			duration_ms   INTEGER,
			universe_size INTEGER,
			priced        INTEGER,
			skipped       INTEGER,
			top_symbol    TEXT,
			top_change    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS universe_builds (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			session_date TEXT,
			candidates   INTEGER,
			kept         INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_universe_ts ON universe_builds(timestamp)`,

		`CREATE TABLE IF NOT EXISTS resolutions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT NOT NULL,
			mode       TEXT,
			strategy   TEXT,
			tier       TEXT,
			bias       TEXT,
			price      REAL,
			change_pct REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolution_symbol_ts ON resolutions(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(c *ScanCycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := c.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO scan_cycles
		(timestamp, duration_ms, universe_size, priced, skipped, top_symbol, top_change)
		VALUES (?,?,?,?,?,?,?)`,
		started.Unix(), c.Duration.Milliseconds(), c.UniverseSize,
		c.Priced, c.Skipped, c.TopSymbol, c.TopChange,
	)
	return err
}

func (r *SQLiteRecorder) RecordUniverse(u *UniverseBuild) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO universe_builds
		(timestamp, session_date, candidates, kept)
		VALUES (?,?,?,?)`,
		time.Now().Unix(), u.SessionDate, u.Candidates, u.Kept,
	)
	return err
}

func (r *SQLiteRecorder) RecordResolution(res *Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO resolutions
		(timestamp, symbol, mode, strategy, tier, bias, price, change_pct)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), res.Symbol, string(res.Mode), res.Strategy,
		string(res.Tier), string(res.Bias), res.Price, res.ChangePct,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
