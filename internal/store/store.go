package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gcquality/internal/chromatography"
)

var (
	// ErrRunNotFound is returned when no run has the requested id
	ErrRunNotFound = errors.New("run not found")

	// ErrDisabled is returned by callers that were configured without a store
	ErrDisabled = errors.New("results store disabled")
)

// DefaultListLimit bounds ListRuns when no limit is given
const DefaultListLimit = 50

// timeLayout is fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT PRIMARY KEY,
	experiment      TEXT NOT NULL,
	exp_date        TEXT,
	source          TEXT,
	sample_count    INTEGER NOT NULL,
	conversion_mean REAL NOT NULL,
	conversion_std  REAL NOT NULL,
	purity_mean     REAL NOT NULL,
	purity_std      REAL NOT NULL,
	summary_json    TEXT NOT NULL,
	created_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
	run_id          TEXT NOT NULL,
	position        INTEGER NOT NULL,
	label           TEXT NOT NULL,
	original_name   TEXT,
	sample_order    INTEGER NOT NULL,
	conversion_pct  REAL NOT NULL,
	purity_pct      REAL NOT NULL,
	mono_pct        REAL NOT NULL,
	di_pct          REAL NOT NULL,
	tri_pct         REAL NOT NULL,
	fame_area       REAL NOT NULL,
	concentration   REAL,
	PRIMARY KEY (run_id, position),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_samples_label ON samples(label);
`

// Run is one stored experiment analysis. Summary is only populated by GetRun.
type Run struct {
	ID             uuid.UUID                         `json:"id"`
	Experiment     string                            `json:"experiment"`
	Date           string                            `json:"date,omitempty"`
	Source         string                            `json:"source,omitempty"`
	SampleCount    int                               `json:"sample_count"`
	ConversionMean float64                           `json:"conversion_mean"`
	ConversionStd  float64                           `json:"conversion_std"`
	PurityMean     float64                           `json:"purity_mean"`
	PurityStd      float64                           `json:"purity_std"`
	CreatedAt      time.Time                         `json:"created_at"`
	Summary        *chromatography.ExperimentSummary `json:"summary,omitempty"`
}

// SampleRow is the flattened per-sample view of a stored run
type SampleRow struct {
	RunID             uuid.UUID `json:"run_id"`
	Position          int       `json:"position"`
	Label             string    `json:"label"`
	OriginalName      string    `json:"original_name,omitempty"`
	Order             int       `json:"order"`
	ConversionPct     float64   `json:"conversion_fames_pct"`
	PurityPct         float64   `json:"purity_biodiesel_pct"`
	MonoPct           float64   `json:"monoglycerides_pct"`
	DiPct             float64   `json:"diglycerides_pct"`
	TriPct            float64   `json:"triglycerides_pct"`
	FAMEArea          float64   `json:"fame_area"`
	ConcentrationMgML *float64  `json:"concentration_mg_ml,omitempty"`
}

// Store manages analysis runs in SQLite
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at dsn and runs migrations. ":memory:"
// gives a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if dsn != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveRun stores a summary and its samples in one transaction
func (s *Store) SaveRun(ctx context.Context, source string, summary *chromatography.ExperimentSummary) (uuid.UUID, error) {
	if summary == nil {
		return uuid.Nil, fmt.Errorf("save run: nil summary")
	}

	id := uuid.New()
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, experiment, exp_date, source, sample_count,
			conversion_mean, conversion_std, purity_mean, purity_std, summary_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), summary.Experiment, summary.Date, source, len(summary.Records),
		summary.Conversion.Mean, summary.Conversion.StdDev,
		summary.Purity.Mean, summary.Purity.StdDev,
		string(encoded), createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (run_id, position, label, original_name, sample_order,
			conversion_pct, purity_pct, mono_pct, di_pct, tri_pct, fame_area, concentration)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()

	for i, r := range summary.Records {
		var conc sql.NullFloat64
		if r.Concentration != nil && r.Concentration.Computable {
			conc = sql.NullFloat64{Float64: r.Concentration.ConcentrationMgML, Valid: true}
		}
		_, err := stmt.ExecContext(ctx,
			id.String(), i, r.Label, r.OriginalName, r.Order,
			r.ConversionPct, r.PurityPct,
			r.Glycerides.MonoPct, r.Glycerides.DiPct, r.Glycerides.TriPct,
			r.FAMEArea, conc,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert sample %q: %w", r.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const runColumns = `run_id, experiment, exp_date, source, sample_count,
	conversion_mean, conversion_std, purity_mean, purity_std, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, extra ...any) (Run, error) {
	var (
		run       Run
		id        string
		date      sql.NullString
		source    sql.NullString
		createdAt string
	)
	dest := append([]any{&id, &run.Experiment, &date, &source, &run.SampleCount,
		&run.ConversionMean, &run.ConversionStd, &run.PurityMean, &run.PurityStd, &createdAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Run{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("parse run id %q: %w", id, err)
	}
	run.ID = parsed
	run.Date = date.String
	run.Source = source.String
	run.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	return run, nil
}

// GetRun returns a run with its decoded summary
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var encoded string
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+`, summary_json FROM runs WHERE run_id = ?`, id.String())

	run, err := scanRun(row, &encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	var summary chromatography.ExperimentSummary
	if err := json.Unmarshal([]byte(encoded), &summary); err != nil {
		return nil, fmt.Errorf("decode summary of run %s: %w", id, err)
	}
	run.Summary = &summary
	return &run, nil
}

// ListRuns returns the most recent runs first, at most limit of them
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListSamples returns the samples of a run in their stored position
func (s *Store) ListSamples(ctx context.Context, id uuid.UUID) ([]SampleRow, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE run_id = ?`, id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, label, original_name, sample_order, conversion_pct, purity_pct,
			mono_pct, di_pct, tri_pct, fame_area, concentration
		 FROM samples WHERE run_id = ? ORDER BY position`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	samples := make([]SampleRow, 0)
	for rows.Next() {
		var (
			r        = SampleRow{RunID: id}
			original sql.NullString
			conc     sql.NullFloat64
		)
		if err := rows.Scan(&r.Position, &r.Label, &original, &r.Order, &r.ConversionPct, &r.PurityPct,
			&r.MonoPct, &r.DiPct, &r.TriPct, &r.FAMEArea, &conc); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		r.OriginalName = original.String
		if conc.Valid {
			v := conc.Float64
			r.ConcentrationMgML = &v
		}
		samples = append(samples, r)
	}
	return samples, rows.Err()
}

// DeleteRun removes a run and its samples
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}
