// Package featuredb stores quantitation results in a SQLite database,
// so that results from many runs can be collected and queried without
// re-parsing XML.
package featuredb

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/524D/mzmultiplex/internal/multiplex"
)

const schema = `
CREATE TABLE IF NOT EXISTS consensus (
	id        TEXT PRIMARY KEY,
	input     TEXT NOT NULL,
	rt        REAL NOT NULL,
	mz        REAL NOT NULL,
	intensity REAL,
	quality   REAL NOT NULL,
	charge    INTEGER NOT NULL,
	points    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS feature (
	id           TEXT PRIMARY KEY,
	consensus_id TEXT NOT NULL REFERENCES consensus(id) ON DELETE CASCADE,
	sample       INTEGER NOT NULL,
	rt           REAL NOT NULL,
	mz           REAL NOT NULL,
	intensity    REAL,
	charge       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_consensus_input ON consensus(input);
CREATE INDEX IF NOT EXISTS idx_feature_consensus ON feature(consensus_id);
`

// DB is a handle to a results database
type DB struct {
	db *sql.DB
}

// Open opens (and if necessary creates) a results database. Use the
// path ":memory:" for a transient in-memory database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("featuredb: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("featuredb: init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

// nullable converts NaN intensities into SQL NULL
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// Store inserts all records, with their features, in one transaction
func (d *DB) Store(ctx context.Context, input string, records []multiplex.ConsensusRecord) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("featuredb: begin: %w", err)
	}
	defer tx.Rollback()

	insCons, err := tx.PrepareContext(ctx,
		`INSERT INTO consensus (id, input, rt, mz, intensity, quality, charge, points)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("featuredb: prepare: %w", err)
	}
	defer insCons.Close()
	insFeat, err := tx.PrepareContext(ctx,
		`INSERT INTO feature (id, consensus_id, sample, rt, mz, intensity, charge)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("featuredb: prepare: %w", err)
	}
	defer insFeat.Close()

	for _, rec := range records {
		_, err := insCons.ExecContext(ctx, rec.ID, input, rec.RetentionTime, rec.Mz,
			nullable(rec.Intensity), rec.Quality, rec.Charge, rec.Points)
		if err != nil {
			return fmt.Errorf("featuredb: insert consensus %s: %w", rec.ID, err)
		}
		for _, fh := range rec.Features {
			_, err := insFeat.ExecContext(ctx, fh.ID, rec.ID, fh.Sample,
				fh.RetentionTime, fh.Mz, nullable(fh.Intensity), fh.Charge)
			if err != nil {
				return fmt.Errorf("featuredb: insert feature %s: %w", fh.ID, err)
			}
		}
	}
	return tx.Commit()
}

// Records loads all consensus records stored for one input file,
// ordered by retention time
func (d *DB) Records(ctx context.Context, input string) ([]multiplex.ConsensusRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, rt, mz, intensity, quality, charge, points
		 FROM consensus WHERE input = ? ORDER BY rt, mz`, input)
	if err != nil {
		return nil, fmt.Errorf("featuredb: query: %w", err)
	}
	defer rows.Close()

	var records []multiplex.ConsensusRecord
	for rows.Next() {
		var rec multiplex.ConsensusRecord
		var intensity sql.NullFloat64
		err := rows.Scan(&rec.ID, &rec.RetentionTime, &rec.Mz, &intensity,
			&rec.Quality, &rec.Charge, &rec.Points)
		if err != nil {
			return nil, fmt.Errorf("featuredb: scan: %w", err)
		}
		rec.Intensity = math.NaN()
		if intensity.Valid {
			rec.Intensity = intensity.Float64
		}
		rec.Features, err = d.features(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (d *DB) features(ctx context.Context, consensusID string) ([]multiplex.FeatureHandle, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, sample, rt, mz, intensity, charge
		 FROM feature WHERE consensus_id = ? ORDER BY sample`, consensusID)
	if err != nil {
		return nil, fmt.Errorf("featuredb: query features: %w", err)
	}
	defer rows.Close()

	var features []multiplex.FeatureHandle
	for rows.Next() {
		var fh multiplex.FeatureHandle
		var intensity sql.NullFloat64
		err := rows.Scan(&fh.ID, &fh.Sample, &fh.RetentionTime, &fh.Mz, &intensity, &fh.Charge)
		if err != nil {
			return nil, fmt.Errorf("featuredb: scan feature: %w", err)
		}
		fh.Intensity = math.NaN()
		if intensity.Valid {
			fh.Intensity = intensity.Float64
		}
		features = append(features, fh)
	}
	return features, rows.Err()
}
