package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/basinlabs/geoframe/internal/frame"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqliteInsertBatch is the number of feature inserts per transaction.
const sqliteInsertBatch = 500

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	source        TEXT NOT NULL,
	format        TEXT NOT NULL,
	srid          INTEGER NOT NULL DEFAULT 0,
	geometry_type TEXT NOT NULL DEFAULT '',
	row_count     INTEGER NOT NULL DEFAULT 0,
	columns       TEXT NOT NULL DEFAULT '[]',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS features (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	properties TEXT NOT NULL,
	geom       BLOB,
	minx       REAL,
	miny       REAL,
	maxx       REAL,
	maxy       REAL
);

CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);
CREATE INDEX IF NOT EXISTS idx_features_dataset_id ON features(dataset_id);
CREATE INDEX IF NOT EXISTS idx_features_bbox ON features(dataset_id, minx, maxx, miny, maxy);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDataset(ctx context.Context, name, source, format string, f *frame.Frame) (*Dataset, error) {
	ds := datasetFromFrame(uuid.New().String(), name, source, format, f, time.Now().UTC())

	columnsJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal columns")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (id, name, source, format, srid, geometry_type, row_count, columns, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Name, ds.Source, ds.Format, ds.SRID, ds.GeometryType, ds.RowCount, string(columnsJSON), ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert dataset")
	}

	if err := s.insertFeatures(ctx, ds.ID, f); err != nil {
		return nil, err
	}
	return ds, nil
}

// insertFeatures writes frame rows in batched transactions.
func (s *SQLiteStore) insertFeatures(ctx context.Context, datasetID string, f *frame.Frame) error {
	for start := 0; start < f.NumRows(); start += sqliteInsertBatch {
		end := min(start+sqliteInsertBatch, f.NumRows())

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return eris.Wrap(err, "sqlite: begin")
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO features (dataset_id, seq, properties, geom, minx, miny, maxx, maxy)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			_ = tx.Rollback()
			return eris.Wrap(err, "sqlite: prepare insert")
		}

		for i := start; i < end; i++ {
			props, geomWKB, err := encodeRow(f, i)
			if err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return err
			}

			var minx, miny, maxx, maxy any
			if g := f.Geometry(i); g != nil {
				b := g.Bounds()
				minx, miny, maxx, maxy = b.Min(0), b.Min(1), b.Max(0), b.Max(1)
			}

			if _, err := stmt.ExecContext(ctx, datasetID, i, string(props), geomWKB, minx, miny, maxx, maxy); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return eris.Wrapf(err, "sqlite: insert feature %d", i)
			}
		}

		if err := stmt.Close(); err != nil {
			_ = tx.Rollback()
			return eris.Wrap(err, "sqlite: close statement")
		}
		if err := tx.Commit(); err != nil {
			return eris.Wrap(err, "sqlite: commit")
		}
	}
	return nil
}

func (s *SQLiteStore) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, format, srid, geometry_type, row_count, columns, created_at, updated_at
		 FROM datasets WHERE id = ?`, id,
	)
	ds, err := scanDataset(row.Scan)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: dataset %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get dataset %s", id)
	}
	return ds, nil
}

func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, format, srid, geometry_type, row_count, columns, created_at, updated_at
		 FROM datasets ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer func() { _ = rows.Close() }()

	var out []Dataset
	for rows.Next() {
		ds, err := scanDataset(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		out = append(out, *ds)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list datasets iterate")
}

func (s *SQLiteStore) DeleteDataset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete dataset %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: dataset %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) LoadFrame(ctx context.Context, id string, filter FeatureFilter) (*frame.Frame, error) {
	ds, err := s.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT properties, geom FROM features WHERE dataset_id = ?`
	args := []any{id}

	if filter.BBox != nil {
		query += ` AND maxx >= ? AND minx <= ? AND maxy >= ? AND miny <= ?`
		args = append(args, filter.BBox.Min(0), filter.BBox.Max(0), filter.BBox.Min(1), filter.BBox.Max(1))
	}
	query += ` ORDER BY seq`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load features for %s", id)
	}
	defer func() { _ = rows.Close() }()

	var props, geoms [][]byte
	for rows.Next() {
		var p string
		var g []byte
		if err := rows.Scan(&p, &g); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature")
		}
		props = append(props, []byte(p))
		geoms = append(geoms, g)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: load features iterate")
	}

	return frameFromStored(ds, props, geoms)
}

// scanDataset reads one dataset row via the given scan function.
func scanDataset(scan func(dest ...any) error) (*Dataset, error) {
	var ds Dataset
	var columnsJSON string
	if err := scan(&ds.ID, &ds.Name, &ds.Source, &ds.Format, &ds.SRID, &ds.GeometryType,
		&ds.RowCount, &columnsJSON, &ds.CreatedAt, &ds.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(columnsJSON), &ds.Columns); err != nil {
		return nil, eris.Wrap(err, "store: decode columns")
	}
	return &ds, nil
}
