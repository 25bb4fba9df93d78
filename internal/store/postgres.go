package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/basinlabs/geoframe/internal/frame"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS datasets (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	source        TEXT NOT NULL,
	format        TEXT NOT NULL,
	srid          INTEGER NOT NULL DEFAULT 0,
	geometry_type TEXT NOT NULL DEFAULT '',
	row_count     INTEGER NOT NULL DEFAULT 0,
	columns       TEXT NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS features (
	id         BIGSERIAL PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	properties TEXT NOT NULL,
	geom       BYTEA,
	minx       DOUBLE PRECISION,
	miny       DOUBLE PRECISION,
	maxx       DOUBLE PRECISION,
	maxy       DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);
CREATE INDEX IF NOT EXISTS idx_features_dataset_id ON features(dataset_id);
CREATE INDEX IF NOT EXISTS idx_features_bbox ON features(dataset_id, minx, maxx, miny, maxy);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateDataset(ctx context.Context, name, source, format string, f *frame.Frame) (*Dataset, error) {
	ds := datasetFromFrame(uuid.New().String(), name, source, format, f, time.Now().UTC())

	columnsJSON, err := json.Marshal(ds.Columns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal columns")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO datasets (id, name, source, format, srid, geometry_type, row_count, columns, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ds.ID, ds.Name, ds.Source, ds.Format, ds.SRID, ds.GeometryType, ds.RowCount, string(columnsJSON), ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert dataset")
	}

	if err := s.copyFeatures(ctx, ds.ID, f); err != nil {
		return nil, err
	}
	return ds, nil
}

// copyFeatures bulk-loads frame rows with the COPY protocol.
func (s *PostgresStore) copyFeatures(ctx context.Context, datasetID string, f *frame.Frame) error {
	if f.NumRows() == 0 {
		return nil
	}

	rows := make([][]any, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		props, geomWKB, err := encodeRow(f, i)
		if err != nil {
			return err
		}

		var minx, miny, maxx, maxy any
		if g := f.Geometry(i); g != nil {
			b := g.Bounds()
			minx, miny, maxx, maxy = b.Min(0), b.Min(1), b.Max(0), b.Max(1)
		}

		rows = append(rows, []any{datasetID, i, string(props), geomWKB, minx, miny, maxx, maxy})
	}

	columns := []string{"dataset_id", "seq", "properties", "geom", "minx", "miny", "maxx", "maxy"}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"features"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrap(err, "postgres: COPY features")
	}
	if n != int64(len(rows)) {
		return eris.Errorf("postgres: COPY wrote %d of %d rows", n, len(rows))
	}
	return nil
}

func (s *PostgresStore) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, source, format, srid, geometry_type, row_count, columns, created_at, updated_at
		 FROM datasets WHERE id = $1`, id,
	)
	ds, err := scanDataset(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: dataset %s not found", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get dataset %s", id)
	}
	return ds, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context) ([]Dataset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, source, format, srid, geometry_type, row_count, columns, created_at, updated_at
		 FROM datasets ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list datasets")
	}
	defer rows.Close()

	var out []Dataset
	for rows.Next() {
		ds, err := scanDataset(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan dataset")
		}
		out = append(out, *ds)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list datasets iterate")
}

func (s *PostgresStore) DeleteDataset(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete dataset %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: dataset %s not found", id)
	}
	return nil
}

func (s *PostgresStore) LoadFrame(ctx context.Context, id string, filter FeatureFilter) (*frame.Frame, error) {
	ds, err := s.GetDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	query := `SELECT properties, geom FROM features WHERE dataset_id = $1`
	args := []any{id}

	if filter.BBox != nil {
		query += ` AND maxx >= $2 AND minx <= $3 AND maxy >= $4 AND miny <= $5`
		args = append(args, filter.BBox.Min(0), filter.BBox.Max(0), filter.BBox.Min(1), filter.BBox.Max(1))
	}
	query += ` ORDER BY seq`
	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: load features for %s", id)
	}
	defer rows.Close()

	var props, geoms [][]byte
	for rows.Next() {
		var p string
		var g []byte
		if err := rows.Scan(&p, &g); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature")
		}
		props = append(props, []byte(p))
		geoms = append(geoms, g)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: load features iterate")
	}

	return frameFromStored(ds, props, geoms)
}
