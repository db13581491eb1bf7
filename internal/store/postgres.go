package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-qualifier/internal/db"
	"github.com/sells-group/lead-qualifier/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var propertiesUpsert = func() string {
	sql, err := db.UpsertSQL(db.UpsertConfig{
		Table:        "properties",
		Columns:      []string{"address", "data", "score", "confidence", "feedback"},
		ConflictKeys: []string{"address"},
	})
	if err != nil {
		panic(err)
	}
	return sql
}()

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	address    TEXT PRIMARY KEY,
	data       TEXT,
	score      DOUBLE PRECISION,
	confidence DOUBLE PRECISION,
	feedback   TEXT
);
ALTER TABLE properties ADD COLUMN IF NOT EXISTS feedback TEXT;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, address string) (*model.CacheEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT address, data, score, confidence, feedback FROM properties WHERE address = $1`,
		address,
	)

	var (
		key        string
		data       *string
		score      *float64
		confidence *float64
		feedback   *string
	)
	if err := row.Scan(&key, &data, &score, &confidence, &feedback); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get entry %q", address)
	}

	entry := &model.CacheEntry{Address: key, Feedback: feedback}
	if data != nil {
		entry.Outcome = model.DecodeOutcome(*data)
	} else {
		entry.Outcome = model.DecodeOutcome("")
	}
	if score != nil {
		entry.Score = *score
	}
	if confidence != nil {
		entry.Confidence = *confidence
	}
	return entry, nil
}

func (s *PostgresStore) PutEntry(ctx context.Context, entry model.CacheEntry) error {
	data, err := entry.Outcome.Encode()
	if err != nil {
		return eris.Wrap(err, "postgres: encode outcome")
	}
	_, err = s.pool.Exec(ctx, propertiesUpsert,
		entry.Address, data, entry.Score, entry.Confidence, entry.Feedback,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: put entry %q", entry.Address)
	}
	return nil
}

func (s *PostgresStore) SetFeedback(ctx context.Context, address, feedback string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET feedback = $1 WHERE address = $2`,
		feedback, address,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set feedback %q", address)
	}
	return tag.RowsAffected() > 0, nil
}
