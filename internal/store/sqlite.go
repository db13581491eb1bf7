package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-qualifier/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	address    TEXT PRIMARY KEY,
	data       TEXT,
	score      REAL,
	confidence REAL,
	feedback   TEXT
);
`

// sqliteAddFeedback upgrades tables created before feedback existed.
const sqliteAddFeedback = `ALTER TABLE properties ADD COLUMN feedback TEXT`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	if _, err := s.db.ExecContext(ctx, sqliteAddFeedback); err != nil && !isDuplicateColumn(err) {
		return eris.Wrap(err, "sqlite: migrate feedback column")
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetEntry(ctx context.Context, address string) (*model.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT address, data, score, confidence, feedback FROM properties WHERE address = ?`,
		address,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get entry %q", address)
	}
	return entry, nil
}

func (s *SQLiteStore) PutEntry(ctx context.Context, entry model.CacheEntry) error {
	data, err := entry.Outcome.Encode()
	if err != nil {
		return eris.Wrap(err, "sqlite: encode outcome")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO properties (address, data, score, confidence, feedback) VALUES (?, ?, ?, ?, ?)`,
		entry.Address, data, entry.Score, entry.Confidence, entry.Feedback,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put entry %q", entry.Address)
	}
	return nil
}

func (s *SQLiteStore) SetFeedback(ctx context.Context, address, feedback string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET feedback = ? WHERE address = ?`,
		feedback, address,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: set feedback %q", address)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanEntry reads one properties row. NULL data or scores decode as the
// fetch-failure sentinel text and zero.
func scanEntry(row scannable) (*model.CacheEntry, error) {
	var (
		address    string
		data       sql.NullString
		score      sql.NullFloat64
		confidence sql.NullFloat64
		feedback   sql.NullString
	)
	if err := row.Scan(&address, &data, &score, &confidence, &feedback); err != nil {
		return nil, err
	}
	entry := &model.CacheEntry{
		Address:    address,
		Outcome:    model.DecodeOutcome(data.String),
		Score:      score.Float64,
		Confidence: confidence.Float64,
	}
	if feedback.Valid {
		fb := feedback.String
		entry.Feedback = &fb
	}
	return entry, nil
}
