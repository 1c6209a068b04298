package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mohitkumar/pollster/logger"
	"github.com/mohitkumar/pollster/persistence"
	"go.uber.org/zap"
)

var _ persistence.BackendLocker = new(sqlStore)

type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteStore opens a sqlite database at path; ":memory:" keeps it in
// process.
func NewSQLiteStore(path string) (*sqlStore, error) {
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return newSQLStore(db, sqliteDialect)
}

func NewMySQLStore(dsn string) (*sqlStore, error) {
	db, err := sql.Open(mysqlDialect.driver, dsn)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return newSQLStore(db, mysqlDialect)
}

func newSQLStore(db *sql.DB, d dialect) (*sqlStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	for _, stmt := range append(d.pragmas, d.schema...) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
	}
	return &sqlStore{db: db, dialect: d}, nil
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM trigger_state WHERE state_key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		logger.Error("error reading store key", zap.String("key", key), zap.Error(err))
		return nil, false, persistence.StorageLayerError{Message: err.Error()}
	}
	return value, true, nil
}

func (s *sqlStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value); err != nil {
		logger.Error("error writing store key", zap.String("key", key), zap.Error(err))
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM trigger_state WHERE state_key = ?", key); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqlStore) Acquire(ctx context.Context, key string, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM trigger_lease WHERE lease_key = ? AND expires_at <= ?", key, now.UnixMilli()); err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	res, err := tx.ExecContext(ctx, s.dialect.insertNew, key, owner, now.Add(ttl).UnixMilli())
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	if err := tx.Commit(); err != nil {
		return false, persistence.StorageLayerError{Message: err.Error()}
	}
	return affected == 1, nil
}

func (s *sqlStore) Release(ctx context.Context, key string, owner string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM trigger_lease WHERE lease_key = ? AND owner = ?", key, owner); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
