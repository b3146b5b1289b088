package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Регистрация драйвера sqlite для database/sql.
	_ "modernc.org/sqlite"
)

// SQLite фабрика хранилищ поверх файла sqlite на устройстве.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite открывает (или создаёт) файл хранилища и готовит схему.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	const op = "kv.OpenSQLite"
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// Один писатель: sqlite блокирует файл целиком.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (namespace, key)
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &SQLite{db: db}, nil
}

// For возвращает хранилище пространства имён namespace.
func (s *SQLite) For(namespace string) Store {
	return &sqliteStore{db: s.db, namespace: namespace}
}

// Close закрывает файл хранилища.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteStore struct {
	db        *sql.DB
	namespace string
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "kv.sqlite.Get"
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	const op = "kv.sqlite.Set"
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.namespace, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *sqliteStore) SetNX(ctx context.Context, key, value string) (bool, error) {
	const op = "kv.sqlite.SetNX"
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO NOTHING`,
		s.namespace, key, value, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	const op = "kv.sqlite.Delete"
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *sqliteStore) Clear(ctx context.Context) error {
	const op = "kv.sqlite.Clear"
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ?`, s.namespace); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
