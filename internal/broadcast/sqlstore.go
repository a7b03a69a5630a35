// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/sessionguard/internal/eventlog"
)

// DefaultPollInterval is how often a SQLStore looks for foreign writes.
const DefaultPollInterval = 250 * time.Millisecond

const signalSchema = `
CREATE TABLE IF NOT EXISTS signals (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    writer     TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_seq ON signals(seq);
`

const upsertSignal = `
INSERT INTO signals (key, value, writer, seq, updated_at)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM signals), ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    writer = excluded.writer,
    seq = excluded.seq,
    updated_at = excluded.updated_at
`

// SQLStore shares signals through a SQLite database file. Each write gets
// a global sequence number; instances poll for rows past their cursor that
// another writer produced.
type SQLStore struct {
	db       *sql.DB
	path     string
	writerID string
	interval time.Duration
	logger   *eventlog.Logger
	subs     subscribers

	pollMu sync.Mutex
	cursor int64

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSQLStore opens or creates the database at path and starts polling.
// A non-positive interval selects DefaultPollInterval.
func NewSQLStore(path string, interval time.Duration, logger *eventlog.Logger) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if err := os.MkdirAll(filepath.Dir(path), signalDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps the pragmas below in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(signalSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	var cursor int64
	if err := db.QueryRow("SELECT COALESCE(MAX(seq), 0) FROM signals").Scan(&cursor); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read cursor: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SQLStore{
		db:       db,
		path:     path,
		writerID: uuid.NewString(),
		interval: interval,
		logger:   logger,
		cursor:   cursor,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.pollLoop()
	return s, nil
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.path
}

// WriterID identifies this instance's rows.
func (s *SQLStore) WriterID() string {
	return s.writerID
}

// Get implements Store.
func (s *SQLStore) Get(key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, ErrClosed
	}

	var value string
	err := s.db.QueryRowContext(s.ctx, "SELECT value FROM signals WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *SQLStore) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}

	_, err := s.db.ExecContext(s.ctx, upsertSignal, key, value, s.writerID, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Subscribe implements Store.
func (s *SQLStore) Subscribe(fn func(key, value string)) (func(), error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	return s.subs.add(fn), nil
}

// PollNow checks for foreign writes immediately and delivers them before
// returning.
func (s *SQLStore) PollNow() error {
	if s.isClosed() {
		return ErrClosed
	}
	return s.poll()
}

// Close stops polling and closes the database.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	s.subs.clear()
	return s.db.Close()
}

func (s *SQLStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SQLStore) pollLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.poll(); err != nil && s.ctx.Err() == nil {
				s.logger.Error("STORE_POLL_FAILED", s.writerID, err)
			}
		}
	}
}

type signalRow struct {
	key    string
	value  string
	writer string
	seq    int64
}

func (s *SQLStore) poll() error {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	rows, err := s.db.QueryContext(s.ctx,
		"SELECT key, value, writer, seq FROM signals WHERE seq > ? ORDER BY seq", s.cursor)
	if err != nil {
		return fmt.Errorf("failed to query signals: %w", err)
	}

	var changed []signalRow
	for rows.Next() {
		var r signalRow
		if err := rows.Scan(&r.key, &r.value, &r.writer, &r.seq); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan signal: %w", err)
		}
		changed = append(changed, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, r := range changed {
		s.cursor = r.seq
		if r.writer == s.writerID {
			continue
		}
		s.subs.notify(r.key, r.value)
	}
	return nil
}
