// Package sqlite snapshots the entity store into a single SQLite table, one
// JSON payload per collection, after every committed transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository/memory"
)

const (
	bucketUsers    = "users"
	bucketTools    = "tools"
	bucketBookings = "bookings"
	bucketSwaps    = "swaps"
)

var buckets = []string{bucketUsers, bucketTools, bucketBookings, bucketSwaps}

// userRow carries the password hash, which domain.User keeps out of JSON.
type userRow struct {
	domain.User
	Hash string `json:"password_hash,omitempty"`
}

func userRows(users []domain.User) []userRow {
	rows := make([]userRow, len(users))
	for i, u := range users {
		rows[i] = userRow{User: u, Hash: u.PasswordHash}
	}
	return rows
}

type Persister struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (if needed) the database at path and returns a memory store
// loaded from it and persisting back into it.
func Open(path string, opts ...memory.Option) (*memory.Store, error) {
	if path == "" {
		path = "toolshare.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	p, err := NewPersister(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	snap, err := p.Load(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store := memory.NewStore(append([]memory.Option{memory.WithPersister(p)}, opts...)...)
	store.ImportState(snap)
	logger.Info("SQLite store opened", "path", path, "users", len(snap.Users), "tools", len(snap.Tools))
	return store, nil
}

func NewPersister(db *sql.DB) (*Persister, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Persister{db: db}, nil
}

func (p *Persister) Load(ctx context.Context) (memory.Snapshot, error) {
	var snap memory.Snapshot
	logger.DatabaseCall("load", "SELECT bucket, payload FROM state")
	rows, err := p.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return snap, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			bucket  string
			payload []byte
		)
		if err := rows.Scan(&bucket, &payload); err != nil {
			return snap, fmt.Errorf("scan: %w", err)
		}
		var target any
		switch bucket {
		case bucketUsers:
			var users []userRow
			if err := json.Unmarshal(payload, &users); err != nil {
				return snap, fmt.Errorf("decode %s: %w", bucket, err)
			}
			snap.Users = make([]domain.User, len(users))
			for i, u := range users {
				snap.Users[i] = u.User
				snap.Users[i].PasswordHash = u.Hash
			}
			continue
		case bucketTools:
			target = &snap.Tools
		case bucketBookings:
			target = &snap.Bookings
		case bucketSwaps:
			target = &snap.Swaps
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return snap, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return snap, rows.Err()
}

func (p *Persister) Persist(ctx context.Context, snap memory.Snapshot) (retErr error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case bucketUsers:
			data, err = json.Marshal(userRows(snap.Users))
		case bucketTools:
			data, err = json.Marshal(snap.Tools)
		case bucketBookings:
			data, err = json.Marshal(snap.Bookings)
		case bucketSwaps:
			data, err = json.Marshal(snap.Swaps)
		}
		if err != nil {
			return fmt.Errorf("encode %s: %w", bucket, err)
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.DatabaseResult("persist", int64(len(buckets)), nil)
	return nil
}

func (p *Persister) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persister) Close() error {
	return p.db.Close()
}
