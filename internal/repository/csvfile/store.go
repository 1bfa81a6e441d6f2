// Package csvfile keeps the entity store in flat CSV files, one per collection.
// Files are rewritten in full after every committed transaction.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository/memory"
)

type Persister struct {
	dir string
}

func NewPersister(dir string) *Persister {
	return &Persister{dir: dir}
}

// Persist writes every file to a temp name first and renames them into place
// only when all writes succeeded. Each rename is atomic but the four are not:
// a rename failing part way leaves earlier files from the new snapshot next to
// later files from the previous one, and a concurrent Load can observe the
// same mix.
func (p *Persister) Persist(ctx context.Context, snap memory.Snapshot) error {
	files, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	temps := make(map[string]string, len(files))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}
	for _, name := range Files {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		tmp, err := os.CreateTemp(p.dir, name+".*.tmp")
		if err != nil {
			cleanup()
			return fmt.Errorf("create temp for %s: %w", name, err)
		}
		temps[name] = tmp.Name()
		if _, err := tmp.Write(files[name]); err != nil {
			_ = tmp.Close()
			cleanup()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			cleanup()
			return fmt.Errorf("sync %s: %w", name, err)
		}
		if err := tmp.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close %s: %w", name, err)
		}
	}
	for _, name := range Files {
		if err := os.Rename(temps[name], filepath.Join(p.dir, name)); err != nil {
			cleanup()
			return fmt.Errorf("replace %s: %w", name, err)
		}
		delete(temps, name)
	}
	return nil
}

func (p *Persister) Ping(ctx context.Context) error {
	info, err := os.Stat(p.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", p.dir)
	}
	return nil
}

// Load reads the current files. Absent files decode as empty collections.
func (p *Persister) Load(ctx context.Context) (memory.Snapshot, error) {
	snap, _, err := p.load(ctx)
	return snap, err
}

func (p *Persister) load(ctx context.Context) (snap memory.Snapshot, missing bool, err error) {
	if err := ctx.Err(); err != nil {
		return snap, false, err
	}
	readers := make(map[string]io.Reader, len(Files))
	for _, name := range Files {
		f, err := os.Open(filepath.Join(p.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			missing = true
			continue
		}
		if err != nil {
			return snap, false, fmt.Errorf("open %s: %w", name, err)
		}
		defer f.Close()
		readers[name] = f
	}
	snap, err = DecodeSnapshot(readers)
	return snap, missing, err
}

// Open loads the CSV files under dir into a memory store wired to persist back
// to them. Absent files are created empty with their header row.
func Open(dir string, opts ...memory.Option) (*memory.Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	persister := NewPersister(dir)
	snap, missing, err := persister.load(context.Background())
	if err != nil {
		return nil, err
	}

	store := memory.NewStore(append([]memory.Option{memory.WithPersister(persister)}, opts...)...)
	store.ImportState(snap)
	if missing {
		if err := persister.Persist(context.Background(), store.ExportState()); err != nil {
			return nil, err
		}
	}
	logger.Info("CSV store opened", "dir", dir,
		"users", len(snap.Users), "tools", len(snap.Tools),
		"bookings", len(snap.Bookings), "swaps", len(snap.Swaps))
	return store, nil
}
