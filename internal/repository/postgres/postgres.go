package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type repos struct {
	q DBTX
}

func (r repos) Users() repository.UserRepository       { return NewUserRepository(r.q) }
func (r repos) Tools() repository.ToolRepository       { return NewToolRepository(r.q) }
func (r repos) Bookings() repository.BookingRepository { return NewBookingRepository(r.q) }
func (r repos) Swaps() repository.SwapRepository       { return NewSwapRepository(r.q) }

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	return s.runInTx(ctx, nil, fn)
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	return s.runInTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Store) runInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, r repository.Repos) error) (err error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error("Rollback failed", "error", rbErr)
			}
		}
	}()
	if err = fn(ctx, repos{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// mapError turns driver errors into domain kinds where one applies.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFoundError("%s not found", what)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return domain.NewConflictError("%s already exists", what)
		case "foreign_key_violation":
			return domain.NewNotFoundError("%s references a missing record", what)
		case "check_violation", "not_null_violation":
			return domain.NewValidationError("%s: %s", what, pqErr.Message)
		}
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}
