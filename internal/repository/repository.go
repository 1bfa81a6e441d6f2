package repository

import (
	"context"

	"toolshare-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	FindWhere(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
}

type ToolRepository interface {
	// Create assigns the next id (max+1) to tool.
	Create(ctx context.Context, tool *domain.Tool) error
	GetByID(ctx context.Context, id int64) (*domain.Tool, error)
	// GetForUpdate is GetByID that also serializes concurrent writers on the tool row.
	GetForUpdate(ctx context.Context, id int64) (*domain.Tool, error)
	FindWhere(ctx context.Context, filter domain.ToolFilter) ([]domain.Tool, error)
	UpdateFields(ctx context.Context, id int64, patch domain.ToolPatch) (*domain.Tool, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	FindWhere(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	UpdateFields(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error)
}

type SwapRepository interface {
	Create(ctx context.Context, swap *domain.Swap) error
	GetByID(ctx context.Context, id int64) (*domain.Swap, error)
	FindWhere(ctx context.Context, filter domain.SwapFilter) ([]domain.Swap, error)
	UpdateFields(ctx context.Context, id int64, patch domain.SwapPatch) (*domain.Swap, error)
}

// Repos is the set of collections visible inside one unit of work.
type Repos interface {
	Users() UserRepository
	Tools() ToolRepository
	Bookings() BookingRepository
	Swaps() SwapRepository
}

// Store is the entity store. RunInTx commits every mutation made by fn, or
// none of them when fn or the commit fails. View gives read-only access.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
	View(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
	Ping(ctx context.Context) error
	Close() error
}
