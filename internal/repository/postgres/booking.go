package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/logger"
	"toolshare-backend/internal/repository"
)

const bookingColumns = `id, tool_id, owner_username, renter_username, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), total_cost, status, created_at, updated_at, version`

type bookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) repository.BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.UpdatedAt = b.CreatedAt
	query := `INSERT INTO bookings (id, tool_id, owner_username, renter_username, start_date, end_date, total_cost, status, created_at, updated_at, version)
	          SELECT COALESCE(MAX(id), 0) + 1, $1, $2, $3, $4, $5, $6, $7, $8, $9, 1 FROM bookings
	          RETURNING id, version`
	logger.DatabaseCall("bookings.create", query, "tool_id", b.ToolID, "renter", b.RenterUsername)
	err := r.db.QueryRowContext(ctx, query,
		b.ToolID, b.OwnerUsername, b.RenterUsername, b.StartDate, b.EndDate,
		b.TotalCost, string(b.Status), b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID, &b.Version)
	if err != nil {
		logger.DatabaseResult("bookings.create", 0, err)
		return mapError(err, fmt.Sprintf("booking for tool %d", b.ToolID))
	}
	logger.DatabaseResult("bookings.create", 1, nil, "id", b.ID)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("booking %d", id))
	}
	return b, nil
}

func (r *bookingRepository) FindWhere(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ToolID != 0 {
		add("tool_id = $%d", f.ToolID)
	}
	if f.RenterUsername != "" {
		add("renter_username = $%d", f.RenterUsername)
	}
	if f.OwnerUsername != "" {
		add("owner_username = $%d", f.OwnerUsername)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.EndOnOrBefore != "" {
		add("end_date <= $%d", f.EndOnOrBefore)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) UpdateFields(ctx context.Context, id int64, patch domain.BookingPatch) (*domain.Booking, error) {
	var status sql.NullString
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, domain.NewValidationError("status %q is invalid", *patch.Status)
		}
		status = sql.NullString{String: string(*patch.Status), Valid: true}
	}
	query := `UPDATE bookings SET status = COALESCE($1, status), updated_at = $2, version = version + 1
	          WHERE id = $3 AND ($4 = 0 OR version = $4)
	          RETURNING ` + bookingColumns
	logger.DatabaseCall("bookings.update", query, "id", id)
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, status, time.Now().UTC(), id, patch.ExpectedVersion))
	if err == sql.ErrNoRows {
		return nil, versionMiss(ctx, r.db, "bookings", "booking", id, patch.ExpectedVersion)
	}
	if err != nil {
		logger.DatabaseResult("bookings.update", 0, err)
		return nil, mapError(err, fmt.Sprintf("booking %d", id))
	}
	logger.DatabaseResult("bookings.update", 1, nil)
	return b, nil
}

func scanBooking(s scanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var status string
	err := s.Scan(&b.ID, &b.ToolID, &b.OwnerUsername, &b.RenterUsername, &b.StartDate, &b.EndDate,
		&b.TotalCost, &status, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	return b, nil
}
