package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/metrics"
	"toolshare-backend/internal/repository"
	"toolshare-backend/internal/repository/memory"
	"toolshare-backend/internal/service"
)

var fixedNow = time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	email    *MockEmailService
	recorder *metrics.PrometheusRecorder

	availability service.AvailabilityService
	bookings     service.BookingService
	swaps        service.SwapService
	tools        service.ToolService
	users        service.UserService

	// T1 is alice's drill (20.00/day), T2 is bob's ladder, T3 is alice's
	// saw with the manual flag off.
	T1, T2, T3 int64
}

func newFixture(t *testing.T, mode service.AvailabilityMode) *fixture {
	return newFixtureWithEmail(t, mode, new(MockEmailService).allowAll(nil))
}

func newFixtureWithEmail(t *testing.T, mode service.AvailabilityMode, email *MockEmailService) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := memory.NewStore(memory.WithClock(clock))
	rec := metrics.NewPrometheusRecorder()
	opts := []service.Option{service.WithClock(clock), service.WithRecorder(rec)}

	f := &fixture{store: store, email: email, recorder: rec}
	f.availability = service.NewAvailabilityService(store, mode, opts...)
	f.bookings = service.NewBookingService(store, f.availability, email, opts...)
	f.swaps = service.NewSwapService(store, email, opts...)
	f.tools = service.NewToolService(store, opts...)
	f.users = service.NewUserService(store, opts...)

	err := store.RunInTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		for _, u := range []*domain.User{
			{Username: "alice", Name: "Alice", Email: "alice@example.com"},
			{Username: "bob", Name: "Bob", Email: "bob@example.com"},
			{Username: "carol", Name: "Carol", Email: "carol@example.com"},
		} {
			if err := r.Users().Create(ctx, u); err != nil {
				return err
			}
		}
		t1 := newTool("alice", "Cordless Drill", "Drill", "20.00", true)
		t2 := newTool("bob", "Extension Ladder", "Ladder", "15.00", true)
		t3 := newTool("alice", "Circular Saw", "Saw", "25.00", false)
		for _, tool := range []*domain.Tool{t1, t2, t3} {
			if err := r.Tools().Create(ctx, tool); err != nil {
				return err
			}
		}
		f.T1, f.T2, f.T3 = t1.ID, t2.ID, t3.ID
		return nil
	})
	require.NoError(t, err)
	return f
}

func newTool(owner, title, toolType, daily string, available bool) *domain.Tool {
	return &domain.Tool{
		OwnerUsername: owner,
		Title:         title,
		ToolType:      toolType,
		Brand:         "Acme",
		Condition:     domain.ToolConditionGood,
		DailyRate:     decimal.RequireFromString(daily),
		HourlyRate:    decimal.NewFromInt(3),
		Deposit:       decimal.NewFromInt(50),
		Available:     available,
		Neighborhood:  "Astoria",
	}
}

// putBooking stores a booking in the given status without going through the lifecycle.
func (f *fixture) putBooking(t *testing.T, toolID int64, renter, start, end string, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	var b *domain.Booking
	err := f.store.RunInTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		tool, err := r.Tools().GetByID(ctx, toolID)
		if err != nil {
			return err
		}
		b = &domain.Booking{
			ToolID:         toolID,
			OwnerUsername:  tool.OwnerUsername,
			RenterUsername: renter,
			StartDate:      start,
			EndDate:        end,
			TotalCost:      tool.DailyRate,
			Status:         status,
		}
		return r.Bookings().Create(ctx, b)
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) allBookings(t *testing.T) []domain.Booking {
	t.Helper()
	var out []domain.Booking
	err := f.store.View(context.Background(), func(ctx context.Context, r repository.Repos) error {
		var err error
		out, err = r.Bookings().FindWhere(ctx, domain.BookingFilter{})
		return err
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) tool(t *testing.T, id int64) *domain.Tool {
	t.Helper()
	var tool *domain.Tool
	err := f.store.View(context.Background(), func(ctx context.Context, r repository.Repos) error {
		var err error
		tool, err = r.Tools().GetByID(ctx, id)
		return err
	})
	require.NoError(t, err)
	return tool
}
