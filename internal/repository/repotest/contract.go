// Package repotest holds the behaviour every repository.Store backend must share.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/repository"
)

// Factory opens a fresh, empty store. Reopen, when set, opens a second store
// over the same durable location so persistence can be checked.
type Factory struct {
	Open   func(t *testing.T) repository.Store
	Reopen func(t *testing.T) repository.Store
}

func Run(t *testing.T, f Factory) {
	t.Run("IDsAreMaxPlusOne", func(t *testing.T) { testIDs(t, f.Open(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, f.Open(t)) })
	t.Run("ValidationAtBoundary", func(t *testing.T) { testValidation(t, f.Open(t)) })
	t.Run("FailedTxLeavesNoTrace", func(t *testing.T) { testRollback(t, f.Open(t)) })
	t.Run("VersionConflict", func(t *testing.T) { testVersion(t, f.Open(t)) })
	t.Run("FindWhere", func(t *testing.T) { testFindWhere(t, f.Open(t)) })
	t.Run("ViewIsReadOnly", func(t *testing.T) { testReadOnly(t, f.Open(t)) })
	if f.Reopen != nil {
		t.Run("SurvivesReopen", func(t *testing.T) { testReopen(t, f) })
		t.Run("ReloadSeesOtherWriter", func(t *testing.T) { testReload(t, f) })
	}
}

func Alice() *domain.User {
	return &domain.User{Username: "alice", Name: "Alice", Email: "alice@example.com"}
}

func Bob() *domain.User {
	return &domain.User{Username: "bob", Name: "Bob", Email: "bob@example.com", PasswordHash: "$2a$10$bobhash"}
}

func Drill(owner string) *domain.Tool {
	return &domain.Tool{
		OwnerUsername: owner,
		Title:         "DeWalt Drill",
		ToolType:      "Drill",
		Brand:         "DeWalt",
		Condition:     domain.ToolConditionGood,
		HourlyRate:    decimal.NewFromInt(4),
		DailyRate:     decimal.RequireFromString("20.00"),
		Deposit:       decimal.NewFromInt(50),
		Available:     true,
		Neighborhood:  "Astoria",
	}
}

func seed(t *testing.T, store repository.Store) (toolID int64) {
	t.Helper()
	err := store.RunInTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		if err := r.Users().Create(ctx, Alice()); err != nil {
			return err
		}
		if err := r.Users().Create(ctx, Bob()); err != nil {
			return err
		}
		tool := Drill("alice")
		if err := r.Tools().Create(ctx, tool); err != nil {
			return err
		}
		toolID = tool.ID
		return nil
	})
	require.NoError(t, err)
	return toolID
}

func booking(toolID int64, start, end string) *domain.Booking {
	return &domain.Booking{
		ToolID:         toolID,
		OwnerUsername:  "alice",
		RenterUsername: "bob",
		StartDate:      start,
		EndDate:        end,
		TotalCost:      decimal.NewFromInt(40),
		Status:         domain.BookingStatusPending,
	}
}

func testIDs(t *testing.T, store repository.Store) {
	defer store.Close()
	ctx := context.Background()
	first := seed(t, store)
	assert.Equal(t, int64(1), first)

	var second, third int64
	err := store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		tool := Drill("bob")
		if err := r.Tools().Create(ctx, tool); err != nil {
			return err
		}
		second = tool.ID
		b := booking(first, "2024-06-01", "2024-06-03")
		if err := r.Bookings().Create(ctx, b); err != nil {
			return err
		}
		third = b.ID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, int64(1), third)
}

func testNotFound(t *testing.T, store repository.Store) {
	defer store.Close()
	ctx := context.Background()
	err := store.View(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Tools().GetByID(ctx, 42)
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		status := domain.BookingStatusApproved
		_, err := r.Bookings().UpdateFields(ctx, 42, domain.BookingPatch{Status: &status})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = store.View(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Users().GetByUsername(ctx, "nobody")
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func testValidation(t *testing.T, store repository.Store) {
	defer store.Close()
	ctx := context.Background()
	toolID := seed(t, store)

	err := store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Users().Create(ctx, &domain.User{Username: "carol"})
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	err = store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Users().Create(ctx, Alice())
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	err = store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Bookings().Create(ctx, booking(toolID, "2024-06-03", "2024-06-01"))
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func testRollback(t *testing.T, store repository.Store) {
	defer store.Close()
	ctx := context.Background()
	toolID := seed(t, store)
	boom := errors.New("boom")

	err := store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Bookings().Create(ctx, booking(toolID, "2024-06-01", "2024-06-03")); err != nil {
			return err
		}
		off := false
		if _, err := r.Tools().UpdateFields(ctx, toolID, domain.ToolPatch{Available: &off}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.View(ctx, func(ctx context.Context, r repository.Repos) error {
		bookings, err := r.Bookings().FindWhere(ctx, domain.BookingFilter{})
		if err != nil {
			return err
		}
		assert.Empty(t, bookings)
		tool, err := r.Tools().GetByID(ctx, toolID)
		if err != nil {
			return err
		}
		assert.True(t, tool.Available)
		assert.Equal(t, int64(1), tool.Version)
		return nil
	})
	require.NoError(t, err)
}

func testVersion(t *testing.T, store repository.Store) {
	defer store.Close()
	ctx := context.Background()
	toolID := seed(t, store)

	off := false
	var updated *domain.Tool
	err := store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		updated, err = r.Tools().UpdateFields(ctx, toolID, domain.ToolPatch{Available: &off, ExpectedVersion: 1})
		return err
	})
	require.NoError(t, err)
	assert.False(t, updated.Available)
	assert.Equal(t, int64(2), updated.Version)

	err = store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Tools().UpdateFields(ctx, toolID, domain.ToolPatch{Available: &off, ExpectedVersion: 1})
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func testFindWhere(t *testing.T, store repository.Store) {
	defer store.Close()
	ctx := context.Background()
	toolID := seed(t, store)

	err := store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Bookings().Create(ctx, booking(toolID, "2024-06-01", "2024-06-03")); err != nil {
			return err
		}
		declined := booking(toolID, "2024-07-01", "2024-07-03")
		declined.Status = domain.BookingStatusDeclined
		if err := r.Bookings().Create(ctx, declined); err != nil {
			return err
		}
		return r.Swaps().Create(ctx, &domain.Swap{
			ProposerUsername: "bob",
			ProposerToolID:   toolID,
			ReceiverUsername: "alice",
			ReceiverToolID:   toolID,
			Status:           domain.SwapStatusPending,
		})
	})
	require.NoError(t, err)

	err = store.View(ctx, func(ctx context.Context, r repository.Repos) error {
		active, err := r.Bookings().FindWhere(ctx, domain.BookingFilter{
			ToolID:   toolID,
			Statuses: []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusApproved},
		})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "2024-06-01", active[0].StartDate)

		mine, err := r.Tools().FindWhere(ctx, domain.ToolFilter{OwnerUsername: "alice"})
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		incoming, err := r.Swaps().FindWhere(ctx, domain.SwapFilter{ReceiverUsername: "alice"})
		require.NoError(t, err)
		assert.Len(t, incoming, 1)

		users, err := r.Users().FindWhere(ctx, domain.UserFilter{})
		require.NoError(t, err)
		assert.Len(t, users, 2)
		return nil
	})
	require.NoError(t, err)
}

func testReadOnly(t *testing.T, store repository.Store) {
	defer store.Close()
	err := store.View(context.Background(), func(ctx context.Context, r repository.Repos) error {
		return r.Users().Create(ctx, Alice())
	})
	assert.Error(t, err)
}

func testReopen(t *testing.T, f Factory) {
	ctx := context.Background()
	store := f.Open(t)
	toolID := seed(t, store)
	var swapID int64
	err := store.RunInTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if err := r.Bookings().Create(ctx, booking(toolID, "2024-06-01", "2024-06-03")); err != nil {
			return err
		}
		sw := &domain.Swap{
			ProposerUsername: "bob",
			ProposerToolID:   toolID,
			ReceiverUsername: "alice",
			ReceiverToolID:   toolID,
			Status:           domain.SwapStatusPending,
		}
		if err := r.Swaps().Create(ctx, sw); err != nil {
			return err
		}
		swapID = sw.ID
		accepted := domain.SwapStatusAccepted
		at := sw.ProposedDate
		_, err := r.Swaps().UpdateFields(ctx, sw.ID, domain.SwapPatch{Status: &accepted, AcceptedDate: &at})
		return err
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := f.Reopen(t)
	defer reopened.Close()
	err = reopened.View(ctx, func(ctx context.Context, r repository.Repos) error {
		tool, err := r.Tools().GetByID(ctx, toolID)
		require.NoError(t, err)
		assert.Equal(t, "DeWalt Drill", tool.Title)
		assert.True(t, decimal.RequireFromString("20").Equal(tool.DailyRate))

		b, err := r.Bookings().GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, b.Status)
		assert.Equal(t, "2024-06-03", b.EndDate)

		sw, err := r.Swaps().GetByID(ctx, swapID)
		require.NoError(t, err)
		assert.Equal(t, domain.SwapStatusAccepted, sw.Status)
		assert.NotNil(t, sw.AcceptedDate)

		u, err := r.Users().GetByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", u.Email)
		assert.Equal(t, "$2a$10$bobhash", u.PasswordHash)
		return nil
	})
	require.NoError(t, err)
}

type reloader interface {
	Reload(ctx context.Context) error
}

// testReload opens two stores over one location: commits made through the
// writer become visible to the reader after Reload.
func testReload(t *testing.T, f Factory) {
	ctx := context.Background()
	writer := f.Open(t)
	defer writer.Close()
	reader := f.Reopen(t)
	defer reader.Close()

	r, ok := reader.(reloader)
	if !ok {
		t.Skip("backend reads live state")
	}

	toolID := seed(t, writer)
	require.NoError(t, writer.RunInTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		b := booking(toolID, "2024-06-01", "2024-06-03")
		b.Status = domain.BookingStatusApproved
		return repos.Bookings().Create(ctx, b)
	}))

	count := func() int {
		var n int
		require.NoError(t, reader.View(ctx, func(ctx context.Context, repos repository.Repos) error {
			got, err := repos.Bookings().FindWhere(ctx, domain.BookingFilter{})
			n = len(got)
			return err
		}))
		return n
	}
	assert.Equal(t, 0, count())
	require.NoError(t, r.Reload(ctx))
	assert.Equal(t, 1, count())

	require.NoError(t, reader.View(ctx, func(ctx context.Context, repos repository.Repos) error {
		u, err := repos.Users().GetByUsername(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$bobhash", u.PasswordHash)
		return nil
	}))
}
