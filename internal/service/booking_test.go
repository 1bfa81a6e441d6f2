package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/service"
)

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)

		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)
		assert.Equal(t, int64(1), b.ID)
		assert.Equal(t, domain.BookingStatusPending, b.Status)
		assert.Equal(t, "alice", b.OwnerUsername)
		assert.True(t, decimal.RequireFromString("40.00").Equal(b.TotalCost), b.TotalCost.String())
		assert.Equal(t, fixedNow, b.CreatedAt)

		f.email.AssertCalled(t, "SendBookingRequestNotification", mock.Anything, userNamed("alice"), userNamed("bob"), mock.Anything, mock.Anything)
	})

	t.Run("DatesStoredCanonical", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, " 2024-06-01", "2024-06-03 ")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-01", b.StartDate)
		assert.Equal(t, "2024-06-03", b.EndDate)

		stored := f.allBookings(t)
		require.Len(t, stored, 1)
		assert.Equal(t, "2024-06-01", stored[0].StartDate)
		assert.Equal(t, "2024-06-03", stored[0].EndDate)

		q, err := f.bookings.Quote(ctx, f.T1, "2024-06-01 ", " 2024-06-03")
		require.NoError(t, err)
		assert.Equal(t, "2024-06-01", q.StartDate)
		assert.Equal(t, "2024-06-03", q.EndDate)
	})

	t.Run("OverlapRejected", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)

		_, err = f.bookings.CreateBooking(ctx, "carol", f.T1, "2024-06-02", "2024-06-02")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
		assert.Len(t, f.allBookings(t), 1)
	})

	t.Run("InclusiveBoundaries", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)

		_, err = f.bookings.CreateBooking(ctx, "carol", f.T1, "2024-06-03", "2024-06-05")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
		_, err = f.bookings.CreateBooking(ctx, "carol", f.T1, "2024-05-28", "2024-06-01")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)

		_, err = f.bookings.CreateBooking(ctx, "carol", f.T1, "2024-06-04", "2024-06-05")
		assert.NoError(t, err)
	})

	t.Run("SameDayIsOneDay", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-10", "2024-06-10")
		require.NoError(t, err)
		assert.True(t, f.tool(t, f.T1).DailyRate.Equal(b.TotalCost))
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-03", "2024-06-01")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, f.allBookings(t))
	})

	t.Run("BadDate", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "06/01/2024", "2024-06-03")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("SelfBooking", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "alice", f.T1, "2024-06-01", "2024-06-03")
		assert.ErrorIs(t, err, domain.ErrSelfBooking)
		assert.Empty(t, f.allBookings(t))
	})

	t.Run("UnknownToolOrRenter", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "bob", 99, "2024-06-01", "2024-06-03")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.bookings.CreateBooking(ctx, "mallory", f.T1, "2024-06-01", "2024-06-03")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ManualFlagOff", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.CreateBooking(ctx, "bob", f.T3, "2024-06-01", "2024-06-03")
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
	})

	t.Run("DerivedModeIgnoresFlag", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityDerived)
		_, err := f.bookings.CreateBooking(ctx, "bob", f.T3, "2024-06-01", "2024-06-03")
		assert.NoError(t, err)
	})

	t.Run("ClosedBookingsDoNotBlock", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		f.putBooking(t, f.T1, "carol", "2024-06-01", "2024-06-03", domain.BookingStatusDeclined)
		f.putBooking(t, f.T1, "carol", "2024-06-01", "2024-06-03", domain.BookingStatusCancelled)
		f.putBooking(t, f.T1, "carol", "2024-06-01", "2024-06-03", domain.BookingStatusReturned)
		f.putBooking(t, f.T1, "carol", "2024-06-01", "2024-06-03", domain.BookingStatusCompleted)

		_, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-02", "2024-06-02")
		assert.NoError(t, err)
	})

	t.Run("NotificationFailureIsIgnored", func(t *testing.T) {
		f := newFixtureWithEmail(t, service.AvailabilityOverride, new(MockEmailService).allowAll(errors.New("smtp down")))
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, b.Status)
	})

	t.Run("RecordsMetrics", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, _ = f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		_, _ = f.bookings.CreateBooking(ctx, "carol", f.T1, "2024-06-01", "2024-06-03")

		n, err := testutil.GatherAndCount(f.recorder.Registry(), "toolshare_operations_total")
		require.NoError(t, err)
		assert.Equal(t, 2, n) // success and error series
	})
}

func TestBookingService_ConcurrentRequestsNeverOverlap(t *testing.T) {
	f := newFixture(t, service.AvailabilityOverride)
	ctx := context.Background()

	renters := []string{"bob", "carol"}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.bookings.CreateBooking(ctx, renters[i%2], f.T1, "2024-07-01", "2024-07-05")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrNotAvailable)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Len(t, f.allBookings(t), 1)
}

func TestBookingService_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("FullLifecycle", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)

		b, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionApprove, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusApproved, b.Status)

		b, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionReturn, "bob")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusReturned, b.Status)

		b, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionComplete, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCompleted, b.Status)
		assert.Equal(t, int64(4), b.Version)

		for _, action := range []domain.BookingAction{
			domain.BookingActionApprove, domain.BookingActionDecline, domain.BookingActionCancel,
			domain.BookingActionReturn, domain.BookingActionComplete,
		} {
			_, err = f.bookings.Transition(ctx, b.ID, action, "alice")
			assert.ErrorIs(t, err, domain.ErrInvalidTransition, action)
		}

		// the manual flag is never touched by the lifecycle
		assert.True(t, f.tool(t, f.T1).Available)
		f.email.AssertCalled(t, "SendBookingStatusNotification", mock.Anything, userNamed("bob"), "alice", mock.Anything, mock.Anything)
		f.email.AssertCalled(t, "SendBookingStatusNotification", mock.Anything, userNamed("alice"), "bob", mock.Anything, mock.Anything)
		// completion reaches the owner too
		f.email.AssertCalled(t, "SendBookingStatusNotification", mock.Anything, userNamed("alice"), "alice", mock.Anything, mock.Anything)
	})

	t.Run("ApproveByRenterIsUnauthorized", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)

		_, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionApprove, "bob")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		b, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionApprove, "alice")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusApproved, b.Status)
	})

	t.Run("ReturnByOwnerOnPendingIsInvalid", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)

		_, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionReturn, "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("StrangerIsUnauthorized", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)

		_, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionApprove, "carol")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionReturn, "carol")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("UnknownBooking", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.bookings.Transition(ctx, 42, domain.BookingActionApprove, "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("CancelFreesTheDates", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		b, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
		require.NoError(t, err)
		_, err = f.bookings.Transition(ctx, b.ID, domain.BookingActionCancel, "bob")
		require.NoError(t, err)

		_, err = f.bookings.CreateBooking(ctx, "carol", f.T1, "2024-06-01", "2024-06-03")
		assert.NoError(t, err)
	})
}

// Every (status, action, role) combination either follows an edge of the
// lifecycle or is rejected without changing the booking.
func TestBookingService_TransitionMatrix(t *testing.T) {
	ctx := context.Background()
	legal := map[domain.BookingStatus]map[domain.BookingAction]struct {
		to    domain.BookingStatus
		actor string
	}{
		domain.BookingStatusPending: {
			domain.BookingActionApprove: {domain.BookingStatusApproved, "alice"},
			domain.BookingActionDecline: {domain.BookingStatusDeclined, "alice"},
			domain.BookingActionCancel:  {domain.BookingStatusCancelled, "bob"},
		},
		domain.BookingStatusApproved: {
			domain.BookingActionReturn: {domain.BookingStatusReturned, "bob"},
		},
		domain.BookingStatusReturned: {
			domain.BookingActionComplete: {domain.BookingStatusCompleted, "alice"},
		},
	}
	statuses := []domain.BookingStatus{
		domain.BookingStatusPending, domain.BookingStatusApproved, domain.BookingStatusDeclined,
		domain.BookingStatusCancelled, domain.BookingStatusReturned, domain.BookingStatusCompleted,
	}
	actions := []domain.BookingAction{
		domain.BookingActionApprove, domain.BookingActionDecline, domain.BookingActionCancel,
		domain.BookingActionReturn, domain.BookingActionComplete,
	}

	for _, status := range statuses {
		for _, action := range actions {
			for _, actor := range []string{"alice", "bob"} {
				name := string(status) + "/" + string(action) + "/" + actor
				t.Run(name, func(t *testing.T) {
					f := newFixture(t, service.AvailabilityOverride)
					b := f.putBooking(t, f.T1, "bob", "2024-06-01", "2024-06-03", status)

					got, err := f.bookings.Transition(ctx, b.ID, action, actor)
					edge, ok := legal[status][action]
					switch {
					case ok && edge.actor == actor:
						require.NoError(t, err)
						assert.Equal(t, edge.to, got.Status)
					case ok:
						assert.ErrorIs(t, err, domain.ErrUnauthorized)
					default:
						assert.ErrorIs(t, err, domain.ErrInvalidTransition)
					}
					if err != nil {
						stored, getErr := f.bookings.GetBooking(ctx, "alice", b.ID)
						require.NoError(t, getErr)
						assert.Equal(t, status, stored.Status)
					}
				})
			}
		}
	}
}

func TestBookingService_Quote(t *testing.T) {
	f := newFixture(t, service.AvailabilityOverride)
	ctx := context.Background()

	q, err := f.bookings.Quote(ctx, f.T1, "2024-06-01", "2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, 2, q.DurationDays)
	assert.True(t, decimal.RequireFromString("40").Equal(q.TotalCost))
	assert.True(t, decimal.NewFromInt(50).Equal(q.Deposit))

	q, err = f.bookings.Quote(ctx, f.T1, "2024-06-01", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 1, q.DurationDays)

	_, err = f.bookings.Quote(ctx, 99, "2024-06-01", "2024-06-01")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_Queries(t *testing.T) {
	f := newFixture(t, service.AvailabilityOverride)
	ctx := context.Background()

	b1, err := f.bookings.CreateBooking(ctx, "bob", f.T1, "2024-06-01", "2024-06-03")
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, "carol", f.T2, "2024-06-01", "2024-06-03")
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, "alice", f.T2, "2024-06-10", "2024-06-12")
	require.NoError(t, err)

	t.Run("GetBooking", func(t *testing.T) {
		got, err := f.bookings.GetBooking(ctx, "bob", b1.ID)
		require.NoError(t, err)
		assert.Equal(t, b1.ID, got.ID)

		_, err = f.bookings.GetBooking(ctx, "carol", b1.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("ListRentals", func(t *testing.T) {
		rentals, err := f.bookings.ListRentals(ctx, "carol")
		require.NoError(t, err)
		require.Len(t, rentals, 1)
		assert.Equal(t, f.T2, rentals[0].ToolID)
	})

	t.Run("ListRequests", func(t *testing.T) {
		requests, err := f.bookings.ListRequests(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})

	t.Run("ListToolBookings", func(t *testing.T) {
		bookings, err := f.bookings.ListToolBookings(ctx, "alice", f.T1)
		require.NoError(t, err)
		assert.Len(t, bookings, 1)

		_, err = f.bookings.ListToolBookings(ctx, "bob", f.T1)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("ListNeedsUser", func(t *testing.T) {
		_, err := f.bookings.ListRentals(ctx, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
