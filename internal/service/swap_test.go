package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"toolshare-backend/internal/domain"
	"toolshare-backend/internal/service"
)

func TestSwapService_ProposeSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		sw, err := f.swaps.ProposeSwap(ctx, "alice", f.T1, "bob", f.T2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sw.ID)
		assert.Equal(t, domain.SwapStatusPending, sw.Status)
		assert.Equal(t, fixedNow, sw.ProposedDate)
		assert.Nil(t, sw.AcceptedDate)

		f.email.AssertCalled(t, "SendSwapProposalNotification", mock.Anything, userNamed("bob"), userNamed("alice"), mock.Anything)
	})

	t.Run("ReceiverToolUnavailable", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.swaps.ProposeSwap(ctx, "bob", f.T2, "alice", f.T3)
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
	})

	t.Run("OwnershipMismatch", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.swaps.ProposeSwap(ctx, "alice", f.T2, "bob", f.T1)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.swaps.ProposeSwap(ctx, "carol", f.T1, "bob", f.T2)
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.swaps.ProposeSwap(ctx, "alice", f.T1, "carol", f.T2)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("SameUser", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.swaps.ProposeSwap(ctx, "alice", f.T1, "alice", f.T3)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("UnknownTool", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.swaps.ProposeSwap(ctx, "alice", 99, "bob", f.T2)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSwapService_RespondToSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("DeclineThenAccept", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		sw, err := f.swaps.ProposeSwap(ctx, "alice", f.T1, "bob", f.T2)
		require.NoError(t, err)

		sw, err = f.swaps.RespondToSwap(ctx, sw.ID, domain.SwapActionDecline, "bob")
		require.NoError(t, err)
		assert.Equal(t, domain.SwapStatusDeclined, sw.Status)
		assert.Nil(t, sw.AcceptedDate)

		_, err = f.swaps.RespondToSwap(ctx, sw.ID, domain.SwapActionAccept, "bob")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		f.email.AssertCalled(t, "SendSwapResponseNotification", mock.Anything, userNamed("alice"), mock.Anything)
	})

	t.Run("AcceptSetsDate", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		sw, err := f.swaps.ProposeSwap(ctx, "alice", f.T1, "bob", f.T2)
		require.NoError(t, err)

		sw, err = f.swaps.RespondToSwap(ctx, sw.ID, domain.SwapActionAccept, "bob")
		require.NoError(t, err)
		assert.Equal(t, domain.SwapStatusAccepted, sw.Status)
		require.NotNil(t, sw.AcceptedDate)
		assert.Equal(t, fixedNow, *sw.AcceptedDate)

		// no ownership transfer
		assert.Equal(t, "alice", f.tool(t, f.T1).OwnerUsername)
		assert.Equal(t, "bob", f.tool(t, f.T2).OwnerUsername)
	})

	t.Run("OnlyReceiverMayRespond", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		sw, err := f.swaps.ProposeSwap(ctx, "alice", f.T1, "bob", f.T2)
		require.NoError(t, err)

		_, err = f.swaps.RespondToSwap(ctx, sw.ID, domain.SwapActionAccept, "alice")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.swaps.RespondToSwap(ctx, sw.ID, domain.SwapActionAccept, "carol")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		got, err := f.swaps.GetSwap(ctx, "bob", sw.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SwapStatusPending, got.Status)
	})

	t.Run("UnknownSwap", func(t *testing.T) {
		f := newFixture(t, service.AvailabilityOverride)
		_, err := f.swaps.RespondToSwap(ctx, 7, domain.SwapActionAccept, "bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSwapService_Queries(t *testing.T) {
	f := newFixture(t, service.AvailabilityOverride)
	ctx := context.Background()

	out, err := f.swaps.ProposeSwap(ctx, "alice", f.T1, "bob", f.T2)
	require.NoError(t, err)
	_, err = f.swaps.ProposeSwap(ctx, "bob", f.T2, "alice", f.T1)
	require.NoError(t, err)

	incoming, err := f.swaps.ListSwaps(ctx, "alice", domain.SwapDirectionIncoming)
	require.NoError(t, err)
	assert.Len(t, incoming, 1)

	outgoing, err := f.swaps.ListSwaps(ctx, "alice", domain.SwapDirectionOutgoing)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, out.ID, outgoing[0].ID)

	all, err := f.swaps.ListSwaps(ctx, "alice", domain.SwapDirectionAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.swaps.ListSwaps(ctx, "carol", domain.SwapDirectionAll)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.swaps.ListSwaps(ctx, "alice", "sideways")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.swaps.GetSwap(ctx, "carol", out.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
