package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/voucher-api-service/internal/types"
)

func TestRegisterXLP(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 200))

	stake, err := s.GetXLPStake(ctx, testXlp)
	require.Nil(t, err)
	assert.Equal(t, uint64(200), stake.StakedAmount)
	assert.True(t, stake.IsActive)
	assert.Equal(t, []uint64{destChain}, stake.SupportedChains)

	t.Run("double registration", func(t *testing.T) {
		err := s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 300)
		require.NotNil(t, err)
		assert.Equal(t, http.StatusConflict, err.StatusCode)
	})

	t.Run("below minimum stake", func(t *testing.T) {
		err := s.RegisterXLP(ctx, testRecipient, []uint64{destChain}, 99)
		require.NotNil(t, err)
		assert.Equal(t, types.InvalidParameters, err.ErrorCode)
	})

	t.Run("no supported chains", func(t *testing.T) {
		err := s.RegisterXLP(ctx, testRecipient, nil, 200)
		require.NotNil(t, err)
		assert.Equal(t, types.InvalidParameters, err.ErrorCode)
	})

	t.Run("unsupported chain", func(t *testing.T) {
		err := s.RegisterXLP(ctx, testRecipient, []uint64{999}, 200)
		require.NotNil(t, err)
		assert.Equal(t, types.InvalidParameters, err.ErrorCode)
	})
}

func TestUnbondingLifecycle(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 1000))
	require.Nil(t, s.AddStake(ctx, testXlp, 500))
	require.Nil(t, s.StartUnbonding(ctx, testXlp, 400))

	t.Run("one unbonding at a time", func(t *testing.T) {
		err := s.StartUnbonding(ctx, testXlp, 100)
		require.NotNil(t, err)
		assert.Equal(t, http.StatusConflict, err.StatusCode)
	})

	t.Run("not ready before the period", func(t *testing.T) {
		_, err := s.CompleteUnbonding(ctx, testXlp)
		require.NotNil(t, err)
		assert.Equal(t, types.UnbondingNotReady, err.ErrorCode)
	})

	t.Run("payout after the period", func(t *testing.T) {
		stake := fake.stakes[testXlp]
		started := time.Now().Add(-2 * time.Hour).Unix()
		stake.UnbondingStartTime = &started
		fake.stakes[testXlp] = stake

		payout, err := s.CompleteUnbonding(ctx, testXlp)
		require.Nil(t, err)
		assert.Equal(t, uint64(400), payout)

		remaining, gerr := s.GetXLPStake(ctx, testXlp)
		require.Nil(t, gerr)
		assert.Equal(t, uint64(1100), remaining.StakedAmount)
		assert.True(t, remaining.IsActive)
		assert.Nil(t, remaining.UnbondingStartTime)
	})

	t.Run("no unbonding in progress", func(t *testing.T) {
		_, err := s.CompleteUnbonding(ctx, testXlp)
		require.NotNil(t, err)
		assert.Equal(t, http.StatusNotFound, err.StatusCode)
	})
}

func TestUnbondingExceedingStake(t *testing.T) {
	s := newTestServices(newFakeDB())
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 200))
	err := s.StartUnbonding(ctx, testXlp, 201)
	require.NotNil(t, err)
	assert.Equal(t, types.InsufficientLiquidity, err.ErrorCode)
}

func TestSlashXLPStake(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 1000))

	t.Run("requires a reason", func(t *testing.T) {
		_, err := s.SlashXLPStake(ctx, testXlp, 100, "   ")
		require.NotNil(t, err)
		assert.Equal(t, types.InvalidParameters, err.ErrorCode)
	})

	t.Run("partial slash", func(t *testing.T) {
		slashed, err := s.SlashXLPStake(ctx, testXlp, 300, "voucher expired unfulfilled")
		require.Nil(t, err)
		assert.Equal(t, uint64(300), slashed)

		stake, gerr := s.GetXLPStake(ctx, testXlp)
		require.Nil(t, gerr)
		assert.Equal(t, uint64(700), stake.StakedAmount)
		assert.Equal(t, uint64(300), stake.SlashedAmount)
		assert.True(t, stake.IsActive)
	})

	t.Run("slash clamps at remaining stake", func(t *testing.T) {
		slashed, err := s.SlashXLPStake(ctx, testXlp, 10_000, "repeated violations")
		require.Nil(t, err)
		assert.Equal(t, uint64(700), slashed)

		stake, gerr := s.GetXLPStake(ctx, testXlp)
		require.Nil(t, gerr)
		assert.Zero(t, stake.StakedAmount)
		assert.False(t, stake.IsActive, "stake below minimum deactivates the xlp")
	})

	t.Run("audit records", func(t *testing.T) {
		records, err := s.GetSlashRecords(ctx, testXlp)
		require.Nil(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "voucher expired unfulfilled", records[0].Reason)
		assert.Equal(t, uint64(10_000), records[1].RequestedAmount)
		assert.Equal(t, uint64(700), records[1].SlashedAmount)
	})
}

func TestSlashDuringUnbondingReducesPayout(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 1000))
	require.Nil(t, s.StartUnbonding(ctx, testXlp, 1000))

	// Unbonding does not shelter the stake from slashing.
	slashed, serr := s.SlashXLPStake(ctx, testXlp, 300, "fulfillment deadline missed while unbonding")
	require.Nil(t, serr)
	assert.Equal(t, uint64(300), slashed)

	stake := fake.stakes[testXlp]
	started := time.Now().Add(-2 * time.Hour).Unix()
	stake.UnbondingStartTime = &started
	fake.stakes[testXlp] = stake

	payout, err := s.CompleteUnbonding(ctx, testXlp)
	require.Nil(t, err)
	assert.Equal(t, uint64(700), payout, "the payout reflects the slash applied while unbonding")

	remaining, gerr := s.GetXLPStake(ctx, testXlp)
	require.Nil(t, gerr)
	assert.Zero(t, remaining.StakedAmount)
	assert.False(t, remaining.IsActive)
}

func TestReactivationAfterFullUnbond(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 200))
	require.Nil(t, s.StartUnbonding(ctx, testXlp, 200))

	stake := fake.stakes[testXlp]
	started := time.Now().Add(-2 * time.Hour).Unix()
	stake.UnbondingStartTime = &started
	fake.stakes[testXlp] = stake

	payout, err := s.CompleteUnbonding(ctx, testXlp)
	require.Nil(t, err)
	assert.Equal(t, uint64(200), payout)

	// A fully unbonded XLP can come back with a fresh stake and chain set.
	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{sourceChain, destChain}, 500))
	reactivated, gerr := s.GetXLPStake(ctx, testXlp)
	require.Nil(t, gerr)
	assert.Equal(t, uint64(500), reactivated.StakedAmount)
	assert.True(t, reactivated.IsActive)
	assert.Equal(t, []uint64{sourceChain, destChain}, reactivated.SupportedChains)
}

func TestGetUnbondingTimeRemaining(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 200))

	t.Run("no unbonding in progress", func(t *testing.T) {
		_, err := s.GetUnbondingTimeRemaining(ctx, testXlp)
		require.NotNil(t, err)
		assert.Equal(t, http.StatusNotFound, err.StatusCode)
	})

	t.Run("counting down", func(t *testing.T) {
		require.Nil(t, s.StartUnbonding(ctx, testXlp, 100))
		remaining, err := s.GetUnbondingTimeRemaining(ctx, testXlp)
		require.Nil(t, err)
		assert.Greater(t, remaining, int64(3500))
		assert.LessOrEqual(t, remaining, int64(3600))
	})

	t.Run("clamped at zero", func(t *testing.T) {
		stake := fake.stakes[testXlp]
		started := time.Now().Add(-2 * time.Hour).Unix()
		stake.UnbondingStartTime = &started
		fake.stakes[testXlp] = stake

		remaining, err := s.GetUnbondingTimeRemaining(ctx, testXlp)
		require.Nil(t, err)
		assert.Zero(t, remaining)
	})
}
