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

func TestDepositLiquidityRequiresActiveStake(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	err := s.DepositLiquidity(ctx, testXlp, destChain, testToken, 1000)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode)

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 200))
	require.Nil(t, s.DepositLiquidity(ctx, testXlp, destChain, testToken, 1000))

	balances, gerr := s.GetLiquidityBalances(ctx, testXlp)
	require.Nil(t, gerr)
	require.Len(t, balances, 1)
	assert.Equal(t, uint64(1000), balances[0].Amount)
	assert.Equal(t, uint64(1000), balances[0].AvailableAmount)
}

func TestWithdrawLiquidityHonorsLocks(t *testing.T) {
	fake := newFakeDB()
	s := newTestServices(fake)
	ctx := context.Background()

	require.Nil(t, s.RegisterXLP(ctx, testXlp, []uint64{destChain}, 200))
	require.Nil(t, s.DepositLiquidity(ctx, testXlp, destChain, testToken, 1000))

	now := time.Now()
	seedOpenRequest(fake, "req-lock", 600, 0, 50, 5, now.Unix(), now.Add(time.Hour).Unix())
	_, cerr := s.ClaimVoucherRequest(ctx, "req-lock", testXlp)
	require.Nil(t, cerr)

	// 600 of the 1000 is locked behind the voucher; only 400 can leave.
	err := s.WithdrawLiquidity(ctx, testXlp, destChain, testToken, 500)
	require.NotNil(t, err)
	assert.Equal(t, types.InsufficientUnlocked, err.ErrorCode)

	require.Nil(t, s.WithdrawLiquidity(ctx, testXlp, destChain, testToken, 400))

	balances, gerr := s.GetLiquidityBalances(ctx, testXlp)
	require.Nil(t, gerr)
	require.Len(t, balances, 1)
	assert.Equal(t, uint64(600), balances[0].Amount)
	assert.Equal(t, uint64(600), balances[0].LockedAmount)
	assert.Zero(t, balances[0].AvailableAmount)
}

func TestWithdrawLiquidityUnknownBalance(t *testing.T) {
	s := newTestServices(newFakeDB())
	err := s.WithdrawLiquidity(context.Background(), testXlp, destChain, testToken, 100)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
}
