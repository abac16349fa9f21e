package types_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslane/voucher-api-service/internal/types"
)

func writeParamsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "protocol_params.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewProtocolParams(t *testing.T) {
	path := writeParamsFile(t, `{
		"hub_chain_id": 1,
		"min_stake_amount": 100,
		"unbonding_period_seconds": 3600,
		"fee_tick_interval_seconds": 60,
		"chains": [
			{"chain_id": 1, "name": "hub", "supported_tokens": ["0xAaAaAAaaaAAAAaaaAAaaaaaAAaAaaaaAaaaAaaAA"]},
			{"chain_id": 10, "name": "spoke", "supported_tokens": []}
		]
	}`)

	params, err := types.NewProtocolParams(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), params.HubChainId)
	assert.Equal(t, time.Hour, params.UnbondingPeriod())
	assert.Equal(t, time.Minute, params.FeeTickInterval())
	assert.True(t, params.IsChainSupported(10))
	assert.False(t, params.IsChainSupported(2))
}

func TestNewProtocolParamsRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero min stake", `{"hub_chain_id":1,"min_stake_amount":0,"unbonding_period_seconds":3600,"fee_tick_interval_seconds":60,"chains":[{"chain_id":1}]}`},
		{"zero unbonding period", `{"hub_chain_id":1,"min_stake_amount":100,"unbonding_period_seconds":0,"fee_tick_interval_seconds":60,"chains":[{"chain_id":1}]}`},
		{"no chains", `{"hub_chain_id":1,"min_stake_amount":100,"unbonding_period_seconds":3600,"fee_tick_interval_seconds":60,"chains":[]}`},
		{"duplicate chain ids", `{"hub_chain_id":1,"min_stake_amount":100,"unbonding_period_seconds":3600,"fee_tick_interval_seconds":60,"chains":[{"chain_id":1},{"chain_id":1}]}`},
		{"not json", `min_stake_amount: 100`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := types.NewProtocolParams(writeParamsFile(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestIsTokenSupported(t *testing.T) {
	params := &types.ProtocolParams{
		HubChainId:             1,
		MinStakeAmount:         100,
		UnbondingPeriodSeconds: 3600,
		FeeTickIntervalSeconds: 60,
		Chains: []types.ChainParams{
			{ChainId: 1, SupportedTokens: []string{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}},
			{ChainId: 10},
		},
	}

	assert.True(t, params.IsTokenSupported(1, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	assert.True(t, params.IsTokenSupported(1, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"), "token comparison is case insensitive")
	assert.False(t, params.IsTokenSupported(10, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))

	// The native asset is supported on every configured chain.
	assert.True(t, params.IsTokenSupported(1, types.NativeTokenAddress))
	assert.True(t, params.IsTokenSupported(10, types.NativeTokenAddress))
	assert.False(t, params.IsTokenSupported(2, types.NativeTokenAddress))
}
