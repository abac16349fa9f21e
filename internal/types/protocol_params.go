package types

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// ChainParams describes a single supported chain and the tokens the protocol
// accepts on it. The native asset is always supported and does not need to be
// listed explicitly.
type ChainParams struct {
	ChainId         uint64   `json:"chain_id"`
	Name            string   `json:"name"`
	SupportedTokens []string `json:"supported_tokens"`
}

// ProtocolParams are the protocol-wide constants shared by all components.
// They are loaded once at startup from a JSON file and treated as immutable.
type ProtocolParams struct {
	HubChainId             uint64        `json:"hub_chain_id"`
	MinStakeAmount         uint64        `json:"min_stake_amount"`
	UnbondingPeriodSeconds int64         `json:"unbonding_period_seconds"`
	FeeTickIntervalSeconds int64         `json:"fee_tick_interval_seconds"`
	Chains                 []ChainParams `json:"chains"`
}

func NewProtocolParams(filePath string) (*ProtocolParams, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var params ProtocolParams
	err = json.Unmarshal(data, &params)
	if err != nil {
		return nil, err
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &params, nil
}

func (p *ProtocolParams) Validate() error {
	if p.MinStakeAmount == 0 {
		return fmt.Errorf("min_stake_amount must be positive")
	}
	if p.UnbondingPeriodSeconds <= 0 {
		return fmt.Errorf("unbonding_period_seconds must be positive")
	}
	if p.FeeTickIntervalSeconds <= 0 {
		return fmt.Errorf("fee_tick_interval_seconds must be positive")
	}
	if len(p.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}
	seen := make(map[uint64]bool)
	for _, chain := range p.Chains {
		if seen[chain.ChainId] {
			return fmt.Errorf("duplicated chain id: %d", chain.ChainId)
		}
		seen[chain.ChainId] = true
	}
	return nil
}

func (p *ProtocolParams) UnbondingPeriod() time.Duration {
	return time.Duration(p.UnbondingPeriodSeconds) * time.Second
}

func (p *ProtocolParams) FeeTickInterval() time.Duration {
	return time.Duration(p.FeeTickIntervalSeconds) * time.Second
}

func (p *ProtocolParams) IsChainSupported(chainId uint64) bool {
	for _, chain := range p.Chains {
		if chain.ChainId == chainId {
			return true
		}
	}
	return false
}

func (p *ProtocolParams) IsTokenSupported(chainId uint64, token string) bool {
	if strings.EqualFold(token, NativeTokenAddress) {
		return p.IsChainSupported(chainId)
	}
	for _, chain := range p.Chains {
		if chain.ChainId != chainId {
			continue
		}
		for _, supported := range chain.SupportedTokens {
			if strings.EqualFold(supported, token) {
				return true
			}
		}
	}
	return false
}
