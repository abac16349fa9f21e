package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RelayChainConfig describes one chain the relay watches: the RPC endpoint
// and the escrow contract whose logs drive the voucher lifecycle.
type RelayChainConfig struct {
	ChainId        uint64 `mapstructure:"chain-id"`
	RpcUrl         string `mapstructure:"rpc-url"`
	EscrowContract string `mapstructure:"escrow-contract"`
	StartBlock     uint64 `mapstructure:"start-block"`
}

func (cfg *RelayChainConfig) Validate() error {
	if cfg.ChainId == 0 {
		return fmt.Errorf("relay chain id must be positive")
	}
	if cfg.RpcUrl == "" {
		return fmt.Errorf("missing rpc url for chain %d", cfg.ChainId)
	}
	if !common.IsHexAddress(cfg.EscrowContract) {
		return fmt.Errorf("invalid escrow contract address for chain %d: %s", cfg.ChainId, cfg.EscrowContract)
	}
	return nil
}

type RelayConfig struct {
	Enabled       bool               `mapstructure:"enabled"`
	PollInterval  time.Duration      `mapstructure:"poll-interval"`
	Confirmations uint64             `mapstructure:"confirmations"`
	Chains        []RelayChainConfig `mapstructure:"chains"`
}

func (cfg *RelayConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	if cfg.PollInterval <= 0 {
		return fmt.Errorf("relay poll interval must be positive")
	}

	if len(cfg.Chains) == 0 {
		return fmt.Errorf("relay is enabled but no chains are configured")
	}

	seen := make(map[uint64]bool)
	for i := range cfg.Chains {
		if err := cfg.Chains[i].Validate(); err != nil {
			return err
		}
		if seen[cfg.Chains[i].ChainId] {
			return fmt.Errorf("duplicated relay chain id: %d", cfg.Chains[i].ChainId)
		}
		seen[cfg.Chains[i].ChainId] = true
	}

	return nil
}
