// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

// Package config defines the node's enumerated configuration surface.
// Every recognized option has a struct field; naoina/toml is configured to
// reject unknown keys at decode time.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/naoina/toml"
)

// ConsensusConfig groups the rPoS engine's tunables.
type ConsensusConfig struct {
	BlockTime               time.Duration `toml:"block_time"`
	MinValidators           int           `toml:"min_validators"`
	FinalizationThreshold   float64       `toml:"finalization_threshold"`
	BlockProposalTimeout    time.Duration `toml:"block_proposal_timeout"`
	VotingTimeout           time.Duration `toml:"voting_timeout"`
	MissedBlocksBeforeJail  int           `toml:"missed_blocks_before_jail"`
	JailTime                int           `toml:"jail_time"` // expressed in multiples of BlockTime
	SlashingPenalty         float64       `toml:"slashing_penalty"`
	MaxRound                int           `toml:"max_round"`
	ReputationDecayFactor   float64       `toml:"reputation_decay_factor"`
	ReputationGainFactor    float64       `toml:"reputation_gain_factor"`
	ReputationBonusCeiling  float64       `toml:"reputation_bonus_ceiling"`
	ReputationNormalizer    float64       `toml:"reputation_normalizer"`
}

// NetworkConfig groups peer-pool policy.
type NetworkConfig struct {
	MaxPeers             int           `toml:"max_peers"`
	MinPeers             int           `toml:"min_peers"`
	Port                 int           `toml:"port"`
	SeedNodes            []string      `toml:"seed_nodes"`
	ValidatorPriority    bool          `toml:"validator_priority"`
	PeerDiscoveryInterval time.Duration `toml:"peer_discovery_interval"`
	PeerPingInterval     time.Duration `toml:"peer_ping_interval"`
	HandshakeTimeout     time.Duration `toml:"handshake_timeout"`
}

// MempoolConfig groups pending-transaction limits.
type MempoolConfig struct {
	MaxTransactions   int           `toml:"max_transactions"`
	MaxSizeBytes      int64         `toml:"max_size_bytes"`
	ExpirationTime    time.Duration `toml:"expiration_time"`
	CleanupInterval   time.Duration `toml:"cleanup_interval"`
	PersistenceInterval time.Duration `toml:"persistence_interval"`
	RedisAddr         string        `toml:"redis_addr"`
}

// StorageConfig groups ledger-persistence policy.
type StorageConfig struct {
	DataDir           string `toml:"data_dir"`
	CheckpointInterval uint64 `toml:"checkpoint_interval"`
	PruneAfterBlocks  uint64 `toml:"prune_after_blocks"`
	SnapshotInterval  uint64 `toml:"snapshot_interval"`
	HalvingInterval   uint64 `toml:"halving_interval"`
	MaxSupply         uint64 `toml:"max_supply"` // in driftoshi
	CheckpointsKept   int    `toml:"checkpoints_kept"`
	BlockSizeLimit    int    `toml:"block_size_limit"`
}

// DistributionConfig groups genesis/early-validator bonuses.
type DistributionConfig struct {
	DistributionPeriodDays int    `toml:"distribution_period_days"`
	DeveloperReward        uint64 `toml:"developer_reward"` // in driftoshi
	ValidatorReward        uint64 `toml:"validator_reward"` // in driftoshi
}

// Config is the full, validated node configuration.
type Config struct {
	LogLevel     string              `toml:"log_level"`
	Consensus    ConsensusConfig     `toml:"consensus"`
	Network      NetworkConfig       `toml:"network"`
	Mempool      MempoolConfig       `toml:"mempool"`
	Storage      StorageConfig       `toml:"storage"`
	Distribution DistributionConfig  `toml:"distribution"`
}

// Default returns the testnet-oriented defaults (10s block time, 100-block
// halving, ...).
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Consensus: ConsensusConfig{
			BlockTime:              10 * time.Second,
			MinValidators:          1,
			FinalizationThreshold:  2.0 / 3.0,
			BlockProposalTimeout:   4 * time.Second,
			VotingTimeout:          3 * time.Second,
			MissedBlocksBeforeJail: 24,
			JailTime:               100,
			SlashingPenalty:        0.01,
			MaxRound:               16,
			ReputationDecayFactor:  0.98,
			ReputationGainFactor:   1.02,
			ReputationBonusCeiling: 0.5,
			ReputationNormalizer:   1000,
		},
		Network: NetworkConfig{
			MaxPeers:              50,
			MinPeers:              8,
			Port:                  26656,
			ValidatorPriority:     true,
			PeerDiscoveryInterval: 30 * time.Second,
			PeerPingInterval:      15 * time.Second,
			HandshakeTimeout:      5 * time.Second,
		},
		Mempool: MempoolConfig{
			MaxTransactions:     10000,
			MaxSizeBytes:        32 << 20,
			ExpirationTime:      3 * time.Hour,
			CleanupInterval:     time.Minute,
			PersistenceInterval: 30 * time.Second,
			RedisAddr:           "127.0.0.1:6379",
		},
		Storage: StorageConfig{
			DataDir:            "./data",
			CheckpointInterval: 100,
			PruneAfterBlocks:   0,
			SnapshotInterval:   1000,
			HalvingInterval:    100, // testnet value
			MaxSupply:          21_000_000 * 100_000_000,
			CheckpointsKept:    10,
			BlockSizeLimit:     2 << 20,
		},
		Distribution: DistributionConfig{
			DistributionPeriodDays: 90,
			DeveloperReward:        100 * 100_000_000,
			ValidatorReward:        1 * 100_000_000,
		},
	}
}

// Load reads and strictly decodes a TOML file at path on top of Default(),
// rejecting unrecognized keys.
func Load(path string) (*Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces cross-field invariants the TOML decoder cannot express.
func (c *Config) Validate() error {
	if c.Network.MinPeers > c.Network.MaxPeers {
		return fmt.Errorf("config: min_peers (%d) exceeds max_peers (%d)", c.Network.MinPeers, c.Network.MaxPeers)
	}
	if c.Consensus.FinalizationThreshold < 0.5 || c.Consensus.FinalizationThreshold > 1 {
		return fmt.Errorf("config: finalization_threshold must be in [0.5,1], got %f", c.Consensus.FinalizationThreshold)
	}
	if c.Storage.HalvingInterval == 0 {
		return fmt.Errorf("config: storage.halving_interval must be > 0")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.data_dir must be set")
	}
	return nil
}
