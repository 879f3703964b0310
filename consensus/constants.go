package consensus

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConsensusConstants carries the network values the core consumes:
// the signing domain constant, activation heights and the per-condition
// cost schedule. These are values, not behavior; test networks override
// them through the YAML presets.
type ConsensusConstants struct {
	// AggSigAdditionalData seeds the per-opcode signing domain
	// separators (§ AGG_SIG message construction).
	AggSigAdditionalData [32]byte

	// HardForkFixHeight gates the per-spend generator driver.
	HardForkFixHeight uint32

	// MaxBlockCost is the cost ceiling of a full block.
	MaxBlockCost uint64

	// CostPerByte is charged for every byte of the serialized block
	// program before execution starts.
	CostPerByte uint64

	// Condition cost schedule.
	AggSigCost       uint64
	CreateCoinCost   uint64
	AnnouncementCost uint64
	ConditionCost    uint64 // flat per-condition cost under COST_CONDITIONS
}

// MainnetConstants returns the main network's values.
func MainnetConstants() *ConsensusConstants {
	return &ConsensusConstants{
		AggSigAdditionalData: mustHash32("8e3ac4a9ddb5a43febcd0c2d391c35d5a8b4c1f77d9e0c9b60e4e1a7f2a66d13"),
		HardForkFixHeight:    5_496_000,
		MaxBlockCost:         11_000_000_000,
		CostPerByte:          12_000,
		AggSigCost:           1_200_000,
		CreateCoinCost:       1_800_000,
		AnnouncementCost:     1_024,
		ConditionCost:        500,
	}
}

// TestnetConstants returns MainnetConstants with the signing domain
// re-seeded, so testnet signatures never validate on mainnet, and with
// HardForkFixHeight at 0, so every testnet height uses the current driver.
func TestnetConstants() *ConsensusConstants {
	c := MainnetConstants()
	c.AggSigAdditionalData = mustHash32("b0c9a3f5e8d2744cfa571de07b3a4e8276a5a1cf0dd38d9cf4e2a6b19e2d5c04")
	c.HardForkFixHeight = 0
	return c
}

func mustHash32(s string) [32]byte {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		panic("consensus: bad constant: " + s)
	}
	var out [32]byte
	copy(out[:], raw)
	return out
}

type constantsYAML struct {
	AggSigAdditionalData string  `yaml:"agg_sig_additional_data"`
	HardForkFixHeight    *uint32 `yaml:"hard_fork_fix_height"`
	MaxBlockCost         *uint64 `yaml:"max_block_cost"`
	CostPerByte          *uint64 `yaml:"cost_per_byte"`
	AggSigCost           *uint64 `yaml:"agg_sig_cost"`
	CreateCoinCost       *uint64 `yaml:"create_coin_cost"`
	AnnouncementCost     *uint64 `yaml:"announcement_cost"`
	ConditionCost        *uint64 `yaml:"condition_cost"`
}

// ConstantsFromYAML overlays a YAML preset onto the mainnet defaults.
// Absent keys keep their default value.
func ConstantsFromYAML(raw []byte) (*ConsensusConstants, error) {
	var in constantsYAML
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("constants: decode preset: %w", err)
	}
	c := MainnetConstants()
	if in.AggSigAdditionalData != "" {
		data, err := hex.DecodeString(in.AggSigAdditionalData)
		if err != nil || len(data) != 32 {
			return nil, fmt.Errorf("constants: agg_sig_additional_data must be 32 hex bytes")
		}
		copy(c.AggSigAdditionalData[:], data)
	}
	if in.HardForkFixHeight != nil {
		c.HardForkFixHeight = *in.HardForkFixHeight
	}
	if in.MaxBlockCost != nil {
		c.MaxBlockCost = *in.MaxBlockCost
	}
	if in.CostPerByte != nil {
		c.CostPerByte = *in.CostPerByte
	}
	if in.AggSigCost != nil {
		c.AggSigCost = *in.AggSigCost
	}
	if in.CreateCoinCost != nil {
		c.CreateCoinCost = *in.CreateCoinCost
	}
	if in.AnnouncementCost != nil {
		c.AnnouncementCost = *in.AnnouncementCost
	}
	if in.ConditionCost != nil {
		c.ConditionCost = *in.ConditionCost
	}
	return c, nil
}

// LoadConstants reads a YAML preset file.
func LoadConstants(path string) (*ConsensusConstants, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ConstantsFromYAML(raw)
}
