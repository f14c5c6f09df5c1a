// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the activation and governance config
// shape shared by every stateful precompile module.
package precompileconfig

import "math/big"

// Config is implemented by every precompile's own Config type.
type Config interface {
	// Key returns the same ConfigKey as the precompile's Module.
	Key() string
	// Timestamp returns the activation time, or nil if never activated.
	Timestamp() *uint64
	// IsDisabled reports whether this config disables a previously
	// activated precompile.
	IsDisabled() bool
	Equal(Config) bool
	Verify(chainConfig ChainConfig) error
}

// FeeConfig mirrors the handful of dynamic-fee fields a precompile's Verify
// step may need to cross-check against (e.g. rejecting a protocol fee that
// would push the pool fee below the network's minimum base fee policy).
type FeeConfig struct {
	GasLimit        *big.Int
	MinBaseFee      *big.Int
	TargetGas       *big.Int
	BaseFeeChangeDenominator *big.Int
}

// ChainConfig is the subset of the chain's network config a precompile may
// consult while verifying or applying its own config.
type ChainConfig interface {
	GetFeeConfig() FeeConfig
	AllowedFeeRecipients() bool
	IsDurango(time uint64) bool
}

// Upgrade is the common network-upgrade envelope every precompile config
// embeds: the timestamp it activates at, and whether this entry disables a
// previously active precompile instead of enabling one.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

func (u *Upgrade) Equal(other *Upgrade) bool {
	if u == nil || other == nil {
		return u == other
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	if u.BlockTimestamp == nil {
		return true
	}
	return *u.BlockTimestamp == *other.BlockTimestamp
}
