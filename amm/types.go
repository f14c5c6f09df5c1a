// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amm implements a constant-product automated market maker as a
// stateful precompile: one Factory singleton that deterministically
// creates one Pool per unordered token pair, each Pool minting and burning
// its own pool-share token and pricing swaps on the x*y=k invariant with a
// protocol-configurable fee split.
package amm

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// MinimumLiquidity is permanently locked in every pool's first mint so the
// pool-share price can never be driven to zero by a full withdrawal.
var MinimumLiquidity = big.NewInt(1000)

// feeNumerator/feeDenominator give the 0.3% swap fee: a swap must retain at
// least feeNumerator/feeDenominator of its input after accounting for the
// output taken, i.e. a 3/1000 fee on the input amount.
const (
	feeNumerator   = 997
	feeDenominator = 1000
)

// TokenHandle identifies an ERC-20-shaped asset participating in a pool.
// It carries no behavior of its own; the pool reads balances of and
// transfers value between these addresses via the safeTransfer helper.
type TokenHandle struct {
	Address common.Address
}

// PairKey is the canonical, order-independent identity of a token pair.
// Token0 is always the lexicographically smaller address.
type PairKey struct {
	Token0 common.Address
	Token1 common.Address
}

// ID returns the deterministic 32-byte pool identifier derived from the
// pair's canonical ordering. Anyone holding two token addresses can
// recompute this offline without touching chain state.
func (k PairKey) ID() [32]byte {
	return pairID(k.Token0, k.Token1)
}

// sortTokens orders two token addresses canonically, returning an error if
// they are identical or either is the zero address.
func sortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	}
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	if bytesLess(tokenA.Bytes(), tokenB.Bytes()) {
		return tokenA, tokenB, nil
	}
	return tokenB, tokenA, nil
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
