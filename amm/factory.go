// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// Factory is the AMM's single entry point: it deterministically derives
// one Pool per unordered token pair and holds the governance knobs that
// gate protocol-fee collection. It plays the same singleton-registry role
// dex/pool_manager.go's PoolManager plays for its tick pools.
type Factory struct {
	contractAddr common.Address

	mu    sync.Mutex
	pools map[[32]byte]*Pool
}

// NewFactory constructs a Factory hosted at contractAddr, the precompile
// address its Module registers it under.
func NewFactory(contractAddr common.Address) *Factory {
	return &Factory{
		contractAddr: contractAddr,
		pools:        make(map[[32]byte]*Pool),
	}
}

func (f *Factory) getPool(state StateDB, id [32]byte) (*Pool, bool) {
	if pool, ok := f.pools[id]; ok {
		return pool, true
	}
	if !getBool(state, f.contractAddr, pairKeyOf(id)) {
		return nil, false
	}
	token0 := getAddress(state, f.contractAddr, makeStorageKey(pairPrefix, append(id[:], 't', '0')))
	token1 := getAddress(state, f.contractAddr, makeStorageKey(pairPrefix, append(id[:], 't', '1')))
	pool := newPool(f.contractAddr, token0, token1)
	f.pools[id] = pool
	return pool, true
}

func (f *Factory) setPool(state StateDB, pool *Pool) {
	f.pools[pool.ID] = pool
	setBool(state, f.contractAddr, pairKeyOf(pool.ID), true)
	setAddress(state, f.contractAddr, makeStorageKey(pairPrefix, append(pool.ID[:], 't', '0')), pool.Token0)
	setAddress(state, f.contractAddr, makeStorageKey(pairPrefix, append(pool.ID[:], 't', '1')), pool.Token1)
}

// AllPairsLength returns the number of pairs ever created.
func (f *Factory) AllPairsLength(state StateDB) *big.Int {
	return getBig(state, f.contractAddr, allPairsKey)
}

// FeeTo returns the address protocol fees are minted to, or the zero
// address if protocol fees are disabled.
func (f *Factory) FeeTo(state StateDB) common.Address {
	return getAddress(state, f.contractAddr, feeToKey)
}

// FeeToSetter returns the address allowed to change FeeTo.
func (f *Factory) FeeToSetter(state StateDB) common.Address {
	return getAddress(state, f.contractAddr, feeToSetterKey)
}

// CreatePair creates the pool for tokenA/tokenB if it does not already
// exist, returning its deterministic pool id.
func (f *Factory) CreatePair(state StateDB, tokenA, tokenB common.Address) ([32]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token0, token1, err := sortTokens(tokenA, tokenB)
	if err != nil {
		return [32]byte{}, err
	}

	id := pairID(token0, token1)
	if _, exists := f.getPool(state, id); exists {
		return [32]byte{}, ErrPairExists
	}

	pool := newPool(f.contractAddr, token0, token1)
	f.setPool(state, pool)

	count := new(big.Int).Add(f.AllPairsLength(state), big.NewInt(1))
	setBig(state, f.contractAddr, allPairsKey, count)
	emitPairCreated(state, f.contractAddr, token0, token1, id, count)
	return id, nil
}

// SetFeeTo changes the protocol-fee recipient. Only FeeToSetter may call
// this.
func (f *Factory) SetFeeTo(state StateDB, caller, feeTo common.Address) error {
	if caller != f.FeeToSetter(state) {
		return ErrForbidden
	}
	setAddress(state, f.contractAddr, feeToKey, feeTo)
	return nil
}

// SetFeeToSetter transfers the right to call SetFeeTo/SetFeeToSetter to a
// new address. Only the current FeeToSetter may call this.
func (f *Factory) SetFeeToSetter(state StateDB, caller, newFeeToSetter common.Address) error {
	if caller != f.FeeToSetter(state) {
		return ErrForbidden
	}
	setAddress(state, f.contractAddr, feeToSetterKey, newFeeToSetter)
	return nil
}

// Pool returns the pool for an existing pair, if any.
func (f *Factory) Pool(state StateDB, tokenA, tokenB common.Address) (*Pool, bool) {
	token0, token1, err := sortTokens(tokenA, tokenB)
	if err != nil {
		return nil, false
	}
	return f.getPool(state, pairID(token0, token1))
}
