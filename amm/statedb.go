// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/core/types"
	"github.com/zeebo/blake3"
)

// StateDB is the slice of EVM state the AMM engine touches. It is a
// deliberately narrow view of contract.StateDB (see module.go's
// stateAdapter), the same separation dex/pool_manager.go draws between its
// own StateDB interface and the richer contract.StateDB its module.go is
// handed. Token balances are kept in this contract's storage slots (see
// tokenBalanceKey), not in the StateDB native-balance methods, rather than
// modeling a second ERC-20 call surface the precompile would need to
// reenter.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key, value common.Hash)
	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)
	AddLog(log *types.Log)

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)
}

var (
	reservePrefix      = []byte("amm:reserve")
	blockTimestampKey  = []byte("amm:blockts")
	priceCumulativeKey = []byte("amm:pricecum")
	totalSupplyKey     = []byte("amm:totalsupply")
	kLastKey           = []byte("amm:klast")
	unlockedKey        = []byte("amm:unlocked")
	balancePrefix      = []byte("amm:balance")
	allowancePrefix    = []byte("amm:allowance")
	noncePrefix        = []byte("amm:nonce")
	pairPrefix         = []byte("amm:pair")
	allPairsKey        = []byte("amm:allpairs")
	feeToKey           = []byte("amm:feeto")
	feeToSetterKey     = []byte("amm:feetosetter")
)

// makeStorageKey derives a deterministic storage slot from a prefix and an
// arbitrary-length id, the same blake3-keyed-hash scheme
// dex/pool_manager.go uses for all of its per-pool slots.
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func pairID(token0, token1 common.Address) [32]byte {
	h := blake3.New()
	h.Write(token0.Bytes())
	h.Write(token1.Bytes())
	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

func getBig(state StateDB, addr common.Address, key common.Hash) *big.Int {
	h := state.GetState(addr, key)
	return new(big.Int).SetBytes(h[:])
}

func setBig(state StateDB, addr common.Address, key common.Hash, v *big.Int) {
	var h common.Hash
	v.FillBytes(h[:])
	state.SetState(addr, key, h)
}

func getBool(state StateDB, addr common.Address, key common.Hash) bool {
	h := state.GetState(addr, key)
	return h != (common.Hash{})
}

func setBool(state StateDB, addr common.Address, key common.Hash, v bool) {
	var h common.Hash
	if v {
		h[31] = 1
	}
	state.SetState(addr, key, h)
}

func getAddress(state StateDB, addr common.Address, key common.Hash) common.Address {
	h := state.GetState(addr, key)
	return common.BytesToAddress(h[12:])
}

func setAddress(state StateDB, addr common.Address, key common.Hash, v common.Address) {
	var h common.Hash
	copy(h[12:], v.Bytes())
	state.SetState(addr, key, h)
}

// balanceKey/allowanceKey/nonceKey derive token-accounting slots scoped to
// one pool id so every pair's pool-share ledger lives at a distinct slot
// even though all pools share the same precompile address.
func balanceKey(poolID [32]byte, owner common.Address) common.Hash {
	return makeStorageKey(balancePrefix, append(poolID[:], owner.Bytes()...))
}

func allowanceKey(poolID [32]byte, owner, spender common.Address) common.Hash {
	id := append(append(append([]byte{}, poolID[:]...), owner.Bytes()...), spender.Bytes()...)
	return makeStorageKey(allowancePrefix, id)
}

func nonceKey(poolID [32]byte, owner common.Address) common.Hash {
	return makeStorageKey(noncePrefix, append(poolID[:], owner.Bytes()...))
}

func reserveKey(poolID [32]byte, which byte) common.Hash {
	return makeStorageKey(reservePrefix, append(poolID[:], which))
}

func pairKeyOf(poolID [32]byte) common.Hash {
	return makeStorageKey(pairPrefix, poolID[:])
}

// tokenBalancePrefix scopes the internal ledger the pool vaults token0/
// token1 balances in. Real on-chain tokens live behind their own ERC-20
// contracts reachable only through a call the precompile ABI does not
// expose; the vault here plays the same settlement role dex/types.go's
// BalanceDelta/Currency abstraction plays for PoolManager, tracking
// ownership of deposited value internally instead of re-entering another
// contract.
var tokenBalancePrefix = []byte("amm:tokenbal")

func tokenBalanceKey(token, holder common.Address) common.Hash {
	return makeStorageKey(tokenBalancePrefix, append(token.Bytes(), holder.Bytes()...))
}
