// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/crypto"
)

// Event topic hashes, computed once at package init the way dex/hooks.go
// precomputes its 4-byte hook selectors from their signature strings.
var (
	sigPairCreated = crypto.Keccak256Hash([]byte("PairCreated(address,address,bytes32,uint256)"))
	sigMint        = crypto.Keccak256Hash([]byte("Mint(address,uint256,uint256)"))
	sigBurn        = crypto.Keccak256Hash([]byte("Burn(address,uint256,uint256,address)"))
	sigSwap        = crypto.Keccak256Hash([]byte("Swap(address,uint256,uint256,uint256,uint256,address)"))
	sigSync        = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
	sigTransfer    = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	sigApproval    = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
)

func topicFromAddress(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr.Bytes())
	return h
}

func topicFromBig(v *big.Int) common.Hash {
	var h common.Hash
	v.FillBytes(h[:])
	return h
}

func emitLog(state StateDB, emitter common.Address, topics []common.Hash, data []byte) {
	state.AddLog(&types.Log{
		Address: emitter,
		Topics:  topics,
		Data:    data,
	})
}

func emitPairCreated(state StateDB, factory common.Address, token0, token1 common.Address, poolID [32]byte, pairCount *big.Int) {
	data := make([]byte, 32+32)
	copy(data[0:32], poolID[:])
	pairCount.FillBytes(data[32:64])
	emitLog(state, factory, []common.Hash{sigPairCreated, topicFromAddress(token0), topicFromAddress(token1)}, data)
}

func emitMint(state StateDB, pool common.Address, sender common.Address, amount0, amount1 *big.Int) {
	data := make([]byte, 64)
	amount0.FillBytes(data[0:32])
	amount1.FillBytes(data[32:64])
	emitLog(state, pool, []common.Hash{sigMint, topicFromAddress(sender)}, data)
}

func emitBurn(state StateDB, pool common.Address, sender, to common.Address, amount0, amount1 *big.Int) {
	data := make([]byte, 64)
	amount0.FillBytes(data[0:32])
	amount1.FillBytes(data[32:64])
	emitLog(state, pool, []common.Hash{sigBurn, topicFromAddress(sender), topicFromAddress(to)}, data)
}

func emitSwap(state StateDB, pool common.Address, sender, to common.Address, amount0In, amount1In, amount0Out, amount1Out *big.Int) {
	data := make([]byte, 128)
	amount0In.FillBytes(data[0:32])
	amount1In.FillBytes(data[32:64])
	amount0Out.FillBytes(data[64:96])
	amount1Out.FillBytes(data[96:128])
	emitLog(state, pool, []common.Hash{sigSwap, topicFromAddress(sender), topicFromAddress(to)}, data)
}

func emitSync(state StateDB, pool common.Address, reserve0, reserve1 *big.Int) {
	data := make([]byte, 64)
	reserve0.FillBytes(data[0:32])
	reserve1.FillBytes(data[32:64])
	emitLog(state, pool, []common.Hash{sigSync}, data)
}

func emitTransfer(state StateDB, pool common.Address, from, to common.Address, value *big.Int) {
	emitLog(state, pool, []common.Hash{sigTransfer, topicFromAddress(from), topicFromAddress(to)}, value.Bytes())
}

func emitApproval(state StateDB, pool common.Address, owner, spender common.Address, value *big.Int) {
	emitLog(state, pool, []common.Hash{sigApproval, topicFromAddress(owner), topicFromAddress(spender)}, value.Bytes())
}
