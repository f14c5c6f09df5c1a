// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// TokenDecimals is the fixed decimal precision of every pool-share token,
// matching the underlying reserves' assumed 18-decimal scale.
const TokenDecimals = 18

const tokenName = "Lux AMM LP"
const tokenVersion = "1"

// permitTypeHash is keccak256("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)").
var permitTypeHash = crypto.Keccak256Hash([]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))

var eip712DomainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract,bytes32 salt)"))

// maxUint256 is the infinite-allowance sentinel: an approval of this exact
// value is never decremented by a transferFrom.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// domainSeparator computes the EIP-712 domain separator for the pool-share
// token of poolID, hosted at the amm precompile address contractAddr. Since
// every pool shares one precompile address, poolID is folded in as the
// domain's salt so each pair's permit signatures are bound to that pair
// alone.
func domainSeparator(chainID *big.Int, contractAddr common.Address, poolID [32]byte) common.Hash {
	nameHash := crypto.Keccak256Hash([]byte(tokenName))
	versionHash := crypto.Keccak256Hash([]byte(tokenVersion))

	buf := make([]byte, 0, 32*6)
	buf = append(buf, eip712DomainTypeHash[:]...)
	buf = append(buf, nameHash[:]...)
	buf = append(buf, versionHash[:]...)

	var chainIDHash common.Hash
	chainID.FillBytes(chainIDHash[:])
	buf = append(buf, chainIDHash[:]...)

	buf = append(buf, topicFromAddress(contractAddr)[:]...)
	buf = append(buf, poolID[:]...)

	return crypto.Keccak256Hash(buf)
}

func permitDigest(domainSep common.Hash, owner, spender common.Address, value, nonce, deadline *big.Int) common.Hash {
	structBuf := make([]byte, 0, 32*6)
	structBuf = append(structBuf, permitTypeHash[:]...)
	structBuf = append(structBuf, topicFromAddress(owner)[:]...)
	structBuf = append(structBuf, topicFromAddress(spender)[:]...)
	structBuf = append(structBuf, topicFromBig(value)[:]...)
	structBuf = append(structBuf, topicFromBig(nonce)[:]...)
	structBuf = append(structBuf, topicFromBig(deadline)[:]...)
	structHash := crypto.Keccak256Hash(structBuf)

	prefixed := make([]byte, 0, 2+32+32)
	prefixed = append(prefixed, 0x19, 0x01)
	prefixed = append(prefixed, domainSep[:]...)
	prefixed = append(prefixed, structHash[:]...)
	return crypto.Keccak256Hash(prefixed)
}

// token is the storage-backed pool-share ledger for one pool.
type token struct {
	poolID      [32]byte
	contractAddr common.Address
}

func (t token) totalSupply(state StateDB) *big.Int {
	return getBig(state, t.contractAddr, totalSupplyKeyFor(t.poolID))
}

func (t token) setTotalSupply(state StateDB, v *big.Int) {
	setBig(state, t.contractAddr, totalSupplyKeyFor(t.poolID), v)
}

func (t token) balanceOf(state StateDB, owner common.Address) *big.Int {
	return getBig(state, t.contractAddr, balanceKey(t.poolID, owner))
}

func (t token) setBalance(state StateDB, owner common.Address, v *big.Int) {
	setBig(state, t.contractAddr, balanceKey(t.poolID, owner), v)
}

func (t token) allowance(state StateDB, owner, spender common.Address) *big.Int {
	return getBig(state, t.contractAddr, allowanceKey(t.poolID, owner, spender))
}

func (t token) setAllowance(state StateDB, owner, spender common.Address, v *big.Int) {
	setBig(state, t.contractAddr, allowanceKey(t.poolID, owner, spender), v)
}

func (t token) nonce(state StateDB, owner common.Address) *big.Int {
	return getBig(state, t.contractAddr, nonceKey(t.poolID, owner))
}

func totalSupplyKeyFor(poolID [32]byte) common.Hash {
	return makeStorageKey(totalSupplyKey, poolID[:])
}

// mint credits to with value new pool-share tokens and increases total
// supply. Only the pool engine calls this, never a user transaction.
func (t token) mint(state StateDB, to common.Address, value *big.Int) {
	t.setTotalSupply(state, new(big.Int).Add(t.totalSupply(state), value))
	t.setBalance(state, to, new(big.Int).Add(t.balanceOf(state, to), value))
	emitTransfer(state, t.contractAddr, common.Address{}, to, value)
}

// burn debits value pool-share tokens from from and decreases total supply.
func (t token) burn(state StateDB, from common.Address, value *big.Int) error {
	bal := t.balanceOf(state, from)
	if bal.Cmp(value) < 0 {
		return ErrInsufficientLiquidityBurned
	}
	t.setBalance(state, from, new(big.Int).Sub(bal, value))
	t.setTotalSupply(state, new(big.Int).Sub(t.totalSupply(state), value))
	emitTransfer(state, t.contractAddr, from, common.Address{}, value)
	return nil
}

func (t token) transfer(state StateDB, from, to common.Address, value *big.Int) error {
	fromBal := t.balanceOf(state, from)
	if fromBal.Cmp(value) < 0 {
		return ErrInsufficientLiquidity
	}
	t.setBalance(state, from, new(big.Int).Sub(fromBal, value))
	t.setBalance(state, to, new(big.Int).Add(t.balanceOf(state, to), value))
	emitTransfer(state, t.contractAddr, from, to, value)
	return nil
}

func (t token) approve(state StateDB, owner, spender common.Address, value *big.Int) {
	t.setAllowance(state, owner, spender, value)
	emitApproval(state, t.contractAddr, owner, spender, value)
}

func (t token) transferFrom(state StateDB, spender, from, to common.Address, value *big.Int) error {
	allowed := t.allowance(state, from, spender)
	if allowed.Cmp(maxUint256) != 0 {
		if allowed.Cmp(value) < 0 {
			return ErrInsufficientLiquidity
		}
		t.setAllowance(state, from, spender, new(big.Int).Sub(allowed, value))
	}
	return t.transfer(state, from, to, value)
}

// permit verifies an EIP-712 signed approval and, if it recovers to owner,
// applies it exactly as approve would and bumps owner's nonce.
func (t token) permit(state StateDB, chainID *big.Int, owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte, nowUnix int64) error {
	if deadline.Int64() < nowUnix {
		return ErrExpired
	}

	nonce := t.nonce(state, owner)
	domainSep := domainSeparator(chainID, t.contractAddr, t.poolID)
	digest := permitDigest(domainSep, owner, spender, value, nonce, deadline)

	sig := make([]byte, 65)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v - 27

	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return ErrInvalidSignature
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != owner || owner == (common.Address{}) {
		return ErrInvalidSignature
	}

	setBig(state, t.contractAddr, nonceKey(t.poolID, owner), new(big.Int).Add(nonce, big.NewInt(1)))
	t.approve(state, owner, spender, value)
	return nil
}

// now is overridable in tests; production code always calls time.Now().
var now = func() int64 { return time.Now().Unix() }
