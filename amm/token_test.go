// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
	"github.com/stretchr/testify/require"
)

func testToken() token {
	return token{poolID: pairID(testToken0, testToken1), contractAddr: testContract}
}

func TestTokenTransferAndApprove(t *testing.T) {
	state := newMockStateDB()
	tok := testToken()

	tok.mint(state, testLP, bigFrom("1000000000000000000"))
	require.Equal(t, bigFrom("1000000000000000000"), tok.totalSupply(state))

	spender := common.HexToAddress("0x0000000000000000000000000000000000000c01")
	tok.approve(state, testLP, spender, bigFrom("500000000000000000"))
	require.Equal(t, bigFrom("500000000000000000"), tok.allowance(state, testLP, spender))

	recipient := common.HexToAddress("0x0000000000000000000000000000000000000c02")
	require.NoError(t, tok.transferFrom(state, spender, testLP, recipient, bigFrom("400000000000000000")))
	require.Equal(t, bigFrom("100000000000000000"), tok.allowance(state, testLP, spender))
	require.Equal(t, bigFrom("400000000000000000"), tok.balanceOf(state, recipient))
}

func TestTokenTransferFromWithInfiniteAllowanceDoesNotDecrement(t *testing.T) {
	state := newMockStateDB()
	tok := testToken()
	tok.mint(state, testLP, bigFrom("1000000000000000000"))

	spender := common.HexToAddress("0x0000000000000000000000000000000000000c01")
	tok.approve(state, testLP, spender, maxUint256)

	require.NoError(t, tok.transferFrom(state, spender, testLP, spender, bigFrom("1")))
	require.Equal(t, 0, tok.allowance(state, testLP, spender).Cmp(maxUint256))
}

func TestPermitAppliesApprovalFromValidSignature(t *testing.T) {
	state := newMockStateDB()
	tok := testToken()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	spender := common.HexToAddress("0x0000000000000000000000000000000000000c01")

	value := bigFrom("1000000000000000000")
	deadline := big.NewInt(10_000)
	nonce := tok.nonce(state, owner)

	domainSep := domainSeparator(chainID, tok.contractAddr, tok.poolID)
	digest := permitDigest(domainSep, owner, spender, value, nonce, deadline)

	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)
	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v := sig[64] + 27

	require.NoError(t, tok.permit(state, chainID, owner, spender, value, deadline, v, r, s, 9_000))
	require.Equal(t, value, tok.allowance(state, owner, spender))
	require.Equal(t, big.NewInt(1), tok.nonce(state, owner))
}

func TestPermitRejectsExpiredDeadline(t *testing.T) {
	state := newMockStateDB()
	tok := testToken()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	spender := common.HexToAddress("0x0000000000000000000000000000000000000c01")

	value := bigFrom("1")
	deadline := big.NewInt(100)
	nonce := tok.nonce(state, owner)
	domainSep := domainSeparator(chainID, tok.contractAddr, tok.poolID)
	digest := permitDigest(domainSep, owner, spender, value, nonce, deadline)

	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)
	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v := sig[64] + 27

	err = tok.permit(state, chainID, owner, spender, value, deadline, v, r, s, 200)
	require.ErrorIs(t, err, ErrExpired)
}
