// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestCreatePairIsOrderIndependent(t *testing.T) {
	state := newMockStateDB()
	factory := NewFactory(testContract)

	idAB, err := factory.CreatePair(state, testToken0, testToken1)
	require.NoError(t, err)

	factory2 := NewFactory(testContract)
	idBA, err := factory2.CreatePair(state, testToken1, testToken0)
	require.ErrorIs(t, err, ErrPairExists)
	require.Equal(t, [32]byte{}, idBA)

	pool, ok := factory.Pool(state, testToken1, testToken0)
	require.True(t, ok)
	require.Equal(t, idAB, pool.ID)
}

func TestCreatePairRejectsIdenticalAndZeroAddress(t *testing.T) {
	state := newMockStateDB()
	factory := NewFactory(testContract)

	_, err := factory.CreatePair(state, testToken0, testToken0)
	require.ErrorIs(t, err, ErrIdenticalAddresses)

	_, err = factory.CreatePair(state, testToken0, common.Address{})
	require.ErrorIs(t, err, ErrZeroAddress)
}

func TestSetFeeToRequiresFeeToSetter(t *testing.T) {
	state := newMockStateDB()
	factory := NewFactory(testContract)
	setAddress(state, testContract, feeToSetterKey, testLP)

	err := factory.SetFeeTo(state, testToken0, testToken1)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, factory.SetFeeTo(state, testLP, testToken1))
	require.Equal(t, testToken1, factory.FeeTo(state))
}

// TestMintFeeCollectsOneSixthOfGrowth walks the bit-exact protocol-fee
// scenario: a 1000e18/1000e18 pool, a single 1e18 swap, then a full
// redemption, checking the exact post-redemption totals rather than just
// their sign.
func TestMintFeeCollectsOneSixthOfGrowth(t *testing.T) {
	feeRecipient := common.HexToAddress("0x00000000000000000000000000000000000f0f0f")

	state := newMockStateDB()
	factory := NewFactory(testContract)
	setAddress(state, testContract, feeToSetterKey, testLP)
	require.NoError(t, factory.SetFeeTo(state, testLP, feeRecipient))

	id, err := factory.CreatePair(state, testToken0, testToken1)
	require.NoError(t, err)
	pool, ok := factory.getPool(state, id)
	require.True(t, ok)

	deposit := bigFrom("1000000000000000000000")
	depositToPool(state, testToken0, deposit)
	depositToPool(state, testToken1, deposit)
	_, err = pool.Mint(state, testLP, testLP, factory.FeeTo(state), 1000)
	require.NoError(t, err)

	amountIn := bigFrom("1000000000000000000")
	amountOut, err := GetAmountOut(amountIn, deposit, deposit)
	require.NoError(t, err)
	require.Equal(t, "996006981039903216", amountOut.String())
	depositToPool(state, testToken1, amountIn)
	require.NoError(t, pool.Swap(state, testLP, amountOut, big.NewInt(0), testLP, nil, nil, 2000))

	tok := pool.token()
	lpShares := tok.balanceOf(state, testLP)
	require.NoError(t, tok.transfer(state, testLP, testContract, lpShares))
	_, _, err = pool.Burn(state, testLP, testLP, factory.FeeTo(state), 3000)
	require.NoError(t, err)

	require.Equal(t, bigFrom("249750499251388"), tok.balanceOf(state, feeRecipient))
	require.Equal(t, new(big.Int).Add(MinimumLiquidity, bigFrom("249750499251388")), tok.totalSupply(state))
	require.Equal(t, new(big.Int).Add(MinimumLiquidity, bigFrom("249501683697445")), pool.vaultBalance(state, testToken0))
	require.Equal(t, new(big.Int).Add(MinimumLiquidity, bigFrom("250000187312969")), pool.vaultBalance(state, testToken1))
}
