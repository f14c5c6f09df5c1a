// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// GetAmountOut applies the 0.3% fee to amountIn and quotes the output a
// swap against reserveIn/reserveOut would yield, the same pure fee-adjusted
// constant-product formula Swap's final invariant check enforces.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(feeNumerator))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Add(new(big.Int).Mul(reserveIn, big.NewInt(feeDenominator)), amountInWithFee)
	return new(big.Int).Div(numerator, denominator), nil
}

// GetAmountIn is GetAmountOut's inverse: the input a swap would need to
// supply to receive exactly amountOut from reserveIn/reserveOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	numerator := new(big.Int).Mul(new(big.Int).Mul(reserveIn, amountOut), big.NewInt(feeDenominator))
	denominator := new(big.Int).Mul(new(big.Int).Sub(reserveOut, amountOut), big.NewInt(feeNumerator))
	return new(big.Int).Add(new(big.Int).Div(numerator, denominator), big.NewInt(1)), nil
}

// blockTimestampMask wraps the stored last-update timestamp to 32 bits,
// matching the pool's on-chain counterpart which packs it alongside the
// two 112-bit reserves in a single storage word.
var blockTimestampMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 32), big.NewInt(1))

// Pool is one Factory-created token pair: its own reserves, cumulative
// price accumulators, pool-share ledger and reentrancy latch. It is never
// reachable at its own EVM address; the Factory precompile is the only
// entry point, keyed by poolID.
type Pool struct {
	ID     [32]byte
	Token0 common.Address
	Token1 common.Address

	contractAddr common.Address
}

func newPool(contractAddr common.Address, token0, token1 common.Address) *Pool {
	return &Pool{
		ID:           pairID(token0, token1),
		Token0:       token0,
		Token1:       token1,
		contractAddr: contractAddr,
	}
}

func (p *Pool) token() token {
	return token{poolID: p.ID, contractAddr: p.contractAddr}
}

func (p *Pool) lockKey() common.Hash      { return makeStorageKey(unlockedKey, p.ID[:]) }
func (p *Pool) blockTSKey() common.Hash   { return makeStorageKey(blockTimestampKey, p.ID[:]) }
func (p *Pool) price0CumKey() common.Hash { return makeStorageKey(priceCumulativeKey, append(p.ID[:], 0)) }
func (p *Pool) price1CumKey() common.Hash { return makeStorageKey(priceCumulativeKey, append(p.ID[:], 1)) }
func (p *Pool) kLastSlotKey() common.Hash { return makeStorageKey(kLastKey, p.ID[:]) }

// lock acquires the pool's reentrancy latch. Every external entry point
// (Mint, Burn, Swap, Skim, Sync) must call lock before touching state and
// unlock via defer, mirroring the Solidity `lock` modifier's single-bit
// "unlocked" storage slot.
func (p *Pool) lock(state StateDB) (func(), error) {
	if getBool(state, p.contractAddr, p.lockKey()) {
		return nil, ErrLocked
	}
	setBool(state, p.contractAddr, p.lockKey(), true)
	return func() { setBool(state, p.contractAddr, p.lockKey(), false) }, nil
}

// GetReserves returns the current reserves and the block timestamp they
// were last synced at.
func (p *Pool) GetReserves(state StateDB) (reserve0, reserve1 *big.Int, blockTimestampLast uint32) {
	r0 := getBig(state, p.contractAddr, reserveKey(p.ID, 0))
	r1 := getBig(state, p.contractAddr, reserveKey(p.ID, 1))
	ts := getBig(state, p.contractAddr, p.blockTSKey())
	return r0, r1, uint32(ts.Uint64())
}

func (p *Pool) setReserves(state StateDB, reserve0, reserve1 *big.Int) {
	setBig(state, p.contractAddr, reserveKey(p.ID, 0), reserve0)
	setBig(state, p.contractAddr, reserveKey(p.ID, 1), reserve1)
}

func (p *Pool) vaultBalance(state StateDB, tok common.Address) *big.Int {
	return getBig(state, p.contractAddr, tokenBalanceKey(tok, p.contractAddr))
}

// creditVault records that amount of tok has been placed under this pool's
// control by from, the settlement-layer equivalent of an ERC-20
// transferFrom(from, pair, amount) performed against the external token
// before mint/swap. No Factory selector calls it; the precompile exposes no
// deposit entry point.
func creditVault(state StateDB, tok, from common.Address, contractAddr common.Address, amount *big.Int) {
	fromKey := tokenBalanceKey(tok, from)
	setBig(state, contractAddr, fromKey, new(big.Int).Sub(getBig(state, contractAddr, fromKey), amount))
	vaultKey := tokenBalanceKey(tok, contractAddr)
	setBig(state, contractAddr, vaultKey, new(big.Int).Add(getBig(state, contractAddr, vaultKey), amount))
}

// safeTransfer pays amount of tok out of the pool's vault to recipient,
// the internal-ledger analogue of the optimistic ERC-20 transfer a real
// pair contract performs before reverting on invariant failure.
func (p *Pool) safeTransfer(state StateDB, tok, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	vaultKey := tokenBalanceKey(tok, p.contractAddr)
	vaultBal := getBig(state, p.contractAddr, vaultKey)
	if vaultBal.Cmp(amount) < 0 {
		return ErrTransferFailed
	}
	setBig(state, p.contractAddr, vaultKey, new(big.Int).Sub(vaultBal, amount))
	toKey := tokenBalanceKey(tok, to)
	setBig(state, p.contractAddr, toKey, new(big.Int).Add(getBig(state, p.contractAddr, toKey), amount))
	return nil
}

// update advances reserves and, if any time elapsed since the last update,
// the UQ112.112 cumulative price accumulators (wrapping mod 2**256), then
// records the new 32-bit-wrapped block timestamp. balance0/balance1 are
// the vault's observed post-operation balances, which may exceed the prior
// reserves by more than the nominal input when a token skims extra value
// in, exactly as the reference implementation tolerates.
func (p *Pool) update(state StateDB, balance0, balance1, reserve0, reserve1 *big.Int, blockTimestamp uint32) error {
	if !fitsUint112(balance0) || !fitsUint112(balance1) {
		return ErrOverflow
	}

	_, _, blockTimestampLast := p.GetReserves(state)
	elapsed := uint32(blockTimestamp - blockTimestampLast)

	if elapsed > 0 && reserve0.Sign() != 0 && reserve1.Sign() != 0 {
		price0 := uq112x112Div(uq112x112Encode(reserve1), reserve0)
		price1 := uq112x112Div(uq112x112Encode(reserve0), reserve1)

		price0Cum := getBig(state, p.contractAddr, p.price0CumKey())
		price1Cum := getBig(state, p.contractAddr, p.price1CumKey())

		price0Cum = wrapUint256(new(big.Int).Add(price0Cum, new(big.Int).Mul(price0, big.NewInt(int64(elapsed)))))
		price1Cum = wrapUint256(new(big.Int).Add(price1Cum, new(big.Int).Mul(price1, big.NewInt(int64(elapsed)))))

		setBig(state, p.contractAddr, p.price0CumKey(), price0Cum)
		setBig(state, p.contractAddr, p.price1CumKey(), price1Cum)
	}

	p.setReserves(state, balance0, balance1)
	setBig(state, p.contractAddr, p.blockTSKey(), new(big.Int).SetUint64(uint64(blockTimestamp)&blockTimestampMask.Uint64()))
	emitSync(state, p.contractAddr, balance0, balance1)
	return nil
}

// mintFee mints protocol-fee pool-share tokens equal to 1/6 of the growth
// in sqrt(k) since the last liquidity event, to feeTo, when protocol fees
// are turned on. It returns whether fee collection is currently enabled,
// which the caller needs to decide whether to persist the new kLast.
func (p *Pool) mintFee(state StateDB, reserve0, reserve1 *big.Int, feeTo common.Address) bool {
	feeOn := feeTo != (common.Address{})
	kLast := getBig(state, p.contractAddr, p.kLastSlotKey())

	if feeOn {
		if kLast.Sign() != 0 {
			rootK := sqrtBigInt(new(big.Int).Mul(reserve0, reserve1))
			rootKLast := sqrtBigInt(kLast)
			if rootK.Cmp(rootKLast) > 0 {
				numerator := new(big.Int).Mul(p.token().totalSupply(state), new(big.Int).Sub(rootK, rootKLast))
				denominator := new(big.Int).Add(new(big.Int).Mul(rootK, big.NewInt(5)), rootKLast)
				liquidity := new(big.Int).Div(numerator, denominator)
				if liquidity.Sign() > 0 {
					p.token().mint(state, feeTo, liquidity)
				}
			}
		}
	} else if kLast.Sign() != 0 {
		setBig(state, p.contractAddr, p.kLastSlotKey(), new(big.Int))
	}
	return feeOn
}

// Mint credits liquidity to `to` based on the vault balances observed
// beyond the last-synced reserves, minting MinimumLiquidity permanently to
// the zero address on the very first mint. caller is the message sender
// recorded on the emitted Mint event; it may differ from to when a router
// mints on a user's behalf.
func (p *Pool) Mint(state StateDB, caller, to common.Address, feeTo common.Address, blockTimestamp uint32) (*big.Int, error) {
	unlock, err := p.lock(state)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reserve0, reserve1, _ := p.GetReserves(state)
	balance0 := p.vaultBalance(state, p.Token0)
	balance1 := p.vaultBalance(state, p.Token1)
	amount0 := new(big.Int).Sub(balance0, reserve0)
	amount1 := new(big.Int).Sub(balance1, reserve1)

	feeOn := p.mintFee(state, reserve0, reserve1, feeTo)
	tok := p.token()
	totalSupply := tok.totalSupply(state)

	var liquidity *big.Int
	if totalSupply.Sign() == 0 {
		product := new(big.Int).Mul(amount0, amount1)
		liquidity = new(big.Int).Sub(sqrtBigInt(product), MinimumLiquidity)
		tok.mint(state, common.Address{}, MinimumLiquidity)
	} else {
		l0 := new(big.Int).Div(new(big.Int).Mul(amount0, totalSupply), reserve0)
		l1 := new(big.Int).Div(new(big.Int).Mul(amount1, totalSupply), reserve1)
		liquidity = l0
		if l1.Cmp(l0) < 0 {
			liquidity = l1
		}
	}
	if liquidity.Sign() <= 0 {
		return nil, ErrInsufficientLiquidityMinted
	}
	tok.mint(state, to, liquidity)

	if err := p.update(state, balance0, balance1, reserve0, reserve1, blockTimestamp); err != nil {
		return nil, err
	}
	if feeOn {
		setBig(state, p.contractAddr, p.kLastSlotKey(), new(big.Int).Mul(balance0, balance1))
	}
	emitMint(state, p.contractAddr, caller, amount0, amount1)
	return liquidity, nil
}

// Burn redeems the pool-share tokens the pool itself is holding (the
// caller must have transferred them in first) for a pro-rata share of both
// reserves, paid to `to`. caller is the message sender recorded on the
// emitted Burn event; it may differ from to when a router burns on a
// user's behalf.
func (p *Pool) Burn(state StateDB, caller, to common.Address, feeTo common.Address, blockTimestamp uint32) (amount0, amount1 *big.Int, err error) {
	unlock, lockErr := p.lock(state)
	if lockErr != nil {
		return nil, nil, lockErr
	}
	defer unlock()

	reserve0, reserve1, _ := p.GetReserves(state)
	balance0 := p.vaultBalance(state, p.Token0)
	balance1 := p.vaultBalance(state, p.Token1)

	tok := p.token()
	liquidity := tok.balanceOf(state, p.contractAddr)

	feeOn := p.mintFee(state, reserve0, reserve1, feeTo)
	totalSupply := tok.totalSupply(state)
	if totalSupply.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	amount0 = new(big.Int).Div(new(big.Int).Mul(liquidity, balance0), totalSupply)
	amount1 = new(big.Int).Div(new(big.Int).Mul(liquidity, balance1), totalSupply)
	if amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	if err := tok.burn(state, p.contractAddr, liquidity); err != nil {
		return nil, nil, err
	}
	if err := p.safeTransfer(state, p.Token0, to, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.safeTransfer(state, p.Token1, to, amount1); err != nil {
		return nil, nil, err
	}

	balance0 = p.vaultBalance(state, p.Token0)
	balance1 = p.vaultBalance(state, p.Token1)

	if err := p.update(state, balance0, balance1, reserve0, reserve1, blockTimestamp); err != nil {
		return nil, nil, err
	}
	if feeOn {
		setBig(state, p.contractAddr, p.kLastSlotKey(), new(big.Int).Mul(balance0, balance1))
	}
	emitBurn(state, p.contractAddr, caller, to, amount0, amount1)
	return amount0, amount1, nil
}

// SwapCallee is implemented by a flash-swap counterparty: when amount0Out
// or amount1Out is paid out before the matching input has arrived, Swap
// invokes SwapCallback to let the caller supply that input in the same
// transaction before the invariant is rechecked.
type SwapCallee interface {
	SwapCallback(sender common.Address, amount0Out, amount1Out *big.Int, data []byte) error
}

// Swap pays out amount0Out/amount1Out to `to` (optimistically, before
// collecting payment) and, if data is non-empty, invokes callee's
// SwapCallback so it can supply the input atomically, then verifies the
// fee-adjusted constant-product invariant still holds. caller is the
// message sender recorded on the emitted Swap event; it may differ from
// to when a router swaps on a user's behalf.
func (p *Pool) Swap(state StateDB, caller common.Address, amount0Out, amount1Out *big.Int, to common.Address, data []byte, callee SwapCallee, blockTimestamp uint32) error {
	unlock, err := p.lock(state)
	if err != nil {
		return err
	}
	defer unlock()

	if amount0Out.Sign() <= 0 && amount1Out.Sign() <= 0 {
		return ErrInsufficientOutputAmount
	}

	reserve0, reserve1, _ := p.GetReserves(state)
	if amount0Out.Cmp(reserve0) >= 0 || amount1Out.Cmp(reserve1) >= 0 {
		return ErrInsufficientLiquidity
	}
	if to == p.Token0 || to == p.Token1 {
		return ErrInvalidTo
	}

	if amount0Out.Sign() > 0 {
		if err := p.safeTransfer(state, p.Token0, to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := p.safeTransfer(state, p.Token1, to, amount1Out); err != nil {
			return err
		}
	}
	if len(data) > 0 {
		if callee == nil {
			return ErrInvalidTo
		}
		if err := callee.SwapCallback(caller, amount0Out, amount1Out, data); err != nil {
			return err
		}
	}

	balance0 := p.vaultBalance(state, p.Token0)
	balance1 := p.vaultBalance(state, p.Token1)

	amount0In := new(big.Int)
	if balance0.Cmp(new(big.Int).Sub(reserve0, amount0Out)) > 0 {
		amount0In.Sub(balance0, new(big.Int).Sub(reserve0, amount0Out))
	}
	amount1In := new(big.Int)
	if balance1.Cmp(new(big.Int).Sub(reserve1, amount1Out)) > 0 {
		amount1In.Sub(balance1, new(big.Int).Sub(reserve1, amount1Out))
	}
	if amount0In.Sign() <= 0 && amount1In.Sign() <= 0 {
		return ErrInsufficientInputAmount
	}

	balance0Adjusted := new(big.Int).Sub(new(big.Int).Mul(balance0, big.NewInt(feeDenominator)), new(big.Int).Mul(amount0In, big.NewInt(feeDenominator-feeNumerator)))
	balance1Adjusted := new(big.Int).Sub(new(big.Int).Mul(balance1, big.NewInt(feeDenominator)), new(big.Int).Mul(amount1In, big.NewInt(feeDenominator-feeNumerator)))

	lhs := new(big.Int).Mul(balance0Adjusted, balance1Adjusted)
	rhs := new(big.Int).Mul(new(big.Int).Mul(reserve0, reserve1), big.NewInt(feeDenominator*feeDenominator))
	if lhs.Cmp(rhs) < 0 {
		return ErrK
	}

	if err := p.update(state, balance0, balance1, reserve0, reserve1, blockTimestamp); err != nil {
		return err
	}
	emitSwap(state, p.contractAddr, caller, to, amount0In, amount1In, amount0Out, amount1Out)
	return nil
}

// Skim pays out any vault balance in excess of the synced reserves to to,
// the cleanup path for tokens that rebase or were sent to the pool
// outside of mint/swap accounting.
func (p *Pool) Skim(state StateDB, to common.Address) error {
	unlock, err := p.lock(state)
	if err != nil {
		return err
	}
	defer unlock()

	reserve0, reserve1, _ := p.GetReserves(state)
	balance0 := p.vaultBalance(state, p.Token0)
	balance1 := p.vaultBalance(state, p.Token1)

	if excess0 := new(big.Int).Sub(balance0, reserve0); excess0.Sign() > 0 {
		if err := p.safeTransfer(state, p.Token0, to, excess0); err != nil {
			return err
		}
	}
	if excess1 := new(big.Int).Sub(balance1, reserve1); excess1.Sign() > 0 {
		if err := p.safeTransfer(state, p.Token1, to, excess1); err != nil {
			return err
		}
	}
	return nil
}

// Sync forces reserves to match the vault's actual balances without
// moving any value, recovering from a balance that drifted out of sync.
func (p *Pool) Sync(state StateDB, blockTimestamp uint32) error {
	unlock, err := p.lock(state)
	if err != nil {
		return err
	}
	defer unlock()

	reserve0, reserve1, _ := p.GetReserves(state)
	balance0 := p.vaultBalance(state, p.Token0)
	balance1 := p.vaultBalance(state, p.Token1)
	return p.update(state, balance0, balance1, reserve0, reserve1, blockTimestamp)
}
