// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import "math/big"

// resolution is the number of fractional bits in a UQ112.112 fixed-point
// number: 112 integer bits, 112 fractional bits, packed into a uint224 that
// is always stored in a 256-bit word.
const resolution = 112

var (
	q112      = new(big.Int).Lsh(big.NewInt(1), resolution)
	mask256   = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	maxUint112 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))
)

// uq112x112Encode returns y encoded as a UQ112.112 fixed-point number,
// i.e. y << 112. y must already fit in 112 bits; callers check reserve
// overflow before calling this.
func uq112x112Encode(y *big.Int) *big.Int {
	return new(big.Int).Lsh(y, resolution)
}

// uq112x112Div divides a UQ112.112 number x by a plain integer y, returning
// a UQ112.112 quotient.
func uq112x112Div(x, y *big.Int) *big.Int {
	return new(big.Int).Div(x, y)
}

// wrapUint256 truncates z to fit in 256 bits, the same wraparound the
// Solidity reference implementation gets for free from its uint256 word
// size when price*CumulativeLast overflows.
func wrapUint256(z *big.Int) *big.Int {
	return new(big.Int).And(z, mask256)
}

// fitsUint112 reports whether x fits in the reserve word size the pool
// enforces on reserve0/reserve1.
func fitsUint112(x *big.Int) bool {
	return x.Sign() >= 0 && x.Cmp(maxUint112) <= 0
}

// sqrtBigInt returns floor(sqrt(x)) for x >= 0, using big.Int's Newton's
// method implementation.
func sqrtBigInt(x *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sqrt(x)
}
