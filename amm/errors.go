// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import "errors"

// Pool engine errors.
var (
	ErrLocked                    = errors.New("amm: locked")
	ErrOverflow                  = errors.New("amm: overflow")
	ErrInsufficientLiquidityMinted = errors.New("amm: insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("amm: insufficient liquidity burned")
	ErrInsufficientOutputAmount  = errors.New("amm: insufficient output amount")
	ErrInsufficientLiquidity     = errors.New("amm: insufficient liquidity")
	ErrInvalidTo                 = errors.New("amm: invalid to")
	ErrInsufficientInputAmount   = errors.New("amm: insufficient input amount")
	ErrK                         = errors.New("amm: k")
	ErrTransferFailed            = errors.New("amm: transfer failed")
)

// Factory errors.
var (
	ErrIdenticalAddresses = errors.New("amm: identical addresses")
	ErrZeroAddress        = errors.New("amm: zero address")
	ErrPairExists          = errors.New("amm: pair exists")
	ErrForbidden           = errors.New("amm: forbidden")
)

// Token / permit errors.
var (
	ErrExpired          = errors.New("amm: expired")
	ErrInvalidSignature = errors.New("amm: invalid signature")
)
