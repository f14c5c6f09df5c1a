// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces stateful precompiles use to read
// and write EVM state without depending on the EVM implementation itself.
package contract

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/ammcore/precompileconfig"
)

// StateDB is the subset of EVM state a stateful precompile is allowed to
// touch. Implementations wrap the host's real StateDB (see core/vm in
// luxfi/evm) or, in tests, a MockStateDB.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key, value common.Hash)

	GetBalance(addr common.Address) *uint256.Int
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason)

	GetNonce(addr common.Address) uint64
	SetNonce(addr common.Address, nonce uint64, reason tracing.NonceChangeReason)

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)

	AddLog(log *types.Log)

	GetPredicateStorageSlots(addr common.Address, index int) ([]byte, bool)
	GetTxHash() common.Hash

	Snapshot() int
	RevertToSnapshot(id int)
}

// BlockContext exposes the handful of block fields a precompile may read
// while executing a transaction.
type BlockContext interface {
	Number() *big.Int
	Timestamp() uint64
	GetPredicateResults(txHash common.Hash, precompileAddress common.Address) []byte
}

// ConfigurationBlockContext is the narrower context available while a
// precompile's upgrade config is being applied at block construction time,
// before a transaction is being processed.
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// AccessibleState bundles everything a running precompile needs: state,
// block context, chain config, a handle to the consensus runtime for
// long-running or cancellable work, and the ability to call back out into
// another contract the way the EVM's CALL opcode would.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
	GetChainConfig() precompileconfig.ChainConfig
	GetConsensusContext() context.Context

	// Call invokes addr with input as a regular message call from caller,
	// the same semantics core/vm's EVM.Call gives any other contract
	// call site. Precompiles use it to call back into a counterparty
	// contract within the same transaction, e.g. a flash-swap callback.
	Call(caller, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, remainingGas uint64, err error)
}

// StatefulPrecompiledContract is the interface every precompile registered
// through modules.RegisterModule must implement.
type StatefulPrecompiledContract interface {
	Run(accessibleState AccessibleState, caller, addr common.Address, input []byte, suppliedGas uint64, readOnly bool) (ret []byte, remainingGas uint64, err error)
	RequiredGas(input []byte) uint64
}

// Configurator applies a precompile's activation config to chain state the
// first time its upgrade activates.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(chainConfig precompileconfig.ChainConfig, cfg precompileconfig.Config, state StateDB, blockContext ConfigurationBlockContext) error
}
