// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"context"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	ethtypes "github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ammcore/contract"
	"github.com/luxfi/ammcore/precompileconfig"
)

// fullMockStateDB implements contract.StateDB for end-to-end Run() tests.
type fullMockStateDB struct {
	storage  map[common.Address]map[common.Hash]common.Hash
	balances map[common.Address]*uint256.Int
	nonces   map[common.Address]uint64
	logs     []*ethtypes.Log
}

func newFullMockStateDB() *fullMockStateDB {
	return &fullMockStateDB{
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
	}
}

func (m *fullMockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	if m.storage[addr] == nil {
		return common.Hash{}
	}
	return m.storage[addr][key]
}

func (m *fullMockStateDB) SetState(addr common.Address, key, value common.Hash) {
	if m.storage[addr] == nil {
		m.storage[addr] = make(map[common.Hash]common.Hash)
	}
	m.storage[addr][key] = value
}

func (m *fullMockStateDB) GetBalance(addr common.Address) *uint256.Int {
	if bal, ok := m.balances[addr]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (m *fullMockStateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	m.balances[addr] = new(uint256.Int).Add(m.balances[addr], amount)
}

func (m *fullMockStateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) {
	if m.balances[addr] == nil {
		m.balances[addr] = uint256.NewInt(0)
	}
	m.balances[addr] = new(uint256.Int).Sub(m.balances[addr], amount)
}

func (m *fullMockStateDB) GetNonce(addr common.Address) uint64           { return m.nonces[addr] }
func (m *fullMockStateDB) SetNonce(addr common.Address, n uint64, _ tracing.NonceChangeReason) {
	m.nonces[addr] = n
}
func (m *fullMockStateDB) Exist(common.Address) bool     { return true }
func (m *fullMockStateDB) CreateAccount(common.Address) {}
func (m *fullMockStateDB) AddLog(log *ethtypes.Log)      { m.logs = append(m.logs, log) }
func (m *fullMockStateDB) GetPredicateStorageSlots(common.Address, int) ([]byte, bool) {
	return nil, false
}
func (m *fullMockStateDB) GetTxHash() common.Hash { return common.Hash{} }
func (m *fullMockStateDB) Snapshot() int          { return 0 }
func (m *fullMockStateDB) RevertToSnapshot(int)   {}

type mockBlockContext struct{ timestamp uint64 }

func (b mockBlockContext) Number() *big.Int { return big.NewInt(1) }
func (b mockBlockContext) Timestamp() uint64 { return b.timestamp }
func (b mockBlockContext) GetPredicateResults(common.Hash, common.Address) []byte { return nil }

type mockAccessibleState struct {
	stateDB contract.StateDB
	block   mockBlockContext
}

func (a mockAccessibleState) GetStateDB() contract.StateDB         { return a.stateDB }
func (a mockAccessibleState) GetBlockContext() contract.BlockContext { return a.block }
func (a mockAccessibleState) GetChainConfig() precompileconfig.ChainConfig { return nil }
func (a mockAccessibleState) GetConsensusContext() context.Context { return context.Background() }

// Call is never exercised by these tests (none submit flash-swap callback
// data), but is required to satisfy contract.AccessibleState.
func (a mockAccessibleState) Call(caller, addr common.Address, input []byte, gas uint64, value *uint256.Int) ([]byte, uint64, error) {
	return nil, gas, nil
}

func encodeSelector(sel uint32, data []byte) []byte {
	input := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(input[:4], sel)
	copy(input[4:], data)
	return input
}

func pad32Address(addr common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], addr.Bytes())
	return out
}

func TestRunCreatePairAndMintEndToEnd(t *testing.T) {
	fc := &FactoryContract{factory: NewFactory(testContract)}
	state := newFullMockStateDB()
	accessible := mockAccessibleState{stateDB: state, block: mockBlockContext{timestamp: 5000}}

	createInput := encodeSelector(SelectorCreatePair, append(pad32Address(testToken0), pad32Address(testToken1)...))
	ret, _, err := fc.Run(accessible, common.Address{}, testContract, createInput, GasCreatePair, false)
	require.NoError(t, err)
	var id [32]byte
	copy(id[:], ret)

	// seed vault balances the way an external transferFrom would have.
	adapted := &stateAdapter{state}
	depositKey0 := tokenBalanceKey(testToken0, testContract)
	depositKey1 := tokenBalanceKey(testToken1, testContract)
	setBig(adapted, testContract, depositKey0, bigFrom("2000000000000000000"))
	setBig(adapted, testContract, depositKey1, bigFrom("2000000000000000000"))

	mintInput := encodeSelector(SelectorMint, append(id[:], pad32Address(testLP)...))
	mintRet, _, err := fc.Run(accessible, common.Address{}, testContract, mintInput, GasMint, false)
	require.NoError(t, err)

	liquidity := new(big.Int).SetBytes(mintRet)
	require.Equal(t, new(big.Int).Sub(bigFrom("2000000000000000000"), MinimumLiquidity), liquidity)
}

func TestRunRejectsWritesInReadOnlyMode(t *testing.T) {
	fc := &FactoryContract{factory: NewFactory(testContract)}
	state := newFullMockStateDB()
	accessible := mockAccessibleState{stateDB: state, block: mockBlockContext{timestamp: 5000}}

	createInput := encodeSelector(SelectorCreatePair, append(pad32Address(testToken0), pad32Address(testToken1)...))
	_, _, err := fc.Run(accessible, common.Address{}, testContract, createInput, GasCreatePair, true)
	require.Error(t, err)
}
