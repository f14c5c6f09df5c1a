// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package amm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"

	"github.com/luxfi/ammcore/contract"
	"github.com/luxfi/ammcore/modules"
	"github.com/luxfi/ammcore/precompileconfig"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*FactoryContract)(nil)

// ConfigKey is the key used in json config files to specify this
// precompile's config.
const ConfigKey = "ammConfig"

// ContractFactoryAddress is the fixed address the AMM Factory singleton is
// hosted at, LP-9020 in the DEX/Markets reserved range.
var ContractFactoryAddress = common.HexToAddress("0x0000000000000000000000000000000000009020")

// AMMPrecompile is the singleton instance wired up in init().
var AMMPrecompile = &FactoryContract{
	factory: NewFactory(ContractFactoryAddress),
}

// Module is the precompile module registered with modules.RegisterModule.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractFactoryAddress,
	Contract:     AMMPrecompile,
	Configurator: &configurator{},
}

// Gas costs per selector, following the dex module's flat per-operation
// pricing rather than a per-opcode metered model.
const (
	GasCreatePair      uint64 = 60_000
	GasMint            uint64 = 40_000
	GasBurn            uint64 = 40_000
	GasSwap            uint64 = 25_000
	GasSkim            uint64 = 15_000
	GasSync            uint64 = 10_000
	GasSetFeeTo        uint64 = 5_000
	GasSetFeeToSetter  uint64 = 5_000
	GasTransfer        uint64 = 8_000
	GasApprove         uint64 = 8_000
	GasTransferFrom    uint64 = 10_000
	GasPermit          uint64 = 12_000
	GasViewLookup      uint64 = 100
)

// Method selectors, four-byte big-endian dispatch codes the same shape
// dex/module.go uses.
const (
	SelectorCreatePair     uint32 = 0x01000000 // createPair(address,address)
	SelectorMint           uint32 = 0x02000000 // mint(bytes32,address)
	SelectorBurn           uint32 = 0x03000000 // burn(bytes32,address)
	SelectorSwap           uint32 = 0x04000000 // swap(bytes32,uint256,uint256,address,bytes)
	SelectorSkim           uint32 = 0x05000000 // skim(bytes32,address)
	SelectorSync           uint32 = 0x06000000 // sync(bytes32)
	SelectorSetFeeTo       uint32 = 0x07000000 // setFeeTo(address)
	SelectorSetFeeToSetter uint32 = 0x08000000 // setFeeToSetter(address)
	SelectorGetReserves    uint32 = 0x09000000 // getReserves(bytes32)
	SelectorAllPairsLength uint32 = 0x0a000000 // allPairsLength()
	SelectorTransfer       uint32 = 0x0b000000 // transfer(bytes32,address,uint256)
	SelectorApprove        uint32 = 0x0c000000 // approve(bytes32,address,uint256)
	SelectorTransferFrom   uint32 = 0x0d000000 // transferFrom(bytes32,address,address,uint256)
	SelectorPermit         uint32 = 0x0e000000 // permit(bytes32,address,address,uint256,uint256,uint8,bytes32,bytes32)
)

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T", &Config{}, cfg)
	}

	adapter := &stateAdapter{state}
	if config.InitialFeeToSetter != (common.Address{}) && AMMPrecompile.factory.FeeToSetter(adapter) == (common.Address{}) {
		setAddress(adapter, AMMPrecompile.factory.contractAddr, feeToSetterKey, config.InitialFeeToSetter)
	}
	if config.ChainID != nil {
		chainID = new(big.Int).Set(config.ChainID)
	}
	return nil
}

// chainID is the EIP-155 chain id folded into every pool's EIP-712 domain
// separator. It is seeded once from Config.ChainID at activation.
var chainID = big.NewInt(96369)

// Config implements precompileconfig.Config for the AMM module.
type Config struct {
	Upgrade             precompileconfig.Upgrade `json:"upgrade,omitempty"`
	InitialFeeToSetter  common.Address           `json:"initialFeeToSetter,omitempty"`
	ChainID             *big.Int                 `json:"chainID,omitempty"`
}

func (c *Config) Key() string { return ConfigKey }

func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }

func (c *Config) IsDisabled() bool { return c.Upgrade.Disable }

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	sameChainID := (c.ChainID == nil) == (other.ChainID == nil)
	if sameChainID && c.ChainID != nil {
		sameChainID = c.ChainID.Cmp(other.ChainID) == 0
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.InitialFeeToSetter == other.InitialFeeToSetter &&
		sameChainID
}

func (c *Config) Verify(chainConfig precompileconfig.ChainConfig) error {
	return nil
}

// FactoryContract implements contract.StatefulPrecompiledContract,
// dispatching on a 4-byte selector exactly the way dex.DEXContract.Run
// does.
type FactoryContract struct {
	factory *Factory
}

// stateAdapter narrows a contract.StateDB down to the amm.StateDB surface
// the pool/factory/token logic was written against, the same role
// dex/module.go's poolStateAdapter plays for dex.StateDB.
type stateAdapter struct {
	contract.StateDB
}

func (a *stateAdapter) GetBalance(addr common.Address) *uint256.Int {
	return a.StateDB.GetBalance(addr)
}

func (a *stateAdapter) AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	a.StateDB.AddBalance(addr, amount, reason)
}

func (a *stateAdapter) SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) {
	a.StateDB.SubBalance(addr, amount, reason)
}

// GasSwapCallback is the gas stipend handed to a flash-swap counterparty's
// callback, carved out of the Swap selector's own gas budget.
const GasSwapCallback uint64 = 100_000

// swapCallbackInvoker adapts accessibleState.Call into a SwapCallee,
// so a flash swap's callback is a genuine message call into to (the
// counterparty contract that received the optimistic transfer) rather
// than an in-process function call.
type swapCallbackInvoker struct {
	accessibleState contract.AccessibleState
	contractAddr    common.Address
	to              common.Address
}

func (s *swapCallbackInvoker) SwapCallback(sender common.Address, amount0Out, amount1Out *big.Int, data []byte) error {
	input := make([]byte, 0, 96+len(data))
	input = append(input, common.LeftPadBytes(sender.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(amount0Out.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(amount1Out.Bytes(), 32)...)
	input = append(input, data...)
	_, _, err := s.accessibleState.Call(s.contractAddr, s.to, input, GasSwapCallback, uint256.NewInt(0))
	return err
}

func (c *FactoryContract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	switch binary.BigEndian.Uint32(input[:4]) {
	case SelectorCreatePair:
		return GasCreatePair
	case SelectorMint:
		return GasMint
	case SelectorBurn:
		return GasBurn
	case SelectorSwap:
		return GasSwap
	case SelectorSkim:
		return GasSkim
	case SelectorSync:
		return GasSync
	case SelectorSetFeeTo:
		return GasSetFeeTo
	case SelectorSetFeeToSetter:
		return GasSetFeeToSetter
	case SelectorTransfer:
		return GasTransfer
	case SelectorApprove:
		return GasApprove
	case SelectorTransferFrom:
		return GasTransferFrom
	case SelectorPermit:
		return GasPermit
	case SelectorGetReserves, SelectorAllPairsLength:
		return GasViewLookup
	default:
		return 0
	}
}

func (c *FactoryContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, fmt.Errorf("amm: input too short")
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]
	state := &stateAdapter{accessibleState.GetStateDB()}
	blockContext := accessibleState.GetBlockContext()

	writeGuard := func(gas uint64) (uint64, error) {
		if readOnly {
			return suppliedGas, fmt.Errorf("amm: cannot write in read-only mode")
		}
		if suppliedGas < gas {
			return 0, fmt.Errorf("amm: out of gas")
		}
		return suppliedGas - gas, nil
	}

	switch selector {
	case SelectorCreatePair:
		remainingGas, err = writeGuard(GasCreatePair)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 64 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		tokenA := common.BytesToAddress(data[12:32])
		tokenB := common.BytesToAddress(data[44:64])
		id, cerr := c.factory.CreatePair(state, tokenA, tokenB)
		if cerr != nil {
			return nil, remainingGas, cerr
		}
		return id[:], remainingGas, nil

	case SelectorMint:
		remainingGas, err = writeGuard(GasMint)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 64 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		var id [32]byte
		copy(id[:], data[:32])
		to := common.BytesToAddress(data[44:64])
		pool, ok := c.factory.getPool(state, id)
		if !ok {
			return nil, remainingGas, ErrInsufficientLiquidity
		}
		liquidity, merr := pool.Mint(state, caller, to, c.factory.FeeTo(state), uint32(blockContext.Timestamp()))
		if merr != nil {
			return nil, remainingGas, merr
		}
		result := make([]byte, 32)
		liquidity.FillBytes(result)
		return result, remainingGas, nil

	case SelectorBurn:
		remainingGas, err = writeGuard(GasBurn)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 64 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		var id [32]byte
		copy(id[:], data[:32])
		to := common.BytesToAddress(data[44:64])
		pool, ok := c.factory.getPool(state, id)
		if !ok {
			return nil, remainingGas, ErrInsufficientLiquidity
		}
		amount0, amount1, berr := pool.Burn(state, caller, to, c.factory.FeeTo(state), uint32(blockContext.Timestamp()))
		if berr != nil {
			return nil, remainingGas, berr
		}
		result := make([]byte, 64)
		amount0.FillBytes(result[0:32])
		amount1.FillBytes(result[32:64])
		return result, remainingGas, nil

	case SelectorSwap:
		remainingGas, err = writeGuard(GasSwap)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 128 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		var id [32]byte
		copy(id[:], data[:32])
		amount0Out := new(big.Int).SetBytes(data[32:64])
		amount1Out := new(big.Int).SetBytes(data[64:96])
		to := common.BytesToAddress(data[108:128])
		var swapData []byte
		if len(data) > 128 {
			swapData = data[128:]
		}
		pool, ok := c.factory.getPool(state, id)
		if !ok {
			return nil, remainingGas, ErrInsufficientLiquidity
		}
		if len(swapData) > 0 {
			if remainingGas < GasSwapCallback {
				return nil, 0, fmt.Errorf("amm: out of gas")
			}
			remainingGas -= GasSwapCallback
		}
		callee := &swapCallbackInvoker{accessibleState: accessibleState, contractAddr: addr, to: to}
		if serr := pool.Swap(state, caller, amount0Out, amount1Out, to, swapData, callee, uint32(blockContext.Timestamp())); serr != nil {
			return nil, remainingGas, serr
		}
		return nil, remainingGas, nil

	case SelectorSkim:
		remainingGas, err = writeGuard(GasSkim)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 64 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		var id [32]byte
		copy(id[:], data[:32])
		to := common.BytesToAddress(data[44:64])
		pool, ok := c.factory.getPool(state, id)
		if !ok {
			return nil, remainingGas, ErrInsufficientLiquidity
		}
		if serr := pool.Skim(state, to); serr != nil {
			return nil, remainingGas, serr
		}
		return nil, remainingGas, nil

	case SelectorSync:
		remainingGas, err = writeGuard(GasSync)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 32 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		var id [32]byte
		copy(id[:], data[:32])
		pool, ok := c.factory.getPool(state, id)
		if !ok {
			return nil, remainingGas, ErrInsufficientLiquidity
		}
		if serr := pool.Sync(state, uint32(blockContext.Timestamp())); serr != nil {
			return nil, remainingGas, serr
		}
		return nil, remainingGas, nil

	case SelectorSetFeeTo:
		remainingGas, err = writeGuard(GasSetFeeTo)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 32 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		feeTo := common.BytesToAddress(data[12:32])
		if serr := c.factory.SetFeeTo(state, caller, feeTo); serr != nil {
			return nil, remainingGas, serr
		}
		return nil, remainingGas, nil

	case SelectorSetFeeToSetter:
		remainingGas, err = writeGuard(GasSetFeeToSetter)
		if err != nil {
			return nil, remainingGas, err
		}
		if len(data) < 32 {
			return nil, remainingGas, fmt.Errorf("amm: short input")
		}
		newSetter := common.BytesToAddress(data[12:32])
		if serr := c.factory.SetFeeToSetter(state, caller, newSetter); serr != nil {
			return nil, remainingGas, serr
		}
		return nil, remainingGas, nil

	case SelectorGetReserves:
		if suppliedGas < GasViewLookup {
			return nil, 0, fmt.Errorf("amm: out of gas")
		}
		if len(data) < 32 {
			return nil, suppliedGas - GasViewLookup, fmt.Errorf("amm: short input")
		}
		var id [32]byte
		copy(id[:], data[:32])
		pool, ok := c.factory.getPool(state, id)
		if !ok {
			return nil, suppliedGas - GasViewLookup, ErrInsufficientLiquidity
		}
		reserve0, reserve1, ts := pool.GetReserves(state)
		result := make([]byte, 96)
		reserve0.FillBytes(result[0:32])
		reserve1.FillBytes(result[32:64])
		binary.BigEndian.PutUint32(result[92:96], ts)
		return result, suppliedGas - GasViewLookup, nil

	case SelectorAllPairsLength:
		if suppliedGas < GasViewLookup {
			return nil, 0, fmt.Errorf("amm: out of gas")
		}
		result := make([]byte, 32)
		c.factory.AllPairsLength(state).FillBytes(result)
		return result, suppliedGas - GasViewLookup, nil

	case SelectorTransfer, SelectorApprove, SelectorTransferFrom, SelectorPermit:
		return c.runTokenOp(state, caller, selector, data, suppliedGas, readOnly)

	default:
		return nil, suppliedGas, fmt.Errorf("amm: unknown method selector: %x", selector)
	}
}

func (c *FactoryContract) runTokenOp(state *stateAdapter, caller common.Address, selector uint32, data []byte, suppliedGas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("amm: cannot write in read-only mode")
	}
	if len(data) < 32 {
		return nil, suppliedGas, fmt.Errorf("amm: short input")
	}
	var id [32]byte
	copy(id[:], data[:32])
	pool, ok := c.factory.getPool(state, id)
	if !ok {
		return nil, suppliedGas, ErrInsufficientLiquidity
	}
	tok := pool.token()

	switch selector {
	case SelectorTransfer:
		if suppliedGas < GasTransfer || len(data) < 96 {
			return nil, suppliedGas, fmt.Errorf("amm: short input")
		}
		to := common.BytesToAddress(data[44:64])
		value := new(big.Int).SetBytes(data[64:96])
		if err := tok.transfer(state, caller, to, value); err != nil {
			return nil, suppliedGas - GasTransfer, err
		}
		return nil, suppliedGas - GasTransfer, nil

	case SelectorApprove:
		if suppliedGas < GasApprove || len(data) < 96 {
			return nil, suppliedGas, fmt.Errorf("amm: short input")
		}
		spender := common.BytesToAddress(data[44:64])
		value := new(big.Int).SetBytes(data[64:96])
		tok.approve(state, caller, spender, value)
		return nil, suppliedGas - GasApprove, nil

	case SelectorTransferFrom:
		if suppliedGas < GasTransferFrom || len(data) < 128 {
			return nil, suppliedGas, fmt.Errorf("amm: short input")
		}
		from := common.BytesToAddress(data[44:64])
		to := common.BytesToAddress(data[76:96])
		value := new(big.Int).SetBytes(data[96:128])
		if err := tok.transferFrom(state, caller, from, to, value); err != nil {
			return nil, suppliedGas - GasTransferFrom, err
		}
		return nil, suppliedGas - GasTransferFrom, nil

	case SelectorPermit:
		if suppliedGas < GasPermit || len(data) < 32+32+32+32+32+32+32+32 {
			return nil, suppliedGas, fmt.Errorf("amm: short input")
		}
		off := 32
		owner := common.BytesToAddress(data[off+12 : off+32])
		off += 32
		spender := common.BytesToAddress(data[off+12 : off+32])
		off += 32
		value := new(big.Int).SetBytes(data[off : off+32])
		off += 32
		deadline := new(big.Int).SetBytes(data[off : off+32])
		off += 32
		v := data[off+31]
		off += 32
		var r, s [32]byte
		copy(r[:], data[off:off+32])
		off += 32
		copy(s[:], data[off:off+32])

		if err := tok.permit(state, chainID, owner, spender, value, deadline, v, r, s, now()); err != nil {
			return nil, suppliedGas - GasPermit, err
		}
		return nil, suppliedGas - GasPermit, nil

	default:
		return nil, suppliedGas, fmt.Errorf("amm: unknown token selector")
	}
}
