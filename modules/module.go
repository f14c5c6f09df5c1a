// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/ammcore/contract"
)

// Module describes a stateful precompile: the address it is hosted at, the
// contract that runs there, and the configurator used to turn on its
// activation config via a network upgrade.
type Module struct {
	// ConfigKey is the key used in json config files to specify this
	// precompile's config.
	ConfigKey string
	// Address is the address the stateful precompile is accessible at.
	Address common.Address
	// Contract is the thread-safe singleton used as the
	// StatefulPrecompiledContract when this module is enabled.
	Contract contract.StatefulPrecompiledContract
	// Configurator configures the precompile's state the first time its
	// upgrade activates.
	Configurator contract.Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
