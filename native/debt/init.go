package debt

import (
	"debtvault/core/state"
	"debtvault/core/types"
	"debtvault/crypto"
)

type initDebtTypeContext struct {
	rent      types.Rent
	debtType  *types.AccountInfo
	debtToken crypto.Address
	owner     crypto.Address
}

func (c initDebtTypeContext) process() error {
	debtType, err := state.InitUninitialized[DebtType](c.debtType)
	if err != nil {
		return err
	}
	debtType.Initialized = true
	debtType.DebtToken = c.debtToken
	debtType.Owner = c.owner
	return state.SaveExempt(c.debtType, debtType, c.rent)
}

type initVaultTypeContext struct {
	rent      types.Rent
	vaultType *types.AccountInfo
	params    VaultType
}

func (c initVaultTypeContext) process() error {
	vaultType, err := state.InitUninitialized[VaultType](c.vaultType)
	if err != nil {
		return err
	}
	// TODO: require the debt type owner to sign once vault types carry
	// governance parameters.
	vaultType.Initialized = true
	vaultType.DebtType = c.params.DebtType
	vaultType.CollateralToken = c.params.CollateralToken
	vaultType.CollateralTokenHolder = c.params.CollateralTokenHolder
	vaultType.PriceOracle = c.params.PriceOracle
	return state.SaveExempt(c.vaultType, vaultType, c.rent)
}

type initVaultContext struct {
	rent      types.Rent
	vault     *types.AccountInfo
	vaultType crypto.Address
	owner     crypto.Address
}

func (c initVaultContext) process() error {
	vault, err := state.InitUninitialized[Vault](c.vault)
	if err != nil {
		return err
	}
	vault.Initialized = true
	vault.VaultType = c.vaultType
	vault.Owner = c.owner
	return state.SaveExempt(c.vault, vault, c.rent)
}
