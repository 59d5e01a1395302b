package events

import (
	"debtvault/core/types"
	"debtvault/crypto"
)

const (
	TypeDebtTypeInitialized  = "debt.type_initialized"
	TypeVaultTypeInitialized = "debt.vault_type_initialized"
	TypeVaultInitialized     = "debt.vault_initialized"
	TypeCollateralStaked     = "debt.collateral_staked"
	TypeDebtBorrowed         = "debt.borrowed"
)

type DebtTypeInitialized struct {
	DebtType  crypto.Address
	DebtToken crypto.Address
	Owner     crypto.Address
}

func (DebtTypeInitialized) EventType() string { return TypeDebtTypeInitialized }

func (e DebtTypeInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeDebtTypeInitialized,
		Attributes: map[string]string{
			"debtType":  e.DebtType.String(),
			"debtToken": e.DebtToken.String(),
			"owner":     e.Owner.String(),
		},
	}
}

type VaultTypeInitialized struct {
	VaultType             crypto.Address
	DebtType              crypto.Address
	CollateralToken       crypto.Address
	CollateralTokenHolder crypto.Address
	PriceOracle           crypto.Address
}

func (VaultTypeInitialized) EventType() string { return TypeVaultTypeInitialized }

func (e VaultTypeInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultTypeInitialized,
		Attributes: map[string]string{
			"vaultType":             e.VaultType.String(),
			"debtType":              e.DebtType.String(),
			"collateralToken":       e.CollateralToken.String(),
			"collateralTokenHolder": e.CollateralTokenHolder.String(),
			"priceOracle":           e.PriceOracle.String(),
		},
	}
}

type VaultInitialized struct {
	Vault     crypto.Address
	VaultType crypto.Address
	Owner     crypto.Address
}

func (VaultInitialized) EventType() string { return TypeVaultInitialized }

func (e VaultInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultInitialized,
		Attributes: map[string]string{
			"vault":     e.Vault.String(),
			"vaultType": e.VaultType.String(),
			"owner":     e.Owner.String(),
		},
	}
}

// CollateralStaked reports collateral moved into a vault type's holder.
type CollateralStaked struct {
	Vault            crypto.Address
	From             crypto.Address
	Amount           uint64
	CollateralAmount uint64
}

func (CollateralStaked) EventType() string { return TypeCollateralStaked }

func (e CollateralStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeCollateralStaked,
		Attributes: map[string]string{
			"vault":            e.Vault.String(),
			"from":             e.From.String(),
			"amount":           formatAmount(e.Amount),
			"collateralAmount": formatAmount(e.CollateralAmount),
		},
	}
}

// DebtBorrowed reports debt tokens minted against a vault.
type DebtBorrowed struct {
	Vault      crypto.Address
	Receiver   crypto.Address
	Amount     uint64
	DebtAmount uint64
}

func (DebtBorrowed) EventType() string { return TypeDebtBorrowed }

func (e DebtBorrowed) Event() *types.Event {
	return &types.Event{
		Type: TypeDebtBorrowed,
		Attributes: map[string]string{
			"vault":      e.Vault.String(),
			"receiver":   e.Receiver.String(),
			"amount":     formatAmount(e.Amount),
			"debtAmount": formatAmount(e.DebtAmount),
		},
	}
}
