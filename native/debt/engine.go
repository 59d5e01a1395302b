// Package debt implements the collateralized debt protocol: debt types,
// vault types and the vaults users stake collateral into and borrow against.
package debt

import (
	"debtvault/core/accounts"
	"debtvault/core/events"
	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/native/token"
)

// tokenClient is the subset of the token collaborator the engine drives.
type tokenClient interface {
	Transfer(program, source, destination, authority *types.AccountInfo, amount uint64) error
	MintTo(program, mint, destination, authority *types.AccountInfo, amount uint64, capability crypto.Capability) error
}

var _ tokenClient = (*token.Client)(nil)

// Engine processes debt protocol instructions for one program id. It keeps
// no state between calls.
type Engine struct {
	programID crypto.Address
	tokens    tokenClient
	emitter   events.Emitter
}

// NewEngine returns an engine deriving authorities under programID.
func NewEngine(programID crypto.Address, tokens tokenClient) *Engine {
	return &Engine{programID: programID, tokens: tokens, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(evt)
	}
}

// InitDebtType creates a debt type.
//
// Accounts: 0 rent sysvar, 1 debt type (writable).
func (e *Engine) InitDebtType(accts accounts.Accounts, debtToken, owner crypto.Address) error {
	rent, err := accts.Rent(0)
	if err != nil {
		return err
	}
	slot, err := accts.Get(1)
	if err != nil {
		return err
	}
	ctx := initDebtTypeContext{rent: rent, debtType: slot, debtToken: debtToken, owner: owner}
	if err := ctx.process(); err != nil {
		return err
	}
	e.emit(events.DebtTypeInitialized{DebtType: slot.Key, DebtToken: debtToken, Owner: owner})
	return nil
}

// InitVaultType creates a vault type under a debt type.
//
// Accounts: 0 rent sysvar, 1 vault type (writable).
func (e *Engine) InitVaultType(accts accounts.Accounts, params VaultType) error {
	rent, err := accts.Rent(0)
	if err != nil {
		return err
	}
	slot, err := accts.Get(1)
	if err != nil {
		return err
	}
	ctx := initVaultTypeContext{rent: rent, vaultType: slot, params: params}
	if err := ctx.process(); err != nil {
		return err
	}
	e.emit(events.VaultTypeInitialized{
		VaultType:             slot.Key,
		DebtType:              params.DebtType,
		CollateralToken:       params.CollateralToken,
		CollateralTokenHolder: params.CollateralTokenHolder,
		PriceOracle:           params.PriceOracle,
	})
	return nil
}

// InitVault creates a user vault.
//
// Accounts: 0 rent sysvar, 1 vault (writable).
func (e *Engine) InitVault(accts accounts.Accounts, vaultType, owner crypto.Address) error {
	rent, err := accts.Rent(0)
	if err != nil {
		return err
	}
	slot, err := accts.Get(1)
	if err != nil {
		return err
	}
	ctx := initVaultContext{rent: rent, vault: slot, vaultType: vaultType, owner: owner}
	if err := ctx.process(); err != nil {
		return err
	}
	e.emit(events.VaultInitialized{Vault: slot.Key, VaultType: vaultType, Owner: owner})
	return nil
}

// Stake transfers collateral into the vault type's holder account and
// credits the vault.
//
// Accounts: 0 token program, 1 collateral source (writable), 2 source
// authority (signer), 3 collateral holder (writable), 4 vault type, 5 vault
// (writable).
func (e *Engine) Stake(accts accounts.Accounts, amount uint64, collateralHolderNonce uint8) error {
	ctx, err := newStakeContext(accts, amount, collateralHolderNonce)
	if err != nil {
		return err
	}
	collateral, err := ctx.process(e.tokens)
	if err != nil {
		return err
	}
	e.emit(events.CollateralStaked{
		Vault:            ctx.vault.Key,
		From:             ctx.collateralFrom.Key,
		Amount:           amount,
		CollateralAmount: collateral,
	})
	return nil
}

// Borrow mints debt tokens to a receiver against a vault.
//
// Accounts: 0 token program, 1 debt token mint (writable), 2 debt minter
// (writable), 3 debt receiver (writable), 4 debt type, 5 vault type, 6 vault
// (writable), 7 vault owner (signer), 8 price oracle.
func (e *Engine) Borrow(accts accounts.Accounts, amount uint64, debtMinterNonce uint8) error {
	ctx, err := newBorrowContext(accts, amount, debtMinterNonce)
	if err != nil {
		return err
	}
	debt, err := ctx.process(e.programID, e.tokens)
	if err != nil {
		return err
	}
	e.emit(events.DebtBorrowed{
		Vault:      ctx.vault.Key,
		Receiver:   ctx.debtReceiver.Key,
		Amount:     amount,
		DebtAmount: debt,
	})
	return nil
}
