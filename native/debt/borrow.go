package debt

import (
	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/state"
	"debtvault/core/types"
	"debtvault/crypto"
)

type borrowContext struct {
	tokenProgram *types.AccountInfo
	debtToken    *types.AccountInfo
	debtMinter   *types.AccountInfo
	debtReceiver *types.AccountInfo
	debtType     *types.AccountInfo
	vaultType    *types.AccountInfo
	vault        *types.AccountInfo
	vaultOwner   *types.AccountInfo
	priceOracle  *types.AccountInfo

	amount          uint64
	debtMinterNonce uint8
}

func newBorrowContext(accts accounts.Accounts, amount uint64, nonce uint8) (*borrowContext, error) {
	ctx := &borrowContext{amount: amount, debtMinterNonce: nonce}
	for i, dst := range []**types.AccountInfo{
		&ctx.tokenProgram,
		&ctx.debtToken,
		&ctx.debtMinter,
		&ctx.debtReceiver,
		&ctx.debtType,
		&ctx.vaultType,
		&ctx.vault,
		&ctx.vaultOwner,
		&ctx.priceOracle,
	} {
		info, err := accts.Get(i)
		if err != nil {
			return nil, err
		}
		*dst = info
	}
	return ctx, nil
}

func (c *borrowContext) process(programID crypto.Address, tokens tokenClient) (uint64, error) {
	debtType, err := state.LoadInitialized[DebtType](c.debtType)
	if err != nil {
		return 0, err
	}
	vaultType, err := state.LoadInitialized[VaultType](c.vaultType)
	if err != nil {
		return 0, err
	}
	vault, err := state.LoadInitialized[Vault](c.vault)
	if err != nil {
		return 0, err
	}

	if debtType.DebtToken != c.debtToken.Key {
		return 0, perrors.Wrap(perrors.ErrInvalidDebtToken, "debt type %s mints %s, got %s", c.debtType.Key, debtType.DebtToken, c.debtToken.Key)
	}
	if vaultType.DebtType != c.debtType.Key {
		return 0, perrors.Wrap(perrors.ErrDebtTypeMismatch, "vault type %s belongs to %s, got %s", c.vaultType.Key, vaultType.DebtType, c.debtType.Key)
	}
	if vaultType.PriceOracle != c.priceOracle.Key {
		return 0, perrors.Wrap(perrors.ErrInvalidPriceOracle, "vault type %s prices with %s, got %s", c.vaultType.Key, vaultType.PriceOracle, c.priceOracle.Key)
	}
	if vault.VaultType != c.vaultType.Key {
		return 0, perrors.Wrap(perrors.ErrVaultTypeMismatch, "vault %s belongs to %s, got %s", c.vault.Key, vault.VaultType, c.vaultType.Key)
	}
	if vault.Owner != c.vaultOwner.Key {
		return 0, perrors.Wrap(perrors.ErrOwnerMismatch, "vault %s is owned by %s, got %s", c.vault.Key, vault.Owner, c.vaultOwner.Key)
	}
	if !c.vaultOwner.IsSigner {
		return 0, perrors.Wrap(perrors.ErrMissingRequiredSignature, "vault owner %s", c.vaultOwner.Key)
	}

	capability := crypto.Capability{Parent: c.debtType.Key, Role: crypto.RoleMinter, Nonce: c.debtMinterNonce}
	minter, err := capability.Address(programID)
	if err != nil {
		return 0, perrors.Wrap(perrors.ErrInvalidSeeds, "%s: %v", capability, err)
	}
	if minter != c.debtMinter.Key {
		return 0, perrors.Wrap(perrors.ErrUnexpectedProgramAccount, "debt minter %s, derived %s", c.debtMinter.Key, minter)
	}

	// TODO: cap the borrow at the vault type's debt ceiling once the price
	// oracle feed is integrated.
	debt, err := checkedAdd(vault.DebtAmount, c.amount)
	if err != nil {
		return 0, err
	}
	if err := tokens.MintTo(c.tokenProgram, c.debtToken, c.debtReceiver, c.debtMinter, c.amount, capability); err != nil {
		return 0, err
	}
	vault.DebtAmount = debt
	if err := state.Save(c.vault, vault); err != nil {
		return 0, err
	}
	return debt, nil
}
