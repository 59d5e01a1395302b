package debt

import (
	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/state"
	"debtvault/core/types"
)

type stakeContext struct {
	tokenProgram            *types.AccountInfo
	collateralFrom          *types.AccountInfo
	collateralFromAuthority *types.AccountInfo
	collateralTo            *types.AccountInfo
	vaultType               *types.AccountInfo
	vault                   *types.AccountInfo

	amount uint64
	// collateralHolderNonce is carried for the unstake flow, which signs
	// for the holder. Staking only needs the source authority.
	collateralHolderNonce uint8
}

func newStakeContext(accts accounts.Accounts, amount uint64, nonce uint8) (*stakeContext, error) {
	ctx := &stakeContext{amount: amount, collateralHolderNonce: nonce}
	for i, dst := range []**types.AccountInfo{
		&ctx.tokenProgram,
		&ctx.collateralFrom,
		&ctx.collateralFromAuthority,
		&ctx.collateralTo,
		&ctx.vaultType,
		&ctx.vault,
	} {
		info, err := accts.Get(i)
		if err != nil {
			return nil, err
		}
		*dst = info
	}
	return ctx, nil
}

func (c *stakeContext) process(tokens tokenClient) (uint64, error) {
	vaultType, err := state.LoadInitialized[VaultType](c.vaultType)
	if err != nil {
		return 0, err
	}
	vault, err := state.LoadInitialized[Vault](c.vault)
	if err != nil {
		return 0, err
	}
	if vault.VaultType != c.vaultType.Key {
		return 0, perrors.Wrap(perrors.ErrVaultTypeMismatch, "vault %s belongs to %s, got %s", c.vault.Key, vault.VaultType, c.vaultType.Key)
	}
	if vaultType.CollateralTokenHolder != c.collateralTo.Key {
		return 0, perrors.Wrap(perrors.ErrCollateralHolderAccountMismatch, "vault type %s escrows into %s, got %s", c.vaultType.Key, vaultType.CollateralTokenHolder, c.collateralTo.Key)
	}
	collateral, err := checkedAdd(vault.CollateralAmount, c.amount)
	if err != nil {
		return 0, err
	}
	if err := tokens.Transfer(c.tokenProgram, c.collateralFrom, c.collateralTo, c.collateralFromAuthority, c.amount); err != nil {
		return 0, err
	}
	vault.CollateralAmount = collateral
	if err := state.Save(c.vault, vault); err != nil {
		return 0, err
	}
	return collateral, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, perrors.Wrap(perrors.ErrOverflow, "%d + %d", a, b)
	}
	return sum, nil
}
