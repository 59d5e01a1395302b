// Package accounts resolves the positional account list of an instruction
// into the roles each handler expects.
package accounts

import (
	bin "github.com/gagliardetto/binary"

	perrors "debtvault/core/errors"
	"debtvault/core/types"
	"debtvault/crypto"
)

// Accounts is the ordered account list supplied with a call. Positions are a
// fixed contract per instruction; there is no lookup by name.
type Accounts []*types.AccountInfo

// Get returns the account at position i.
func (a Accounts) Get(i int) (*types.AccountInfo, error) {
	if i < 0 || i >= len(a) || a[i] == nil {
		return nil, perrors.Wrap(perrors.ErrNotEnoughAccountKeys, "position %d of %d", i, len(a))
	}
	return a[i], nil
}

// Rent decodes the rent rule snapshot at position i.
func (a Accounts) Rent(i int) (types.Rent, error) {
	var rent types.Rent
	if err := a.sysvar(i, types.RentSysvarID, &rent); err != nil {
		return types.Rent{}, err
	}
	return rent, nil
}

// Clock decodes the logical clock snapshot at position i.
func (a Accounts) Clock(i int) (types.Clock, error) {
	var clock types.Clock
	if err := a.sysvar(i, types.ClockSysvarID, &clock); err != nil {
		return types.Clock{}, err
	}
	return clock, nil
}

func (a Accounts) sysvar(i int, id crypto.Address, out bin.BinaryUnmarshaler) error {
	info, err := a.Get(i)
	if err != nil {
		return err
	}
	if info.Key != id {
		return perrors.Wrap(perrors.ErrInvalidArgument, "account %s is not sysvar %s", info.Key, id)
	}
	if err := types.DecodeSysvar(info.Read(), out); err != nil {
		return perrors.Wrap(perrors.ErrInvalidAccountData, "%v", err)
	}
	return nil
}
