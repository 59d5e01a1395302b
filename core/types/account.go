package types

import (
	perrors "debtvault/core/errors"
	"debtvault/crypto"
)

// AccountInfo is the view of one account handed to the program for the
// duration of a call. The data region is allocated and sized by the host;
// the program can overwrite it in place but never grow or shrink it.
type AccountInfo struct {
	Key        crypto.Address
	Owner      crypto.Address
	Lamports   uint64
	IsSigner   bool
	IsWritable bool
	Executable bool

	data []byte
}

// NewAccountInfo wraps a copy of data in an account view.
func NewAccountInfo(key, owner crypto.Address, lamports uint64, data []byte, signer, writable bool) *AccountInfo {
	return &AccountInfo{
		Key:        key,
		Owner:      owner,
		Lamports:   lamports,
		IsSigner:   signer,
		IsWritable: writable,
		data:       append([]byte(nil), data...),
	}
}

// Address returns the account key.
func (a *AccountInfo) Address() crypto.Address { return a.Key }

// Balance returns the lamports backing the account.
func (a *AccountInfo) Balance() uint64 { return a.Lamports }

// Len returns the allocated size of the data region.
func (a *AccountInfo) Len() int { return len(a.data) }

// Read returns a copy of the current data region.
func (a *AccountInfo) Read() []byte {
	return append([]byte(nil), a.data...)
}

// Write overwrites the data region. The account must be writable and data
// must match the allocated size exactly.
func (a *AccountInfo) Write(data []byte) error {
	if !a.IsWritable {
		return perrors.Wrap(perrors.ErrReadonlyAccount, "account %s", a.Key)
	}
	if len(data) != len(a.data) {
		return perrors.Wrap(perrors.ErrAccountDataSizeMismatch, "account %s holds %d bytes, got %d", a.Key, len(a.data), len(data))
	}
	copy(a.data, data)
	return nil
}

// Clone returns a deep copy of the account view.
func (a *AccountInfo) Clone() *AccountInfo {
	if a == nil {
		return nil
	}
	clone := *a
	clone.data = append([]byte(nil), a.data...)
	return &clone
}
