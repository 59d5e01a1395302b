// Package state loads and persists fixed-layout entities in host allocated
// storage slots.
package state

import (
	bin "github.com/gagliardetto/binary"

	perrors "debtvault/core/errors"
	"debtvault/core/types"
	"debtvault/crypto"
)

// Slot is a handle to one externally allocated storage region. The store
// never resizes a slot; Write fails when the length differs.
type Slot interface {
	Address() crypto.Address
	Balance() uint64
	Len() int
	Read() []byte
	Write(data []byte) error
}

// Entity is a persisted record carrying an initialization flag.
type Entity interface {
	bin.BinaryMarshaler
	IsInitialized() bool
}

// Record is satisfied by *T when T is an Entity that can be decoded in place.
type Record[T any] interface {
	*T
	Entity
	bin.BinaryUnmarshaler
}

var _ Slot = (*types.AccountInfo)(nil)

// Load decodes the slot's current bytes.
func Load[T any, P Record[T]](slot Slot) (P, error) {
	out := P(new(T))
	if err := Decode(slot.Read(), out); err != nil {
		var zero P
		return zero, perrors.Wrap(perrors.ErrInvalidAccountData, "account %s: %v", slot.Address(), err)
	}
	return out, nil
}

// Save encodes v and overwrites the slot in place.
func Save(slot Slot, v Entity) error {
	data, err := encodeFor(slot, v)
	if err != nil {
		return err
	}
	return write(slot, data)
}

// SaveExempt behaves like Save but first requires the slot's balance to meet
// the rent exemption threshold for the encoded length. Init handlers use it
// so that a newly created record can persist indefinitely.
func SaveExempt(slot Slot, v Entity, rent types.Rent) error {
	data, err := encodeFor(slot, v)
	if err != nil {
		return err
	}
	if !rent.IsExempt(slot.Balance(), len(data)) {
		return perrors.Wrap(perrors.ErrAccountNotRentExempt, "account %s holds %d, needs %d", slot.Address(), slot.Balance(), rent.MinimumBalance(len(data)))
	}
	return write(slot, data)
}

// LoadInitialized loads the slot and requires the initialized flag.
func LoadInitialized[T any, P Record[T]](slot Slot) (P, error) {
	out, err := Load[T, P](slot)
	if err != nil {
		return out, err
	}
	if !out.IsInitialized() {
		var zero P
		return zero, perrors.Wrap(perrors.ErrUninitializedAccount, "account %s", slot.Address())
	}
	return out, nil
}

// InitUninitialized loads the slot and requires the initialized flag to be
// clear, returning the record for the init handler to fill in.
func InitUninitialized[T any, P Record[T]](slot Slot) (P, error) {
	out, err := Load[T, P](slot)
	if err != nil {
		return out, err
	}
	if out.IsInitialized() {
		var zero P
		return zero, perrors.Wrap(perrors.ErrAccountAlreadyInitialized, "account %s", slot.Address())
	}
	return out, nil
}

func encodeFor(slot Slot, v Entity) ([]byte, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrEncodeFailure, "account %s: %v", slot.Address(), err)
	}
	return data, nil
}

func write(slot Slot, data []byte) error {
	if slot.Len() != len(data) {
		return perrors.Wrap(perrors.ErrAccountDataSizeMismatch, "account %s holds %d bytes, record needs %d", slot.Address(), slot.Len(), len(data))
	}
	return slot.Write(data)
}
