package state

import (
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/stretchr/testify/require"

	perrors "debtvault/core/errors"
	"debtvault/core/types"
	"debtvault/crypto"
)

const recordSize = 1 + crypto.AddressLength + 8

type record struct {
	Initialized bool
	Owner       crypto.Address
	Counter     uint64
}

func (r record) IsInitialized() bool { return r.Initialized }

func (r record) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBool(r.Initialized); err != nil {
		return err
	}
	if err := WriteAddress(enc, r.Owner); err != nil {
		return err
	}
	return WriteUint64(enc, r.Counter)
}

func (r *record) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if r.Initialized, err = ReadBool(dec); err != nil {
		return err
	}
	if r.Owner, err = ReadAddress(dec); err != nil {
		return err
	}
	r.Counter, err = ReadUint64(dec)
	return err
}

func newSlot(size int, lamports uint64) *types.AccountInfo {
	return types.NewAccountInfo(crypto.Address{0xAB}, crypto.Address{0x01}, lamports, make([]byte, size), false, true)
}

func TestLoadZeroedSlotIsUninitialized(t *testing.T) {
	slot := newSlot(recordSize, 0)
	rec, err := Load[record](slot)
	require.NoError(t, err)
	require.False(t, rec.IsInitialized())

	_, err = LoadInitialized[record](slot)
	require.ErrorIs(t, err, perrors.ErrUninitializedAccount)
}

func TestSaveRoundTrip(t *testing.T) {
	slot := newSlot(recordSize, 0)
	in := &record{Initialized: true, Owner: crypto.Address{7}, Counter: 42}
	require.NoError(t, Save(slot, in))

	out, err := LoadInitialized[record](slot)
	require.NoError(t, err)
	require.Equal(t, in, out)

	_, err = InitUninitialized[record](slot)
	require.ErrorIs(t, err, perrors.ErrAccountAlreadyInitialized)
}

func TestSaveRejectsWrongSlotSize(t *testing.T) {
	for _, size := range []int{recordSize - 1, recordSize + 1} {
		slot := newSlot(size, 0)
		before := slot.Read()
		err := Save(slot, &record{Initialized: true})
		require.ErrorIs(t, err, perrors.ErrAccountDataSizeMismatch)
		require.Equal(t, before, slot.Read())
	}
}

func TestSaveExemptChecksBalance(t *testing.T) {
	rent := types.DefaultRent()
	need := rent.MinimumBalance(recordSize)

	poor := newSlot(recordSize, need-1)
	err := SaveExempt(poor, &record{Initialized: true}, rent)
	require.ErrorIs(t, err, perrors.ErrAccountNotRentExempt)
	require.Equal(t, make([]byte, recordSize), poor.Read())

	funded := newSlot(recordSize, need)
	require.NoError(t, SaveExempt(funded, &record{Initialized: true, Counter: 1}, rent))
	out, err := LoadInitialized[record](funded)
	require.NoError(t, err)
	require.Equal(t, uint64(1), out.Counter)
}

func TestLoadRejectsMalformedBytes(t *testing.T) {
	slot := newSlot(recordSize, 0)
	data := make([]byte, recordSize)
	data[0] = 2
	require.NoError(t, slot.Write(data))
	_, err := Load[record](slot)
	require.ErrorIs(t, err, perrors.ErrInvalidAccountData)

	short := newSlot(recordSize-3, 0)
	_, err = Load[record](short)
	require.ErrorIs(t, err, perrors.ErrInvalidAccountData)

	long := newSlot(recordSize+3, 0)
	_, err = Load[record](long)
	require.ErrorIs(t, err, perrors.ErrInvalidAccountData)
}

func TestSaveRespectsReadonlySlot(t *testing.T) {
	slot := types.NewAccountInfo(crypto.Address{1}, crypto.Address{}, 0, make([]byte, recordSize), false, false)
	err := Save(slot, &record{Initialized: true})
	require.ErrorIs(t, err, perrors.ErrReadonlyAccount)
}
