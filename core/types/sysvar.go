package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"debtvault/crypto"
)

var (
	// RentSysvarID is the well-known address of the rent snapshot account.
	RentSysvarID = crypto.AddressFromPublicKey(solana.SysVarRentPubkey)
	// ClockSysvarID is the well-known address of the clock snapshot account.
	ClockSysvarID = crypto.AddressFromPublicKey(solana.SysVarClockPubkey)
)

const (
	// AccountStorageOverhead is the per-account byte overhead charged on top
	// of the data length when computing the rent exemption threshold.
	AccountStorageOverhead = 128

	// RentSize is the encoded size of a Rent snapshot.
	RentSize = 17
	// ClockSize is the encoded size of a Clock snapshot.
	ClockSize = 40

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

// Rent is the storage-cost rule snapshot maintained by the host.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
	BurnPercent         uint8
}

// DefaultRent returns the rule used by a freshly created ledger.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// MinimumBalance returns the balance a slot of dataLen bytes must hold to be
// exempt from rent collection.
func (r Rent) MinimumBalance(dataLen int) uint64 {
	bytesYear := float64((AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear)
	return uint64(math.Floor(bytesYear * r.ExemptionThreshold))
}

// IsExempt reports whether balance covers the exemption threshold for a slot
// of dataLen bytes.
func (r Rent) IsExempt(balance uint64, dataLen int) bool {
	return balance >= r.MinimumBalance(dataLen)
}

func (r Rent) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(r.LamportsPerByteYear, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteFloat64(r.ExemptionThreshold, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint8(r.BurnPercent)
}

func (r *Rent) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if r.LamportsPerByteYear, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if r.ExemptionThreshold, err = dec.ReadFloat64(binary.LittleEndian); err != nil {
		return err
	}
	r.BurnPercent, err = dec.ReadUint8()
	return err
}

// Clock is the logical clock snapshot maintained by the host.
type Clock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func (c Clock) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteUint64(c.Slot, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteInt64(c.EpochStartTimestamp, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(c.Epoch, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(c.LeaderScheduleEpoch, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteInt64(c.UnixTimestamp, binary.LittleEndian)
}

func (c *Clock) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if c.Slot, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if c.EpochStartTimestamp, err = dec.ReadInt64(binary.LittleEndian); err != nil {
		return err
	}
	if c.Epoch, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if c.LeaderScheduleEpoch, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	c.UnixTimestamp, err = dec.ReadInt64(binary.LittleEndian)
	return err
}

// EncodeSysvar serialises a sysvar snapshot for storage in its account.
func EncodeSysvar(v bin.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSysvar parses a sysvar snapshot. Trailing bytes are tolerated since
// hosts may over-allocate sysvar accounts.
func DecodeSysvar(data []byte, v bin.BinaryUnmarshaler) error {
	if err := v.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return fmt.Errorf("decode sysvar: %w", err)
	}
	return nil
}
