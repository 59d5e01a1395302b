package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"debtvault/crypto"
)

// Encode serialises v with the canonical Borsh encoding.
func Encode(v bin.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses data into v. The buffer must be consumed exactly.
func Decode(data []byte, v bin.BinaryUnmarshaler) error {
	dec := bin.NewBorshDecoder(data)
	if err := v.UnmarshalWithDecoder(dec); err != nil {
		return err
	}
	if rem := dec.Remaining(); rem != 0 {
		return fmt.Errorf("%d trailing bytes", rem)
	}
	return nil
}

// ReadBool reads a canonical Borsh bool; bytes other than 0 and 1 are
// rejected.
func ReadBool(dec *bin.Decoder) (bool, error) {
	b, err := dec.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool byte 0x%02x", b)
	}
}

// ReadAddress reads 32 raw address bytes.
func ReadAddress(dec *bin.Decoder) (crypto.Address, error) {
	raw, err := dec.ReadNBytes(crypto.AddressLength)
	if err != nil {
		return crypto.Address{}, err
	}
	return crypto.NewAddress(raw)
}

// ReadUint64 reads a little-endian u64.
func ReadUint64(dec *bin.Decoder) (uint64, error) {
	return dec.ReadUint64(binary.LittleEndian)
}

// WriteAddress writes 32 raw address bytes.
func WriteAddress(enc *bin.Encoder, addr crypto.Address) error {
	return enc.WriteBytes(addr[:], false)
}

// WriteUint64 writes a little-endian u64.
func WriteUint64(enc *bin.Encoder, v uint64) error {
	return enc.WriteUint64(v, binary.LittleEndian)
}
