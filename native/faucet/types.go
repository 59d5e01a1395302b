package faucet

import (
	bin "github.com/gagliardetto/binary"

	"debtvault/core/state"
	"debtvault/crypto"
)

// FaucetSize is the packed size of a Faucet record.
const FaucetSize = 1 + 8 + 8 + 8 + 32

// Config holds the faucet's fixed parameters.
type Config struct {
	// Amount is minted to the receiver on every drip.
	Amount uint64
}

func (c Config) MarshalWithEncoder(enc *bin.Encoder) error {
	return state.WriteUint64(enc, c.Amount)
}

func (c *Config) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	c.Amount, err = state.ReadUint64(dec)
	return err
}

// Faucet mints a fixed amount of one token per call.
type Faucet struct {
	Initialized    bool
	Config         Config
	AmountSupplied uint64
	// UpdatedAt is the clock slot of the last drip.
	UpdatedAt uint64
	Token     crypto.Address
}

func (f *Faucet) IsInitialized() bool { return f.Initialized }

func (f *Faucet) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBool(f.Initialized); err != nil {
		return err
	}
	if err := f.Config.MarshalWithEncoder(enc); err != nil {
		return err
	}
	if err := state.WriteUint64(enc, f.AmountSupplied); err != nil {
		return err
	}
	if err := state.WriteUint64(enc, f.UpdatedAt); err != nil {
		return err
	}
	return state.WriteAddress(enc, f.Token)
}

func (f *Faucet) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if f.Initialized, err = state.ReadBool(dec); err != nil {
		return err
	}
	if err = f.Config.UnmarshalWithDecoder(dec); err != nil {
		return err
	}
	if f.AmountSupplied, err = state.ReadUint64(dec); err != nil {
		return err
	}
	if f.UpdatedAt, err = state.ReadUint64(dec); err != nil {
		return err
	}
	f.Token, err = state.ReadAddress(dec)
	return err
}
