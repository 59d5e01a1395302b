package instruction

import (
	bin "github.com/gagliardetto/binary"

	"debtvault/core/state"
	"debtvault/crypto"
)

func writeAddresses(enc *bin.Encoder, addrs ...crypto.Address) error {
	for _, addr := range addrs {
		if err := state.WriteAddress(enc, addr); err != nil {
			return err
		}
	}
	return nil
}

func readAddresses(dec *bin.Decoder, fields ...*crypto.Address) (err error) {
	for _, field := range fields {
		if *field, err = state.ReadAddress(dec); err != nil {
			return err
		}
	}
	return nil
}

func (ix *InitDebtType) MarshalWithEncoder(enc *bin.Encoder) error {
	return writeAddresses(enc, ix.DebtToken, ix.Owner)
}

func (ix *InitDebtType) UnmarshalWithDecoder(dec *bin.Decoder) error {
	return readAddresses(dec, &ix.DebtToken, &ix.Owner)
}

func (ix *InitVaultType) MarshalWithEncoder(enc *bin.Encoder) error {
	return writeAddresses(enc, ix.DebtType, ix.CollateralToken, ix.CollateralTokenHolder, ix.PriceOracle)
}

func (ix *InitVaultType) UnmarshalWithDecoder(dec *bin.Decoder) error {
	return readAddresses(dec, &ix.DebtType, &ix.CollateralToken, &ix.CollateralTokenHolder, &ix.PriceOracle)
}

func (ix *InitVault) MarshalWithEncoder(enc *bin.Encoder) error {
	return writeAddresses(enc, ix.VaultType, ix.Owner)
}

func (ix *InitVault) UnmarshalWithDecoder(dec *bin.Decoder) error {
	return readAddresses(dec, &ix.VaultType, &ix.Owner)
}

func (ix *Stake) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := state.WriteUint64(enc, ix.Amount); err != nil {
		return err
	}
	return enc.WriteUint8(ix.CollateralHolderNonce)
}

func (ix *Stake) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if ix.Amount, err = state.ReadUint64(dec); err != nil {
		return err
	}
	ix.CollateralHolderNonce, err = dec.ReadUint8()
	return err
}

func (ix *Unstake) MarshalWithEncoder(enc *bin.Encoder) error {
	return state.WriteUint64(enc, ix.Amount)
}

func (ix *Unstake) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	ix.Amount, err = state.ReadUint64(dec)
	return err
}

func (ix *Borrow) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := state.WriteUint64(enc, ix.Amount); err != nil {
		return err
	}
	return enc.WriteUint8(ix.DebtMinterNonce)
}

func (ix *Borrow) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if ix.Amount, err = state.ReadUint64(dec); err != nil {
		return err
	}
	ix.DebtMinterNonce, err = dec.ReadUint8()
	return err
}

func (ix *Repay) MarshalWithEncoder(enc *bin.Encoder) error {
	return state.WriteUint64(enc, ix.Amount)
}

func (ix *Repay) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	ix.Amount, err = state.ReadUint64(dec)
	return err
}

func (ix *InitFaucet) MarshalWithEncoder(enc *bin.Encoder) error {
	return ix.Config.MarshalWithEncoder(enc)
}

func (ix *InitFaucet) UnmarshalWithDecoder(dec *bin.Decoder) error {
	return ix.Config.UnmarshalWithDecoder(dec)
}

func (ix *Drip) MarshalWithEncoder(enc *bin.Encoder) error {
	return enc.WriteUint8(ix.FaucetTokenMinterNonce)
}

func (ix *Drip) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	ix.FaucetTokenMinterNonce, err = dec.ReadUint8()
	return err
}
