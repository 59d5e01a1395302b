package debt

import (
	bin "github.com/gagliardetto/binary"

	"debtvault/core/state"
	"debtvault/crypto"
)

// Packed sizes of the persisted records. Slots are allocated with exactly
// these lengths.
const (
	DebtTypeSize  = 1 + 32 + 32
	VaultTypeSize = 1 + 32*4
	VaultSize     = 1 + 32 + 32 + 8 + 8
)

// DebtType is one mintable debt asset and its governing authority.
type DebtType struct {
	Initialized bool
	// DebtToken is minted by the authority derived from the debt type's
	// own address with the minter role.
	DebtToken crypto.Address
	Owner     crypto.Address
}

func (d *DebtType) IsInitialized() bool { return d.Initialized }

func (d *DebtType) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBool(d.Initialized); err != nil {
		return err
	}
	if err := state.WriteAddress(enc, d.DebtToken); err != nil {
		return err
	}
	return state.WriteAddress(enc, d.Owner)
}

func (d *DebtType) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if d.Initialized, err = state.ReadBool(dec); err != nil {
		return err
	}
	if d.DebtToken, err = state.ReadAddress(dec); err != nil {
		return err
	}
	d.Owner, err = state.ReadAddress(dec)
	return err
}

// VaultType links a collateral asset and its escrow account to a debt type.
type VaultType struct {
	Initialized     bool
	DebtType        crypto.Address
	CollateralToken crypto.Address
	// CollateralTokenHolder is the token account escrowing staked
	// collateral. It is owned by the holder authority derived from the
	// vault type's address.
	CollateralTokenHolder crypto.Address
	PriceOracle           crypto.Address
}

func (v *VaultType) IsInitialized() bool { return v.Initialized }

func (v *VaultType) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBool(v.Initialized); err != nil {
		return err
	}
	for _, addr := range []crypto.Address{v.DebtType, v.CollateralToken, v.CollateralTokenHolder, v.PriceOracle} {
		if err := state.WriteAddress(enc, addr); err != nil {
			return err
		}
	}
	return nil
}

func (v *VaultType) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if v.Initialized, err = state.ReadBool(dec); err != nil {
		return err
	}
	for _, field := range []*crypto.Address{&v.DebtType, &v.CollateralToken, &v.CollateralTokenHolder, &v.PriceOracle} {
		if *field, err = state.ReadAddress(dec); err != nil {
			return err
		}
	}
	return nil
}

// Vault is one user's position within a vault type.
type Vault struct {
	Initialized bool
	VaultType   crypto.Address
	// Owner alone may borrow against the vault. Anyone may stake into it.
	Owner            crypto.Address
	DebtAmount       uint64
	CollateralAmount uint64
}

func (v *Vault) IsInitialized() bool { return v.Initialized }

func (v *Vault) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBool(v.Initialized); err != nil {
		return err
	}
	if err := state.WriteAddress(enc, v.VaultType); err != nil {
		return err
	}
	if err := state.WriteAddress(enc, v.Owner); err != nil {
		return err
	}
	if err := state.WriteUint64(enc, v.DebtAmount); err != nil {
		return err
	}
	return state.WriteUint64(enc, v.CollateralAmount)
}

func (v *Vault) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	if v.Initialized, err = state.ReadBool(dec); err != nil {
		return err
	}
	if v.VaultType, err = state.ReadAddress(dec); err != nil {
		return err
	}
	if v.Owner, err = state.ReadAddress(dec); err != nil {
		return err
	}
	if v.DebtAmount, err = state.ReadUint64(dec); err != nil {
		return err
	}
	v.CollateralAmount, err = state.ReadUint64(dec)
	return err
}
