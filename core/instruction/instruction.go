// Package instruction defines the closed instruction sets accepted by the
// debt and faucet programs and their canonical byte encoding: a one byte tag
// followed by the variant's fixed Borsh payload.
package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"debtvault/core/state"
	"debtvault/crypto"
	"debtvault/native/faucet"
)

// Set names one of the closed instruction sets. The debt program and the
// faucet program are deployed under separate ids, so tags only have meaning
// within a set.
type Set uint8

const (
	SetVault Set = iota
	SetFaucet
)

func (s Set) String() string {
	switch s {
	case SetVault:
		return "vault"
	case SetFaucet:
		return "faucet"
	default:
		return fmt.Sprintf("Set(%d)", uint8(s))
	}
}

// Tag discriminates instruction variants on the wire within a Set.
type Tag uint8

// Vault set.
const (
	TagInitDebtType Tag = iota
	TagInitVaultType
	TagInitVault
	TagStake
	TagUnstake
	TagBorrow
	TagRepay
)

// Faucet set.
const (
	TagInitFaucet Tag = iota
	TagDrip
)

var tagNames = map[Set][]string{
	SetVault: {
		TagInitDebtType:  "InitDebtType",
		TagInitVaultType: "InitVaultType",
		TagInitVault:     "InitVault",
		TagStake:         "Stake",
		TagUnstake:       "Unstake",
		TagBorrow:        "Borrow",
		TagRepay:         "Repay",
	},
	SetFaucet: {
		TagInitFaucet: "InitFaucet",
		TagDrip:       "Drip",
	},
}

// TagName returns the variant name of tag within s.
func (s Set) TagName(tag Tag) string {
	if names := tagNames[s]; int(tag) < len(names) {
		return names[tag]
	}
	return fmt.Sprintf("%s.Tag(%d)", s, uint8(tag))
}

// Name returns the variant name of ix.
func Name(ix Instruction) string {
	return ix.Set().TagName(ix.Tag())
}

// Instruction is one decoded variant.
type Instruction interface {
	Set() Set
	Tag() Tag
	bin.BinaryMarshaler
	bin.BinaryUnmarshaler
}

type InitDebtType struct {
	DebtToken crypto.Address
	Owner     crypto.Address
}

type InitVaultType struct {
	DebtType              crypto.Address
	CollateralToken       crypto.Address
	CollateralTokenHolder crypto.Address
	PriceOracle           crypto.Address
}

type InitVault struct {
	VaultType crypto.Address
	Owner     crypto.Address
}

type Stake struct {
	Amount                uint64
	CollateralHolderNonce uint8
}

// Unstake is declared for wire compatibility; the program rejects it.
type Unstake struct {
	Amount uint64
}

type Borrow struct {
	Amount          uint64
	DebtMinterNonce uint8
}

// Repay is declared for wire compatibility; the program rejects it.
type Repay struct {
	Amount uint64
}

type InitFaucet struct {
	Config faucet.Config
}

type Drip struct {
	FaucetTokenMinterNonce uint8
}

func (*InitDebtType) Tag() Tag  { return TagInitDebtType }
func (*InitVaultType) Tag() Tag { return TagInitVaultType }
func (*InitVault) Tag() Tag     { return TagInitVault }
func (*Stake) Tag() Tag         { return TagStake }
func (*Unstake) Tag() Tag       { return TagUnstake }
func (*Borrow) Tag() Tag        { return TagBorrow }
func (*Repay) Tag() Tag         { return TagRepay }
func (*InitFaucet) Tag() Tag    { return TagInitFaucet }
func (*Drip) Tag() Tag          { return TagDrip }

func (*InitDebtType) Set() Set  { return SetVault }
func (*InitVaultType) Set() Set { return SetVault }
func (*InitVault) Set() Set     { return SetVault }
func (*Stake) Set() Set         { return SetVault }
func (*Unstake) Set() Set       { return SetVault }
func (*Borrow) Set() Set        { return SetVault }
func (*Repay) Set() Set         { return SetVault }
func (*InitFaucet) Set() Set    { return SetFaucet }
func (*Drip) Set() Set          { return SetFaucet }

func newVariant(set Set, tag Tag) (Instruction, bool) {
	switch set {
	case SetVault:
		switch tag {
		case TagInitDebtType:
			return new(InitDebtType), true
		case TagInitVaultType:
			return new(InitVaultType), true
		case TagInitVault:
			return new(InitVault), true
		case TagStake:
			return new(Stake), true
		case TagUnstake:
			return new(Unstake), true
		case TagBorrow:
			return new(Borrow), true
		case TagRepay:
			return new(Repay), true
		}
	case SetFaucet:
		switch tag {
		case TagInitFaucet:
			return new(InitFaucet), true
		case TagDrip:
			return new(Drip), true
		}
	}
	return nil, false
}

// Encode serialises ix with its tag.
func Encode(ix Instruction) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(uint8(ix.Tag())); err != nil {
		return nil, err
	}
	if err := ix.MarshalWithEncoder(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses data into a variant of set. Tags outside the set, truncated
// payloads and trailing bytes are rejected.
func Decode(set Set, data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty instruction")
	}
	ix, ok := newVariant(set, Tag(data[0]))
	if !ok {
		return nil, fmt.Errorf("unknown %s instruction tag %d", set, data[0])
	}
	if err := state.Decode(data[1:], ix); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Name(ix), err)
	}
	return ix, nil
}

// Build wraps ix into an instruction for programID over the given accounts.
func Build(programID crypto.Address, ix Instruction, accounts ...*solana.AccountMeta) (*solana.GenericInstruction, error) {
	data, err := Encode(ix)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID.PublicKey(), accounts, data), nil
}
