package crypto

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Role labels the purpose of a derived authority under its parent entity.
type Role string

const (
	// RoleMinter signs mint instructions for a debt token or faucet token.
	RoleMinter Role = "minter"
	// RoleHolder owns the token account escrowing a vault type's collateral.
	RoleHolder Role = "holder"
)

var (
	// ErrInvalidSeeds is returned when a seed tuple derives a point on the
	// ed25519 curve, i.e. an address that could be held by a private key.
	ErrInvalidSeeds = errors.New("authority: invalid seeds")
	// ErrSeedTooLong is returned when a seed exceeds the derivation limits.
	ErrSeedTooLong = errors.New("authority: max seed length exceeded")
)

// Capability is the seed tuple proving control over a derived authority. The
// token program accepts it in place of a signature when the address it
// derives under the invoking program equals the authority account.
type Capability struct {
	Parent Address
	Role   Role
	Nonce  uint8
}

// Seeds returns the ordered seed material (parent, role label, nonce).
func (c Capability) Seeds() [][]byte {
	return [][]byte{c.Parent.Bytes(), []byte(c.Role), {c.Nonce}}
}

// Address derives the authority address under programID.
func (c Capability) Address(programID Address) (Address, error) {
	return DeriveAuthority(programID, c.Parent, c.Role, c.Nonce)
}

func (c Capability) String() string {
	return fmt.Sprintf("%s/%s/%d", c.Parent, c.Role, c.Nonce)
}

// DeriveAuthority computes the program derived address for (parent, role,
// nonce). The derivation is pure; it fails only when the seeds land on the
// curve, which callers treat as invalid seeds.
func DeriveAuthority(programID, parent Address, role Role, nonce uint8) (Address, error) {
	seeds := Capability{Parent: parent, Role: role, Nonce: nonce}.Seeds()
	for _, seed := range seeds {
		if len(seed) > solana.MaxSeedLength {
			return Address{}, ErrSeedTooLong
		}
	}
	pk, err := solana.CreateProgramAddress(seeds, programID.PublicKey())
	if err != nil {
		return Address{}, ErrInvalidSeeds
	}
	return Address(pk), nil
}

// FindAuthority searches nonces from 255 downwards and returns the first
// valid derived address. Clients use it to discover the nonce they pass to
// instructions; the program itself never searches.
func FindAuthority(programID, parent Address, role Role) (Address, uint8, error) {
	if len(role) > solana.MaxSeedLength {
		return Address{}, 0, ErrSeedTooLong
	}
	pk, nonce, err := solana.FindProgramAddress([][]byte{parent.Bytes(), []byte(role)}, programID.PublicKey())
	if err != nil {
		return Address{}, 0, fmt.Errorf("%w: %v", ErrInvalidSeeds, err)
	}
	return Address(pk), nonce, nil
}

// IsOnCurve reports whether addr is a valid ed25519 public key, i.e. whether a
// private key may exist for it.
func IsOnCurve(addr Address) bool {
	return solana.IsOnCurve(addr[:])
}
