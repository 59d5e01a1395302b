package crypto

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// AddressLength is the number of raw bytes in an account address.
const AddressLength = solana.PublicKeyLength

// Address is a 32-byte account identifier. It names either a key-holder
// account or a program derived authority; the two share one address space.
type Address [AddressLength]byte

// NewAddress copies b into an Address. b must be exactly 32 bytes long.
func NewAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// AddressFromPublicKey converts a solana public key into an Address.
func AddressFromPublicKey(pk solana.PublicKey) Address {
	return Address(pk)
}

// PublicKey returns the solana representation of the address.
func (a Address) PublicKey() solana.PublicKey {
	return solana.PublicKey(a)
}

func (a Address) String() string {
	return solana.PublicKey(a).String()
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether every byte of the address is zero.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText encodes the address as base58 so it can live in TOML and YAML
// documents.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a base58 address.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAddress parses a base58 encoded address.
func DecodeAddress(addrStr string) (Address, error) {
	pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("invalid base58 address: %w", err)
	}
	return Address(pk), nil
}

// --- Key Management ---

// PrivateKey is an ed25519 signing key controlling a key-holder address.
type PrivateKey struct {
	key solana.PrivateKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// Bytes returns the 64-byte ed25519 private key (seed followed by public key).
func (k *PrivateKey) Bytes() []byte {
	return append([]byte(nil), k.key...)
}

// Address returns the key-holder address controlled by this key.
func (k *PrivateKey) Address() Address {
	return Address(k.key.PublicKey())
}

// Sign produces an ed25519 signature over msg.
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	sig, err := k.key.Sign(msg)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

// Verify checks an ed25519 signature produced by the key behind addr.
func Verify(addr Address, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	var s solana.Signature
	copy(s[:], sig)
	return addr.PublicKey().Verify(msg, s)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes long, got %d", ed25519.PrivateKeySize, len(b))
	}
	derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
	if !derived.Equal(ed25519.PrivateKey(b)) {
		return nil, fmt.Errorf("private key public half does not match its seed")
	}
	return &PrivateKey{key: solana.PrivateKey(derived)}, nil
}

// KeyGetter adapts keys to the lookup used when signing transactions.
func KeyGetter(keys ...*PrivateKey) func(solana.PublicKey) *solana.PrivateKey {
	return func(pk solana.PublicKey) *solana.PrivateKey {
		for _, k := range keys {
			if k != nil && k.key.PublicKey().Equals(pk) {
				key := k.key
				return &key
			}
		}
		return nil
	}
}
