package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"

	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/storage"
)

var accountPrefix = []byte("acct:")

var (
	// sysvarOwner owns the rent and clock accounts.
	sysvarOwner = mustDecode("Sysvar1111111111111111111111111111111111111")
	// loaderOwner owns deployed program accounts.
	loaderOwner = crypto.AddressFromPublicKey(solana.BPFLoaderProgramID)
	// SystemOwner owns plain key-holder accounts and absent accounts.
	SystemOwner = crypto.AddressFromPublicKey(solana.SystemProgramID)
)

func mustDecode(s string) crypto.Address {
	addr, err := crypto.DecodeAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// Account is the persisted record behind one address.
type Account struct {
	Lamports   uint64
	Owner      crypto.Address
	Data       []byte
	Executable bool
}

func accountKey(addr crypto.Address) []byte {
	key := make([]byte, 0, len(accountPrefix)+crypto.AddressLength)
	key = append(key, accountPrefix...)
	return append(key, addr[:]...)
}

func encodeAccount(acct *Account) ([]byte, error) {
	return rlp.EncodeToBytes(acct)
}

func decodeAccount(raw []byte) (*Account, error) {
	acct := new(Account)
	if err := rlp.DecodeBytes(raw, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (l *Ledger) load(addr crypto.Address) (*Account, error) {
	raw, err := l.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	acct, err := decodeAccount(raw)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode account %s: %w", addr, err)
	}
	return acct, nil
}

func (l *Ledger) store(addr crypto.Address, acct *Account) error {
	raw, err := encodeAccount(acct)
	if err != nil {
		return err
	}
	return l.db.Put(accountKey(addr), raw)
}

// Account returns the current record for addr.
func (l *Ledger) Account(addr crypto.Address) (*Account, error) {
	return l.load(addr)
}

// AccountInfo returns a read-only view of addr, the shape programs and the
// typed state store consume.
func (l *Ledger) AccountInfo(addr crypto.Address) (*types.AccountInfo, error) {
	acct, err := l.load(addr)
	if err != nil {
		return nil, err
	}
	return acct.info(addr, false, false), nil
}

func (a *Account) info(addr crypto.Address, signer, writable bool) *types.AccountInfo {
	info := types.NewAccountInfo(addr, a.Owner, a.Lamports, a.Data, signer, writable)
	info.Executable = a.Executable
	return info
}

// CreateAccount allocates a zeroed slot of space bytes owned by owner. When
// lamports is zero the slot is funded with exactly the rent exemption
// minimum for its size.
func (l *Ledger) CreateAccount(addr, owner crypto.Address, space int, lamports uint64) error {
	if space < 0 {
		return fmt.Errorf("ledger: negative account size %d", space)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.create(addr, &Account{Lamports: lamports, Owner: owner, Data: make([]byte, space)})
}

func (l *Ledger) create(addr crypto.Address, acct *Account) error {
	if _, err := l.load(addr); err == nil {
		return fmt.Errorf("%w: %s", ErrAccountExists, addr)
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	if acct.Lamports == 0 {
		acct.Lamports = l.rent.MinimumBalance(len(acct.Data))
	}
	return l.store(addr, acct)
}

// Accounts calls fn for every stored account in address order.
func (l *Ledger) Accounts(fn func(addr crypto.Address, acct *Account) bool) error {
	var decodeErr error
	err := l.db.Iterate(accountPrefix, func(key, value []byte) bool {
		addr, err := crypto.NewAddress(key[len(accountPrefix):])
		if err != nil {
			decodeErr = err
			return false
		}
		acct, err := decodeAccount(value)
		if err != nil {
			decodeErr = fmt.Errorf("ledger: decode account %s: %w", addr, err)
			return false
		}
		return fn(addr, acct)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

// SetAccountData overwrites the data of an existing account outside of any
// transaction. The length must match the allocated size.
func (l *Ledger) SetAccountData(addr crypto.Address, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, err := l.load(addr)
	if err != nil {
		return err
	}
	if len(acct.Data) != len(data) {
		return fmt.Errorf("ledger: account %s holds %d bytes, got %d", addr, len(acct.Data), len(data))
	}
	acct.Data = append([]byte(nil), data...)
	return l.store(addr, acct)
}
