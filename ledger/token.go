package ledger

import (
	"bytes"
	"fmt"

	"github.com/gagliardetto/solana-go"

	perrors "debtvault/core/errors"
	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/native/token"
)

// CreateMint allocates an initialized token mint controlled by authority.
func (l *Ledger) CreateMint(addr, authority crypto.Address, decimals uint8) error {
	data, err := token.EncodeMint(authority, 0, decimals)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.create(addr, &Account{Owner: token.ProgramID, Data: data})
}

// CreateTokenAccount allocates an initialized token account for mint held
// by owner.
func (l *Ledger) CreateTokenAccount(addr, mint, owner crypto.Address) error {
	data, err := token.EncodeAccount(mint, owner, 0)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.load(mint); err != nil {
		return fmt.Errorf("ledger: mint %s: %w", mint, err)
	}
	return l.create(addr, &Account{Owner: token.ProgramID, Data: data})
}

// MintTokens credits amount to a token account and its mint's supply,
// bypassing the mint authority. It funds test and setup accounts.
func (l *Ledger) MintTokens(addr crypto.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	holder, err := l.load(addr)
	if err != nil {
		return err
	}
	holderInfo := holder.info(addr, false, true)
	tokenAccount, err := token.LoadAccount(holderInfo)
	if err != nil {
		return err
	}
	mintAddr := crypto.AddressFromPublicKey(tokenAccount.Mint)
	mint, err := l.load(mintAddr)
	if err != nil {
		return err
	}
	mintInfo := mint.info(mintAddr, false, true)
	decoded, err := token.LoadMint(mintInfo)
	if err != nil {
		return err
	}
	if decoded.MintAuthority == nil {
		return perrors.Wrap(perrors.ErrOwnerMismatch, "mint %s has a fixed supply", mintAddr)
	}

	// Run the regular MintTo path with the authority marked as signer.
	authority := types.NewAccountInfo(crypto.AddressFromPublicKey(*decoded.MintAuthority), SystemOwner, 0, nil, true, false)
	ix := token.NewMintToInstruction(amount, mintAddr, addr, authority.Key)
	views := []*types.AccountInfo{mintInfo, holderInfo, authority}
	if err := (token.Program{}).Execute(crypto.Address{}, ix, views); err != nil {
		return err
	}

	batch := l.db.NewBatch()
	for _, view := range []*types.AccountInfo{mintInfo, holderInfo} {
		acct := &Account{Lamports: view.Lamports, Owner: view.Owner, Data: view.Read(), Executable: view.Executable}
		raw, err := encodeAccount(acct)
		if err != nil {
			return err
		}
		batch.Put(accountKey(view.Key), raw)
	}
	return batch.Write()
}

// TokenBalance returns the amount held by a token account.
func (l *Ledger) TokenBalance(addr crypto.Address) (uint64, error) {
	info, err := l.AccountInfo(addr)
	if err != nil {
		return 0, err
	}
	acct, err := token.LoadAccount(info)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// MintSupply returns the outstanding supply of a mint.
func (l *Ledger) MintSupply(addr crypto.Address) (uint64, error) {
	info, err := l.AccountInfo(addr)
	if err != nil {
		return 0, err
	}
	mint, err := token.LoadMint(info)
	if err != nil {
		return 0, err
	}
	return mint.Supply, nil
}

// invoker routes cross-program calls from caller to the token program.
type invoker struct {
	ledger *Ledger
	caller crypto.Address
}

// Invoker returns the token invoker for programs deployed under id.
func (l *Ledger) Invoker(id crypto.Address) token.Invoker {
	return &invoker{ledger: l, caller: id}
}

// Invoke runs the token program over accts. Inside a transaction the token
// accounts it is handed must still hold what the token program last wrote;
// the bytes it leaves behind become the new reference for the instruction.
func (i *invoker) Invoke(ix solana.Instruction, accts []*types.AccountInfo, capabilities ...crypto.Capability) error {
	written := i.ledger.tokenWrites
	if written != nil {
		for _, acct := range accts {
			if acct.Owner != token.ProgramID {
				continue
			}
			if want, ok := written[acct.Key]; ok && !bytes.Equal(want, acct.Read()) {
				return fmt.Errorf("%w: %s modified outside the token program", ErrIllegalWrite, acct.Key)
			}
		}
	}
	if err := (token.Program{}).Execute(i.caller, ix, accts, capabilities...); err != nil {
		return err
	}
	if written != nil {
		for _, acct := range accts {
			if acct.Owner == token.ProgramID {
				written[acct.Key] = acct.Read()
			}
		}
	}
	return nil
}
