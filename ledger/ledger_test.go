package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/events"
	"debtvault/core/instruction"
	"debtvault/core/processor"
	"debtvault/core/state"
	"debtvault/crypto"
	"debtvault/native/debt"
	"debtvault/native/faucet"
	"debtvault/native/token"
	"debtvault/storage"
)

func mustKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func newAddress(t *testing.T) crypto.Address {
	return mustKey(t).Address()
}

type fixture struct {
	ledger    *Ledger
	programID crypto.Address
	faucetID  crypto.Address
	payer     *crypto.PrivateKey
}

func newFixture(t *testing.T, db storage.Database) *fixture {
	t.Helper()
	l, err := New(db)
	require.NoError(t, err)
	f := &fixture{ledger: l, programID: newAddress(t), faucetID: newAddress(t), payer: mustKey(t)}
	require.NoError(t, l.Register(f.programID, processor.New(f.programID, l.Invoker(f.programID), processor.VaultOptions())))
	require.NoError(t, l.Register(f.faucetID, processor.New(f.faucetID, l.Invoker(f.faucetID), processor.FaucetOptions())))
	return f
}

func (f *fixture) tx(t *testing.T, signers []*crypto.PrivateKey, ixs ...solana.Instruction) *solana.Transaction {
	t.Helper()
	hash, err := f.ledger.Blockhash()
	require.NoError(t, err)
	tx, err := solana.NewTransaction(ixs, hash, solana.TransactionPayer(f.payer.Address().PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(crypto.KeyGetter(append([]*crypto.PrivateKey{f.payer}, signers...)...))
	require.NoError(t, err)
	return tx
}

func (f *fixture) execute(t *testing.T, signers []*crypto.PrivateKey, ixs ...solana.Instruction) *Receipt {
	t.Helper()
	receipt, err := f.ledger.Execute(context.Background(), f.tx(t, signers, ixs...))
	require.NoError(t, err)
	return receipt
}

func (f *fixture) slot(t *testing.T, owner crypto.Address, size int) crypto.Address {
	t.Helper()
	addr := newAddress(t)
	require.NoError(t, f.ledger.CreateAccount(addr, owner, size, 0))
	return addr
}

type deployment struct {
	owner                      *crypto.PrivateKey
	debtType, vaultType, vault crypto.Address
	debtMint, debtMinter       crypto.Address
	receiver, collateralFrom   crypto.Address
	collateralHolder, oracle   crypto.Address
	minterNonce, holderNonce   uint8
}

func (f *fixture) deploy(t *testing.T) *deployment {
	t.Helper()
	d := &deployment{owner: mustKey(t), oracle: newAddress(t)}
	d.debtType = f.slot(t, f.programID, debt.DebtTypeSize)
	d.vaultType = f.slot(t, f.programID, debt.VaultTypeSize)
	d.vault = f.slot(t, f.programID, debt.VaultSize)

	var err error
	d.debtMinter, d.minterNonce, err = crypto.FindAuthority(f.programID, d.debtType, crypto.RoleMinter)
	require.NoError(t, err)
	holderAuthority, holderNonce, err := crypto.FindAuthority(f.programID, d.vaultType, crypto.RoleHolder)
	require.NoError(t, err)
	d.holderNonce = holderNonce

	d.debtMint = newAddress(t)
	require.NoError(t, f.ledger.CreateMint(d.debtMint, d.debtMinter, 6))
	d.receiver = newAddress(t)
	require.NoError(t, f.ledger.CreateTokenAccount(d.receiver, d.debtMint, d.owner.Address()))

	collateralMint := newAddress(t)
	require.NoError(t, f.ledger.CreateMint(collateralMint, f.payer.Address(), 6))
	d.collateralFrom = newAddress(t)
	require.NoError(t, f.ledger.CreateTokenAccount(d.collateralFrom, collateralMint, d.owner.Address()))
	require.NoError(t, f.ledger.MintTokens(d.collateralFrom, 1_000))
	d.collateralHolder = newAddress(t)
	require.NoError(t, f.ledger.CreateTokenAccount(d.collateralHolder, collateralMint, holderAuthority))

	initDebt, err := instruction.NewInitDebtType(f.programID, d.debtType, d.debtMint, f.payer.Address())
	require.NoError(t, err)
	initVaultType, err := instruction.NewInitVaultType(f.programID, d.vaultType, instruction.InitVaultType{
		DebtType:              d.debtType,
		CollateralToken:       collateralMint,
		CollateralTokenHolder: d.collateralHolder,
		PriceOracle:           d.oracle,
	})
	require.NoError(t, err)
	initVault, err := instruction.NewInitVault(f.programID, d.vault, d.vaultType, d.owner.Address())
	require.NoError(t, err)

	receipt := f.execute(t, nil, initDebt, initVaultType, initVault)
	require.True(t, receipt.Succeeded(), "%v", receipt.Err)
	require.Len(t, receipt.Events, 3)
	return d
}

func (d *deployment) stake(t *testing.T, programID crypto.Address, amount uint64) solana.Instruction {
	t.Helper()
	ix, err := instruction.NewStake(programID, amount, d.holderNonce, instruction.StakeAccounts{
		CollateralFrom:   d.collateralFrom,
		Owner:            d.owner.Address(),
		CollateralHolder: d.collateralHolder,
		VaultType:        d.vaultType,
		Vault:            d.vault,
	})
	require.NoError(t, err)
	return ix
}

func (d *deployment) borrow(t *testing.T, programID crypto.Address, amount uint64) solana.Instruction {
	t.Helper()
	ix, err := instruction.NewBorrow(programID, amount, d.minterNonce, instruction.BorrowAccounts{
		DebtToken:   d.debtMint,
		DebtMinter:  d.debtMinter,
		Receiver:    d.receiver,
		DebtType:    d.debtType,
		VaultType:   d.vaultType,
		Vault:       d.vault,
		Owner:       d.owner.Address(),
		PriceOracle: d.oracle,
	})
	require.NoError(t, err)
	return ix
}

func loadVault(t *testing.T, l *Ledger, addr crypto.Address) *debt.Vault {
	t.Helper()
	info, err := l.AccountInfo(addr)
	require.NoError(t, err)
	vault, err := state.LoadInitialized[debt.Vault](info)
	require.NoError(t, err)
	return vault
}

func TestNewWritesSysvars(t *testing.T) {
	l, err := New(storage.NewMemDB())
	require.NoError(t, err)
	clock, err := l.Clock()
	require.NoError(t, err)
	require.Zero(t, clock.Slot)

	slot, err := l.AdvanceSlot()
	require.NoError(t, err)
	require.Equal(t, uint64(1), slot)
}

func TestCreateAccountFundsRentMinimum(t *testing.T) {
	l, err := New(storage.NewMemDB())
	require.NoError(t, err)
	addr := newAddress(t)
	require.NoError(t, l.CreateAccount(addr, SystemOwner, debt.VaultSize, 0))

	acct, err := l.Account(addr)
	require.NoError(t, err)
	require.Equal(t, l.Rent().MinimumBalance(debt.VaultSize), acct.Lamports)
	require.Len(t, acct.Data, debt.VaultSize)

	err = l.CreateAccount(addr, SystemOwner, 1, 0)
	require.True(t, errors.Is(err, ErrAccountExists))
}

func TestStakeAndBorrowThroughTransactions(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	d := f.deploy(t)

	receipt := f.execute(t, []*crypto.PrivateKey{d.owner}, d.stake(t, f.programID, 400), d.borrow(t, f.programID, 25))
	require.True(t, receipt.Succeeded(), "%v", receipt.Err)
	require.Len(t, receipt.Events, 2)
	require.Equal(t, events.TypeCollateralStaked, receipt.Events[0].Type)
	require.Equal(t, events.TypeDebtBorrowed, receipt.Events[1].Type)

	vault := loadVault(t, f.ledger, d.vault)
	require.Equal(t, uint64(400), vault.CollateralAmount)
	require.Equal(t, uint64(25), vault.DebtAmount)

	balance, err := f.ledger.TokenBalance(d.receiver)
	require.NoError(t, err)
	require.Equal(t, uint64(25), balance)
	balance, err = f.ledger.TokenBalance(d.collateralHolder)
	require.NoError(t, err)
	require.Equal(t, uint64(400), balance)
	supply, err := f.ledger.MintSupply(d.debtMint)
	require.NoError(t, err)
	require.Equal(t, uint64(25), supply)
}

func TestFailedInstructionRollsBackWholeTransaction(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	d := f.deploy(t)

	// The stake succeeds on its own; the borrow names the wrong minter nonce.
	bad, err := instruction.NewBorrow(f.programID, 5, d.minterNonce+1, instruction.BorrowAccounts{
		DebtToken: d.debtMint, DebtMinter: d.debtMinter, Receiver: d.receiver,
		DebtType: d.debtType, VaultType: d.vaultType, Vault: d.vault,
		Owner: d.owner.Address(), PriceOracle: d.oracle,
	})
	require.NoError(t, err)

	receipt := f.execute(t, []*crypto.PrivateKey{d.owner}, d.stake(t, f.programID, 100), bad)
	require.False(t, receipt.Succeeded())
	require.NotEqual(t, perrors.CodeUnknownError, receipt.Code)
	require.Empty(t, receipt.Events)

	vault := loadVault(t, f.ledger, d.vault)
	require.Zero(t, vault.CollateralAmount)
	balance, err := f.ledger.TokenBalance(d.collateralFrom)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), balance)
}

func TestBorrowWithoutOwnerSignatureFails(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	d := f.deploy(t)

	ix := d.borrow(t, f.programID, 1)
	generic := ix.(*solana.GenericInstruction)
	// Drop the owner's signer flag so the transaction no longer needs it.
	generic.AccountValues[7] = solana.Meta(d.owner.Address().PublicKey())

	receipt := f.execute(t, nil, generic)
	require.Equal(t, perrors.CodeMissingRequiredSignature, receipt.Code)
}

func TestExecuteRejectsBadSignatures(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	d := f.deploy(t)

	tx := f.tx(t, []*crypto.PrivateKey{d.owner}, d.stake(t, f.programID, 1))
	tx.Signatures[1][0] ^= 0xFF
	_, err := f.ledger.Execute(context.Background(), tx)
	require.True(t, errors.Is(err, ErrInvalidTx))

	_, err = f.ledger.Execute(context.Background(), &solana.Transaction{})
	require.True(t, errors.Is(err, ErrInvalidTx))
}

func TestExecuteRejectsReplayAndStaleBlockhash(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	d := f.deploy(t)

	tx := f.tx(t, []*crypto.PrivateKey{d.owner}, d.stake(t, f.programID, 1))
	receipt, err := f.ledger.Execute(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	_, err = f.ledger.Execute(context.Background(), tx)
	require.True(t, errors.Is(err, ErrAlreadyProcessed))

	stale := f.tx(t, []*crypto.PrivateKey{d.owner}, d.stake(t, f.programID, 2))
	clock, err := f.ledger.Clock()
	require.NoError(t, err)
	require.NoError(t, f.ledger.SetSlot(clock.Slot+BlockhashWindow+1))
	_, err = f.ledger.Execute(context.Background(), stale)
	require.True(t, errors.Is(err, ErrBlockhashExpired))
}

func TestUnknownProgram(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	ix, err := instruction.Build(newAddress(t), &instruction.Drip{})
	require.NoError(t, err)
	receipt := f.execute(t, nil, ix)
	require.True(t, errors.Is(receipt.Err, ErrUnknownProgram))
}

// scribbler flips a byte in every writable account it is handed.
type scribbler struct{}

func (scribbler) Process(accts accounts.Accounts, _ []byte, _ events.Emitter) error {
	for _, info := range accts {
		if !info.IsWritable || info.Len() == 0 {
			continue
		}
		data := info.Read()
		data[0] ^= 1
		if err := info.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func TestWriteToForeignAccountRejected(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	scribblerID := newAddress(t)
	require.NoError(t, f.ledger.Register(scribblerID, scribbler{}))

	victim := newAddress(t)
	require.NoError(t, f.ledger.CreateAccount(victim, SystemOwner, 8, 0))
	own := newAddress(t)
	require.NoError(t, f.ledger.CreateAccount(own, scribblerID, 8, 0))

	ok := solana.NewInstruction(scribblerID.PublicKey(), solana.AccountMetaSlice{solana.Meta(own.PublicKey()).WRITE()}, nil)
	require.True(t, f.execute(t, nil, ok).Succeeded())
	acct, err := f.ledger.Account(own)
	require.NoError(t, err)
	require.Equal(t, byte(1), acct.Data[0])

	bad := solana.NewInstruction(scribblerID.PublicKey(), solana.AccountMetaSlice{solana.Meta(victim.PublicKey()).WRITE()}, nil)
	receipt := f.execute(t, nil, bad)
	require.True(t, errors.Is(receipt.Err, ErrIllegalWrite))
	acct, err = f.ledger.Account(victim)
	require.NoError(t, err)
	require.Equal(t, make([]byte, 8), acct.Data)
}

// tokenForger rewrites the balance of every writable token account it is
// handed, then moves transfer units from the second account to the third
// through the token program.
type tokenForger struct {
	tokens   *token.Client
	inflate  bool
	transfer uint64
}

func (p tokenForger) Process(accts accounts.Accounts, _ []byte, _ events.Emitter) error {
	if p.inflate {
		for _, info := range accts {
			if !info.IsWritable || info.Owner != token.ProgramID {
				continue
			}
			acct, err := token.LoadAccount(info)
			if err != nil {
				return err
			}
			forged, err := token.EncodeAccount(crypto.AddressFromPublicKey(acct.Mint), crypto.AddressFromPublicKey(acct.Owner), 1_000_000)
			if err != nil {
				return err
			}
			if err := info.Write(forged); err != nil {
				return err
			}
		}
	}
	if p.transfer == 0 {
		return nil
	}
	return p.tokens.Transfer(accts[0], accts[1], accts[2], accts[3], p.transfer)
}

func TestTokenWritesOutsideTokenProgramRejected(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	holder := mustKey(t)
	mint := newAddress(t)
	require.NoError(t, f.ledger.CreateMint(mint, f.payer.Address(), 0))
	source, destination := newAddress(t), newAddress(t)
	require.NoError(t, f.ledger.CreateTokenAccount(source, mint, holder.Address()))
	require.NoError(t, f.ledger.CreateTokenAccount(destination, mint, newAddress(t)))
	require.NoError(t, f.ledger.MintTokens(source, 10))

	register := func(p tokenForger) crypto.Address {
		id := newAddress(t)
		p.tokens = token.NewClient(f.ledger.Invoker(id))
		require.NoError(t, f.ledger.Register(id, p))
		return id
	}
	call := func(id crypto.Address) solana.Instruction {
		return solana.NewInstruction(id.PublicKey(), solana.AccountMetaSlice{
			solana.Meta(token.ProgramID.PublicKey()),
			solana.Meta(source.PublicKey()).WRITE(),
			solana.Meta(destination.PublicKey()).WRITE(),
			solana.Meta(holder.Address().PublicKey()).SIGNER(),
		}, nil)
	}
	balances := func() (uint64, uint64) {
		t.Helper()
		src, err := f.ledger.TokenBalance(source)
		require.NoError(t, err)
		dst, err := f.ledger.TokenBalance(destination)
		require.NoError(t, err)
		return src, dst
	}

	tests := []struct {
		name   string
		forger tokenForger
	}{
		{"direct write", tokenForger{inflate: true}},
		{"write then transfer", tokenForger{inflate: true, transfer: 500_000}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			receipt := f.execute(t, []*crypto.PrivateKey{holder}, call(register(tc.forger)))
			require.True(t, errors.Is(receipt.Err, ErrIllegalWrite), "%v", receipt.Err)
			src, dst := balances()
			require.Equal(t, uint64(10), src)
			require.Zero(t, dst)
		})
	}

	receipt := f.execute(t, []*crypto.PrivateKey{holder}, call(register(tokenForger{transfer: 4})))
	require.True(t, receipt.Succeeded(), "%v", receipt.Err)
	src, dst := balances()
	require.Equal(t, uint64(6), src)
	require.Equal(t, uint64(4), dst)
}

func TestDripThroughTransactions(t *testing.T) {
	f := newFixture(t, storage.NewMemDB())
	faucetAddr := f.slot(t, f.faucetID, faucet.FaucetSize)
	minter, nonce, err := crypto.FindAuthority(f.faucetID, faucetAddr, crypto.RoleMinter)
	require.NoError(t, err)
	mint := newAddress(t)
	require.NoError(t, f.ledger.CreateMint(mint, minter, 0))
	receiver := newAddress(t)
	require.NoError(t, f.ledger.CreateTokenAccount(receiver, mint, newAddress(t)))

	initIx, err := instruction.NewInitFaucet(f.faucetID, faucetAddr, mint, 30)
	require.NoError(t, err)
	require.True(t, f.execute(t, nil, initIx).Succeeded())

	require.NoError(t, f.ledger.SetSlot(12))
	drip, err := instruction.NewDrip(f.faucetID, nonce, instruction.DripAccounts{
		Faucet: faucetAddr, FaucetToken: mint, FaucetMinter: minter, Receiver: receiver,
	})
	require.NoError(t, err)
	receipt := f.execute(t, nil, drip)
	require.True(t, receipt.Succeeded(), "%v", receipt.Err)
	require.Equal(t, uint64(12), receipt.Slot)

	info, err := f.ledger.AccountInfo(faucetAddr)
	require.NoError(t, err)
	got, err := state.LoadInitialized[faucet.Faucet](info)
	require.NoError(t, err)
	require.Equal(t, uint64(30), got.AmountSupplied)
	require.Equal(t, uint64(12), got.UpdatedAt)

	balance, err := f.ledger.TokenBalance(receiver)
	require.NoError(t, err)
	require.Equal(t, uint64(30), balance)

	// The debt program does not speak the faucet instruction set.
	misrouted, err := instruction.NewDrip(f.programID, nonce, instruction.DripAccounts{
		Faucet: faucetAddr, FaucetToken: mint, FaucetMinter: minter, Receiver: receiver,
	})
	require.NoError(t, err)
	receipt = f.execute(t, nil, misrouted)
	require.Equal(t, perrors.CodeInvalidInstructionData, receipt.Code)
}

func TestAdvanceSlotIsAtomic(t *testing.T) {
	l, err := New(storage.NewMemDB())
	require.NoError(t, err)

	const workers, rounds = 8, 25
	seen := make(chan uint64, workers*rounds)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				slot, err := l.AdvanceSlot()
				if err != nil {
					t.Error(err)
					return
				}
				seen <- slot
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]bool)
	for slot := range seen {
		require.False(t, unique[slot], "slot %d issued twice", slot)
		unique[slot] = true
	}
	require.Len(t, unique, workers*rounds)
	clock, err := l.Clock()
	require.NoError(t, err)
	require.Equal(t, uint64(workers*rounds), clock.Slot)
}

func TestLedgerPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	db, err := storage.NewLevelDB(path)
	require.NoError(t, err)
	f := newFixture(t, db)
	d := f.deploy(t)
	require.True(t, f.execute(t, []*crypto.PrivateKey{d.owner}, d.stake(t, f.programID, 70)).Succeeded())
	require.NoError(t, f.ledger.SetSlot(9))
	db.Close()

	db, err = storage.NewLevelDB(path)
	require.NoError(t, err)
	defer db.Close()
	reopened, err := New(db)
	require.NoError(t, err)

	require.Equal(t, uint64(70), loadVault(t, reopened, d.vault).CollateralAmount)
	clock, err := reopened.Clock()
	require.NoError(t, err)
	require.Equal(t, uint64(9), clock.Slot)

	count := 0
	require.NoError(t, reopened.Accounts(func(crypto.Address, *Account) bool {
		count++
		return true
	}))
	require.Greater(t, count, 5)
}
