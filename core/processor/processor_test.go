package processor

import (
	"errors"
	"math"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/events"
	"debtvault/core/instruction"
	"debtvault/core/state"
	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/native/debt"
	"debtvault/native/faucet"
	"debtvault/native/token"
	"debtvault/observability"
)

var programID = testAddress(0xCC)

type hostInvoker struct{}

func (hostInvoker) Invoke(ix solana.Instruction, accts []*types.AccountInfo, capabilities ...crypto.Capability) error {
	return token.Program{}.Execute(programID, ix, accts, capabilities...)
}

func testAddress(fill byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newProcessor(opts Options) *Processor {
	return New(programID, hostInvoker{}, opts)
}

func encode(t *testing.T, ix instruction.Instruction) []byte {
	t.Helper()
	data, err := instruction.Encode(ix)
	require.NoError(t, err)
	return data
}

func sysvarAccount(t *testing.T, id crypto.Address, v bin.BinaryMarshaler) *types.AccountInfo {
	t.Helper()
	data, err := types.EncodeSysvar(v)
	require.NoError(t, err)
	return types.NewAccountInfo(id, crypto.Address{}, 1, data, false, false)
}

func rentAccount(t *testing.T) *types.AccountInfo {
	return sysvarAccount(t, types.RentSysvarID, types.DefaultRent())
}

func programSlot(key crypto.Address, size int) *types.AccountInfo {
	return types.NewAccountInfo(key, programID, types.DefaultRent().MinimumBalance(size), make([]byte, size), false, true)
}

func readonly(info *types.AccountInfo) *types.AccountInfo {
	clone := info.Clone()
	clone.IsWritable = false
	return clone
}

func tokenProgram() *types.AccountInfo {
	return types.NewAccountInfo(token.ProgramID, crypto.Address{}, 1, nil, false, false)
}

func mintAccount(t *testing.T, key, authority crypto.Address) *types.AccountInfo {
	t.Helper()
	data, err := token.EncodeMint(authority, 0, 6)
	require.NoError(t, err)
	return types.NewAccountInfo(key, token.ProgramID, 1, data, false, true)
}

func tokenAccount(t *testing.T, key, mint, owner crypto.Address, amount uint64) *types.AccountInfo {
	t.Helper()
	data, err := token.EncodeAccount(mint, owner, amount)
	require.NoError(t, err)
	return types.NewAccountInfo(key, token.ProgramID, 1, data, false, true)
}

func tokenBalance(t *testing.T, info *types.AccountInfo) uint64 {
	t.Helper()
	acct, err := token.LoadAccount(info)
	require.NoError(t, err)
	return acct.Amount
}

// protocol wires a complete debt protocol deployment through the processor.
type protocol struct {
	debtType, vaultType, vault       *types.AccountInfo
	debtMint, debtMinter, receiver   *types.AccountInfo
	collateralFrom, collateralHolder *types.AccountInfo
	owner, oracle                    crypto.Address
	minterNonce, holderNonce         uint8
}

func setupProtocol(t *testing.T, p *Processor) *protocol {
	t.Helper()
	pr := &protocol{owner: testAddress(0x07), oracle: testAddress(0x05)}
	pr.debtType = programSlot(testAddress(0x03), debt.DebtTypeSize)
	pr.vaultType = programSlot(testAddress(0x04), debt.VaultTypeSize)
	pr.vault = programSlot(testAddress(0x09), debt.VaultSize)

	minter, minterNonce, err := crypto.FindAuthority(programID, pr.debtType.Key, crypto.RoleMinter)
	require.NoError(t, err)
	holderAuthority, holderNonce, err := crypto.FindAuthority(programID, pr.vaultType.Key, crypto.RoleHolder)
	require.NoError(t, err)
	pr.minterNonce, pr.holderNonce = minterNonce, holderNonce

	pr.debtMint = mintAccount(t, testAddress(0x01), minter)
	pr.debtMinter = types.NewAccountInfo(minter, crypto.Address{}, 0, nil, false, true)
	pr.receiver = tokenAccount(t, testAddress(0x0A), pr.debtMint.Key, pr.owner, 0)
	collateralMint := testAddress(0x08)
	pr.collateralFrom = tokenAccount(t, testAddress(0x0B), collateralMint, pr.owner, 1_000)
	pr.collateralHolder = tokenAccount(t, testAddress(0x06), collateralMint, holderAuthority, 0)

	require.NoError(t, p.Process(accounts.Accounts{rentAccount(t), pr.debtType},
		encode(t, &instruction.InitDebtType{DebtToken: pr.debtMint.Key, Owner: testAddress(0x02)}), nil))
	require.NoError(t, p.Process(accounts.Accounts{rentAccount(t), pr.vaultType},
		encode(t, &instruction.InitVaultType{
			DebtType:              pr.debtType.Key,
			CollateralToken:       collateralMint,
			CollateralTokenHolder: pr.collateralHolder.Key,
			PriceOracle:           pr.oracle,
		}), nil))
	require.NoError(t, p.Process(accounts.Accounts{rentAccount(t), pr.vault},
		encode(t, &instruction.InitVault{VaultType: pr.vaultType.Key, Owner: pr.owner}), nil))
	return pr
}

func (pr *protocol) stakeAccounts() accounts.Accounts {
	return accounts.Accounts{
		tokenProgram(),
		pr.collateralFrom,
		types.NewAccountInfo(pr.owner, crypto.Address{}, 0, nil, true, false),
		pr.collateralHolder,
		readonly(pr.vaultType),
		pr.vault,
	}
}

func (pr *protocol) borrowAccounts() accounts.Accounts {
	return accounts.Accounts{
		tokenProgram(),
		pr.debtMint,
		pr.debtMinter,
		pr.receiver,
		readonly(pr.debtType),
		readonly(pr.vaultType),
		pr.vault,
		types.NewAccountInfo(pr.owner, crypto.Address{}, 0, nil, true, false),
		types.NewAccountInfo(pr.oracle, crypto.Address{}, 0, nil, false, false),
	}
}

func loadVault(t *testing.T, slot *types.AccountInfo) *debt.Vault {
	t.Helper()
	vault, err := state.LoadInitialized[debt.Vault](slot)
	require.NoError(t, err)
	return vault
}

func TestBorrowHappyPath(t *testing.T) {
	p := newProcessor(VaultOptions())
	pr := setupProtocol(t, p)

	rec := &events.Recorder{}
	require.NoError(t, p.Process(pr.stakeAccounts(), encode(t, &instruction.Stake{Amount: 100, CollateralHolderNonce: pr.holderNonce}), rec))
	require.Equal(t, uint64(100), tokenBalance(t, pr.collateralHolder))
	require.Equal(t, uint64(900), tokenBalance(t, pr.collateralFrom))

	require.NoError(t, p.Process(pr.borrowAccounts(), encode(t, &instruction.Borrow{Amount: 10, DebtMinterNonce: pr.minterNonce}), rec))

	vault := loadVault(t, pr.vault)
	require.Equal(t, uint64(10), vault.DebtAmount)
	require.Equal(t, uint64(100), vault.CollateralAmount)
	require.Equal(t, uint64(10), tokenBalance(t, pr.receiver))

	got := rec.Events()
	require.Len(t, got, 2)
	require.Equal(t, events.TypeCollateralStaked, got[0].Type)
	require.Equal(t, events.TypeDebtBorrowed, got[1].Type)
}

func TestDripHappyPath(t *testing.T) {
	p := newProcessor(FaucetOptions())
	faucetSlot := programSlot(testAddress(0x11), faucet.FaucetSize)
	minter, nonce, err := crypto.FindAuthority(programID, faucetSlot.Key, crypto.RoleMinter)
	require.NoError(t, err)
	mint := mintAccount(t, testAddress(0x12), minter)
	receiver := tokenAccount(t, testAddress(0x13), mint.Key, testAddress(0x14), 0)

	require.NoError(t, p.Process(accounts.Accounts{rentAccount(t), faucetSlot, readonly(mint)},
		encode(t, &instruction.InitFaucet{Config: faucet.Config{Amount: 50}}), nil))

	accts := accounts.Accounts{
		tokenProgram(),
		sysvarAccount(t, types.ClockSysvarID, types.Clock{Slot: 77}),
		faucetSlot,
		mint,
		types.NewAccountInfo(minter, crypto.Address{}, 0, nil, false, true),
		receiver,
	}
	require.NoError(t, p.Process(accts, encode(t, &instruction.Drip{FaucetTokenMinterNonce: nonce}), nil))

	f, err := state.LoadInitialized[faucet.Faucet](faucetSlot)
	require.NoError(t, err)
	require.Equal(t, uint64(50), f.AmountSupplied)
	require.Equal(t, uint64(77), f.UpdatedAt)
	require.Equal(t, mint.Key, f.Token)
	require.Equal(t, uint64(50), tokenBalance(t, receiver))
}

func TestInitTwiceRejected(t *testing.T) {
	p := newProcessor(VaultOptions())
	pr := setupProtocol(t, p)

	for _, tc := range []struct {
		slot *types.AccountInfo
		ix   instruction.Instruction
	}{
		{pr.debtType, &instruction.InitDebtType{DebtToken: testAddress(0x20), Owner: testAddress(0x21)}},
		{pr.vaultType, &instruction.InitVaultType{DebtType: testAddress(0x22)}},
		{pr.vault, &instruction.InitVault{VaultType: testAddress(0x23), Owner: testAddress(0x24)}},
	} {
		before := tc.slot.Read()
		err := p.Process(accounts.Accounts{rentAccount(t), tc.slot}, encode(t, tc.ix), nil)
		require.True(t, errors.Is(err, perrors.ErrAccountAlreadyInitialized), instruction.Name(tc.ix))
		require.Equal(t, before, tc.slot.Read())
	}
}

func TestStakeOverflowThroughProcessor(t *testing.T) {
	p := newProcessor(VaultOptions())
	pr := setupProtocol(t, p)

	full, err := state.Encode(&debt.Vault{Initialized: true, VaultType: pr.vaultType.Key, Owner: pr.owner, CollateralAmount: math.MaxUint64})
	require.NoError(t, err)
	require.NoError(t, pr.vault.Write(full))

	err = p.Process(pr.stakeAccounts(), encode(t, &instruction.Stake{Amount: 1}), nil)
	require.True(t, errors.Is(err, perrors.ErrOverflow))
	require.Equal(t, uint64(math.MaxUint64), loadVault(t, pr.vault).CollateralAmount)
	require.Equal(t, uint64(1_000), tokenBalance(t, pr.collateralFrom))
}

func TestUnsupportedAndForeignVariants(t *testing.T) {
	vault := newProcessor(VaultOptions())
	for _, ix := range []instruction.Instruction{&instruction.Unstake{Amount: 1}, &instruction.Repay{Amount: 1}} {
		err := vault.Process(nil, encode(t, ix), nil)
		require.True(t, errors.Is(err, perrors.ErrInvalidInstructionData), instruction.Name(ix))
	}

	// Faucet tags are not vault tags: Drip's bytes read as a truncated
	// InitVaultType on the debt program.
	err := vault.Process(nil, encode(t, &instruction.Drip{FaucetTokenMinterNonce: 3}), nil)
	require.True(t, errors.Is(err, perrors.ErrInvalidInstructionData))

	faucetProgram := newProcessor(FaucetOptions())
	err = faucetProgram.Process(nil, encode(t, &instruction.InitDebtType{}), nil)
	require.True(t, errors.Is(err, perrors.ErrInvalidInstructionData))
	err = faucetProgram.Process(nil, []byte{2}, nil)
	require.True(t, errors.Is(err, perrors.ErrInvalidInstructionData))

	// Variants of the configured set reach the account resolver.
	err = faucetProgram.Process(nil, encode(t, &instruction.Drip{}), nil)
	require.True(t, errors.Is(err, perrors.ErrNotEnoughAccountKeys))
	err = vault.Process(nil, encode(t, &instruction.InitDebtType{}), nil)
	require.True(t, errors.Is(err, perrors.ErrNotEnoughAccountKeys))
}

// instructionCount reads the processed instruction counter from the default
// registry.
func instructionCount(t *testing.T, name, outcome string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "debtvault_processor_instructions_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["instruction"] == name && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestDecodeFailureRecordsInvalidLabel(t *testing.T) {
	p := newProcessor(FaucetOptions())
	before := instructionCount(t, observability.InvalidInstruction, "InvalidInstructionData")
	require.Error(t, p.Process(nil, []byte{9}, nil))
	require.Error(t, p.Process(nil, nil, nil))
	require.Equal(t, before+2, instructionCount(t, observability.InvalidInstruction, "InvalidInstructionData"))
	require.Zero(t, instructionCount(t, "", "InvalidInstructionData"))
}

func TestDecodeFailureTouchesNothing(t *testing.T) {
	p := newProcessor(VaultOptions())
	slot := programSlot(testAddress(0x31), debt.DebtTypeSize)
	data := encode(t, &instruction.InitDebtType{DebtToken: testAddress(1), Owner: testAddress(2)})

	for _, bad := range [][]byte{nil, {42}, data[:len(data)-1], append(append([]byte(nil), data...), 1)} {
		err := p.Process(accounts.Accounts{rentAccount(t), slot}, bad, nil)
		require.True(t, errors.Is(err, perrors.ErrInvalidInstructionData))
		require.Equal(t, make([]byte, debt.DebtTypeSize), slot.Read())
	}
}

func TestBorrowWithForeignMinterFails(t *testing.T) {
	p := newProcessor(VaultOptions())
	pr := setupProtocol(t, p)

	accts := pr.borrowAccounts()
	other, _, err := crypto.FindAuthority(programID, pr.vaultType.Key, crypto.RoleMinter)
	require.NoError(t, err)
	accts[2] = types.NewAccountInfo(other, crypto.Address{}, 0, nil, false, true)

	err = p.Process(accts, encode(t, &instruction.Borrow{Amount: 10, DebtMinterNonce: pr.minterNonce}), nil)
	require.Error(t, err)
	require.Zero(t, loadVault(t, pr.vault).DebtAmount)
	require.Zero(t, tokenBalance(t, pr.receiver))
}
