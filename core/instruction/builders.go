package instruction

import (
	"github.com/gagliardetto/solana-go"

	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/native/faucet"
	"debtvault/native/token"
)

// StakeAccounts lists the accounts a Stake call reads, in call order.
type StakeAccounts struct {
	CollateralFrom   crypto.Address
	Owner            crypto.Address
	CollateralHolder crypto.Address
	VaultType        crypto.Address
	Vault            crypto.Address
}

// BorrowAccounts lists the accounts a Borrow call reads, in call order.
type BorrowAccounts struct {
	DebtToken   crypto.Address
	DebtMinter  crypto.Address
	Receiver    crypto.Address
	DebtType    crypto.Address
	VaultType   crypto.Address
	Vault       crypto.Address
	Owner       crypto.Address
	PriceOracle crypto.Address
}

// DripAccounts lists the accounts a Drip call reads, in call order.
type DripAccounts struct {
	Faucet       crypto.Address
	FaucetToken  crypto.Address
	FaucetMinter crypto.Address
	Receiver     crypto.Address
}

func writable(addr crypto.Address) *solana.AccountMeta {
	return solana.Meta(addr.PublicKey()).WRITE()
}

func readonly(addr crypto.Address) *solana.AccountMeta {
	return solana.Meta(addr.PublicKey())
}

func signer(addr crypto.Address) *solana.AccountMeta {
	return solana.Meta(addr.PublicKey()).SIGNER()
}

func NewInitDebtType(programID, slot, debtToken, owner crypto.Address) (*solana.GenericInstruction, error) {
	return Build(programID, &InitDebtType{DebtToken: debtToken, Owner: owner},
		readonly(types.RentSysvarID), writable(slot))
}

func NewInitVaultType(programID, slot crypto.Address, params InitVaultType) (*solana.GenericInstruction, error) {
	return Build(programID, &params, readonly(types.RentSysvarID), writable(slot))
}

func NewInitVault(programID, slot, vaultType, owner crypto.Address) (*solana.GenericInstruction, error) {
	return Build(programID, &InitVault{VaultType: vaultType, Owner: owner},
		readonly(types.RentSysvarID), writable(slot))
}

func NewStake(programID crypto.Address, amount uint64, holderNonce uint8, accts StakeAccounts) (*solana.GenericInstruction, error) {
	return Build(programID, &Stake{Amount: amount, CollateralHolderNonce: holderNonce},
		readonly(token.ProgramID),
		writable(accts.CollateralFrom),
		signer(accts.Owner),
		writable(accts.CollateralHolder),
		readonly(accts.VaultType),
		writable(accts.Vault),
	)
}

func NewBorrow(programID crypto.Address, amount uint64, minterNonce uint8, accts BorrowAccounts) (*solana.GenericInstruction, error) {
	return Build(programID, &Borrow{Amount: amount, DebtMinterNonce: minterNonce},
		readonly(token.ProgramID),
		writable(accts.DebtToken),
		writable(accts.DebtMinter),
		writable(accts.Receiver),
		readonly(accts.DebtType),
		readonly(accts.VaultType),
		writable(accts.Vault),
		signer(accts.Owner),
		readonly(accts.PriceOracle),
	)
}

func NewInitFaucet(programID, slot, faucetToken crypto.Address, amount uint64) (*solana.GenericInstruction, error) {
	return Build(programID, &InitFaucet{Config: faucet.Config{Amount: amount}},
		readonly(types.RentSysvarID), writable(slot), readonly(faucetToken))
}

func NewDrip(programID crypto.Address, minterNonce uint8, accts DripAccounts) (*solana.GenericInstruction, error) {
	return Build(programID, &Drip{FaucetTokenMinterNonce: minterNonce},
		readonly(token.ProgramID),
		readonly(types.ClockSysvarID),
		writable(accts.Faucet),
		writable(accts.FaucetToken),
		writable(accts.FaucetMinter),
		writable(accts.Receiver),
	)
}
