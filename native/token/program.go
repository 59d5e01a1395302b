package token

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	perrors "debtvault/core/errors"
	"debtvault/core/types"
	"debtvault/crypto"
)

const (
	// MintSize is the packed size of a mint account.
	MintSize = token.MINT_SIZE
	// AccountSize is the packed size of a token account.
	AccountSize = 165
)

// Program is the host side of the token program. It supports the subset of
// instructions the engine issues: Transfer and MintTo.
type Program struct{}

// Execute runs ix over accounts. caller is the program issuing the
// instruction; capabilities are checked against it.
func (Program) Execute(caller crypto.Address, ix solana.Instruction, accounts []*types.AccountInfo, capabilities ...crypto.Capability) error {
	if crypto.AddressFromPublicKey(ix.ProgramID()) != ProgramID {
		return perrors.Wrap(perrors.ErrIncorrectProgramID, "instruction targets %s", ix.ProgramID())
	}
	metas := ix.Accounts()
	data, err := ix.Data()
	if err != nil {
		return perrors.Wrap(perrors.ErrInvalidInstructionData, "%v", err)
	}
	decoded, err := token.DecodeInstruction(metas, data)
	if err != nil {
		return perrors.Wrap(perrors.ErrInvalidInstructionData, "%v", err)
	}

	views := make([]*types.AccountInfo, len(metas))
	for i, meta := range metas {
		view := find(accounts, crypto.AddressFromPublicKey(meta.PublicKey))
		if view == nil {
			return perrors.Wrap(perrors.ErrNotEnoughAccountKeys, "account %s not supplied", meta.PublicKey)
		}
		if meta.IsWritable && !view.IsWritable {
			return perrors.Wrap(perrors.ErrReadonlyAccount, "account %s", view.Key)
		}
		if meta.IsSigner {
			if err := authorize(caller, view, capabilities); err != nil {
				return err
			}
		}
		views[i] = view
	}

	switch impl := decoded.Impl.(type) {
	case *token.Transfer:
		return transfer(views[0], views[1], views[2], *impl.Amount)
	case *token.MintTo:
		return mintTo(views[0], views[1], views[2], *impl.Amount)
	default:
		return perrors.Wrap(perrors.ErrInvalidInstructionData, "unsupported token instruction %d", decoded.TypeID.Uint8())
	}
}

func find(accounts []*types.AccountInfo, key crypto.Address) *types.AccountInfo {
	for _, info := range accounts {
		if info != nil && info.Key == key {
			return info
		}
	}
	return nil
}

func authorize(caller crypto.Address, view *types.AccountInfo, capabilities []crypto.Capability) error {
	if view.IsSigner {
		return nil
	}
	for _, capability := range capabilities {
		derived, err := capability.Address(caller)
		if err != nil {
			return perrors.Wrap(perrors.ErrInvalidSeeds, "capability %s: %v", capability, err)
		}
		if derived == view.Key {
			return nil
		}
	}
	return perrors.Wrap(perrors.ErrMissingRequiredSignature, "account %s", view.Key)
}

func transfer(sourceView, destinationView, authority *types.AccountInfo, amount uint64) error {
	source, err := LoadAccount(sourceView)
	if err != nil {
		return err
	}
	destination, err := LoadAccount(destinationView)
	if err != nil {
		return err
	}
	if source.Mint != destination.Mint {
		return perrors.Wrap(perrors.ErrInvalidAccountData, "mint mismatch between %s and %s", sourceView.Key, destinationView.Key)
	}
	if crypto.AddressFromPublicKey(source.Owner) != authority.Key {
		return perrors.Wrap(perrors.ErrOwnerMismatch, "%s does not own %s", authority.Key, sourceView.Key)
	}
	if source.Amount < amount {
		return perrors.Wrap(perrors.ErrInsufficientFunds, "account %s holds %d, needs %d", sourceView.Key, source.Amount, amount)
	}
	if sourceView.Key == destinationView.Key {
		return nil
	}
	credited := destination.Amount + amount
	if credited < destination.Amount {
		return perrors.Wrap(perrors.ErrOverflow, "account %s", destinationView.Key)
	}
	source.Amount -= amount
	destination.Amount = credited
	if err := store(sourceView, source); err != nil {
		return err
	}
	return store(destinationView, destination)
}

func mintTo(mintView, destinationView, authority *types.AccountInfo, amount uint64) error {
	mint, err := LoadMint(mintView)
	if err != nil {
		return err
	}
	destination, err := LoadAccount(destinationView)
	if err != nil {
		return err
	}
	if crypto.AddressFromPublicKey(destination.Mint) != mintView.Key {
		return perrors.Wrap(perrors.ErrInvalidAccountData, "account %s does not hold mint %s", destinationView.Key, mintView.Key)
	}
	if mint.MintAuthority == nil || crypto.AddressFromPublicKey(*mint.MintAuthority) != authority.Key {
		return perrors.Wrap(perrors.ErrOwnerMismatch, "%s is not the mint authority of %s", authority.Key, mintView.Key)
	}
	supply := mint.Supply + amount
	credited := destination.Amount + amount
	if supply < mint.Supply || credited < destination.Amount {
		return perrors.Wrap(perrors.ErrOverflow, "mint %s", mintView.Key)
	}
	mint.Supply = supply
	destination.Amount = credited
	if err := store(mintView, mint); err != nil {
		return err
	}
	return store(destinationView, destination)
}

// LoadMint decodes an initialized mint.
func LoadMint(view *types.AccountInfo) (*token.Mint, error) {
	if view.Owner != ProgramID {
		return nil, perrors.Wrap(perrors.ErrIncorrectProgramID, "mint %s not owned by the token program", view.Key)
	}
	mint := new(token.Mint)
	if err := mint.UnmarshalWithDecoder(bin.NewBinDecoder(view.Read())); err != nil {
		return nil, perrors.Wrap(perrors.ErrInvalidAccountData, "mint %s: %v", view.Key, err)
	}
	if !mint.IsInitialized {
		return nil, perrors.Wrap(perrors.ErrUninitializedAccount, "mint %s", view.Key)
	}
	return mint, nil
}

// LoadAccount decodes an initialized token account.
func LoadAccount(view *types.AccountInfo) (*token.Account, error) {
	if view.Owner != ProgramID {
		return nil, perrors.Wrap(perrors.ErrIncorrectProgramID, "token account %s not owned by the token program", view.Key)
	}
	account := new(token.Account)
	if err := account.UnmarshalWithDecoder(bin.NewBinDecoder(view.Read())); err != nil {
		return nil, perrors.Wrap(perrors.ErrInvalidAccountData, "token account %s: %v", view.Key, err)
	}
	if account.State != token.Initialized {
		return nil, perrors.Wrap(perrors.ErrUninitializedAccount, "token account %s", view.Key)
	}
	return account, nil
}

// EncodeMint packs a mint authorised by authority.
func EncodeMint(authority crypto.Address, supply uint64, decimals uint8) ([]byte, error) {
	pk := authority.PublicKey()
	return pack(token.Mint{
		MintAuthority: &pk,
		Supply:        supply,
		Decimals:      decimals,
		IsInitialized: true,
	})
}

// EncodeAccount packs an initialized token account.
func EncodeAccount(mint, owner crypto.Address, amount uint64) ([]byte, error) {
	return pack(token.Account{
		Mint:   mint.PublicKey(),
		Owner:  owner.PublicKey(),
		Amount: amount,
		State:  token.Initialized,
	})
}

func pack(v bin.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func store(view *types.AccountInfo, v bin.BinaryMarshaler) error {
	data, err := pack(v)
	if err != nil {
		return perrors.Wrap(perrors.ErrEncodeFailure, "account %s: %v", view.Key, err)
	}
	return view.Write(data)
}
