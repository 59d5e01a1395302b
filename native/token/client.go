// Package token is the boundary to the fungible token program. The engine
// side builds SPL token instructions and hands them to an Invoker; the host
// side executes them over the call's account views.
package token

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	perrors "debtvault/core/errors"
	"debtvault/core/types"
	"debtvault/crypto"
)

// ProgramID is the address of the token program.
var ProgramID = crypto.AddressFromPublicKey(token.ProgramID)

// Invoker executes an instruction of another program within the current
// call. Capabilities authorize derived authorities in place of signatures;
// the host checks them against the invoking program's id.
type Invoker interface {
	Invoke(ix solana.Instruction, accounts []*types.AccountInfo, capabilities ...crypto.Capability) error
}

// Client issues token transfers and mints on behalf of the engine.
type Client struct {
	invoker Invoker
}

// NewClient returns a client routing instructions through invoker.
func NewClient(invoker Invoker) *Client {
	return &Client{invoker: invoker}
}

// Transfer moves amount from source to destination. The authority must have
// signed the surrounding call.
func (c *Client) Transfer(program, source, destination, authority *types.AccountInfo, amount uint64) error {
	if err := checkProgram(program); err != nil {
		return err
	}
	ix := token.NewTransferInstruction(
		amount,
		source.Key.PublicKey(),
		destination.Key.PublicKey(),
		authority.Key.PublicKey(),
		nil,
	).Build()
	return c.invoke(ix, []*types.AccountInfo{source, destination, authority, program})
}

// MintTo mints amount of mint into destination. The authority is a derived
// authority proven by capability.
func (c *Client) MintTo(program, mint, destination, authority *types.AccountInfo, amount uint64, capability crypto.Capability) error {
	if err := checkProgram(program); err != nil {
		return err
	}
	ix := token.NewMintToInstruction(
		amount,
		mint.Key.PublicKey(),
		destination.Key.PublicKey(),
		authority.Key.PublicKey(),
		nil,
	).Build()
	return c.invoke(ix, []*types.AccountInfo{mint, destination, authority, program}, capability)
}

func (c *Client) invoke(ix solana.Instruction, accounts []*types.AccountInfo, capabilities ...crypto.Capability) error {
	if c == nil || c.invoker == nil {
		return perrors.Wrap(perrors.ErrIncorrectProgramID, "token program not available")
	}
	return c.invoker.Invoke(ix, accounts, capabilities...)
}

func checkProgram(program *types.AccountInfo) error {
	if program == nil || program.Key != ProgramID {
		return perrors.Wrap(perrors.ErrIncorrectProgramID, "expected token program %s", ProgramID)
	}
	return nil
}

// NewMintToInstruction builds a MintTo with a single authority.
func NewMintToInstruction(amount uint64, mint, destination, authority crypto.Address) solana.Instruction {
	return token.NewMintToInstruction(amount, mint.PublicKey(), destination.PublicKey(), authority.PublicKey(), nil).Build()
}

// NewTransferInstruction builds a Transfer with a single owner.
func NewTransferInstruction(amount uint64, source, destination, owner crypto.Address) solana.Instruction {
	return token.NewTransferInstruction(amount, source.PublicKey(), destination.PublicKey(), owner.PublicKey(), nil).Build()
}
