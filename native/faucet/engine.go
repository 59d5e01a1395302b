// Package faucet implements a token faucet that mints a fixed amount per
// call through an authority derived from the faucet's address.
package faucet

import (
	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/events"
	"debtvault/core/state"
	"debtvault/core/types"
	"debtvault/crypto"
)

type tokenMinter interface {
	MintTo(program, mint, destination, authority *types.AccountInfo, amount uint64, capability crypto.Capability) error
}

// Engine processes faucet instructions for one program id.
type Engine struct {
	programID crypto.Address
	tokens    tokenMinter
	emitter   events.Emitter
}

func NewEngine(programID crypto.Address, tokens tokenMinter) *Engine {
	return &Engine{programID: programID, tokens: tokens, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

// InitFaucet creates a faucet for the token at position 2.
//
// Accounts: 0 rent sysvar, 1 faucet (writable), 2 token mint.
func (e *Engine) InitFaucet(accts accounts.Accounts, config Config) error {
	rent, err := accts.Rent(0)
	if err != nil {
		return err
	}
	slot, err := accts.Get(1)
	if err != nil {
		return err
	}
	tokenAccount, err := accts.Get(2)
	if err != nil {
		return err
	}

	faucet, err := state.InitUninitialized[Faucet](slot)
	if err != nil {
		return err
	}
	faucet.Initialized = true
	faucet.Config = config
	faucet.AmountSupplied = 0
	faucet.Token = tokenAccount.Key
	if err := state.SaveExempt(slot, faucet, rent); err != nil {
		return err
	}
	e.emitter.Emit(events.FaucetInitialized{Faucet: slot.Key, Token: tokenAccount.Key, Amount: config.Amount})
	return nil
}

type dripContext struct {
	tokenProgram *types.AccountInfo
	clock        types.Clock
	faucet       *types.AccountInfo
	faucetToken  *types.AccountInfo
	minter       *types.AccountInfo
	receiver     *types.AccountInfo

	minterNonce uint8
}

// Drip mints the configured amount to the receiver.
//
// Accounts: 0 token program, 1 clock sysvar, 2 faucet (writable), 3 faucet
// token mint (writable), 4 faucet token minter (writable), 5 receiver
// (writable).
func (e *Engine) Drip(accts accounts.Accounts, minterNonce uint8) error {
	ctx := &dripContext{minterNonce: minterNonce}
	var err error
	if ctx.tokenProgram, err = accts.Get(0); err != nil {
		return err
	}
	if ctx.clock, err = accts.Clock(1); err != nil {
		return err
	}
	for i, dst := range []**types.AccountInfo{&ctx.faucet, &ctx.faucetToken, &ctx.minter, &ctx.receiver} {
		if *dst, err = accts.Get(i + 2); err != nil {
			return err
		}
	}
	faucet, err := ctx.process(e.programID, e.tokens)
	if err != nil {
		return err
	}
	e.emitter.Emit(events.FaucetDripped{
		Faucet:         ctx.faucet.Key,
		Receiver:       ctx.receiver.Key,
		Amount:         faucet.Config.Amount,
		AmountSupplied: faucet.AmountSupplied,
		Slot:           faucet.UpdatedAt,
		MinterNonce:    minterNonce,
	})
	return nil
}

func (c *dripContext) process(programID crypto.Address, tokens tokenMinter) (*Faucet, error) {
	faucet, err := state.LoadInitialized[Faucet](c.faucet)
	if err != nil {
		return nil, err
	}

	capability := crypto.Capability{Parent: c.faucet.Key, Role: crypto.RoleMinter, Nonce: c.minterNonce}
	minter, err := capability.Address(programID)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrInvalidSeeds, "%s: %v", capability, err)
	}
	if minter != c.minter.Key {
		return nil, perrors.Wrap(perrors.ErrUnexpectedProgramAccount, "faucet minter %s, derived %s", c.minter.Key, minter)
	}

	// TODO: throttle drips per receiver using UpdatedAt once the faucet
	// config carries an interval.
	supplied := faucet.AmountSupplied + faucet.Config.Amount
	if supplied < faucet.AmountSupplied {
		return nil, perrors.Wrap(perrors.ErrFaucetOverflow, "faucet %s supplied %d", c.faucet.Key, faucet.AmountSupplied)
	}
	if err := tokens.MintTo(c.tokenProgram, c.faucetToken, c.receiver, c.minter, faucet.Config.Amount, capability); err != nil {
		return nil, err
	}
	faucet.AmountSupplied = supplied
	faucet.UpdatedAt = c.clock.Slot
	if err := state.Save(c.faucet, faucet); err != nil {
		return nil, err
	}
	return faucet, nil
}
