// Package processor decodes instructions and dispatches them to the debt and
// faucet engines.
package processor

import (
	"log/slog"
	"time"

	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/events"
	"debtvault/core/instruction"
	"debtvault/crypto"
	"debtvault/native/debt"
	"debtvault/native/faucet"
	"debtvault/native/token"
	"debtvault/observability"
)

// Options is the active protocol configuration: the instruction set the
// deployed program decodes. The debt and faucet programs each run their own
// processor under their own program id.
type Options struct {
	Set instruction.Set
}

// VaultOptions configures the debt program.
func VaultOptions() Options { return Options{Set: instruction.SetVault} }

// FaucetOptions configures the faucet program.
func FaucetOptions() Options { return Options{Set: instruction.SetFaucet} }

// Processor is stateless between calls. Each call either completes all its
// account writes or returns an error; the host discards the call's writes on
// error.
type Processor struct {
	programID crypto.Address
	opts      Options
	tokens    *token.Client
	logger    *slog.Logger
}

// New returns a processor for programID routing token side effects through
// invoker.
func New(programID crypto.Address, invoker token.Invoker, opts Options) *Processor {
	return &Processor{
		programID: programID,
		opts:      opts,
		tokens:    token.NewClient(invoker),
		logger:    slog.Default(),
	}
}

// SetLogger overrides the logger used for rejected instructions.
func (p *Processor) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// ProgramID returns the id authorities are derived under.
func (p *Processor) ProgramID() crypto.Address { return p.programID }

// Process decodes data and runs the matching handler over accts. Events are
// emitted only by successful handlers.
func (p *Processor) Process(accts accounts.Accounts, data []byte, emitter events.Emitter) (err error) {
	start := time.Now()
	name := observability.InvalidInstruction
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = perrors.CodeOf(err).String()
			p.logger.Debug("instruction rejected",
				slog.String("instruction", name),
				slog.String("code", outcome),
				slog.Any("error", err))
		}
		observability.Processor().Observe(name, outcome, time.Since(start))
	}()

	ix, err := instruction.Decode(p.opts.Set, data)
	if err != nil {
		return perrors.Wrap(perrors.ErrInvalidInstructionData, "%v", err)
	}
	name = instruction.Name(ix)
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	switch ix := ix.(type) {
	case *instruction.InitDebtType:
		return p.initDebtType(accts, ix, emitter)
	case *instruction.InitVaultType:
		return p.initVaultType(accts, ix, emitter)
	case *instruction.InitVault:
		return p.initVault(accts, ix, emitter)
	case *instruction.Stake:
		return p.stake(accts, ix, emitter)
	case *instruction.Borrow:
		return p.borrow(accts, ix, emitter)
	case *instruction.InitFaucet:
		return p.initFaucet(accts, ix, emitter)
	case *instruction.Drip:
		return p.drip(accts, ix, emitter)
	default:
		// Unstake and Repay are part of the wire format but have no handler.
		return perrors.Wrap(perrors.ErrInvalidInstructionData, "%s is not supported", name)
	}
}

func (p *Processor) debtEngine(emitter events.Emitter) *debt.Engine {
	engine := debt.NewEngine(p.programID, p.tokens)
	engine.SetEmitter(emitter)
	return engine
}

func (p *Processor) faucetEngine(emitter events.Emitter) *faucet.Engine {
	engine := faucet.NewEngine(p.programID, p.tokens)
	engine.SetEmitter(emitter)
	return engine
}

func (p *Processor) initDebtType(accts accounts.Accounts, ix *instruction.InitDebtType, emitter events.Emitter) error {
	return p.debtEngine(emitter).InitDebtType(accts, ix.DebtToken, ix.Owner)
}

func (p *Processor) initVaultType(accts accounts.Accounts, ix *instruction.InitVaultType, emitter events.Emitter) error {
	return p.debtEngine(emitter).InitVaultType(accts, debt.VaultType{
		DebtType:              ix.DebtType,
		CollateralToken:       ix.CollateralToken,
		CollateralTokenHolder: ix.CollateralTokenHolder,
		PriceOracle:           ix.PriceOracle,
	})
}

func (p *Processor) initVault(accts accounts.Accounts, ix *instruction.InitVault, emitter events.Emitter) error {
	return p.debtEngine(emitter).InitVault(accts, ix.VaultType, ix.Owner)
}

func (p *Processor) stake(accts accounts.Accounts, ix *instruction.Stake, emitter events.Emitter) error {
	return p.debtEngine(emitter).Stake(accts, ix.Amount, ix.CollateralHolderNonce)
}

func (p *Processor) borrow(accts accounts.Accounts, ix *instruction.Borrow, emitter events.Emitter) error {
	return p.debtEngine(emitter).Borrow(accts, ix.Amount, ix.DebtMinterNonce)
}

func (p *Processor) initFaucet(accts accounts.Accounts, ix *instruction.InitFaucet, emitter events.Emitter) error {
	return p.faucetEngine(emitter).InitFaucet(accts, ix.Config)
}

func (p *Processor) drip(accts accounts.Accounts, ix *instruction.Drip, emitter events.Emitter) error {
	return p.faucetEngine(emitter).Drip(accts, ix.FaucetTokenMinterNonce)
}
