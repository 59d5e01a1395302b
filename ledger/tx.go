package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"lukechampine.com/blake3"

	"debtvault/core/accounts"
	perrors "debtvault/core/errors"
	"debtvault/core/events"
	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/native/token"
	"debtvault/observability"
)

// BlockhashWindow is the number of slots a blockhash stays valid for.
const BlockhashWindow = 150

var (
	signaturePrefix = []byte("sig:")

	ErrBlockhashExpired = errors.New("ledger: blockhash not found")
	ErrAlreadyProcessed = errors.New("ledger: transaction already processed")
)

// Receipt records the outcome of an executed transaction. A failed
// transaction still yields a receipt; none of its writes are committed.
type Receipt struct {
	Signature solana.Signature `json:"signature"`
	Slot      uint64           `json:"slot"`
	Events    []*types.Event   `json:"events,omitempty"`
	Code      perrors.Code     `json:"code"`
	Err       error            `json:"-"`
}

// Succeeded reports whether every instruction completed.
func (r *Receipt) Succeeded() bool { return r != nil && r.Err == nil }

// Blockhash returns the blockhash issued at the current slot.
func (l *Ledger) Blockhash() (solana.Hash, error) {
	clock, err := l.Clock()
	if err != nil {
		return solana.Hash{}, err
	}
	return blockhash(clock.Slot), nil
}

func blockhash(slot uint64) solana.Hash {
	seed := binary.LittleEndian.AppendUint64([]byte("debtvault/blockhash"), slot)
	sum := blake3.Sum256(seed)
	return solana.Hash(sum)
}

func recentBlockhash(current uint64, hash solana.Hash) bool {
	for i := uint64(0); i <= BlockhashWindow && i <= current; i++ {
		if blockhash(current-i) == hash {
			return true
		}
	}
	return false
}

// Execute verifies and runs tx. Instructions run in order over shared
// account views; the writes of all instructions are committed together or
// not at all. Program failures are reported through the receipt, while the
// returned error is reserved for transactions the ledger refuses to run.
func (l *Ledger) Execute(ctx context.Context, tx *solana.Transaction) (*Receipt, error) {
	if tx == nil || len(tx.Signatures) == 0 {
		return nil, fmt.Errorf("%w: unsigned", ErrInvalidTx)
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}

	_, span := l.tracer.Start(ctx, "ledger.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("signature", tx.Signatures[0].String()))

	l.mu.Lock()
	defer l.mu.Unlock()

	clock, err := l.Clock()
	if err != nil {
		return nil, err
	}
	if !recentBlockhash(clock.Slot, tx.Message.RecentBlockhash) {
		return nil, fmt.Errorf("%w: %s", ErrBlockhashExpired, tx.Message.RecentBlockhash)
	}
	sigKey := append(append([]byte(nil), signaturePrefix...), tx.Signatures[0][:]...)
	if _, err := l.db.Get(sigKey); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessed, tx.Signatures[0])
	}

	metas, err := tx.Message.AccountMetaList()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	views := make(map[crypto.Address]*types.AccountInfo, len(metas))
	before := make(map[crypto.Address]*types.AccountInfo, len(metas))
	for _, meta := range metas {
		addr := crypto.AddressFromPublicKey(meta.PublicKey)
		acct, err := l.load(addr)
		if errors.Is(err, ErrAccountNotFound) {
			acct = &Account{Owner: SystemOwner}
		} else if err != nil {
			return nil, err
		}
		view := acct.info(addr, meta.IsSigner, meta.IsWritable)
		views[addr] = view
		before[addr] = view.Clone()
	}

	receipt := &Receipt{Signature: tx.Signatures[0], Slot: clock.Slot}
	recorder := new(events.Recorder)
	start := time.Now()
	for i := range tx.Message.Instructions {
		if err := l.runInstruction(&tx.Message, i, views, before, recorder); err != nil {
			receipt.Err = fmt.Errorf("instruction %d: %w", i, err)
			receipt.Code = perrors.CodeOf(err)
			break
		}
	}

	if receipt.Err != nil {
		span.RecordError(receipt.Err)
		span.SetStatus(codes.Error, receipt.Code.String())
		l.logger.Info("transaction failed",
			slog.String("signature", receipt.Signature.String()),
			slog.Uint64("slot", receipt.Slot),
			slog.String("code", receipt.Code.String()),
			slog.Any("error", receipt.Err))
		return receipt, nil
	}

	batch := l.db.NewBatch()
	for addr, view := range views {
		if !changed(before[addr], view) {
			continue
		}
		raw, err := encodeAccount(&Account{Lamports: view.Lamports, Owner: view.Owner, Data: view.Read(), Executable: view.Executable})
		if err != nil {
			return nil, err
		}
		batch.Put(accountKey(addr), raw)
	}
	batch.Put(sigKey, []byte{1})
	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("ledger: commit: %w", err)
	}

	receipt.Events = recorder.Events()
	for _, evt := range receipt.Events {
		observability.Events().RecordEvent(evt.Type)
	}
	l.logger.Info("transaction committed",
		slog.String("signature", receipt.Signature.String()),
		slog.Uint64("slot", receipt.Slot),
		slog.Int("instructions", len(tx.Message.Instructions)),
		slog.Int("events", len(receipt.Events)),
		slog.Duration("elapsed", time.Since(start)))
	return receipt, nil
}

func (l *Ledger) runInstruction(msg *solana.Message, index int, views, before map[crypto.Address]*types.AccountInfo, recorder *events.Recorder) error {
	compiled := msg.Instructions[index]
	programKey, err := msg.Program(compiled.ProgramIDIndex)
	if err != nil {
		return perrors.Wrap(perrors.ErrNotEnoughAccountKeys, "%v", err)
	}
	programID := crypto.AddressFromPublicKey(programKey)
	program, ok := l.programs[programID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, programID)
	}
	metas, err := compiled.ResolveInstructionAccounts(msg)
	if err != nil {
		return perrors.Wrap(perrors.ErrNotEnoughAccountKeys, "%v", err)
	}
	accts := make(accounts.Accounts, len(metas))
	for i, meta := range metas {
		accts[i] = views[crypto.AddressFromPublicKey(meta.PublicKey)]
	}

	snapshot := make(map[crypto.Address]*types.AccountInfo, len(views))
	l.tokenWrites = make(map[crypto.Address][]byte)
	defer func() { l.tokenWrites = nil }()
	for addr, view := range views {
		snapshot[addr] = view.Clone()
		if view.Owner == token.ProgramID {
			l.tokenWrites[addr] = view.Read()
		}
	}
	staged := new(events.Recorder)
	if err := program.Process(accts, compiled.Data, staged); err != nil {
		return err
	}
	for addr, view := range views {
		prior := snapshot[addr]
		if view.Owner != prior.Owner {
			return fmt.Errorf("%w: %s reassigned from %s", ErrIllegalWrite, addr, prior.Owner)
		}
		if bytes.Equal(prior.Read(), view.Read()) {
			continue
		}
		switch prior.Owner {
		case programID:
		case token.ProgramID:
			// Token state only moves through the token invoker.
			if !bytes.Equal(l.tokenWrites[addr], view.Read()) {
				return fmt.Errorf("%w: %s modified outside the token program", ErrIllegalWrite, addr)
			}
		default:
			return fmt.Errorf("%w: %s owned by %s", ErrIllegalWrite, addr, prior.Owner)
		}
		if view.Executable || before[addr].Executable {
			return fmt.Errorf("%w: %s is executable", ErrIllegalWrite, addr)
		}
	}
	for _, evt := range staged.Events() {
		recorder.Emit(recorded{evt})
	}
	return nil
}

// recorded re-emits a payload captured by an inner recorder.
type recorded struct{ payload *types.Event }

func (r recorded) EventType() string    { return r.payload.Type }
func (r recorded) Event() *types.Event { return r.payload }

func changed(before, after *types.AccountInfo) bool {
	return before.Lamports != after.Lamports ||
		before.Owner != after.Owner ||
		!bytes.Equal(before.Read(), after.Read())
}
