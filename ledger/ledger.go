// Package ledger simulates the host runtime the program is deployed into:
// account storage, sysvars, the token program, signature checks and atomic
// commit of each transaction.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	bin "github.com/gagliardetto/binary"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"debtvault/core/accounts"
	"debtvault/core/events"
	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/storage"
)

var (
	ErrAccountExists   = errors.New("ledger: account already exists")
	ErrAccountNotFound = errors.New("ledger: account not found")
	ErrUnknownProgram  = errors.New("ledger: unknown program")
	ErrInvalidTx       = errors.New("ledger: invalid transaction")
	ErrIllegalWrite    = errors.New("ledger: account modified by a program that does not own it")
)

// Program is an on-ledger program entrypoint.
type Program interface {
	Process(accts accounts.Accounts, data []byte, emitter events.Emitter) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRent sets the rent rule written to the rent sysvar on first open.
func WithRent(rent types.Rent) Option {
	return func(l *Ledger) { l.rent = rent }
}

// WithLogger sets the logger used for committed transactions.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides the wall clock used to stamp slots.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger is safe for concurrent use. Transactions are serialised; the host
// contract only requires writable accounts to be exclusive per call.
type Ledger struct {
	mu       sync.Mutex
	db       storage.Database
	rent     types.Rent
	programs map[crypto.Address]Program
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// tokenWrites holds the last bytes the token program left in each
	// token account during the running instruction. Guarded by mu.
	tokenWrites map[crypto.Address][]byte
}

// New opens a ledger over db, creating the sysvar accounts when missing.
func New(db storage.Database, opts ...Option) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: nil database")
	}
	l := &Ledger{
		db:       db,
		rent:     types.DefaultRent(),
		programs: make(map[crypto.Address]Program),
		logger:   slog.Default(),
		tracer:   otel.Tracer("debtvault/ledger"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.ensureSysvars(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureSysvars() error {
	if existing, err := l.load(types.RentSysvarID); err == nil {
		var rent types.Rent
		if err := types.DecodeSysvar(existing.Data, &rent); err != nil {
			return fmt.Errorf("ledger: rent sysvar: %w", err)
		}
		l.rent = rent
	} else if errors.Is(err, ErrAccountNotFound) {
		if err := l.putSysvar(types.RentSysvarID, l.rent); err != nil {
			return err
		}
	} else {
		return err
	}

	if _, err := l.load(types.ClockSysvarID); errors.Is(err, ErrAccountNotFound) {
		return l.putSysvar(types.ClockSysvarID, types.Clock{UnixTimestamp: l.now().Unix()})
	} else if err != nil {
		return err
	}
	return nil
}

func (l *Ledger) putSysvar(id crypto.Address, v bin.BinaryMarshaler) error {
	data, err := types.EncodeSysvar(v)
	if err != nil {
		return err
	}
	return l.store(id, &Account{Lamports: 1, Owner: sysvarOwner, Data: data})
}

// Rent returns the active rent rule.
func (l *Ledger) Rent() types.Rent {
	return l.rent
}

// Register deploys program under id.
func (l *Ledger) Register(id crypto.Address, program Program) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.programs[id]; ok {
		return fmt.Errorf("%w: program %s", ErrAccountExists, id)
	}
	l.programs[id] = program
	if _, err := l.load(id); errors.Is(err, ErrAccountNotFound) {
		return l.store(id, &Account{Lamports: 1, Owner: loaderOwner, Executable: true})
	} else if err != nil {
		return err
	}
	return nil
}

// Clock returns the current clock snapshot.
func (l *Ledger) Clock() (types.Clock, error) {
	acct, err := l.load(types.ClockSysvarID)
	if err != nil {
		return types.Clock{}, err
	}
	var clock types.Clock
	if err := types.DecodeSysvar(acct.Data, &clock); err != nil {
		return types.Clock{}, err
	}
	return clock, nil
}

// SetSlot moves the clock to slot.
func (l *Ledger) SetSlot(slot uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setSlot(slot)
}

// setSlot requires l.mu.
func (l *Ledger) setSlot(slot uint64) error {
	clock := types.Clock{Slot: slot, UnixTimestamp: l.now().Unix()}
	return l.putSysvar(types.ClockSysvarID, clock)
}

// AdvanceSlot increments the clock slot by one and returns the new value.
// Concurrent callers each observe a distinct slot.
func (l *Ledger) AdvanceSlot() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	clock, err := l.Clock()
	if err != nil {
		return 0, err
	}
	next := clock.Slot + 1
	if err := l.setSlot(next); err != nil {
		return 0, err
	}
	return next, nil
}
