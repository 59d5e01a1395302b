package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"debtvault/config"
	"debtvault/core/processor"
	"debtvault/crypto"
	"debtvault/ledger"
	"debtvault/observability/logging"
	"debtvault/rpc"
	"debtvault/storage"
)

// environment is everything a command needs: configuration, the wallet, the
// ledger with the program deployed, and the deploy state file.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	db     storage.Database
	ledger *ledger.Ledger
	wallet *crypto.PrivateKey
	state  *DeployState
	stdout io.Writer
}

func openEnvironment(configPath string, stdout, stderr io.Writer) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Setup("vaultctl", cfg.Log.Env, logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Output:     stderr,
	})
	if err != nil {
		return nil, err
	}
	wallet, err := crypto.LoadKeyFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load wallet (run vaultctl keygen first): %w", err)
	}
	logger.Debug("wallet loaded",
		slog.String("key_file", cfg.KeyFile),
		logging.KeyFingerprint("key_fingerprint", wallet.Bytes()),
		slog.String("address", wallet.Address().String()))

	state, err := loadState(cfg.StateFile)
	if err != nil {
		return nil, fmt.Errorf("load deploy state: %w", err)
	}

	db, err := storage.Open(cfg.Storage.Backend, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	l, err := ledger.New(db, ledger.WithRent(cfg.RentRule()), ledger.WithLogger(logger))
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, d := range cfg.Deployments() {
		proc := processor.New(d.ProgramID, l.Invoker(d.ProgramID), d.Options)
		proc.SetLogger(logger.With(slog.String("program", d.Options.Set.String())))
		if err := l.Register(d.ProgramID, proc); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := state.bind(cfg); err != nil {
		db.Close()
		return nil, err
	}

	return &environment{
		cfg:    cfg,
		logger: logger,
		db:     db,
		ledger: l,
		wallet: wallet,
		state:  state,
		stdout: stdout,
	}, nil
}

func (e *environment) Close() error {
	e.db.Close()
	return nil
}

func (e *environment) saveState() error {
	return saveState(e.cfg.StateFile, e.state)
}

func (e *environment) programID() crypto.Address {
	return e.cfg.ProgramID
}

func (e *environment) faucetProgramID() crypto.Address {
	return e.cfg.FaucetProgramID
}

// programs lists the enabled program ids for the query API.
func (e *environment) programs() rpc.Programs {
	var programs rpc.Programs
	if e.cfg.Programs.Vault {
		programs.Vault = e.cfg.ProgramID
	}
	if e.cfg.Programs.Faucet {
		programs.Faucet = e.cfg.FaucetProgramID
	}
	return programs
}

// newSlot allocates a fresh slot of size bytes owned by program.
func (e *environment) newSlot(program crypto.Address, size int) (crypto.Address, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return crypto.Address{}, err
	}
	addr := key.Address()
	return addr, e.ledger.CreateAccount(addr, program, size, 0)
}

func newAddress() (crypto.Address, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return crypto.Address{}, err
	}
	return key.Address(), nil
}

// submit signs ixs with the wallet and executes them as one transaction.
func (e *environment) submit(ixs ...solana.Instruction) (*ledger.Receipt, error) {
	hash, err := e.ledger.Blockhash()
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(ixs, hash, solana.TransactionPayer(e.wallet.Address().PublicKey()))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Sign(crypto.KeyGetter(e.wallet)); err != nil {
		return nil, err
	}
	receipt, err := e.ledger.Execute(context.Background(), tx)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("transaction %s failed with %s: %w", receipt.Signature, receipt.Code, receipt.Err)
	}
	for _, evt := range receipt.Events {
		attrs := []any{slog.String("type", evt.Type)}
		for _, key := range evt.Keys() {
			attrs = append(attrs, slog.String(key, evt.Attributes[key]))
		}
		e.logger.Info("event", attrs...)
	}
	return receipt, nil
}

var errNotDeployed = errors.New("protocol not deployed; run vaultctl setup first")
