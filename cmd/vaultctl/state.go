package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"debtvault/config"
	"debtvault/crypto"
)

// DeployState records the addresses created by setup commands so later
// commands can find them.
type DeployState struct {
	Program               crypto.Address `yaml:"program,omitempty"`
	FaucetProgram         crypto.Address `yaml:"faucetProgram,omitempty"`
	DebtToken             crypto.Address `yaml:"debtToken,omitempty"`
	DebtType              crypto.Address `yaml:"debtType,omitempty"`
	VaultType             crypto.Address `yaml:"vaultType,omitempty"`
	CollateralToken       crypto.Address `yaml:"collateralToken,omitempty"`
	CollateralTokenHolder crypto.Address `yaml:"collateralTokenHolder,omitempty"`
	PriceOracle           crypto.Address `yaml:"priceOracle,omitempty"`

	User   UserState   `yaml:"user,omitempty"`
	Faucet FaucetState `yaml:"faucet,omitempty"`
}

// UserState holds the wallet's own accounts.
type UserState struct {
	TokenAccount     crypto.Address `yaml:"tokenAccount,omitempty"`
	DebtTokenAccount crypto.Address `yaml:"debtTokenAccount,omitempty"`
	Vault            crypto.Address `yaml:"vault,omitempty"`
}

// FaucetState holds the faucet deployment and the wallet's receiving account.
type FaucetState struct {
	Faucet   crypto.Address `yaml:"faucet,omitempty"`
	Token    crypto.Address `yaml:"token,omitempty"`
	Receiver crypto.Address `yaml:"receiver,omitempty"`
}

// bind pins the state file to the configured program ids, rejecting a state
// file written for a different deployment.
func (s *DeployState) bind(cfg *config.Config) error {
	for _, pin := range []struct {
		recorded   *crypto.Address
		configured crypto.Address
		enabled    bool
	}{
		{&s.Program, cfg.ProgramID, cfg.Programs.Vault},
		{&s.FaucetProgram, cfg.FaucetProgramID, cfg.Programs.Faucet},
	} {
		if !pin.enabled {
			continue
		}
		if pin.recorded.IsZero() {
			*pin.recorded = pin.configured
		} else if *pin.recorded != pin.configured {
			return fmt.Errorf("deploy state belongs to program %s, config names %s", *pin.recorded, pin.configured)
		}
	}
	return nil
}

func (u UserState) IsZero() bool   { return u == UserState{} }
func (f FaucetState) IsZero() bool { return f == FaucetState{} }

func loadState(path string) (*DeployState, error) {
	state := new(DeployState)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, state); err != nil {
		return nil, err
	}
	return state, nil
}

func saveState(path string, state *DeployState) error {
	raw, err := yaml.Marshal(state)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o644)
}
