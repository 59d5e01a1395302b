package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"debtvault/core/processor"
	"debtvault/core/types"
	"debtvault/crypto"
)

// Config is the node configuration read from a TOML file.
type Config struct {
	// ProgramID is the debt program. FaucetProgramID runs the faucet
	// instruction set under its own id.
	ProgramID       crypto.Address `toml:"ProgramID"`
	FaucetProgramID crypto.Address `toml:"FaucetProgramID"`
	DataDir         string         `toml:"DataDir"`
	KeyFile         string         `toml:"KeyFile"`
	StateFile       string         `toml:"StateFile"`

	Storage   Storage   `toml:"Storage"`
	Programs  Programs  `toml:"Programs"`
	Rent      Rent      `toml:"Rent"`
	Log       Log       `toml:"Log"`
	RPC       RPC       `toml:"RPC"`
	Telemetry Telemetry `toml:"Telemetry"`
}

// Default returns the configuration written for a fresh node. Program ids
// are generated since a local ledger has no prior deployment.
func Default() (*Config, error) {
	vault, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	faucet, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	rent := types.DefaultRent()
	return &Config{
		ProgramID:       vault.Address(),
		FaucetProgramID: faucet.Address(),
		DataDir:         "./debtvault-data",
		KeyFile:         "./id.json",
		StateFile:       "./deploy.yaml",
		Storage:         Storage{Backend: "leveldb"},
		Programs:        Programs{Vault: true, Faucet: true},
		Rent: Rent{
			LamportsPerByteYear: rent.LamportsPerByteYear,
			ExemptionThreshold:  rent.ExemptionThreshold,
			BurnPercent:         rent.BurnPercent,
		},
		Log: Log{Level: "info", Env: "local"},
		RPC: RPC{
			ListenAddress:     "127.0.0.1:8899",
			RequestsPerMinute: 600,
			Burst:             60,
			ReadTimeoutSecs:   10,
			WriteTimeoutSecs:  10,
		},
	}, nil
}

// Load loads the configuration from the given path, writing the default
// configuration there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if err := Save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Deployment is one program id and the instruction set it decodes.
type Deployment struct {
	ProgramID crypto.Address
	Options   processor.Options
}

// Deployments returns the enabled programs.
func (c *Config) Deployments() []Deployment {
	var out []Deployment
	if c.Programs.Vault {
		out = append(out, Deployment{ProgramID: c.ProgramID, Options: processor.VaultOptions()})
	}
	if c.Programs.Faucet {
		out = append(out, Deployment{ProgramID: c.FaucetProgramID, Options: processor.FaucetOptions()})
	}
	return out
}

// RentRule returns the rent rule seeded into a new ledger.
func (c *Config) RentRule() types.Rent {
	return types.Rent{
		LamportsPerByteYear: c.Rent.LamportsPerByteYear,
		ExemptionThreshold:  c.Rent.ExemptionThreshold,
		BurnPercent:         c.Rent.BurnPercent,
	}
}
