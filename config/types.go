package config

// Storage selects the key-value backend holding the ledger.
type Storage struct {
	// Backend is one of memory, leveldb or bolt.
	Backend string `toml:"Backend"`
}

// Programs selects which programs are deployed. Vault runs the debt
// instruction set under ProgramID, Faucet the faucet set under
// FaucetProgramID.
type Programs struct {
	Vault  bool `toml:"Vault"`
	Faucet bool `toml:"Faucet"`
}

// Rent mirrors the rent sysvar written when a ledger is first created.
type Rent struct {
	LamportsPerByteYear uint64  `toml:"LamportsPerByteYear"`
	ExemptionThreshold  float64 `toml:"ExemptionThreshold"`
	BurnPercent         uint8   `toml:"BurnPercent"`
}

// Log configures structured logging.
type Log struct {
	Level      string `toml:"Level"`
	Env        string `toml:"Env"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB,omitempty"`
	MaxBackups int    `toml:"MaxBackups,omitempty"`
}

// RPC configures the read-only query API.
type RPC struct {
	ListenAddress     string `toml:"ListenAddress"`
	RequestsPerMinute int    `toml:"RequestsPerMinute"`
	Burst             int    `toml:"Burst"`
	ReadTimeoutSecs   int    `toml:"ReadTimeoutSecs"`
	WriteTimeoutSecs  int    `toml:"WriteTimeoutSecs"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint string `toml:"Endpoint,omitempty"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers,omitempty"`
	Metrics  bool   `toml:"Metrics"`
	Traces   bool   `toml:"Traces"`
}
