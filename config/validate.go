package config

import (
	"fmt"
	"strings"

	"debtvault/observability/logging"
)

var backends = map[string]bool{"memory": true, "leveldb": true, "bolt": true}

// Validate checks the configuration for values the node cannot run with.
func (c *Config) Validate() error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("ProgramID: must be set")
	}
	if !backends[strings.ToLower(c.Storage.Backend)] {
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	if strings.ToLower(c.Storage.Backend) != "memory" && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir: required for the %s backend", c.Storage.Backend)
	}
	if !c.Programs.Vault && !c.Programs.Faucet {
		return fmt.Errorf("programs: at least one of Vault or Faucet must be enabled")
	}
	if c.Programs.Faucet {
		if c.FaucetProgramID.IsZero() {
			return fmt.Errorf("FaucetProgramID: must be set when the faucet is enabled")
		}
		if c.FaucetProgramID == c.ProgramID {
			return fmt.Errorf("FaucetProgramID: must differ from ProgramID")
		}
	}
	if c.Rent.LamportsPerByteYear == 0 {
		return fmt.Errorf("rent: LamportsPerByteYear must be positive")
	}
	if c.Rent.ExemptionThreshold < 0 {
		return fmt.Errorf("rent: ExemptionThreshold must not be negative")
	}
	if c.Rent.BurnPercent > 100 {
		return fmt.Errorf("rent: BurnPercent %d exceeds 100", c.Rent.BurnPercent)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.RPC.RequestsPerMinute < 0 || c.RPC.Burst < 0 {
		return fmt.Errorf("rpc: rate limits must not be negative")
	}
	if c.RPC.RequestsPerMinute > 0 && c.RPC.Burst == 0 {
		return fmt.Errorf("rpc: Burst must be positive when RequestsPerMinute is set")
	}
	if c.Telemetry.Metrics || c.Telemetry.Traces {
		if strings.TrimSpace(c.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry: Endpoint required when exporters are enabled")
		}
	}
	return nil
}
