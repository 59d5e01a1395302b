package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

const defaultConfigPath = "./vaultctl.toml"

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vaultctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", envOr("VAULTCTL_CONFIG", defaultConfigPath), "path to the TOML configuration")
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	if err := fs.Parse(args); err != nil {
		return 1
	}
	args = fs.Args()
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	cmd := commands[args[0]]
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
	return cmd(*configPath, args[1:], stdout, stderr)
}

type command func(configPath string, args []string, stdout, stderr io.Writer) int

var commands map[string]command

func init() {
	commands = map[string]command{
		"keygen":      runKeygen,
		"setup":       runSetup,
		"setup-vault": runSetupVault,
		"stake":       runStake,
		"borrow":      runBorrow,
		"info":        runInfo,
		"faucet-init": runFaucetInit,
		"drip":        runDrip,
		"serve":       runServe,
	}
}

func usage() string {
	return strings.TrimSpace(`
Usage: vaultctl [--config path] <command> [args]

Commands:
  keygen [--force]          create the wallet key file
  setup                     deploy the debt token, debt type and vault type
  setup-vault               create a vault and a funded collateral account
  stake <amount>            move collateral into the vault
  borrow <amount>           mint debt tokens against the vault
  info                      show collateral, debt and collateral ratio
  faucet-init [--amount n]  deploy a faucet with its own token
  drip                      mint one faucet drip to the wallet
  serve                     run the read-only query API
`)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func printError(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %v\n", err)
	return 1
}
