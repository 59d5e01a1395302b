package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"debtvault/config"
	"debtvault/core/instruction"
	"debtvault/core/state"
	"debtvault/crypto"
	"debtvault/native/debt"
	"debtvault/native/faucet"
)

const (
	tokenDecimals = 9
	// defaultAirdrop is the collateral minted into a new user's token account.
	defaultAirdrop = 1_000_000 * 1_000_000_000
	defaultDrip    = 1_000_000_000
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseAmount(args []string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected a single amount argument")
	}
	amount, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	if amount == 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func runKeygen(configPath string, args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet("keygen", stderr)
	force := flags.Bool("force", false, "overwrite an existing key file")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return printError(stderr, err)
	}
	if _, err := os.Stat(cfg.KeyFile); err == nil && !*force {
		return printError(stderr, fmt.Errorf("key file %s already exists (use --force to replace it)", cfg.KeyFile))
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return printError(stderr, err)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err)
	}
	if err := crypto.SaveKeyFile(cfg.KeyFile, key); err != nil {
		return printError(stderr, err)
	}
	fmt.Fprintf(stdout, "address: %s\n", key.Address())
	return 0
}

func withEnvironment(configPath string, stdout, stderr io.Writer, fn func(*environment) error) int {
	env, err := openEnvironment(configPath, stdout, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer env.Close()
	if err := fn(env); err != nil {
		return printError(stderr, err)
	}
	return 0
}

func runSetup(configPath string, args []string, stdout, stderr io.Writer) int {
	if err := newFlagSet("setup", stderr).Parse(args); err != nil {
		return 1
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		if err := env.deployDebtType(); err != nil {
			return err
		}
		if err := env.deployVaultType(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "debt type: %s\nvault type: %s\n", env.state.DebtType, env.state.VaultType)
		return nil
	})
}

func (e *environment) deployDebtType() error {
	if !e.state.DebtToken.IsZero() && !e.state.DebtType.IsZero() {
		return nil
	}
	e.logger.Info("deploy debt type")

	debtType, err := e.newSlot(e.programID(), debt.DebtTypeSize)
	if err != nil {
		return err
	}
	minter, _, err := crypto.FindAuthority(e.programID(), debtType, crypto.RoleMinter)
	if err != nil {
		return err
	}
	debtToken, err := newAddress()
	if err != nil {
		return err
	}
	if err := e.ledger.CreateMint(debtToken, minter, tokenDecimals); err != nil {
		return err
	}
	ix, err := instruction.NewInitDebtType(e.programID(), debtType, debtToken, e.wallet.Address())
	if err != nil {
		return err
	}
	if _, err := e.submit(ix); err != nil {
		return err
	}
	e.state.DebtToken, e.state.DebtType = debtToken, debtType
	return e.saveState()
}

func (e *environment) deployVaultType() error {
	if !e.state.CollateralToken.IsZero() && !e.state.VaultType.IsZero() {
		return nil
	}
	if e.state.DebtType.IsZero() {
		return errNotDeployed
	}
	e.logger.Info("deploy vault type")

	vaultType, err := e.newSlot(e.programID(), debt.VaultTypeSize)
	if err != nil {
		return err
	}
	collateralToken, err := newAddress()
	if err != nil {
		return err
	}
	if err := e.ledger.CreateMint(collateralToken, e.wallet.Address(), tokenDecimals); err != nil {
		return err
	}
	holderAuthority, _, err := crypto.FindAuthority(e.programID(), vaultType, crypto.RoleHolder)
	if err != nil {
		return err
	}
	holder, err := newAddress()
	if err != nil {
		return err
	}
	if err := e.ledger.CreateTokenAccount(holder, collateralToken, holderAuthority); err != nil {
		return err
	}
	oracle, err := newAddress()
	if err != nil {
		return err
	}

	ix, err := instruction.NewInitVaultType(e.programID(), vaultType, instruction.InitVaultType{
		DebtType:              e.state.DebtType,
		CollateralToken:       collateralToken,
		CollateralTokenHolder: holder,
		PriceOracle:           oracle,
	})
	if err != nil {
		return err
	}
	if _, err := e.submit(ix); err != nil {
		return err
	}
	e.state.VaultType = vaultType
	e.state.CollateralToken = collateralToken
	e.state.CollateralTokenHolder = holder
	e.state.PriceOracle = oracle
	return e.saveState()
}

func runSetupVault(configPath string, args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet("setup-vault", stderr)
	airdrop := flags.Uint64("airdrop", defaultAirdrop, "collateral minted into the new token account")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		if env.state.VaultType.IsZero() {
			return errNotDeployed
		}
		user := &env.state.User
		owner := env.wallet.Address()

		if user.TokenAccount.IsZero() {
			env.logger.Info("airdrop collateral for testing", slog.Uint64("amount", *airdrop))
			account, err := newAddress()
			if err != nil {
				return err
			}
			if err := env.ledger.CreateTokenAccount(account, env.state.CollateralToken, owner); err != nil {
				return err
			}
			if err := env.ledger.MintTokens(account, *airdrop); err != nil {
				return err
			}
			user.TokenAccount = account
			if err := env.saveState(); err != nil {
				return err
			}
		}

		if user.DebtTokenAccount.IsZero() {
			env.logger.Info("create debt token account")
			account, err := newAddress()
			if err != nil {
				return err
			}
			if err := env.ledger.CreateTokenAccount(account, env.state.DebtToken, owner); err != nil {
				return err
			}
			user.DebtTokenAccount = account
			if err := env.saveState(); err != nil {
				return err
			}
		}

		if user.Vault.IsZero() {
			vault, err := env.newSlot(env.programID(), debt.VaultSize)
			if err != nil {
				return err
			}
			ix, err := instruction.NewInitVault(env.programID(), vault, env.state.VaultType, owner)
			if err != nil {
				return err
			}
			if _, err := env.submit(ix); err != nil {
				return err
			}
			user.Vault = vault
			if err := env.saveState(); err != nil {
				return err
			}
		}
		fmt.Fprintf(stdout, "vault: %s\n", user.Vault)
		return nil
	})
}

func requireVault(env *environment) error {
	if env.state.User.Vault.IsZero() {
		return errors.New("vault not created; run vaultctl setup-vault first")
	}
	return nil
}

func runStake(configPath string, args []string, stdout, stderr io.Writer) int {
	amount, err := parseAmount(args)
	if err != nil {
		return printError(stderr, err)
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		if err := requireVault(env); err != nil {
			return err
		}
		_, nonce, err := crypto.FindAuthority(env.programID(), env.state.VaultType, crypto.RoleHolder)
		if err != nil {
			return err
		}
		env.logger.Info("stake collateral", slog.Uint64("amount", amount))
		ix, err := instruction.NewStake(env.programID(), amount, nonce, instruction.StakeAccounts{
			CollateralFrom:   env.state.User.TokenAccount,
			Owner:            env.wallet.Address(),
			CollateralHolder: env.state.CollateralTokenHolder,
			VaultType:        env.state.VaultType,
			Vault:            env.state.User.Vault,
		})
		if err != nil {
			return err
		}
		receipt, err := env.submit(ix)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "staked %d (tx %s)\n", amount, receipt.Signature)
		return nil
	})
}

func runBorrow(configPath string, args []string, stdout, stderr io.Writer) int {
	amount, err := parseAmount(args)
	if err != nil {
		return printError(stderr, err)
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		if err := requireVault(env); err != nil {
			return err
		}
		minter, nonce, err := crypto.FindAuthority(env.programID(), env.state.DebtType, crypto.RoleMinter)
		if err != nil {
			return err
		}
		env.logger.Info("borrow debt token", slog.Uint64("amount", amount))
		ix, err := instruction.NewBorrow(env.programID(), amount, nonce, instruction.BorrowAccounts{
			DebtToken:   env.state.DebtToken,
			DebtMinter:  minter,
			Receiver:    env.state.User.DebtTokenAccount,
			DebtType:    env.state.DebtType,
			VaultType:   env.state.VaultType,
			Vault:       env.state.User.Vault,
			Owner:       env.wallet.Address(),
			PriceOracle: env.state.PriceOracle,
		})
		if err != nil {
			return err
		}
		receipt, err := env.submit(ix)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "borrowed %d (tx %s)\n", amount, receipt.Signature)
		return nil
	})
}

func runInfo(configPath string, args []string, stdout, stderr io.Writer) int {
	if err := newFlagSet("info", stderr).Parse(args); err != nil {
		return 1
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		if err := requireVault(env); err != nil {
			return err
		}
		info, err := env.ledger.AccountInfo(env.state.User.Vault)
		if err != nil {
			return err
		}
		vault, err := state.LoadInitialized[debt.Vault](info)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "collateral: %d\n", vault.CollateralAmount)
		fmt.Fprintf(stdout, "debt: %d\n", vault.DebtAmount)
		fmt.Fprintf(stdout, "price: %d\n", collateralPrice)
		fmt.Fprintln(stdout, "--------------------------------------")
		if ratio, ok := collateralRatio(vault.CollateralAmount, vault.DebtAmount, collateralPrice); ok {
			fmt.Fprintf(stdout, "collateral ratio: %s%%\n", ratio.Dec())
		} else {
			fmt.Fprintln(stdout, "collateral ratio: n/a (no debt)")
		}
		return nil
	})
}

func runFaucetInit(configPath string, args []string, stdout, stderr io.Writer) int {
	flags := newFlagSet("faucet-init", stderr)
	amount := flags.Uint64("amount", defaultDrip, "amount minted per drip")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *amount == 0 {
		return printError(stderr, errors.New("--amount must be positive"))
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		fc := &env.state.Faucet
		if fc.Faucet.IsZero() {
			env.logger.Info("deploy faucet", slog.Uint64("amount", *amount))
			slot, err := env.newSlot(env.faucetProgramID(), faucet.FaucetSize)
			if err != nil {
				return err
			}
			minter, _, err := crypto.FindAuthority(env.faucetProgramID(), slot, crypto.RoleMinter)
			if err != nil {
				return err
			}
			token, err := newAddress()
			if err != nil {
				return err
			}
			if err := env.ledger.CreateMint(token, minter, tokenDecimals); err != nil {
				return err
			}
			ix, err := instruction.NewInitFaucet(env.faucetProgramID(), slot, token, *amount)
			if err != nil {
				return err
			}
			if _, err := env.submit(ix); err != nil {
				return err
			}
			fc.Faucet, fc.Token = slot, token
			if err := env.saveState(); err != nil {
				return err
			}
		}
		if fc.Receiver.IsZero() {
			receiver, err := newAddress()
			if err != nil {
				return err
			}
			if err := env.ledger.CreateTokenAccount(receiver, fc.Token, env.wallet.Address()); err != nil {
				return err
			}
			fc.Receiver = receiver
			if err := env.saveState(); err != nil {
				return err
			}
		}
		fmt.Fprintf(stdout, "faucet: %s\ntoken: %s\n", fc.Faucet, fc.Token)
		return nil
	})
}

func runDrip(configPath string, args []string, stdout, stderr io.Writer) int {
	if err := newFlagSet("drip", stderr).Parse(args); err != nil {
		return 1
	}
	return withEnvironment(configPath, stdout, stderr, func(env *environment) error {
		fc := env.state.Faucet
		if fc.Faucet.IsZero() || fc.Receiver.IsZero() {
			return errors.New("faucet not deployed; run vaultctl faucet-init first")
		}
		slot, err := env.ledger.AdvanceSlot()
		if err != nil {
			return err
		}
		minter, nonce, err := crypto.FindAuthority(env.faucetProgramID(), fc.Faucet, crypto.RoleMinter)
		if err != nil {
			return err
		}
		ix, err := instruction.NewDrip(env.faucetProgramID(), nonce, instruction.DripAccounts{
			Faucet:       fc.Faucet,
			FaucetToken:  fc.Token,
			FaucetMinter: minter,
			Receiver:     fc.Receiver,
		})
		if err != nil {
			return err
		}
		if _, err := env.submit(ix); err != nil {
			return err
		}
		balance, err := env.ledger.TokenBalance(fc.Receiver)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "dripped at slot %d, balance %d\n", slot, balance)
		return nil
	})
}
