package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"lukechampine.com/blake3"

	perrors "debtvault/core/errors"
	"debtvault/core/state"
	"debtvault/core/types"
	"debtvault/crypto"
	"debtvault/ledger"
	"debtvault/native/debt"
	"debtvault/native/faucet"
	"debtvault/native/token"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
	Slot   uint64 `json:"slot"`
}

type accountResponse struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	Lamports   uint64 `json:"lamports"`
	Executable bool   `json:"executable"`
	Size       int    `json:"size"`
	Digest     string `json:"digest"`
}

type debtTypeResponse struct {
	Address   string `json:"address"`
	DebtToken string `json:"debtToken"`
	Owner     string `json:"owner"`
}

type vaultTypeResponse struct {
	Address               string `json:"address"`
	DebtType              string `json:"debtType"`
	CollateralToken       string `json:"collateralToken"`
	CollateralTokenHolder string `json:"collateralTokenHolder"`
	PriceOracle           string `json:"priceOracle"`
}

type vaultResponse struct {
	Address          string `json:"address"`
	VaultType        string `json:"vaultType"`
	Owner            string `json:"owner"`
	CollateralAmount string `json:"collateralAmount"`
	DebtAmount       string `json:"debtAmount"`
}

type faucetResponse struct {
	Address        string `json:"address"`
	Token          string `json:"token"`
	Amount         string `json:"amount"`
	AmountSupplied string `json:"amountSupplied"`
	UpdatedAt      uint64 `json:"updatedAt"`
}

type tokenBalanceResponse struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  string `json:"amount"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	clock, err := s.reader.Clock()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Slot: clock.Slot})
}

// lookup resolves the {address} parameter and loads the account behind it,
// writing the error response itself when it fails.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*types.AccountInfo, bool) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	info, err := s.reader.AccountInfo(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return info, true
}

// programAccount is lookup restricted to accounts owned by program.
func (s *Server) programAccount(w http.ResponseWriter, r *http.Request, program crypto.Address) (*types.AccountInfo, bool) {
	info, ok := s.lookup(w, r)
	if !ok {
		return nil, false
	}
	if program.IsZero() || info.Owner != program {
		writeError(w, http.StatusNotFound, "account is not owned by the program")
		return nil, false
	}
	return info, true
}

// entityError maps a typed state store failure onto an HTTP status.
func entityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, perrors.ErrUninitializedAccount):
		writeError(w, http.StatusNotFound, "entity not initialized")
	case errors.Is(err, perrors.ErrInvalidAccountData), errors.Is(err, perrors.ErrIncorrectProgramID):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	info, ok := s.lookup(w, r)
	if !ok {
		return
	}
	digest := blake3.Sum256(info.Read())
	writeJSON(w, http.StatusOK, accountResponse{
		Address:    info.Key.String(),
		Owner:      info.Owner.String(),
		Lamports:   info.Lamports,
		Executable: info.Executable,
		Size:       info.Len(),
		Digest:     hex.EncodeToString(digest[:]),
	})
}

func (s *Server) handleDebtType(w http.ResponseWriter, r *http.Request) {
	info, ok := s.programAccount(w, r, s.programs.Vault)
	if !ok {
		return
	}
	dt, err := state.LoadInitialized[debt.DebtType](info)
	if err != nil {
		entityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debtTypeResponse{
		Address:   info.Key.String(),
		DebtToken: dt.DebtToken.String(),
		Owner:     dt.Owner.String(),
	})
}

func (s *Server) handleVaultType(w http.ResponseWriter, r *http.Request) {
	info, ok := s.programAccount(w, r, s.programs.Vault)
	if !ok {
		return
	}
	vt, err := state.LoadInitialized[debt.VaultType](info)
	if err != nil {
		entityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vaultTypeResponse{
		Address:               info.Key.String(),
		DebtType:              vt.DebtType.String(),
		CollateralToken:       vt.CollateralToken.String(),
		CollateralTokenHolder: vt.CollateralTokenHolder.String(),
		PriceOracle:           vt.PriceOracle.String(),
	})
}

func (s *Server) handleVault(w http.ResponseWriter, r *http.Request) {
	info, ok := s.programAccount(w, r, s.programs.Vault)
	if !ok {
		return
	}
	vault, err := state.LoadInitialized[debt.Vault](info)
	if err != nil {
		entityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vaultResponse{
		Address:          info.Key.String(),
		VaultType:        vault.VaultType.String(),
		Owner:            vault.Owner.String(),
		CollateralAmount: formatUint(vault.CollateralAmount),
		DebtAmount:       formatUint(vault.DebtAmount),
	})
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	info, ok := s.programAccount(w, r, s.programs.Faucet)
	if !ok {
		return
	}
	f, err := state.LoadInitialized[faucet.Faucet](info)
	if err != nil {
		entityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, faucetResponse{
		Address:        info.Key.String(),
		Token:          f.Token.String(),
		Amount:         formatUint(f.Config.Amount),
		AmountSupplied: formatUint(f.AmountSupplied),
		UpdatedAt:      f.UpdatedAt,
	})
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, r *http.Request) {
	info, ok := s.lookup(w, r)
	if !ok {
		return
	}
	acct, err := token.LoadAccount(info)
	if err != nil {
		entityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenBalanceResponse{
		Address: info.Key.String(),
		Mint:    acct.Mint.String(),
		Owner:   acct.Owner.String(),
		Amount:  formatUint(acct.Amount),
	})
}
