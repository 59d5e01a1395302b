package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is the stable numeric identifier surfaced to the host for a failed
// call. Program-specific failures use small custom values; failures shared
// with the host runtime sit in the upper half (index << 32).
type Code uint64

const builtinShift = 32

func builtin(index uint64) Code { return Code(index << builtinShift) }

// Custom codes. The numbering is part of the wire contract.
const (
	CodeOwnerMismatch Code = iota
	CodeFaucetOverflow
	CodeUnexpectedProgramAccount
	CodeVaultTypeMismatch
	CodeDebtTypeMismatch
	CodeCollateralHolderAccountMismatch
	CodeInvalidDebtToken
	CodeInvalidPriceOracle
	CodeOverflow
	CodeUnknownError
)

// Built-in codes.
var (
	CodeInvalidArgument           = builtin(2)
	CodeInvalidInstructionData    = builtin(3)
	CodeInvalidAccountData        = builtin(4)
	CodeAccountDataSizeMismatch   = builtin(5)
	CodeInsufficientFunds         = builtin(6)
	CodeIncorrectProgramID        = builtin(7)
	CodeMissingRequiredSignature  = builtin(8)
	CodeAccountAlreadyInitialized = builtin(9)
	CodeUninitializedAccount      = builtin(10)
	CodeNotEnoughAccountKeys      = builtin(11)
	CodeReadonlyAccount           = builtin(12)
	CodeMaxSeedLengthExceeded     = builtin(13)
	CodeInvalidSeeds              = builtin(14)
	CodeEncodeFailure             = builtin(15)
	CodeAccountNotRentExempt      = builtin(16)
)

// IsBuiltin reports whether the code belongs to the shared host range.
func (c Code) IsBuiltin() bool { return c>>builtinShift != 0 }

func (c Code) String() string {
	if err, ok := registry[c]; ok {
		return err.Name
	}
	if c.IsBuiltin() {
		return fmt.Sprintf("Builtin(%d)", uint64(c)>>builtinShift)
	}
	return fmt.Sprintf("Custom(%d)", uint64(c))
}

// Error is a typed program failure. Values are compared by code, so wrapped
// errors still satisfy errors.Is against the package sentinels.
type Error struct {
	Code    Code
	Name    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var registry = make(map[Code]*Error)

func register(code Code, name, msg string) *Error {
	err := &Error{Code: code, Name: name, Message: msg}
	registry[code] = err
	return err
}

var (
	ErrOwnerMismatch                   = register(CodeOwnerMismatch, "OwnerMismatch", "owner mismatch")
	ErrFaucetOverflow                  = register(CodeFaucetOverflow, "FaucetOverflow", "faucet overflow")
	ErrUnexpectedProgramAccount        = register(CodeUnexpectedProgramAccount, "UnexpectedProgramAccount", "unexpected program account")
	ErrVaultTypeMismatch               = register(CodeVaultTypeMismatch, "VaultTypeMismatch", "vault type mismatch")
	ErrDebtTypeMismatch                = register(CodeDebtTypeMismatch, "DebtTypeMismatch", "debt type mismatch")
	ErrCollateralHolderAccountMismatch = register(CodeCollateralHolderAccountMismatch, "CollateralHolderAccountMismatch", "collateral holder account mismatch")
	ErrInvalidDebtToken                = register(CodeInvalidDebtToken, "InvalidDebtToken", "invalid debt token")
	ErrInvalidPriceOracle              = register(CodeInvalidPriceOracle, "InvalidPriceOracle", "invalid price oracle")
	ErrOverflow                        = register(CodeOverflow, "Overflow", "overflow")
	ErrUnknown                         = register(CodeUnknownError, "UnknownError", "unknown error")

	ErrInvalidArgument           = register(CodeInvalidArgument, "InvalidArgument", "invalid argument")
	ErrInvalidInstructionData    = register(CodeInvalidInstructionData, "InvalidInstructionData", "invalid instruction data")
	ErrInvalidAccountData        = register(CodeInvalidAccountData, "InvalidAccountData", "invalid account data")
	ErrAccountDataSizeMismatch   = register(CodeAccountDataSizeMismatch, "AccountDataSizeMismatch", "account data size mismatch")
	ErrInsufficientFunds         = register(CodeInsufficientFunds, "InsufficientFunds", "insufficient funds")
	ErrIncorrectProgramID        = register(CodeIncorrectProgramID, "IncorrectProgramID", "incorrect program id")
	ErrMissingRequiredSignature  = register(CodeMissingRequiredSignature, "MissingRequiredSignature", "missing required signature")
	ErrAccountAlreadyInitialized = register(CodeAccountAlreadyInitialized, "AccountAlreadyInitialized", "account already initialized")
	ErrUninitializedAccount      = register(CodeUninitializedAccount, "UninitializedAccount", "uninitialized account")
	ErrNotEnoughAccountKeys      = register(CodeNotEnoughAccountKeys, "NotEnoughAccountKeys", "not enough account keys")
	ErrReadonlyAccount           = register(CodeReadonlyAccount, "ReadonlyAccount", "write to read-only account")
	ErrMaxSeedLengthExceeded     = register(CodeMaxSeedLengthExceeded, "MaxSeedLengthExceeded", "max seed length exceeded")
	ErrInvalidSeeds              = register(CodeInvalidSeeds, "InvalidSeeds", "invalid seeds")
	ErrEncodeFailure             = register(CodeEncodeFailure, "EncodeFailure", "account data encode failure")
	ErrAccountNotRentExempt      = register(CodeAccountNotRentExempt, "AccountNotRentExempt", "account not rent exempt")
)

// Wrap annotates a sentinel with call-specific detail while keeping its code.
func Wrap(sentinel *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// CodeOf extracts the code carried by err. Errors from outside the taxonomy
// map to UnknownError.
func CodeOf(err error) Code {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Code
	}
	return CodeUnknownError
}

// FromCode translates a code from another error space into the local
// taxonomy, falling back to UnknownError.
func FromCode(code Code) *Error {
	if err, ok := registry[code]; ok {
		return err
	}
	return ErrUnknown
}

// FromCustom translates a foreign error into a local custom error. Only
// custom codes are recognised; built-in failures and untyped errors become
// UnknownError.
func FromCustom(err error) *Error {
	var typed *Error
	if !stderrors.As(err, &typed) || typed.Code.IsBuiltin() {
		return ErrUnknown
	}
	return FromCode(typed.Code)
}
