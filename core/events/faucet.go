package events

import (
	"debtvault/core/types"
	"debtvault/crypto"
)

const (
	TypeFaucetInitialized = "faucet.initialized"
	TypeFaucetDripped     = "faucet.dripped"
)

type FaucetInitialized struct {
	Faucet crypto.Address
	Token  crypto.Address
	Amount uint64
}

func (FaucetInitialized) EventType() string { return TypeFaucetInitialized }

func (e FaucetInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeFaucetInitialized,
		Attributes: map[string]string{
			"faucet": e.Faucet.String(),
			"token":  e.Token.String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// FaucetDripped reports a fixed-amount mint from a faucet.
type FaucetDripped struct {
	Faucet         crypto.Address
	Receiver       crypto.Address
	Amount         uint64
	AmountSupplied uint64
	Slot           uint64
	MinterNonce    uint8
}

func (FaucetDripped) EventType() string { return TypeFaucetDripped }

func (e FaucetDripped) Event() *types.Event {
	return &types.Event{
		Type: TypeFaucetDripped,
		Attributes: map[string]string{
			"faucet":         e.Faucet.String(),
			"receiver":       e.Receiver.String(),
			"amount":         formatAmount(e.Amount),
			"amountSupplied": formatAmount(e.AmountSupplied),
			"slot":           formatAmount(e.Slot),
			"minterNonce":    formatNonce(e.MinterNonce),
		},
	}
}
