package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Settlement moves the payment leg of a trade. Strategies are
// interchangeable and selected by deployment configuration; the trade
// executor never cares which one is active.
type Settlement interface {
	// Settle moves cost of unit from payer to payee, or fails with no
	// state change.
	Settle(payer, payee common.Address, unit common.Address, cost *big.Int) error

	// Unwind reverses a settlement that already happened. The executor
	// calls it only when the asset leg fails after payment moved.
	Unwind(payer, payee common.Address, unit common.Address, cost *big.Int) error
}

// DirectTransfer settles through the external token registry with a single
// transferFrom, relying on the payer's pre-granted allowance.
type DirectTransfer struct {
	tokens TokenRegistry
}

func NewDirectTransfer(tokens TokenRegistry) *DirectTransfer {
	return &DirectTransfer{tokens: tokens}
}

func (d *DirectTransfer) Settle(payer, payee common.Address, unit common.Address, cost *big.Int) error {
	if err := d.tokens.TransferFrom(unit, payer, payee, cost); err != nil {
		return ErrInsufficientAllowanceOrBalance
	}
	return nil
}

func (d *DirectTransfer) Unwind(payer, payee common.Address, unit common.Address, cost *big.Int) error {
	return d.tokens.TransferFrom(unit, payee, payer, cost)
}

// EscrowSettlement settles against internal escrow balances. No external
// call is made, so this path cannot be griefed by a malicious token.
type EscrowSettlement struct {
	ledger *Ledger
}

func NewEscrowSettlement(ledger *Ledger) *EscrowSettlement {
	return &EscrowSettlement{ledger: ledger}
}

func (e *EscrowSettlement) Settle(payer, payee common.Address, _ common.Address, cost *big.Int) error {
	return e.ledger.Transfer(payer, payee, cost)
}

func (e *EscrowSettlement) Unwind(payer, payee common.Address, _ common.Address, cost *big.Int) error {
	return e.ledger.Transfer(payee, payer, cost)
}
