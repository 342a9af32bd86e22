package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EthBridge is the satellite path for buyers paying in native value: the
// attached value is wrapped into the fungible unit, credited to the buyer,
// and the core trade runs with the wrapped asset as the payment unit.
type EthBridge struct {
	marketplace *Marketplace
	wrapped     WrappedToken
	ledger      *Ledger

	// wrappedUnit is the fungible representation the bridge deposits into;
	// scheme v3 orders imply it as their payment unit.
	wrappedUnit common.Address
}

func NewEthBridge(marketplace *Marketplace, wrapped WrappedToken, ledger *Ledger, wrappedUnit common.Address) *EthBridge {
	return &EthBridge{
		marketplace: marketplace,
		wrapped:     wrapped,
		ledger:      ledger,
		wrappedUnit: wrappedUnit,
	}
}

// TradeWithValue settles a buy against attached native value. Every
// validation, including the full authorization envelope, runs before any
// value moves; a failed validation leaves no state change.
func (b *EthBridge) TradeWithValue(req TradeRequest, value *big.Int) (TradeResult, error) {
	order := req.Order
	if value == nil || value.Cmp(order.Cost) != 0 {
		return TradeResult{}, ErrValueMismatch
	}
	if order.Unit != NativeUnit && order.Unit != b.wrappedUnit {
		return TradeResult{}, ErrSchemeVersionMismatch
	}
	if _, err := b.marketplace.Authorize(req); err != nil {
		return TradeResult{}, err
	}

	// The buyer is whichever side of the trade pays.
	buyer := req.Sender
	if req.Counterparty != (common.Address{}) {
		buyer = req.Counterparty
	}
	if order.IsBuy {
		buyer = order.Maker
	}

	if err := b.wrapped.Deposit(buyer, value); err != nil {
		return TradeResult{}, err
	}
	if err := b.ledger.Deposit(buyer, value); err != nil {
		return TradeResult{}, err
	}

	result, err := b.marketplace.Trade(req)
	if err != nil {
		// The wrap itself cannot be reversed here; the buyer keeps the
		// wrapped tokens and the fronted escrow credit is returned.
		if rerr := b.ledger.Withdraw(buyer, value); rerr != nil {
			return TradeResult{}, fmt.Errorf("%w (escrow refund failed: %v)", err, rerr)
		}
		return TradeResult{}, err
	}
	return result, nil
}
