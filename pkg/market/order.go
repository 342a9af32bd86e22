package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NativeUnit is the sentinel payment unit meaning "native value". Orders
// carrying it settle through the ETH bridge with the wrapped asset.
var NativeUnit = common.Address{}

// Order is the unit of trade intent: one identified non-fungible item
// against a fixed cost in a chosen payment unit. Orders are immutable once
// signed; any field change produces a different maker hash.
type Order struct {
	Maker      common.Address `json:"maker"`      // originator: owner if selling, payer if buying
	Asset      common.Address `json:"asset"`      // non-fungible item contract
	ItemID     *big.Int       `json:"itemId"`     // item identifier within the contract
	IsBuy      bool           `json:"isBuy"`      // true: maker pays cost to acquire; false: maker sells for cost
	Cost       *big.Int       `json:"cost"`       // amount denominated in Unit
	Unit       common.Address `json:"unit"`       // payment token; NativeUnit means native value
	Expiration uint64         `json:"expiration"` // unix seconds after which the order is void
	Salt       uint64         `json:"salt"`       // distinguishes otherwise-identical orders
}

// Validate checks structural sanity independent of any scheme version.
func (o *Order) Validate() error {
	if o.ItemID == nil || o.ItemID.Sign() < 0 {
		return fmt.Errorf("invalid item id")
	}
	if o.Cost == nil || o.Cost.Sign() < 0 {
		return fmt.Errorf("invalid cost")
	}
	if o.ItemID.BitLen() > 256 || o.Cost.BitLen() > 256 {
		return fmt.Errorf("value exceeds uint256")
	}
	return nil
}

// ToArray renders the order in the canonical external-signer layout:
// [maker, asset, itemId, isBuy, cost, unit, expiration, salt].
func (o *Order) ToArray() []any {
	return []any{
		o.Maker.Hex(),
		o.Asset.Hex(),
		o.ItemID.String(),
		o.IsBuy,
		o.Cost.String(),
		o.Unit.Hex(),
		o.Expiration,
		o.Salt,
	}
}

// OrderFromArray parses the canonical 8-element order array as submitted by
// external signers: addresses as hex strings, integers as decimal strings or
// JSON numbers, isBuy as bool.
func OrderFromArray(vals []any) (*Order, error) {
	if len(vals) != 8 {
		return nil, fmt.Errorf("order array must have 8 elements, got %d", len(vals))
	}

	maker, err := parseAddress(vals[0])
	if err != nil {
		return nil, fmt.Errorf("maker: %w", err)
	}
	asset, err := parseAddress(vals[1])
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	itemID, err := parseBig(vals[2])
	if err != nil {
		return nil, fmt.Errorf("itemId: %w", err)
	}
	isBuy, ok := vals[3].(bool)
	if !ok {
		return nil, fmt.Errorf("isBuy must be a bool")
	}
	cost, err := parseBig(vals[4])
	if err != nil {
		return nil, fmt.Errorf("cost: %w", err)
	}
	unit, err := parseAddress(vals[5])
	if err != nil {
		return nil, fmt.Errorf("unit: %w", err)
	}
	expiration, err := parseUint64(vals[6])
	if err != nil {
		return nil, fmt.Errorf("expiration: %w", err)
	}
	salt, err := parseUint64(vals[7])
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}

	order := &Order{
		Maker:      maker,
		Asset:      asset,
		ItemID:     itemID,
		IsBuy:      isBuy,
		Cost:       cost,
		Unit:       unit,
		Expiration: expiration,
		Salt:       salt,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func parseAddress(v any) (common.Address, error) {
	s, ok := v.(string)
	if !ok || !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("expected hex address, got %v", v)
	}
	return common.HexToAddress(s), nil
}

func parseBig(v any) (*big.Int, error) {
	switch x := v.(type) {
	case string:
		n, ok := new(big.Int).SetString(x, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("expected unsigned decimal, got %q", x)
		}
		return n, nil
	case float64:
		if x < 0 || x != float64(uint64(x)) {
			return nil, fmt.Errorf("expected unsigned integer, got %v", x)
		}
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	default:
		return nil, fmt.Errorf("expected integer, got %T", v)
	}
}

func parseUint64(v any) (uint64, error) {
	n, err := parseBig(v)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value exceeds uint64: %s", n)
	}
	return n.Uint64(), nil
}
