package market

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testChainID = big.NewInt(42)
	testMarket  = common.HexToAddress("0x893b16335a0cf38E0413Bde347357bfc27de9F4b")
)

func testOrder() *Order {
	return &Order{
		Maker:      common.HexToAddress("0xAA00000000000000000000000000000000000000"),
		Asset:      common.HexToAddress("0x1100000000000000000000000000000000000011"),
		ItemID:     big.NewInt(42),
		IsBuy:      false,
		Cost:       new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		Unit:       common.HexToAddress("0x2200000000000000000000000000000000000022"),
		Expiration: 2000000000,
		Salt:       7,
	}
}

func TestEncodeOrderLayouts(t *testing.T) {
	order := testOrder()

	// addr(20)*3 + itemId(32) + isBuy(1) + cost(32) + unit(20) + expr(8) + salt(8)
	v1, err := NewCodec(SchemeV1, testChainID, testMarket).EncodeOrder(order)
	if err != nil {
		t.Fatalf("v1 encode: %v", err)
	}
	if len(v1) != 161 {
		t.Errorf("v1 length = %d, want 161", len(v1))
	}

	// v2 prefixes a uint256 chain id
	v2, err := NewCodec(SchemeV2, testChainID, testMarket).EncodeOrder(order)
	if err != nil {
		t.Fatalf("v2 encode: %v", err)
	}
	if len(v2) != 193 {
		t.Errorf("v2 length = %d, want 193", len(v2))
	}
	if common.Bytes2Hex(v2[32:]) != common.Bytes2Hex(v1) {
		t.Error("v2 body should equal v1 encoding after the chain id prefix")
	}

	// v3 drops the unit field
	nativeOrder := testOrder()
	nativeOrder.Unit = NativeUnit
	v3, err := NewCodec(SchemeV3, testChainID, testMarket).EncodeOrder(nativeOrder)
	if err != nil {
		t.Fatalf("v3 encode: %v", err)
	}
	if len(v3) != 173 {
		t.Errorf("v3 length = %d, want 173", len(v3))
	}
}

func TestSchemeV3RejectsExplicitUnit(t *testing.T) {
	codec := NewCodec(SchemeV3, testChainID, testMarket)

	if _, err := codec.MakerHash(testOrder()); !errors.Is(err, ErrSchemeVersionMismatch) {
		t.Errorf("expected ErrSchemeVersionMismatch, got %v", err)
	}
}

func TestEncodeOrderRejectsMalformedOrder(t *testing.T) {
	codec := NewCodec(SchemeV2, testChainID, testMarket)

	order := testOrder()
	order.Cost = nil
	if _, err := codec.MakerHash(order); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("nil cost: expected ErrInvalidOrder, got %v", err)
	}

	order = testOrder()
	order.ItemID = big.NewInt(-1)
	_, err := codec.MakerHash(order)
	if !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("negative item id: expected ErrInvalidOrder, got %v", err)
	}
	if errors.Is(err, ErrSchemeVersionMismatch) {
		t.Error("structural validation failure reported as a scheme mismatch")
	}
}

func TestMakerHashTamperSensitivity(t *testing.T) {
	codec := NewCodec(SchemeV2, testChainID, testMarket)

	base, err := codec.MakerHash(testOrder())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mutations := map[string]func(*Order){
		"maker":      func(o *Order) { o.Maker = common.HexToAddress("0xBB00000000000000000000000000000000000000") },
		"asset":      func(o *Order) { o.Asset = common.HexToAddress("0x3300000000000000000000000000000000000033") },
		"itemId":     func(o *Order) { o.ItemID = big.NewInt(43) },
		"isBuy":      func(o *Order) { o.IsBuy = true },
		"cost":       func(o *Order) { o.Cost = new(big.Int).Add(o.Cost, big.NewInt(1)) },
		"unit":       func(o *Order) { o.Unit = common.HexToAddress("0x4400000000000000000000000000000000000044") },
		"expiration": func(o *Order) { o.Expiration++ },
		"salt":       func(o *Order) { o.Salt++ },
	}

	for field, mutate := range mutations {
		order := testOrder()
		mutate(order)
		hash, err := codec.MakerHash(order)
		if err != nil {
			t.Fatalf("%s: hash failed: %v", field, err)
		}
		if hash == base {
			t.Errorf("mutating %s did not change the maker hash", field)
		}
	}
}

func TestMakerHashContextBinding(t *testing.T) {
	order := testOrder()

	h1, _ := NewCodec(SchemeV2, testChainID, testMarket).MakerHash(order)
	h2, _ := NewCodec(SchemeV2, big.NewInt(1), testMarket).MakerHash(order)
	if h1 == h2 {
		t.Error("different chain ids produced identical maker hashes")
	}

	otherMarket := common.HexToAddress("0x0000000000000000000000000000000000000001")
	h3, _ := NewCodec(SchemeV2, testChainID, otherMarket).MakerHash(order)
	if h1 == h3 {
		t.Error("different market addresses produced identical maker hashes")
	}
}

func TestOperatorHashDeadlineBinding(t *testing.T) {
	codec := NewCodec(SchemeV2, testChainID, testMarket)

	makerHash, err := codec.MakerHash(testOrder())
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	h1 := codec.OperatorHash(makerHash, 3000000000)
	h2 := codec.OperatorHash(makerHash, 3000000001)
	if h1 == h2 {
		t.Error("different deadlines produced identical operator hashes")
	}

	otherOrder := testOrder()
	otherOrder.Salt++
	otherMakerHash, _ := codec.MakerHash(otherOrder)
	h3 := codec.OperatorHash(otherMakerHash, 3000000000)
	if h1 == h3 {
		t.Error("different maker hashes produced identical operator hashes")
	}
}

func TestOrderFromArray(t *testing.T) {
	order := testOrder()

	parsed, err := OrderFromArray(order.ToArray())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	codec := NewCodec(SchemeV2, testChainID, testMarket)
	h1, _ := codec.MakerHash(order)
	h2, err := codec.MakerHash(parsed)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Error("array round-trip changed the maker hash")
	}
}

func TestOrderFromArrayRejectsMalformed(t *testing.T) {
	cases := map[string][]any{
		"short":       {"0xAA00000000000000000000000000000000000000"},
		"bad address": {"nope", "0x1100000000000000000000000000000000000011", "42", false, "100", "0x2200000000000000000000000000000000000022", float64(2000000000), float64(0)},
		"bad isBuy":   {"0xAA00000000000000000000000000000000000000", "0x1100000000000000000000000000000000000011", "42", "false", "100", "0x2200000000000000000000000000000000000022", float64(2000000000), float64(0)},
		"bad cost":    {"0xAA00000000000000000000000000000000000000", "0x1100000000000000000000000000000000000011", "42", false, "-5", "0x2200000000000000000000000000000000000022", float64(2000000000), float64(0)},
	}

	for name, vals := range cases {
		if _, err := OrderFromArray(vals); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}
