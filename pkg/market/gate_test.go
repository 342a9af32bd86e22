package market

import (
	"errors"
	"math/big"
	"testing"

	"github.com/sorawit/openocean/pkg/crypto"
)

type gateFixture struct {
	codec    *Codec
	gate     *Gate
	roles    *Roles
	maker    *crypto.Signer
	operator *crypto.Signer
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	maker, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate maker key: %v", err)
	}
	operator, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate operator key: %v", err)
	}

	codec := NewCodec(SchemeV2, testChainID, testMarket)
	roles := NewRoles()
	roles.Grant(OperatorRole, operator.Address())

	return &gateFixture{
		codec:    codec,
		gate:     NewGate(codec, PersonalVerifier{}, roles),
		roles:    roles,
		maker:    maker,
		operator: operator,
	}
}

// signedOrder builds a fully authorized envelope for the fixture's maker.
func (f *gateFixture) signedOrder(t *testing.T, deadline uint64) (*Order, []byte, []byte) {
	t.Helper()

	order := testOrder()
	order.Maker = f.maker.Address()

	makerHash, err := f.codec.MakerHash(order)
	if err != nil {
		t.Fatalf("maker hash: %v", err)
	}
	makerSig, err := f.maker.SignPersonal(makerHash.Bytes())
	if err != nil {
		t.Fatalf("maker sign: %v", err)
	}

	operatorHash := f.codec.OperatorHash(makerHash, deadline)
	operatorSig, err := f.operator.SignPersonal(operatorHash.Bytes())
	if err != nil {
		t.Fatalf("operator sign: %v", err)
	}
	return order, makerSig, operatorSig
}

func TestGateAuthorize(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, operatorSig := f.signedOrder(t, 3000000000)

	makerHash, err := f.gate.Authorize(order, makerSig, 3000000000, operatorSig, 1900000000)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	want, _ := f.codec.MakerHash(order)
	if makerHash != want {
		t.Errorf("authorize returned hash %s, want %s", makerHash.Hex(), want.Hex())
	}

	// Pure: a second evaluation succeeds identically.
	if _, err := f.gate.Authorize(order, makerSig, 3000000000, operatorSig, 1900000000); err != nil {
		t.Errorf("second authorize: %v", err)
	}
}

func TestGateExpiredOrder(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, operatorSig := f.signedOrder(t, 3000000000)

	// order.Expiration is 2000000000
	_, err := f.gate.Authorize(order, makerSig, 3000000000, operatorSig, 2100000000)
	if !errors.Is(err, ErrOrderExpired) {
		t.Errorf("expected ErrOrderExpired, got %v", err)
	}
}

func TestGateExpiredDeadline(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, operatorSig := f.signedOrder(t, 1800000000)

	_, err := f.gate.Authorize(order, makerSig, 1800000000, operatorSig, 1900000000)
	if !errors.Is(err, ErrOperatorAuthorizationExpired) {
		t.Errorf("expected ErrOperatorAuthorizationExpired, got %v", err)
	}
}

func TestGateWrongMakerSigner(t *testing.T) {
	f := newGateFixture(t)
	order, _, operatorSig := f.signedOrder(t, 3000000000)

	imposter, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	makerHash, _ := f.codec.MakerHash(order)
	forgedSig, err := imposter.SignPersonal(makerHash.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = f.gate.Authorize(order, forgedSig, 3000000000, operatorSig, 1900000000)
	if !errors.Is(err, ErrInvalidMakerSignature) {
		t.Errorf("expected ErrInvalidMakerSignature, got %v", err)
	}
}

func TestGateTamperedOrder(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, operatorSig := f.signedOrder(t, 3000000000)

	// Lowering the cost after signing invalidates the maker signature.
	order.Cost = big.NewInt(1)
	_, err := f.gate.Authorize(order, makerSig, 3000000000, operatorSig, 1900000000)
	if !errors.Is(err, ErrInvalidMakerSignature) {
		t.Errorf("expected ErrInvalidMakerSignature, got %v", err)
	}
}

func TestGateUnauthorizedOperator(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, _ := f.signedOrder(t, 3000000000)

	rogue, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	makerHash, _ := f.codec.MakerHash(order)
	operatorHash := f.codec.OperatorHash(makerHash, 3000000000)
	rogueSig, err := rogue.SignPersonal(operatorHash.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = f.gate.Authorize(order, makerSig, 3000000000, rogueSig, 1900000000)
	if !errors.Is(err, ErrUnauthorizedOperator) {
		t.Errorf("expected ErrUnauthorizedOperator, got %v", err)
	}
}

func TestGateRevokedOperator(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, operatorSig := f.signedOrder(t, 3000000000)

	f.roles.Revoke(OperatorRole, f.operator.Address())
	_, err := f.gate.Authorize(order, makerSig, 3000000000, operatorSig, 1900000000)
	if !errors.Is(err, ErrUnauthorizedOperator) {
		t.Errorf("expected ErrUnauthorizedOperator, got %v", err)
	}
}

func TestGateDeadlineMismatch(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, operatorSig := f.signedOrder(t, 3000000000)

	// An operator signature over one deadline does not authorize another.
	_, err := f.gate.Authorize(order, makerSig, 3000000001, operatorSig, 1900000000)
	if err == nil || (!errors.Is(err, ErrInvalidOperatorSignature) && !errors.Is(err, ErrUnauthorizedOperator)) {
		t.Errorf("expected operator rejection, got %v", err)
	}
}

func TestGateMalformedSignatures(t *testing.T) {
	f := newGateFixture(t)
	order, makerSig, _ := f.signedOrder(t, 3000000000)

	if _, err := f.gate.Authorize(order, []byte{1, 2, 3}, 3000000000, nil, 1900000000); !errors.Is(err, ErrInvalidMakerSignature) {
		t.Errorf("short maker sig: expected ErrInvalidMakerSignature, got %v", err)
	}
	if _, err := f.gate.Authorize(order, makerSig, 3000000000, make([]byte, 65), 1900000000); !errors.Is(err, ErrInvalidOperatorSignature) {
		t.Errorf("zero operator sig: expected ErrInvalidOperatorSignature, got %v", err)
	}
}

func TestGateVerifyTaker(t *testing.T) {
	f := newGateFixture(t)
	order, _, _ := f.signedOrder(t, 3000000000)
	makerHash, _ := f.codec.MakerHash(order)

	taker, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	takerSig, err := taker.SignPersonal(makerHash.Bytes())
	if err != nil {
		t.Fatalf("taker sign: %v", err)
	}

	if err := f.gate.VerifyTaker(order, makerHash, taker.Address(), takerSig); err != nil {
		t.Errorf("verify taker: %v", err)
	}

	// A valid signature from a different key does not grant consent for
	// the claimed taker.
	other, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherSig, err := other.SignPersonal(makerHash.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if err := f.gate.VerifyTaker(order, makerHash, taker.Address(), otherSig); !errors.Is(err, ErrInvalidTakerSignature) {
		t.Errorf("expected ErrInvalidTakerSignature, got %v", err)
	}

	if err := f.gate.VerifyTaker(order, makerHash, taker.Address(), []byte{1, 2, 3}); !errors.Is(err, ErrInvalidTakerSignature) {
		t.Errorf("short sig: expected ErrInvalidTakerSignature, got %v", err)
	}
	if err := f.gate.VerifyTaker(order, makerHash, taker.Address(), nil); !errors.Is(err, ErrInvalidTakerSignature) {
		t.Errorf("nil sig: expected ErrInvalidTakerSignature, got %v", err)
	}
}

func TestGateTypedDataVerifier(t *testing.T) {
	maker, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	operator, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	domain := crypto.EIP712Domain{
		Name:              "OpenOcean",
		Version:           "1",
		ChainID:           testChainID,
		VerifyingContract: testMarket,
	}
	signer := crypto.NewEIP712Signer(domain)

	codec := NewCodec(SchemeV2, testChainID, testMarket)
	roles := NewRoles()
	roles.Grant(OperatorRole, operator.Address())
	gate := NewGate(codec, NewTypedDataVerifier(domain), roles)

	order := testOrder()
	order.Maker = maker.Address()

	makerDigest, err := signer.HashOrder(&crypto.OrderTypedData{
		Maker:      order.Maker,
		Asset:      order.Asset,
		ItemID:     order.ItemID,
		IsBuy:      order.IsBuy,
		Cost:       order.Cost,
		Unit:       order.Unit,
		Expiration: order.Expiration,
		Salt:       order.Salt,
	})
	if err != nil {
		t.Fatalf("order digest: %v", err)
	}
	makerSig, err := maker.Sign(makerDigest)
	if err != nil {
		t.Fatalf("maker sign: %v", err)
	}

	makerHash, _ := codec.MakerHash(order)
	operatorDigest, err := signer.HashOperatorApproval(&crypto.OperatorApprovalTypedData{
		OrderHash: makerHash,
		Deadline:  3000000000,
	})
	if err != nil {
		t.Fatalf("approval digest: %v", err)
	}
	operatorSig, err := operator.Sign(operatorDigest)
	if err != nil {
		t.Fatalf("operator sign: %v", err)
	}

	got, err := gate.Authorize(order, makerSig, 3000000000, operatorSig, 1900000000)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if got != makerHash {
		t.Errorf("authorize returned hash %s, want %s", got.Hex(), makerHash.Hex())
	}

	// A personal-sign signature is not a valid typed-data signature.
	personalSig, err := maker.SignPersonal(makerHash.Bytes())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := gate.Authorize(order, personalSig, 3000000000, operatorSig, 1900000000); !errors.Is(err, ErrInvalidMakerSignature) {
		t.Errorf("expected ErrInvalidMakerSignature, got %v", err)
	}
}
