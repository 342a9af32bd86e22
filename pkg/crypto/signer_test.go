package crypto

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	if signer.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}

	privHex := signer.PrivateKeyHex()
	if len(privHex) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(privHex))
	}

	pubHex := signer.PublicKeyHex()
	if len(pubHex) != 130 {
		t.Errorf("public key hex length = %d, want 130", len(pubHex))
	}
}

func TestFromPrivateKeyHex(t *testing.T) {
	signer1, _ := GenerateKey()
	privHex := signer1.PrivateKeyHex()

	signer2, err := FromPrivateKeyHex(privHex)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}

	if signer2.Address() != signer1.Address() {
		t.Errorf("address = %s, want %s", signer2.Address().Hex(), signer1.Address().Hex())
	}
}

func TestSignAndRecover(t *testing.T) {
	signer, _ := GenerateKey()

	hash := eth_crypto.Keccak256([]byte("order payload"))
	signature, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	if len(signature) != 65 {
		t.Errorf("signature length = %d, want 65", len(signature))
	}
	if v := signature[64]; v != 27 && v != 28 {
		t.Errorf("recovery id = %d, want 27 or 28", v)
	}

	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		t.Fatalf("failed to recover address: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered address = %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	if !VerifySignature(signer.Address(), hash, signature) {
		t.Error("signature verification failed")
	}

	wrongAddr := common.HexToAddress("0x0000000000000000000000000000000000000001")
	if VerifySignature(wrongAddr, hash, signature) {
		t.Error("signature should not verify with wrong address")
	}
}

func TestSignPersonal(t *testing.T) {
	signer, _ := GenerateKey()

	hash := eth_crypto.Keccak256([]byte("maker hash"))
	signature, err := signer.SignPersonal(hash)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	// Recovery must replicate the prefix wrapping exactly.
	recovered, err := RecoverAddress(PersonalDigest(hash), signature)
	if err != nil {
		t.Fatalf("failed to recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered = %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	// Recovering against the bare hash must not yield the signer.
	bare, err := RecoverAddress(hash, signature)
	if err == nil && bare == signer.Address() {
		t.Error("bare hash recovery should not match signer")
	}
}

func TestRecoverRejectsMalformed(t *testing.T) {
	signer, _ := GenerateKey()
	hash := eth_crypto.Keccak256([]byte("payload"))
	signature, _ := signer.Sign(hash)

	if _, err := RecoverAddress(hash, []byte{1, 2, 3}); err == nil {
		t.Error("short signature should be rejected")
	}

	if _, err := RecoverAddress([]byte("short"), signature); err == nil {
		t.Error("short hash should be rejected")
	}

	// Recovery id outside {0,1,27,28}
	bad := make([]byte, 65)
	copy(bad, signature)
	bad[64] = 5
	if _, err := RecoverAddress(hash, bad); err == nil {
		t.Error("invalid recovery id should be rejected")
	}

	// High s component (malleated signature)
	r, s, v, _ := SignatureToRSV(signature)
	curveN := eth_crypto.S256().Params().N
	sHigh := new(big.Int).Sub(curveN, s)
	malleated := RSVToSignature(r, sHigh, v)
	if _, err := RecoverAddress(hash, malleated); err == nil {
		t.Error("high-s signature should be rejected")
	}
}

func TestEIP712OrderRoundTrip(t *testing.T) {
	signer, _ := GenerateKey()

	domain := EIP712Domain{
		Name:              "OpenOcean",
		Version:           "1",
		ChainID:           big.NewInt(42),
		VerifyingContract: common.HexToAddress("0x893b16335a0cf38E0413Bde347357bfc27de9F4b"),
	}
	e := NewEIP712Signer(domain)

	order := &OrderTypedData{
		Maker:      signer.Address(),
		Asset:      common.HexToAddress("0x1100000000000000000000000000000000000011"),
		ItemID:     big.NewInt(42),
		IsBuy:      false,
		Cost:       new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18)),
		Unit:       common.HexToAddress("0x2200000000000000000000000000000000000022"),
		Expiration: 2000000000,
		Salt:       0,
	}

	signature, err := e.SignOrder(signer, order)
	if err != nil {
		t.Fatalf("failed to sign order: %v", err)
	}

	hash, err := e.HashOrder(order)
	if err != nil {
		t.Fatalf("failed to hash order: %v", err)
	}
	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		t.Fatalf("failed to recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered = %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	// Tampering with any field changes the digest.
	tampered := *order
	tampered.Cost = new(big.Int).Add(order.Cost, big.NewInt(1))
	tamperedHash, _ := e.HashOrder(&tampered)
	if common.BytesToHash(hash) == common.BytesToHash(tamperedHash) {
		t.Error("tampered order produced identical digest")
	}
}

func TestEIP712OperatorApprovalDeadlineBinding(t *testing.T) {
	signer, _ := GenerateKey()
	e := NewEIP712Signer(EIP712Domain{
		Name:    "OpenOcean",
		Version: "1",
		ChainID: big.NewInt(42),
	})

	orderHash := common.BytesToHash(eth_crypto.Keccak256([]byte("order")))

	sig, err := e.SignOperatorApproval(signer, &OperatorApprovalTypedData{
		OrderHash: orderHash,
		Deadline:  3000000000,
	})
	if err != nil {
		t.Fatalf("failed to sign approval: %v", err)
	}

	// Same hash, different deadline: signature must not recover to signer.
	otherHash, _ := e.HashOperatorApproval(&OperatorApprovalTypedData{
		OrderHash: orderHash,
		Deadline:  3000000001,
	})
	recovered, err := RecoverAddress(otherHash, sig)
	if err == nil && recovered == signer.Address() {
		t.Error("approval signature valid for a different deadline")
	}
}

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("failed to generate salt: %v", err)
	}
	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("failed to generate second salt: %v", err)
	}
	if salt1 == salt2 {
		t.Error("generated identical salts (unlikely but possible - retry test)")
	}
}

func TestChecksumAddress(t *testing.T) {
	// Known checksum vectors from EIP-55.
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0x52908400098527886E0F7030069857D2E4169EE7",
		"0xde709f2102306220921060314715629080e2fb77",
	}
	for _, want := range vectors {
		if got := ChecksumAddress(common.HexToAddress(want)); got != want {
			t.Errorf("ChecksumAddress = %s, want %s", got, want)
		}
	}
}
