package market

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/sorawit/openocean/pkg/crypto"
)

// SigVerifier recovers the identity behind a maker signature or an operator
// co-signature. Two variants exist across protocol revisions: raw-hash
// personal-sign and structured typed-data sign. Both share the gate's call
// sites; the deployment picks one at construction.
type SigVerifier interface {
	// RecoverMaker recovers the signer of an order. Personal-sign uses the
	// precomputed maker hash; typed-data reconstructs the digest from the
	// order fields.
	RecoverMaker(makerHash common.Hash, order *Order, sig []byte) (common.Address, error)

	// RecoverOperator recovers the co-signer of {makerHash, deadline}.
	RecoverOperator(operatorHash common.Hash, makerHash common.Hash, deadline uint64, sig []byte) (common.Address, error)
}

// PersonalVerifier verifies eth_sign style signatures: the signer wrapped
// the raw hash in the "\x19Ethereum Signed Message:\n32" envelope.
type PersonalVerifier struct{}

func (PersonalVerifier) RecoverMaker(makerHash common.Hash, _ *Order, sig []byte) (common.Address, error) {
	return crypto.RecoverAddress(crypto.PersonalDigest(makerHash.Bytes()), sig)
}

func (PersonalVerifier) RecoverOperator(operatorHash common.Hash, _ common.Hash, _ uint64, sig []byte) (common.Address, error) {
	return crypto.RecoverAddress(crypto.PersonalDigest(operatorHash.Bytes()), sig)
}

// TypedDataVerifier verifies EIP-712 signatures. The domain separator binds
// signatures to this market's chain id and contract address.
type TypedDataVerifier struct {
	signer *crypto.EIP712Signer
}

func NewTypedDataVerifier(domain crypto.EIP712Domain) *TypedDataVerifier {
	return &TypedDataVerifier{signer: crypto.NewEIP712Signer(domain)}
}

func (v *TypedDataVerifier) RecoverMaker(_ common.Hash, order *Order, sig []byte) (common.Address, error) {
	digest, err := v.signer.HashOrder(&crypto.OrderTypedData{
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
		return common.Address{}, err
	}
	return crypto.RecoverAddress(digest, sig)
}

func (v *TypedDataVerifier) RecoverOperator(_ common.Hash, makerHash common.Hash, deadline uint64, sig []byte) (common.Address, error) {
	digest, err := v.signer.HashOperatorApproval(&crypto.OperatorApprovalTypedData{
		OrderHash: makerHash,
		Deadline:  deadline,
	})
	if err != nil {
		return common.Address{}, err
	}
	return crypto.RecoverAddress(digest, sig)
}
