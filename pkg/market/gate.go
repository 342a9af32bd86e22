package market

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Gate answers one question: is this order, as signed by its maker and
// co-signed by an operator before deadline, authorized for execution now?
// Authorize is pure: no side effects, safe to evaluate repeatedly.
type Gate struct {
	codec    *Codec
	verifier SigVerifier
	roles    RoleRegistry
}

func NewGate(codec *Codec, verifier SigVerifier, roles RoleRegistry) *Gate {
	return &Gate{codec: codec, verifier: verifier, roles: roles}
}

// Authorize validates the full authorization envelope and returns the maker
// hash on success. Checks short-circuit on first failure; the returned error
// is always one of the sentinel kinds.
func (g *Gate) Authorize(order *Order, makerSig []byte, deadline uint64, operatorSig []byte, now uint64) (common.Hash, error) {
	if now > order.Expiration {
		return common.Hash{}, ErrOrderExpired
	}
	if now > deadline {
		return common.Hash{}, ErrOperatorAuthorizationExpired
	}

	makerHash, err := g.codec.MakerHash(order)
	if err != nil {
		return common.Hash{}, err
	}

	maker, err := g.verifier.RecoverMaker(makerHash, order, makerSig)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidMakerSignature, err)
	}
	if maker != order.Maker {
		return common.Hash{}, ErrInvalidMakerSignature
	}

	operatorHash := g.codec.OperatorHash(makerHash, deadline)
	operator, err := g.verifier.RecoverOperator(operatorHash, makerHash, deadline, operatorSig)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidOperatorSignature, err)
	}
	if !g.roles.HasRole(OperatorRole, operator) {
		return common.Hash{}, ErrUnauthorizedOperator
	}

	return makerHash, nil
}

// VerifyTaker checks the taking side's counter-signature: the taker signs
// the same order payload as the maker, so a submitted envelope cannot
// commit a third party's funds without that party's consent.
func (g *Gate) VerifyTaker(order *Order, makerHash common.Hash, taker common.Address, sig []byte) error {
	recovered, err := g.verifier.RecoverMaker(makerHash, order, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTakerSignature, err)
	}
	if recovered != taker {
		return ErrInvalidTakerSignature
	}
	return nil
}
