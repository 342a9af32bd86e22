package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712Domain is the domain separator for typed-data signing. Binding the
// chain id and market contract address into the domain prevents a signature
// from being replayed against another deployment.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// OrderTypedData is the typed-data view of an order, the structure a wallet
// renders when a maker signs via eth_signTypedData_v4.
type OrderTypedData struct {
	Maker      common.Address
	Asset      common.Address
	ItemID     *big.Int
	IsBuy      bool
	Cost       *big.Int
	Unit       common.Address
	Expiration uint64
	Salt       uint64
}

// OperatorApprovalTypedData is what the operator co-signs: one maker hash
// bound to one deadline.
type OperatorApprovalTypedData struct {
	OrderHash common.Hash
	Deadline  uint64
}

// EIP712Signer computes typed-data digests for orders and operator approvals.
type EIP712Signer struct {
	domain EIP712Domain
}

func NewEIP712Signer(domain EIP712Domain) *EIP712Signer {
	return &EIP712Signer{domain: domain}
}

func (e *EIP712Signer) Domain() EIP712Domain { return e.domain }

var domainType = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

var orderType = []apitypes.Type{
	{Name: "maker", Type: "address"},
	{Name: "asset", Type: "address"},
	{Name: "itemId", Type: "uint256"},
	{Name: "isBuy", Type: "bool"},
	{Name: "cost", Type: "uint256"},
	{Name: "unit", Type: "address"},
	{Name: "expiration", Type: "uint64"},
	{Name: "salt", Type: "uint64"},
}

var operatorApprovalType = []apitypes.Type{
	{Name: "orderHash", Type: "bytes32"},
	{Name: "deadline", Type: "uint64"},
}

func (e *EIP712Signer) apiDomain() apitypes.TypedDataDomain {
	return apitypes.TypedDataDomain{
		Name:              e.domain.Name,
		Version:           e.domain.Version,
		ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
		VerifyingContract: e.domain.VerifyingContract.Hex(),
	}
}

// HashOrder returns the typed-data digest a maker signs for an order.
func (e *EIP712Signer) HashOrder(order *OrderTypedData) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": domainType,
			"Order":        orderType,
		},
		PrimaryType: "Order",
		Domain:      e.apiDomain(),
		Message: apitypes.TypedDataMessage{
			"maker":      order.Maker.Hex(),
			"asset":      order.Asset.Hex(),
			"itemId":     order.ItemID.String(),
			"isBuy":      order.IsBuy,
			"cost":       order.Cost.String(),
			"unit":       order.Unit.Hex(),
			"expiration": fmt.Sprintf("%d", order.Expiration),
			"salt":       fmt.Sprintf("%d", order.Salt),
		},
	}
	return e.digest(typedData)
}

// HashOperatorApproval returns the typed-data digest the operator signs.
func (e *EIP712Signer) HashOperatorApproval(approval *OperatorApprovalTypedData) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain":     domainType,
			"OperatorApproval": operatorApprovalType,
		},
		PrimaryType: "OperatorApproval",
		Domain:      e.apiDomain(),
		Message: apitypes.TypedDataMessage{
			"orderHash": hexutil.Encode(approval.OrderHash[:]),
			"deadline":  fmt.Sprintf("%d", approval.Deadline),
		},
	}
	return e.digest(typedData)
}

// digest computes keccak256("\x19\x01" || domainSeparator || structHash).
func (e *EIP712Signer) digest(typedData apitypes.TypedData) ([]byte, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(structHash)))
	return crypto.Keccak256(rawData), nil
}

// SignOrder hashes and signs an order with the given key.
func (e *EIP712Signer) SignOrder(signer *Signer, order *OrderTypedData) ([]byte, error) {
	hash, err := e.HashOrder(order)
	if err != nil {
		return nil, fmt.Errorf("failed to hash order: %w", err)
	}
	return signer.Sign(hash)
}

// SignOperatorApproval hashes and signs an operator approval with the given key.
func (e *EIP712Signer) SignOperatorApproval(signer *Signer, approval *OperatorApprovalTypedData) ([]byte, error) {
	hash, err := e.HashOperatorApproval(approval)
	if err != nil {
		return nil, fmt.Errorf("failed to hash approval: %w", err)
	}
	return signer.Sign(hash)
}
