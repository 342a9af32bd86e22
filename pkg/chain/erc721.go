package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc721ABIJSON = `[
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"name":"isApprovedForAll","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

var erc721ABI = mustParseABI(erc721ABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid ABI: " + err.Error())
	}
	return parsed
}

// ERC721Registry implements market.AssetRegistry against live ERC721
// contracts. The marketplace key is the approved operator moving items.
type ERC721Registry struct {
	caller *Caller
}

func NewERC721Registry(caller *Caller) *ERC721Registry {
	return &ERC721Registry{caller: caller}
}

func (r *ERC721Registry) OwnerOf(asset common.Address, itemID *big.Int) (common.Address, error) {
	ctx, cancel := r.caller.callContext()
	defer cancel()

	data, err := erc721ABI.Pack("ownerOf", itemID)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to pack ownerOf: %w", err)
	}

	out, err := r.caller.call(ctx, asset, data)
	if err != nil {
		return common.Address{}, err
	}

	results, err := erc721ABI.Unpack("ownerOf", out)
	if err != nil || len(results) != 1 {
		return common.Address{}, fmt.Errorf("failed to unpack ownerOf: %w", err)
	}
	owner, ok := results[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result type")
	}
	return owner, nil
}

func (r *ERC721Registry) IsApproved(asset common.Address, owner common.Address) (bool, error) {
	ctx, cancel := r.caller.callContext()
	defer cancel()

	data, err := erc721ABI.Pack("isApprovedForAll", owner, r.caller.SignerAddress())
	if err != nil {
		return false, fmt.Errorf("failed to pack isApprovedForAll: %w", err)
	}

	out, err := r.caller.call(ctx, asset, data)
	if err != nil {
		return false, err
	}

	results, err := erc721ABI.Unpack("isApprovedForAll", out)
	if err != nil || len(results) != 1 {
		return false, fmt.Errorf("failed to unpack isApprovedForAll: %w", err)
	}
	approved, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isApprovedForAll result type")
	}
	return approved, nil
}

func (r *ERC721Registry) TransferFrom(asset common.Address, from, to common.Address, itemID *big.Int) error {
	ctx, cancel := r.caller.callContext()
	defer cancel()

	data, err := erc721ABI.Pack("transferFrom", from, to, itemID)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	return r.caller.transact(ctx, asset, data)
}
