package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

// ERC20Registry implements market.TokenRegistry against live ERC20
// contracts. The marketplace key is the spender consuming allowances.
type ERC20Registry struct {
	caller *Caller
}

func NewERC20Registry(caller *Caller) *ERC20Registry {
	return &ERC20Registry{caller: caller}
}

func (r *ERC20Registry) BalanceOf(token common.Address, owner common.Address) (*big.Int, error) {
	ctx, cancel := r.caller.callContext()
	defer cancel()

	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}

	out, err := r.caller.call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	return unpackUint256(erc20ABI, "balanceOf", out)
}

func (r *ERC20Registry) Allowance(token common.Address, owner common.Address) (*big.Int, error) {
	ctx, cancel := r.caller.callContext()
	defer cancel()

	data, err := erc20ABI.Pack("allowance", owner, r.caller.SignerAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance: %w", err)
	}

	out, err := r.caller.call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	return unpackUint256(erc20ABI, "allowance", out)
}

func (r *ERC20Registry) TransferFrom(token common.Address, from, to common.Address, amount *big.Int) error {
	ctx, cancel := r.caller.callContext()
	defer cancel()

	data, err := erc20ABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	return r.caller.transact(ctx, token, data)
}

func unpackUint256(parsed abi.ABI, method string, out []byte) (*big.Int, error) {
	results, err := parsed.Unpack(method, out)
	if err != nil || len(results) != 1 {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type", method)
	}
	return value, nil
}
