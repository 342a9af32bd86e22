package market

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// OperatorRole marks identities allowed to co-sign orders.
const OperatorRole = "OPERATOR_ROLE"

// AssetRegistry is the externally-owned registry of non-fungible items.
// Transfers require a pre-granted approval from the owning identity to the
// marketplace.
type AssetRegistry interface {
	OwnerOf(asset common.Address, itemID *big.Int) (common.Address, error)
	IsApproved(asset common.Address, owner common.Address) (bool, error)
	TransferFrom(asset common.Address, from, to common.Address, itemID *big.Int) error
}

// TokenRegistry is the externally-owned registry of fungible payment tokens,
// used by the direct-transfer settlement strategy. The marketplace is the
// implicit spender on TransferFrom.
type TokenRegistry interface {
	BalanceOf(token common.Address, owner common.Address) (*big.Int, error)
	Allowance(token common.Address, owner common.Address) (*big.Int, error)
	TransferFrom(token common.Address, from, to common.Address, amount *big.Int) error
}

// RoleRegistry answers role membership queries. Grant and revoke are
// administered elsewhere.
type RoleRegistry interface {
	HasRole(role string, addr common.Address) bool
}

// WrappedToken wraps native value into its fungible representation,
// crediting the recipient. The ETH bridge uses it before delegating to the
// core trade path.
type WrappedToken interface {
	Deposit(to common.Address, amount *big.Int) error
}

// ---- In-memory implementations ----
//
// Devnet mode and tests run against these; production deployments plug in
// the chain-backed registries from pkg/chain. Both books are bound to the
// marketplace address: approvals are granted to it and checked against it.

// AssetBook is an in-memory AssetRegistry.
type AssetBook struct {
	mu        sync.RWMutex
	market    common.Address
	owners    map[common.Address]map[string]common.Address // asset -> itemID -> owner
	approvals map[common.Address]map[common.Address]bool   // asset -> owner -> approved market
}

func NewAssetBook(market common.Address) *AssetBook {
	return &AssetBook{
		market:    market,
		owners:    make(map[common.Address]map[string]common.Address),
		approvals: make(map[common.Address]map[common.Address]bool),
	}
}

// Mint assigns an item to an owner. Minting an existing item is an error.
func (b *AssetBook) Mint(asset common.Address, itemID *big.Int, owner common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	items, ok := b.owners[asset]
	if !ok {
		items = make(map[string]common.Address)
		b.owners[asset] = items
	}
	key := itemID.String()
	if _, exists := items[key]; exists {
		return fmt.Errorf("item %s already minted", key)
	}
	items[key] = owner
	return nil
}

// SetApprovalForAll lets the marketplace move all of owner's items in asset.
func (b *AssetBook) SetApprovalForAll(asset common.Address, owner common.Address, approved bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byOwner, ok := b.approvals[asset]
	if !ok {
		byOwner = make(map[common.Address]bool)
		b.approvals[asset] = byOwner
	}
	byOwner[owner] = approved
}

func (b *AssetBook) OwnerOf(asset common.Address, itemID *big.Int) (common.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	owner, ok := b.owners[asset][itemID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("item %s not found in %s", itemID, asset.Hex())
	}
	return owner, nil
}

func (b *AssetBook) IsApproved(asset common.Address, owner common.Address) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.approvals[asset][owner], nil
}

func (b *AssetBook) TransferFrom(asset common.Address, from, to common.Address, itemID *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := itemID.String()
	owner, ok := b.owners[asset][key]
	if !ok || owner != from || !b.approvals[asset][from] {
		return ErrNotAssetOwnerOrUnapproved
	}
	b.owners[asset][key] = to
	return nil
}

// TokenBook is an in-memory TokenRegistry with ERC20-style allowances
// granted to the marketplace.
type TokenBook struct {
	mu         sync.RWMutex
	market     common.Address
	balances   map[common.Address]map[common.Address]*big.Int // token -> owner -> balance
	allowances map[common.Address]map[common.Address]*big.Int // token -> owner -> allowance for market
}

func NewTokenBook(market common.Address) *TokenBook {
	return &TokenBook{
		market:     market,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits owner's balance of token.
func (b *TokenBook) Mint(token common.Address, owner common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(token, owner, amount)
}

func (b *TokenBook) credit(token, owner common.Address, amount *big.Int) {
	byOwner, ok := b.balances[token]
	if !ok {
		byOwner = make(map[common.Address]*big.Int)
		b.balances[token] = byOwner
	}
	cur, ok := byOwner[owner]
	if !ok {
		cur = new(big.Int)
		byOwner[owner] = cur
	}
	cur.Add(cur, amount)
}

// Approve grants the marketplace spend over owner's balance of token.
func (b *TokenBook) Approve(token common.Address, owner common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	byOwner, ok := b.allowances[token]
	if !ok {
		byOwner = make(map[common.Address]*big.Int)
		b.allowances[token] = byOwner
	}
	byOwner[owner] = new(big.Int).Set(amount)
}

func (b *TokenBook) BalanceOf(token common.Address, owner common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bal, ok := b.balances[token][owner]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}

func (b *TokenBook) Allowance(token common.Address, owner common.Address) (*big.Int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	allowance, ok := b.allowances[token][owner]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(allowance), nil
}

// TransferFrom moves amount of token between owners, consuming the payer's
// allowance granted to the marketplace.
func (b *TokenBook) TransferFrom(token common.Address, from, to common.Address, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal, ok := b.balances[token][from]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientAllowanceOrBalance
	}
	allowance, ok := b.allowances[token][from]
	if !ok || allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowanceOrBalance
	}

	allowance.Sub(allowance, amount)
	bal.Sub(bal, amount)
	b.credit(token, to, amount)
	return nil
}

// WrappedBook is the in-memory WrappedToken: wrapping native value mints
// the wrapped unit in the token book.
type WrappedBook struct {
	tokens *TokenBook
	unit   common.Address
}

func NewWrappedBook(tokens *TokenBook, unit common.Address) *WrappedBook {
	return &WrappedBook{tokens: tokens, unit: unit}
}

func (w *WrappedBook) Deposit(to common.Address, amount *big.Int) error {
	w.tokens.Mint(w.unit, to, amount)
	return nil
}

// Roles is an in-memory RoleRegistry.
type Roles struct {
	mu      sync.RWMutex
	members map[string]map[common.Address]bool
}

func NewRoles() *Roles {
	return &Roles{members: make(map[string]map[common.Address]bool)}
}

func (r *Roles) Grant(role string, addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[role]
	if !ok {
		m = make(map[common.Address]bool)
		r.members[role] = m
	}
	m[addr] = true
}

func (r *Roles) Revoke(role string, addr common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members[role], addr)
}

func (r *Roles) HasRole(role string, addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[role][addr]
}
