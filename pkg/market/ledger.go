package market

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the escrow balance table: identity -> non-negative balance of
// the payment unit, funded by deposits and moved by trade settlement. It is
// the only mutable shared state the core owns. Every mutation happens under
// one lock, so no caller ever observes a negative intermediate balance.
//
// With a Store attached, balances survive restarts; in-memory mode serves
// tests and devnet.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]*big.Int
	store    *Store
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]*big.Int)}
}

// NewLedgerWithStore opens (or resumes) a pebble-backed ledger at dbPath.
func NewLedgerWithStore(dbPath string) (*Ledger, error) {
	store, err := NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}

	balances, err := store.LoadBalances()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	return &Ledger{balances: balances, store: store}, nil
}

// Store exposes the backing store so the marketplace can share it for the
// consumed-hash set. Nil in in-memory mode.
func (l *Ledger) Store() *Store { return l.store }

func (l *Ledger) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Deposit credits addr by amount. Amount must be positive. The new balance
// is persisted before the in-memory table changes, so a store failure never
// leaves memory and disk disagreeing.
func (l *Ledger) Deposit(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := new(big.Int).Add(l.balance(addr), amount)
	if l.store != nil {
		if err := l.store.SaveBalance(addr, next); err != nil {
			return err
		}
	}
	l.balances[addr] = next
	return nil
}

// Withdraw debits addr by amount, the inverse of Deposit. The bridge uses
// it to return an escrow credit when the trade it fronted does not settle.
func (l *Ledger) Withdraw(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("withdraw amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(addr)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientEscrowBalance
	}

	next := new(big.Int).Sub(bal, amount)
	if l.store != nil {
		if err := l.store.SaveBalance(addr, next); err != nil {
			return err
		}
	}
	l.balances[addr] = next
	return nil
}

// BalanceOf returns a copy of addr's escrow balance.
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bal, ok := l.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// Transfer moves amount from payer to payee as a single atomic update.
// Fails with ErrInsufficientEscrowBalance before touching either entry.
// Both new balances commit to the store in one batch before the in-memory
// table changes; a failed commit leaves both representations untouched.
func (l *Ledger) Transfer(payer, payee common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer amount must be non-negative")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(payer)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientEscrowBalance
	}

	nextPayer := new(big.Int).Sub(bal, amount)
	nextPayee := new(big.Int).Add(l.balance(payee), amount)

	if l.store != nil {
		batch := l.store.NewBatch()
		defer batch.Close()
		if err := batch.SaveBalance(payer, nextPayer); err != nil {
			return err
		}
		if err := batch.SaveBalance(payee, nextPayee); err != nil {
			return err
		}
		if err := batch.Commit(); err != nil {
			return err
		}
	}

	l.balances[payer] = nextPayer
	l.balances[payee] = nextPayee
	return nil
}

// TotalBalance returns the sum of all escrow balances. Trades only move
// value between accounts, so this equals the sum of all deposits.
func (l *Ledger) TotalBalance() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := new(big.Int)
	for _, bal := range l.balances {
		total.Add(total, bal)
	}
	return total
}

// balance returns the stored balance or zero. Assumes the lock is held;
// the returned value must not be mutated.
func (l *Ledger) balance(addr common.Address) *big.Int {
	if bal, ok := l.balances[addr]; ok {
		return bal
	}
	return new(big.Int)
}
