package market

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

// Store is the pebble persistence layer for the escrow ledger and the
// consumed-order-hash set. Values are raw big-endian integers for balances
// and empty markers for consumed hashes; keys carry a type prefix.
type Store struct {
	db *pebble.DB
}

var (
	balancePrefix  = []byte("bal/")
	consumedPrefix = []byte("used/")
)

func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20),
		MemTableSize: 16 << 20,
		MaxOpenFiles: 500,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBalance persists one escrow balance.
func (s *Store) SaveBalance(addr common.Address, balance *big.Int) error {
	if err := s.db.Set(balanceKey(addr), balance.Bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// LoadBalances loads the full escrow table.
func (s *Store) LoadBalances() (map[common.Address]*big.Int, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: balancePrefix,
		UpperBound: keyUpperBound(balancePrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate balances: %w", err)
	}
	defer iter.Close()

	balances := make(map[common.Address]*big.Int)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(balancePrefix)+common.AddressLength {
			continue
		}
		addr := common.BytesToAddress(key[len(balancePrefix):])
		balances[addr] = new(big.Int).SetBytes(iter.Value())
	}
	return balances, nil
}

// MarkConsumed records a settled maker hash.
func (s *Store) MarkConsumed(hash common.Hash) error {
	if err := s.db.Set(consumedKey(hash), nil, pebble.Sync); err != nil {
		return fmt.Errorf("failed to mark consumed: %w", err)
	}
	return nil
}

// UnmarkConsumed removes a consumed marker, rolling back an aborted trade.
func (s *Store) UnmarkConsumed(hash common.Hash) error {
	if err := s.db.Delete(consumedKey(hash), pebble.Sync); err != nil {
		return fmt.Errorf("failed to unmark consumed: %w", err)
	}
	return nil
}

// IsConsumed reports whether a maker hash was already settled.
func (s *Store) IsConsumed(hash common.Hash) (bool, error) {
	_, closer, err := s.db.Get(consumedKey(hash))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get consumed marker: %w", err)
	}
	closer.Close()
	return true, nil
}

// LoadConsumed loads the consumed-hash set.
func (s *Store) LoadConsumed() (map[common.Hash]bool, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: consumedPrefix,
		UpperBound: keyUpperBound(consumedPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate consumed set: %w", err)
	}
	defer iter.Close()

	consumed := make(map[common.Hash]bool)
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(consumedPrefix)+common.HashLength {
			continue
		}
		consumed[common.BytesToHash(key[len(consumedPrefix):])] = true
	}
	return consumed, nil
}

// Batch groups writes so a transfer's debit and credit land atomically.
type Batch struct {
	batch *pebble.Batch
}

func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

func (b *Batch) SaveBalance(addr common.Address, balance *big.Int) error {
	return b.batch.Set(balanceKey(addr), balance.Bytes(), nil)
}

func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

func (b *Batch) Close() error {
	return b.batch.Close()
}

func balanceKey(addr common.Address) []byte {
	return append(append([]byte{}, balancePrefix...), addr.Bytes()...)
}

func consumedKey(hash common.Hash) []byte {
	return append(append([]byte{}, consumedPrefix...), hash.Bytes()...)
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
