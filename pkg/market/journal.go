package market

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// TradeJournal is an append-only record of settled trades, one entry per
// settlement. It exists for audit and recovery tooling; the executor never
// reads it back.
type TradeJournal interface {
	Append(result TradeResult)
}

type NopJournal struct{}

func NewNopJournal() *NopJournal { return &NopJournal{} }

func (j *NopJournal) Append(_ TradeResult) {}

// FileJournal appends one JSON line per settled trade.
type FileJournal struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade journal at %s: %w", path, err)
	}
	return &FileJournal{f: f}, nil
}

func (j *FileJournal) Append(result TradeResult) {
	entry := map[string]any{
		"makerHash": result.MakerHash.Hex(),
		"newOwner":  result.NewOwner.Hex(),
		"paid":      result.Paid.String(),
		"unit":      result.Unit.Hex(),
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	fmt.Fprintln(j.f, string(line))
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ TradeJournal = (*NopJournal)(nil)
var _ TradeJournal = (*FileJournal)(nil)
