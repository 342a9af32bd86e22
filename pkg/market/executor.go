package market

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/sorawit/openocean/pkg/util"
)

// TradeRequest is the authorization envelope a taker submits. It is consumed
// exactly once and never stored.
type TradeRequest struct {
	Order       *Order
	MakerSig    []byte
	Deadline    uint64
	OperatorSig []byte

	// TakerSig is the resolved taker's counter-signature over the same
	// payload the maker signed. Identities in the request body are not
	// trusted on their own: whoever's funds move must have signed.
	TakerSig []byte

	// Sender is the submitting identity. Counterparty optionally overrides
	// the non-maker side of the trade when a third party submits on the
	// actual counterparty's behalf; zero means Sender takes the trade.
	Sender       common.Address
	Counterparty common.Address
}

// TradeResult is the observable outcome of a settled trade.
type TradeResult struct {
	MakerHash common.Hash
	NewOwner  common.Address
	Paid      *big.Int
	Unit      common.Address
}

// MarketplaceConfig bundles the executor's collaborators.
type MarketplaceConfig struct {
	Codec      *Codec
	Gate       *Gate
	Assets     AssetRegistry
	Settlement Settlement
	Clock      util.Clock
	Logger     *zap.SugaredLogger

	// Journal records every settled trade. Nil means no journal.
	Journal TradeJournal

	// ReplayProtection enables the consumed-hash set: each maker hash
	// settles at most once before its expiration.
	ReplayProtection bool

	// Store persists the consumed-hash set across restarts. Ignored when
	// ReplayProtection is off.
	Store *Store
}

// Marketplace executes authorized trades. Public operations behave as single
// atomic transactions: either the item and the payment both move, or
// neither does.
type Marketplace struct {
	codec      *Codec
	gate       *Gate
	assets     AssetRegistry
	settlement Settlement
	clock      util.Clock
	log        *zap.SugaredLogger
	journal    TradeJournal

	mu       sync.Mutex // serializes trades, matching the host-transaction model
	replay   bool
	consumed map[common.Hash]bool
	store    *Store

	// OnTrade, when set, observes every settled trade (the API feeds its
	// websocket hub through this).
	OnTrade func(TradeResult)
}

func NewMarketplace(cfg MarketplaceConfig) (*Marketplace, error) {
	if cfg.Clock == nil {
		cfg.Clock = util.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Journal == nil {
		cfg.Journal = NewNopJournal()
	}

	m := &Marketplace{
		codec:      cfg.Codec,
		gate:       cfg.Gate,
		assets:     cfg.Assets,
		settlement: cfg.Settlement,
		clock:      cfg.Clock,
		log:        cfg.Logger,
		journal:    cfg.Journal,
		replay:     cfg.ReplayProtection,
		consumed:   make(map[common.Hash]bool),
		store:      cfg.Store,
	}

	if m.replay && m.store != nil {
		consumed, err := m.store.LoadConsumed()
		if err != nil {
			return nil, fmt.Errorf("failed to load consumed set: %w", err)
		}
		m.consumed = consumed
	}

	return m, nil
}

// MakerSignHash exposes the exact hash an external maker must sign for the
// given order under the active scheme version.
func (m *Marketplace) MakerSignHash(order *Order) (common.Hash, error) {
	return m.codec.MakerHash(order)
}

// OperatorSignHash exposes the hash the operator co-signs for an order and
// deadline.
func (m *Marketplace) OperatorSignHash(order *Order, deadline uint64) (common.Hash, error) {
	makerHash, err := m.codec.MakerHash(order)
	if err != nil {
		return common.Hash{}, err
	}
	return m.codec.OperatorHash(makerHash, deadline), nil
}

// Authorize validates the full authorization envelope against the current
// clock without any side effects. The bridge runs it before moving value.
func (m *Marketplace) Authorize(req TradeRequest) (common.Hash, error) {
	now := uint64(m.clock.Now().Unix())
	return m.gate.Authorize(req.Order, req.MakerSig, req.Deadline, req.OperatorSig, now)
}

// Trade validates the envelope and atomically exchanges item ownership and
// payment. Failures abort with the specific sentinel kind and no state
// change.
func (m *Marketplace) Trade(req TradeRequest) (TradeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := req.Order
	now := uint64(m.clock.Now().Unix())

	makerHash, err := m.gate.Authorize(order, req.MakerSig, req.Deadline, req.OperatorSig, now)
	if err != nil {
		return TradeResult{}, err
	}

	taker := req.Sender
	if req.Counterparty != (common.Address{}) {
		taker = req.Counterparty
	}
	if taker == order.Maker {
		return TradeResult{}, ErrSelfTrade
	}
	if err := m.gate.VerifyTaker(order, makerHash, taker, req.TakerSig); err != nil {
		return TradeResult{}, err
	}

	// Direction: maker buying means the taker delivers the item and
	// receives payment; maker selling is the reverse.
	var seller, buyer common.Address
	if order.IsBuy {
		seller, buyer = taker, order.Maker
	} else {
		seller, buyer = order.Maker, taker
	}

	// Asset preflight runs before any payment movement.
	owner, err := m.assets.OwnerOf(order.Asset, order.ItemID)
	if err != nil || owner != seller {
		return TradeResult{}, ErrNotAssetOwnerOrUnapproved
	}
	approved, err := m.assets.IsApproved(order.Asset, seller)
	if err != nil || !approved {
		return TradeResult{}, ErrNotAssetOwnerOrUnapproved
	}

	// The consumed marker is persisted before any value moves, so a crash
	// mid-trade can never re-enable the order after restart. On abort the
	// marker is rolled back; an unsettled order burned by a crash in the
	// window between marker and settlement stays burned (fail closed).
	if m.replay {
		if m.consumed[makerHash] {
			return TradeResult{}, ErrOrderAlreadySettled
		}
		if m.store != nil {
			if err := m.store.MarkConsumed(makerHash); err != nil {
				return TradeResult{}, fmt.Errorf("failed to persist consumed marker: %w", err)
			}
		}
		m.consumed[makerHash] = true
	}

	if err := m.settlement.Settle(buyer, seller, order.Unit, order.Cost); err != nil {
		m.unconsume(makerHash)
		return TradeResult{}, err
	}

	if err := m.assets.TransferFrom(order.Asset, seller, buyer, order.ItemID); err != nil {
		// Preflight passed, so this only fires on registry misbehavior.
		// Put the payment back before surfacing the failure.
		if uerr := m.settlement.Unwind(buyer, seller, order.Unit, order.Cost); uerr != nil {
			m.log.Errorw("payment_unwind_failed", "maker_hash", makerHash.Hex(), "err", uerr)
		}
		m.unconsume(makerHash)
		return TradeResult{}, ErrNotAssetOwnerOrUnapproved
	}

	result := TradeResult{
		MakerHash: makerHash,
		NewOwner:  buyer,
		Paid:      new(big.Int).Set(order.Cost),
		Unit:      order.Unit,
	}

	m.log.Infow("trade_settled",
		"maker_hash", makerHash.Hex(),
		"maker", order.Maker.Hex(),
		"taker", taker.Hex(),
		"asset", order.Asset.Hex(),
		"item_id", order.ItemID.String(),
		"cost", order.Cost.String(),
		"is_buy", order.IsBuy,
	)

	m.journal.Append(result)
	if m.OnTrade != nil {
		m.OnTrade(result)
	}
	return result, nil
}

// unconsume rolls the consumed marker back after an aborted trade. Assumes
// the trade lock is held.
func (m *Marketplace) unconsume(makerHash common.Hash) {
	if !m.replay {
		return
	}
	delete(m.consumed, makerHash)
	if m.store != nil {
		if err := m.store.UnmarkConsumed(makerHash); err != nil {
			m.log.Errorw("consumed_marker_rollback_failed", "maker_hash", makerHash.Hex(), "err", err)
		}
	}
}
