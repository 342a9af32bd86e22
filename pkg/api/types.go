package api

// Request/response types for REST endpoints and WebSocket messages.

// DepositRequest credits the sender's escrow balance.
type DepositRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"` // unsigned decimal
}

// BalanceResponse reports an escrow balance.
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// OrderHashRequest carries the canonical 8-element order array:
// [maker, asset, itemId, isBuy, cost, unit, expiration, salt].
type OrderHashRequest struct {
	Order []any `json:"order"`
}

// OrderHashResponse is the hash an external maker signs.
type OrderHashResponse struct {
	MakerHash string `json:"makerHash"`
}

// OperatorHashRequest asks for the co-signing hash of {order, deadline}.
type OperatorHashRequest struct {
	Order    []any  `json:"order"`
	Deadline uint64 `json:"deadline"`
}

// OperatorHashResponse is the hash the operator signs.
type OperatorHashResponse struct {
	OperatorHash string `json:"operatorHash"`
}

// TradeSubmission is the authorization envelope a taker posts.
type TradeSubmission struct {
	Order       []any  `json:"order"`
	MakerSig    string `json:"makerSig"`    // hex, 65 bytes
	Deadline    uint64 `json:"deadline"`    // unix seconds
	OperatorSig string `json:"operatorSig"` // hex, 65 bytes
	TakerSig    string `json:"takerSig"`    // hex, 65 bytes
	Sender      string `json:"sender"`
	// Counterparty optionally overrides the non-maker side when a third
	// party submits on its behalf.
	Counterparty string `json:"counterparty,omitempty"`
}

// NativeTradeSubmission settles a trade against attached native value
// instead of a pre-funded escrow balance.
type NativeTradeSubmission struct {
	TradeSubmission
	Value string `json:"value"` // unsigned decimal, must equal the order cost
}

// TradeResponse is the observable result of a settled trade.
type TradeResponse struct {
	MakerHash string `json:"makerHash"`
	NewOwner  string `json:"newOwner"`
	Paid      string `json:"paid"`
	Unit      string `json:"unit"`
}

// ErrorResponse carries the failure kind verbatim.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TradeEvent is broadcast on the WebSocket feed after each settlement.
type TradeEvent struct {
	Channel   string `json:"channel"` // always "trades"
	MakerHash string `json:"makerHash"`
	NewOwner  string `json:"newOwner"`
	Paid      string `json:"paid"`
	Unit      string `json:"unit"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}
