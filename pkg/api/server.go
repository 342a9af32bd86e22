package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/sorawit/openocean/pkg/crypto"
	"github.com/sorawit/openocean/pkg/market"
)

// Server exposes the settlement engine over REST plus a WebSocket trade feed.
type Server struct {
	marketplace *market.Marketplace
	ledger      *market.Ledger
	bridge      *market.EthBridge
	router      *mux.Router
	hub         *Hub
	log         *zap.SugaredLogger
	http        *http.Server
}

// NewServer builds the REST surface. bridge may be nil, in which case the
// native-value trade endpoint reports the feature as disabled.
func NewServer(marketplace *market.Marketplace, ledger *market.Ledger, bridge *market.EthBridge, log *zap.SugaredLogger) *Server {
	s := &Server{
		marketplace: marketplace,
		ledger:      ledger,
		bridge:      bridge,
		router:      mux.NewRouter(),
		hub:         NewHub(log),
		log:         log,
	}

	marketplace.OnTrade = func(result market.TradeResult) {
		s.hub.Broadcast(TradeEvent{
			Channel:   "trades",
			MakerHash: result.MakerHash.Hex(),
			NewOwner:  crypto.ChecksumAddress(result.NewOwner),
			Paid:      result.Paid.String(),
			Unit:      crypto.ChecksumAddress(result.Unit),
			Timestamp: time.Now().UnixMilli(),
		})
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/accounts/{address}/balance", s.handleBalance).Methods("GET")
	api.HandleFunc("/orders/hash", s.handleOrderHash).Methods("POST")
	api.HandleFunc("/orders/operator-hash", s.handleOperatorHash).Methods("POST")
	api.HandleFunc("/trade", s.handleTrade).Methods("POST")
	api.HandleFunc("/trade-native", s.handleTradeNative).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start(listen string) error {
	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(s.router)

	s.http = &http.Server{Addr: listen, Handler: handler}
	s.log.Infow("api_listening", "addr", listen)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if !common.IsHexAddress(req.Address) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address"))
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid amount"))
		return
	}

	addr := common.HexToAddress(req.Address)
	if err := s.ledger.Deposit(addr, amount); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.log.Infow("deposit", "address", addr.Hex(), "amount", amount.String())
	s.writeJSON(w, http.StatusOK, BalanceResponse{
		Address: crypto.ChecksumAddress(addr),
		Balance: s.ledger.BalanceOf(addr).String(),
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if !common.IsHexAddress(vars["address"]) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid address"))
		return
	}

	addr := common.HexToAddress(vars["address"])
	s.writeJSON(w, http.StatusOK, BalanceResponse{
		Address: crypto.ChecksumAddress(addr),
		Balance: s.ledger.BalanceOf(addr).String(),
	})
}

func (s *Server) handleOrderHash(w http.ResponseWriter, r *http.Request) {
	var req OrderHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	order, err := market.OrderFromArray(req.Order)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := s.marketplace.MakerSignHash(order)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, OrderHashResponse{MakerHash: hash.Hex()})
}

func (s *Server) handleOperatorHash(w http.ResponseWriter, r *http.Request) {
	var req OperatorHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	order, err := market.OrderFromArray(req.Order)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := s.marketplace.OperatorSignHash(order, req.Deadline)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, OperatorHashResponse{OperatorHash: hash.Hex()})
}

// decodeTradeSubmission translates the wire envelope into a TradeRequest.
func decodeTradeSubmission(req TradeSubmission) (market.TradeRequest, error) {
	order, err := market.OrderFromArray(req.Order)
	if err != nil {
		return market.TradeRequest{}, err
	}

	makerSig, err := decodeSignature(req.MakerSig)
	if err != nil {
		return market.TradeRequest{}, fmt.Errorf("makerSig: %w", err)
	}
	operatorSig, err := decodeSignature(req.OperatorSig)
	if err != nil {
		return market.TradeRequest{}, fmt.Errorf("operatorSig: %w", err)
	}
	takerSig, err := decodeSignature(req.TakerSig)
	if err != nil {
		return market.TradeRequest{}, fmt.Errorf("takerSig: %w", err)
	}

	if !common.IsHexAddress(req.Sender) {
		return market.TradeRequest{}, fmt.Errorf("invalid sender")
	}
	tradeReq := market.TradeRequest{
		Order:       order,
		MakerSig:    makerSig,
		Deadline:    req.Deadline,
		OperatorSig: operatorSig,
		TakerSig:    takerSig,
		Sender:      common.HexToAddress(req.Sender),
	}
	if req.Counterparty != "" {
		if !common.IsHexAddress(req.Counterparty) {
			return market.TradeRequest{}, fmt.Errorf("invalid counterparty")
		}
		tradeReq.Counterparty = common.HexToAddress(req.Counterparty)
	}
	return tradeReq, nil
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	tradeReq, err := decodeTradeSubmission(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.marketplace.Trade(tradeReq)
	if err != nil {
		s.writeError(w, tradeStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradeResponse(result))
}

func (s *Server) handleTradeNative(w http.ResponseWriter, r *http.Request) {
	if s.bridge == nil {
		s.writeError(w, http.StatusNotImplemented, fmt.Errorf("native-value trades are not enabled"))
		return
	}

	var req NativeTradeSubmission
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	value, ok := new(big.Int).SetString(req.Value, 10)
	if !ok || value.Sign() <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid value"))
		return
	}

	tradeReq, err := decodeTradeSubmission(req.TradeSubmission)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.bridge.TradeWithValue(tradeReq, value)
	if err != nil {
		s.writeError(w, tradeStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, tradeResponse(result))
}

func tradeResponse(result market.TradeResult) TradeResponse {
	return TradeResponse{
		MakerHash: result.MakerHash.Hex(),
		NewOwner:  crypto.ChecksumAddress(result.NewOwner),
		Paid:      result.Paid.String(),
		Unit:      crypto.ChecksumAddress(result.Unit),
	}
}

// tradeStatus maps failure kinds to HTTP codes without rewriting the kind.
func tradeStatus(err error) int {
	switch {
	case errors.Is(err, market.ErrOrderAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, market.ErrInsufficientEscrowBalance),
		errors.Is(err, market.ErrInsufficientAllowanceOrBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, market.ErrInvalidMakerSignature),
		errors.Is(err, market.ErrInvalidOperatorSignature),
		errors.Is(err, market.ErrInvalidTakerSignature),
		errors.Is(err, market.ErrUnauthorizedOperator):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func decodeSignature(sig string) ([]byte, error) {
	sig = strings.TrimPrefix(sig, "0x")
	out, err := hex.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("invalid hex signature")
	}
	if len(out) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(out))
	}
	return out, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
