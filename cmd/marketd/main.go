package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sorawit/openocean/params"
	"github.com/sorawit/openocean/pkg/api"
	"github.com/sorawit/openocean/pkg/chain"
	"github.com/sorawit/openocean/pkg/crypto"
	"github.com/sorawit/openocean/pkg/market"
	"github.com/sorawit/openocean/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	scheme, err := market.ParseSchemeVersion(cfg.Market.Scheme)
	if err != nil {
		sugar.Fatalw("bad_scheme", "err", err)
	}

	chainID := big.NewInt(cfg.Market.ChainID)
	marketAddr := common.HexToAddress(cfg.Market.MarketAddr)
	codec := market.NewCodec(scheme, chainID, marketAddr)

	var verifier market.SigVerifier
	switch cfg.Market.Signing {
	case "typed":
		verifier = market.NewTypedDataVerifier(crypto.EIP712Domain{
			Name:              "OpenOcean",
			Version:           "1",
			ChainID:           chainID,
			VerifyingContract: marketAddr,
		})
	default:
		verifier = market.PersonalVerifier{}
	}

	roles := market.NewRoles()
	for _, op := range cfg.Market.Operators {
		if !common.IsHexAddress(op) {
			sugar.Fatalw("bad_operator_address", "addr", op)
		}
		roles.Grant(market.OperatorRole, common.HexToAddress(op))
	}

	var ledger *market.Ledger
	var store *market.Store
	if cfg.Storage.DBPath != "" {
		ledger, err = market.NewLedgerWithStore(cfg.Storage.DBPath)
		if err != nil {
			sugar.Fatalw("ledger_open_failed", "err", err)
		}
		defer ledger.Close()
		store = ledger.Store()
	} else {
		ledger = market.NewLedger()
	}

	// Registries: chain-backed when an RPC endpoint and market key are
	// configured, in-memory books otherwise (devnet).
	var assets market.AssetRegistry
	var tokens market.TokenRegistry
	var tokenBook *market.TokenBook
	if rpcURL := os.Getenv("RPC_URL"); rpcURL != "" {
		caller, err := chain.NewCaller(rpcURL, os.Getenv("MARKET_KEY"), chainID, 30*time.Second)
		if err != nil {
			sugar.Fatalw("chain_caller_failed", "err", err)
		}
		assets = chain.NewERC721Registry(caller)
		tokens = chain.NewERC20Registry(caller)
		sugar.Infow("chain_registries", "rpc", rpcURL, "signer", caller.SignerAddress().Hex())
	} else {
		assets = market.NewAssetBook(marketAddr)
		tokenBook = market.NewTokenBook(marketAddr)
		tokens = tokenBook
		sugar.Info("in-memory registries (devnet mode)")
	}

	var journal market.TradeJournal = market.NewNopJournal()
	if cfg.Storage.JournalPath != "" {
		fileJournal, err := market.NewFileJournal(cfg.Storage.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "err", err)
		}
		defer fileJournal.Close()
		journal = fileJournal
	}

	var settlement market.Settlement
	switch cfg.Market.SettlementMode {
	case "direct":
		settlement = market.NewDirectTransfer(tokens)
	default:
		settlement = market.NewEscrowSettlement(ledger)
	}

	marketplace, err := market.NewMarketplace(market.MarketplaceConfig{
		Codec:            codec,
		Gate:             market.NewGate(codec, verifier, roles),
		Assets:           assets,
		Settlement:       settlement,
		Logger:           sugar,
		Journal:          journal,
		ReplayProtection: cfg.Market.ReplayProtection,
		Store:            store,
	})
	if err != nil {
		sugar.Fatalw("marketplace_init_failed", "err", err)
	}

	sugar.Infow("marketd_starting",
		"chain_id", cfg.Market.ChainID,
		"market", marketAddr.Hex(),
		"scheme", scheme.String(),
		"signing", cfg.Market.Signing,
		"settlement", cfg.Market.SettlementMode,
		"replay_protection", cfg.Market.ReplayProtection,
		"operators", len(cfg.Market.Operators),
	)

	// Native-value trades wrap attached value into the configured unit and
	// settle through escrow. Chain-backed registries mint on chain instead,
	// so the bridge only runs against the in-memory token book.
	var bridge *market.EthBridge
	if cfg.Market.WrappedUnit != "" {
		if !common.IsHexAddress(cfg.Market.WrappedUnit) {
			sugar.Fatalw("bad_wrapped_unit", "addr", cfg.Market.WrappedUnit)
		}
		wrappedUnit := common.HexToAddress(cfg.Market.WrappedUnit)
		if tokenBook == nil {
			sugar.Warnw("wrapped_unit_ignored", "reason", "native bridge requires in-memory registries")
		} else {
			wrapped := market.NewWrappedBook(tokenBook, wrappedUnit)
			bridge = market.NewEthBridge(marketplace, wrapped, ledger, wrappedUnit)
			sugar.Infow("native_bridge_enabled", "wrapped_unit", wrappedUnit.Hex())
		}
	}

	server := api.NewServer(marketplace, ledger, bridge, sugar)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Listen)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			sugar.Fatalw("server_failed", "err", err)
		}
	case sig := <-sigCh:
		sugar.Infow("shutting_down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			sugar.Errorw("shutdown_failed", "err", err)
		}
	}
}
