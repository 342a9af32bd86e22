package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Market struct {
	// ChainID and MarketAddr form the signing context: maker hashes from
	// other chains or deployments never verify here.
	ChainID    int64
	MarketAddr string

	// Scheme selects the order hashing layout: "v1", "v2" or "v3".
	Scheme string

	// Signing selects the signature variant: "personal" or "typed".
	Signing string

	// SettlementMode selects the payment strategy: "direct" or "escrow".
	// The ETH bridge rides on top of escrow for native-value buys.
	SettlementMode string

	// ReplayProtection enables the consumed-order-hash set.
	ReplayProtection bool

	// Operators are the addresses granted the co-signing role at startup.
	Operators []string

	// WrappedUnit is the wrapped native token address used by the bridge.
	WrappedUnit string
}

type Server struct {
	Listen  string
	LogFile string
}

type Storage struct {
	// DBPath holds escrow balances and consumed hashes. Empty means
	// in-memory only (devnet).
	DBPath string

	// JournalPath is the append-only settled-trade log. Empty disables it.
	JournalPath string
}

type Config struct {
	Market  Market
	Server  Server
	Storage Storage
}

func Default() Config {
	return Config{
		Market: Market{
			ChainID:          42,
			MarketAddr:       "0x893b16335a0cf38E0413Bde347357bfc27de9F4b",
			Scheme:           "v2",
			Signing:          "personal",
			SettlementMode:   "escrow",
			ReplayProtection: true,
		},
		Server: Server{
			Listen:  ":8080",
			LogFile: "data/marketd.log",
		},
		Storage: Storage{
			DBPath: "",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Market.ChainID = id
		}
	}
	if v := os.Getenv("MARKET_ADDR"); v != "" {
		cfg.Market.MarketAddr = v
	}
	if v := os.Getenv("SCHEME"); v != "" {
		cfg.Market.Scheme = v
	}
	if v := os.Getenv("SIGNING"); v != "" {
		cfg.Market.Signing = v
	}
	if v := os.Getenv("SETTLEMENT_MODE"); v != "" {
		cfg.Market.SettlementMode = v
	}
	if v := os.Getenv("REPLAY_PROTECTION"); v != "" {
		cfg.Market.ReplayProtection = v == "true"
	}
	if v := os.Getenv("OPERATORS"); v != "" {
		cfg.Market.Operators = strings.Split(v, ",")
	}
	if v := os.Getenv("WRAPPED_UNIT"); v != "" {
		cfg.Market.WrappedUnit = v
	}
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Server.LogFile = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Storage.JournalPath = v
	}

	return cfg
}
