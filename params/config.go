package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Engine struct {
	// DBPath is the pebble database directory for the order store.
	DBPath string
	// JournalPath is the operation journal file. Empty disables journaling.
	JournalPath string

	// SelfAddress is the engine's custody account on the ledger.
	SelfAddress string
	// FeeToken denominates fees when set; empty means fees share the
	// offer asset's class.
	FeeToken string
	// MinFeeAmount is the submission fee floor, decimal string.
	MinFeeAmount string
	// FeeCollector receives forwarded fees; empty means the executor
	// keeps them.
	FeeCollector string
	// Executors is the settlement authorization set.
	Executors []string
}

type API struct {
	ListenAddr     string
	AllowedOrigins []string
}

type Config struct {
	Engine  Engine
	API     API
	LogFile string
}

func Default() Config {
	return Config{
		Engine: Engine{
			DBPath:       "./data/orders.db",
			JournalPath:  "./data/ops.log",
			SelfAddress:  "0x0000000000000000000000000000000000000e5c",
			MinFeeAmount: "0",
		},
		API: API{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		LogFile: "./data/orderd.log",
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

	if v := os.Getenv("ORDERD_DB_PATH"); v != "" {
		cfg.Engine.DBPath = v
	}
	if v := os.Getenv("ORDERD_JOURNAL_PATH"); v != "" {
		cfg.Engine.JournalPath = v
	}
	if v := os.Getenv("ORDERD_SELF_ADDRESS"); v != "" {
		cfg.Engine.SelfAddress = v
	}
	if v := os.Getenv("ORDERD_FEE_TOKEN"); v != "" {
		cfg.Engine.FeeToken = v
	}
	if v := os.Getenv("ORDERD_MIN_FEE_AMOUNT"); v != "" {
		cfg.Engine.MinFeeAmount = v
	}
	if v := os.Getenv("ORDERD_FEE_COLLECTOR"); v != "" {
		cfg.Engine.FeeCollector = v
	}
	if v := os.Getenv("ORDERD_EXECUTORS"); v != "" {
		// comma-separated hex addresses
		cfg.Engine.Executors = strings.Split(v, ",")
	}
	if v := os.Getenv("ORDERD_LISTEN_ADDR"); v != "" {
		cfg.API.ListenAddr = v
	}
	if v := os.Getenv("ORDERD_ALLOWED_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return cfg
}
