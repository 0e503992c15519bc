package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/escrowlabs/orderd/params"
	"github.com/escrowlabs/orderd/pkg/api"
	"github.com/escrowlabs/orderd/pkg/asset"
	"github.com/escrowlabs/orderd/pkg/engine"
	"github.com/escrowlabs/orderd/pkg/ledger"
	"github.com/escrowlabs/orderd/pkg/order"
	"github.com/escrowlabs/orderd/pkg/storage"
	"github.com/escrowlabs/orderd/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	engCfg, err := engineConfig(cfg.Engine)
	if err != nil {
		sugar.Fatalw("config_invalid", "err", err)
	}

	store, err := order.NewStore(cfg.Engine.DBPath)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Engine.DBPath, "err", err)
	}
	defer store.Close()

	var journal engine.Journal = storage.NewNopJournal()
	if cfg.Engine.JournalPath != "" {
		fj, err := storage.NewFileJournal(cfg.Engine.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Engine.JournalPath, "err", err)
		}
		defer fj.Close()
		journal = fj
	}

	// Devnet ledger. A deployment against a real chain swaps this for the
	// host's bank module client.
	bank := ledger.NewBank()

	eng := engine.New(engCfg, store, bank, journal, sugar)

	last, err := store.LastOrderID()
	if err != nil {
		sugar.Fatalw("store_read_failed", "err", err)
	}
	sugar.Infow("engine_ready",
		"last_order_id", last,
		"executors", len(engCfg.Executors),
		"min_fee", engCfg.MinFeeAmount.String(),
	)

	server := api.NewServer(eng, cfg.API.AllowedOrigins, sugar)
	go func() {
		if err := server.Start(cfg.API.ListenAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	sugar.Infow("shutting_down")
}

// engineConfig validates and converts the raw params into engine config.
func engineConfig(raw params.Engine) (engine.Config, error) {
	cfg := engine.Config{}

	if !common.IsHexAddress(raw.SelfAddress) {
		return cfg, invalidAddr("ORDERD_SELF_ADDRESS", raw.SelfAddress)
	}
	cfg.Self = common.HexToAddress(raw.SelfAddress)

	if raw.FeeToken != "" {
		if !common.IsHexAddress(raw.FeeToken) {
			return cfg, invalidAddr("ORDERD_FEE_TOKEN", raw.FeeToken)
		}
		cfg.FeeToken = common.HexToAddress(raw.FeeToken)
	}
	if raw.FeeCollector != "" {
		if !common.IsHexAddress(raw.FeeCollector) {
			return cfg, invalidAddr("ORDERD_FEE_COLLECTOR", raw.FeeCollector)
		}
		cfg.FeeCollector = common.HexToAddress(raw.FeeCollector)
	}

	minFee, err := asset.ParseUint128(raw.MinFeeAmount)
	if err != nil {
		return cfg, err
	}
	cfg.MinFeeAmount = minFee

	for _, e := range raw.Executors {
		if !common.IsHexAddress(e) {
			return cfg, invalidAddr("ORDERD_EXECUTORS", e)
		}
		cfg.Executors = append(cfg.Executors, common.HexToAddress(e))
	}

	return cfg, nil
}

type configError struct {
	field string
	value string
}

func (e *configError) Error() string {
	return e.field + ": invalid address " + e.value
}

func invalidAddr(field, value string) error {
	return &configError{field: field, value: value}
}
