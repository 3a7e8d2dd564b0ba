package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"

	"github.com/malyshevid/volume-bot/internal/config"
	dex "github.com/malyshevid/volume-bot/internal/dex/solana"
	"github.com/malyshevid/volume-bot/internal/metrics"
	"github.com/malyshevid/volume-bot/internal/swap"
	"github.com/malyshevid/volume-bot/internal/util"
)

func main() {
	log := util.NewLogger("info")

	cfgPath := getEnv("SWAP_CONFIG", "internal/config/config.yaml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	applyEnvOverrides(cfg)

	if cfg.App.Env == "dev" {
		log = util.NewConsoleLogger(cfg.App.LogLevel)
	} else {
		log = util.NewLogger(cfg.App.LogLevel)
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Debug().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	owner, err := dex.LoadPrivateKey(cfg.Wallet.PrivateKeyBase58)
	if err != nil {
		log.Fatal().Err(err).Msg("wallet")
	}

	client := dex.NewJupiterClient(cfg.Dex.RpcURL, cfg.Dex.JupiterBase, owner, cfg.Dex.Commitment, cfg.HTTPTimeout())
	client.UserAgent = cfg.Dex.UserAgent

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline := swap.New(cfg, client, log, os.Stdout)
	if _, err := pipeline.Run(ctx); err != nil {
		fmt.Println("❌ " + err.Error())
		os.Exit(1)
	}
}

// applyEnvOverrides lets automation drive the binary without editing YAML.
func applyEnvOverrides(cfg *config.Config) {
	cfg.Dex.RpcURL = getEnv("SOLANA_RPC_URL", cfg.Dex.RpcURL)
	cfg.Dex.JupiterBase = getEnv("JUPITER_BASE_URL", cfg.Dex.JupiterBase)
	cfg.Dex.TokenListURL = getEnv("JUPITER_TOKEN_LIST_URL", cfg.Dex.TokenListURL)
	cfg.Dex.Commitment = getEnv("SOLANA_COMMITMENT", cfg.Dex.Commitment)
	cfg.Swap.InputMint = getEnv("SWAP_INPUT_MINT", cfg.Swap.InputMint)
	cfg.Swap.OutputMint = getEnv("SWAP_OUTPUT_MINT", cfg.Swap.OutputMint)
	if v := os.Getenv("SWAP_AMOUNT_ATOMS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Swap.AmountAtoms = n
		}
	}
	if v := os.Getenv("SWAP_SLIPPAGE_BPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Swap.SlippageBps = n
		}
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
