// Package swap drives the one-shot pipeline: tradability gate, quote,
// transaction assembly, signing, and submission. Control flows strictly
// forward; the first fatal stage error stops the run.
package swap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/malyshevid/volume-bot/internal/config"
	dexsol "github.com/malyshevid/volume-bot/internal/dex/solana"
	"github.com/malyshevid/volume-bot/internal/metrics"
	"github.com/malyshevid/volume-bot/internal/tokens"
	"github.com/malyshevid/volume-bot/internal/util"
)

const defaultExplorerBase = "https://explorer.solana.com/tx/"

// Aggregator is the slice of the Jupiter client the pipeline consumes.
type Aggregator interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*dexsol.QuoteResult, error)
	BuildSwapTransaction(ctx context.Context, route json.RawMessage) (*solana.Transaction, error)
	SignTransaction(tx *solana.Transaction) error
	SendRaw(ctx context.Context, raw []byte) (string, error)
}

type Pipeline struct {
	cfg  *config.Config
	agg  Aggregator
	http *http.Client
	log  zerolog.Logger
	out  io.Writer
}

// New wires a pipeline around an immutable configuration value. out receives
// the user-facing warning/diagnostic/success lines; nil means stdout.
func New(cfg *config.Config, agg Aggregator, log zerolog.Logger, out io.Writer) *Pipeline {
	if out == nil {
		out = os.Stdout
	}
	return &Pipeline{
		cfg:  cfg,
		agg:  agg,
		http: &http.Client{Timeout: cfg.HTTPTimeout()},
		log:  log,
		out:  out,
	}
}

// Run executes the five stages in order and returns the explorer link for
// the submitted transaction. Every fatal error carries the complete
// user-facing message; nothing is retried.
func (p *Pipeline) Run(ctx context.Context) (string, error) {
	if err := p.cfg.Validate(); err != nil {
		return "", err
	}

	if err := p.checkTradable(ctx); err != nil {
		return "", err
	}

	route, err := p.fetchRoute(ctx)
	if err != nil {
		return "", err
	}

	tx, err := p.agg.BuildSwapTransaction(ctx, route)
	if err != nil {
		metrics.StagesTotal.WithLabelValues("swap_tx", metrics.OutcomeFailed).Inc()
		return "", err
	}
	metrics.StagesTotal.WithLabelValues("swap_tx", metrics.OutcomeOK).Inc()

	if err := p.agg.SignTransaction(tx); err != nil {
		metrics.StagesTotal.WithLabelValues("sign", metrics.OutcomeFailed).Inc()
		return "", err
	}
	metrics.StagesTotal.WithLabelValues("sign", metrics.OutcomeOK).Inc()

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize tx: %w", err)
	}
	sig, err := p.agg.SendRaw(ctx, raw)
	if err != nil {
		metrics.StagesTotal.WithLabelValues("submit", metrics.OutcomeFailed).Inc()
		return "", fmt.Errorf("RPC sendTransaction failed: %v", err)
	}
	metrics.StagesTotal.WithLabelValues("submit", metrics.OutcomeOK).Inc()

	link := p.explorerBase() + sig
	fmt.Fprintf(p.out, "✅ Sent tx: %s\n", link)
	return link, nil
}

// checkTradable enforces the registry gate. Only a failed fetch skips the
// check; a successful fetch of a list that lacks either mint is fatal, even
// when the list is empty.
func (p *Pipeline) checkTradable(ctx context.Context) error {
	reg, err := tokens.Fetch(ctx, p.http, p.cfg.Dex.TokenListURL, p.cfg.Dex.UserAgent)
	if err != nil {
		metrics.StagesTotal.WithLabelValues("token_list", metrics.OutcomeSkipped).Inc()
		p.log.Warn().Err(err).Msg("token list fetch failed, skipping tradability check")
		fmt.Fprintf(p.out, "⚠️ Could not download the Jupiter token list (%v). Continuing without the check …\n", err)
		return nil
	}
	p.log.Debug().Int("tradable", reg.Len()).Msg("token list fetched")

	if !reg.Tradable(p.cfg.Swap.InputMint) {
		metrics.StagesTotal.WithLabelValues("token_list", metrics.OutcomeFailed).Inc()
		return errors.New("input token is not marked tradable in the Jupiter token list")
	}
	if !reg.Tradable(p.cfg.Swap.OutputMint) {
		metrics.StagesTotal.WithLabelValues("token_list", metrics.OutcomeFailed).Inc()
		return errors.New("output token is not marked tradable in the Jupiter token list, try another mint")
	}
	metrics.StagesTotal.WithLabelValues("token_list", metrics.OutcomeOK).Inc()
	return nil
}

// fetchRoute performs the single quote attempt and selects the first route.
func (p *Pipeline) fetchRoute(ctx context.Context) (json.RawMessage, error) {
	q, err := p.agg.GetQuote(ctx, p.cfg.Swap.InputMint, p.cfg.Swap.OutputMint, p.cfg.Swap.AmountAtoms, p.cfg.Swap.SlippageBps)
	if err != nil {
		metrics.StagesTotal.WithLabelValues("quote", metrics.OutcomeFailed).Inc()
		var statusErr *dexsol.StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}
		return nil, fmt.Errorf("quote request failed: %w", err)
	}

	if len(q.Routes) == 0 {
		metrics.StagesTotal.WithLabelValues("quote", metrics.OutcomeFailed).Inc()
		if q.MinInAtoms > p.cfg.Swap.AmountAtoms && p.cfg.Swap.InputPriceUSD > 0 {
			usd := atomsToUSD(q.MinInAtoms, p.cfg.Swap.InputDecimals, p.cfg.Swap.InputPriceUSD)
			return nil, fmt.Errorf(
				"minimum size for this pair ≈ %s USD (minInAmount = %d), increase the amount or try another pair",
				usd.StringFixed(2), q.MinInAtoms,
			)
		}
		fmt.Fprintf(p.out, "🔍 Quote API raw response (truncated): %s\n", util.Truncate(string(q.Raw), 800))
		return nil, errors.New("Jupiter found no route, try slightly more USD or another pair")
	}

	metrics.StagesTotal.WithLabelValues("quote", metrics.OutcomeOK).Inc()
	route := q.Routes[0]
	summary := dexsol.SummarizeRoute(route)
	p.log.Info().
		Str("in", summary.InAmount).
		Str("out", summary.OutAmount).
		Str("impact_pct", summary.PriceImpactPct.String()).
		Int("routes", len(q.Routes)).
		Msg("route selected")
	return route, nil
}

func (p *Pipeline) explorerBase() string {
	if p.cfg.Dex.ExplorerBase != "" {
		return p.cfg.Dex.ExplorerBase
	}
	return defaultExplorerBase
}

// atomsToUSD scales an atomic amount by the token's decimals and multiplies
// by the per-unit USD price.
func atomsToUSD(atoms uint64, decimals int, priceUSD float64) decimal.Decimal {
	return decimal.NewFromInt(int64(atoms)).
		Div(decimal.New(1, int32(decimals))).
		Mul(decimal.NewFromFloat(priceUSD))
}
