// Package solana wraps the Jupiter v6 aggregator API and the Solana RPC
// surface needed to quote, assemble, sign, and submit one swap.
package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/malyshevid/volume-bot/internal/metrics"
	"github.com/malyshevid/volume-bot/internal/util"
)

type JupiterClient struct {
	Base      string
	RPC       *rpc.Client
	Owner     solana.PrivateKey
	Commit    rpc.CommitmentType
	Http      *http.Client
	UserAgent string
}

// StatusError is a non-2xx aggregator response. Body is already truncated
// to a diagnostic-sized prefix.
type StatusError struct {
	Op     string // "quote" or "swap"
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API error: status %d → %s", e.Op, e.Status, e.Body)
}

// QuoteResult is the normalized form of the quote endpoint's two response
// shapes: a bare route array, or an object wrapping the array under "data".
// Routes stay raw so the selected one reaches the swap endpoint unmodified.
type QuoteResult struct {
	Routes     []json.RawMessage
	MinInAtoms uint64 // 0 when the response carried no usable minimum hint
	Raw        []byte
}

// RouteSummary is a best-effort peek into a route for logging. Fields the
// provider omits simply stay zero.
type RouteSummary struct {
	InAmount             string      `json:"inAmount"`
	OutAmount            string      `json:"outAmount"`
	OtherAmountThreshold string      `json:"otherAmountThreshold"`
	PriceImpactPct       json.Number `json:"priceImpactPct"`
}

func NewJupiterClient(rpcURL, base string, owner solana.PrivateKey, commit string, timeout time.Duration) *JupiterClient {
	c := rpc.CommitmentConfirmed
	switch commit {
	case "processed":
		c = rpc.CommitmentProcessed
	case "finalized":
		c = rpc.CommitmentFinalized
	}
	return &JupiterClient{
		Base:   base,
		RPC:    rpc.New(rpcURL),
		Owner:  owner,
		Commit: c,
		Http:   &http.Client{Timeout: timeout},
	}
}

// GetQuote requests routes for an exact-in conversion. amount is in smallest
// units (lamports for SOL; token decimals apply). Exactly one attempt is
// made; callers decide what an empty route set means.
func (j *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*QuoteResult, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("slippageBps", fmt.Sprintf("%d", slippageBps))
	q.Set("swapMode", "ExactIn")
	u := j.Base + "/v6/quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if j.UserAgent != "" {
		req.Header.Set("User-Agent", j.UserAgent)
	}
	resp, err := j.Http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	metrics.HTTPRequestsTotal.WithLabelValues("quote", strconv.Itoa(resp.StatusCode)).Inc()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "quote", Status: resp.StatusCode, Body: util.Truncate(string(raw), 300)}
	}
	return parseQuoteResponse(raw)
}

func parseQuoteResponse(raw []byte) (*QuoteResult, error) {
	trimmed := bytes.TrimSpace(raw)
	res := &QuoteResult{Raw: raw}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &res.Routes); err != nil {
			return nil, fmt.Errorf("decode quote response: %w", err)
		}
		return res, nil
	}
	var wrapped struct {
		Data        []json.RawMessage `json:"data"`
		MinInAmount json.RawMessage   `json:"minInAmount"`
		MinIn       json.RawMessage   `json:"minIn"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	res.Routes = wrapped.Data
	res.MinInAtoms = pickMinIn(wrapped.MinInAmount, wrapped.MinIn)
	return res, nil
}

// pickMinIn accepts the first of the two alternate field names that holds a
// positive integer. Strings, fractions, and negatives are ignored rather
// than treated as errors, since the hint is best-effort.
func pickMinIn(candidates ...json.RawMessage) uint64 {
	for _, c := range candidates {
		var n json.Number
		if err := json.Unmarshal(c, &n); err != nil {
			continue
		}
		v, err := n.Int64()
		if err != nil || v <= 0 {
			continue
		}
		return uint64(v)
	}
	return 0
}

// SummarizeRoute extracts the loggable corners of a route without touching
// the bytes that will be forwarded to the swap endpoint.
func SummarizeRoute(route json.RawMessage) RouteSummary {
	var s RouteSummary
	_ = json.Unmarshal(route, &s)
	return s
}

// BuildSwapTransaction posts the selected route back to Jupiter and decodes
// the returned base64 transaction. The route bytes are forwarded as-is under
// "quoteResponse".
func (j *JupiterClient) BuildSwapTransaction(ctx context.Context, route json.RawMessage) (*solana.Transaction, error) {
	payload := struct {
		QuoteResponse    json.RawMessage `json:"quoteResponse"`
		UserPublicKey    string          `json:"userPublicKey"`
		WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
	}{
		QuoteResponse:    route,
		UserPublicKey:    j.Owner.PublicKey().String(),
		WrapAndUnwrapSol: true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Base+"/v6/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if j.UserAgent != "" {
		req.Header.Set("User-Agent", j.UserAgent)
	}
	resp, err := j.Http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	metrics.HTTPRequestsTotal.WithLabelValues("swap", strconv.Itoa(resp.StatusCode)).Inc()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read swap response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "swap", Status: resp.StatusCode, Body: util.Truncate(string(raw), 300)}
	}

	var sr struct {
		SwapTransaction string `json:"swapTransaction"`
	}
	if err := json.Unmarshal(raw, &sr); err != nil || sr.SwapTransaction == "" {
		return nil, fmt.Errorf("swap API did not return swapTransaction: %s", util.Truncate(string(raw), 400))
	}

	decoded, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(decoded))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tx: %w", err)
	}
	return tx, nil
}

// SignTransaction fills the owner's signature slot in place. No other part
// of the transaction is altered.
func (j *JupiterClient) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(j.Owner.PublicKey()) {
			return &j.Owner
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	return nil
}

// SendRaw broadcasts serialized signed transaction bytes and returns the
// signature string. Retry policy, if any, belongs to the RPC node.
func (j *JupiterClient) SendRaw(ctx context.Context, raw []byte) (string, error) {
	sig, err := j.RPC.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: j.Commit,
	})
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}
