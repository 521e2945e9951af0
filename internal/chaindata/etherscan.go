package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ctrad/prescreen/internal/model"
)

// scanChainIDs maps chains to the scan API's chainid parameter.
var scanChainIDs = map[model.Chain]string{
	model.ChainEthereum: "1",
	model.ChainBSC:      "56",
	model.ChainPolygon:  "137",
}

// ScanProvider is an Etherscan-compatible API client. It is read-only
// and holds no state beyond its HTTP client.
type ScanProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	oracle  *PriceOracle
	now     Clock
}

// NewScanProvider creates a scan-API provider. timeout bounds every
// request; the oracle converts native transfer values to USD.
func NewScanProvider(baseURL, apiKey string, timeout time.Duration, oracle *PriceOracle) *ScanProvider {
	return &ScanProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		oracle:  oracle,
		now:     time.Now,
	}
}

// Name identifies this provider in cache keys and metrics.
func (p *ScanProvider) Name() string { return "etherscan" }

// WalletTxCount returns the lifetime outgoing transaction count (nonce)
// for an address.
func (p *ScanProvider) WalletTxCount(ctx context.Context, chain model.Chain, addr string) (int64, error) {
	params := url.Values{
		"module":  {"proxy"},
		"action":  {"eth_getTransactionCount"},
		"address": {addr},
		"tag":     {"latest"},
	}

	var resp struct {
		Result string `json:"result"`
	}
	if err := p.get(ctx, chain, params, &resp); err != nil {
		return 0, err
	}

	count, err := strconv.ParseInt(strings.TrimPrefix(resp.Result, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse tx count %q: %w", resp.Result, err)
	}
	return count, nil
}

// WalletAgeDays approximates wallet age from its first transaction.
// A wallet with no transactions has age 0.
func (p *ScanProvider) WalletAgeDays(ctx context.Context, chain model.Chain, addr string) (int64, error) {
	txs, err := p.txList(ctx, chain, addr, 1, "asc")
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}
	age := p.now().Sub(txs[0].Timestamp)
	if age < 0 {
		age = 0
	}
	return int64(age.Hours() / 24), nil
}

// ContractVerified reports whether the contract's source code is
// published on the scan service.
func (p *ScanProvider) ContractVerified(ctx context.Context, chain model.Chain, addr string) (bool, error) {
	params := url.Values{
		"module":  {"contract"},
		"action":  {"getsourcecode"},
		"address": {addr},
	}

	var resp struct {
		Result []struct {
			SourceCode string `json:"SourceCode"`
		} `json:"result"`
	}
	if err := p.get(ctx, chain, params, &resp); err != nil {
		return false, err
	}
	if len(resp.Result) == 0 {
		return false, nil
	}
	return resp.Result[0].SourceCode != "", nil
}

// AddressTransactions returns the most recent transfers for an address,
// newest first, with native values converted to approximate USD.
func (p *ScanProvider) AddressTransactions(ctx context.Context, chain model.Chain, addr string, limit int) ([]Transfer, error) {
	if limit <= 0 {
		limit = 25
	}
	return p.txList(ctx, chain, addr, limit, "desc")
}

// scanTx is the wire shape of one txlist entry.
type scanTx struct {
	TimeStamp string `json:"timeStamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"` // wei, decimal string
}

func (p *ScanProvider) txList(ctx context.Context, chain model.Chain, addr string, limit int, sort string) ([]Transfer, error) {
	params := url.Values{
		"module":     {"account"},
		"action":     {"txlist"},
		"address":    {addr},
		"startblock": {"0"},
		"endblock":   {"99999999"},
		"page":       {"1"},
		"offset":     {strconv.Itoa(limit)},
		"sort":       {sort},
	}

	var resp struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := p.get(ctx, chain, params, &resp); err != nil {
		return nil, err
	}

	// "No transactions found" arrives as status 0 with an empty result;
	// that is a valid answer, not a failure.
	var raw []scanTx
	if err := json.Unmarshal(resp.Result, &raw); err != nil {
		if resp.Status == "0" {
			return nil, nil
		}
		return nil, fmt.Errorf("parse txlist: %w", err)
	}

	price := p.oracle.NativePriceUSD(ctx, chain)
	out := make([]Transfer, 0, len(raw))
	for _, tx := range raw {
		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Transfer{
			From:      model.NormalizeAddress(tx.From),
			To:        model.NormalizeAddress(tx.To),
			AmountUSD: weiToUSD(tx.Value, price),
			Timestamp: time.Unix(ts, 0).UTC(),
		})
	}
	return out, nil
}

// get performs one API request and decodes the JSON body into dst.
func (p *ScanProvider) get(ctx context.Context, chain model.Chain, params url.Values, dst any) error {
	params.Set("chainid", scanChainIDs[chain])
	if p.apiKey != "" {
		params.Set("apikey", p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("scan request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scan API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode scan response: %w", err)
	}
	return nil
}

// weiToUSD converts a decimal wei string to approximate USD at the given
// native-coin price. Unparseable values convert to 0.
func weiToUSD(wei string, price float64) float64 {
	v, ok := new(big.Float).SetString(wei)
	if !ok {
		return 0
	}
	native, _ := new(big.Float).Quo(v, big.NewFloat(1e18)).Float64()
	return native * price
}
