// Market data tools: crypto spot prices via CoinGecko and fiat conversion
// via exchangerate.host. Both are keyless public endpoints.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"
)

// coinGeckoIDs maps common asset spellings to CoinGecko coin ids.
var coinGeckoIDs = map[string]string{
	"btc": "bitcoin", "bitcoin": "bitcoin",
	"eth": "ethereum", "ethereum": "ethereum",
	"sol": "solana", "solana": "solana",
	"ada": "cardano", "cardano": "cardano",
	"xrp": "ripple", "ripple": "ripple",
	"doge": "dogecoin", "dogecoin": "dogecoin",
	"ltc": "litecoin", "litecoin": "litecoin",
	"bnb": "binancecoin",
	"dot": "polkadot", "polkadot": "polkadot",
	"matic": "matic-network", "polygon": "matic-network",
}

func (tb *Toolbox) marketSpecs() []Spec {
	return []Spec{
		{
			Name:        "crypto.price",
			Description: "Cotação de criptoativos em tempo real (CoinGecko)",
			Params:      map[string]string{"asset": "str", "vs_currencies": "list[str]?"},
			Func:        tb.cryptoPrice,
		},
		{
			Name:        "fx.rate",
			Description: "Conversão de moedas em tempo real (exchangerate.host)",
			Params:      map[string]string{"base": "str", "target": "str", "amount": "float?"},
			Func:        tb.fxRate,
		},
	}
}

// ResolveAssetID maps a user-facing asset name to its CoinGecko id.
// Exported because the heuristic engine validates assets before issuing
// the shortcut call.
func ResolveAssetID(asset string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(asset))
	key = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return -1
	}, key)
	id, ok := coinGeckoIDs[key]
	return id, ok
}

func (tb *Toolbox) cryptoPrice(ctx context.Context, args map[string]any) Result {
	var a struct {
		Asset        string   `json:"asset"`
		VsCurrencies []string `json:"vs_currencies"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if strings.TrimSpace(a.Asset) == "" {
		return Fail("parâmetro 'asset' obrigatório")
	}

	vs := normalizeCurrencyList(a.VsCurrencies)
	assetID, ok := ResolveAssetID(a.Asset)
	if !ok {
		return Fail("asset_desconhecido")
	}

	q := url.Values{}
	q.Set("ids", assetID)
	q.Set("vs_currencies", strings.Join(vs, ","))
	q.Set("include_24hr_change", "true")
	q.Set("include_last_updated_at", "true")
	endpoint := "https://api.coingecko.com/api/v3/simple/price?" + q.Encode()

	var payload map[string]map[string]float64
	if err := tb.getJSON(ctx, endpoint, &payload); err != nil {
		return Fail("falha_coingecko: %v", err)
	}
	data, found := payload[assetID]
	if !found {
		return Fail("resposta_invalida")
	}

	prices := map[string]float64{}
	changes := map[string]float64{}
	for _, fiat := range vs {
		if v, ok := data[fiat]; ok {
			prices[fiat] = v
		}
		if v, ok := data[fiat+"_24h_change"]; ok {
			changes[fiat] = v
		}
	}

	extra := map[string]any{
		"asset":         a.Asset,
		"asset_id":      assetID,
		"prices":        prices,
		"changes_24h":   changes,
		"vs_currencies": vs,
		"source":        "https://www.coingecko.com",
	}
	if ts, ok := data["last_updated_at"]; ok && ts > 0 {
		updated := time.Unix(int64(ts), 0).UTC()
		extra["last_updated_iso"] = updated.Format(time.RFC3339)
		extra["last_updated_hours_ago"] = time.Since(updated).Hours()
	}
	return OK(extra)
}

func (tb *Toolbox) fxRate(ctx context.Context, args map[string]any) Result {
	var a struct {
		Base   string  `json:"base"`
		Target string  `json:"target"`
		Amount float64 `json:"amount"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Base == "" || a.Target == "" {
		return Fail("parâmetros 'base' e 'target' obrigatórios")
	}
	if a.Amount <= 0 {
		a.Amount = 1
	}

	q := url.Values{}
	q.Set("from", strings.ToUpper(a.Base))
	q.Set("to", strings.ToUpper(a.Target))
	q.Set("amount", fmt.Sprintf("%g", a.Amount))
	endpoint := "https://api.exchangerate.host/convert?" + q.Encode()

	var payload struct {
		Success bool    `json:"success"`
		Result  float64 `json:"result"`
		Date    string  `json:"date"`
		Info    struct {
			Rate      float64 `json:"rate"`
			Timestamp int64   `json:"timestamp"`
		} `json:"info"`
	}
	if err := tb.getJSON(ctx, endpoint, &payload); err != nil {
		return Fail("falha_exchangerate: %v", err)
	}
	if !payload.Success {
		return Fail("falha_exchangerate: resposta sem sucesso")
	}

	extra := map[string]any{
		"base":      strings.ToUpper(a.Base),
		"target":    strings.ToUpper(a.Target),
		"amount":    a.Amount,
		"rate":      payload.Info.Rate,
		"converted": payload.Result,
		"date":      payload.Date,
		"source":    "https://api.exchangerate.host/convert",
	}
	var updated time.Time
	if payload.Info.Timestamp > 0 {
		updated = time.Unix(payload.Info.Timestamp, 0).UTC()
	} else if d, err := time.Parse("2006-01-02", payload.Date); err == nil {
		updated = d
	}
	if !updated.IsZero() {
		extra["last_updated_iso"] = updated.Format(time.RFC3339)
		extra["last_updated_hours_ago"] = math.Max(time.Since(updated).Hours(), 0)
	}
	return OK(extra)
}

func (tb *Toolbox) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := tb.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func normalizeCurrencyList(vs []string) []string {
	set := map[string]bool{}
	for _, v := range vs {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	if len(set) == 0 {
		set["usd"] = true
		set["brl"] = true
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
