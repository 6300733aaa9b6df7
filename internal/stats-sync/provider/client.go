package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WalletSnapshot é a leitura pontual de uma carteira feita pelo provider de
// stats. O core não calcula valor de portfólio — isso envolve consultas de
// saldo e preço na chain, que ficam do lado de fora.
type WalletSnapshot struct {
	WalletID          string    `json:"wallet_id"`
	PortfolioValueUSD float64   `json:"portfolio_value_usd"`
	Trades24h         int       `json:"trades_24h"`
	Ts                time.Time `json:"ts"`
}

// Client consome a API HTTP do provider de PnL
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Snapshot busca o valor atual de portfólio de uma carteira
func (c *Client) Snapshot(ctx context.Context, walletID string) (*WalletSnapshot, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/pnl/"+walletID, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("pnl provider http %d", res.StatusCode)
	}
	var out WalletSnapshot
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
