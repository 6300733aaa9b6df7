package events

import "time"

// Evento publicado no tópico "odds_updates"
type OddsUpdate struct {
	MatchID      string    `json:"match_id"`
	Source       string    `json:"source"` // "pool" | "pnl"
	OddsA        float64   `json:"odds_a"`
	OddsB        float64   `json:"odds_b"`
	ImpliedProbA float64   `json:"implied_prob_a"`
	ImpliedProbB float64   `json:"implied_prob_b"`
	DailyPnlA    float64   `json:"daily_pnl_a"`
	DailyPnlB    float64   `json:"daily_pnl_b"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"` // incrementado a cada sync
}
