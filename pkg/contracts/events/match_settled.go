package events

import "time"

// Evento emitido pelo settlement-worker após liquidar um match.
type MatchSettled struct {
	MatchID         string    `json:"match_id"`
	WinnerSide      string    `json:"winner_side"`
	TotalPoolCents  int64     `json:"total_pool_cents"`
	HouseFeeCents   int64     `json:"house_fee_cents"`
	PayoutPoolCents int64     `json:"payout_pool_cents"`
	PayoutCount     int       `json:"payout_count"`
	TotalPaidCents  int64     `json:"total_paid_cents"`
	Ts              time.Time `json:"ts"`
}
