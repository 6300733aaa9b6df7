package topics

const (
	// Odds
	OddsUpdates = "odds_updates"

	// Bets
	BetPlaced = "bet_placed"

	// Ciclo de vida do match
	MatchEnded   = "match_ended"
	MatchSettled = "match_settled"

	// DLQs
	MatchEndedDLQ = "match_ended_dlq"
)
