package repo

import "time"

// Status do ciclo de vida de um match
const (
	MatchUpcoming = "UPCOMING"
	MatchLive     = "LIVE"
	MatchEnded    = "ENDED"
	MatchSettled  = "SETTLED"
)

// Status de uma aposta
const (
	BetPending   = "PENDING"
	BetSettled   = "SETTLED"
	BetCancelled = "CANCELLED"
)

// Status de um round diário
const (
	RoundActive = "ACTIVE"
	RoundEnded  = "ENDED"
)

// Match é uma batalha entre duas carteiras persistida no Postgres.
// Os valores iniciais de portfólio são a baseline de PnL: capturados uma única
// vez na transição pra LIVE e imutáveis depois disso.
type Match struct {
	ID                     string    `json:"id"`
	WalletAID              string    `json:"walletAId"`
	WalletBID              string    `json:"walletBId"`
	Timeframe              string    `json:"timeframe"` // DAILY | WEEKLY | MONTHLY
	StartAt                time.Time `json:"startAt"`
	EndAt                  time.Time `json:"endAt"`
	Status                 string    `json:"status"`
	InitialPortfolioValueA *float64  `json:"initialPortfolioValueA,omitempty"`
	InitialPortfolioValueB *float64  `json:"initialPortfolioValueB,omitempty"`
	WinnerWalletID         *string   `json:"winnerWalletId,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

// Pool acumula os stakes de cada lado do match.
// Invariante: TotalPoolCents == PoolACents + PoolBCents, sempre.
type Pool struct {
	ID             string    `json:"id"`
	MatchID        string    `json:"matchId"`
	PoolACents     int64     `json:"poolACents"`
	PoolBCents     int64     `json:"poolBCents"`
	TotalPoolCents int64     `json:"totalPoolCents"`
	HouseFeeBps    int       `json:"houseFeeBps"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Bet é um stake individual. OddsSnapshot é o multiplicador travado no aceite
// e nunca muda depois.
type Bet struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	MatchID      string    `json:"matchId"`
	Side         string    `json:"side"`
	AmountCents  int64     `json:"amountCents"`
	OddsSnapshot float64   `json:"oddsSnapshot"`
	Status       string    `json:"status"`
	PayoutCents  *int64    `json:"payoutCents,omitempty"`
	TxSignature  string    `json:"txSignature,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Round é o sub-período diário de um match, com pools próprios
type Round struct {
	ID             string     `json:"id"`
	MatchID        string     `json:"matchId"`
	RoundNumber    int        `json:"roundNumber"`
	StartAt        time.Time  `json:"startAt"`
	EndAt          *time.Time `json:"endAt,omitempty"`
	Status         string     `json:"status"`
	FinalPnlA      *float64   `json:"finalPnlA,omitempty"`
	FinalPnlB      *float64   `json:"finalPnlB,omitempty"`
	WinnerWalletID *string    `json:"winnerWalletId,omitempty"`
	PoolACents     int64      `json:"poolACents"`
	PoolBCents     int64      `json:"poolBCents"`
	TotalPoolCents int64      `json:"totalPoolCents"`
}

// RoundDeposit é a projeção de uma aposta dentro do round em que ela caiu
type RoundDeposit struct {
	ID           string    `json:"id"`
	RoundID      string    `json:"roundId"`
	BetID        string    `json:"betId"`
	UserID       string    `json:"userId"`
	Side         string    `json:"side"`
	AmountCents  int64     `json:"amountCents"`
	OddsSnapshot float64   `json:"oddsSnapshot"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MatchStats é a projeção de PnL mantida pelo stats-sync-worker
type MatchStats struct {
	MatchID         string    `json:"matchId"`
	PortfolioValueA float64   `json:"portfolioValueA"`
	PortfolioValueB float64   `json:"portfolioValueB"`
	PnlA            float64   `json:"pnlA"`
	PnlB            float64   `json:"pnlB"`
	DailyPnlA       float64   `json:"dailyPnlA"`
	DailyPnlB       float64   `json:"dailyPnlB"`
	Trades24hA      int       `json:"trades24hA"`
	Trades24hB      int       `json:"trades24hB"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
