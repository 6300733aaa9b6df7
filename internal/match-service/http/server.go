package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/match-service/cache"
	"github.com/lobsterbattle/wallet-battle-poc/internal/match-service/dto"
	"github.com/lobsterbattle/wallet-battle-poc/internal/match-service/repo"
	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
	"github.com/lobsterbattle/wallet-battle-poc/pkg/contracts/events"
)

// Repo é o contrato de persistência consumido pelos handlers
type Repo interface {
	CreateMatch(ctx context.Context, walletAID, walletBID, timeframe string, startAt, endAt time.Time, houseFeeBps int) (*repo.Match, error)
	ActivateMatch(ctx context.Context, matchID string) error
	GetMatch(ctx context.Context, matchID string) (*repo.Match, error)
	ListMatches(ctx context.Context, status string) ([]repo.Match, error)
	GetPool(ctx context.Context, matchID string) (*repo.Pool, error)
	PlaceBet(ctx context.Context, userID, matchID string, side parimutuel.Side, amountCents int64, txSignature string) (*repo.Bet, *repo.Pool, error)
	CancelBet(ctx context.Context, betID string) (*repo.Pool, error)
	ListBets(ctx context.Context, userID, matchID string) ([]repo.Bet, error)
	ActiveRound(ctx context.Context, matchID string) (*repo.Round, []repo.RoundDeposit, error)
	GetStats(ctx context.Context, matchID string) (*repo.MatchStats, error)
}

// Server expõe a API REST de matches, apostas e odds
type Server struct {
	log   *zap.Logger
	repo  Repo
	cache *cache.Cache
	publ  interface {
		PublishBetPlaced(context.Context, events.BetPlaced) error
	}

	houseFeeBps  int // default pra matches criados sem fee explícita
	houseEdgeBps int // margem das odds por PnL
}

func NewServer(log *zap.Logger, r Repo, c *cache.Cache, p interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
}, houseFeeBps, houseEdgeBps int) *Server {
	return &Server{log: log, repo: r, cache: c, publ: p, houseFeeBps: houseFeeBps, houseEdgeBps: houseEdgeBps}
}

// Router retorna o roteador HTTP com os endpoints REST
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/matches", s.createMatch)
	r.Get("/v1/matches", s.listMatches)
	r.Get("/v1/matches/{id}", s.getMatch)
	r.Post("/v1/matches/{id}/activate", s.activateMatch)
	r.Get("/v1/matches/{id}/odds", s.getOdds)
	r.Get("/v1/matches/{id}/round", s.getRound)
	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/bets", s.listBets)
	r.Post("/v1/bets/{id}/cancel", s.cancelBet)
	return r
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.WalletAID == "" || req.WalletBID == "" || req.WalletAID == req.WalletBID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "two distinct wallets required"})
		return
	}
	switch req.Timeframe {
	case "DAILY", "WEEKLY", "MONTHLY":
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timeframe"})
		return
	}
	if !req.EndAt.After(req.StartAt) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endAt must be after startAt"})
		return
	}

	fee := req.HouseFeeBps
	if fee <= 0 {
		fee = s.houseFeeBps
	}

	m, err := s.repo.CreateMatch(r.Context(), req.WalletAID, req.WalletBID, req.Timeframe, req.StartAt, req.EndAt, fee)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MatchResponse{Match: m})
}

func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	ms, err := s.repo.ListMatches(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.repo.GetMatch(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	resp := dto.MatchResponse{Match: m}
	if pl, err := s.repo.GetPool(r.Context(), id); err == nil {
		resp.Pool = pl
	}
	if st, err := s.repo.GetStats(r.Context(), id); err == nil {
		resp.Stats = st
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) activateMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.ActivateMatch(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": repo.MatchLive})
}

// getOdds retorna a cotação atual do match, preferencialmente do cache.
// Janela de frescor curta: o preço real de uma aposta é sempre recalculado
// dentro da transação de aceite, nunca lido daqui.
func (s *Server) getOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var fromCache dto.OddsResponse
	if ok, _ := s.cache.GetOdds(r.Context(), id, &fromCache); ok {
		writeJSON(w, http.StatusOK, fromCache)
		return
	}

	pl, err := s.repo.GetPool(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	resp := dto.OddsResponse{
		MatchID:        id,
		Pool:           parimutuel.FromPools(pl.PoolACents, pl.PoolBCents, pl.HouseFeeBps),
		PoolACents:     pl.PoolACents,
		PoolBCents:     pl.PoolBCents,
		TotalPoolCents: pl.TotalPoolCents,
		HouseFeeBps:    pl.HouseFeeBps,
		UpdatedAt:      time.Now().UTC(),
	}
	if st, err := s.repo.GetStats(r.Context(), id); err == nil {
		live := parimutuel.FromPnl(st.DailyPnlA, st.DailyPnlB, s.houseEdgeBps)
		resp.Live = &live
	}

	_ = s.cache.SetOdds(r.Context(), id, resp, 5*time.Second)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getRound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.repo.GetMatch(r.Context(), id); err != nil {
		s.writeErr(w, err)
		return
	}
	rd, deps, err := s.repo.ActiveRound(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RoundResponse{Round: rd, Deposits: deps})
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if req.UserID == "" || req.MatchID == "" || req.AmountCents <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.TxSignature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tx signature required"})
		return
	}

	bet, pool, err := s.repo.PlaceBet(r.Context(), req.UserID, req.MatchID, parimutuel.Side(req.Side), req.AmountCents, req.TxSignature)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	// atualiza o snapshot do pool e invalida a cotação cacheada;
	// falha de cache não desfaz a aposta aceita
	if err := s.cache.SetPool(r.Context(), req.MatchID, pool); err != nil {
		s.log.Warn("pool cache set failed", zap.Error(err))
	}
	_ = s.cache.DelOdds(r.Context(), req.MatchID)

	_ = s.publ.PublishBetPlaced(r.Context(), events.BetPlaced{
		BetID:        bet.ID,
		UserID:       bet.UserID,
		MatchID:      bet.MatchID,
		Side:         bet.Side,
		AmountCents:  bet.AmountCents,
		OddsSnapshot: bet.OddsSnapshot,
		TxSignature:  bet.TxSignature,
	})

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{Bet: bet, Pool: pool})
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	bets, err := s.repo.ListBets(r.Context(), r.URL.Query().Get("userId"), r.URL.Query().Get("matchId"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BetListResponse{Bets: bets})
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	betID := chi.URLParam(r, "id")
	pool, err := s.repo.CancelBet(r.Context(), betID)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	if err := s.cache.SetPool(r.Context(), pool.MatchID, pool); err != nil {
		s.log.Warn("pool cache set failed", zap.Error(err))
	}
	_ = s.cache.DelOdds(r.Context(), pool.MatchID)

	writeJSON(w, http.StatusOK, map[string]any{"status": repo.BetCancelled, "pool": pool})
}

// writeErr mapeia os erros sentinela do repositório pra status HTTP
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repo.ErrInvalidAmount), errors.Is(err, repo.ErrInvalidSide):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repo.ErrMatchClosed), errors.Is(err, repo.ErrBetNotPending):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
