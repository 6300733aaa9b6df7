package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/match-service/repo"
	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
	"github.com/lobsterbattle/wallet-battle-poc/pkg/contracts/events"
)

// stubRepo devolve erros programados e conta chamadas; nenhuma mutação real
type stubRepo struct {
	placeErr    error
	cancelErr   error
	placeCalls  int
	cancelCalls int
}

func (s *stubRepo) CreateMatch(ctx context.Context, a, b, tf string, st, en time.Time, fee int) (*repo.Match, error) {
	return nil, repo.ErrNotFound
}
func (s *stubRepo) ActivateMatch(ctx context.Context, id string) error { return repo.ErrNotFound }
func (s *stubRepo) GetMatch(ctx context.Context, id string) (*repo.Match, error) {
	return nil, repo.ErrNotFound
}
func (s *stubRepo) ListMatches(ctx context.Context, status string) ([]repo.Match, error) {
	return nil, nil
}
func (s *stubRepo) GetPool(ctx context.Context, id string) (*repo.Pool, error) {
	return nil, repo.ErrNotFound
}
func (s *stubRepo) PlaceBet(ctx context.Context, userID, matchID string, side parimutuel.Side, amountCents int64, sig string) (*repo.Bet, *repo.Pool, error) {
	s.placeCalls++
	return nil, nil, s.placeErr
}
func (s *stubRepo) CancelBet(ctx context.Context, betID string) (*repo.Pool, error) {
	s.cancelCalls++
	return nil, s.cancelErr
}
func (s *stubRepo) ListBets(ctx context.Context, userID, matchID string) ([]repo.Bet, error) {
	return nil, nil
}
func (s *stubRepo) ActiveRound(ctx context.Context, matchID string) (*repo.Round, []repo.RoundDeposit, error) {
	return nil, nil, repo.ErrNotFound
}
func (s *stubRepo) GetStats(ctx context.Context, matchID string) (*repo.MatchStats, error) {
	return nil, repo.ErrNotFound
}

type countingPublisher struct{ calls int }

func (p *countingPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	p.calls++
	return nil
}

// cache nil de propósito: qualquer toque no cache num caminho de rejeição
// estoura o teste
func newTestServer(r *stubRepo, p *countingPublisher) *Server {
	return NewServer(zap.NewNop(), r, nil, p, 250, 500)
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPlaceBet_RejectsNonPositiveAmount(t *testing.T) {
	r := &stubRepo{}
	p := &countingPublisher{}
	h := newTestServer(r, p).Router()

	for _, body := range []string{
		`{"userId":"u1","matchId":"m1","side":"A","amount_cents":0,"tx_signature":"sig"}`,
		`{"userId":"u1","matchId":"m1","side":"A","amount_cents":-500,"tx_signature":"sig"}`,
	} {
		rec := post(h, "/v1/bets", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	// rejeição antes de qualquer efeito: nada no banco, nada no Kafka
	assert.Zero(t, r.placeCalls)
	assert.Zero(t, p.calls)
}

func TestPlaceBet_RejectsMissingSignature(t *testing.T) {
	r := &stubRepo{}
	p := &countingPublisher{}
	h := newTestServer(r, p).Router()

	rec := post(h, "/v1/bets", `{"userId":"u1","matchId":"m1","side":"A","amount_cents":1000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, r.placeCalls)
	assert.Zero(t, p.calls)
}

func TestPlaceBet_RejectsInvalidSide(t *testing.T) {
	r := &stubRepo{placeErr: repo.ErrInvalidSide}
	p := &countingPublisher{}
	h := newTestServer(r, p).Router()

	rec := post(h, "/v1/bets", `{"userId":"u1","matchId":"m1","side":"C","amount_cents":1000,"tx_signature":"sig"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, p.calls)
}

func TestPlaceBet_RejectsWhenMatchClosed(t *testing.T) {
	// match SETTLED (ou ENDED): aposta recusada com conflito, pool intocado
	r := &stubRepo{placeErr: repo.ErrMatchClosed}
	p := &countingPublisher{}
	h := newTestServer(r, p).Router()

	rec := post(h, "/v1/bets", `{"userId":"u1","matchId":"m1","side":"A","amount_cents":1000,"tx_signature":"sig"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, r.placeCalls)
	assert.Zero(t, p.calls)
}

func TestCancelBet_RejectsWhenMatchClosed(t *testing.T) {
	// depois do fim do match o stake fica preso no pool até a liquidação
	r := &stubRepo{cancelErr: repo.ErrMatchClosed}
	p := &countingPublisher{}
	h := newTestServer(r, p).Router()

	rec := post(h, "/v1/bets/b1/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, r.cancelCalls)
}

func TestCancelBet_RejectsNonPending(t *testing.T) {
	r := &stubRepo{cancelErr: repo.ErrBetNotPending}
	p := &countingPublisher{}
	h := newTestServer(r, p).Router()

	rec := post(h, "/v1/bets/b1/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
