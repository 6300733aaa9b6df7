package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/config"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/logger"
	"github.com/lobsterbattle/wallet-battle-poc/internal/shared/metrics"
)

// Simulador de provider de PnL: gera valores de portfólio por random walk
// pra desenvolvimento local, no mesmo contrato HTTP do provider real.

var pnlRequests = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "pnl_simulator_requests_total",
	Help: "Total de consultas de snapshot atendidas",
})

func init() {
	prometheus.MustRegister(pnlRequests)
}

type walletState struct {
	ValueUSD  float64
	Trades24h int
}

// book guarda o estado simulado de cada carteira consultada
type book struct {
	mu      sync.Mutex
	wallets map[string]*walletState
	rng     *rand.Rand
}

func newBook() *book {
	return &book{
		wallets: map[string]*walletState{},
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// snapshot devolve o estado atual da carteira, criando-a no primeiro acesso
func (b *book) snapshot(walletID string) walletState {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.wallets[walletID]
	if !ok {
		// valor inicial entre 5k e 50k USD
		w = &walletState{
			ValueUSD:  5_000 + b.rng.Float64()*45_000,
			Trades24h: b.rng.Intn(40),
		}
		b.wallets[walletID] = w
	}
	return *w
}

// tick aplica um passo de random walk (±1.5%) em todas as carteiras vivas
func (b *book) tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.wallets {
		w.ValueUSD *= 1 + (b.rng.Float64()-0.5)*0.03
		if b.rng.Float64() < 0.3 {
			w.Trades24h++
		}
	}
}

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	b := newBook()
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			b.tick()
		}
	}()

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error { return nil })

	r := chi.NewRouter()
	r.Get("/pnl/{walletID}", func(w http.ResponseWriter, req *http.Request) {
		walletID := chi.URLParam(req, "walletID")
		st := b.snapshot(walletID)
		pnlRequests.Inc()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"wallet_id":           walletID,
			"portfolio_value_usd": st.ValueUSD,
			"trades_24h":          st.Trades24h,
			"ts":                  time.Now().UTC(),
		})
	})

	addr := ":" + cfg.HTTPPort
	log.Info("pnl-simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal("http", zap.Error(err))
	}
}
