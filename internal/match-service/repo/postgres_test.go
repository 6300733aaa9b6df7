package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lobsterbattle/wallet-battle-poc/internal/parimutuel"
)

// As validações de PlaceBet rodam antes de qualquer query: com db nil,
// qualquer toque no banco estoura — o teste prova que a rejeição é pura.
func TestPlaceBet_RejectsNonPositiveAmount(t *testing.T) {
	p := NewPostgres(nil)

	_, _, err := p.PlaceBet(context.Background(), "u1", "m1", parimutuel.SideA, 0, "sig")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, _, err = p.PlaceBet(context.Background(), "u1", "m1", parimutuel.SideA, -500, "sig")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPlaceBet_RejectsInvalidSide(t *testing.T) {
	p := NewPostgres(nil)

	_, _, err := p.PlaceBet(context.Background(), "u1", "m1", parimutuel.Side("C"), 1000, "sig")
	assert.ErrorIs(t, err, ErrInvalidSide)

	_, _, err = p.PlaceBet(context.Background(), "u1", "m1", parimutuel.Side(""), 1000, "sig")
	assert.ErrorIs(t, err, ErrInvalidSide)
}
