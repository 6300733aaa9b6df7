package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyPool(matchID string) string { return "pool:" + matchID }
func keyOdds(matchID string) string { return "odds:current:" + matchID }

// SetPool grava o snapshot do pool após cada aposta aceita, pra leitores
// verem a mudança sem bater no banco. Projeção de leitura com TTL, nunca
// autoritativa — a fonte da verdade é o Postgres.
func (c *Cache) SetPool(ctx context.Context, matchID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyPool(matchID), b, 60*time.Second).Err()
}

func (c *Cache) GetOdds(ctx context.Context, matchID string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, keyOdds(matchID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetOdds(ctx context.Context, matchID string, v any, ttl time.Duration) error {
	b, _ := json.Marshal(v)
	return c.R.Set(ctx, keyOdds(matchID), b, ttl).Err()
}

// DelOdds invalida a cotação cacheada depois que o pool muda
func (c *Cache) DelOdds(ctx context.Context, matchID string) error {
	return c.R.Del(ctx, keyOdds(matchID)).Err()
}
