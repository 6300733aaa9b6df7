package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/lobsterbattle/wallet-battle-poc/pkg/contracts/events"
)

// KafkaPublisher emite os eventos do stats-sync-worker em dois tópicos:
// odds recalculadas e fim de batalha
type KafkaPublisher struct {
	Odds  *kafka.Writer
	Ended *kafka.Writer
}

func NewKafkaPublisher(odds, ended *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Odds: odds, Ended: ended}
}

func (p *KafkaPublisher) PublishOddsUpdate(ctx context.Context, e events.OddsUpdate) error {
	b, _ := json.Marshal(e)
	return p.Odds.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}

func (p *KafkaPublisher) PublishMatchEnded(ctx context.Context, e events.MatchEnded) error {
	b, _ := json.Marshal(e)
	return p.Ended.WriteMessages(ctx, kafka.Message{Key: []byte(e.MatchID), Value: b})
}
