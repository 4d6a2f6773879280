// Package events distribuye los eventos del ledger a los clientes del stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"inventory-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Channel canal de Redis donde se publican los eventos del ledger
const Channel = "ledger:events"

// Bus publica eventos y entrega suscripciones
type Bus interface {
	Publish(ctx context.Context, event models.LedgerEvent) error
	// Subscribe retorna un canal de eventos y una función para cancelar la suscripción
	Subscribe(ctx context.Context) (<-chan models.LedgerEvent, func(), error)
}

// redisBus usa pub/sub de Redis para que todas las instancias vean los eventos
type redisBus struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBus crea un bus sobre Redis pub/sub
func NewRedisBus(client *redis.Client, logger *zap.Logger) Bus {
	return &redisBus{client: client, logger: logger}
}

func (b *redisBus) Publish(ctx context.Context, event models.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := b.client.Publish(ctx, Channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (b *redisBus) Subscribe(ctx context.Context) (<-chan models.LedgerEvent, func(), error) {
	pubsub := b.client.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan models.LedgerEvent, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event models.LedgerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("Evento inválido en Redis", zap.Error(err))
				continue
			}
			select {
			case out <- event:
			default:
				b.logger.Warn("Suscriptor lento, evento descartado", zap.String("type", string(event.Type)))
			}
		}
	}()

	return out, func() { pubsub.Close() }, nil
}

// localBus distribuye eventos dentro del proceso. Se usa sin Redis.
type localBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan models.LedgerEvent
	nextID      int
	logger      *zap.Logger
}

// NewLocalBus crea un bus en memoria
func NewLocalBus(logger *zap.Logger) Bus {
	return &localBus{
		subscribers: make(map[int]chan models.LedgerEvent),
		logger:      logger,
	}
}

func (b *localBus) Publish(ctx context.Context, event models.LedgerEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Suscriptor lento, evento descartado", zap.String("type", string(event.Type)))
		}
	}
	return nil
}

func (b *localBus) Subscribe(ctx context.Context) (<-chan models.LedgerEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan models.LedgerEvent, 16)
	b.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel, nil
}
