package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"inventory-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "item:"

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

// ItemCache caché multi-nivel del catálogo de items (por nombre).
// Solo guarda datos del catálogo; el stock nunca se cachea.
type ItemCache struct {
	// L1 Cache: Memoria local
	l1Cache map[string]*models.Item
	l1Mutex sync.RWMutex

	// L2 Cache: Redis, opcional
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64
}

// NewItemCache crea el caché. redisClient puede ser nil para operar solo con L1.
func NewItemCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *ItemCache {
	return &ItemCache{
		l1Cache:     make(map[string]*models.Item),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
	}
}

// GetStats retorna estadísticas del caché
func (c *ItemCache) GetStats() CacheStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()

	c.l1Mutex.RLock()
	totalKeys := len(c.l1Cache)
	c.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          c.hits,
		Misses:        c.misses,
		TotalRequests: c.hits + c.misses,
		TotalKeys:     totalKeys,
	}
}

// GetItem busca un item por nombre. Retorna nil si no está en caché.
func (c *ItemCache) GetItem(ctx context.Context, name string) *models.Item {
	start := time.Now()

	if item := c.getFromL1(name); item != nil {
		c.recordHit()
		c.logger.Debug("L1 cache hit",
			zap.String("item", name),
			zap.Duration("latency", time.Since(start)))
		return item
	}

	if item, err := c.getFromL2(ctx, name); err == nil && item != nil {
		c.setToL1(name, item)
		c.recordHit()
		c.logger.Debug("L2 cache hit",
			zap.String("item", name),
			zap.Duration("latency", time.Since(start)))
		return item
	}

	c.recordMiss()
	return nil
}

// SetItem almacena un item en ambos niveles
func (c *ItemCache) SetItem(ctx context.Context, item *models.Item) {
	c.setToL1(item.Name, item)
	if err := c.setToL2(ctx, item); err != nil {
		c.logger.Warn("No se pudo guardar item en Redis", zap.String("item", item.Name), zap.Error(err))
	}
}

// Invalidate elimina un item de ambos niveles
func (c *ItemCache) Invalidate(ctx context.Context, name string) {
	c.l1Mutex.Lock()
	delete(c.l1Cache, name)
	c.l1Mutex.Unlock()

	if c.redisClient == nil {
		return
	}
	if err := c.redisClient.Del(ctx, keyPrefix+name).Err(); err != nil {
		c.logger.Warn("No se pudo invalidar item en Redis", zap.String("item", name), zap.Error(err))
	}
}

// InvalidateAll vacía el caché completo. Se usa tras un reemplazo masivo del ledger.
func (c *ItemCache) InvalidateAll(ctx context.Context) {
	c.l1Mutex.Lock()
	c.l1Cache = make(map[string]*models.Item)
	c.l1Mutex.Unlock()

	if c.redisClient == nil {
		return
	}
	iter := c.redisClient.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("No se pudo invalidar item en Redis", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Error recorriendo claves de Redis", zap.Error(err))
	}
}

func (c *ItemCache) recordHit() {
	c.statsMutex.Lock()
	c.hits++
	c.statsMutex.Unlock()
}

func (c *ItemCache) recordMiss() {
	c.statsMutex.Lock()
	c.misses++
	c.statsMutex.Unlock()
}

func (c *ItemCache) getFromL1(name string) *models.Item {
	c.l1Mutex.RLock()
	defer c.l1Mutex.RUnlock()

	item, ok := c.l1Cache[name]
	if !ok {
		return nil
	}
	copied := *item
	return &copied
}

func (c *ItemCache) setToL1(name string, item *models.Item) {
	c.l1Mutex.Lock()
	defer c.l1Mutex.Unlock()

	if _, ok := c.l1Cache[name]; !ok && len(c.l1Cache) >= c.maxL1Size {
		c.evictOne()
	}

	copied := *item
	c.l1Cache[name] = &copied
}

// evictOne elimina una entrada arbitraria
func (c *ItemCache) evictOne() {
	for key := range c.l1Cache {
		delete(c.l1Cache, key)
		break
	}
}

func (c *ItemCache) getFromL2(ctx context.Context, name string) (*models.Item, error) {
	if c.redisClient == nil {
		return nil, nil
	}
	data, err := c.redisClient.Get(ctx, keyPrefix+name).Result()
	if err != nil {
		return nil, err
	}

	var item models.Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		return nil, fmt.Errorf("failed to decode cached item: %w", err)
	}
	return &item, nil
}

func (c *ItemCache) setToL2(ctx context.Context, item *models.Item) error {
	if c.redisClient == nil {
		return nil
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.redisClient.Set(ctx, keyPrefix+item.Name, data, c.ttl).Err()
}
