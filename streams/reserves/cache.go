// Package reserves maintains a live reserve cache fed by pair Sync events,
// serving router reads without a per-quote RPC round trip.
//
// The core router never caches; callers who want cached reads opt in by
// wiring this collaborator as their ReserveOracle.
package reserves

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	gethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/defistate/uniswapv2-router-go/chains"
)

// Constants for reconnection logic
const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	logBufferSize = 256
)

// SyncTopic is the event signature hash of Sync(uint112,uint112), emitted by
// every pair whenever its reserves change.
var SyncTopic = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")

// ErrUnknownPool is returned on a cache miss when no fallback oracle is configured.
var ErrUnknownPool = errors.New("no cached reserves for pool")

// LogSubscriber is the subset of ethclient used to follow Sync events.
type LogSubscriber interface {
	SubscribeFilterLogs(ctx context.Context, q gethereum.FilterQuery, ch chan<- types.Log) (gethereum.Subscription, error)
}

// Oracle is the fallback consulted on cache misses, typically the storage
// oracle from chains/ethereum.
type Oracle interface {
	FetchReserves(ctx context.Context, pool common.Address) (reserve0, reserve1 *big.Int, err error)
}

// Config holds the configuration for the cache.
type Config struct {
	Subscriber LogSubscriber
	Logger     chains.Logger

	// Fallback serves cache misses and seeds the cache. Optional: without it,
	// misses fail with ErrUnknownPool.
	Fallback Oracle

	// Pools restricts the subscription to specific pairs. Empty subscribes to
	// every Sync event on the chain.
	Pools []common.Address
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Subscriber == nil {
		return errors.New("config: Subscriber is required")
	}
	if c.Logger == nil {
		return errors.New("config: Logger is required")
	}
	return nil
}

type reservePair struct {
	reserve0 *big.Int
	reserve1 *big.Int
}

// Cache implements the router's ReserveOracle backed by Sync events. Its
// lifecycle is bound to the context passed to NewCache.
type Cache struct {
	subscriber LogSubscriber
	fallback   Oracle
	logger     chains.Logger
	pools      []common.Address

	mu      sync.RWMutex
	entries map[common.Address]reservePair

	ctx   context.Context
	wg    sync.WaitGroup
	errCh chan error
}

// NewCache starts the subscription loop and returns the cache. The loop runs
// until ctx is cancelled, reconnecting with backoff on subscription drops.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		subscriber: cfg.Subscriber,
		fallback:   cfg.Fallback,
		logger:     cfg.Logger,
		pools:      cfg.Pools,
		entries:    make(map[common.Address]reservePair),
		ctx:        ctx,
		errCh:      make(chan error, 1),
	}

	c.wg.Add(1)
	go c.loop()

	c.logger.Info("reserve cache started", "pools", len(cfg.Pools))
	return c, nil
}

// Err reports loop termination. The channel closes when the loop stops.
func (c *Cache) Err() <-chan error {
	return c.errCh
}

// FetchReserves serves from the cache, falling through to the fallback oracle
// on a miss. Returned values are copies; callers may mutate them freely.
func (c *Cache) FetchReserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	c.mu.RLock()
	entry, ok := c.entries[pool]
	c.mu.RUnlock()
	if ok {
		return new(big.Int).Set(entry.reserve0), new(big.Int).Set(entry.reserve1), nil
	}

	if c.fallback == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPool, pool.Hex())
	}

	reserve0, reserve1, err := c.fallback.FetchReserves(ctx, pool)
	if err != nil {
		return nil, nil, err
	}

	// Seed the cache. A Sync event racing this write wins eventually: the next
	// event for the pool overwrites the seeded value.
	c.mu.Lock()
	c.entries[pool] = reservePair{
		reserve0: new(big.Int).Set(reserve0),
		reserve1: new(big.Int).Set(reserve1),
	}
	c.mu.Unlock()

	return reserve0, reserve1, nil
}

func (c *Cache) loop() {
	defer c.wg.Done()
	defer close(c.errCh)

	delay := initialReconnectDelay
	for {
		err := c.subscribeOnce()
		if c.ctx.Err() != nil {
			c.logger.Info("reserve cache stopped")
			return
		}

		c.logger.Warn("sync subscription dropped, reconnecting", "err", err, "delay", delay)
		select {
		case <-c.ctx.Done():
			c.logger.Info("reserve cache stopped")
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// subscribeOnce holds one subscription until it fails or the context ends.
func (c *Cache) subscribeOnce() error {
	logs := make(chan types.Log, logBufferSize)
	sub, err := c.subscriber.SubscribeFilterLogs(c.ctx, gethereum.FilterQuery{
		Addresses: c.pools,
		Topics:    [][]common.Hash{{SyncTopic}},
	}, logs)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			c.apply(lg)
		}
	}
}

// apply folds one Sync event into the cache. The payload is two abi-encoded
// words holding the uint112 reserves.
func (c *Cache) apply(lg types.Log) {
	if len(lg.Data) != 2*common.HashLength {
		c.logger.Warn("malformed sync event", "pool", lg.Address.Hex(), "len", len(lg.Data))
		return
	}

	if lg.Removed {
		// reorged out: drop the entry so reads fall back to a fresh fetch
		c.mu.Lock()
		delete(c.entries, lg.Address)
		c.mu.Unlock()
		c.logger.Debug("sync event removed by reorg", "pool", lg.Address.Hex())
		return
	}

	entry := reservePair{
		reserve0: new(big.Int).SetBytes(lg.Data[:common.HashLength]),
		reserve1: new(big.Int).SetBytes(lg.Data[common.HashLength:]),
	}

	c.mu.Lock()
	c.entries[lg.Address] = entry
	c.mu.Unlock()

	c.logger.Debug("reserves updated",
		"pool", lg.Address.Hex(),
		"reserve0", entry.reserve0.String(),
		"reserve1", entry.reserve1.String(),
		"block", lg.BlockNumber)
}
