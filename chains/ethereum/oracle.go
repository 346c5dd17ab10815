// Package ethereum reads Uniswap V2 pair reserves directly from contract
// storage on Ethereum style chains, implementing the router's ReserveOracle.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/uniswapv2-router-go/chains"
)

// reservesSlot is the storage slot of the packed reserves word in a
// UniswapV2Pair: uint112 reserve0 | uint112 reserve1 | uint32 blockTimestampLast.
const reservesSlot = 8

// mask112 extracts one uint112 reserve from the packed word.
var mask112 = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), 112),
	uint256.NewInt(1),
)

// StateReader is the narrow read surface the oracle needs.
// *ethclient.Client satisfies it.
type StateReader interface {
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

// StorageOracle fetches pair reserves by reading the packed reserves slot at
// the latest block. Reading storage directly avoids an ABI call and does not
// require the pair contract to exist (a missing pool reads as zero reserves).
type StorageOracle struct {
	reader StateReader
	logger chains.Logger

	reads        *prometheus.CounterVec
	readDuration prometheus.Histogram
}

// Option configures the StorageOracle.
type Option interface {
	apply(*StorageOracle)
}

type funcOption func(*StorageOracle)

func (f funcOption) apply(o *StorageOracle) {
	f(o)
}

// WithLogger sets the oracle's logger.
func WithLogger(logger chains.Logger) Option {
	return funcOption(func(o *StorageOracle) {
		o.logger = logger
	})
}

// NewStorageOracle constructs a StorageOracle over the given reader. Metrics
// are registered on registry; pass nil to skip registration.
func NewStorageOracle(reader StateReader, registry prometheus.Registerer, opts ...Option) (*StorageOracle, error) {
	if reader == nil {
		return nil, errors.New("state reader cannot be nil")
	}

	o := &StorageOracle{
		reader: reader,
		logger: chains.NopLogger{},
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uniswapv2_router",
			Name:      "reserve_reads_total",
			Help:      "Reserve storage reads by result.",
		}, []string{"result"}),
		readDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uniswapv2_router",
			Name:      "reserve_read_duration_seconds",
			Help:      "Latency of reserve storage reads.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, opt := range opts {
		opt.apply(o)
	}

	if registry != nil {
		if err := registry.Register(o.reads); err != nil {
			return nil, fmt.Errorf("register reads counter: %w", err)
		}
		if err := registry.Register(o.readDuration); err != nil {
			return nil, fmt.Errorf("register read duration histogram: %w", err)
		}
	}

	return o, nil
}

// FetchReserves returns the pool's reserves in canonical (reserve0, reserve1) order.
func (o *StorageOracle) FetchReserves(ctx context.Context, pool common.Address) (*big.Int, *big.Int, error) {
	start := time.Now()
	word, err := o.reader.StorageAt(ctx, pool, common.BigToHash(big.NewInt(reservesSlot)), nil)
	o.readDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		o.reads.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("storage at slot %d of pool %s: %w", reservesSlot, pool.Hex(), err)
	}
	o.reads.WithLabelValues("ok").Inc()

	reserve0, reserve1 := unpackReserves(word)
	o.logger.Debug("reserves read",
		"pool", pool.Hex(), "reserve0", reserve0.String(), "reserve1", reserve1.String())
	return reserve0, reserve1, nil
}

// unpackReserves splits the 256-bit storage word into its two uint112
// reserves. Within the word, reserve0 occupies the low 112 bits, reserve1 the
// next 112, and the remaining 32 hold the last sync timestamp.
func unpackReserves(word []byte) (reserve0, reserve1 *big.Int) {
	v := new(uint256.Int).SetBytes(word)

	r0 := new(uint256.Int).And(v, mask112)
	r1 := new(uint256.Int).Rsh(v, 112)
	r1.And(r1, mask112)

	return r0.ToBig(), r1.ToBig()
}
