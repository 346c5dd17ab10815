// Package router chains constant-product quotes across multi-hop token paths,
// deriving pool addresses and resolving reserves on demand.
//
// The router is stateless and never caches reserves; every hop reads through
// the configured ReserveOracle. Consistency across hops (e.g. reading all hops
// at the same block) is the oracle's concern, not the router's.
package router

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/uniswapv2-router-go/calculator"
	"github.com/defistate/uniswapv2-router-go/pair"
)

// ReserveOracle supplies the two reserves of a pool in the pool's own
// canonical (token0, token1) order. Implementations decide freshness; a
// non-existent pool is an implementation concern, not validated here.
type ReserveOracle interface {
	FetchReserves(ctx context.Context, pool common.Address) (reserve0, reserve1 *big.Int, err error)
}

// Router quotes swaps against the pools of a single factory.
type Router struct {
	factory common.Address
	oracle  ReserveOracle
}

// New constructs a Router for the given factory, reading reserves through oracle.
func New(factory common.Address, oracle ReserveOracle) (*Router, error) {
	if oracle == nil {
		return nil, ErrNilOracle
	}
	return &Router{factory: factory, oracle: oracle}, nil
}

// Factory returns the factory the router derives pool addresses for.
func (r *Router) Factory() common.Address {
	return r.factory
}

// GetOrderedReserves fetches the reserves of the (tokenA, tokenB) pool,
// reordered so the first value belongs to tokenA regardless of the pool's
// internal canonical order.
func (r *Router) GetOrderedReserves(ctx context.Context, tokenA, tokenB common.Address) (reserveA, reserveB *big.Int, err error) {
	token0, _, err := pair.Sort(tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pair.AddressFor(r.factory, tokenA, tokenB)
	if err != nil {
		return nil, nil, err
	}

	reserve0, reserve1, err := r.oracle.FetchReserves(ctx, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch reserves for pool %s: %w", pool.Hex(), err)
	}

	if tokenA == token0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// GetAmountsOut walks the path forward from an exact input, returning one
// amount per path token. amounts[0] is amountIn; amounts[len-1] is the final
// output. The first failing hop aborts the whole chain.
func (r *Router) GetAmountsOut(ctx context.Context, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	amounts := make([]*big.Int, len(path))
	amounts[0] = amountIn
	for i := 0; i < len(path)-1; i++ {
		reserveIn, reserveOut, err := r.GetOrderedReserves(ctx, path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		amounts[i+1], err = calculator.GetAmountOut(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

// GetAmountsIn walks the path backward from an exact output, returning one
// amount per path token. amounts[len-1] is amountOut; amounts[0] is the
// required initial input. The first failing hop aborts the whole chain.
func (r *Router) GetAmountsIn(ctx context.Context, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	amounts := make([]*big.Int, len(path))
	amounts[len(path)-1] = amountOut
	for i := len(path) - 1; i > 0; i-- {
		reserveIn, reserveOut, err := r.GetOrderedReserves(ctx, path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		amounts[i-1], err = calculator.GetAmountIn(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}
	}
	return amounts, nil
}

// HopResult describes one hop of a simulated path execution.
type HopResult struct {
	Pool            common.Address
	AmountIn        *big.Int
	AmountOut       *big.Int
	ReserveInAfter  *big.Int
	ReserveOutAfter *big.Int
}

// SimulatePath executes an exact-input path against current reserves,
// reporting per-hop outputs and post-trade reserves. Reserves are read once
// per hop and mutated only in the returned results, never in the oracle.
func (r *Router) SimulatePath(ctx context.Context, amountIn *big.Int, path []common.Address) ([]HopResult, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	hops := make([]HopResult, 0, len(path)-1)
	current := amountIn
	for i := 0; i < len(path)-1; i++ {
		pool, err := pair.AddressFor(r.factory, path[i], path[i+1])
		if err != nil {
			return nil, err
		}

		reserveIn, reserveOut, err := r.GetOrderedReserves(ctx, path[i], path[i+1])
		if err != nil {
			return nil, err
		}

		amountOut, reserveInAfter, reserveOutAfter, err := calculator.SimulateSwap(current, reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}

		hops = append(hops, HopResult{
			Pool:            pool,
			AmountIn:        current,
			AmountOut:       amountOut,
			ReserveInAfter:  reserveInAfter,
			ReserveOutAfter: reserveOutAfter,
		})
		current = amountOut
	}
	return hops, nil
}
