// Package calculator implements the constant-product quote math for
// Uniswap V2 style pools with the fixed 0.3% trading fee.
//
// GetAmountOut rounds down and GetAmountIn rounds up (the trailing +1). The
// asymmetry is load-bearing: an input quoted by GetAmountIn is always
// sufficient to produce at least the requested output when settled on chain.
package calculator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
)

var (
	// feeMultiplier and feeDivisor encode the 0.3% trading fee (997/1000).
	feeMultiplier = big.NewInt(997)
	feeDivisor    = big.NewInt(1000)

	one = big.NewInt(1)

	// ErrNilAmount is returned when a nil pointer is passed for an amount or reserve.
	ErrNilAmount = errors.New("nil pointer passed as amount")
	// ErrInsufficientAmount is returned by Quote for a zero or negative amount.
	ErrInsufficientAmount = errors.New("insufficient amount")
	// ErrInsufficientInputAmount is returned by GetAmountOut for a zero or negative input.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientOutputAmount is returned by GetAmountIn for a zero or negative output.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrInsufficientLiquidity is returned when a reserve is zero or a requested
	// output meets or exceeds the available reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrOverflow is returned when an input does not fit in 256 bits. The same
	// values would revert on chain; off chain this indicates a caller bug.
	ErrOverflow = errors.New("arithmetic overflow: value exceeds 256 bits")
)

// maxBits bounds inputs to the width the settlement contract uses.
const maxBits = 256

// Calculator holds reusable big.Int objects to avoid allocations during
// calculations. Instances are NOT safe for concurrent use by themselves; they
// are managed by calculatorPool.
type Calculator struct {
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
	newReserveIn    *big.Int
	newReserveOut   *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &Calculator{
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
			newReserveIn:    new(big.Int),
			newReserveOut:   new(big.Int),
		}
	},
}

// Quote converts an amount of one asset into the equivalent amount of the
// other at the current reserve ratio, with no fee applied:
//
//	amountB = floor(amountA * reserveB / reserveA)
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.quote(amountA, reserveA, reserveB)
}

// GetAmountOut returns the maximum output for an exact input:
//
//	amountOut = floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997))
//
// Rounds down, matching on-chain settlement.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountOut(amountIn, reserveIn, reserveOut)
}

// GetAmountIn returns the minimum input required for an exact output:
//
//	amountIn = floor(reserveIn*amountOut*1000 / ((reserveOut-amountOut)*997)) + 1
//
// Rounds up, guaranteeing the quoted input settles for at least amountOut.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.getAmountIn(amountOut, reserveIn, reserveOut)
}

// SimulateSwap applies an exact-input swap to the reserves and returns the
// output together with the post-trade reserves, in the caller's order.
func SimulateSwap(amountIn, reserveIn, reserveOut *big.Int) (amountOut, reserveInAfter, reserveOutAfter *big.Int, err error) {
	calc := calculatorPool.Get().(*Calculator)
	defer calculatorPool.Put(calc)
	return calc.simulateSwap(amountIn, reserveIn, reserveOut)
}

// checkAmount validates a caller-supplied amount against the given sentinel.
func checkAmount(amount *big.Int, sentinel error) error {
	if amount == nil {
		return ErrNilAmount
	}
	if amount.Sign() <= 0 {
		return sentinel
	}
	if amount.BitLen() > maxBits {
		return fmt.Errorf("%w: amount %s", ErrOverflow, amount)
	}
	return nil
}

// checkReserves validates a reserve pair.
func checkReserves(reserveIn, reserveOut *big.Int) error {
	if reserveIn == nil || reserveOut == nil {
		return ErrNilAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return ErrInsufficientLiquidity
	}
	if reserveIn.BitLen() > maxBits || reserveOut.BitLen() > maxBits {
		return fmt.Errorf("%w: reserves %s/%s", ErrOverflow, reserveIn, reserveOut)
	}
	return nil
}

func (c *Calculator) quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if err := checkAmount(amountA, ErrInsufficientAmount); err != nil {
		return nil, err
	}
	if err := checkReserves(reserveA, reserveB); err != nil {
		return nil, err
	}

	c.numerator.Mul(amountA, reserveB)
	return new(big.Int).Div(c.numerator, reserveA), nil
}

func (c *Calculator) getAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if err := checkAmount(amountIn, ErrInsufficientInputAmount); err != nil {
		return nil, err
	}
	if err := checkReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}

	c.amountInWithFee.Mul(amountIn, feeMultiplier)
	c.numerator.Mul(c.amountInWithFee, reserveOut)
	c.denominator.Mul(reserveIn, feeDivisor)
	c.denominator.Add(c.denominator, c.amountInWithFee)

	return new(big.Int).Div(c.numerator, c.denominator), nil
}

func (c *Calculator) getAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if err := checkAmount(amountOut, ErrInsufficientOutputAmount); err != nil {
		return nil, err
	}
	if err := checkReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)",
			ErrInsufficientLiquidity, amountOut, reserveOut)
	}

	c.numerator.Mul(reserveIn, amountOut)
	c.numerator.Mul(c.numerator, feeDivisor)
	c.denominator.Sub(reserveOut, amountOut)
	c.denominator.Mul(c.denominator, feeMultiplier)

	amountIn := new(big.Int).Div(c.numerator, c.denominator)
	return amountIn.Add(amountIn, one), nil
}

func (c *Calculator) simulateSwap(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, *big.Int, *big.Int, error) {
	amountOut, err := c.getAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, nil, nil, err
	}

	c.newReserveIn.Add(reserveIn, amountIn)
	c.newReserveOut.Sub(reserveOut, amountOut)

	return amountOut, new(big.Int).Set(c.newReserveIn), new(big.Int).Set(c.newReserveOut), nil
}
