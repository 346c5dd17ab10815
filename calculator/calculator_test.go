package calculator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBigIntFromString is a helper to create a big.Int from a string, needed
// for numbers larger than a standard int64.
func newBigIntFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("failed to set string for big.Int")
	}
	return n
}

func TestGetAmountOut(t *testing.T) {
	testCases := []struct {
		name           string
		amountIn       *big.Int
		reserveIn      *big.Int
		reserveOut     *big.Int
		expectedAmount *big.Int
		expectedErr    error
	}{
		{
			name:           "reference scenario 100 over 1000/1000",
			amountIn:       big.NewInt(100),
			reserveIn:      big.NewInt(1000),
			reserveOut:     big.NewInt(1000),
			expectedAmount: big.NewInt(90), // floor(99700000 / 1099700)
		},
		{
			name:           "USDC into USDC/WETH pool",
			amountIn:       big.NewInt(1_000_000),
			reserveIn:      big.NewInt(100_000_000),
			reserveOut:     newBigIntFromString("50000000000000000000"),
			expectedAmount: newBigIntFromString("493579017198530649"),
		},
		{
			name:           "WETH into USDC/WETH pool",
			amountIn:       newBigIntFromString("1000000000000000000"),
			reserveIn:      newBigIntFromString("50000000000000000000"),
			reserveOut:     big.NewInt(100_000_000),
			expectedAmount: big.NewInt(1955016),
		},
		{
			name:        "zero input",
			amountIn:    big.NewInt(0),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientInputAmount,
		},
		{
			name:        "negative input",
			amountIn:    big.NewInt(-100),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientInputAmount,
		},
		{
			name:        "zero input reserve",
			amountIn:    big.NewInt(100),
			reserveIn:   big.NewInt(0),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "zero output reserve",
			amountIn:    big.NewInt(100),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(0),
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "nil input",
			amountIn:    nil,
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrNilAmount,
		},
		{
			name:        "input wider than 256 bits",
			amountIn:    new(big.Int).Lsh(big.NewInt(1), 257),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrOverflow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetAmountOut(tc.amountIn, tc.reserveIn, tc.reserveOut)
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tc.expectedAmount.Cmp(got), "expected %s, got %s", tc.expectedAmount, got)
		})
	}
}

func TestGetAmountIn(t *testing.T) {
	testCases := []struct {
		name           string
		amountOut      *big.Int
		reserveIn      *big.Int
		reserveOut     *big.Int
		expectedAmount *big.Int
		expectedErr    error
	}{
		{
			name:           "reference scenario 90 out of 1000/1000",
			amountOut:      big.NewInt(90),
			reserveIn:      big.NewInt(1000),
			reserveOut:     big.NewInt(1000),
			expectedAmount: big.NewInt(100), // floor(90000000 / 907270) + 1
		},
		{
			name:        "zero output",
			amountOut:   big.NewInt(0),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientOutputAmount,
		},
		{
			name:        "output equals reserve",
			amountOut:   big.NewInt(1000),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "output exceeds reserve",
			amountOut:   big.NewInt(2000),
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "zero reserve",
			amountOut:   big.NewInt(90),
			reserveIn:   big.NewInt(0),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "nil output",
			amountOut:   nil,
			reserveIn:   big.NewInt(1000),
			reserveOut:  big.NewInt(1000),
			expectedErr: ErrNilAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GetAmountIn(tc.amountOut, tc.reserveIn, tc.reserveOut)
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 0, tc.expectedAmount.Cmp(got), "expected %s, got %s", tc.expectedAmount, got)
		})
	}
}

func TestQuote(t *testing.T) {
	got, err := Quote(big.NewInt(100), big.NewInt(400), big.NewInt(800))
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.Int64())

	// floors
	got, err = Quote(big.NewInt(1), big.NewInt(3), big.NewInt(2))
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Int64())

	_, err = Quote(big.NewInt(0), big.NewInt(400), big.NewInt(800))
	assert.ErrorIs(t, err, ErrInsufficientAmount)

	_, err = Quote(big.NewInt(100), big.NewInt(0), big.NewInt(800))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

// TestRoundTripSufficiency checks the asymmetric-rounding pairing: feeding the
// input quoted by GetAmountIn back through GetAmountOut must always produce at
// least the requested output. This is the guarantee that keeps pre-computed
// quotes from reverting at settlement.
func TestRoundTripSufficiency(t *testing.T) {
	reserves := []int64{1000, 1234, 99999, 1_000_000_007}
	amounts := []int64{1, 7, 100, 5000, 999_983}

	for _, rIn := range reserves {
		for _, rOut := range reserves {
			for _, in := range amounts {
				out, err := GetAmountOut(big.NewInt(in), big.NewInt(rIn), big.NewInt(rOut))
				require.NoError(t, err)
				if out.Sign() == 0 {
					continue
				}

				back, err := GetAmountIn(out, big.NewInt(rIn), big.NewInt(rOut))
				require.NoError(t, err)

				settled, err := GetAmountOut(back, big.NewInt(rIn), big.NewInt(rOut))
				require.NoError(t, err)
				assert.True(t, settled.Cmp(out) >= 0,
					"quoted input under-delivers: in=%d rIn=%d rOut=%d out=%s back=%s settled=%s",
					in, rIn, rOut, out, back, settled)
			}
		}
	}
}

// TestRoundTripRecoversMinimalInput pins exact values for inputs that are
// already minimal for their output, where GetAmountIn recovers them precisely.
func TestRoundTripRecoversMinimalInput(t *testing.T) {
	testCases := []struct {
		amountIn   int64
		reserveIn  int64
		reserveOut int64
	}{
		{amountIn: 100, reserveIn: 1000, reserveOut: 1000},
		{amountIn: 7, reserveIn: 1000, reserveOut: 1000},
		{amountIn: 100, reserveIn: 1234, reserveOut: 99999},
	}

	for _, tc := range testCases {
		out, err := GetAmountOut(big.NewInt(tc.amountIn), big.NewInt(tc.reserveIn), big.NewInt(tc.reserveOut))
		require.NoError(t, err)

		back, err := GetAmountIn(out, big.NewInt(tc.reserveIn), big.NewInt(tc.reserveOut))
		require.NoError(t, err)
		assert.Equal(t, tc.amountIn, back.Int64(),
			"in=%d rIn=%d rOut=%d out=%s", tc.amountIn, tc.reserveIn, tc.reserveOut, out)
	}
}

func TestGetAmountOutMonotonic(t *testing.T) {
	reserveIn := big.NewInt(10_000)
	reserveOut := big.NewInt(10_000)

	prev := big.NewInt(0)
	for in := int64(1); in <= 2000; in += 13 {
		out, err := GetAmountOut(big.NewInt(in), reserveIn, reserveOut)
		require.NoError(t, err)
		assert.True(t, out.Cmp(prev) >= 0, "output decreased at amountIn=%d", in)
		prev = out
	}
}

func TestSimulateSwap(t *testing.T) {
	amountOut, reserveInAfter, reserveOutAfter, err := SimulateSwap(
		big.NewInt(100), big.NewInt(1000), big.NewInt(1000))
	require.NoError(t, err)

	assert.Equal(t, int64(90), amountOut.Int64())
	assert.Equal(t, int64(1100), reserveInAfter.Int64())
	assert.Equal(t, int64(910), reserveOutAfter.Int64())

	// the constant product never decreases across a fee-bearing trade
	before := new(big.Int).Mul(big.NewInt(1000), big.NewInt(1000))
	after := new(big.Int).Mul(reserveInAfter, reserveOutAfter)
	assert.True(t, after.Cmp(before) >= 0)

	_, _, _, err = SimulateSwap(big.NewInt(0), big.NewInt(1000), big.NewInt(1000))
	assert.ErrorIs(t, err, ErrInsufficientInputAmount)
}

func BenchmarkGetAmountOut(b *testing.B) {
	amountIn := newBigIntFromString("1000000000000000000")
	reserveIn := newBigIntFromString("50000000000000000000")
	reserveOut := big.NewInt(100_000_000)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = GetAmountOut(amountIn, reserveIn, reserveOut)
	}
}
