// Package pair canonicalizes token pairs and derives deterministic pool
// addresses for Uniswap V2 style factories, without any on-chain call.
package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// InitCodeHash is the keccak256 hash of the UniswapV2Pair creation bytecode.
// Derived addresses are only valid for factories deploying exactly this
// bytecode; a fork with different pair code needs its own constant.
var InitCodeHash = common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")

// MainnetFactory is the canonical Uniswap V2 factory on Ethereum mainnet.
var MainnetFactory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")

// create2Prefix is the single-byte discriminant defined by EIP-1014.
const create2Prefix = 0xff

// Sort returns the two tokens in canonical order: the numerically smaller
// address becomes token0. Exactly one canonical ordering exists per unordered
// pair, which is what guarantees a single pool per pair.
func Sort(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalTokens
	}
	token0, token1 = tokenA, tokenB
	if tokenB.Cmp(tokenA) < 0 {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroToken
	}
	return token0, token1, nil
}

// Salt computes the CREATE2 salt for a pair: keccak256(token0 ++ token1).
// Tokens must already be in canonical order.
func Salt(token0, token1 common.Address) common.Hash {
	var packed [2 * common.AddressLength]byte
	copy(packed[:common.AddressLength], token0.Bytes())
	copy(packed[common.AddressLength:], token1.Bytes())
	return crypto.Keccak256Hash(packed[:])
}

// AddressFor computes the pool address the factory would deploy for the given
// token pair:
//
//	address = keccak256(0xff ++ factory ++ salt ++ InitCodeHash)[12:]
//
// The preimage is laid out byte for byte; any width or ordering mismatch
// silently yields a wrong address.
func AddressFor(factory, tokenA, tokenB common.Address) (common.Address, error) {
	token0, token1, err := Sort(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	salt := Salt(token0, token1)

	var preimage [1 + common.AddressLength + 2*common.HashLength]byte
	preimage[0] = create2Prefix
	copy(preimage[1:], factory.Bytes())
	copy(preimage[1+common.AddressLength:], salt.Bytes())
	copy(preimage[1+common.AddressLength+common.HashLength:], InitCodeHash.Bytes())

	digest := crypto.Keccak256(preimage[:])
	return common.BytesToAddress(digest[12:]), nil
}
