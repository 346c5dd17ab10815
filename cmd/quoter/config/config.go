// Package config loads the quoter binary's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/uniswapv2-router-go/pair"
)

// ErrMissingRPCEndpoint indicates that the required ETH_RPC_URL variable is
// not set in the environment.
var ErrMissingRPCEndpoint = errors.New("missing ETH_RPC_URL environment variable")

type Config struct {
	Addr        string
	RPCEndpoint string
	Factory     common.Address
	LogLevel    string
}

// FromEnv reads configuration from the environment. ETH_RPC_URL is required;
// everything else has a default.
func FromEnv() (*Config, error) {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	rpcURL := os.Getenv("ETH_RPC_URL")
	if rpcURL == "" {
		return nil, ErrMissingRPCEndpoint
	}

	factory := pair.MainnetFactory
	if raw := os.Getenv("FACTORY_ADDRESS"); raw != "" {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid FACTORY_ADDRESS: %q", raw)
		}
		factory = common.HexToAddress(raw)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	return &Config{
		Addr:        addr,
		RPCEndpoint: rpcURL,
		Factory:     factory,
		LogLevel:    logLevel,
	}, nil
}
