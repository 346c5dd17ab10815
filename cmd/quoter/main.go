// Command quoter exposes the router as a small HTTP API: pool address
// derivation and forward/backward path quotes against live reserves.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/uniswapv2-router-go/calculator"
	"github.com/defistate/uniswapv2-router-go/chains/ethereum"
	"github.com/defistate/uniswapv2-router-go/cmd/quoter/config"
	"github.com/defistate/uniswapv2-router-go/pair"
	"github.com/defistate/uniswapv2-router-go/router"
)

const dialTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	client, err := ethclient.DialContext(dialCtx, cfg.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.RPCEndpoint, err)
	}
	defer client.Close()

	oracle, err := ethereum.NewStorageOracle(client, prometheus.DefaultRegisterer,
		ethereum.WithLogger(logger.With("component", "storage-oracle")))
	if err != nil {
		return err
	}

	r, err := router.New(cfg.Factory, oracle)
	if err != nil {
		return err
	}

	app := fiber.New()
	registerRoutes(app, logger, r)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("quoter listening", "addr", cfg.Addr, "factory", cfg.Factory.Hex())
	if err := app.Listen(cfg.Addr); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

func registerRoutes(app *fiber.App, logger *slog.Logger, r *router.Router) {
	app.Get("/v1/pair", func(c fiber.Ctx) error {
		tokenA, err := parseAddress(c.Query("token_a"), "token_a")
		if err != nil {
			return err
		}
		tokenB, err := parseAddress(c.Query("token_b"), "token_b")
		if err != nil {
			return err
		}

		pool, err := pair.AddressFor(r.Factory(), tokenA, tokenB)
		if err != nil {
			return mapDomainError(logger, err)
		}
		token0, token1, err := pair.Sort(tokenA, tokenB)
		if err != nil {
			return mapDomainError(logger, err)
		}

		return c.JSON(fiber.Map{
			"pool":   pool.Hex(),
			"token0": token0.Hex(),
			"token1": token1.Hex(),
		})
	})

	app.Get("/v1/quote/out", func(c fiber.Ctx) error {
		path, err := parsePath(c.Query("path"))
		if err != nil {
			return err
		}
		amountIn, err := parseAmount(c.Query("amount_in"), "amount_in")
		if err != nil {
			return err
		}

		amounts, err := r.GetAmountsOut(c.Context(), amountIn, path)
		if err != nil {
			return mapDomainError(logger, err)
		}
		return c.JSON(fiber.Map{"amounts": formatAmounts(amounts)})
	})

	app.Get("/v1/quote/in", func(c fiber.Ctx) error {
		path, err := parsePath(c.Query("path"))
		if err != nil {
			return err
		}
		amountOut, err := parseAmount(c.Query("amount_out"), "amount_out")
		if err != nil {
			return err
		}

		amounts, err := r.GetAmountsIn(c.Context(), amountOut, path)
		if err != nil {
			return mapDomainError(logger, err)
		}
		return c.JSON(fiber.Map{"amounts": formatAmounts(amounts)})
	})
}

func parseAddress(raw, field string) (common.Address, error) {
	if raw == "" {
		return common.Address{}, fiber.NewError(fiber.StatusBadRequest, field+" is required")
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" address")
	}
	return common.HexToAddress(raw), nil
}

func parsePath(raw string) ([]common.Address, error) {
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "path is required")
	}

	parts := strings.Split(raw, ",")
	path := make([]common.Address, 0, len(parts))
	for _, part := range parts {
		addr, err := parseAddress(strings.TrimSpace(part), "path element")
		if err != nil {
			return nil, err
		}
		path = append(path, addr)
	}
	return path, nil
}

func parseAmount(raw, field string) (*big.Int, error) {
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+" is required")
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+field+" format")
	}
	if amount.Sign() <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, field+" must be greater than zero")
	}
	return amount, nil
}

func formatAmounts(amounts []*big.Int) []string {
	out := make([]string, len(amounts))
	for i, amount := range amounts {
		out[i] = amount.String()
	}
	return out
}

// mapDomainError turns validation failures from the core into 400s; anything
// else is a server-side failure.
func mapDomainError(logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, pair.ErrIdenticalTokens),
		errors.Is(err, pair.ErrZeroToken),
		errors.Is(err, router.ErrInvalidPath),
		errors.Is(err, calculator.ErrInsufficientAmount),
		errors.Is(err, calculator.ErrInsufficientInputAmount),
		errors.Is(err, calculator.ErrInsufficientOutputAmount),
		errors.Is(err, calculator.ErrInsufficientLiquidity):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		logger.Error("quote failed", "err", err)
		return fiber.NewError(fiber.StatusInternalServerError, "quote failed")
	}
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
