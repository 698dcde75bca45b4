package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/lowbit-ml/lowbit/internal/api"
	"github.com/lowbit-ml/lowbit/internal/calibrate"
	"github.com/lowbit-ml/lowbit/internal/quant"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		rateLimit   float64
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the resolved graph over the inspection API",
		Flags: append(append(commonGraphFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.Float64Flag{
				Name:        "rate-limit",
				Usage:       "max requests per second (0 disables limiting)",
				Value:       50,
				Destination: &rateLimit,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, LoadConfig(), &addr, &rateLimit)
			log := newLog()
			quant.SetLogger(log)

			if graphPath == "" {
				return cli.Exit("error: --graph is required", 1)
			}
			g, err := loadGraph(graphPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			caps, err := loadCapabilities(capsPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			qc, err := loadQuantConfig(quantCfgPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := caps.ResolveGraph(g, &qc); err != nil {
				return cli.Exit(fmt.Sprintf("error: resolve: %v", err), 1)
			}
			if err := calibrate.Weights(g); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			if rateLimit > 0 {
				e.Use(rateLimitMiddleware(rate.Limit(rateLimit)))
			}
			api.NewServer(g, log).Register(e)

			log.Info("starting inspection server",
				"address", addr, "nodes", len(g.Nodes), "capabilities", caps.Name)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// rateLimitMiddleware rejects requests above the configured sustained rate
// with 429, allowing short bursts of twice the rate.
func rateLimitMiddleware(limit rate.Limit) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(limit, int(2*limit)+1)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
