package main

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/cambio/cmd/cambio/shared"
	"github.com/lox/cambio/internal/bot"
	"github.com/lox/cambio/internal/cambio"
	"github.com/lox/cambio/internal/game"
	"github.com/lox/cambio/internal/randutil"
	"github.com/lox/cambio/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config string `kong:"default='cambio.hcl',help='HCL configuration file'"`
	Addr   string `kong:"help='Server address (overrides config)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seats  int    `kong:"help='Number of seats (overrides config)'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed (optional)'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Seats != 0 {
		cfg.Session.Seats = c.Seats
	}
	if c.Seed != nil {
		cfg.Session.Seed = *c.Seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = cfg.GetServerAddress()
	}

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info("Using seed", "seed", seed)

	rules := cambio.New(cambio.WithInterjectionWindow(cfg.Session.Window()))
	policy := bot.New(randutil.New(seed + 1))
	session := game.NewSession(logger, game.Config{
		SeatCount:       cfg.Session.Seats,
		ComputerFill:    cfg.Session.ComputerFill,
		DealDelay:       cfg.Session.DealDelay(),
		ThinkDelay:      cfg.Session.ThinkDelay(),
		RestartDelay:    cfg.Session.RestartDelay(),
		PoolLowWater:    4,
		PoolRefillBatch: 8,
		Seed:            seed,
	}, rules, policy)

	srv := server.NewServer(addr, logger)
	server.NewSessionService(logger, session, srv)

	logger.Info("Starting cambio server",
		"addr", addr,
		"seats", cfg.Session.Seats,
		"computer_fill", cfg.Session.ComputerFill,
		"rules", rules.Name())

	g, ctx := errgroup.WithContext(shared.SetupSignalHandler(logger))
	g.Go(func() error {
		session.Run(ctx)
		return nil
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		return srv.Stop()
	})
	return g.Wait()
}
