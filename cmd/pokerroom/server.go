package main

import (
	"net"
	"strconv"

	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/internal/server"
)

// ServerCmd runs the websocket server
type ServerCmd struct {
	Config   string `short:"c" default:"pokerroom.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" help:"Address to listen on as host:port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     *int64 `help:"Deterministic RNG seed for every table (optional)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}

	// Apply command line overrides
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return err
		}
		if cfg.Server.Port, err = strconv.Atoi(port); err != nil {
			return err
		}
		cfg.Server.Address = host
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	seed, fixed := randutil.Seed(c.Seed)
	if c.Seed == nil && cfg.Lobby.Seed != 0 {
		seed, fixed = cfg.Lobby.Seed, true
	}
	logger.Info("Starting poker room",
		"addr", cfg.Address(),
		"seats", []int{cfg.Lobby.MinSeats, cfg.Lobby.MaxSeats},
		"timeout", cfg.Lobby.Timeout(),
		"variants", cfg.Lobby.Variants,
		"seed", seed,
		"deterministic", fixed)

	srv, err := server.NewServer(cfg, logger, server.WithRand(randutil.New(seed)))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()
	return srv.Run(ctx)
}
