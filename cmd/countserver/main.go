// Package main provides the Telnet counting server. It accepts chat
// connections, runs the counting game against PostgreSQL, and serves
// leaderboard queries.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/countbot/internal/chat"
	"github.com/cory-johannsen/countbot/internal/config"
	"github.com/cory-johannsen/countbot/internal/frontend/telnet"
	"github.com/cory-johannsen/countbot/internal/game/command"
	"github.com/cory-johannsen/countbot/internal/game/count"
	"github.com/cory-johannsen/countbot/internal/game/mathexpr"
	"github.com/cory-johannsen/countbot/internal/observability"
	"github.com/cory-johannsen/countbot/internal/server"
	"github.com/cory-johannsen/countbot/internal/storage/memory"
	"github.com/cory-johannsen/countbot/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	memStore := flag.Bool("memory", false, "use the in-memory store instead of PostgreSQL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting counting server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("default_room", cfg.Game.DefaultRoom),
	)

	ctx := context.Background()

	var (
		store count.Store
		pool  *postgres.Pool
	)
	if *memStore {
		store = memory.NewStore()
		logger.Warn("using in-memory store; counts will not survive a restart")
	} else {
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		store = postgres.NewCountingStore(pool.DB(), cfg.Game.TxRetries)
	}

	// Load milestone announcements
	milestones := count.DefaultMilestones()
	if cfg.Game.MilestonesFile != "" {
		milestones, err = count.LoadMilestonesFromFile(cfg.Game.MilestonesFile)
		if err != nil {
			logger.Fatal("loading milestones", zap.Error(err))
		}
		logger.Info("milestones loaded", zap.String("file", cfg.Game.MilestonesFile))
	}

	// Build the game
	evaluator := mathexpr.NewEvaluator(
		mathexpr.WithMaxDigits(cfg.Game.MaxDigits),
		mathexpr.WithSnapEpsilon(cfg.Game.SnapEpsilon),
		mathexpr.WithMaxDepth(cfg.Game.MaxExprDepth),
	)
	game := count.NewService(evaluator, store, milestones, logger)

	// Build the chat frontend
	rooms := chat.NewManager()
	registry := command.DefaultRegistry()
	handler := chat.NewHandler(rooms, game, registry, logger,
		cfg.Game.DefaultRoom, cfg.Game.LeaderboardLimit)
	acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	if pool != nil {
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				for {
					time.Sleep(30 * time.Second)
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
					}
				}
			},
			StopFn: func() {
				pool.Close()
			},
		})
	}

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return acceptor.ListenAndServe()
		},
		StopFn: func() {
			acceptor.Stop()
		},
	})

	logger.Info("counting server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
