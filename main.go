package main

import (
	"github.com/turnwell/gameserver/config"
	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/games/tictactoe"
	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/monitor"
	"github.com/turnwell/gameserver/persistence"
	"github.com/turnwell/gameserver/server"
	"github.com/turnwell/gameserver/services"
	"github.com/turnwell/gameserver/session"
	"github.com/turnwell/gameserver/timer"
)

func loadFormulation(name string) *game.Formulation {
	switch name {
	case "", "tictactoe":
		return tictactoe.NewFormulation()
	default:
		logger.Log.Fatalf("Unknown formulation: %s", name)
		return nil
	}
}

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	formulation := loadFormulation(cfg.Game.Formulation)
	logger.Log.Infof("Loaded formulation: %s (%d roles, %d operators)",
		formulation.Name, formulation.Roles.Len(), len(formulation.Operators))

	// Initialize Database (optional; without it games are simply not archived)
	var records *services.RecordService
	if cfg.Database.Enabled {
		db, err := persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
		records = services.NewRecordService(db, formulation.Name)
	}

	// Session store with background idle eviction
	store := session.NewStore(formulation, cfg.Session.IdleTimeout)
	timers := timer.NewManager()
	defer timers.Stop()
	store.StartSweeper(timers, cfg.Session.SweepInterval)

	// Metrics endpoint
	mon := monitor.NewMonitor("gameserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize Game Server
	gameServer := server.NewGameServer(
		cfg.Server.HTTPAddress,
		cfg.Server.RPCAddress,
		formulation,
		store,
		records,
		mon,
		cfg.Game.AutoStart,
	)

	// Start Server
	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
