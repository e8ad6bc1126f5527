package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/worldcore/internal/config"
	"github.com/l1jgo/worldcore/internal/core/event"
	coresys "github.com/l1jgo/worldcore/internal/core/system"
	"github.com/l1jgo/worldcore/internal/data"
	"github.com/l1jgo/worldcore/internal/debug"
	"github.com/l1jgo/worldcore/internal/persist"
	"github.com/l1jgo/worldcore/internal/scripting"
	"github.com/l1jgo/worldcore/internal/system"
	"github.com/l1jgo/worldcore/internal/world"
)

const (
	commandQueueSize = 256
	commandsPerTick  = 64
	drainsPerTick    = 4
	startupDBTimeout = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             worldcore  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m     spatial world model · game loop       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() (err error) {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Build the map
	printSection("world data")

	items, err := data.LoadItemTypes(cfg.World.ItemsFile)
	if err != nil {
		return fmt.Errorf("load item types: %w", err)
	}
	printStat("item types", items.Count())

	m := world.NewMap(log.Named("map"))
	m.SetSeed(uint64(cfg.Server.StartTime))
	m.SetSpectatorCache(cfg.Spectators.CacheEnabled)

	info, err := data.LoadMap(cfg.World.MapFile, items, m, data.LoadOptions{
		Strict: cfg.World.Strict,
		Log:    log,
	})
	if err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	printStat("tiles", info.Tiles)
	printStat("zone tiles", info.ZoneTiles)
	if len(info.Skipped) > 0 {
		printStat("skipped layers", len(info.Skipped))
	}

	// Observer before spawning so spawns reach the bus
	bus := event.NewBus()
	m.SetObserver(system.NewBusObserver(bus))
	subscribeWorldEvents(bus, log)

	var spawns []data.SpawnInfo
	if cfg.World.SpawnsFile != "" {
		if spawns, err = data.LoadSpawns(cfg.World.SpawnsFile); err != nil {
			return fmt.Errorf("load spawns: %w", err)
		}
	}
	spawner := system.NewSpawner(m, log.Named("spawn"))
	monsters, placed := spawner.Spawn(spawns)
	printStat("creatures spawned", placed)
	fmt.Println()

	// 4. Lua scripting
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer engine.Close()
		printOK("Lua scripts loaded")
	}

	// 5. Optional PostgreSQL persistence of house tiles
	var store system.TileStore
	if cfg.Database.DSN != "" {
		printSection("database")
		db, dbErr := openDatabase(cfg.Database, m, items, log)
		if dbErr != nil {
			return dbErr
		}
		defer func() { err = multierr.Append(err, db.Close()) }()
		store = persist.NewTileRepo(db)
		fmt.Println()
	}

	// 6. Systems
	params := world.DefaultFindPathParams()
	params.MaxSearchDist = cfg.Pathfinding.MaxSearchDist
	params.AllowDiagonal = cfg.Pathfinding.AllowDiagonal

	commands := system.NewCommandQueue(commandQueueSize, commandsPerTick, log)
	ai := system.NewMonsterAISystem(m, engine, params, cfg.Pathfinding.MonsterStepInterval, log.Named("ai"))
	ai.Add(monsters...)

	runner := coresys.NewRunner()
	runner.Register(commands)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(ai)
	runner.Register(system.NewMapUpkeepSystem(m, log, cfg.World.CleanIntervalTicks, cfg.World.StatsIntervalTicks))
	var persistence *system.PersistenceSystem
	if store != nil {
		persistence = system.NewPersistenceSystem(m, store, log, cfg.Database.SaveIntervalTicks)
		runner.Register(persistence)
	}

	// 7. Game loop and debug server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	printSection("ready")
	if cfg.Debug.Enabled {
		srv := debug.NewServer(cfg.Debug.Bind, m, commands, params, log.Named("debug"))
		if cfg.Debug.PasswordHash != "" {
			srv.RequireAuth(cfg.Debug.User, cfg.Debug.PasswordHash)
		}
		g.Go(func() error { return srv.ListenAndServe(gctx) })
		printReady(fmt.Sprintf("debug server on %s", cfg.Debug.Bind))
	}
	printReady(fmt.Sprintf("game loop started (tick: %s, monsters: %d)", cfg.Server.TickRate, ai.Count()))
	fmt.Println()

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Server.TickRate)
		defer ticker.Stop()
		// debug requests wait on the command queue; drain it between ticks
		drain := time.NewTicker(max(cfg.Server.TickRate/drainsPerTick, time.Millisecond))
		defer drain.Stop()
		for {
			select {
			case <-ticker.C:
				runner.Tick(cfg.Server.TickRate)
			case <-drain.C:
				runner.TickPhase(coresys.PhaseInput, 0)
			case <-gctx.Done():
				log.Info("game loop stopping", zap.Uint64("ticks", runner.Ticks()))
				if persistence == nil {
					return nil
				}
				// final save, still on the loop goroutine
				return persistence.SaveHouses()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

// openDatabase connects, migrates and restores the saved house tiles.
func openDatabase(cfg config.DatabaseConfig, m *world.Map, items *data.ItemTable, log *zap.Logger) (*persist.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupDBTimeout)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(ctx, db.Pool, log)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("migrations: %w", err), db.Close())
	}
	printOK(fmt.Sprintf("migrations at version %d", version))

	snaps, err := persist.NewTileRepo(db).LoadAll(ctx)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("load house tiles: %w", err), db.Close())
	}
	restored, err := persist.Restore(m, items, snaps)
	if err != nil {
		// rows of tiles that no longer exist are skipped
		log.Warn("some house tiles were not restored", zap.Error(err))
	}
	printStat("house tiles restored", restored)
	return db, nil
}

func subscribeWorldEvents(bus *event.Bus, log *zap.Logger) {
	log = log.Named("events")
	event.Subscribe(bus, func(e event.CreatureAppeared) {
		log.Debug("creature appeared",
			zap.Uint32("id", e.CreatureID), zap.Stringer("pos", e.Pos), zap.Int("spectators", len(e.Spectators)))
	})
	event.Subscribe(bus, func(e event.CreatureMoved) {
		log.Debug("creature moved",
			zap.Uint32("id", e.CreatureID), zap.Stringer("from", e.From), zap.Stringer("to", e.To),
			zap.Bool("teleport", e.Teleport), zap.Int("spectators", len(e.Spectators)))
	})
	event.Subscribe(bus, func(e event.CreatureDisappeared) {
		log.Debug("creature disappeared",
			zap.Uint32("id", e.CreatureID), zap.Stringer("pos", e.Pos), zap.Int("spectators", len(e.Spectators)))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
