package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/crypto/bcrypt"
)

// EnvPath names the environment variable that overrides DefaultPath.
const (
	EnvPath     = "WORLDCORE_CONFIG"
	DefaultPath = "config/worldcore.toml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server      ServerConfig      `toml:"server"`
	World       WorldConfig       `toml:"world"`
	Pathfinding PathfindingConfig `toml:"pathfinding"`
	Spectators  SpectatorsConfig  `toml:"spectators"`
	Database    DatabaseConfig    `toml:"database"`
	Scripting   ScriptingConfig   `toml:"scripting"`
	Debug       DebugConfig       `toml:"debug"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Name      string        `toml:"name"`
	TickRate  time.Duration `toml:"tick_rate"`
	StartTime int64         // set at boot, not from config
}

type WorldConfig struct {
	MapFile    string `toml:"map_file"`
	ItemsFile  string `toml:"items_file"`
	SpawnsFile string `toml:"spawns_file"`
	Strict     bool   `toml:"strict"` // missing layer files fail the load

	CleanIntervalTicks int `toml:"clean_interval_ticks"` // 0 disables map cleaning
	StatsIntervalTicks int `toml:"stats_interval_ticks"` // 0 disables the stats log
}

type PathfindingConfig struct {
	MaxSearchDist       int32 `toml:"max_search_dist"` // 0 = closed-node limit only
	AllowDiagonal       bool  `toml:"allow_diagonal"`
	MonsterStepInterval int   `toml:"monster_step_interval"` // ticks between monster steps
}

type SpectatorsConfig struct {
	CacheEnabled bool `toml:"cache_enabled"`
}

type DatabaseConfig struct {
	DSN               string        `toml:"dsn"` // empty disables persistence
	MaxOpenConns      int           `toml:"max_open_conns"`
	MinConns          int           `toml:"min_conns"`
	ConnMaxLifetime   time.Duration `toml:"conn_max_lifetime"`
	SaveIntervalTicks int           `toml:"save_interval_ticks"`
}

type ScriptingConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

type DebugConfig struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
	// User and PasswordHash (bcrypt) turn on basic auth for the probes.
	User         string `toml:"user"`
	PasswordHash string `toml:"password_hash"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// Path returns the config file named by WORLDCORE_CONFIG, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Server.TickRate <= 0:
		return fmt.Errorf("%w: server.tick_rate must be positive", ErrInvalid)
	case c.World.MapFile == "":
		return fmt.Errorf("%w: world.map_file is required", ErrInvalid)
	case c.World.ItemsFile == "":
		return fmt.Errorf("%w: world.items_file is required", ErrInvalid)
	case c.World.CleanIntervalTicks < 0 || c.World.StatsIntervalTicks < 0:
		return fmt.Errorf("%w: world intervals must not be negative", ErrInvalid)
	case c.Pathfinding.MaxSearchDist < 0:
		return fmt.Errorf("%w: pathfinding.max_search_dist must not be negative", ErrInvalid)
	case c.Pathfinding.MonsterStepInterval < 1:
		return fmt.Errorf("%w: pathfinding.monster_step_interval must be at least 1", ErrInvalid)
	case c.Database.DSN != "" && c.Database.SaveIntervalTicks < 1:
		return fmt.Errorf("%w: database.save_interval_ticks must be at least 1", ErrInvalid)
	case c.Scripting.Enabled && c.Scripting.Dir == "":
		return fmt.Errorf("%w: scripting.dir is required when scripting is enabled", ErrInvalid)
	case c.Debug.Enabled && c.Debug.Bind == "":
		return fmt.Errorf("%w: debug.bind is required when debug is enabled", ErrInvalid)
	case c.Debug.PasswordHash != "" && c.Debug.User == "":
		return fmt.Errorf("%w: debug.user is required with debug.password_hash", ErrInvalid)
	}
	if c.Debug.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Debug.PasswordHash)); err != nil {
			return fmt.Errorf("%w: debug.password_hash: %v", ErrInvalid, err)
		}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "worldcore",
			TickRate: 200 * time.Millisecond,
		},
		World: WorldConfig{
			MapFile:    "data/yaml/map.yaml",
			ItemsFile:  "data/yaml/items.yaml",
			SpawnsFile: "data/yaml/spawns.yaml",

			CleanIntervalTicks: 3000, // 10 minutes at 200ms
			StatsIntervalTicks: 300,
		},
		Pathfinding: PathfindingConfig{
			MaxSearchDist:       12,
			AllowDiagonal:       true,
			MonsterStepInterval: 2,
		},
		Spectators: SpectatorsConfig{
			CacheEnabled: true,
		},
		Database: DatabaseConfig{
			MaxOpenConns:      10,
			MinConns:          1,
			ConnMaxLifetime:   30 * time.Minute,
			SaveIntervalTicks: 1500, // 5 minutes at 200ms
		},
		Scripting: ScriptingConfig{
			Dir:     "scripts",
			Enabled: true,
		},
		Debug: DebugConfig{
			Bind: "127.0.0.1:7080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
