// Package config provides configuration loading for the arena server.
//
// Values come from three layers: the embedded defaults.yaml, an optional user
// YAML file, and finally environment variables (optionally read from a .env
// file). Later layers only overwrite the fields they set.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	Tick      TickConfig      `yaml:"tick"`
	Snake     SnakeConfig     `yaml:"snake"`
	Food      FoodConfig      `yaml:"food"`
	Collision CollisionConfig `yaml:"collision"`
	Bots      BotsConfig      `yaml:"bots"`
	Net       NetConfig       `yaml:"net"`
	Auth      AuthConfig      `yaml:"auth"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	StaticDir      string `yaml:"static_dir"`
	PublicURL      string `yaml:"public_url"` // encoded by the /qr share endpoint
	MaxConns       int    `yaml:"max_conns"`
	MaxConnsPerIP  int    `yaml:"max_conns_per_ip"`
	AllowAnyOrigin bool   `yaml:"allow_any_origin"`
}

// WorldConfig describes the playing field. The boundary clamps.
type WorldConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Margin       float64 `yaml:"margin"` // positions are clamped to [margin, extent-margin]
	GridCellSize float64 `yaml:"grid_cell_size"`
}

// TickConfig holds scheduler timing.
type TickConfig struct {
	Rate               int           `yaml:"rate"` // ticks per second
	PopulationInterval time.Duration `yaml:"population_interval"`
	DeathRecheck       time.Duration `yaml:"death_recheck"` // population check delay after a bot dies
	BotStride          int           `yaml:"bot_stride"`    // each bot thinks every Nth tick
	FoodTopUpPerTick   int           `yaml:"food_top_up_per_tick"`
}

// SnakeConfig holds movement and growth tuning.
type SnakeConfig struct {
	BaseSpeed        float64  `yaml:"base_speed"`  // units per tick
	BoostSpeed       float64  `yaml:"boost_speed"` // units per tick
	HeadRadius       float64  `yaml:"head_radius"`
	SegmentTaper     float64  `yaml:"segment_taper"` // radius lost per segment index
	MinSegmentRadius float64  `yaml:"min_segment_radius"`
	SegmentDistance  float64  `yaml:"segment_distance"`
	BaseLength       int      `yaml:"base_length"`
	MinLength        int      `yaml:"min_length"`
	MaxLength        int      `yaml:"max_length"`
	ScorePerSegment  int      `yaml:"score_per_segment"`
	MinBoostLength   int      `yaml:"min_boost_length"` // boost needs strictly more segments than this
	BoostShedChance  float64  `yaml:"boost_shed_chance"`
	BoostDropJitter  float64  `yaml:"boost_drop_jitter"`
	TurnLerp         float64  `yaml:"turn_lerp"`
	MaxTurn          float64  `yaml:"max_turn"` // radians per tick at zero length
	TurnLengthFactor float64  `yaml:"turn_length_factor"`
	SpawnMargin      float64  `yaml:"spawn_margin"`
	Colors           []string `yaml:"colors"`
}

// FoodConfig holds food field tuning.
type FoodConfig struct {
	Target       int     `yaml:"target"` // ambient top-up level
	Max          int     `yaml:"max"`    // hard cap including drops
	MinSize      float64 `yaml:"min_size"`
	MaxSize      float64 `yaml:"max_size"`
	Value        int     `yaml:"value"`
	BoostValue   int     `yaml:"boost_value"`
	BoostSize    float64 `yaml:"boost_size"`
	DeathValue   int     `yaml:"death_value"`
	DeathMinSize float64 `yaml:"death_min_size"`
	DeathMaxSize float64 `yaml:"death_max_size"`
}

// CollisionConfig holds collision and death-drop tuning.
type CollisionConfig struct {
	Prefix           int     `yaml:"prefix"` // opponent segments tested per head
	OverlapTolerance float64 `yaml:"overlap_tolerance"`
	DropStride       int     `yaml:"drop_stride"`
	DropJitter       float64 `yaml:"drop_jitter"`
	EatSlack         float64 `yaml:"eat_slack"`  // extra reach allowed for client eat claims
	KillSlack        float64 `yaml:"kill_slack"` // extra reach allowed for reported killers
}

// BotsConfig holds bot population and behaviour tuning.
type BotsConfig struct {
	MinPlayers        int           `yaml:"min_players"`
	MaxBots           int           `yaml:"max_bots"`
	Floor             int           `yaml:"floor"`
	AggressivenessMin float64       `yaml:"aggressiveness_min"`
	AggressivenessMax float64       `yaml:"aggressiveness_max"`
	FearMin           float64       `yaml:"fear_min"`
	FearMax           float64       `yaml:"fear_max"`
	SenseRadius       float64       `yaml:"sense_radius"`
	HuntMinLength     int           `yaml:"hunt_min_length"`
	HuntRatio         float64       `yaml:"hunt_ratio"`
	HuntRadius        float64       `yaml:"hunt_radius"`
	HuntBoostDistance float64       `yaml:"hunt_boost_distance"`
	FleeBoostChance   float64       `yaml:"flee_boost_chance"`
	WanderBoostChance float64       `yaml:"wander_boost_chance"`
	WanderDelta       float64       `yaml:"wander_delta"` // full width of the random heading nudge
	WanderMin         time.Duration `yaml:"wander_min"`
	WanderMax         time.Duration `yaml:"wander_max"`
	EdgeMargin        float64       `yaml:"edge_margin"`
	Names             []string      `yaml:"names"`
}

// NetConfig holds per-connection transport limits.
type NetConfig struct {
	InputInterval     time.Duration `yaml:"input_interval"` // min spacing of steering updates
	SendBuffer        int           `yaml:"send_buffer"`
	WriteWait         time.Duration `yaml:"write_wait"`
	PongWait          time.Duration `yaml:"pong_wait"`
	MaxMessageSize    int64         `yaml:"max_message_size"`
	MaxMessagesPerSec int           `yaml:"max_messages_per_sec"`
	LeaderboardSize   int           `yaml:"leaderboard_size"`
	SnapshotSegments  int           `yaml:"snapshot_segments"`
	MaxNameLen        int           `yaml:"max_name_len"`
	InboxSize         int           `yaml:"inbox_size"`

	Viewport ViewportConfig `yaml:"viewport"`
}

// ViewportConfig culls a player's tick snapshot to the snakes around its head.
// Off, every recipient gets the same frame.
type ViewportConfig struct {
	Enabled bool    `yaml:"enabled"`
	Width   float64 `yaml:"width"`
	Height  float64 `yaml:"height"`
	Buffer  float64 `yaml:"buffer"` // margin added on every side
}

// AuthConfig holds account and token settings.
type AuthConfig struct {
	AllowGuests         bool          `yaml:"allow_guests"`
	Secret              string        `yaml:"secret"` // empty: generated once and kept in the store
	TokenTTL            time.Duration `yaml:"token_ttl"`
	BcryptCost          int           `yaml:"bcrypt_cost"`
	MinPasswordLen      int           `yaml:"min_password_len"`
	MinUsernameLen      int           `yaml:"min_username_len"`
	MaxUsernameLen      int           `yaml:"max_username_len"`
	LoginAttemptsPerMin int           `yaml:"login_attempts_per_min"`
}

// StoreConfig holds sqlite and async writer settings.
type StoreConfig struct {
	Path          string        `yaml:"path"`
	QueueSize     int           `yaml:"queue_size"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// TelemetryConfig controls the tick statistics CSV. An empty dir disables it.
type TelemetryConfig struct {
	Dir    string        `yaml:"dir"`
	Window time.Duration `yaml:"window"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	TickInterval      time.Duration
	PopulationTicks   int
	DeathRecheckTicks int
	WanderMinTicks    int
	WanderMaxTicks    int
}

// Load reads the embedded defaults, overlays the YAML file at path (if any)
// and the environment, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Default returns the embedded defaults without file or environment overlays.
// It panics if the embedded file is broken.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("config: parsing embedded defaults: %v", err))
	}
	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	cfg.computeDerived()
	return cfg
}

// LoadDotEnv loads environment variables from the given files (".env" when
// none are given). A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SLITHER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SLITHER_STATIC_DIR"); v != "" {
		c.Server.StaticDir = v
	}
	if v := os.Getenv("SLITHER_PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := os.Getenv("SLITHER_DB"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SLITHER_TELEMETRY_DIR"); v != "" {
		c.Telemetry.Dir = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("SLITHER_ALLOW_GUESTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SLITHER_ALLOW_GUESTS: %w", err)
		}
		c.Auth.AllowGuests = b
	}
	return nil
}

func (c *Config) validate() error {
	switch {
	case c.World.Width <= 2*c.World.Margin || c.World.Height <= 2*c.World.Margin:
		return fmt.Errorf("world must be larger than twice its margin")
	case c.World.GridCellSize <= 0:
		return fmt.Errorf("world.grid_cell_size must be positive")
	case c.Tick.Rate <= 0:
		return fmt.Errorf("tick.rate must be positive")
	case c.Snake.SegmentDistance <= 0:
		return fmt.Errorf("snake.segment_distance must be positive")
	case c.Snake.BaseSpeed > c.Snake.SegmentDistance || c.Snake.BoostSpeed > c.Snake.SegmentDistance:
		return fmt.Errorf("snake speeds must not exceed snake.segment_distance")
	case c.Snake.MinLength < 1 || c.Snake.MaxLength < c.Snake.MinLength:
		return fmt.Errorf("snake length bounds are inconsistent")
	case c.Snake.ScorePerSegment <= 0:
		return fmt.Errorf("snake.score_per_segment must be positive")
	case len(c.Snake.Colors) == 0:
		return fmt.Errorf("snake.colors must not be empty")
	case c.Food.Target > c.Food.Max:
		return fmt.Errorf("food.target (%d) exceeds food.max (%d)", c.Food.Target, c.Food.Max)
	case c.Food.Value < 1 || c.Food.BoostValue < 1 || c.Food.DeathValue < 1:
		return fmt.Errorf("food values must be at least 1")
	case c.Collision.Prefix < 1 || c.Collision.DropStride < 1:
		return fmt.Errorf("collision.prefix and collision.drop_stride must be positive")
	case c.Bots.MaxBots < c.Bots.MinPlayers:
		return fmt.Errorf("bots.max_bots (%d) must cover bots.min_players (%d)", c.Bots.MaxBots, c.Bots.MinPlayers)
	case c.Bots.Floor < 0 || c.Bots.Floor > c.Bots.MaxBots:
		return fmt.Errorf("bots.floor out of range")
	case c.Bots.WanderMax < c.Bots.WanderMin:
		return fmt.Errorf("bots.wander_max is below bots.wander_min")
	case len(c.Bots.Names) == 0:
		return fmt.Errorf("bots.names must not be empty")
	case c.Net.Viewport.Enabled && (c.Net.Viewport.Width <= 0 || c.Net.Viewport.Height <= 0):
		return fmt.Errorf("net.viewport needs a positive width and height")
	}
	return nil
}

func (c *Config) computeDerived() {
	c.Derived.TickInterval = time.Second / time.Duration(c.Tick.Rate)
	c.Derived.PopulationTicks = c.ticks(c.Tick.PopulationInterval)
	c.Derived.DeathRecheckTicks = c.ticks(c.Tick.DeathRecheck)
	c.Derived.WanderMinTicks = c.ticks(c.Bots.WanderMin)
	c.Derived.WanderMaxTicks = c.ticks(c.Bots.WanderMax)
	if c.Tick.BotStride < 1 {
		c.Tick.BotStride = 1
	}
}

// ticks converts a duration to a whole number of ticks, at least one.
func (c *Config) ticks(d time.Duration) int {
	n := int(math.Round(d.Seconds() * float64(c.Tick.Rate)))
	if n < 1 {
		return 1
	}
	return n
}

// WriteYAML saves the effective configuration. The token secret is omitted.
func (c *Config) WriteYAML(path string) error {
	out := *c
	out.Auth.Secret = ""
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
