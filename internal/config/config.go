package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Engine    EngineConfig    `mapstructure:"engine"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Cycle     CycleConfig     `mapstructure:"cycle"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// EngineConfig 路线图引擎参数，全部走配置注入，禁止写死
type EngineConfig struct {
	PlanWeeks        int     `mapstructure:"plan_weeks"`
	FloorFraction    float64 `mapstructure:"floor_fraction"`
	CeilingFraction  float64 `mapstructure:"ceiling_fraction"`
	DecayHalfLife    float64 `mapstructure:"decay_half_life"`
	DefaultWeakness  float64 `mapstructure:"default_weakness"`
	PackingSlack     float64 `mapstructure:"packing_slack"`
	SeverityFloor    int     `mapstructure:"severity_floor"`
	AutoActivate     bool    `mapstructure:"auto_activate"`
	LockTTLSeconds   int     `mapstructure:"lock_ttl_seconds"`
	HoursStepDefault float64 `mapstructure:"hours_step_default"`
}

// AgentsConfig 监控代理阈值
type AgentsConfig struct {
	CompletionThreshold float64 `mapstructure:"completion_threshold"`
	DeclineSlope        float64 `mapstructure:"decline_slope"`
	ScoreVarianceBound  float64 `mapstructure:"score_variance_bound"`
	DailyVarianceBound  float64 `mapstructure:"daily_variance_bound"`
	DailyCeilingMinutes float64 `mapstructure:"daily_ceiling_minutes"`
	IdleDaysThreshold   int     `mapstructure:"idle_days_threshold"`
	FocusFloor          float64 `mapstructure:"focus_floor"`
}

type CycleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Spec    string `mapstructure:"spec"` // cron 表达式
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ROADMAP")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validateEngine(&cfg.Engine); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("engine.plan_weeks", 12)
	viper.SetDefault("engine.floor_fraction", 0.10)
	viper.SetDefault("engine.ceiling_fraction", 0.50)
	viper.SetDefault("engine.decay_half_life", 2.0)
	viper.SetDefault("engine.default_weakness", 25.0)
	viper.SetDefault("engine.packing_slack", 0.10)
	viper.SetDefault("engine.severity_floor", 4)
	viper.SetDefault("engine.auto_activate", false)
	viper.SetDefault("engine.lock_ttl_seconds", 60)
	viper.SetDefault("engine.hours_step_default", 1.0)

	viper.SetDefault("agents.completion_threshold", 0.60)
	viper.SetDefault("agents.decline_slope", 1.5)
	viper.SetDefault("agents.score_variance_bound", 150.0)
	viper.SetDefault("agents.daily_variance_bound", 3600.0)
	viper.SetDefault("agents.daily_ceiling_minutes", 480.0)
	viper.SetDefault("agents.idle_days_threshold", 3)
	viper.SetDefault("agents.focus_floor", 6.0)

	viper.SetDefault("cycle.enabled", false)
	viper.SetDefault("cycle.spec", "0 6 * * 1")
}

func validateEngine(e *EngineConfig) error {
	if e.PlanWeeks <= 0 {
		return fmt.Errorf("engine.plan_weeks must be positive, got %d", e.PlanWeeks)
	}
	if e.FloorFraction < 0 || e.CeilingFraction > 1 || e.FloorFraction >= e.CeilingFraction {
		return fmt.Errorf("engine floor/ceiling fractions invalid: floor=%.2f ceiling=%.2f",
			e.FloorFraction, e.CeilingFraction)
	}
	if e.DecayHalfLife <= 0 {
		return fmt.Errorf("engine.decay_half_life must be positive")
	}
	return nil
}
