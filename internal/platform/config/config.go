package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 保存最近一次成功加载的配置
var Cfg *Config

// Config 与 config.yaml 的结构一一对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Arena    ArenaConfig    `mapstructure:"arena"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode         string          `mapstructure:"mode"`
	Address      string          `mapstructure:"address"`
	TicketSecret string          `mapstructure:"ticketSecret"`
	Cors         CorsConfig      `mapstructure:"cors"`
	RateLimit    RateLimitConfig `mapstructure:"rateLimit"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// RateLimitConfig 是写接口的每客户端限流参数
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	// Driver 取值 sqlite 或 postgres
	Driver   string      `mapstructure:"driver"`
	DSN      string      `mapstructure:"dsn"`
	LogLevel string      `mapstructure:"logLevel"`
	Redis    RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置；Redis只作为统计缓存，可关闭
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 定义了zap日志的配置
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ArenaConfig 是对决引擎本身的参数
type ArenaConfig struct {
	DefaultRating int            `mapstructure:"defaultRating"`
	StatsCacheTTL time.Duration  `mapstructure:"statsCacheTTL"`
	Commit        CommitConfig   `mapstructure:"commit"`
	Privacy       PrivacyConfig  `mapstructure:"privacy"`
	Comments      CommentsConfig `mapstructure:"comments"`
}

// CommitConfig 是乐观并发提交的重试参数
type CommitConfig struct {
	MaxAttempts int             `mapstructure:"maxAttempts"`
	Backoff     []time.Duration `mapstructure:"backoff"`
}

// PrivacyConfig 是人口统计分组的匿名化参数
type PrivacyConfig struct {
	MinGroupSize int `mapstructure:"minGroupSize"`
}

// CommentsConfig 是跨配对评论检索的分页上限
type CommentsConfig struct {
	DefaultLimit     int `mapstructure:"defaultLimit"`
	MaxCurrentLimit  int `mapstructure:"maxCurrentLimit"`
	MaxExpandedLimit int `mapstructure:"maxExpandedLimit"`
	AbsoluteMaxLimit int `mapstructure:"absoluteMaxLimit"`
}

// Default 返回所有配置项的默认值
func Default() Config {
	return Config{
		Server: ServerConfig{
			Mode:    "release",
			Address: ":8080",
			Cors:    CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}},
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 5,
				Burst:             10,
			},
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			DSN:      "arena.db?_busy_timeout=5000&_txlock=immediate",
			LogLevel: "silent",
			Redis: RedisConfig{
				Address: "localhost:6379",
			},
		},
		Log: LogConfig{Level: "info"},
		Arena: ArenaConfig{
			DefaultRating: 1200,
			StatsCacheTTL: 30 * time.Second,
			Commit: CommitConfig{
				MaxAttempts: 3,
				Backoff:     []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond},
			},
			Privacy: PrivacyConfig{MinGroupSize: 5},
			Comments: CommentsConfig{
				DefaultLimit:     10,
				MaxCurrentLimit:  20,
				MaxExpandedLimit: 30,
				AbsoluteMaxLimit: 40,
			},
		},
	}
}

// Validate 检查配置是否自洽
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver 只支持 sqlite 或 postgres，收到 %q", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn 不能为空"))
	}
	if c.Arena.DefaultRating < 0 || c.Arena.DefaultRating > 4000 {
		errs = append(errs, fmt.Errorf("arena.defaultRating 必须在 [0, 4000] 内，收到 %d", c.Arena.DefaultRating))
	}
	if c.Arena.Commit.MaxAttempts < 1 {
		errs = append(errs, errors.New("arena.commit.maxAttempts 至少为1"))
	}
	if c.Arena.Privacy.MinGroupSize < 1 {
		errs = append(errs, errors.New("arena.privacy.minGroupSize 至少为1"))
	}
	cm := c.Arena.Comments
	if cm.DefaultLimit < 1 || cm.MaxCurrentLimit < 1 || cm.MaxExpandedLimit < 1 || cm.AbsoluteMaxLimit < 2 {
		errs = append(errs, errors.New("arena.comments 的各项上限必须为正数，absoluteMaxLimit 至少为2"))
	}
	return errors.Join(errs...)
}

// LoadConfig 加载 .env、config.yaml 和环境变量，后者优先级最高。
// 找不到 config.yaml 时只使用默认值和环境变量。
func LoadConfig(paths ...string) (*Config, error) {
	// .env 是可选的
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("无法加载 .env 文件: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:8888
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}

	Cfg = &cfg
	return Cfg, nil
}

// setDefaults 把默认值注册进viper，使 AutomaticEnv 对未出现在文件中的键也生效
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.mode", cfg.Server.Mode)
	v.SetDefault("server.address", cfg.Server.Address)
	v.SetDefault("server.ticketSecret", cfg.Server.TicketSecret)
	v.SetDefault("server.cors.allowedOrigins", cfg.Server.Cors.AllowedOrigins)
	v.SetDefault("server.rateLimit.requestsPerSecond", cfg.Server.RateLimit.RequestsPerSecond)
	v.SetDefault("server.rateLimit.burst", cfg.Server.RateLimit.Burst)
	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.dsn", cfg.Database.DSN)
	v.SetDefault("database.logLevel", cfg.Database.LogLevel)
	v.SetDefault("database.redis.enabled", cfg.Database.Redis.Enabled)
	v.SetDefault("database.redis.address", cfg.Database.Redis.Address)
	v.SetDefault("database.redis.password", cfg.Database.Redis.Password)
	v.SetDefault("database.redis.db", cfg.Database.Redis.DB)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("arena.defaultRating", cfg.Arena.DefaultRating)
	v.SetDefault("arena.statsCacheTTL", cfg.Arena.StatsCacheTTL)
	v.SetDefault("arena.commit.maxAttempts", cfg.Arena.Commit.MaxAttempts)
	v.SetDefault("arena.commit.backoff", cfg.Arena.Commit.Backoff)
	v.SetDefault("arena.privacy.minGroupSize", cfg.Arena.Privacy.MinGroupSize)
	v.SetDefault("arena.comments.defaultLimit", cfg.Arena.Comments.DefaultLimit)
	v.SetDefault("arena.comments.maxCurrentLimit", cfg.Arena.Comments.MaxCurrentLimit)
	v.SetDefault("arena.comments.maxExpandedLimit", cfg.Arena.Comments.MaxExpandedLimit)
	v.SetDefault("arena.comments.absoluteMaxLimit", cfg.Arena.Comments.AbsoluteMaxLimit)
}
