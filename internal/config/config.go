// internal/config/config.go
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

type Config struct {
	Bot      BotConfig
	OpenAI   OpenAIConfig
	Database DatabaseConfig
	Server   ServerConfig
	State    StateConfig
	Redis    RedisConfig
	Log      LogConfig
}

type BotConfig struct {
	Token       string
	PollTimeout int
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type DatabaseConfig struct {
	File string
}

type ServerConfig struct {
	Enable bool
	Host   string
	Port   int
}

type StateConfig struct {
	Backend string // memory or redis
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LogConfig struct {
	Level          string
	Format         string // text or json
	File           string
	LogstashEnable bool
	LogstashURL    string
	ElkEnable      bool
	ElkURL         string
	ElkIndex       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", 60)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("db.file", "data.sqlite")
	v.SetDefault("server.enable", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8011)
	v.SetDefault("state.backend", "memory")
	v.SetDefault("state.ttl", "24h")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.elk.index", "calorie-bot")
}

// Load reads .env (if present), then config.yml from path or the working
// directory, with environment variables taking precedence: a key such as
// openai.api_key is overridden by OPENAI_API_KEY.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// no config.yml: environment and defaults only
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return toModel(v), nil
}

func toModel(v *viper.Viper) *Config {
	var cfg Config
	cfg.Bot.Token = v.GetString("bot.token")
	cfg.Bot.PollTimeout = v.GetInt("bot.poll_timeout")
	cfg.OpenAI.APIKey = v.GetString("openai.api_key")
	cfg.OpenAI.BaseURL = v.GetString("openai.base_url")
	cfg.OpenAI.Model = v.GetString("openai.model")
	cfg.OpenAI.Timeout = v.GetDuration("openai.timeout")
	cfg.Database.File = v.GetString("db.file")
	cfg.Server.Enable = v.GetBool("server.enable")
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.State.Backend = strings.ToLower(v.GetString("state.backend"))
	cfg.State.TTL = v.GetDuration("state.ttl")
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Log.File = v.GetString("log.file")
	cfg.Log.LogstashEnable = v.GetBool("log.logstash.enable")
	cfg.Log.LogstashURL = v.GetString("log.logstash.url")
	cfg.Log.ElkEnable = v.GetBool("log.elk.enable")
	cfg.Log.ElkURL = v.GetString("log.elk.url")
	cfg.Log.ElkIndex = v.GetString("log.elk.index")
	return &cfg
}

// Validate checks what the bot cannot start without.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("config: openai.api_key is required (set in config.yml or OPENAI_API_KEY)")
	}
	if c.Database.File == "" {
		return errors.New("config: db.file is required (set in config.yml or DB_FILE)")
	}
	if c.Bot.Token == "" && !c.Server.Enable {
		return errors.New("config: nothing to run, set bot.token (BOT_TOKEN) or enable the server")
	}
	switch c.State.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis state backend")
		}
	default:
		return fmt.Errorf("config: unknown state.backend %q", c.State.Backend)
	}
	return nil
}
