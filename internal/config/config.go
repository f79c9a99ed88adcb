package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yukikurage/stellar-tasks/internal/constants"
)

type Config struct {
	DBDriver         string        `mapstructure:"db_driver"`
	DBHost           string        `mapstructure:"db_host"`
	DBPort           string        `mapstructure:"db_port"`
	DBUser           string        `mapstructure:"db_user"`
	DBPassword       string        `mapstructure:"db_password"`
	DBName           string        `mapstructure:"db_name"`
	SQLitePath       string        `mapstructure:"sqlite_path"`
	RedisHost        string        `mapstructure:"redis_host"`
	RedisPort        string        `mapstructure:"redis_port"`
	SessionStore     string        `mapstructure:"session_store"`
	SessionSecret    string        `mapstructure:"session_secret"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	JWTTTL           time.Duration `mapstructure:"jwt_ttl"`
	AdminInviteToken string        `mapstructure:"admin_invite_token"`
	GinMode          string        `mapstructure:"gin_mode"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	HTTPAddr         string        `mapstructure:"http_addr"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

var defaults = map[string]any{
	"db_driver":          "mysql",
	"db_host":            "localhost",
	"db_port":            "3306",
	"db_user":            "taskuser",
	"db_password":        "taskpassword",
	"db_name":            "task_management",
	"sqlite_path":        "tasks.db",
	"redis_host":         "localhost",
	"redis_port":         "6379",
	"session_store":      "redis",
	"session_secret":     "default-secret-key-change-me",
	"jwt_secret":         "default-jwt-secret-change-me",
	"jwt_ttl":            constants.DefaultTokenTTL,
	"admin_invite_token": "",
	"gin_mode":           "debug",
	"openai_api_key":     "",
	"http_addr":          ":8080",
	"request_timeout":    constants.DefaultRequestTimeout,
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// AutomaticEnv only resolves keys viper already knows about; binding
		// each one makes Unmarshal see DB_HOST and friends.
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			var pathErr *os.PathError
			if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = constants.DefaultTokenTTL
	}

	return cfg, nil
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
