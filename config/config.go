package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Drafts   DraftsConfig   `mapstructure:"drafts"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

type ServerConfig struct {
	Port   string `mapstructure:"port"`
	Domain string `mapstructure:"domain"`
	Mode   string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SessionConfig struct {
	Secret string `mapstructure:"secret"`
	Secure bool   `mapstructure:"secure"`
}

type DraftsConfig struct {
	Backend  string        `mapstructure:"backend"`
	TTL      time.Duration `mapstructure:"ttl"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	BasePath  string `mapstructure:"base_path"`
	PublicURL string `mapstructure:"public_url"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type CacheConfig struct {
	Dir    string        `mapstructure:"dir"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Load reads config.yaml (optional) and .env (optional); every key can be
// overridden from the environment, e.g. SESSION_SECRET or DATABASE_DSN.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.domain", "http://localhost:8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "rankwell.db")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.secure", false)
	v.SetDefault("drafts.backend", "memory")
	v.SetDefault("drafts.ttl", 7*24*time.Hour)
	v.SetDefault("drafts.debounce", time.Second)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.base_path", "./uploads")
	v.SetDefault("storage.public_url", "/uploads")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.max_age", 10*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
}

func (c *Config) Validate() error {
	if c.Session.Secret == "" {
		return errors.New("session.secret (SESSION_SECRET) must be set")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Drafts.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported drafts backend %q", c.Drafts.Backend)
	}
	switch c.Storage.Provider {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported storage provider %q", c.Storage.Provider)
	}
	return nil
}
