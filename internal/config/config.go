package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int           `mapstructure:"port"`
		CorsAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string      `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string      `mapstructure:"cors_allowed_headers"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		Driver     string `mapstructure:"driver"` // postgres or sqlite
		Host       string `mapstructure:"host"`
		Port       int    `mapstructure:"port"`
		User       string `mapstructure:"user"`
		Password   string `mapstructure:"password"`
		Name       string `mapstructure:"name"`
		SSLMode    string `mapstructure:"sslmode"`
		SQLitePath string `mapstructure:"sqlite_path"`
		MaxConns   int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr               string `mapstructure:"addr"`
		Password           string `mapstructure:"password"`
		DB                 int    `mapstructure:"db"`
		IdentityTTLSeconds int    `mapstructure:"identity_ttl_seconds"`
	} `mapstructure:"redis"`

	Ledger struct {
		// floor, reject or credit
		OvercollectionPolicy string `mapstructure:"overcollection_policy"`
	} `mapstructure:"ledger"`

	Reconciliation struct {
		BlockAfterClose bool `mapstructure:"block_after_close"`
	} `mapstructure:"reconciliation"`

	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
}

// Load reads configs/config.yaml (optional), .env and the environment.
func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	return LoadFrom("configs/config.yaml")
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) *Config {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "collection-backend")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "collections_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "collections.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.identity_ttl_seconds", 300)
	v.SetDefault("ledger.overcollection_policy", "floor")
	v.SetDefault("reconciliation.block_after_close", false)
	v.SetDefault("log.level", "info")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found at %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnvOverrides(&cfg)
	return &cfg
}

// applyEnvOverrides lets the flat DB_*, JWT_*, REDIS_* variables used by the
// deployment manifests win over the file.
func applyEnvOverrides(cfg *Config) {
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.Database.Driver = driver
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		cfg.Database.SQLitePath = path
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	} else if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" && cfg.Redis.Addr == "" {
		// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
		port := os.Getenv("REDIS_SERVICE_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.Redis.Addr = host + ":" + port
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
}

// IdentityTTL is the redis TTL for cached identities.
func (c *Config) IdentityTTL() time.Duration {
	return time.Duration(c.Redis.IdentityTTLSeconds) * time.Second
}
