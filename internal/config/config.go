package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		RequestTimeout     time.Duration `koanf:"request_timeout"`
		ReadTimeout        time.Duration `koanf:"read_timeout"`
		WriteTimeout       time.Duration `koanf:"write_timeout"`
		IdleTimeout        time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout    time.Duration `koanf:"shutdown_timeout"`
		MaxRequestBodySize int64         `koanf:"max_request_body_size"`
	} `koanf:"http"`

	Postgres struct {
		Host              string `koanf:"host"`
		Port              int    `koanf:"port"`
		User              string `koanf:"user"`
		Password          string `koanf:"password"`
		DBName            string `koanf:"db_name"`
		MigrationsDirPath string `koanf:"migrations_path"`
	} `koanf:"postgres"`

	Mongo struct {
		URI      string `koanf:"uri"`
		Database string `koanf:"database"`
	} `koanf:"mongo"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Kafka struct {
		Brokers      []string      `koanf:"brokers"`
		Topic        string        `koanf:"topic"`
		PollInterval time.Duration `koanf:"poll_interval"`
		BatchSize    int           `koanf:"batch_size"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		UserTTL   time.Duration `koanf:"user_ttl"`
		AdminTTL  time.Duration `koanf:"admin_ttl"`
	} `koanf:"security"`

	Cart struct {
		Backend string        `koanf:"backend"` // memory | redis
		TTL     time.Duration `koanf:"ttl"`
	} `koanf:"cart"`

	Catalog struct {
		Timeout             time.Duration `koanf:"timeout"`
		BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
		BreakerOpenTimeout  time.Duration `koanf:"breaker_open_timeout"`
		BreakerFailureTrips uint32        `koanf:"breaker_failure_trips"`
	} `koanf:"catalog"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`
}

// Load reads <dir>/base.yaml, then the optional <dir>/<envName>.yaml, then
// STOREFRONT_ environment variables (nested keys separated by "__",
// e.g. STOREFRONT_POSTGRES__PASSWORD).
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", dir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	if envName != "" {
		err := k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", dir, envName)), yaml.Parser())
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envName, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ToLower(s)
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.Postgres.Host == "" || c.Postgres.DBName == "" {
		errs = append(errs, errors.New("postgres.host and postgres.db_name required"))
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.uri and mongo.database required"))
	}
	if len(c.Security.JWTSecret) < 16 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 16 bytes"))
	}
	switch c.Cart.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr required for redis cart backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cart.backend must be memory or redis, got %q", c.Cart.Backend))
	}
	return errors.Join(errs...)
}
