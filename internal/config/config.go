// Console client configuration.
//
// Environment:
//   - CONSOLE_API_URL: backend base URL including the version prefix (default: http://localhost:3000/api/v1)
//   - CONSOLE_API_TIMEOUT: optional request timeout, e.g. "30s" (default: none)
//   - CONSOLE_STORAGE: memory | file | redis | postgres (default: file)
//   - CONSOLE_CONFIG: optional YAML file overlaid on top of the environment
//
// A .env file in the working directory is loaded first when present.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultBaseURL = "http://localhost:3000/api/v1"

type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Guard   GuardConfig   `yaml:"guard"`
	Display DisplayConfig `yaml:"display"`
}

type APIConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Secret   string         `yaml:"secret"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type PostgresConfig struct {
	DatabaseURL string `yaml:"databaseURL"`
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslMode"`
}

type LoggingConfig struct {
	Env       string `yaml:"env"`
	Service   string `yaml:"service"`
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"`
	Debug     bool   `yaml:"debug"`
	AddSource bool   `yaml:"addSource"`
}

type GuardConfig struct {
	Addr            string   `yaml:"addr"`
	Upstream        string   `yaml:"upstream"`
	ProtectedPrefix []string `yaml:"protectedPrefix"`
	GuestPrefix     []string `yaml:"guestPrefix"`
	OwnerPrefix     []string `yaml:"ownerPrefix"`
	LoginRoute      string   `yaml:"loginRoute"`
	LandingRoute    string   `yaml:"landingRoute"`
	AllowedOrigins  []string `yaml:"allowedOrigins"`
	CookieSecure    bool     `yaml:"cookieSecure"`
	CookieDomain    string   `yaml:"cookieDomain"`
}

type DisplayConfig struct {
	Currency string `yaml:"currency"`
}

// Load reads .env, the process environment and the optional YAML overlay, in that order.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return Config{}, err
	}

	if path := os.Getenv("CONSOLE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fromEnv reads the environment. Unset numeric values stay zero; set but
// malformed ones are an error naming the variable.
func fromEnv() (Config, error) {
	var redisDB int
	if v := os.Getenv("CONSOLE_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("CONSOLE_REDIS_DB: %w", err)
		}
		redisDB = n
	}
	var timeout time.Duration
	if v := os.Getenv("CONSOLE_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CONSOLE_API_TIMEOUT: %w", err)
		}
		timeout = d
	}

	return Config{
		API: APIConfig{
			BaseURL: getenv("CONSOLE_API_URL", DefaultBaseURL),
			Timeout: timeout,
		},
		Storage: StorageConfig{
			Driver: getenv("CONSOLE_STORAGE", "file"),
			Path:   os.Getenv("CONSOLE_STORAGE_PATH"),
			Secret: os.Getenv("CONSOLE_STORAGE_SECRET"),
			Redis: RedisConfig{
				Addr:     getenv("CONSOLE_REDIS_ADDR", "localhost:6379"),
				Password: os.Getenv("CONSOLE_REDIS_PASSWORD"),
				DB:       redisDB,
				Prefix:   getenv("CONSOLE_REDIS_PREFIX", "console:"),
			},
			Postgres: PostgresConfig{
				DatabaseURL: os.Getenv("DATABASE_URL"),
				Host:        getenv("PGHOST", "localhost"),
				Port:        getenv("PGPORT", "5432"),
				User:        os.Getenv("PGUSER"),
				Password:    os.Getenv("PGPASSWORD"),
				Database:    os.Getenv("PGDATABASE"),
				SSLMode:     getenv("PGSSLMODE", "disable"),
			},
		},
		Logging: LoggingConfig{
			Env:     os.Getenv("APP_ENV"),
			Service: getenv("CONSOLE_SERVICE", "console"),
			Version: os.Getenv("CONSOLE_VERSION"),
			Backend: os.Getenv("CONSOLE_LOG_BACKEND"),
			Debug:   os.Getenv("CONSOLE_DEBUG") == "true",
		},
		Guard: GuardConfig{
			Addr:            getenv("CONSOLE_GUARD_ADDR", ":8080"),
			Upstream:        getenv("CONSOLE_GUARD_UPSTREAM", "http://localhost:3001"),
			ProtectedPrefix: splitList(getenv("CONSOLE_GUARD_PROTECTED", "/dashboard,/finance,/portfolio,/settings,/admin")),
			GuestPrefix:     splitList(getenv("CONSOLE_GUARD_GUEST", "/auth/login,/auth/register")),
			OwnerPrefix:     splitList(getenv("CONSOLE_GUARD_OWNER", "/admin")),
			LoginRoute:      getenv("CONSOLE_LOGIN_ROUTE", "/auth/login"),
			LandingRoute:    getenv("CONSOLE_LANDING_ROUTE", "/dashboard"),
			AllowedOrigins:  splitList(getenv("CONSOLE_CORS_ORIGINS", "http://localhost:3001")),
			CookieSecure:    getenv("CONSOLE_COOKIE_SECURE", "false") == "true",
			CookieDomain:    getenv("CONSOLE_COOKIE_DOMAIN", ""),
		},
		Display: DisplayConfig{
			Currency: getenv("CONSOLE_CURRENCY", "MYR"),
		},
	}, nil
}

func (c *Config) applyDefaults() error {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid api timeout: %s", c.API.Timeout)
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = "file"
	case "memory", "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "file" && c.Storage.Path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		c.Storage.Path = filepath.Join(dir, "console", "session.json")
	}

	if c.Guard.LoginRoute == "" {
		c.Guard.LoginRoute = "/auth/login"
	}
	if c.Guard.LandingRoute == "" {
		c.Guard.LandingRoute = "/dashboard"
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
