package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"candlestand-api/internal/model"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Store backends selectable through STORE_TYPE.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreMongoDB  = "mongodb"
	StoreMemory   = "memory"
)

// Cache backends selectable through CACHE_TYPE.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server  ServerConfig
	App     AppConfig
	Cache   CacheConfig
	Store   StoreConfig
	Session SessionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"candlestand-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:""`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin stats login key
}

// CacheConfig holds settings of the stand lookup cache.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // none, memory, or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"30s"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"candlestand:cache:"`
}

// StoreConfig holds stand and transaction store settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mysql, mongodb, or memory
	Path string `envconfig:"STORE_PATH" default:"./data/stands.db"`
	// PostgreSQL and MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"0"`
	Name     string `envconfig:"STORE_DB_NAME" default:"candlestand"`
	User     string `envconfig:"STORE_DB_USER" default:"candlestand"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"candlestand"`
}

// SessionConfig holds the timings of the per-stand session state machine.
type SessionConfig struct {
	LivenessWindow     time.Duration `envconfig:"LIVENESS_WINDOW" default:"10s"`
	ConfirmationWindow time.Duration `envconfig:"CONFIRMATION_WINDOW" default:"3s"`
	StoreTimeout       time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
	IdleThreshold      time.Duration `envconfig:"SESSION_IDLE_THRESHOLD" default:"1h"`
	SweepInterval      time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"10m"`
	DefaultsFile       string        `envconfig:"STAND_DEFAULTS_FILE" default:""`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(s.User, s.Password),
		Host:     fmt.Sprintf("%s:%d", s.Host, port),
		Path:     s.Name,
		RawQuery: "sslmode=" + s.SSLMode,
	}
	return u.String()
}

// MySQLDSN returns the MySQL data source name. clientFoundRows makes updates
// that change nothing still count the matched row.
func (s *StoreConfig) MySQLDSN() string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true",
		s.User, s.Password, s.Host, port, s.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks the settings that have no safe fallback.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Type {
	case StoreSQLite, StorePostgres, StoreMySQL, StoreMemory:
	case StoreMongoDB:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when STORE_TYPE=mongodb"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_TYPE %q", c.Store.Type))
	}

	switch c.Cache.Type {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type))
	}

	if c.Session.LivenessWindow <= 0 {
		errs = append(errs, errors.New("LIVENESS_WINDOW must be positive"))
	}
	if c.Session.ConfirmationWindow <= 0 {
		errs = append(errs, errors.New("CONFIRMATION_WINDOW must be positive"))
	}
	if c.Session.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

// LoadStandDefaults returns the values given to newly registered stands.
// Fields missing from the YAML file keep their built-in defaults.
func (s *SessionConfig) LoadStandDefaults() (model.StandDefaults, error) {
	defaults := model.DefaultStandDefaults()
	if s.DefaultsFile == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(s.DefaultsFile)
	if err != nil {
		return defaults, fmt.Errorf("failed to read stand defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("failed to parse stand defaults: %w", err)
	}
	return defaults, nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
