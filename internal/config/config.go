package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the MCPizza server
type Config struct {
	Database DatabaseConfig `yaml:"database" envPrefix:"MCPIZZA_DB_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"MCPIZZA_RABBITMQ_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"MCPIZZA_REDIS_"`
	Pizza    PizzaConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	Database string `yaml:"database" env:"NAME"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
}

// PizzaConfig holds the ordering behaviour switches.
type PizzaConfig struct {
	RealAPI             bool            `env:"MCPIZZA_REAL_API" envDefault:"false"`
	FallbackMock        bool            `env:"MCPIZZA_FALLBACK_MOCK" envDefault:"true"`
	EnableOrders        bool            `env:"MCPIZZA_ENABLE_ORDERS" envDefault:"false"`
	RequireConfirmation bool            `env:"MCPIZZA_REQUIRE_CONFIRMATION" envDefault:"true"`
	MaxOrderAmount      decimal.Decimal `env:"MCPIZZA_MAX_ORDER_AMOUNT" envDefault:"100.0"`
	TimeoutSeconds      int             `env:"MCPIZZA_TIMEOUT" envDefault:"30"`
	RetryAttempts       int             `env:"MCPIZZA_RETRY_ATTEMPTS" envDefault:"3"`
	APIBaseURL          string          `env:"MCPIZZA_API_BASE_URL" envDefault:"https://order.dominos.com"`
	MenuCacheTTL        time.Duration   `env:"MCPIZZA_MENU_CACHE_TTL" envDefault:"10m"`
}

// ServerConfig holds process level settings.
type ServerConfig struct {
	HTTPAddr      string `env:"MCPIZZA_HTTP_ADDR" envDefault:":8080"`
	SessionStore  string `env:"MCPIZZA_SESSION_STORE" envDefault:"memory"`
	ExtendedTools bool   `env:"MCPIZZA_EXTENDED_TOOLS" envDefault:"false"`
	LogLevel      string `env:"MCPIZZA_LOG_LEVEL" envDefault:"INFO"`
	LogFile       string `env:"MCPIZZA_LOG_FILE"`
}

// Timeout returns the ordering API timeout as a duration
func (p PizzaConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Load reads configuration from a YAML file and overlays the process
// environment. A missing file is not an error.
func Load(filename string) (*Config, error) {
	return LoadWithEnv(filename, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ means the
// process environment.
func LoadWithEnv(filename string, environ map[string]string) (*Config, error) {
	config := &Config{}

	if filename != "" {
		if err := config.loadFile(filename); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(config, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if err := c.setValue(currentSection, key, value); err != nil {
			return fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func (c *Config) validate() error {
	switch c.Server.SessionStore {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Server.SessionStore)
	}
	if c.Pizza.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative")
	}
	if c.Pizza.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// setValue sets a configuration value based on section and key
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "database":
		return c.setDatabaseValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "redis":
		return c.setRedisValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Database.Port = port
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.RabbitMQ.Port = port
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

func (c *Config) setRedisValue(key, value string) error {
	switch key {
	case "host":
		c.Redis.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Redis.Port = port
	case "password":
		c.Redis.Password = value
	case "db":
		db, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
		c.Redis.DB = db
	default:
		return fmt.Errorf("unknown redis key: %s", key)
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	port := c.Redis.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, port)
}

// RabbitMQEnabled reports whether order events should be published.
func (c *Config) RabbitMQEnabled() bool {
	return c.RabbitMQ.Host != ""
}

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}
