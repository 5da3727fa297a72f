package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"execution/internal/core"
	"execution/internal/og"
	"execution/internal/publish"
	"execution/internal/schema"
	"execution/pkg/conn"
	"execution/pkg/exception"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

const (
	PublisherLog   = "log"
	PublisherRedis = "redis"
)

// Config mirrors the TOML/JSON config layout.
type Config struct {
	Engine       EngineConfig    `toml:"engine" json:"engine"`
	Store        StoreConfig     `toml:"store" json:"store"`
	Publisher    PublisherConfig `toml:"publisher" json:"publisher"`
	Gateway      GatewayConfig   `toml:"gateway" json:"gateway"`
	Profiling    ProfilingConfig `toml:"profiling" json:"profiling"`
	SnapshotPath string          `toml:"snapshot_path" json:"snapshotPath"`
}

type EngineConfig struct {
	QueueCapacity int      `toml:"queue_capacity" json:"queueCapacity"`
	ExpiryBackup  bool     `toml:"expiry_backup" json:"expiryBackup"`
	StoreTimeout  Duration `toml:"store_timeout" json:"storeTimeout"`
}

type StoreConfig struct {
	Enabled  bool   `toml:"enabled" json:"enabled"`
	Driver   string `toml:"driver" json:"driver"`
	DSN      string `toml:"dsn" json:"dsn"`
	Host     string `toml:"host" json:"host"`
	Port     int    `toml:"port" json:"port"`
	User     string `toml:"user" json:"user"`
	Password string `toml:"password" json:"password"`
	Database string `toml:"database" json:"database"`
	SSLMode  string `toml:"ssl_mode" json:"sslMode"`
}

type PublisherConfig struct {
	Kind          string `toml:"kind" json:"kind"`
	RedisAddr     string `toml:"redis_addr" json:"redisAddr"`
	RedisPassword string `toml:"redis_password" json:"redisPassword"`
	RedisDB       int    `toml:"redis_db" json:"redisDb"`
	RedisPoolSize int    `toml:"redis_pool_size" json:"redisPoolSize"`
	ChannelPrefix string `toml:"channel_prefix" json:"channelPrefix"`
	BufferSize    int    `toml:"buffer_size" json:"bufferSize"`
}

// GatewayConfig configures the simulated venue session.
type GatewayConfig struct {
	Session           string            `toml:"session" json:"session"`
	ResendOnReconnect bool              `toml:"resend_on_reconnect" json:"resendOnReconnect"`
	FillMarketOrders  bool              `toml:"fill_market_orders" json:"fillMarketOrders"`
	Currency          string            `toml:"currency" json:"currency"`
	CashBalance       string            `toml:"cash_balance" json:"cashBalance"`
	MarkPrices        map[string]string `toml:"mark_prices" json:"markPrices"`
}

type ProfilingConfig struct {
	PyroscopeAddr string `toml:"pyroscope_addr" json:"pyroscopeAddr"`
	AppName       string `toml:"app_name" json:"appName"`
}

// Duration parses strings like "3s" from both TOML and JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a config that runs fully in memory with log publishing.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			QueueCapacity: 4096,
			ExpiryBackup:  true,
			StoreTimeout:  Duration{3 * time.Second},
		},
		Store: StoreConfig{
			Driver:  conn.DriverSQLite,
			SSLMode: "disable",
		},
		Publisher: PublisherConfig{
			Kind:          PublisherLog,
			RedisAddr:     "localhost:6379",
			ChannelPrefix: "execution",
			BufferSize:    1024,
		},
		Gateway: GatewayConfig{
			Session:           "SIM",
			ResendOnReconnect: true,
			FillMarketOrders:  true,
			Currency:          "USD",
			CashBalance:       "100000",
		},
		Profiling: ProfilingConfig{
			AppName: "execution.trader",
		},
		SnapshotPath: "positions.snapshot.json",
	}
}

// Load reads a TOML or JSON config file on top of Defaults, then applies
// EXECUTION_* environment overrides. An empty path yields the defaults.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.Wrapf(err, "read config %s", path)
			}
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrapf(err, "decode config %s", path)
			}
		default:
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, errors.Wrapf(err, "decode config %s", path)
			}
		}
	}

	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.Engine.QueueCapacity <= 0 {
		errs = append(errs, "engine: queue_capacity must be positive")
	}
	if c.Engine.StoreTimeout.Duration < 0 {
		errs = append(errs, "engine: store_timeout must not be negative")
	}

	switch strings.ToLower(c.Publisher.Kind) {
	case PublisherLog:
	case PublisherRedis:
		if c.Publisher.RedisAddr == "" {
			errs = append(errs, "publisher: redis_addr must not be empty")
		}
	default:
		errs = append(errs, "publisher: unknown kind "+c.Publisher.Kind)
	}

	if c.Store.Enabled {
		switch strings.ToLower(c.Store.Driver) {
		case conn.DriverPostgres, conn.DriverSQLite:
		default:
			errs = append(errs, "store: unknown driver "+c.Store.Driver)
		}
	}

	if c.Gateway.Session == "" {
		errs = append(errs, "gateway: session must not be empty")
	}
	if _, err := c.Gateway.prices(); err != nil {
		errs = append(errs, "gateway: "+err.Error())
	}

	if len(errs) != 0 {
		return errors.Wrap(exception.ErrConfigInvalid, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) CoreConfig() core.Config {
	return core.Config{
		ExpiryBackup:  c.Engine.ExpiryBackup,
		QueueCapacity: c.Engine.QueueCapacity,
	}
}

func (c *Config) ConnOption() conn.Option {
	return conn.Option{
		Driver:     strings.ToLower(c.Store.Driver),
		Host:       c.Store.Host,
		Port:       c.Store.Port,
		User:       c.Store.User,
		Password:   c.Store.Password,
		Database:   c.Store.Database,
		SSLMode:    c.Store.SSLMode,
		ConnString: c.Store.DSN,
	}
}

func (c *Config) RedisOption() conn.RedisOption {
	return conn.RedisOption{
		Addr:     c.Publisher.RedisAddr,
		Password: c.Publisher.RedisPassword,
		DB:       c.Publisher.RedisDB,
		PoolSize: c.Publisher.RedisPoolSize,
	}
}

func (c *Config) RedisConfig() publish.RedisConfig {
	return publish.RedisConfig{
		ChannelPrefix: c.Publisher.ChannelPrefix,
		BufferSize:    c.Publisher.BufferSize,
	}
}

// SimGatewayConfig resolves the decimal fields of the gateway section.
func (c *Config) SimGatewayConfig() (og.GatewayConfig, error) {
	prices, err := c.Gateway.prices()
	if err != nil {
		return og.GatewayConfig{}, err
	}
	cash := decimal.Zero
	if c.Gateway.CashBalance != "" {
		cash, err = decimal.NewFromString(c.Gateway.CashBalance)
		if err != nil {
			return og.GatewayConfig{}, errors.Wrapf(exception.ErrConfigInvalid, "cash_balance %q", c.Gateway.CashBalance)
		}
	}
	return og.GatewayConfig{
		Session:           c.Gateway.Session,
		ResendOnReconnect: c.Gateway.ResendOnReconnect,
		FillMarketOrders:  c.Gateway.FillMarketOrders,
		MarkPrices:        prices,
		Currency:          c.Gateway.Currency,
		CashBalance:       cash,
	}, nil
}

func (g GatewayConfig) prices() (map[schema.Symbol]schema.Price, error) {
	out := make(map[schema.Symbol]schema.Price, len(g.MarkPrices))
	for symbol, raw := range g.MarkPrices {
		p, err := decimal.NewFromString(raw)
		if err != nil || !p.IsPositive() {
			return nil, errors.Errorf("mark price %s: invalid value %q", symbol, raw)
		}
		out[schema.Symbol(symbol)] = p
	}
	return out, nil
}
