package ops

import (
	"os"
	"strconv"
	"time"
)

func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Engine.QueueCapacity, "EXECUTION_ENGINE_QUEUE_CAPACITY")
	setBool(&cfg.Engine.ExpiryBackup, "EXECUTION_ENGINE_EXPIRY_BACKUP")
	setDuration(&cfg.Engine.StoreTimeout, "EXECUTION_ENGINE_STORE_TIMEOUT")

	setBool(&cfg.Store.Enabled, "EXECUTION_STORE_ENABLED")
	setStr(&cfg.Store.Driver, "EXECUTION_STORE_DRIVER")
	setStr(&cfg.Store.DSN, "EXECUTION_STORE_DSN")
	setStr(&cfg.Store.Host, "EXECUTION_STORE_HOST")
	setInt(&cfg.Store.Port, "EXECUTION_STORE_PORT")
	setStr(&cfg.Store.User, "EXECUTION_STORE_USER")
	setStr(&cfg.Store.Password, "EXECUTION_STORE_PASSWORD")
	setStr(&cfg.Store.Database, "EXECUTION_STORE_DATABASE")
	setStr(&cfg.Store.SSLMode, "EXECUTION_STORE_SSL_MODE")

	setStr(&cfg.Publisher.Kind, "EXECUTION_PUBLISHER_KIND")
	setStr(&cfg.Publisher.RedisAddr, "EXECUTION_PUBLISHER_REDIS_ADDR")
	setStr(&cfg.Publisher.RedisPassword, "EXECUTION_PUBLISHER_REDIS_PASSWORD")
	setInt(&cfg.Publisher.RedisDB, "EXECUTION_PUBLISHER_REDIS_DB")
	setStr(&cfg.Publisher.ChannelPrefix, "EXECUTION_PUBLISHER_CHANNEL_PREFIX")

	setStr(&cfg.Gateway.Session, "EXECUTION_GATEWAY_SESSION")
	setBool(&cfg.Gateway.ResendOnReconnect, "EXECUTION_GATEWAY_RESEND_ON_RECONNECT")
	setBool(&cfg.Gateway.FillMarketOrders, "EXECUTION_GATEWAY_FILL_MARKET_ORDERS")

	setStr(&cfg.Profiling.PyroscopeAddr, "EXECUTION_PROFILING_PYROSCOPE_ADDR")
	setStr(&cfg.Profiling.AppName, "EXECUTION_PROFILING_APP_NAME")

	setStr(&cfg.SnapshotPath, "EXECUTION_SNAPSHOT_PATH")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
