package config

import "time"

type Config struct {
	Service  *ServiceConfig
	Relay    *RelayConfig
	Redis    *RedisConfig
	Postgres *PostgresConfig
	Tracer   *TracerConfig
	Logger   *LoggerConfig
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RelayConfig struct {
	DebounceWindow time.Duration
	ReadLimit      int64
	SendBuffer     int
	WriteTimeout   time.Duration
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
	PresenceTTL  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type TracerConfig struct {
	Address string
	Enabled bool
}

type LoggerConfig struct {
	Level  string
	Format string
}
