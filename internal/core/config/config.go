package config

import (
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
)

// Configuration is the settings snapshot loaded once at startup.
// It is passed by value; nothing mutates it after Load returns.
type Configuration struct {
	// Secrets holds values used to authenticate with external services.
	Secrets Secrets `mapstructure:"secrets"`
	// Services holds the addresses of the services this process talks to.
	Services Services `mapstructure:"services"`
	// InitializationBackoff drives connecting to services during startup.
	InitializationBackoff backoff.Spec `mapstructure:"initialization_backoff"`
	// RPCBackoff drives steady-state RPC calls to other services.
	RPCBackoff backoff.Spec `mapstructure:"rpc_backoff"`
	// IndexingFeature is the feature name that enables indexing on a guild.
	IndexingFeature string `mapstructure:"indexing_feature"`
	// GatewayQueue holds options for publishing to the gateway queue.
	GatewayQueue GatewayQueue `mapstructure:"gateway_queue"`
	// GuildUptimeDebounceDelay groups consecutive guild uptime events.
	GuildUptimeDebounceDelay time.Duration `mapstructure:"guild_uptime_debounce_delay"`
	// FeatureGateBatchCheckSize is how many guilds are checked per feature-gate call.
	FeatureGateBatchCheckSize int `mapstructure:"feature_gate_batch_check_size"`
	// ActiveGuildEvictionDuration is how long offline guilds stay in the active cache.
	ActiveGuildEvictionDuration time.Duration `mapstructure:"active_guild_eviction_duration"`
	// ActiveGuildsPollInterval is the wait between feature-gate polls for guild status.
	ActiveGuildsPollInterval time.Duration `mapstructure:"active_guilds_poll_interval"`

	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// Secrets holds sensitive strings. Empty values are caught by the consumer.
type Secrets struct {
	DiscordToken string `mapstructure:"discord_token"`
}

// Services holds endpoint addresses of downstream services.
type Services struct {
	// GatewayQueue is the full AMQP URL of the gateway queue.
	GatewayQueue string `mapstructure:"gateway_queue"`
	// FeatureGate is the host:port of the feature-gate service.
	FeatureGate string `mapstructure:"feature_gate"`
	// LogsUptime is the host:port of the logs uptime service.
	LogsUptime string `mapstructure:"logs_uptime"`
}

// GatewayQueue holds options for the queue events are published to.
type GatewayQueue struct {
	Exchange       string         `mapstructure:"exchange"`
	QueueName      string         `mapstructure:"queue_name"`
	RoutingKey     string         `mapstructure:"routing_key"`
	ConnectionPool ConnectionPool `mapstructure:"connection_pool"`
}

// ConnectionPool sizes the pool in front of the gateway queue connection.
type ConnectionPool struct {
	MaxSize  int          `mapstructure:"max_size"`
	Timeouts PoolTimeouts `mapstructure:"timeouts"`
}

// PoolTimeouts are zero when unbounded.
type PoolTimeouts struct {
	Wait    time.Duration `mapstructure:"wait"`
	Create  time.Duration `mapstructure:"create"`
	Recycle time.Duration `mapstructure:"recycle"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`   // empty = stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig holds the health and metrics HTTP server settings.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}
