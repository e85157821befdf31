package config

import (
	"time"

	"github.com/johnyburd/autbot/internal/core/backoff"
	"gopkg.in/yaml.v2"
)

const redacted = "[redacted]"

// Redacted returns a copy with secret values masked.
func (c Configuration) Redacted() Configuration {
	if c.Secrets.DiscordToken != "" {
		c.Secrets.DiscordToken = redacted
	}
	return c
}

// MarshalYAML renders the snapshot with the same keys and duration format
// the loader accepts, so the output can be fed back to Load.
func (c Configuration) MarshalYAML() (interface{}, error) {
	return yaml.MapSlice{
		{Key: "secrets", Value: yaml.MapSlice{
			{Key: "discord_token", Value: c.Secrets.DiscordToken},
		}},
		{Key: "services", Value: yaml.MapSlice{
			{Key: "gateway_queue", Value: c.Services.GatewayQueue},
			{Key: "feature_gate", Value: c.Services.FeatureGate},
			{Key: "logs_uptime", Value: c.Services.LogsUptime},
		}},
		{Key: "initialization_backoff", Value: backoffYAML(c.InitializationBackoff)},
		{Key: "rpc_backoff", Value: backoffYAML(c.RPCBackoff)},
		{Key: "indexing_feature", Value: c.IndexingFeature},
		{Key: "gateway_queue", Value: yaml.MapSlice{
			{Key: "exchange", Value: c.GatewayQueue.Exchange},
			{Key: "queue_name", Value: c.GatewayQueue.QueueName},
			{Key: "routing_key", Value: c.GatewayQueue.RoutingKey},
			{Key: "connection_pool", Value: yaml.MapSlice{
				{Key: "max_size", Value: c.GatewayQueue.ConnectionPool.MaxSize},
				{Key: "timeouts", Value: yaml.MapSlice{
					{Key: "wait", Value: durationYAML(c.GatewayQueue.ConnectionPool.Timeouts.Wait)},
					{Key: "create", Value: durationYAML(c.GatewayQueue.ConnectionPool.Timeouts.Create)},
					{Key: "recycle", Value: durationYAML(c.GatewayQueue.ConnectionPool.Timeouts.Recycle)},
				}},
			}},
		}},
		{Key: "guild_uptime_debounce_delay", Value: durationYAML(c.GuildUptimeDebounceDelay)},
		{Key: "feature_gate_batch_check_size", Value: c.FeatureGateBatchCheckSize},
		{Key: "active_guild_eviction_duration", Value: durationYAML(c.ActiveGuildEvictionDuration)},
		{Key: "active_guilds_poll_interval", Value: durationYAML(c.ActiveGuildsPollInterval)},
		{Key: "logging", Value: yaml.MapSlice{
			{Key: "level", Value: c.Logging.Level},
			{Key: "format", Value: c.Logging.Format},
			{Key: "file", Value: c.Logging.File},
			{Key: "max_size_mb", Value: c.Logging.MaxSizeMB},
			{Key: "max_backups", Value: c.Logging.MaxBackups},
			{Key: "max_age_days", Value: c.Logging.MaxAgeDays},
		}},
		{Key: "server", Value: yaml.MapSlice{
			{Key: "port", Value: c.Server.Port},
		}},
	}, nil
}

func backoffYAML(s backoff.Spec) yaml.MapSlice {
	return yaml.MapSlice{
		{Key: "initial_interval", Value: durationYAML(s.InitialInterval)},
		{Key: "max_interval", Value: durationYAML(s.MaxInterval)},
		{Key: "max_elapsed", Value: durationYAML(s.MaxElapsed)},
		{Key: "multiplier", Value: s.Multiplier},
	}
}

func durationYAML(d time.Duration) string {
	return d.String()
}
