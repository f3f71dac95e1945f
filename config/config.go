package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cody-wang-cb/rollup-boost/client/engineapi"
	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks"
	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks/inbound"
	"github.com/cody-wang-cb/rollup-boost/engine/flashblocks/outbound"
	"github.com/cody-wang-cb/rollup-boost/engine/rpc"
)

// EnvPrefix is the prefix of environment variables overriding configuration values,
// e.g. ROLLUP_BOOST_ENGINE_URL overrides --engine-url.
const EnvPrefix = "ROLLUP_BOOST"

const (
	// All constant strings are used for CLI flag names and corresponding keys for config values.
	configFile = "config"
	// logging
	logLevel  = "log-level"
	logFormat = "log-format"
	// json-rpc server
	rpcListenAddress = "rpc-listen-address"
	rpcCORSOrigins   = "rpc-cors-origins"
	// execution engine client
	engineURL                   = "engine-url"
	engineJWTSecret             = "engine-jwt-secret"
	engineTimeout               = "engine-timeout"
	engineBreakerMaxFailures    = "engine-breaker-max-failures"
	engineBreakerRestoreTimeout = "engine-breaker-restore-timeout"
	// upstream flashblocks stream
	flashblocksURL                  = "flashblocks-url"
	flashblocksRetryDelay           = "flashblocks-retry-delay"
	flashblocksMaxRetryDelay        = "flashblocks-max-retry-delay"
	flashblocksReadTimeout          = "flashblocks-read-timeout"
	flashblocksInboundQueueCapacity = "flashblocks-inbound-queue-capacity"
	// outbound flashblocks publisher
	outboundListenAddress        = "outbound-listen-address"
	outboundSubscriberBufferSize = "outbound-subscriber-buffer-size"
	outboundMaxSubscribers       = "outbound-max-subscribers"
	outboundConnectionsPerSecond = "outbound-connections-per-second"
	// metrics
	metricsEnabled       = "metrics-enabled"
	metricsListenAddress = "metrics-listen-address"
)

// Config is the configuration of a rollup-boost node.
type Config struct {
	LogLevel  string `mapstructure:"log-level" validate:"oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=json text"`

	RPCListenAddress string   `mapstructure:"rpc-listen-address" validate:"hostname_port"`
	RPCCORSOrigins   []string `mapstructure:"rpc-cors-origins" validate:"dive,required"`

	EngineURL                   string        `mapstructure:"engine-url" validate:"required,url"`
	EngineJWTSecret             string        `mapstructure:"engine-jwt-secret" validate:"required,file"`
	EngineTimeout               time.Duration `mapstructure:"engine-timeout" validate:"gt=0"`
	EngineBreakerMaxFailures    uint32        `mapstructure:"engine-breaker-max-failures" validate:"gt=0"`
	EngineBreakerRestoreTimeout time.Duration `mapstructure:"engine-breaker-restore-timeout" validate:"gt=0"`

	FlashblocksURL                  string        `mapstructure:"flashblocks-url" validate:"required,url"`
	FlashblocksRetryDelay           time.Duration `mapstructure:"flashblocks-retry-delay" validate:"gt=0"`
	FlashblocksMaxRetryDelay        time.Duration `mapstructure:"flashblocks-max-retry-delay" validate:"gtefield=FlashblocksRetryDelay"`
	FlashblocksReadTimeout          time.Duration `mapstructure:"flashblocks-read-timeout" validate:"gt=0"`
	FlashblocksInboundQueueCapacity uint          `mapstructure:"flashblocks-inbound-queue-capacity" validate:"gt=0"`

	OutboundListenAddress        string  `mapstructure:"outbound-listen-address" validate:"hostname_port"`
	OutboundSubscriberBufferSize int     `mapstructure:"outbound-subscriber-buffer-size" validate:"gt=0"`
	OutboundMaxSubscribers       uint    `mapstructure:"outbound-max-subscribers" validate:"gt=0"`
	OutboundConnectionsPerSecond float64 `mapstructure:"outbound-connections-per-second" validate:"gte=0"`

	MetricsEnabled       bool   `mapstructure:"metrics-enabled"`
	MetricsListenAddress string `mapstructure:"metrics-listen-address" validate:"hostname_port"`
}

// DefaultConfig returns the configuration used for every value not set by a flag,
// an environment variable or the config file.
func DefaultConfig() *Config {
	engineConfig := engineapi.DefaultConfig()
	inboundConfig := inbound.DefaultConfig()
	outboundConfig := outbound.DefaultConfig()

	return &Config{
		LogLevel:  "info",
		LogFormat: "json",

		RPCListenAddress: rpc.DefaultListenAddress,

		EngineURL:                   "http://localhost:8551",
		EngineTimeout:               engineConfig.Timeout,
		EngineBreakerMaxFailures:    engineConfig.BreakerMaxFailures,
		EngineBreakerRestoreTimeout: engineConfig.BreakerRestoreTimeout,

		FlashblocksURL:                  "ws://localhost:1112",
		FlashblocksRetryDelay:           inboundConfig.RetryDelay,
		FlashblocksMaxRetryDelay:        inboundConfig.MaxRetryDelay,
		FlashblocksReadTimeout:          inboundConfig.ReadTimeout,
		FlashblocksInboundQueueCapacity: flashblocks.DefaultInboundQueueCapacity,

		OutboundListenAddress:        outboundConfig.ListenAddress,
		OutboundSubscriberBufferSize: outboundConfig.SubscriberBufferSize,
		OutboundMaxSubscribers:       outboundConfig.MaxSubscribers,
		OutboundConnectionsPerSecond: outboundConfig.ConnectionsPerSecond,

		MetricsEnabled:       true,
		MetricsListenAddress: "0.0.0.0:9090",
	}
}

// InitializeFlags initializes all CLI flags of the node on the provided pflag set, using the
// given config for their default values.
func InitializeFlags(flags *pflag.FlagSet, config *Config) {
	flags.String(configFile, "", "path to a yaml, toml or json config file")
	flags.String(logLevel, config.LogLevel, "log level (trace|debug|info|warn|error)")
	flags.String(logFormat, config.LogFormat, "log format (json|text)")

	flags.String(rpcListenAddress, config.RPCListenAddress, "address the engine API is served on for the consensus client")
	flags.StringSlice(rpcCORSOrigins, config.RPCCORSOrigins, "comma separated origins browsers may call the engine API from")

	flags.String(engineURL, config.EngineURL, "authenticated engine API endpoint of the execution engine")
	flags.String(engineJWTSecret, config.EngineJWTSecret, "path to the hex encoded jwt secret shared with the execution engine")
	flags.Duration(engineTimeout, config.EngineTimeout, "timeout of a single engine API request")
	flags.Uint32(engineBreakerMaxFailures, config.EngineBreakerMaxFailures, "consecutive failed engine API requests after which requests fail fast")
	flags.Duration(engineBreakerRestoreTimeout, config.EngineBreakerRestoreTimeout, "how long engine API requests fail fast before the engine is tried again")

	flags.String(flashblocksURL, config.FlashblocksURL, "websocket endpoint of the block builder's flashblocks stream")
	flags.Duration(flashblocksRetryDelay, config.FlashblocksRetryDelay, "initial delay between attempts to connect to the flashblocks stream. This delay increases exponentially with the number of subsequent failures.")
	flags.Duration(flashblocksMaxRetryDelay, config.FlashblocksMaxRetryDelay, "maximum delay between attempts to connect to the flashblocks stream")
	flags.Duration(flashblocksReadTimeout, config.FlashblocksReadTimeout, "how long the flashblocks stream may stay silent before reconnecting")
	flags.Uint(flashblocksInboundQueueCapacity, config.FlashblocksInboundQueueCapacity, "maximum number of received flashblocks waiting to be processed")

	flags.String(outboundListenAddress, config.OutboundListenAddress, "address flashblocks subscribers connect to")
	flags.Int(outboundSubscriberBufferSize, config.OutboundSubscriberBufferSize, "number of flashblocks buffered per subscriber before it is disconnected")
	flags.Uint(outboundMaxSubscribers, config.OutboundMaxSubscribers, "maximum number of connected flashblocks subscribers")
	flags.Float64(outboundConnectionsPerSecond, config.OutboundConnectionsPerSecond, "maximum rate of new flashblocks subscriptions, 0 disables the limit")

	flags.Bool(metricsEnabled, config.MetricsEnabled, "serve prometheus metrics")
	flags.String(metricsListenAddress, config.MetricsListenAddress, "address prometheus metrics are served on")
}

// NewViper creates a config store backed by the given flags, the ROLLUP_BOOST_ environment
// variables and, if the config flag is set, a config file. Flags take precedence over
// environment variables, which take precedence over the config file.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	err := v.BindPFlags(flags)
	if err != nil {
		return nil, fmt.Errorf("could not bind flags: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	path := v.GetString(configFile)
	if path != "" {
		v.SetConfigFile(path)
		err = v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("could not read config file %s: %w", path, err)
		}
	}
	return v, nil
}

// Load decodes and validates the config held by the given store.
func Load(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	err := v.Unmarshal(config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks every configuration value.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EngineClientConfig returns the configuration of the execution engine client.
func (c *Config) EngineClientConfig() (engineapi.Config, error) {
	secret, err := engineapi.ReadJWTSecret(c.EngineJWTSecret)
	if err != nil {
		return engineapi.Config{}, err
	}

	config := engineapi.DefaultConfig()
	config.URL = c.EngineURL
	config.JWTSecret = secret
	config.Timeout = c.EngineTimeout
	config.BreakerMaxFailures = c.EngineBreakerMaxFailures
	config.BreakerRestoreTimeout = c.EngineBreakerRestoreTimeout
	return config, nil
}

// FlashblocksConfig returns the configuration of the flashblocks engine.
func (c *Config) FlashblocksConfig() flashblocks.Config {
	return flashblocks.Config{
		InboundQueueCapacity: c.FlashblocksInboundQueueCapacity,
	}
}

// InboundConfig returns the configuration of the upstream flashblocks stream client.
func (c *Config) InboundConfig() inbound.Config {
	config := inbound.DefaultConfig()
	config.URL = c.FlashblocksURL
	config.RetryDelay = c.FlashblocksRetryDelay
	config.MaxRetryDelay = c.FlashblocksMaxRetryDelay
	config.ReadTimeout = c.FlashblocksReadTimeout
	return config
}

// OutboundConfig returns the configuration of the flashblocks publisher.
func (c *Config) OutboundConfig() outbound.Config {
	return outbound.Config{
		ListenAddress:        c.OutboundListenAddress,
		SubscriberBufferSize: c.OutboundSubscriberBufferSize,
		MaxSubscribers:       c.OutboundMaxSubscribers,
		ConnectionsPerSecond: c.OutboundConnectionsPerSecond,
	}
}

// RPCConfig returns the configuration of the JSON-RPC server.
func (c *Config) RPCConfig() rpc.Config {
	return rpc.Config{
		ListenAddress:      c.RPCListenAddress,
		CORSAllowedOrigins: c.RPCCORSOrigins,
	}
}
