// Package config loads fixcli's connection configuration from a YAML
// file and environment variables (FIX44_* prefix), the environment taking
// precedence over the file; built-in defaults fill only the fields both
// leave unset.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of knobs a single fixcli connection needs:
// session identity and timing, storage backend selection, and the
// optional admin/broker/metrics collaborators.
type Config struct {
	// Connection names this configuration: it prefixes the badger
	// message store keys, scopes the minted auth token, and names the
	// default broker subjects. The .sid sequence-number file is named
	// after SenderCompID and TargetCompID, not after Connection.
	Connection string `mapstructure:"connection"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	BeginString  string `mapstructure:"begin_string"`
	SenderCompID string `mapstructure:"sender_comp_id"`
	TargetCompID string `mapstructure:"target_comp_id"`

	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	HeartBtInt     int           `mapstructure:"heartbeat_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	LogoutTimeout  time.Duration `mapstructure:"logout_timeout"`
	ResetOnLogon   bool          `mapstructure:"reset_on_logon"`

	// MessageStore selects the persistence backend for sent/received
	// messages: "memory" or "badger". Default: "memory".
	MessageStore string `mapstructure:"message_store"`
	// StoreDir is the badger data directory, used when MessageStore
	// is "badger".
	StoreDir string `mapstructure:"store_dir"`
	// SidDir holds the persisted sequence-number file for this
	// connection. Default: current directory.
	SidDir string `mapstructure:"sid_dir"`

	// PipelineApps names, in P0-to-Pn order, the built-in pipeline
	// processors to install ahead of the application sink. Only
	// "logging" is currently recognized.
	PipelineApps []string `mapstructure:"pipeline_apps"`

	Admin  AdminConfig  `mapstructure:"admin"`
	Broker BrokerConfig `mapstructure:"broker"`
	Auth   AuthConfig   `mapstructure:"auth"`

	// MetricsEnabled starts a Prometheus /metrics endpoint alongside
	// the admin server.
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
}

// AdminConfig configures the REST admin surface (internal/admin).
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// BrokerConfig configures the NATS pub/sub collaborator (internal/broker).
type BrokerConfig struct {
	URL             string `mapstructure:"url"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	OutboundSubject string `mapstructure:"outbound_subject"`
	InjectSubject   string `mapstructure:"inject_subject"`
}

// AuthConfig configures bearer-token protection of the admin surface
// (internal/auth). Secret must be at least 32 characters when Enabled.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
}

// ApplyDefaults fills in zero-valued fields with this package's defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Connection == "" {
		cfg.Connection = "default"
	}
	if cfg.BeginString == "" {
		cfg.BeginString = "FIX.4.4"
	}
	if cfg.HeartBtInt == 0 {
		cfg.HeartBtInt = 30
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.LogoutTimeout == 0 {
		cfg.LogoutTimeout = 2 * time.Second
	}
	if cfg.MessageStore == "" {
		cfg.MessageStore = "memory"
	}
	if cfg.Admin.Addr == "" {
		cfg.Admin.Addr = "127.0.0.1:8090"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = "127.0.0.1:9090"
	}
	if cfg.Broker.OutboundSubject == "" {
		cfg.Broker.OutboundSubject = fmt.Sprintf("fix44.%s.out", cfg.Connection)
	}
	if cfg.Broker.InjectSubject == "" {
		cfg.Broker.InjectSubject = fmt.Sprintf("fix44.%s.inject", cfg.Connection)
	}
}

// Validate checks the fields Load cannot sensibly default.
func Validate(cfg *Config) error {
	if cfg.Host == "" {
		return fmt.Errorf("config: \"host\" is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("config: \"port\" is required")
	}
	if cfg.SenderCompID == "" {
		return fmt.Errorf("config: \"sender_comp_id\" is required")
	}
	if cfg.TargetCompID == "" {
		return fmt.Errorf("config: \"target_comp_id\" is required")
	}
	switch cfg.MessageStore {
	case "memory", "badger":
	default:
		return fmt.Errorf("config: unknown message_store %q, want \"memory\" or \"badger\"", cfg.MessageStore)
	}
	if cfg.MessageStore == "badger" && cfg.StoreDir == "" {
		return fmt.Errorf("config: \"store_dir\" is required when message_store is \"badger\"")
	}
	if cfg.Auth.Enabled && len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("config: \"auth.secret\" must be at least 32 characters when auth is enabled")
	}
	return nil
}

// Load reads configPath (if non-empty) plus FIX44_*-prefixed environment
// overrides into a Config, applies defaults for anything still unset,
// then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FIX44")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
