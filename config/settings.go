package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/clientengine/engine"
	"github.com/kbukum/clientengine/executor"
	"github.com/kbukum/clientengine/logger"
	"github.com/kbukum/clientengine/security"
	"github.com/kbukum/clientengine/validation"
)

// ExecutorName names the pool created for max_concurrent and its logger.
const ExecutorName = "engine-executor"

// Settings is the file and environment shape of a clientengine setup.
type Settings struct {
	Client  ClientSettings `yaml:"client" mapstructure:"client"`
	Logging logger.Config  `yaml:"logging" mapstructure:"logging"`
}

// ClientSettings describes one engine.
type ClientSettings struct {
	// ConnectionTimeout is the dial timeout. Unset keeps the transport default.
	ConnectionTimeout *time.Duration `yaml:"connection_timeout" mapstructure:"connection_timeout"`
	ReadTimeout       time.Duration  `yaml:"read_timeout" mapstructure:"read_timeout" validate:"min=0"`
	ConnectionTTL     time.Duration  `yaml:"connection_ttl" mapstructure:"connection_ttl" validate:"min=0"`
	FollowRedirects   bool           `yaml:"follow_redirects" mapstructure:"follow_redirects"`
	CookieManagement  bool           `yaml:"cookie_management" mapstructure:"cookie_management"`

	// MaxConcurrent bounds in-flight exchanges with a worker pool. Zero runs
	// each exchange on its own goroutine.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"min=0"`
	// QueueSize is the number of exchanges buffered while the pool is busy.
	QueueSize int `yaml:"queue_size" mapstructure:"queue_size" validate:"min=0"`

	Proxy *ProxySettings `yaml:"proxy" mapstructure:"proxy" validate:"omitempty"`
	TLS   *TLSSettings   `yaml:"tls" mapstructure:"tls" validate:"omitempty"`
}

// ProxySettings describes the forward proxy.
type ProxySettings struct {
	Host   string `yaml:"host" mapstructure:"host" validate:"required"`
	Port   int    `yaml:"port" mapstructure:"port" validate:"min=1,max=65535"`
	Scheme string `yaml:"scheme" mapstructure:"scheme" validate:"omitempty,oneof=http https"`
}

// TLSSettings is the file-based TLS context plus the SNI override.
type TLSSettings struct {
	security.TLSConfig `yaml:",inline" mapstructure:",squash"`

	SNIHostNames []string `yaml:"sni_host_names" mapstructure:"sni_host_names" validate:"dive,required"`
}

// DefaultSettings returns the settings used for keys absent from every source.
func DefaultSettings() Settings {
	s := Settings{
		Client: ClientSettings{
			FollowRedirects: true,
			QueueSize:       64,
		},
	}
	s.Logging.ApplyDefaults()
	return s
}

// ApplyDefaults normalises values before validation.
func (s *Settings) ApplyDefaults() {
	s.Logging.ApplyDefaults()
	if p := s.Client.Proxy; p != nil {
		p.Scheme = strings.ToLower(p.Scheme)
		if p.Scheme == "" {
			p.Scheme = "http"
		}
	}
}

// Validate checks the shape of the settings. Engine construction performs no
// validation of its own.
func (s *Settings) Validate() error {
	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := validation.Validate(s); err != nil {
		return err
	}
	if s.Client.TLS != nil {
		if err := s.Client.TLS.TLSConfig.Validate(); err != nil {
			return fmt.Errorf("config.client.tls: %w", err)
		}
	}
	return nil
}

// ToClientConfiguration converts the client settings into an engine
// configuration. Durations become milliseconds and an unset connection
// timeout becomes -1. When MaxConcurrent is positive a new executor.Pool is
// attached; the engine built from it owns the pool.
func (s *Settings) ToClientConfiguration() (engine.ClientConfiguration, error) {
	c := s.Client
	cfg := engine.ClientConfiguration{
		ConnectionTimeout:       -1,
		ReadTimeout:             c.ReadTimeout.Milliseconds(),
		ConnectionTTL:           c.ConnectionTTL.Milliseconds(),
		CookieManagementEnabled: c.CookieManagement,
		FollowRedirects:         c.FollowRedirects,
	}
	if c.ConnectionTimeout != nil {
		cfg.ConnectionTimeout = c.ConnectionTimeout.Milliseconds()
	}

	if c.Proxy != nil {
		cfg.ProxyHost = c.Proxy.Host
		cfg.ProxyPort = c.Proxy.Port
		cfg.ProxyScheme = c.Proxy.Scheme
	}

	if c.TLS != nil {
		tlsCfg, err := c.TLS.Build()
		if err != nil {
			return engine.ClientConfiguration{}, err
		}
		cfg.TLSConfig = tlsCfg
		cfg.SNIHostNames = append([]string(nil), c.TLS.SNIHostNames...)
	}

	if c.MaxConcurrent > 0 {
		cfg.Executor = executor.NewPool(executor.Config{
			Name:          ExecutorName,
			MaxConcurrent: c.MaxConcurrent,
			QueueSize:     c.QueueSize,
		})
	}
	return cfg, nil
}
