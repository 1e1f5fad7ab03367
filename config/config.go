package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

// MLServiceConfig describes the remote category-prediction service and the
// breaker that guards it. Timeout and RecoveryTimeout are duration strings
// ("10s", "1m") validated at load time.
type MLServiceConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	Timeout          string `mapstructure:"timeout"`
	Enabled          bool   `mapstructure:"enabled"`
	FallbackEnabled  bool   `mapstructure:"fallback_enabled"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	RecoveryTimeout  string `mapstructure:"recovery_timeout"`
}

type ReportServiceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
	Enabled bool   `mapstructure:"enabled"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type CorrectionsConfig struct {
	DBPath       string `mapstructure:"db_path"`
	RetrainEvery int    `mapstructure:"retrain_every"`
	RetrainMin   int    `mapstructure:"retrain_min"`
}

// AMQPConfig configures the retraining-trigger publisher. An empty URL
// disables publishing entirely.
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	MLService     MLServiceConfig     `mapstructure:"ml_service"`
	ReportService ReportServiceConfig `mapstructure:"report_service"`
	HealthCheck   HealthCheckConfig   `mapstructure:"health_check"`
	Corrections   CorrectionsConfig   `mapstructure:"corrections"`
	AMQP          AMQPConfig          `mapstructure:"amqp"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

func Load() (*Config, error) {
	// Start from a clean viper instance so repeated loads (tests, reloads)
	// re-run the config file search instead of reusing a cached path.
	viper.Reset()

	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("ml_service.base_url", "http://localhost:8001")
	viper.SetDefault("ml_service.timeout", "10s")
	viper.SetDefault("ml_service.enabled", true)
	viper.SetDefault("ml_service.fallback_enabled", true)
	viper.SetDefault("ml_service.failure_threshold", 3)
	viper.SetDefault("ml_service.recovery_timeout", "60s")
	viper.SetDefault("report_service.base_url", "http://localhost:8002")
	viper.SetDefault("report_service.timeout", "30s")
	viper.SetDefault("report_service.enabled", true)
	viper.SetDefault("health_check.interval", "30s")
	viper.SetDefault("corrections.db_path", "data/corrections.db")
	viper.SetDefault("corrections.retrain_every", 5)
	viper.SetDefault("corrections.retrain_min", 50)
	viper.SetDefault("amqp.url", "")
	viper.SetDefault("amqp.exchange", "ml-gateway")
	viper.SetDefault("amqp.queue", "retrain.triggers")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// RequestTimeout is the per-prediction deadline. Batch calls double it.
func (m MLServiceConfig) RequestTimeout() time.Duration {
	return parseDuration(m.Timeout, 10*time.Second)
}

// RecoveryWindow is how long an open circuit blocks calls before a trial.
func (m MLServiceConfig) RecoveryWindow() time.Duration {
	return parseDuration(m.RecoveryTimeout, 60*time.Second)
}

func (r ReportServiceConfig) RequestTimeout() time.Duration {
	return parseDuration(r.Timeout, 30*time.Second)
}

func (h HealthCheckConfig) Period() time.Duration {
	return parseDuration(h.Interval, 30*time.Second)
}

// parseDuration trusts Validate to have rejected malformed strings; the
// fallback only covers configs constructed in code without going through Load.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.MLService,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MLServiceConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MLServiceConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BaseURL,
						validation.When(mc.Enabled,
							validation.Required,
							validation.By(validateServerURL),
						),
					),
					validation.Field(&mc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&mc.RecoveryTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&mc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.ReportService,
			validation.By(func(value interface{}) error {
				rc, ok := value.(ReportServiceConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ReportServiceConfig")
				}
				if !rc.Enabled {
					return nil
				}
				return validation.ValidateStruct(&rc,
					validation.Field(&rc.BaseURL,
						validation.Required,
						validation.By(validateServerURL),
					),
					validation.Field(&rc.Timeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Corrections,
			validation.Required,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CorrectionsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CorrectionsConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.DBPath,
						validation.Required,
					),
					validation.Field(&cc.RetrainEvery,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&cc.RetrainMin,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.AMQP,
			validation.By(func(value interface{}) error {
				ac, ok := value.(AMQPConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a AMQPConfig")
				}
				if ac.URL == "" {
					return nil
				}
				return validation.ValidateStruct(&ac,
					validation.Field(&ac.Exchange, validation.Required),
					validation.Field(&ac.Queue, validation.Required),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "service URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
