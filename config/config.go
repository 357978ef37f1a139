// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	validLogLevels      = []string{"debug", "info", "warn", "error", "fatal"}
	validDatabaseTypes  = []string{"sqlite", "postgres", "mongo"}
	validMailTransports = []string{"smtp", "ses", "log"}
)

// ErrMissingSecret is returned when no JWT secret was configured. The caller
// is expected to print GenSecret() and stop.
var ErrMissingSecret = errors.New("no JWT secret provided")

type Config struct {
	App      App      `mapstructure:"app"`
	Host     Host     `mapstructure:"host"`
	JWT      JWT      `mapstructure:"jwt"`
	Reset    Reset    `mapstructure:"reset"`
	Database Database `mapstructure:"database"`
	Mail     Mail     `mapstructure:"mail"`
	Security Security `mapstructure:"security"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Host struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// SSLEnabled marks the auth_token cookie as secure
	SSLEnabled bool `mapstructure:"ssl_enabled"`
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Reset struct {
	Expiry          time.Duration `mapstructure:"expiry"`
	FrontendURL     string        `mapstructure:"frontend_url"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type Database struct {
	Driver string `mapstructure:"driver"`
	// DSN is a file path for sqlite, a connection string for postgres and
	// a mongodb:// URI for mongo
	DSN  string `mapstructure:"dsn"`
	Name string `mapstructure:"name"`
}

// Mail holds everything a notifier needs to deliver reset links. It is
// handed to the notifier constructor, nothing reads mail settings from the
// environment afterwards.
type Mail struct {
	Transport string        `mapstructure:"transport"`
	From      string        `mapstructure:"from"`
	Timeout   time.Duration `mapstructure:"timeout"`
	SMTP      SMTP          `mapstructure:"smtp"`
	SES       SES           `mapstructure:"ses"`
}

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type SES struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type Security struct {
	RateLimit int       `mapstructure:"rate_limit"`
	Turnstile Turnstile `mapstructure:"turnstile"`
}

type Turnstile struct {
	Enabled     bool   `mapstructure:"enabled"`
	SecretToken string `mapstructure:"secret_token"`
}

// GenSecret returns a random secret suitable for jwt.secret
func GenSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Load prepares everything config-related so that the app can
// start working. Values come from config.toml, then the environment,
// then defaults. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("auth-api", pflag.ContinueOnError)
	configPath := flags.String("config", ".", "Directory containing config.toml")
	flags.String("log-level", "", "Overrides app.log_level")

	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags, %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")

	v.BindEnv("host.port", "HOST_PORT", "PORT")
	v.BindEnv("host.cors_origins", "HOST_CORS", "FRONTEND_URL")
	v.BindEnv("host.ssl_enabled", "HOST_SSL_ENABLED")

	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.ttl", "JWT_TTL")

	v.BindEnv("reset.expiry", "RESET_EXPIRY")
	v.BindEnv("reset.frontend_url", "RESET_FRONTEND_URL", "FRONTEND_URL")
	v.BindEnv("reset.cleanup_interval", "RESET_CLEANUP_INTERVAL")

	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_DSN", "MONGODB_URI")
	v.BindEnv("database.name", "DATABASE_NAME")

	v.BindEnv("mail.transport", "MAIL_TRANSPORT")
	v.BindEnv("mail.from", "MAIL_FROM", "EMAIL_FROM")
	v.BindEnv("mail.timeout", "MAIL_TIMEOUT")
	v.BindEnv("mail.smtp.host", "SMTP_HOST")
	v.BindEnv("mail.smtp.port", "SMTP_PORT")
	v.BindEnv("mail.smtp.user", "SMTP_USER")
	v.BindEnv("mail.smtp.password", "SMTP_PASS")
	v.BindEnv("mail.ses.region", "SES_REGION", "AWS_REGION")
	v.BindEnv("mail.ses.access_key_id", "SES_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID")
	v.BindEnv("mail.ses.secret_access_key", "SES_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")
	v.BindEnv("security.turnstile.enabled", "TURNSTILE_ENABLED")
	v.BindEnv("security.turnstile.secret_token", "TURNSTILE_SECRET_TOKEN")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 5000)
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("host.ssl_enabled", false)

	v.SetDefault("jwt.ttl", 7*24*time.Hour)

	v.SetDefault("reset.expiry", 15*time.Minute)
	v.SetDefault("reset.frontend_url", "http://localhost:5173")
	v.SetDefault("reset.cleanup_interval", time.Hour)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")
	v.SetDefault("database.name", "auth")

	v.SetDefault("mail.transport", "smtp")
	v.SetDefault("mail.timeout", 10*time.Second)
	v.SetDefault("mail.smtp.port", 587)

	v.SetDefault("security.rate_limit", 5)
	v.SetDefault("security.turnstile.enabled", false)

	if err := v.ReadInConfig(); err != nil {
		// Running purely from the environment is fine
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if lvl, _ := flags.GetString("log-level"); lvl != "" {
		v.Set("app.log_level", lvl)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config, %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the config can actually run the service
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.JWT.Secret == "" {
		return ErrMissingSecret
	}

	if c.JWT.TTL <= 0 {
		return errors.New("jwt.ttl must be bigger than 0")
	}

	if c.Reset.Expiry <= 0 {
		return errors.New("reset.expiry must be bigger than 0")
	}

	if c.Reset.CleanupInterval <= 0 {
		return errors.New("reset.cleanup_interval must be bigger than 0")
	}

	if u, err := url.Parse(c.Reset.FrontendURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("reset.frontend_url must be an absolute URL")
	}

	if !slices.Contains(validDatabaseTypes, c.Database.Driver) {
		return errors.New("invalid database driver provided")
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn can't be empty")
	}

	if c.Database.Driver == "mongo" && c.Database.Name == "" {
		return errors.New("database.name can't be empty when using mongo")
	}

	if c.Security.RateLimit <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if c.Security.Turnstile.Enabled && c.Security.Turnstile.SecretToken == "" {
		return errors.New("turnstile secret token is missing")
	}

	return c.Mail.validate()
}

func (m *Mail) validate() error {
	if !slices.Contains(validMailTransports, m.Transport) {
		return errors.New("invalid mail transport provided")
	}

	if m.Timeout <= 0 {
		return errors.New("mail.timeout must be bigger than 0")
	}

	switch m.Transport {
	case "smtp":
		if m.SMTP.Host == "" {
			return errors.New("mail.smtp.host can't be empty")
		}
		if m.SMTP.Port <= 0 {
			return errors.New("invalid mail.smtp.port provided")
		}
		if m.From == "" {
			return errors.New("mail.from can't be empty")
		}
	case "ses":
		if m.SES.Region == "" {
			return errors.New("mail.ses.region can't be empty")
		}
		if m.From == "" {
			return errors.New("mail.from can't be empty")
		}
	}

	return nil
}
