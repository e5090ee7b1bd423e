package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                   string        `mapstructure:"PORT"`
	Env                    string        `mapstructure:"ENV"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer             string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience           string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL            string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey         string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins            []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS           float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst         int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit              string        `mapstructure:"BODY_LIMIT"`
	ClinicServiceURL       string        `mapstructure:"CLINIC_SERVICE_URL"`
	DepartmentServiceURL   string        `mapstructure:"DEPARTMENT_SERVICE_URL"`
	DirectoryCacheSize     int           `mapstructure:"DIRECTORY_CACHE_SIZE"`
	DirectoryCacheTTL      time.Duration `mapstructure:"DIRECTORY_CACHE_TTL"`
	AMQPURL                string        `mapstructure:"AMQP_URL"`
	AMQPExchange           string        `mapstructure:"AMQP_EXCHANGE"`
	PhoneDefaultRegion     string        `mapstructure:"PHONE_DEFAULT_REGION"`
	ProfilePictureMaxBytes int           `mapstructure:"PROFILE_PICTURE_MAX_BYTES"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"CLINIC_SERVICE_URL", "DEPARTMENT_SERVICE_URL", "DIRECTORY_CACHE_SIZE", "DIRECTORY_CACHE_TTL",
	"AMQP_URL", "AMQP_EXCHANGE", "PHONE_DEFAULT_REGION", "PROFILE_PICTURE_MAX_BYTES",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "4M")
	v.SetDefault("DIRECTORY_CACHE_SIZE", 512)
	v.SetDefault("DIRECTORY_CACHE_TTL", "5m")
	v.SetDefault("AMQP_EXCHANGE", "doctor.events")
	v.SetDefault("PHONE_DEFAULT_REGION", "IN")
	v.SetDefault("PROFILE_PICTURE_MAX_BYTES", 1<<20)

	// Unmarshal only sees env vars that are bound explicitly.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EventsEnabled reports whether domain events go to a broker.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks that the configuration is safe to run. Outside
// development a JWT issuer or signing key must be configured, since the
// development auth middleware is the only other way in.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENV must be \"development\", \"staging\" or \"production\", got %q", c.Env)
	}
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
	}
	if c.DBMinConns < 0 || c.DBMaxConns <= 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must be between 0 and DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.ProfilePictureMaxBytes <= 0 {
		return fmt.Errorf("PROFILE_PICTURE_MAX_BYTES must be positive")
	}
	return nil
}
