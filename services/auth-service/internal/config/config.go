package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/mangahub-api/shared/cache"
	"github.com/vasapolrittideah/mangahub-api/shared/database"
)

const EnvProduction = "production"

// AuthServiceConfig holds the configuration of the auth service.
type AuthServiceConfig struct {
	Env         string `env:"APP_ENV"       envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME"  envDefault:"auth-service"`
	LogLevel    string `env:"LOG_LEVEL"     envDefault:"info"`
	HTTPPort    string `env:"HTTP_PORT"     envDefault:"8080"`
	GRPCPort    string `env:"GRPC_PORT"`
	BasePath    string `env:"API_BASE_PATH" envDefault:"/api/v1"`
	FrontendURL string `env:"FRONTEND_URL"  envDefault:"http://localhost:3000"`
	BackendURL  string `env:"BACKEND_URL"   envDefault:"http://localhost:8080"`
	ConsulAddr  string `env:"CONSUL_ADDR"`

	PasswordHashAlgorithm string `env:"PASSWORD_HASH_ALGORITHM" envDefault:"bcrypt"`

	Token TokenConfig
	OAuth OAuthConfig
	Mongo database.Config
	Redis cache.Config
}

// TokenConfig holds the JWT settings.
type TokenConfig struct {
	AccessTokenSecret     string        `env:"JWT_ACCESS_SECRET"`
	RefreshTokenSecret    string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenExpiresIn  time.Duration `env:"JWT_ACCESS_EXPIRES_IN"  envDefault:"15m"`
	RefreshTokenExpiresIn time.Duration `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"168h"`
	Issuer                string        `env:"JWT_ISSUER"             envDefault:"mangahub"`
}

// OAuthConfig holds the federated login settings. A provider with an empty
// client id is disabled.
type OAuthConfig struct {
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	FacebookAppID      string        `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret  string        `env:"FACEBOOK_APP_SECRET"`
	Timeout            time.Duration `env:"OAUTH_TIMEOUT" envDefault:"15s"`
}

// NewAuthServiceConfig parses the configuration from environment variables.
func NewAuthServiceConfig() (*AuthServiceConfig, error) {
	cfg, err := env.ParseAsWithOptions[AuthServiceConfig](env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseDuration,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// parseDuration accepts time.ParseDuration syntax plus a whole-day form such
// as "7d".
func parseDuration(value string) (any, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid duration %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(value)
}

// IsProduction reports whether the service runs with production settings.
func (c *AuthServiceConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// APIURL returns the public URL of a path under the versioned base path.
func (c *AuthServiceConfig) APIURL(path string) string {
	return strings.TrimRight(c.BackendURL, "/") + c.BasePath + path
}

func (c *AuthServiceConfig) validate() error {
	if c.Token.AccessTokenSecret == "" {
		return fmt.Errorf("missing JWT_ACCESS_SECRET environment variable")
	}
	if c.Token.RefreshTokenSecret == "" {
		return fmt.Errorf("missing JWT_REFRESH_SECRET environment variable")
	}
	if c.Token.AccessTokenExpiresIn <= 0 || c.Token.RefreshTokenExpiresIn <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.FrontendURL == "" {
		return fmt.Errorf("missing FRONTEND_URL environment variable")
	}
	if !strings.HasPrefix(c.BasePath, "/") {
		return fmt.Errorf("API_BASE_PATH must start with '/'")
	}

	return nil
}
