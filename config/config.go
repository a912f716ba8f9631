package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

var defaultProductionOrigins = []string{
	"https://pawsitivepeace.co.uk",
	"https://www.pawsitivepeace.co.uk",
}

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:3000"`
	FrontendDir string `env:"FRONTEND_DIR" envDefault:"frontend"`

	StripeSecretKey      string        `env:"STRIPE_SECRET_KEY"`
	StripePublishableKey string        `env:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret  string        `env:"STRIPE_WEBHOOK_SECRET"`
	StripeAPIBaseURL     string        `env:"STRIPE_API_BASE_URL"`
	ProviderTimeout      time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"20s"`
	BreakerMinRequests   uint32        `env:"PROVIDER_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerOpenTimeout   time.Duration `env:"PROVIDER_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	EmailJSPublicKey     string        `env:"EMAILJS_PUBLIC_KEY"`

	Currency           string `env:"CHECKOUT_CURRENCY" envDefault:"gbp"`
	ProductDescription string `env:"PRODUCT_DESCRIPTION" envDefault:"The Pupsicle - Dog Toy"`
	StoreName          string `env:"STORE_NAME" envDefault:"Pawsitive Peace"`
	SupportEmail       string `env:"SUPPORT_EMAIL" envDefault:"hello@pawsitivepeace.co.uk"`

	SMTPHost    string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort    string        `env:"SMTP_PORT" envDefault:"587"`
	EmailUser   string        `env:"EMAIL_USER"`
	EmailPass   string        `env:"EMAIL_PASS"`
	SMTPTimeout time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`

	AllowedOrigins         []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	RateLimitWindowMinutes int           `env:"RATE_LIMIT_WINDOW_MINUTES" envDefault:"15"`
	RateLimitMax           int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	CSRFRateLimitMax       int           `env:"CSRF_RATE_LIMIT_MAX" envDefault:"10"`
	CSRFRateLimitWindow    time.Duration `env:"CSRF_RATE_LIMIT_WINDOW" envDefault:"1m"`
	CSRFTokenTTL           time.Duration `env:"CSRF_TOKEN_TTL" envDefault:"15m"`
	CSRFSweepInterval      time.Duration `env:"CSRF_SWEEP_INTERVAL" envDefault:"5m"`
	TokenStore             string        `env:"TOKEN_STORE" envDefault:"memory"`
	RedisURL               string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	EnableTestEndpoints bool   `env:"ENABLE_TEST_ENDPOINTS" envDefault:"false"`
	AdminJWTSecret      string `env:"ADMIN_JWT_SECRET"`

	OrderEventsTopicARN string `env:"ORDER_EVENTS_TOPIC_ARN"`
	AWSEndpoint         string `env:"AWS_ENDPOINT"`
	AWSUseSecrets       bool   `env:"AWS_USE_SECRETS" envDefault:"false"`
	SecretsPrefix       string `env:"SECRETS_PREFIX" envDefault:"storefront/"`
	CloudWatchEnabled   bool   `env:"CLOUDWATCH_ENABLED" envDefault:"false"`
	CloudWatchNamespace string `env:"CLOUDWATCH_NAMESPACE" envDefault:"Storefront"`
	CloudWatchLogGroup  string `env:"CLOUDWATCH_LOG_GROUP" envDefault:"/storefront/api"`

	NotifyWorkers   int           `env:"NOTIFY_WORKERS" envDefault:"2"`
	NotifyQueueSize int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"64"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from the current environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseFrom builds a Config from an explicit variable map. Used by tests so the
// process environment is never mutated.
func ParseFrom(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))
	c.TokenStore = strings.ToLower(strings.TrimSpace(c.TokenStore))

	origins := make([]string, 0, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 && c.IsProduction() {
		origins = append(origins, defaultProductionOrigins...)
	}
	c.AllowedOrigins = origins

	switch {
	case c.Currency == "":
		return fmt.Errorf("CHECKOUT_CURRENCY must not be empty")
	case c.TokenStore != "memory" && c.TokenStore != "redis":
		return fmt.Errorf("TOKEN_STORE must be memory or redis, got %q", c.TokenStore)
	case c.CSRFTokenTTL <= 0:
		return fmt.Errorf("CSRF_TOKEN_TTL must be positive")
	case c.CSRFSweepInterval <= 0:
		return fmt.Errorf("CSRF_SWEEP_INTERVAL must be positive")
	case c.RateLimitWindowMinutes <= 0 || c.RateLimitMax <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW_MINUTES and RATE_LIMIT_MAX must be positive")
	case c.CSRFRateLimitMax <= 0 || c.CSRFRateLimitWindow <= 0:
		return fmt.Errorf("CSRF_RATE_LIMIT_MAX and CSRF_RATE_LIMIT_WINDOW must be positive")
	case c.NotifyWorkers <= 0 || c.NotifyQueueSize <= 0:
		return fmt.Errorf("NOTIFY_WORKERS and NOTIFY_QUEUE_SIZE must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// TestEndpointsEnabled reports whether the diagnostic endpoints are reachable.
// They are always on outside production and opt-in inside it.
func (c *Config) TestEndpointsEnabled() bool {
	return !c.IsProduction() || c.EnableTestEndpoints
}

func (c *Config) EmailConfigured() bool { return c.EmailUser != "" && c.EmailPass != "" }

func (c *Config) StripeConfigured() bool { return c.StripeSecretKey != "" }

// AWSEnabled reports whether any AWS integration needs an SDK config.
func (c *Config) AWSEnabled() bool {
	return c.AWSUseSecrets || c.CloudWatchEnabled || c.OrderEventsTopicARN != ""
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}

// SecretGetter is satisfied by the Secrets Manager client in pkg/aws.
type SecretGetter interface {
	GetSecrets(ctx context.Context, names []string) (map[string]string, error)
}

// ApplySecrets overrides credentials with values held in the secret store.
// Missing secrets keep the environment value; the names of the secrets that
// could not be read are returned so the caller can log them.
func ApplySecrets(ctx context.Context, cfg *Config, sm SecretGetter) []string {
	targets := []struct {
		name string
		dst  *string
	}{
		{"STRIPE_SECRET_KEY", &cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret},
		{"EMAIL_PASS", &cfg.EmailPass},
		{"ADMIN_JWT_SECRET", &cfg.AdminJWTSecret},
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = cfg.SecretsPrefix + t.name
	}
	// A failed batch still returns whatever was cached.
	values, _ := sm.GetSecrets(ctx, names)

	var missing []string
	for i, t := range targets {
		v := values[names[i]]
		if v == "" {
			missing = append(missing, names[i])
			continue
		}
		*t.dst = v
	}
	return missing
}
