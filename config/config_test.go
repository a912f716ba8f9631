package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecrets(_ context.Context, names []string) (map[string]string, error) {
	if f == nil {
		return nil, errors.New("access denied")
	}
	out := make(map[string]string)
	for _, n := range names {
		if v, ok := f[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

func TestParseFrom_Defaults(t *testing.T) {
	cfg, err := ParseFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "gbp", cfg.Currency)
	assert.Equal(t, 15*time.Minute, cfg.CSRFTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.CSRFSweepInterval)
	assert.Equal(t, 10, cfg.CSRFRateLimitMax)
	assert.Equal(t, time.Minute, cfg.CSRFRateLimitWindow)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow())
	assert.Equal(t, "memory", cfg.TokenStore)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.TestEndpointsEnabled())
	assert.False(t, cfg.StripeConfigured())
	assert.False(t, cfg.EmailConfigured())
	assert.False(t, cfg.AWSEnabled())
	assert.Equal(t, "Storefront", cfg.CloudWatchNamespace)
}

func TestParseFrom_ProductionDefaults(t *testing.T) {
	cfg, err := ParseFrom(map[string]string{
		"APP_ENV":  "Production",
		"BASE_URL": "https://shop.example.com/",
	})
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.TestEndpointsEnabled())
	assert.Equal(t, "https://shop.example.com", cfg.BaseURL)
	assert.Equal(t, defaultProductionOrigins, cfg.AllowedOrigins)
}

func TestParseFrom_ExplicitValues(t *testing.T) {
	cfg, err := ParseFrom(map[string]string{
		"APP_ENV":               "production",
		"ENABLE_TEST_ENDPOINTS": "true",
		"ALLOWED_ORIGINS":       "https://a.example.com/, https://b.example.com",
		"CHECKOUT_CURRENCY":     "EUR",
		"STRIPE_SECRET_KEY":     "sk_test_123",
		"EMAIL_USER":            "shop@example.com",
		"EMAIL_PASS":            "app-password",
		"TOKEN_STORE":           "Redis",
	})
	require.NoError(t, err)

	assert.True(t, cfg.TestEndpointsEnabled())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, "redis", cfg.TokenStore)
	assert.True(t, cfg.StripeConfigured())
	assert.True(t, cfg.EmailConfigured())
	assert.False(t, cfg.AWSEnabled())
}

func TestAWSEnabled(t *testing.T) {
	cfg, err := ParseFrom(map[string]string{"ORDER_EVENTS_TOPIC_ARN": "arn:aws:sns:eu-west-2:123456789012:orders"})
	require.NoError(t, err)
	assert.True(t, cfg.AWSEnabled())
}

func TestParseFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown token store": {"TOKEN_STORE": "memcached"},
		"zero ttl":            {"CSRF_TOKEN_TTL": "0s"},
		"bad duration":        {"CSRF_SWEEP_INTERVAL": "soon"},
		"zero rate max":       {"RATE_LIMIT_MAX": "0"},
		"no workers":          {"NOTIFY_WORKERS": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFrom(vars)
			assert.Error(t, err)
		})
	}
}

func TestApplySecrets(t *testing.T) {
	cfg, err := ParseFrom(map[string]string{
		"STRIPE_SECRET_KEY": "from-env",
		"EMAIL_PASS":        "env-pass",
	})
	require.NoError(t, err)

	missing := ApplySecrets(context.Background(), cfg, fakeSecrets{
		"storefront/STRIPE_SECRET_KEY":     "sk_live_secret",
		"storefront/STRIPE_WEBHOOK_SECRET": "whsec_secret",
	})

	assert.Equal(t, "sk_live_secret", cfg.StripeSecretKey)
	assert.Equal(t, "whsec_secret", cfg.StripeWebhookSecret)
	assert.Equal(t, "env-pass", cfg.EmailPass)
	assert.ElementsMatch(t, []string{"storefront/EMAIL_PASS", "storefront/ADMIN_JWT_SECRET"}, missing)
}

func TestApplySecrets_StoreUnavailableKeepsEnvironment(t *testing.T) {
	cfg, err := ParseFrom(map[string]string{"STRIPE_SECRET_KEY": "from-env"})
	require.NoError(t, err)

	missing := ApplySecrets(context.Background(), cfg, fakeSecrets(nil))

	assert.Equal(t, "from-env", cfg.StripeSecretKey)
	assert.Len(t, missing, 4)
}
