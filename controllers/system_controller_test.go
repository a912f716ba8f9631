package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/config"
	"github.com/cameronkey/petproduct-sp-ecom/controllers"
)

func setupSystemRouter(t *testing.T, vars map[string]string) *gin.Engine {
	t.Helper()
	cfg, err := config.ParseFrom(vars)
	require.NoError(t, err)

	sc := controllers.NewSystemController(cfg, zap.NewNop())
	r := gin.New()
	r.GET("/health", sc.Health)
	r.GET("/api/status", sc.Status)
	r.GET("/api/config", sc.PublicConfig)
	return r
}

var secretVars = map[string]string{
	"STRIPE_SECRET_KEY":      "sk_live_supersecret",
	"STRIPE_WEBHOOK_SECRET":  "whsec_supersecret",
	"STRIPE_PUBLISHABLE_KEY": "pk_live_public",
	"EMAILJS_PUBLIC_KEY":     "emailjs_public",
	"EMAIL_USER":             "shop@example.com",
	"EMAIL_PASS":             "app-password",
	"ADMIN_JWT_SECRET":       "admin-secret",
}

func withEnv(env string, base map[string]string) map[string]string {
	out := map[string]string{"APP_ENV": env}
	for k, v := range base {
		out[k] = v
	}
	return out
}

func TestHealth_ReportsPresenceOnly(t *testing.T) {
	r := setupSystemRouter(t, withEnv("production", secretVars))

	w := doJSON(r, http.MethodGet, "/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Pawsitive Peace Product Delivery", body["service"])
	assert.Equal(t, "production", body["environment"])
	assert.Equal(t, map[string]interface{}{"configured": true, "user": "Set", "pass": "Set"}, body["email"])
	for _, v := range secretVars {
		assert.NotContains(t, w.Body.String(), v)
	}
}

func TestHealth_MissingEmail(t *testing.T) {
	r := setupSystemRouter(t, withEnv("development", nil))

	body := decode(doJSON(r, http.MethodGet, "/health", nil, nil))

	assert.Equal(t, map[string]interface{}{"configured": false, "user": "Missing", "pass": "Missing"}, body["email"])
}

func TestStatus(t *testing.T) {
	r := setupSystemRouter(t, withEnv("development", nil))

	w := doJSON(r, http.MethodGet, "/api/status", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(w)
	assert.Equal(t, "Pawsitive Peace API is running", body["message"])
	assert.Equal(t, "operational", body["status"])
	endpoints, _ := body["endpoints"].(map[string]interface{})
	assert.Equal(t, "/webhook/stripe", endpoints["webhook"])
}

func TestPublicConfig_NeverLeaksSecrets(t *testing.T) {
	for _, env := range []string{"production", "development"} {
		t.Run(env, func(t *testing.T) {
			r := setupSystemRouter(t, withEnv(env, secretVars))

			w := doJSON(r, http.MethodGet, "/api/config", nil, nil)

			require.Equal(t, http.StatusOK, w.Code)
			assert.NotContains(t, w.Body.String(), "sk_live_supersecret")
			assert.NotContains(t, w.Body.String(), "whsec_supersecret")
			assert.NotContains(t, w.Body.String(), "app-password")
			body := decode(w)
			assert.Equal(t, map[string]interface{}{"publishableKey": "pk_live_public"}, body["stripe"])
			assert.Equal(t, map[string]interface{}{"publicKey": "emailjs_public"}, body["emailjs"])
			assert.Equal(t, env, body["environment"])
		})
	}
}

func TestPublicConfig_ProductionIncomplete(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"no publishable key", map[string]string{"EMAILJS_PUBLIC_KEY": "e"}, "Stripe publishable key not configured"},
		{"no emailjs key", map[string]string{"STRIPE_PUBLISHABLE_KEY": "pk"}, "EmailJS public key not configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupSystemRouter(t, withEnv("production", tt.vars))

			w := doJSON(r, http.MethodGet, "/api/config", nil, nil)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			body := decode(w)
			assert.Equal(t, "Configuration incomplete", body["error"])
			assert.Equal(t, tt.want, body["message"])
		})
	}
}

func TestPublicConfig_DevelopmentPlaceholders(t *testing.T) {
	r := setupSystemRouter(t, withEnv("development", nil))

	w := doJSON(r, http.MethodGet, "/api/config", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(w)
	assert.Equal(t, map[string]interface{}{"publishableKey": "pk_test_placeholder_for_development"}, body["stripe"])
	assert.Equal(t, map[string]interface{}{"publicKey": "placeholder_for_development"}, body["emailjs"])
}
