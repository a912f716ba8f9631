package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/cameronkey/petproduct-sp-ecom/middleware"
)

func panickingRouter(onPanic func(error)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(zap.NewNop(), onPanic))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })
	return r
}

func TestPanicHook_DevelopmentKeepsServing(t *testing.T) {
	fatal := make(chan error, 1)
	r := panickingRouter(panicHook(false, shutdownTrigger(fatal)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, fatal)
}

func TestPanicHook_ProductionTriggersShutdown(t *testing.T) {
	fatal := make(chan error, 1)
	r := panickingRouter(panicHook(true, shutdownTrigger(fatal)))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	}

	if assert.Len(t, fatal, 1) {
		assert.EqualError(t, <-fatal, "kaboom")
	}
}

func TestShutdownTrigger_KeepsFirstError(t *testing.T) {
	fatal := make(chan error, 1)
	trigger := shutdownTrigger(fatal)
	trigger(errors.New("listen tcp :3000: address already in use"))
	trigger(errors.New("second"))

	assert.EqualError(t, <-fatal, "listen tcp :3000: address already in use")
}
