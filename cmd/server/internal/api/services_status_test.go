package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleServicesStatus_NothingConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/services/status", nil)

	HandleServicesStatus(ServicesProbes{})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[ServicesStatusResponse](t, w)
	assert.False(t, resp.Whisper.Available)
	assert.Equal(t, "not configured", resp.Kokoro.Error)
	assert.Equal(t, "disabled", resp.ImageGen.Error)
}

func TestHandleServicesStatus_Mixed(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/services/status", nil)

	ok := HealthProberFunc(func(ctx context.Context) error { return nil })
	down := HealthProberFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	HandleServicesStatus(ServicesProbes{
		Whisper:      ok,
		WhisperMode:  "go-whisper",
		Kokoro:       down,
		Executor:     ok,
		ExecutorMode: "fallback",
		ImageGen:     &fakeGenerator{},
	})(c)

	resp := decode[ServicesStatusResponse](t, w)
	assert.Equal(t, ServiceState{Available: true, Mode: "go-whisper"}, resp.Whisper)
	assert.Equal(t, ServiceState{Error: "connection refused"}, resp.Kokoro)
	assert.Equal(t, ServiceState{Available: true, Mode: "fallback"}, resp.Executor)
	assert.True(t, resp.ImageGen.Available)
}
