package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
)

func countingHandler(ready bool) (*EnvironmentHandler, *int) {
	calls := 0
	h := NewEnvironmentHandler(orchestrator.EnvProbes{})
	h.check = func(ctx context.Context, p orchestrator.EnvProbes) *orchestrator.EnvironmentStatus {
		calls++
		st := &orchestrator.EnvironmentStatus{Ready: ready, Issues: []string{}, Warnings: []string{}}
		if !ready {
			st.Issues = append(st.Issues, "输出目录不可写")
		}
		return st
	}
	return h, &calls
}

func serve(h gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	h(c)
	return w
}

func TestGetStatusCachesUntilForced(t *testing.T) {
	h, calls := countingHandler(true)

	w := serve(h.GetStatus, "/environment/status")
	require.Equal(t, http.StatusOK, w.Code)
	var st orchestrator.EnvironmentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.True(t, st.Ready)

	serve(h.GetStatus, "/environment/status")
	assert.Equal(t, 1, *calls)

	serve(h.GetStatus, "/environment/status?force=true")
	assert.Equal(t, 2, *calls)
}

func TestStatusExpires(t *testing.T) {
	h, calls := countingHandler(true)
	h.ttl = 0

	h.Status(context.Background(), false)
	h.Status(context.Background(), false)
	assert.Equal(t, 2, *calls)
}

func TestReadiness(t *testing.T) {
	h, _ := countingHandler(false)
	w := serve(h.Readiness, "/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")

	h, _ = countingHandler(true)
	w = serve(h.Readiness, "/readiness")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","warnings":[]}`, w.Body.String())
}
