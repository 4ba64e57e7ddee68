package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/degradation"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/health"
)

// HandleWhisperHealthCheck 返回 Whisper 健康与降级状态
// GET /stt/health
//
// 响应格式:
//
//	{
//	  "success": true,
//	  "data": {
//	    "implementation": "go-whisper",
//	    "primary": "go-whisper",
//	    "is_healthy": true,
//	    "is_degraded": false,
//	    "last_check_time": "2026-10-19T02:20:00Z",
//	    "consecutive_fails": 0,
//	    "error_message": ""
//	  }
//	}
func HandleWhisperHealthCheck(ctrl *degradation.DegradationController, checker *health.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctrl == nil || checker == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "Whisper service not initialized",
			})
			return
		}

		// ?force=true 立即执行一次检查
		status := checker.GetStatus()
		if c.Query("force") == "true" {
			status = checker.CheckNow(c.Request.Context())
		}
		st := ctrl.Status()

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"implementation":    st.Active,
				"primary":           st.Primary.Name,
				"is_healthy":        status.IsHealthy,
				"is_degraded":       st.Degraded,
				"last_check_time":   status.LastCheckTime,
				"consecutive_fails": status.ConsecutiveFails,
				"error_message":     status.ErrorMessage,
			},
		})
	}
}
