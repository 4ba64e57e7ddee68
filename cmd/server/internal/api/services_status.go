package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const serviceProbeTimeout = 5 * time.Second

// HealthProber 由 dependency.DependencyClient 实现，其余服务通过 HealthProberFunc 适配
type HealthProber interface {
	HealthCheck(ctx context.Context) error
}

// HealthProberFunc 将函数适配为 HealthProber
type HealthProberFunc func(ctx context.Context) error

// HealthCheck 实现 HealthProber
func (f HealthProberFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// ServiceState 单个下游服务的探测结果
type ServiceState struct {
	Available bool   `json:"available"`
	Mode      string `json:"mode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServicesStatusResponse 服务状态响应
type ServicesStatusResponse struct {
	Whisper  ServiceState `json:"whisper"`
	Kokoro   ServiceState `json:"kokoro"`
	Executor ServiceState `json:"executor"`
	ImageGen ServiceState `json:"imagegen"`
}

// ServicesProbes 服务状态探测所需依赖，nil 项视为未配置
type ServicesProbes struct {
	Whisper      HealthProber
	WhisperMode  string
	Kokoro       HealthProber
	Executor     HealthProber
	ExecutorMode string
	ImageGen     ImageGenerator
}

// HandleServicesStatus 并发探测各下游服务并返回汇总
// GET /services/status
func HandleServicesStatus(p ServicesProbes) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), serviceProbeTimeout)
		defer cancel()

		resp := ServicesStatusResponse{
			Whisper:  ServiceState{Mode: p.WhisperMode},
			Executor: ServiceState{Mode: p.ExecutorMode},
		}

		var g errgroup.Group
		g.Go(func() error { probe(ctx, p.Whisper, &resp.Whisper); return nil })
		g.Go(func() error { probe(ctx, p.Kokoro, &resp.Kokoro); return nil })
		g.Go(func() error { probe(ctx, p.Executor, &resp.Executor); return nil })
		_ = g.Wait()

		if p.ImageGen == nil {
			resp.ImageGen.Error = "disabled"
		} else {
			resp.ImageGen.Available = p.ImageGen.Status().Started
			if !resp.ImageGen.Available {
				resp.ImageGen.Error = "browser not started"
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

func probe(ctx context.Context, p HealthProber, st *ServiceState) {
	if p == nil {
		st.Error = "not configured"
		return
	}
	if err := p.HealthCheck(ctx); err != nil {
		st.Error = err.Error()
		return
	}
	st.Available = true
}
