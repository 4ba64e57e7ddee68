package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/jobs"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
)

// VideoBuilder is implemented by dependency.DependencyClient.
type VideoBuilder interface {
	BuildVideo(ctx context.Context, spec dependency.VideoSpec) (string, error)
	BuildSlideshow(ctx context.Context, spec dependency.SlideshowSpec) (string, error)
}

// RenderResponse is returned by the render endpoints.
type RenderResponse struct {
	Job        *jobs.Job `json:"job"`
	OutputPath string    `json:"output_path,omitempty"`
}

// VideoHandlers 视频渲染接口，所有渲染记入任务账本
type VideoHandlers struct {
	builder VideoBuilder
	runner  *jobs.Runner
}

// NewVideoHandlers 创建视频渲染处理器
func NewVideoHandlers(builder VideoBuilder, runner *jobs.Runner) *VideoHandlers {
	return &VideoHandlers{builder: builder, runner: runner}
}

// Build POST /video/build[?async=true]
func (h *VideoHandlers) Build(c *gin.Context) {
	var spec dependency.VideoSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := spec.Validate(); err != nil {
		respondError(c, "video", orchestrator.NewInvalidInputError(err.Error(), err))
		return
	}
	h.render(c, jobs.KindVideo, spec, func(ctx context.Context) (string, error) {
		return h.builder.BuildVideo(ctx, spec)
	})
}

// Slideshow POST /video/slideshow[?async=true]
func (h *VideoHandlers) Slideshow(c *gin.Context) {
	var spec dependency.SlideshowSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := spec.Validate(); err != nil {
		respondError(c, "slideshow", orchestrator.NewInvalidInputError(err.Error(), err))
		return
	}
	h.render(c, jobs.KindSlideshow, spec, func(ctx context.Context) (string, error) {
		return h.builder.BuildSlideshow(ctx, spec)
	})
}

func (h *VideoHandlers) render(c *gin.Context, kind jobs.Kind, spec any, fn jobs.RenderFunc) {
	wrapped := func(ctx context.Context) (string, error) {
		out, err := fn(ctx)
		if errors.Is(err, dependency.ErrCommandFailed) {
			return "", orchestrator.NewFFmpegError(err)
		}
		return out, err
	}

	if c.Query("async") == "true" {
		job, err := h.runner.Submit(c.Request.Context(), kind, spec, wrapped)
		if err != nil {
			respondError(c, string(kind), err)
			return
		}
		c.JSON(http.StatusAccepted, RenderResponse{Job: job})
		return
	}

	job, err := h.runner.Run(c.Request.Context(), kind, spec, wrapped)
	if err != nil {
		respondError(c, string(kind), err)
		return
	}
	c.JSON(http.StatusOK, RenderResponse{Job: job, OutputPath: job.OutputPath})
}

// ListJobs GET /video/jobs?limit=50
func (h *VideoHandlers) ListJobs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := h.runner.Store().List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "video", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": list, "count": len(list)})
}

// GetJob GET /video/jobs/:id
func (h *VideoHandlers) GetJob(c *gin.Context) {
	job, err := h.runner.Store().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "video", err)
		return
	}
	c.JSON(http.StatusOK, job)
}
