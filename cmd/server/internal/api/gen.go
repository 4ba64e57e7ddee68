package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/imagegen"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
)

// ImageGenerator is implemented by imagegen.Generator.
type ImageGenerator interface {
	Start(ctx context.Context) error
	ClearPrompt(ctx context.Context) error
	SetPrompt(ctx context.Context, text string) error
	Submit(ctx context.Context) error
	RefreshImages(ctx context.Context) ([]string, error)
	Download(ctx context.Context, index int) (string, error)
	DownloadNew(ctx context.Context) ([]string, error)
	Status() imagegen.Status
}

// PromptRequest is the body of POST /gen/prompt.
type PromptRequest struct {
	Content string `json:"content" binding:"required"`
}

// IndexRequest is the body of POST /gen/download.
type IndexRequest struct {
	Index int `json:"index"`
}

// GenHandlers 图片生成控制接口
type GenHandlers struct {
	gen ImageGenerator
}

// NewGenHandlers 创建图片生成处理器；gen 为 nil 时所有接口返回 503
func NewGenHandlers(gen ImageGenerator) *GenHandlers {
	return &GenHandlers{gen: gen}
}

func (h *GenHandlers) ready(c *gin.Context) bool {
	if h.gen == nil {
		unavailable(c, "image generator is disabled")
		return false
	}
	return true
}

// Start POST /gen/start 启动或重连浏览器，已启动时直接返回
func (h *GenHandlers) Start(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.gen.Start(c.Request.Context()); err != nil {
		respondError(c, "imagegen", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Browser ready"})
}

// ClearPrompt POST /gen/clean_prompt
func (h *GenHandlers) ClearPrompt(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.gen.ClearPrompt(c.Request.Context()); err != nil {
		respondError(c, "imagegen", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Prompt cleaned"})
}

// SetPrompt POST /gen/prompt
func (h *GenHandlers) SetPrompt(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.gen.SetPrompt(c.Request.Context(), req.Content); err != nil {
		respondError(c, "imagegen", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Prompt added", "prompt": req.Content})
}

// Submit POST /gen/submit
func (h *GenHandlers) Submit(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.gen.Submit(c.Request.Context()); err != nil {
		respondError(c, "imagegen", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Submit button clicked"})
}

// Download POST /gen/download
func (h *GenHandlers) Download(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req IndexRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	path, err := h.gen.Download(c.Request.Context(), req.Index)
	if err != nil {
		respondError(c, "imagegen", err)
		return
	}
	metrics.RecordJob("imagegen", true)
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("Downloaded image %d", req.Index),
		"path":    path,
	})
}

// RefreshImages POST /gen/refresh_images
func (h *GenHandlers) RefreshImages(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	fresh, err := h.gen.RefreshImages(c.Request.Context())
	if err != nil {
		respondError(c, "imagegen", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "new_images": len(fresh)})
}

// DownloadNew POST /gen/download_new
func (h *GenHandlers) DownloadNew(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	paths, err := h.gen.DownloadNew(c.Request.Context())
	if err != nil {
		respondError(c, "imagegen", err)
		return
	}
	if paths == nil {
		paths = []string{}
	}
	metrics.RecordJob("imagegen", len(paths) > 0)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "new_images_downloaded": len(paths), "paths": paths})
}

// Status GET /gen/status
func (h *GenHandlers) Status(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	st := h.gen.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"started":           st.Started,
		"images_known":      st.KnownImages,
		"images_downloaded": len(st.Downloaded),
	})
}
