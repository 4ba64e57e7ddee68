package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
)

// HandleGetFile serves a file below the output root.
// GET /caption/file?path=..., /tts/file, /stt/file, /tts/kokoro/file
//
// Paths outside the root get 403, missing files and directories 404.
func HandleGetFile(paths *dependency.PathManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Query("path")
		if p == "" {
			badRequest(c, "path is required")
			return
		}
		abs, err := paths.Resolve(p)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "access denied", Code: string(orchestrator.OUTSIDE_OUTPUT_ROOT)})
			return
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				respondError(c, "files", err)
				return
			}
			c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "file not found", Code: string(orchestrator.NOT_FOUND)})
			return
		}
		c.File(abs)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
