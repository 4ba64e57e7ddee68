package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/n8n"
)

const maxUploadBytes = 64 << 20

// HandleParseEPUB 解析上传的 EPUB 并写入 chapters.json
// POST /n8n/parse_epub (multipart, field "file")
func HandleParseEPUB(store *n8n.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "file is required")
			return
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".epub") {
			badRequest(c, "Please upload an .epub file")
			return
		}
		if fh.Size > maxUploadBytes {
			badRequest(c, "file too large")
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, "n8n", err)
			return
		}
		defer f.Close()

		chapters, err := n8n.ParseEPUB(f, fh.Size)
		if err != nil {
			respondError(c, "n8n", err)
			return
		}
		if _, err := store.SaveChapters(chapters); err != nil {
			respondError(c, "n8n", err)
			return
		}
		if chapters == nil {
			chapters = []n8n.Chapter{}
		}
		c.JSON(http.StatusOK, chapters)
	}
}

// HandleUploadJSON 将任意 JSON 负载写入固定文件并原样返回
// POST /n8n/upload, /n8n/upload_kv_data, /n8n/upload_kv_data_revised, /n8n/upload_data_w_prompt
func HandleUploadJSON(store *n8n.Store, filename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
		if err != nil {
			badRequest(c, "failed to read body")
			return
		}
		if len(body) > maxUploadBytes {
			badRequest(c, "payload too large")
			return
		}
		if !json.Valid(body) {
			badRequest(c, "body must be valid JSON")
			return
		}
		path, err := store.WriteRaw(filename, body)
		if err != nil {
			respondError(c, "n8n", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "path": path, "data": json.RawMessage(body)})
	}
}
