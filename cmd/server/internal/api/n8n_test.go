package api

import (
	"archive/zip"
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/n8n"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
)

func tinyEPUB(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest><item id="c1" href="one.xhtml" media-type="application/xhtml+xml"/></manifest>
</package>`,
		"one.xhtml": `<html><body><h1>Prologue</h1><p>Once upon a time.</p></body></html>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func upload(t *testing.T, r http.Handler, target, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func n8nRouter(t *testing.T) (*gin.Engine, *n8n.Store) {
	store := n8n.NewStore(dependency.NewPathManager(t.TempDir()))
	r := newTestRouter()
	r.POST("/n8n/parse_epub", HandleParseEPUB(store))
	r.POST("/n8n/upload", HandleUploadJSON(store, n8n.TranscriptFile))
	return r, store
}

func TestHandleParseEPUB(t *testing.T) {
	r, store := n8nRouter(t)

	w := upload(t, r, "/n8n/parse_epub", "book.EPUB", tinyEPUB(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[{"title":"Prologue","text":"Once upon a time."}]`, w.Body.String())

	saved, err := os.ReadFile(filepath.Join(store.Dir(), n8n.ChaptersFile))
	require.NoError(t, err)
	assert.Contains(t, string(saved), "Once upon a time.")
}

func TestHandleParseEPUBRejects(t *testing.T) {
	r, _ := n8nRouter(t)

	w := upload(t, r, "/n8n/parse_epub", "book.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), ".epub")

	w = upload(t, r, "/n8n/parse_epub", "broken.epub", []byte("not a zip"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", decode[ErrorResponse](t, w).Code)

	w = doJSON(t, r, http.MethodPost, "/n8n/parse_epub", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUploadJSON(t *testing.T) {
	r, store := n8nRouter(t)

	w := doJSON(t, r, http.MethodPost, "/n8n/upload", `{"scenes":[{"id":1,"text":"<b>hi</b>"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[map[string]any](t, w)
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, filepath.Join(store.Dir(), n8n.TranscriptFile), resp["path"])
	assert.NotNil(t, resp["data"])

	_, err := os.Stat(filepath.Join(store.Dir(), n8n.TranscriptFile))
	assert.NoError(t, err)

	w = doJSON(t, r, http.MethodPost, "/n8n/upload", `{"broken":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
