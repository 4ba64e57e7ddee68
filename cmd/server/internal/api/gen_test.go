package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/imagegen"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
)

type fakeGenerator struct {
	started    bool
	prompt     string
	submitted  bool
	cleared    bool
	downloaded []int
	fresh      []string
	err        error
}

func (f *fakeGenerator) Start(ctx context.Context) error {
	f.started = true
	return f.err
}

func (f *fakeGenerator) ClearPrompt(ctx context.Context) error {
	f.cleared = true
	return f.err
}

func (f *fakeGenerator) SetPrompt(ctx context.Context, text string) error {
	f.prompt = text
	return f.err
}

func (f *fakeGenerator) Submit(ctx context.Context) error {
	f.submitted = true
	return f.err
}

func (f *fakeGenerator) RefreshImages(ctx context.Context) ([]string, error) {
	return f.fresh, f.err
}

func (f *fakeGenerator) Download(ctx context.Context, index int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.downloaded = append(f.downloaded, index)
	return "/out/images/img.png", nil
}

func (f *fakeGenerator) DownloadNew(ctx context.Context) ([]string, error) {
	return f.fresh, f.err
}

func (f *fakeGenerator) Status() imagegen.Status {
	return imagegen.Status{Started: true, KnownImages: 4, Downloaded: []string{"a.png"}}
}

func genRouter(gen ImageGenerator) http.Handler {
	h := NewGenHandlers(gen)
	r := newTestRouter()
	r.POST("/gen/start", h.Start)
	r.POST("/gen/clean_prompt", h.ClearPrompt)
	r.POST("/gen/prompt", h.SetPrompt)
	r.POST("/gen/submit", h.Submit)
	r.POST("/gen/download", h.Download)
	r.POST("/gen/refresh_images", h.RefreshImages)
	r.POST("/gen/download_new", h.DownloadNew)
	r.GET("/gen/status", h.Status)
	return r
}

func TestGenHandlers(t *testing.T) {
	gen := &fakeGenerator{fresh: []string{"x", "y"}}
	r := genRouter(gen)

	w := doJSON(t, r, http.MethodPost, "/gen/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, gen.started)

	w = doJSON(t, r, http.MethodPost, "/gen/prompt", PromptRequest{Content: "a red fox"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a red fox", gen.prompt)
	assert.JSONEq(t, `{"status":"ok","message":"Prompt added","prompt":"a red fox"}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/gen/clean_prompt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gen.cleared)

	w = doJSON(t, r, http.MethodPost, "/gen/submit", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gen.submitted)

	w = doJSON(t, r, http.MethodPost, "/gen/download", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPost, "/gen/download", IndexRequest{Index: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int{0, 2}, gen.downloaded)

	w = doJSON(t, r, http.MethodPost, "/gen/refresh_images", nil)
	assert.JSONEq(t, `{"status":"ok","new_images":2}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/gen/download_new", nil)
	assert.JSONEq(t, `{"status":"ok","new_images_downloaded":2,"paths":["x","y"]}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/gen/status", nil)
	assert.JSONEq(t, `{"status":"ok","started":true,"images_known":4,"images_downloaded":1}`, w.Body.String())
}

func TestGenHandlersValidation(t *testing.T) {
	r := genRouter(&fakeGenerator{})
	w := doJSON(t, r, http.MethodPost, "/gen/prompt", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenHandlersErrors(t *testing.T) {
	notStarted := orchestrator.NewOrchError(orchestrator.ENV_NOT_READY, imagegen.ErrNotStarted.Error(), imagegen.ErrNotStarted)
	r := genRouter(&fakeGenerator{err: notStarted})
	w := doJSON(t, r, http.MethodPost, "/gen/submit", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ENV_NOT_READY", decode[ErrorResponse](t, w).Code)

	r = genRouter(&fakeGenerator{err: orchestrator.NewBrowserError(errors.New("target closed"))})
	w = doJSON(t, r, http.MethodPost, "/gen/download", IndexRequest{Index: 1})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "BROWSER_FAILED", decode[ErrorResponse](t, w).Code)
}

func TestGenHandlersDisabled(t *testing.T) {
	r := genRouter(nil)
	for _, target := range []string{"/gen/submit", "/gen/prompt", "/gen/download_new"} {
		w := doJSON(t, r, http.MethodPost, target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}
