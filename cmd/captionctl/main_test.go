package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

const helloTokens = `[
  {"text": "Hello", "start_ts": 0, "end_ts": 0.4},
  {"text": ",", "start_ts": 0.4, "end_ts": 0.5},
  {"text": "world", "start_ts": 0.5, "end_ts": 0.9}
]`

const sampleVTT = `WEBVTT

1
00:00:01.000 --> 00:00:02.500
Hello world

2
00:00:03.000 --> 00:00:04.250
Second line here
`

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("MEDIAFLOW_SERVER_URL", "")
	t.Setenv("MEDIAFLOW_TOKEN", "")

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSegmentJSONFromStdin(t *testing.T) {
	out, _, err := runCmd(t, helloTokens, "segment")
	require.NoError(t, err)

	var got segmentsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, caption.ModeWord, got.Mode)
	require.Equal(t, 1, got.Count)
	assert.Equal(t, []string{"Hello, world", ""}, got.Segments[0].Text)
	assert.InDelta(t, 0.9, got.Segments[0].End, 1e-9)
}

func TestSegmentWrappedInputAndTable(t *testing.T) {
	path := writeFile(t, "tokens.json", `{"tokens": `+helloTokens+`}`)
	out, _, err := runCmd(t, "", "segment", path, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, world")
	assert.Contains(t, out, "0:00:00.90")
	assert.NotContains(t, out, `"segments"`)
}

func TestSegmentEmptyInput(t *testing.T) {
	out, _, err := runCmd(t, "[]", "segment", "--mode", "sentence", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"sentence","count":0,"segments":[]}`, out)
}

func TestSegmentErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"unknown mode", helloTokens, []string{"segment", "--mode", "para"}, "unknown mode"},
		{"bad lines", helloTokens, []string{"segment", "--lines", "0"}, "lines must be positive"},
		{"bad output", helloTokens, []string{"segment", "-o", "yaml"}, "unknown output format"},
		{"reversed token", `[{"text":"a","start_ts":2,"end_ts":1}]`, []string{"segment"}, "end precedes start"},
		{"no tokens field", `{"words": []}`, []string{"segment"}, `no "tokens" field`},
		{"not json", `tokens`, []string{"segment"}, "decode input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSegmentRemote(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/caption/segment", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mode":"word","count":1,"segments":[{"text":["remote",""],"start_ts":0,"end_ts":1}]}`))
	}))
	defer srv.Close()

	out, _, err := runCmd(t, helloTokens, "segment", "--server-url", srv.URL+"/", "--token", "secret", "--max-length", "30")
	require.NoError(t, err)
	assert.Contains(t, out, `"remote"`)
	assert.Equal(t, "word", gotBody["mode"])
	assert.Equal(t, float64(30), gotBody["max_length"])
	assert.Len(t, gotBody["tokens"], 3)
}

func TestSegmentRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad tokens","code":"INVALID_INPUT"}`))
	}))
	defer srv.Close()

	_, _, err := runCmd(t, helloTokens, "segment", "--server-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_INPUT")
}

func TestConvertToFile(t *testing.T) {
	in := writeFile(t, "in.vtt", sampleVTT)
	outPath := filepath.Join(t.TempDir(), "out.ass")

	stdout, stderr, err := runCmd(t, "", "convert", in, "-O", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "converted 2 cues")
	assert.Contains(t, stderr, "language en")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Script Info]")
	assert.Contains(t, string(data), "Hello world")
}

func TestConvertMalformedWritesNothing(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "out.ass")
	_, _, err := runCmd(t, "WEBVTT\n\n00:00:xx --> 00:00:01.000\nhi\n", "convert", "-O", outPath)
	require.Error(t, err)
	assert.NoFileExists(t, outPath)

	_, _, err = runCmd(t, sampleVTT, "convert", "--lang", "fr")
	require.Error(t, err)
}

func TestSegmentPipesIntoRender(t *testing.T) {
	segments, _, err := runCmd(t, helloTokens, "segment", "-o", "json")
	require.NoError(t, err)

	out, _, err := runCmd(t, segments, "render")
	require.NoError(t, err)
	assert.Contains(t, out, "[Events]")
	assert.Contains(t, out, "Hello, world")
}

func TestRenderRejectsReversedSegment(t *testing.T) {
	_, _, err := runCmd(t, `[{"text":["x"],"start_ts":3,"end_ts":1}]`, "render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precedes start")
}

func TestStylePreset(t *testing.T) {
	preset := writeFile(t, "style.toml", `
font_name = "Noto Sans"
font_color = "#FFCC00"
subtitle_position = "top"
`)
	out, _, err := runCmd(t, `[{"text":["hi"],"start_ts":0,"end_ts":1}]`, "render", "--style", preset)
	require.NoError(t, err)
	assert.Contains(t, out, "Style: Default,Noto Sans,42,")

	bad := writeFile(t, "bad.toml", `font_weight = 700`)
	_, _, err = runCmd(t, "[]", "render", "--style", bad)
	require.Error(t, err)

	badPos := writeFile(t, "pos.toml", `subtitle_position = "left"`)
	_, _, err = runCmd(t, "[]", "render", "--style", badPos)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid subtitle position")
}
