package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// minFreeBytes 输出目录最低可用空间，低于此值视为磁盘不足
var minFreeBytes uint64 = 512 << 20

// EnvironmentStatus 表示整体环境状态
type EnvironmentStatus struct {
	Ready    bool               `json:"ready"`
	Issues   []string           `json:"issues"`
	Warnings []string           `json:"warnings"`
	Details  EnvironmentDetails `json:"details"`
}

// EnvironmentDetails 包含各组件的详细状态
type EnvironmentDetails struct {
	OutputRoot DirStatus     `json:"output_root"`
	Fonts      DirStatus     `json:"fonts"`
	Executor   ToolStatus    `json:"executor"`
	Whisper    ServiceStatus `json:"whisper"`
	Kokoro     ServiceStatus `json:"kokoro"`
}

// DirStatus 表示目录可写性与剩余空间
type DirStatus struct {
	Path      string `json:"path"`
	Writable  bool   `json:"writable"`
	FreeBytes uint64 `json:"free_bytes,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ServiceStatus 表示外部服务状态
type ServiceStatus struct {
	Reachable bool   `json:"reachable"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url,omitempty"`
	Latency   string `json:"latency,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ToolStatus 表示命令执行器状态
type ToolStatus struct {
	Available bool   `json:"available"`
	Mode      string `json:"mode,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExecutorProbe 由 dependency.DependencyClient 实现
type ExecutorProbe interface {
	HealthCheck(ctx context.Context) error
}

// TranscriberProbe 由 whisper.WhisperTranscriber 实现
type TranscriberProbe interface {
	HealthCheck(ctx context.Context) (bool, error)
	Name() string
}

// EnvProbes 汇总环境检查所需的依赖；为 nil/空 的项跳过检查
type EnvProbes struct {
	OutputRoot   string
	FontsDir     string
	ExecutorMode string
	Executor     ExecutorProbe
	Transcriber  TranscriberProbe
	KokoroURL    string
	HTTPClient   *http.Client
}

// CheckEnvironment 执行完整的环境检查
// 输出目录与命令执行器为必需项；Whisper、Kokoro、字体目录不可用只记为警告
func CheckEnvironment(ctx context.Context, p EnvProbes) *EnvironmentStatus {
	status := &EnvironmentStatus{
		Ready:    true,
		Issues:   []string{},
		Warnings: []string{},
	}

	// 1. 输出目录
	status.Details.OutputRoot = checkDir(p.OutputRoot)
	if !status.Details.OutputRoot.Writable {
		status.Ready = false
		status.Issues = append(status.Issues, fmt.Sprintf("输出目录不可写: %s", status.Details.OutputRoot.Error))
	} else if status.Details.OutputRoot.FreeBytes < minFreeBytes {
		status.Ready = false
		status.Issues = append(status.Issues, NewDiskFullError(p.OutputRoot).Message)
	}

	// 2. 字体目录（可选）
	if p.FontsDir != "" {
		status.Details.Fonts = checkDir(p.FontsDir)
		if status.Details.Fonts.Error != "" {
			status.Warnings = append(status.Warnings, fmt.Sprintf("字体目录不可用: %s", status.Details.Fonts.Error))
		}
	}

	// 3. 命令执行器（ffmpeg/ffprobe）
	if p.Executor != nil {
		status.Details.Executor = ToolStatus{Available: true, Mode: p.ExecutorMode}
		if err := p.Executor.HealthCheck(ctx); err != nil {
			status.Ready = false
			status.Details.Executor = ToolStatus{Mode: p.ExecutorMode, Error: err.Error()}
			status.Issues = append(status.Issues, fmt.Sprintf("FFmpeg 执行器不可用: %v", err))
		}
	}

	// 4. Whisper
	if p.Transcriber != nil {
		start := time.Now()
		ok, err := p.Transcriber.HealthCheck(ctx)
		ws := ServiceStatus{Reachable: ok, Name: p.Transcriber.Name(), Latency: latency(start)}
		if !ok {
			msg := "degraded"
			if err != nil {
				msg = err.Error()
			}
			ws.Error = msg
			status.Warnings = append(status.Warnings, fmt.Sprintf("Whisper (%s) 不可用: %s", ws.Name, msg))
		}
		status.Details.Whisper = ws
	}

	// 5. Kokoro
	if p.KokoroURL != "" {
		status.Details.Kokoro = checkHTTP(ctx, p.client(), p.KokoroURL, "/health")
		if !status.Details.Kokoro.Reachable {
			status.Warnings = append(status.Warnings, fmt.Sprintf("Kokoro 服务不可达: %s", status.Details.Kokoro.Error))
		}
	}

	return status
}

func (p EnvProbes) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// checkDir 检查目录存在、可读写，并统计剩余空间
func checkDir(path string) DirStatus {
	ds := DirStatus{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		ds.Error = fmt.Sprintf("%s (%v)", path, err)
		return ds
	}
	if !info.IsDir() {
		ds.Error = fmt.Sprintf("%s 不是目录", path)
		return ds
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		ds.Error = fmt.Sprintf("%s 权限不足 (%v)", path, err)
		return ds
	}
	ds.Writable = true

	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err == nil {
		ds.FreeBytes = fs.Bavail * uint64(fs.Bsize)
	}
	return ds
}

// checkHTTP 检查 HTTP 服务健康状态
func checkHTTP(ctx context.Context, client *http.Client, baseURL, path string) ServiceStatus {
	url := strings.TrimSuffix(baseURL, "/") + path
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ServiceStatus{URL: baseURL, Error: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return ServiceStatus{URL: baseURL, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ServiceStatus{URL: baseURL, Error: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return ServiceStatus{Reachable: true, URL: baseURL, Latency: latency(start)}
}

func latency(start time.Time) string {
	return fmt.Sprintf("%dms", time.Since(start).Milliseconds())
}
