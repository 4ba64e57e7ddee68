package dependency

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RemoteExecutor executes commands through the deps-service HTTP API.
type RemoteExecutor struct {
	config     ExecutorConfig
	httpClient *http.Client
}

// NewRemoteExecutor creates a new RemoteExecutor with the given configuration.
func NewRemoteExecutor(config ExecutorConfig) *RemoteExecutor {
	return &RemoteExecutor{
		config: config,
		httpClient: &http.Client{
			// slightly above the command timeout so the service reports it first
			Timeout: config.DefaultTimeout + 10*time.Second,
		},
	}
}

// ExecuteCommand posts req to /api/v1/execute.
//
// deps-service answers 500 with a CommandResponse body for non-zero exits;
// that case is returned as a response, not an error.
func (e *RemoteExecutor) ExecuteCommand(ctx context.Context, req CommandRequest) (CommandResponse, error) {
	if req.Timeout == 0 {
		req.Timeout = e.config.DefaultTimeout
	}
	reqBody, err := json.Marshal(req)
	if err != nil {
		return CommandResponse{}, fmt.Errorf("failed to serialize request: %w", err)
	}

	url := e.config.ServiceURL + "/api/v1/execute"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return CommandResponse{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug("remote execute", "url", url, "command", req.Command, "args", len(req.Args))

	start := time.Now()
	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return CommandResponse{}, fmt.Errorf("failed to call dependency service (network error): %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return CommandResponse{}, fmt.Errorf("failed to read response (network error): %w", err)
	}

	var resp CommandResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		slog.Warn("unparseable deps-service response", "status", httpResp.StatusCode, "body", truncate(string(bodyBytes), 500))
		return CommandResponse{}, fmt.Errorf("dependency service returned HTTP %d with unparseable body: %w", httpResp.StatusCode, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
	case httpResp.StatusCode == http.StatusInternalServerError && resp.ExitCode != 0:
		resp.Success = false
	default:
		return resp, fmt.Errorf("dependency service returned error (HTTP %d): %s", httpResp.StatusCode, truncate(string(bodyBytes), 500))
	}

	if resp.DurationMs == 0 {
		resp.DurationMs = time.Since(start).Milliseconds()
	}
	return resp, nil
}

// HealthCheck verifies that the remote dependency service is reachable and healthy.
func (e *RemoteExecutor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.ServiceURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dependency service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dependency service unhealthy (HTTP %d)", resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
