package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version is reported by /api/v1/health and -version.
const Version = "1.1.0"

// Handler serves the execution API.
type Handler struct {
	validator   *Validator
	executor    *Executor
	auditLogger *AuditLogger
	limiter     *ConcurrencyLimiter
	maxBody     int64
}

// NewHandler wires the execution pipeline into a mux:
// POST /api/v1/execute, GET /api/v1/health and GET /metrics.
func NewHandler(config *Config, validator *Validator, executor *Executor, auditLogger *AuditLogger, limiter *ConcurrencyLimiter) http.Handler {
	h := &Handler{
		validator:   validator,
		executor:    executor,
		auditLogger: auditLogger,
		limiter:     limiter,
		maxBody:     config.Limits.MaxBodyBytes,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/execute", h.HandleExecute)
	mux.HandleFunc("GET /api/v1/health", h.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// HandleExecute validates, admits and runs one command. Non-zero exits are
// answered with 500 and the CommandResponse body.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	source := clientIP(r)

	var req CommandRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to decode JSON: "+err.Error())
		return
	}

	if err := h.validator.ValidateRequest(req); err != nil {
		h.auditLogger.LogRejection(req, err.Error(), source)
		respondError(w, http.StatusBadRequest, "invalid_arguments", err.Error())
		return
	}

	if err := h.limiter.Acquire(r.Context(), req.Command); err != nil {
		h.auditLogger.LogRejection(req, "busy: "+err.Error(), source)
		respondError(w, http.StatusServiceUnavailable, "service_busy", "max concurrent executions reached")
		return
	}
	defer h.limiter.Release(req.Command)

	resp, err := h.executor.ExecuteCommand(r.Context(), req)
	h.auditLogger.LogExecution(req, resp, err, source)

	switch {
	case errors.Is(err, ErrTimeout):
		respondError(w, http.StatusGatewayTimeout, "command_timeout", err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "command_failed", err.Error())
	case resp.ExitCode != 0:
		resp.Success = false
		respondJSON(w, http.StatusInternalServerError, resp)
	default:
		resp.Success = true
		respondJSON(w, http.StatusOK, resp)
	}
}

// HandleHealth answers liveness probes.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "deps-service",
		"version": Version,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, kind, detail string) {
	respondJSON(w, status, map[string]any{"error": kind, "details": []string{detail}})
}
