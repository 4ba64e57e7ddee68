package main

import (
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditLogger writes one JSON line per execution attempt.
type AuditLogger struct {
	logger *slog.Logger
	closer io.Closer
}

// NewAuditLogger writes to a lumberjack-rotated file at path.
func NewAuditLogger(path string) *AuditLogger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}
	a := newAuditLoggerWriter(rotator)
	a.closer = rotator
	return a
}

func newAuditLoggerWriter(w io.Writer) *AuditLogger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// only "time" and the explicit attrs are kept
			if len(groups) == 0 && (a.Key == slog.LevelKey || a.Key == slog.MessageKey) {
				return slog.Attr{}
			}
			return a
		},
	})
	return &AuditLogger{logger: slog.New(h)}
}

// LogExecution records a command that ran, successfully or not.
func (a *AuditLogger) LogExecution(req CommandRequest, resp CommandResponse, err error, sourceIP string) {
	result := "success"
	attrs := []slog.Attr{
		slog.String("command", req.Command),
		slog.Any("args", req.Args),
		slog.Int("exit_code", resp.ExitCode),
		slog.Int64("duration_ms", resp.DurationMs),
		slog.String("source_ip", sourceIP),
	}
	if err != nil || resp.ExitCode != 0 {
		result = "failed"
		if err != nil {
			attrs = append(attrs, slog.String("error_message", err.Error()))
		}
	}
	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "", append(attrs, slog.String("result", result))...)
}

// LogRejection records a request refused before execution.
func (a *AuditLogger) LogRejection(req CommandRequest, reason, sourceIP string) {
	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "",
		slog.String("command", req.Command),
		slog.Any("args", req.Args),
		slog.String("result", "rejected"),
		slog.String("rejection_reason", reason),
		slog.String("source_ip", sourceIP),
	)
}

// Close closes the underlying file, if any.
func (a *AuditLogger) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
