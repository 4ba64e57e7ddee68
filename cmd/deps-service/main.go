package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

func main() {
	configPath := flag.String("config", "/app/config/commands.yaml", "path to the command whitelist")
	port := flag.Int("port", 9090, "HTTP port")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("deps-service v%s\n", Version)
		return
	}

	log, err := logger.Init(logger.Config{Level: *logLevel, Environment: "prod"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	audit := NewAuditLogger(config.Security.AuditLogPath)
	defer audit.Close()

	handler := NewHandler(config, NewValidator(config), NewExecutor(config), audit, NewConcurrencyLimiter(config))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Info("deps-service starting", "addr", server.Addr, "commands", len(config.Commands), "shared_volume", config.Security.SharedVolumePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
