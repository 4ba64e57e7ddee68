package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/api"
	"github.com/aiagentsaz/mediaflow/pkg/caption"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/config"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/handlers"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/imagegen"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/jobs"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/middleware"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/n8n"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/degradation"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/dependency"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/health"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator/whisper"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/tts"
	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

const version = "1.0.0"

// whisperFailThreshold 连续失败多少次后切换到备用转写引擎
const whisperFailThreshold = 3

// services 汇总 main 构建的长生命周期组件
type services struct {
	paths     *dependency.PathManager
	deps      *dependency.DependencyClient
	checker   *health.HealthChecker
	whisper   *degradation.DegradationController
	tts       *tts.Service
	generator *imagegen.Generator
	n8n       *n8n.Store
	jobs      *jobs.Store
	runner    *jobs.Runner
	env       *handlers.EnvironmentHandler
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	environment := cfg.Server.Env
	if strings.EqualFold(cfg.Log.Format, "json") {
		environment = "prod"
	}
	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: environment,
		WithSource:  cfg.Server.Env == "dev",
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logInstance)
	appLogger := logInstance.With("component", "web-server")

	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)
	appLogger.Debug(cfg.PrintConfig())

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	svc, err := buildServices(cfg, appLogger)
	if err != nil {
		appLogger.Error("service init failed", "error", err)
		os.Exit(1)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go svc.checker.Start(rootCtx)
	if svc.generator != nil {
		go func() {
			if err := svc.generator.Start(rootCtx); err != nil {
				appLogger.Warn("image generator not started, retry with POST /gen/start", "error", err)
			}
		}()
	}
	// 预热环境状态与就绪指标
	go svc.env.Status(rootCtx, true)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Security.CORSAllowedOrigins))

	startTime := time.Now()
	r.GET("/health", healthCheckHandler(cfg, startTime))
	r.GET("/readiness", svc.env.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.BearerAuth(cfg.Security.JWTSecret, logInstance.With("component", "auth-middleware"),
		"/health", "/readiness", "/metrics"))
	setupRoutes(r, cfg, svc)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env, "output_root", svc.paths.Root())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
	}
	if err := svc.runner.Shutdown(ctx); err != nil {
		appLogger.Warn("render jobs still running at shutdown", "error", err)
	}
	stop()
	svc.checker.Stop()
	if svc.generator != nil {
		if err := svc.generator.Close(); err != nil {
			appLogger.Warn("image generator close failed", "error", err)
		}
	}
	if err := svc.jobs.Close(); err != nil {
		appLogger.Warn("job store close failed", "error", err)
	}
	appLogger.Info("server shutdown complete")
}

// buildServices 按配置构建所有下游组件
func buildServices(cfg *config.Config, appLogger *slog.Logger) (*services, error) {
	paths := dependency.NewPathManager(cfg.Output.Root)
	if err := os.MkdirAll(paths.Root(), 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}

	deps, err := dependency.NewClient(dependency.ExecutorConfig{
		Mode:            dependency.ExecutionMode(cfg.Executor.Mode),
		ServiceURL:      cfg.Executor.ServiceURL,
		OutputRoot:      paths.Root(),
		DefaultTimeout:  cfg.Executor.Timeout,
		AllowedCommands: dependency.DefaultAllowedCommands,
	})
	if err != nil {
		return nil, err
	}
	appLogger.Info("dependency client ready", "mode", cfg.Executor.Mode)

	primary, fallback := whisperBackends(cfg, deps)
	checker := health.NewHealthChecker(primary, cfg.Whisper.HealthInterval, whisperFailThreshold)
	ctrl := degradation.NewDegradationController(primary, fallback, checker)
	appLogger.Info("whisper ready", "primary", primary.Name(), "fallback", fallback.Name())

	ttsService := tts.NewService(tts.NewKokoroClient(cfg.Kokoro.URL), paths)
	ttsService.SetDefaults(cfg.Kokoro.DefaultVoice, cfg.Kokoro.Speed)

	var generator *imagegen.Generator
	if cfg.Jimeng.Enabled {
		generator = imagegen.New(imagegen.Config{
			TargetURL:   cfg.Jimeng.TargetURL,
			ProfileDir:  cfg.Jimeng.ProfileDir,
			DownloadDir: cfg.Jimeng.DownloadDir,
			Headless:    cfg.Jimeng.Headless,
			ControlURL:  cfg.Jimeng.ControlURL,
		})
	}

	store, err := jobs.Open(cfg.Jobs.DBPath)
	if err != nil {
		return nil, err
	}
	appLogger.Info("job store ready", "path", cfg.Jobs.DBPath)

	env := handlers.NewEnvironmentHandler(orchestrator.EnvProbes{
		OutputRoot:   paths.Root(),
		FontsDir:     cfg.Output.FontsDir,
		ExecutorMode: cfg.Executor.Mode,
		Executor:     deps,
		Transcriber:  primary,
		KokoroURL:    cfg.Kokoro.URL,
	})

	return &services{
		paths:     paths,
		deps:      deps,
		checker:   checker,
		whisper:   ctrl,
		tts:       ttsService,
		generator: generator,
		n8n:       n8n.NewStore(paths),
		jobs:      store,
		runner:    jobs.NewRunner(store),
		env:       env,
	}, nil
}

// whisperBackends 选择主/备转写引擎：go-whisper 降级到本地 CLI，本地 CLI 降级到 mock
func whisperBackends(cfg *config.Config, deps *dependency.DependencyClient) (whisper.WhisperTranscriber, whisper.WhisperTranscriber) {
	local := whisper.NewLocalWhisperImpl(deps, cfg.Whisper.Model)
	switch cfg.Whisper.Mode {
	case "local":
		return local, whisper.NewMockTranscriber()
	case "mock":
		mock := whisper.NewMockTranscriber()
		return mock, mock
	default:
		return whisper.NewGoWhisperImpl(cfg.Whisper.URL, cfg.Whisper.Model), local
	}
}

func setupRoutes(r *gin.Engine, cfg *config.Config, svc *services) {
	defaults := caption.Options{MaxLength: cfg.Caption.MaxLength, Lines: cfg.Caption.Lines}
	files := api.HandleGetFile(svc.paths)

	r.GET("/environment/status", svc.env.GetStatus)
	r.GET("/services/status", api.HandleServicesStatus(api.ServicesProbes{
		Whisper: api.HealthProberFunc(func(ctx context.Context) error {
			if st := svc.checker.GetStatus(); !st.IsHealthy {
				return fmt.Errorf("%s unhealthy: %s", st.Name, st.ErrorMessage)
			}
			return nil
		}),
		WhisperMode:  cfg.Whisper.Mode,
		Kokoro:       api.HealthProberFunc(svc.tts.Health),
		Executor:     svc.deps,
		ExecutorMode: cfg.Executor.Mode,
		ImageGen:     imageGenerator(svc.generator),
	}))

	captionGroup := r.Group("/caption")
	{
		captionGroup.POST("/segment", api.HandleSegmentCaptions(defaults))
		captionGroup.POST("/convert_vtt", api.HandleConvertVTT(svc.paths, defaults))
		captionGroup.POST("/render_segments", api.HandleRenderSegments(svc.paths))
		captionGroup.GET("/file", files)
	}

	stt := r.Group("/stt")
	{
		stt.POST("/transcribe", api.HandleTranscribe(svc.whisper, svc.deps))
		stt.GET("/health", api.HandleWhisperHealthCheck(svc.whisper, svc.checker))
		stt.GET("/file", files)
	}

	ttsGroup := r.Group("/tts")
	{
		ttsGroup.POST("/kokoro/synthesize", api.HandleKokoroSynthesize(svc.tts))
		ttsGroup.GET("/kokoro/voices", api.HandleKokoroVoices())
		ttsGroup.GET("/kokoro/file", files)
		ttsGroup.GET("/file", files)
	}

	video := api.NewVideoHandlers(svc.deps, svc.runner)
	videoGroup := r.Group("/video")
	{
		videoGroup.POST("/build", video.Build)
		videoGroup.POST("/slideshow", video.Slideshow)
		videoGroup.GET("/jobs", video.ListJobs)
		videoGroup.GET("/jobs/:id", video.GetJob)
		videoGroup.GET("/file", files)
	}

	gen := api.NewGenHandlers(imageGenerator(svc.generator))
	genGroup := r.Group("/gen")
	{
		genGroup.POST("/start", gen.Start)
		genGroup.POST("/clean_prompt", gen.ClearPrompt)
		genGroup.POST("/prompt", gen.SetPrompt)
		genGroup.POST("/submit", gen.Submit)
		genGroup.POST("/download", gen.Download)
		genGroup.POST("/refresh_images", gen.RefreshImages)
		genGroup.POST("/download_new", gen.DownloadNew)
		genGroup.GET("/status", gen.Status)
	}

	n8nGroup := r.Group("/n8n")
	{
		n8nGroup.POST("/parse_epub", api.HandleParseEPUB(svc.n8n))
		n8nGroup.POST("/upload", api.HandleUploadJSON(svc.n8n, n8n.TranscriptFile))
		n8nGroup.POST("/upload_kv_data", api.HandleUploadJSON(svc.n8n, n8n.KVDataFile))
		n8nGroup.POST("/upload_kv_data_revised", api.HandleUploadJSON(svc.n8n, n8n.KVDataRevisedFile))
		n8nGroup.POST("/upload_data_w_prompt", api.HandleUploadJSON(svc.n8n, n8n.DataWithPromptFile))
	}
}

// imageGenerator avoids handing a typed nil to the handlers.
func imageGenerator(g *imagegen.Generator) api.ImageGenerator {
	if g == nil {
		return nil
	}
	return g
}

// HealthCheckResponse represents the response from the health check endpoint
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
	Env       string    `json:"env"`
}

// healthCheckHandler returns the liveness probe handler
func healthCheckHandler(cfg *config.Config, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthCheckResponse{
			Status:    "healthy",
			Service:   "mediaflow-server",
			Version:   version,
			Uptime:    time.Since(startTime).String(),
			Timestamp: time.Now(),
			Env:       cfg.Server.Env,
		})
	}
}
