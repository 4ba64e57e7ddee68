package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 统一配置结构
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Security SecurityConfig `yaml:"security"`
	Executor ExecutorConfig `yaml:"executor"`
	Whisper  WhisperConfig  `yaml:"whisper"`
	Kokoro   KokoroConfig   `yaml:"kokoro"`
	Jimeng   JimengConfig   `yaml:"jimeng"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Caption  CaptionConfig  `yaml:"caption"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Env             string        `yaml:"env"` // dev, staging, production
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OutputConfig 输出目录配置，所有生成文件必须位于 Root 之下
type OutputConfig struct {
	Root     string `yaml:"root"`
	FontsDir string `yaml:"fonts_dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`   // 为空时仅输出到 stdout
}

// SecurityConfig 安全配置，JWTSecret 为空时不启用鉴权
type SecurityConfig struct {
	JWTSecret          string   `yaml:"jwt_secret"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// ExecutorConfig 外部命令（ffmpeg/ffprobe/whisper）执行配置
type ExecutorConfig struct {
	Mode       string        `yaml:"mode"` // local, remote, fallback
	ServiceURL string        `yaml:"service_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WhisperConfig 语音识别配置
type WhisperConfig struct {
	Mode           string        `yaml:"mode"` // go-whisper, local, mock
	URL            string        `yaml:"url"`
	Model          string        `yaml:"model"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// KokoroConfig TTS 服务配置
type KokoroConfig struct {
	URL          string  `yaml:"url"`
	DefaultVoice string  `yaml:"default_voice"`
	Speed        float64 `yaml:"speed"`
}

// JimengConfig 图片生成浏览器自动化配置
type JimengConfig struct {
	Enabled     bool   `yaml:"enabled"`
	TargetURL   string `yaml:"target_url"`
	ProfileDir  string `yaml:"profile_dir"`
	DownloadDir string `yaml:"download_dir"`
	Headless    bool   `yaml:"headless"`
	ControlURL  string `yaml:"control_url"` // 非空时连接已有浏览器
}

// JobsConfig 渲染任务账本配置
type JobsConfig struct {
	DBPath string `yaml:"db_path"`
}

// CaptionConfig 字幕分段默认参数
type CaptionConfig struct {
	MaxLength int `yaml:"max_length"`
	Lines     int `yaml:"lines"`
}

// GlobalConfig 全局配置实例
var GlobalConfig *Config

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Env: "dev", Port: "8000", ShutdownTimeout: 10 * time.Second},
		Output: OutputConfig{Root: "./output", FontsDir: "./fonts"},
		Log:    LogConfig{Level: "info", Format: "console"},
		Security: SecurityConfig{
			CORSAllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Executor: ExecutorConfig{Mode: "local", ServiceURL: "http://localhost:9090", Timeout: 10 * time.Minute},
		Whisper:  WhisperConfig{Mode: "go-whisper", URL: "http://localhost:8082", Model: "ggml-base.bin", HealthInterval: 30 * time.Second},
		Kokoro:   KokoroConfig{URL: "http://localhost:8880", DefaultVoice: "af_heart", Speed: 1.0},
		Jimeng: JimengConfig{
			TargetURL:   "https://jimeng.jianying.com/ai-tool/generate",
			ProfileDir:  "./browser_profile",
			DownloadDir: "./output/images",
			Headless:    false,
		},
		Jobs:    JobsConfig{DBPath: "./output/jobs.db"},
		Caption: CaptionConfig{MaxLength: 22, Lines: 2},
	}
}

// LoadConfig 加载配置：默认值 -> CONFIG_FILE 指定的 YAML -> 环境变量
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

// mergeFile 将 YAML 文件覆盖到当前配置，文件中缺省的字段保持原值
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Env = getEnv("ENV", c.Server.Env)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Output.Root = getEnv("OUTPUT_ROOT", c.Output.Root)
	c.Output.FontsDir = getEnv("FONTS_DIR", c.Output.FontsDir)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Security.JWTSecret = getEnv("JWT_SECRET", c.Security.JWTSecret)
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.Security.CORSAllowedOrigins = parseStringList(v)
	}
	c.Executor.Mode = getEnv("EXECUTOR_MODE", c.Executor.Mode)
	c.Executor.ServiceURL = getEnv("DEPS_SERVICE_URL", c.Executor.ServiceURL)
	c.Whisper.Mode = getEnv("WHISPER_MODE", c.Whisper.Mode)
	c.Whisper.URL = getEnv("WHISPER_URL", c.Whisper.URL)
	c.Whisper.Model = getEnv("WHISPER_MODEL", c.Whisper.Model)
	c.Kokoro.URL = getEnv("KOKORO_URL", c.Kokoro.URL)
	c.Kokoro.DefaultVoice = getEnv("KOKORO_VOICE", c.Kokoro.DefaultVoice)
	c.Jimeng.ProfileDir = getEnv("JIMENG_PROFILE_DIR", c.Jimeng.ProfileDir)
	c.Jimeng.ControlURL = getEnv("JIMENG_CONTROL_URL", c.Jimeng.ControlURL)
	c.Jobs.DBPath = getEnv("JOBS_DB_PATH", c.Jobs.DBPath)

	var errs []string
	if v := os.Getenv("JIMENG_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid JIMENG_ENABLED: %s", v))
		}
		c.Jimeng.Enabled = b
	}
	if v := os.Getenv("JIMENG_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid JIMENG_HEADLESS: %s", v))
		}
		c.Jimeng.Headless = b
	}
	if v := os.Getenv("EXECUTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid EXECUTOR_TIMEOUT: %s", v))
		}
		c.Executor.Timeout = d
	}
	if v := os.Getenv("KOKORO_SPEED"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid KOKORO_SPEED: %s", v))
		}
		c.Kokoro.Speed = f
	}
	if len(errs) > 0 {
		return fmt.Errorf("environment parse failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ValidateConfig 验证配置的有效性，收集全部问题后一次性返回
func ValidateConfig(cfg *Config) error {
	var errors []string

	// 1. JWT Secret：可选，设置时长度至少 32
	if cfg.Security.JWTSecret != "" && len(cfg.Security.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters long")
	}
	if cfg.Server.Env == "production" && cfg.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required in production environment")
	}

	// 2. 端口验证
	if port, err := strconv.Atoi(cfg.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid PORT value: %s (must be 1-65535)", cfg.Server.Port))
	}

	// 3. 日志级别与格式
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[cfg.Log.Level] {
		errors = append(errors, fmt.Sprintf("invalid LOG_LEVEL: %s (must be: debug, info, warn, error)", cfg.Log.Level))
	}
	validLogFormats := map[string]bool{"console": true, "json": true}
	if !validLogFormats[cfg.Log.Format] {
		errors = append(errors, fmt.Sprintf("invalid LOG_FORMAT: %s (must be: console, json)", cfg.Log.Format))
	}

	// 4. 环境验证
	validEnvs := map[string]bool{"dev": true, "development": true, "staging": true, "production": true}
	if !validEnvs[cfg.Server.Env] {
		errors = append(errors, fmt.Sprintf("invalid ENV: %s (must be: dev, development, staging, production)", cfg.Server.Env))
	}

	// 5. 输出目录
	if strings.TrimSpace(cfg.Output.Root) == "" {
		errors = append(errors, "OUTPUT_ROOT must not be empty")
	}

	// 6. 执行器模式
	switch cfg.Executor.Mode {
	case "local":
	case "remote", "fallback":
		if cfg.Executor.ServiceURL == "" {
			errors = append(errors, fmt.Sprintf("DEPS_SERVICE_URL is required when EXECUTOR_MODE=%s", cfg.Executor.Mode))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid EXECUTOR_MODE: %s (must be: local, remote, fallback)", cfg.Executor.Mode))
	}

	// 7. Whisper 模式
	switch cfg.Whisper.Mode {
	case "go-whisper":
		if cfg.Whisper.URL == "" {
			errors = append(errors, "WHISPER_URL is required when WHISPER_MODE=go-whisper")
		}
	case "local", "mock":
	default:
		errors = append(errors, fmt.Sprintf("invalid WHISPER_MODE: %s (must be: go-whisper, local, mock)", cfg.Whisper.Mode))
	}

	// 8. 字幕默认参数
	if cfg.Caption.MaxLength <= 0 || cfg.Caption.Lines <= 0 {
		errors = append(errors, fmt.Sprintf("invalid caption defaults: max_length=%d lines=%d (must be positive)", cfg.Caption.MaxLength, cfg.Caption.Lines))
	}

	// 9. Kokoro 默认语速
	if cfg.Kokoro.Speed < 0.25 || cfg.Kokoro.Speed > 4 {
		errors = append(errors, fmt.Sprintf("invalid KOKORO_SPEED: %g (must be 0.25-4)", cfg.Kokoro.Speed))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// IsDevelopment 判断是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "dev" || c.Server.Env == "development"
}

// GetServerAddr 获取服务器监听地址
func (c *Config) GetServerAddr() string {
	return ":" + c.Server.Port
}

// PrintConfig 打印配置（脱敏）
func (c *Config) PrintConfig() string {
	return fmt.Sprintf(`Configuration Loaded:
  Environment: %s
  Server Port: %s
  Output:
    - Root: %s
    - Fonts: %s
  Logging:
    - Level: %s
    - Format: %s
    - File: %s
  Security:
    - JWT Secret: %s
    - CORS Origins: %v
  Executor:
    - Mode: %s
    - Service URL: %s
  Whisper:
    - Mode: %s
    - URL: %s
  Kokoro:
    - URL: %s
    - Default Voice: %s
  Jimeng:
    - Enabled: %t
    - Profile Dir: %s
  Jobs:
    - DB Path: %s`,
		c.Server.Env,
		c.Server.Port,
		c.Output.Root,
		c.Output.FontsDir,
		c.Log.Level,
		c.Log.Format,
		c.Log.File,
		maskSecret(c.Security.JWTSecret),
		c.Security.CORSAllowedOrigins,
		c.Executor.Mode,
		c.Executor.ServiceURL,
		c.Whisper.Mode,
		c.Whisper.URL,
		c.Kokoro.URL,
		c.Kokoro.DefaultVoice,
		c.Jimeng.Enabled,
		c.Jimeng.ProfileDir,
		c.Jobs.DBPath,
	)
}

// 辅助函数

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseStringList 解析逗号分隔的字符串列表
func parseStringList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// maskSecret 对敏感信息进行脱敏
func maskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}
