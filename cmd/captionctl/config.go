package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

// Config 保存 CLI 全局配置
type Config struct {
	ServerURL string
	Token     string
	Output    string
	Options   caption.Options
	Style     caption.Style
}

// LoadConfig 从命令行标志与环境变量加载配置（标志优先）
func LoadConfig(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		ServerURL: os.Getenv("MEDIAFLOW_SERVER_URL"),
		Token:     os.Getenv("MEDIAFLOW_TOKEN"),
		Style:     caption.DefaultStyle(),
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("server-url"); v != "" {
		cfg.ServerURL = v
	}
	if v, _ := flags.GetString("token"); v != "" {
		cfg.Token = v
	}
	cfg.Output, _ = flags.GetString("output")
	switch cfg.Output {
	case "", "auto":
		cfg.Output = "auto"
	case "json", "table":
	default:
		return nil, fmt.Errorf("unknown output format %q (auto, json or table)", cfg.Output)
	}

	cfg.Options.MaxLength, _ = flags.GetInt("max-length")
	cfg.Options.Lines, _ = flags.GetInt("lines")
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}

	if path, _ := flags.GetString("style"); path != "" {
		style, err := loadStylePreset(path, cfg.Style)
		if err != nil {
			return nil, err
		}
		cfg.Style = style
	}
	return cfg, nil
}

// loadStylePreset 读取 TOML 样式预设，未出现的键保留 base 的取值
func loadStylePreset(path string, base caption.Style) (caption.Style, error) {
	file, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("open style preset: %w", err)
	}
	defer file.Close()

	style := base
	decoder := toml.NewDecoder(file).DisallowUnknownFields()
	if err := decoder.Decode(&style); err != nil {
		return base, fmt.Errorf("parse style preset %s: %w", path, err)
	}
	if err := style.Validate(); err != nil {
		return base, fmt.Errorf("style preset %s: %w", path, err)
	}
	return style, nil
}

// addGlobalFlags 为 root 命令添加全局标志
func addGlobalFlags(cmd *cobra.Command) {
	defaults := caption.DefaultConvertOptions()
	cmd.PersistentFlags().String("server-url", "", "mediaflow 服务地址，设置后分段请求交由服务端处理 (env: MEDIAFLOW_SERVER_URL)")
	cmd.PersistentFlags().String("token", "", "认证令牌 (env: MEDIAFLOW_TOKEN)")
	cmd.PersistentFlags().StringP("output", "o", "auto", "输出格式: auto / json / table")
	cmd.PersistentFlags().String("style", "", "TOML 样式预设文件")
	cmd.PersistentFlags().Int("max-length", defaults.MaxLength, "每行最大字符数")
	cmd.PersistentFlags().Int("lines", defaults.Lines, "每段行数")
}
