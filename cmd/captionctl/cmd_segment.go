package main

import (
	"github.com/spf13/cobra"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

func newSegmentCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "segment [tokens.json]",
		Short: "把带时间戳的词/句重新切分为字幕段",
		Long: "读取 token 列表（数组或 {\"tokens\": [...]}），按 word 或 sentence 模式切分。\n" +
			"JSON 输出可直接通过管道交给 render 命令。",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			modeName, _ := cmd.Flags().GetString("mode")
			mode, err := caption.ParseMode(modeName)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			tokens, err := decodeList[caption.Token](data, "tokens")
			if err != nil {
				return err
			}

			var out segmentsOutput
			if cfg.ServerURL != "" {
				body := map[string]any{
					"tokens":     tokens,
					"mode":       string(mode),
					"max_length": cfg.Options.MaxLength,
					"lines":      cfg.Options.Lines,
				}
				if err := NewAPIClient(cfg).PostJSON(cmd.Context(), "/caption/segment", body, &out); err != nil {
					return err
				}
			} else {
				segments, err := caption.SegmentTokens(tokens, mode, cfg.Options)
				if err != nil {
					return err
				}
				if segments == nil {
					segments = []caption.Segment{}
				}
				out = segmentsOutput{Mode: mode, Count: len(segments), Segments: segments}
			}
			return printSegments(cmd.OutOrStdout(), cfg.Output, out)
		},
	}
	c.Flags().StringP("mode", "m", string(caption.ModeWord), "分段模式: word / sentence")
	return c
}
