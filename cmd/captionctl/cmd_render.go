package main

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

func newRenderCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "render [segments.json]",
		Short: "把字幕段渲染为 ASS",
		Long:  "读取字幕段（数组或 segment 命令的 JSON 输出），按样式渲染为 ASS。",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			segments, err := decodeList[caption.Segment](data, "segments")
			if err != nil {
				return err
			}
			if err := validateSegments(segments); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := caption.RenderASS(&buf, segments, cfg.Style); err != nil {
				return err
			}
			return writeOutput(cmd, buf.Bytes())
		},
	}
	c.Flags().StringP("out", "O", "", "输出 ASS 文件（默认标准输出）")
	return c
}
