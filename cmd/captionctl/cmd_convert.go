package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

func newConvertCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "convert [input.vtt]",
		Short: "WebVTT 转为带样式的 ASS 字幕",
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
			lang, _ := cmd.Flags().GetString("lang")

			var buf bytes.Buffer
			result, err := caption.ConvertVTT(string(data), caption.ConvertOptions{
				LanguageHint: lang,
				Options:      cfg.Options,
				Style:        cfg.Style,
			}, &buf)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "converted %d cues into %d segments (language %s)\n",
				result.Cues, len(result.Segments), result.Language)
			return nil
		},
	}
	c.Flags().String("lang", caption.HintAuto, "语言提示: auto / en / cjk")
	c.Flags().StringP("out", "O", "", "输出 ASS 文件（默认标准输出）")
	return c
}
