package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "captionctl",
		Short:         "字幕离线工具：分段、VTT 转 ASS、渲染 ASS",
		Long:          "在本地（或通过 --server-url 调用 mediaflow 服务）完成字幕分段与 ASS 渲染。",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	addGlobalFlags(root)

	root.AddCommand(newSegmentCmd())
	root.AddCommand(newConvertCmd())
	root.AddCommand(newRenderCmd())
	return root
}
