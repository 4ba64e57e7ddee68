package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/aiagentsaz/mediaflow/pkg/caption"
)

// segmentsOutput 与服务端 /caption/segment 的响应一致，可直接作为 render 的输入
type segmentsOutput struct {
	Mode     caption.Mode      `json:"mode"`
	Count    int               `json:"count"`
	Segments []caption.Segment `json:"segments"`
}

// isTerminal 判断输出是否为终端
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printSegments 按格式输出分段结果；auto 模式下终端输出表格，否则输出 JSON
func printSegments(w io.Writer, format string, out segmentsOutput) error {
	if format == "table" || (format == "auto" && isTerminal(w)) {
		_, err := fmt.Fprintln(w, renderSegmentTable(out.Segments))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderSegmentTable(segments []caption.Segment) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Start", "End", "Text"})
	for i, seg := range segments {
		tw.AppendRow(table.Row{
			i + 1,
			caption.FormatASSTime(seg.Start),
			caption.FormatASSTime(seg.End),
			seg.Lines(" / "),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tw.Render()
}
