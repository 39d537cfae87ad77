package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/mgpai22/trimsub/internal/alignment"
	"github.com/mgpai22/trimsub/internal/llm"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderTable draws a rounded table on a terminal and tab separated lines
// everywhere else, so piped output stays easy to grep.
func renderTable(w io.Writer, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	if !isTerminal(w) {
		var sb strings.Builder
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		return sb.String()
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

func violationRows(violations []alignment.Violation) [][]string {
	rows := make([][]string, 0, len(violations))
	for _, v := range violations {
		prev := ""
		if v.PrevIndex != 0 {
			prev = fmt.Sprint(v.PrevIndex)
		}
		rows = append(rows, []string{
			v.Kind.String(),
			fmt.Sprint(v.Index),
			prev,
			v.Start.String(),
			v.End.String(),
			v.String(),
		})
	}
	return rows
}

func writeViolations(w io.Writer, violations []alignment.Violation) {
	if len(violations) == 0 {
		fmt.Fprintln(w, "Validation passed: no overlaps or unsorted subtitles found.")
		return
	}

	if isTerminal(w) {
		fmt.Fprint(w, renderTable(
			w,
			[]string{"Kind", "Index", "Prev", "Start", "End", "Detail"},
			violationRows(violations),
			[]columnAlignment{alignLeft, alignRight, alignRight},
		))
	} else {
		for _, v := range violations {
			fmt.Fprintln(w, v.String())
		}
	}

	summary := alignment.Summary(violations)
	kinds := make([]alignment.Kind, 0, len(summary))
	for k := range summary {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%d %s", summary[k], k))
	}
	fmt.Fprintf(w, "Validation failed: %s\n", strings.Join(parts, ", "))
}

func usageRows(session *llm.Session) [][]string {
	stages := session.Stages()
	names := make([]string, 0, len(stages))
	for name := range stages {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, usageRow(name, stages[name]))
	}
	return append(rows, usageRow("total", session.Total()))
}

func usageRow(name string, u llm.Usage) []string {
	return []string{
		name,
		u.Model,
		fmt.Sprint(u.InputTokens),
		fmt.Sprint(u.OutputTokens),
		fmt.Sprintf("$%.4f", u.Cost),
	}
}

func writeUsage(w io.Writer, session *llm.Session) {
	if session == nil || session.Calls() == 0 {
		return
	}
	fmt.Fprint(w, renderTable(
		w,
		[]string{"Stage", "Model", "Input", "Output", "Cost"},
		usageRows(session),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
}
