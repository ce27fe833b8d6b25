// Package render prints annotated fleet status as terminal tables.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/vietddude/lsprobe/internal/core/domain"
)

var (
	headerColor = color.New(color.FgBlue, color.Bold)
	critColor   = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow)
)

// StatusTable writes the per-node status table. Rows with head or
// shard lag are red, rows with time lag or unknown archive depth are
// yellow.
func StatusTable(w io.Writer, statuses []domain.NodeStatus) {
	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', 0)

	fmt.Fprintln(tw, "#\tHOST\tPORT\tCONNECT\tREQUEST\tPING\tVERSION\tTIME\tHEAD SEQNO\tARCHIVE DEPTH")
	for i := range statuses {
		s := &statuses[i]
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Index,
			s.Host,
			s.Port,
			msCell(s.ConnectMS),
			msCell(s.RequestMS),
			pingCell(s.PingMS),
			orDash(stringVal(s.Version)),
			timeCell(s),
			headCell(s),
			orDash(s.ArchiveDepthLabel),
		)
	}
	_ = tw.Flush()

	// Colors are applied per formatted line: escape codes inside cells
	// would break tabwriter's width accounting.
	for i, line := range tableLines(buf) {
		switch {
		case i == 0:
			headerColor.Fprintln(w, line)
		case statuses[i-1].HeadLag || statuses[i-1].ShardLag:
			critColor.Fprintln(w, line)
		case statuses[i-1].TimeLag || statuses[i-1].ArchiveUnknown:
			warnColor.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

// LegendTable writes one row per marker present in the result set.
func LegendTable(w io.Writer, rows []domain.LegendRow) {
	if len(rows) == 0 {
		return
	}

	var buf bytes.Buffer
	tw := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "MARK\tDESCRIPTION")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row.Mark, row.Description)
	}
	_ = tw.Flush()

	for i, line := range tableLines(buf) {
		if i == 0 {
			headerColor.Fprintln(w, line)
			continue
		}
		if rows[i-1].Severity == domain.SeverityCrit {
			critColor.Fprintln(w, line)
		} else {
			warnColor.Fprintln(w, line)
		}
	}
}

func tableLines(buf bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func msCell(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d ms", *v)
}

func pingCell(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f ms", *v)
}

func timeCell(s *domain.NodeStatus) string {
	if s.TimeLabel != "" {
		return s.TimeLabel
	}
	if s.TimeValue != nil {
		return strconv.FormatInt(*s.TimeValue, 10)
	}
	return "-"
}

func headCell(s *domain.NodeStatus) string {
	if s.HeadLabel != "" {
		return s.HeadLabel
	}
	if s.HeadSeqno != nil {
		return strconv.FormatUint(*s.HeadSeqno, 10)
	}
	return "-"
}

func stringVal(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
