// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"notioncal/internal/reconcile"
	"notioncal/internal/service"
)

// Separator closes the per-target section of a report.
const Separator = "------------"

// FormatReport writes one line per target followed by the run totals.
// Format: "{CALENDAR}: {N} records[, {N} {OUTCOME}...][; error: {ERR}]\n"
// Only non-zero outcomes are printed, in reconcile.Outcomes order.
func FormatReport(w io.Writer, report reconcile.Report) {
	for _, t := range report.Targets {
		FormatTarget(w, t)
	}
	fmt.Fprintln(w, Separator)

	var totals []string
	for _, o := range reconcile.Outcomes() {
		if n := report.Count(o); n > 0 {
			totals = append(totals, fmt.Sprintf("%d %s", n, o))
		}
	}
	if len(totals) == 0 {
		totals = append(totals, "no changes")
	}
	fmt.Fprintf(w, "total: %s\n", strings.Join(totals, ", "))

	if !report.Since.IsZero() {
		fmt.Fprintf(w, "since: %s\n", report.Since.UTC().Format(time.RFC3339))
	}
	if report.Critical != nil {
		fmt.Fprintf(w, "aborted: %v\n", report.Critical)
	}
	fmt.Fprintf(w, "took: %s\n", report.Finished.Sub(report.Started).Round(time.Millisecond))
}

// FormatTarget writes the summary line of one target.
func FormatTarget(w io.Writer, t reconcile.TargetResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d records", normalizeTitle(t.Target.CalendarName), t.Records)
	for _, o := range reconcile.Outcomes() {
		if n := t.Outcomes[o]; n > 0 {
			fmt.Fprintf(&b, ", %d %s", n, o)
		}
	}
	if t.Err != nil {
		fmt.Fprintf(&b, "; error: %s", normalizeTitle(t.Err.Error()))
	}
	fmt.Fprintln(w, b.String())
}

// FormatCalendar formats a calendar line for the calendars command.
// Format: "{NAME}  {ID}\n"
func FormatCalendar(w io.Writer, c service.CalendarInfo) {
	fmt.Fprintf(w, "%s  %s\n", normalizeTitle(c.Name), c.ID)
}

// normalizeTitle keeps a display value on one line.
// Empty or whitespace-only values become "(untitled)".
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
