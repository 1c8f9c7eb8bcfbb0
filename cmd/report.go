package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sells-group/answer-engine/internal/model"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen, color.Bold).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}

// printMathSummary prints path success rates and the reconciliation method
// distribution of a math batch.
func printMathSummary(w io.Writer, s model.RunStats) {
	fmt.Fprintln(w, bold("Math batch summary"))
	fmt.Fprintf(w, "  Questions:    %d\n", s.Total)
	fmt.Fprintf(w, "  PAL success:  %d (%.1f%%)\n", s.PALSuccess, pct(s.PALSuccess, s.Total))
	fmt.Fprintf(w, "  CoT success:  %d (%.1f%%)\n", s.CoTSuccess, pct(s.CoTSuccess, s.Total))
	fmt.Fprintf(w, "  Both agree:   %s\n", green(fmt.Sprintf("%d (%.1f%%)", s.BothAgree, pct(s.BothAgree, s.Total))))
	fmt.Fprintf(w, "  Both failed:  %s\n", red(fmt.Sprintf("%d (%.1f%%)", s.BothFail, pct(s.BothFail, s.Total))))
	fmt.Fprintf(w, "  Coverage:     %.1f%%\n", 100*s.Coverage())
	if s.Failed > 0 {
		fmt.Fprintf(w, "  Errors:       %s\n", red(s.Failed))
	}
	if len(s.Methods) == 0 {
		return
	}

	fmt.Fprintln(w, bold("Methods"))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range model.Methods {
		n, ok := s.Methods[m]
		if !ok {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", cyan(string(m)), n, pct(n, s.Total))
	}
	_ = tw.Flush()
}

// printQASummary prints answer counts and mean confidence of a QA batch.
func printQASummary(w io.Writer, s model.RunStats, results []model.QAResult) {
	var conf float64
	sc := 0
	for _, r := range results {
		conf += r.Confidence
		if r.SelfConsistency {
			sc++
		}
	}
	mean := 0.0
	if len(results) > 0 {
		mean = conf / float64(len(results))
	}

	fmt.Fprintln(w, bold("QA batch summary"))
	fmt.Fprintf(w, "  Questions:        %d\n", s.Total)
	fmt.Fprintf(w, "  Answered:         %s\n", green(fmt.Sprintf("%d (%.1f%%)", s.Succeeded, pct(s.Succeeded, s.Total))))
	fmt.Fprintf(w, "  Unanswered:       %s\n", red(s.Failed))
	fmt.Fprintf(w, "  Self-consistency: %d\n", sc)
	fmt.Fprintf(w, "  Mean confidence:  %.2f\n", mean)
}

// formatRunsList renders runs as an aligned table.
func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tTOTAL\tSUCCEEDED\tINPUT\tCREATED")
	for _, r := range runs {
		total, ok := "-", "-"
		if r.Stats != nil {
			total = fmt.Sprint(r.Stats.Total)
			ok = fmt.Sprint(r.Stats.Succeeded)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Kind,
			statusLabel(r.Status),
			total,
			ok,
			r.Input,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

func statusLabel(s model.RunStatus) string {
	switch s {
	case model.RunStatusComplete:
		return green(string(s))
	case model.RunStatusFailed:
		return red(string(s))
	default:
		return string(s)
	}
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
