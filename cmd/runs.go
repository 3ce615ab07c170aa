package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/monitoring"
	"github.com/sells-group/practice-audit/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect audit run history",
	Long:  "Commands for listing, viewing, and summarizing audit runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		subject, _ := cmd.Flags().GetString("subject")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		}
		if subject != "" {
			filter.Subject = model.Subject{Name: subject}.Slug()
		}

		runs, err := st.ListRuns(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run with its phases and report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		phases, err := st.ListPhases(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		format, _ := cmd.Flags().GetString("format")
		return writeReport(os.Stdout, runView{Run: run, Phases: phases}, format)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := requireStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		hours := int(since.Hours())
		if hours < 1 {
			hours = 1
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, snap)
		return nil
	},
}

// requireStore opens the run store, failing when persistence is disabled.
func requireStore(cmd *cobra.Command) (store.Store, error) {
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("no run store configured (store.driver)")
	}
	return st, nil
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (queued, collecting, analyzing, synthesizing, complete, failed)")
	runsListCmd.Flags().String("subject", "", "filter by subject name or slug")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsShowCmd.Flags().String("format", "json", "output format (json, yaml)")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSUBJECT\tSTATUS\tFAILED_PHASE\tCREATED\tDURATION\tCOST")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t------------\t-------\t--------\t----")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		var failedPhase, cost string
		if r.Result != nil {
			failedPhase = r.Result.FailedPhase
			cost = fmt.Sprintf("$%.4f", r.Result.CostUSD)
		}

		subject := ellipsize(r.Subject.Name, 30)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			subject,
			r.Status,
			failedPhase,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
			cost,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes a run-history snapshot to w.
func formatRunStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.AuditTotal)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.AuditComplete)
	_, _ = fmt.Fprintf(w, "Failed:\t%d (%.1f%%)\n", s.AuditFailed, s.AuditFailRate*100)
	for _, phase := range sortedKeys(s.FailedPhases) {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", phase, s.FailedPhases[phase])
	}
	_, _ = fmt.Fprintf(w, "In flight:\t%d\n", s.AuditInFlight)
	_, _ = fmt.Fprintf(w, "Degraded:\t%d (%.1f%%)\n", s.DegradedRuns, s.DegradedRate*100)
	fallbacks := make(map[string]int, len(s.FallbackSignals))
	for cat, n := range s.FallbackSignals {
		fallbacks[string(cat)] = n
	}
	for _, cat := range sortedKeys(fallbacks) {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", cat, fallbacks[cat])
	}
	_, _ = fmt.Fprintf(w, "Avg tokens:\t%d\n", s.AuditAvgTokens)
	_, _ = fmt.Fprintf(w, "Total cost:\t$%.4f\n", s.AuditCostUSD)
	_ = w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// truncateID returns the first 8 characters of a UUID for compact display.
// ellipsize shortens s to at most n runes, ending in "..." when cut.
func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
