package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/practice-audit/internal/engine"
	"github.com/sells-group/practice-audit/pkg/google"
)

// Probe outcomes.
const (
	probeOK      = "ok"
	probeWarning = "warning"
	probeError   = "error"
)

// probeImage is a 1x1 PNG used to exercise the Vision API.
const probeImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var (
	probeURL     string
	probeTimeout time.Duration
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that every upstream API answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateKeys(cfg); err != nil {
			return err
		}

		results := runProbes(cmd.Context(), newGoogleClient(), newEngine(), probeURL, probeTimeout)
		formatProbes(os.Stdout, results)

		for _, r := range results {
			if r.Status == probeError {
				return eris.Errorf("probe: %s unavailable", r.API)
			}
		}
		return nil
	},
}

// probeResult is the outcome of one API check.
type probeResult struct {
	API     string
	Status  string
	Detail  string
	Latency time.Duration
}

// phaseRunner is the engine call the probe exercises.
type phaseRunner interface {
	RunPhase(ctx context.Context, req engine.Request) (*engine.Result, error)
}

type probeCheck struct {
	api string
	run func(ctx context.Context) (status, detail string, err error)
}

func probeChecks(g google.Client, e phaseRunner, target string) []probeCheck {
	return []probeCheck{
		{"engine", func(ctx context.Context) (string, string, error) {
			res, err := e.RunPhase(ctx, engine.Request{Phase: "probe", Role: "Responda apenas: OK", Task: "status"})
			if err != nil {
				return "", "", err
			}
			return probeOK, res.Model, nil
		}},
		{"pagespeed", func(ctx context.Context) (string, string, error) {
			resp, err := g.RunPagespeed(ctx, target)
			if err != nil {
				return "", "", err
			}
			score, ok := resp.PerformanceScore()
			if !ok {
				return probeWarning, "no performance score", nil
			}
			return probeOK, fmt.Sprintf("score %d", score), nil
		}},
		{"crux", func(ctx context.Context) (string, string, error) {
			_, err := g.QueryRecord(ctx, target)
			if google.IsStatus(err, http.StatusNotFound) {
				return probeWarning, "insufficient field data", nil
			}
			if err != nil {
				return "", "", err
			}
			return probeOK, "field data available", nil
		}},
		{"safe_browsing", func(ctx context.Context) (string, string, error) {
			resp, err := g.FindThreatMatches(ctx, target)
			if err != nil {
				return "", "", err
			}
			return probeOK, fmt.Sprintf("%d matches", len(resp.Matches)), nil
		}},
		{"places", func(ctx context.Context) (string, string, error) {
			resp, err := g.TextSearch(ctx, "Ortopedista em São Paulo", 1)
			if err != nil {
				return "", "", err
			}
			if len(resp.Places) == 0 {
				return probeWarning, "no places returned", nil
			}
			return probeOK, resp.Places[0].DisplayName.Text, nil
		}},
		{"vision", func(ctx context.Context) (string, string, error) {
			res, err := g.Annotate(ctx, probeImage)
			if err != nil {
				return "", "", err
			}
			return probeOK, fmt.Sprintf("%d labels", len(res.Labels)), nil
		}},
		{"language", func(ctx context.Context) (string, string, error) {
			resp, err := g.AnalyzeSentiment(ctx, "Atendimento excelente e equipe muito atenciosa.")
			if err != nil {
				return "", "", err
			}
			if resp.DocumentSentiment == nil {
				return probeWarning, "no document sentiment", nil
			}
			return probeOK, fmt.Sprintf("score %.2f", resp.DocumentSentiment.Score), nil
		}},
		{"translate", func(ctx context.Context) (string, string, error) {
			text, err := g.Translate(ctx, "hello", "pt")
			if err != nil {
				return "", "", err
			}
			return probeOK, text, nil
		}},
	}
}

// runProbes runs every check concurrently, each bounded by timeout. Results
// keep the check order.
func runProbes(ctx context.Context, g google.Client, e phaseRunner, target string, timeout time.Duration) []probeResult {
	checks := probeChecks(g, e, target)
	results := make([]probeResult, len(checks))

	var eg errgroup.Group
	for i, c := range checks {
		eg.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			status, detail, err := c.run(callCtx)
			r := probeResult{API: c.api, Status: status, Detail: detail, Latency: time.Since(start)}
			if err != nil {
				r.Status = probeError
				r.Detail = err.Error()
				zap.L().Warn("probe: check failed", zap.String("api", c.api), zap.Error(err))
			}
			results[i] = r
			return nil
		})
	}
	_ = eg.Wait() // failures are recorded per result
	return results
}

func formatProbes(out io.Writer, results []probeResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "API\tSTATUS\tLATENCY\tDETAIL")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.API, r.Status, r.Latency.Round(time.Millisecond), ellipsize(r.Detail, 60))
	}
	_ = w.Flush()
}

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "https://www.google.com", "site used for the PageSpeed, CrUX and Safe Browsing checks")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 60*time.Second, "per-check timeout")
	rootCmd.AddCommand(probeCmd)
}
