package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/practice-audit/internal/export"
	"github.com/sells-group/practice-audit/internal/model"
	"github.com/sells-group/practice-audit/internal/pipeline"
	"github.com/sells-group/practice-audit/internal/resilience"
)

// auditBackoff is the delay before the first whole-run restart.
var auditBackoff = 2 * time.Second

var (
	auditSubject  model.Subject
	auditFormat   string
	auditAttempts int
	auditXLSX     string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run an audit for a single practice",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if auditFormat != "json" && auditFormat != "yaml" {
			return eris.Errorf("unsupported format %q (json or yaml)", auditFormat)
		}

		env, err := initEnv(ctx, nil)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := runAudit(ctx, env.Pipeline, auditSubject, auditAttempts)
		if err != nil {
			return eris.Wrap(err, "audit")
		}

		zap.L().Info("audit complete",
			zap.String("subject", auditSubject.Name),
			zap.String("technical", string(report.Technical.Severity)),
			zap.String("branding", string(report.Branding.Severity)),
			zap.String("market", string(report.Market.Severity)),
		)

		if auditXLSX != "" {
			if err := export.SaveCampaign(auditXLSX, report.GoogleAdsCSV); err != nil {
				return err
			}
			zap.L().Info("campaign workbook written", zap.String("path", auditXLSX))
		}

		return writeReport(os.Stdout, report, auditFormat)
	},
}

// auditRunner is the part of the pipeline the audit command drives.
type auditRunner interface {
	RunAudit(ctx context.Context, subject model.Subject) (*model.AuditReport, error)
}

// runAudit runs a whole audit, restarting it from collection while the
// failure is transient and attempts remain.
func runAudit(ctx context.Context, p auditRunner, subject model.Subject, attempts int) (*model.AuditReport, error) {
	policy := resilience.WithAttempts(attempts)
	policy.InitialBackoff = auditBackoff
	policy.ShouldRetry = pipeline.Retryable
	policy.OnRetry = resilience.RetryLogger("pipeline", "audit")

	return resilience.DoVal(ctx, policy, func(ctx context.Context) (*model.AuditReport, error) {
		return p.RunAudit(ctx, subject)
	})
}

// writeReport encodes v as indented JSON or YAML.
func writeReport(w io.Writer, v any, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	}
}

func init() {
	auditCmd.Flags().StringVar(&auditSubject.Name, "name", "", "practice or professional name (required)")
	auditCmd.Flags().StringVar(&auditSubject.Locality, "locality", "", "city used for the market search")
	auditCmd.Flags().StringVar(&auditSubject.Category, "category", "", "specialty used for the market search")
	auditCmd.Flags().StringVar(&auditSubject.URL, "url", "", "practice website URL")
	auditCmd.Flags().StringVar(&auditFormat, "format", "json", "report format (json, yaml)")
	auditCmd.Flags().IntVar(&auditAttempts, "attempts", 1, "whole-run attempts on transient engine failures")
	auditCmd.Flags().StringVar(&auditXLSX, "campaign-xlsx", "", "also write the ad campaign as an XLSX workbook")
	_ = auditCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(auditCmd)
}
