package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsync-cli/internal/crm"
	"github.com/sells-group/leadsync-cli/internal/model"
	"github.com/sells-group/leadsync-cli/internal/syncrun"
	"github.com/sells-group/leadsync-cli/pkg/surfe"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one enrichment sync from a source to a target CRM",
	Long:  "Pulls records from the source, submits one bulk enrichment job, waits for completion, then scores each result and creates or updates it in the target without duplicates.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}

		sourceName, _ := cmd.Flags().GetString("source")
		targetName, _ := cmd.Flags().GetString("target")
		webinarID, _ := cmd.Flags().GetString("webinar-id")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		deals, _ := cmd.Flags().GetBool("deals")
		highValue, _ := cmd.Flags().GetBool("high-value")
		minScore, _ := cmd.Flags().GetInt("min-score")
		if minScore < 0 {
			minScore = cfg.Scoring.MinScore
		}

		source, err := buildSource(sourceName, webinarID)
		if err != nil {
			return err
		}
		target, err := buildTarget(targetName)
		if err != nil {
			return err
		}
		enricher, err := initSurfe()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		runCfg := syncrun.Config{
			MinScore:       minScore,
			BaseDealValue:  cfg.Scoring.BaseDealValue,
			Weights:        cfg.Scoring.Weights,
			Multipliers:    cfg.Scoring.Multipliers,
			Territory:      cfg.Scoring.Territory,
			DefaultOwner:   cfg.Scoring.DefaultOwner,
			DenyDomains:    cfg.Scoring.DenyDomains,
			HighValueTopic: highValue,
			CreateDeals:    deals,
			DryRun:         dryRun,
			MaxBatch:       cfg.Surfe.MaxBatch,
			PollOpts: []surfe.PollOption{
				surfe.WithPollInterval(time.Duration(cfg.Surfe.PollIntervalSecs) * time.Second),
				surfe.WithMaxWait(time.Duration(cfg.Surfe.MaxWaitSecs) * time.Second),
			},
		}

		orch := syncrun.New(runCfg, source, enricher, target, st)
		summary, err := orch.Run(ctx)
		if summary != nil {
			fmt.Fprint(os.Stdout, syncrun.FormatReport(sourceName, targetName, summary))
		}
		if err != nil {
			return err
		}

		markNotionSynced(ctx, source, summary, dryRun)
		return nil
	},
}

// markNotionSynced moves successfully synced Notion leads out of the queue
// so the next run does not pick them up again.
func markNotionSynced(ctx context.Context, source syncrun.Source, summary *model.RunSummary, dryRun bool) {
	ns, ok := source.(*crm.NotionSource)
	if !ok || dryRun || summary == nil {
		return
	}

	var pageIDs []string
	for _, out := range summary.Outcomes {
		if out.ExternalID != "" {
			pageIDs = append(pageIDs, out.ExternalID)
		}
	}
	if len(pageIDs) == 0 {
		return
	}
	if err := ns.MarkSynced(ctx, pageIDs); err != nil {
		zap.L().Warn("some notion leads were not marked synced", zap.Error(err))
	}
}

func init() {
	syncCmd.Flags().String("source", "", "record source: hubspot, pipedrive, zoom, or notion (required)")
	syncCmd.Flags().String("target", "", "write target: hubspot, pipedrive, or salesforce (required)")
	syncCmd.Flags().String("webinar-id", "", "zoom webinar to pull registrants from")
	syncCmd.Flags().Bool("dry-run", false, "read from the target but write nothing")
	syncCmd.Flags().Bool("deals", false, "create a deal and follow-up activity for each new person")
	syncCmd.Flags().Bool("high-value", false, "apply the high-value topic bonus to deal values")
	syncCmd.Flags().Int("min-score", -1, "minimum lead score to sync (default from config)")
	_ = syncCmd.MarkFlagRequired("source")
	_ = syncCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(syncCmd)
}
