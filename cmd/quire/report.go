package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/models"
	"github.com/ternarybob/quire/internal/storage"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "List a run's OCR articles by ascending confidence",
	Long:  `Shows the articles of the latest run (or the given run) worst first, so proofreading starts where recognition was weakest. Use --history to list recorded runs.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

var (
	reportHistory int
	reportAll     bool
)

func init() {
	reportCmd.Flags().IntVar(&reportHistory, "history", 0, "List the N most recent runs instead")
	reportCmd.Flags().BoolVar(&reportAll, "all", false, "Include text sources and failed rules")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	runs, err := storage.NewRunStorage(logger, config)
	if err != nil {
		return err
	}
	if runs == nil {
		return fmt.Errorf("%w: run ledger is disabled ([storage.badger] enabled = false)", common.ErrBadInput)
	}
	defer closeRuns(runs)

	if reportHistory > 0 {
		list, err := runs.ListRuns(ctx, reportHistory)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSTARTED\tRULES\tFAILED\tRASTERIZED\tMEAN CONF")
		for _, run := range list {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2f\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"),
				len(run.Results), run.Failed(), run.Rasterized, run.MeanOCRConf)
		}
		return w.Flush()
	}

	var run *models.RunRecord
	if len(args) == 1 {
		if run, err = runs.GetRun(ctx, args[0]); err != nil {
			return err
		}
	} else {
		list, err := runs.ListRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No runs recorded yet")
			return nil
		}
		run = list[0]
	}

	results := proofreadingOrder(run.Results, reportAll)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Run %s started %s\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "CONF\tPAGES\tFAULTS\tARTICLE\tFILE")
	for _, res := range results {
		conf := "-"
		if res.OCR && res.Status == models.RuleStatusDone {
			conf = fmt.Sprintf("%.2f", res.Confidence)
		}
		file := res.OutputPath
		if res.Status != models.RuleStatusDone {
			file = string(res.Status) + ": " + res.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", conf, res.Pages, res.LineFaults, res.Key, file)
	}
	return w.Flush()
}

// proofreadingOrder keeps completed OCR articles (all results with includeAll)
// sorted by ascending confidence; non-OCR results follow.
func proofreadingOrder(results []models.RuleResult, includeAll bool) []models.RuleResult {
	out := make([]models.RuleResult, 0, len(results))
	for _, res := range results {
		if includeAll || (res.OCR && res.Status == models.RuleStatusDone) {
			out = append(out, res)
		}
	}
	rank := func(r models.RuleResult) int {
		switch {
		case r.Status != models.RuleStatusDone:
			return 0
		case r.OCR:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i]), rank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i].OCR && out[i].Confidence < out[j].Confidence
	})
	return out
}
