package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/quire/internal/models"
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Rasterize, recognize and normalize every article in the index",
	Long:  `Reads the index, renders the requested PDF pages (reusing cached page images), runs line OCR and writes one annotated article per index row to the data directory. Text sources are extracted without OCR.`,
	RunE:  runPreprocess,
}

var preprocessStrict bool

func init() {
	preprocessCmd.Flags().BoolVar(&preprocessStrict, "strict", false, "Exit non-zero when any rule fails")
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	svc, runs, err := newPreprocessor()
	if err != nil {
		return err
	}
	defer closeRuns(runs)

	run, err := svc.Run(ctx, newObserver())
	if run != nil {
		printRun(run)
	}
	if err != nil {
		if isCancelled(err) {
			logger.Warn().Msg("Preprocessing interrupted")
		}
		return err
	}

	if preprocessStrict && (run.Failed() > 0 || len(run.RowErrors) > 0) {
		return fmt.Errorf("%d rules failed, %d index rows rejected", run.Failed(), len(run.RowErrors))
	}
	return nil
}

func printRun(run *models.RunRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "\nRun %s (%s)\n", run.ID, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(w, "STATUS\tCONF\tPAGES\tARTICLE\tDETAIL")
	for _, res := range run.Results {
		conf := "-"
		if res.OCR {
			conf = fmt.Sprintf("%.2f", res.Confidence)
		}
		detail := res.Error
		if detail == "" {
			detail = res.OutputPath
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", res.Status, conf, res.Pages, res.Key, detail)
	}
	for _, rowErr := range run.RowErrors {
		fmt.Fprintf(w, "%s\t-\t-\t-\t%s\n", "rejected", rowErr)
	}
	w.Flush()

	fmt.Printf("\nRasterizer invocations: %d, mean OCR confidence: %.2f, failed: %d\n",
		run.Rasterized, run.MeanOCRConf, run.Failed())
}
