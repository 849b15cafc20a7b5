package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ternarybob/quire/internal/services/corpus"
	"github.com/ternarybob/quire/internal/services/index"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the normalized corpus and summarize it",
	Long:  `Reads the data directory back against the index, groups articles by category in declared order and reports every file that was skipped.`,
	RunE:  runLoad,
}

var loadShowText bool

func init() {
	loadCmd.Flags().BoolVar(&loadShowText, "text", false, "Print each article's sentences")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	rules, rowErrs, err := index.NewService(logger).LoadRules(config.IndexPath())
	if err != nil {
		return err
	}
	if len(rowErrs) > 0 {
		logger.Warn().Int("rejected", len(rowErrs)).Msg("Index rows rejected, their articles are ignored")
	}

	c, warnings, err := corpus.NewLoader(newObserver(), logger).Load(ctx, config.DataPath(), rules)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nSORT\tCATEGORY\tARTICLES")
	for _, cat := range c.Categories() {
		fmt.Fprintf(w, "%d\t%s\t%d\n", c.Sort[cat], cat, len(c.Articles[cat]))
	}
	w.Flush()

	if loadShowText {
		for _, cat := range c.Categories() {
			for _, title := range c.Titles(cat) {
				fmt.Printf("\n== %s / %s ==\n%s\n", cat, title, c.Articles[cat][title])
			}
		}
	}

	if len(warnings) > 0 {
		fmt.Printf("\n%d warnings:\n", len(warnings))
		for _, warn := range warnings {
			fmt.Printf("  [%s] %s: %s\n", warn.Kind, warn.File, warn.Message)
		}
	}

	fmt.Printf("\n%d articles in %d categories\n", c.Size(), len(c.Sort))
	return nil
}
