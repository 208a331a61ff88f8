package cmd

import (
	"fmt"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/hpylm-hmm/internal/tagset"
)

var (
	inspectTag      int
	inspectTopN     int
	inspectMinCount int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print diagnostic information about a saved model",
	Long: `Inspect loads a saved model directory and reports, for one tag,
its most typical words ranked by seated-customer count, plus a
per-depth breakdown of how many tokens the tag model's context tree
has absorbed.

Example:
  hpylm-hmm inspect --config hpylm-hmm.yaml --tag 3`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVar(&inspectTag, "tag", 0, "Tag id to inspect")
	inspectCmd.Flags().IntVar(&inspectTopN, "top", 20, "Number of typical words to show")
	inspectCmd.Flags().IntVar(&inspectMinCount, "min-count", 1, "Minimum seated-customer count to include a word")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	if inspectTag < 0 || inspectTag >= cfg.Corpus.NumTags {
		return fmt.Errorf("inspect: tag %d out of range [0,%d)", inspectTag, cfg.Corpus.NumTags)
	}

	modelLog := log.WithModel(fmt.Sprintf("word.%d", inspectTag))
	modelLog.Infof("loading model from %s", cfg.Model.Dir)

	set, err := tagset.Load(cfg.Model.Dir, cfg.Corpus.NumTags)
	if err != nil {
		color.Red.Println("FAIL loading model")
		return fmt.Errorf("inspect: loading model: %w", err)
	}
	color.Green.Println("OK  model loaded")

	depthCounts := set.WordHPYLMByTag[inspectTag].CountTokensByDepth()
	for depth := 0; depth <= set.Order; depth++ {
		if count, ok := depthCounts[depth]; ok {
			log.WithDepth(depth).Infof("%d tokens absorbed at this depth", count)
		}
	}

	if set.Dictionary == nil {
		return fmt.Errorf("inspect: model directory %q has no saved dictionary", cfg.Model.Dir)
	}

	words := set.TypicalWords(inspectTag, inspectTopN, inspectMinCount, set.Dictionary)
	if len(words) == 0 {
		color.Yellow.Println("WARN no words met the min-count threshold")
		return nil
	}

	wordColumn := 0
	for _, wc := range words {
		if w := runewidth.StringWidth(wc.Word); w > wordColumn {
			wordColumn = w
		}
	}
	fmt.Printf("typical words for tag %d:\n", inspectTag)
	for _, wc := range words {
		fmt.Printf("  %s  %d\n", runewidth.FillRight(wc.Word, wordColumn), wc.Count)
	}
	return nil
}
