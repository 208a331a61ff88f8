package cmd

import (
	"fmt"
	"math"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
	"github.com/dbsmedya/hpylm-hmm/internal/tagset"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score held-out perplexity for a saved model",
	Long: `Evaluate loads a previously trained model directory and the
configured corpus, then reports the held-out set's per-token
perplexity under the model.

Example:
  hpylm-hmm evaluate --config hpylm-hmm.yaml`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Infof("loading model from %s", cfg.Model.Dir)
	set, err := tagset.Load(cfg.Model.Dir, cfg.Corpus.NumTags)
	if err != nil {
		return fmt.Errorf("evaluate: loading model: %w", err)
	}

	dict := corpus.NewDictionary()
	smp := sampler.New(cfg.Training.Seed)
	c, err := corpus.Load(cfg.Corpus.Path, cfg.Corpus.Order, cfg.Corpus.SplitProbability, smp, dict)
	if err != nil {
		return fmt.Errorf("evaluate: loading corpus: %w", err)
	}
	if len(c.Test) == 0 {
		color.Yellow.Println("WARN no held-out sentences to evaluate against")
		return nil
	}

	start := set.Order - 1
	totalLog2P := 0.0
	totalTokens := 0
	for _, sentence := range c.Test {
		for pos := start; pos < len(sentence); pos++ {
			wordCtx := make([]int, set.Order-1)
			for i := range wordCtx {
				wordCtx[i] = sentence[pos-len(wordCtx)+i].WordID
			}
			tagCtx := make([]int, set.Order-1)
			for i := range tagCtx {
				tagCtx[i] = sentence[pos-len(tagCtx)+i].TagID
			}

			bestTag, bestP := 0, -1.0
			for tag := 0; tag < set.NumTags; tag++ {
				p := set.TagProbability(tag, tagCtx) * set.WordProbability(tag, sentence[pos].WordID, wordCtx)
				if p > bestP {
					bestTag, bestP = tag, p
				}
			}
			pw := set.WordProbability(bestTag, sentence[pos].WordID, wordCtx)
			totalLog2P += math.Log2(pw + 1e-10)
			totalTokens++
		}
	}

	if totalTokens == 0 {
		color.Yellow.Println("WARN no scorable tokens in held-out set")
		return nil
	}

	ppl := math.Pow(2, -totalLog2P/float64(totalTokens))
	color.Green.Printf("OK  held-out perplexity over %d tokens: %.4f\n", totalTokens, ppl)
	return nil
}
