package cmd

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/hpylm-hmm/internal/cancel"
	"github.com/dbsmedya/hpylm-hmm/internal/config"
	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/lock"
	"github.com/dbsmedya/hpylm-hmm/internal/logger"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
	"github.com/dbsmedya/hpylm-hmm/internal/tagset"
	"github.com/dbsmedya/hpylm-hmm/internal/training"
	"github.com/dbsmedya/hpylm-hmm/internal/verifier"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the HPYLM/HMM model on a tokenized corpus",
	Long: `Train reads the configured corpus, runs the configured number of
Gibbs sweeps, periodically resamples hyperparameters, and saves the
resulting model directory.

Example:
  hpylm-hmm train --config hpylm-hmm.yaml`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("loading corpus", "path", cfg.Corpus.Path)
	smp := sampler.New(cfg.Training.Seed)
	dict := corpus.NewDictionary()
	c, err := corpus.Load(cfg.Corpus.Path, cfg.Corpus.Order, cfg.Corpus.SplitProbability, smp, dict)
	if err != nil {
		return fmt.Errorf("train: loading corpus: %w", err)
	}
	log.Infof("corpus loaded: %d train sentences, %d test sentences", len(c.Train), len(c.Test))

	tags := tagset.New(cfg.Corpus.NumTags, cfg.Corpus.Order,
		cfg.Hyperparameters.DiscountPriorA, cfg.Hyperparameters.DiscountPriorB,
		cfg.Hyperparameters.ConcentrationPriorA, cfg.Hyperparameters.ConcentrationPriorB)
	tags.Dictionary = dict

	driver := training.New(c, tags, training.PointwiseSampler{}, smp, log)

	ctx := cancel.OnInterruptWithCallback(func(sig os.Signal) {
		log.Warnf("received %s, stopping at the next sentence boundary", sig)
	})

	if err := driver.PrepareForTraining(ctx); err != nil {
		return fmt.Errorf("train: preparing: %w", err)
	}

	for iter := 1; iter <= cfg.Training.NumIterations; iter++ {
		if err := driver.GibbsSweep(ctx); err != nil {
			color.Red.Println("FAIL sweep", iter)
			return fmt.Errorf("train: sweep %d: %w", iter, err)
		}
		if iter%cfg.Training.HyperparameterSampleEvery == 0 {
			driver.SampleHyperparams()
		}
		log.Infof("completed sweep %d/%d", iter, cfg.Training.NumIterations)
	}

	if len(c.Test) > 0 {
		ppl := driver.Perplexity()
		color.Green.Printf("OK  held-out perplexity: %.4f\n", ppl)
	}

	if err := os.MkdirAll(cfg.Model.Dir, 0o755); err != nil {
		return fmt.Errorf("train: creating model directory: %w", err)
	}

	lk := lock.NewModelLock(cfg.Model.Dir)
	err = lk.WithLock(ctx, lock.TimeoutMedium, func() error {
		if err := tags.Save(cfg.Model.Dir); err != nil {
			return fmt.Errorf("saving model: %w", err)
		}

		if cfg.Verification.SkipVerification {
			color.Yellow.Println("SKIP model verification")
			return nil
		}

		v := verifier.NewModelVerifier(verifier.VerificationMethod(cfg.Verification.Method), log)
		stats := &verifier.VerifyStats{}
		if err := v.Verify("pos", tags.PosHPYLM, cfg.Model.Dir+"/pos.hpylm", stats); err != nil {
			color.Red.Println("FAIL verification for pos model")
			return err
		}
		for tag, h := range tags.WordHPYLMByTag {
			path := fmt.Sprintf("%s/word.%d.hpylm", cfg.Model.Dir, tag)
			if err := v.Verify(fmt.Sprintf("word.%d", tag), h, path, stats); err != nil {
				color.Red.Printf("FAIL verification for tag %d\n", tag)
				return err
			}
		}
		color.Green.Printf("OK  verified %d models (%d passed)\n", stats.ModelsVerified, stats.ModelsPassed)
		return nil
	})
	if err != nil {
		return fmt.Errorf("train: saving model: %w", err)
	}

	log.Infof("model saved to %s", cfg.Model.Dir)
	return nil
}

// loadConfigAndLogger loads the configured file, applies CLI
// overrides, and constructs the logger those overrides apply to.
func loadConfigAndLogger() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.NumIterations, overrides.Seed, overrides.SkipVerify)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
