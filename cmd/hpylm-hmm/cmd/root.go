package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile       string
	logLevel      string
	logFormat     string
	numIterations int
	seed          int64
	skipVerify    bool
)

var rootCmd = &cobra.Command{
	Use:   "hpylm-hmm",
	Short: "Hierarchical Pitman-Yor HMM part-of-speech tagger",
	Long: `A CLI for training and evaluating an unsupervised HMM
part-of-speech tagger backed by hierarchical Pitman-Yor language
models: one model over tag sequences, and one model per tag over the
words observed under it.

Features:
  - Blocked-Gibbs-style training loop over a tokenized text corpus
  - Per-depth discount/concentration hyperparameter resampling
  - Held-out perplexity scoring
  - Deterministic binary model persistence with round-trip verification`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "hpylm-hmm.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().IntVar(&numIterations, "iterations", 0,
		"Override number of Gibbs sweeps")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 0,
		"Override the RNG seed")

	rootCmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip model round-trip verification after saving")
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings.
type CLIOverrides struct {
	LogLevel      string
	LogFormat     string
	NumIterations int
	Seed          int64
	SkipVerify    bool
}

// GetCLIOverrides returns the CLI flag override values.
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:      logLevel,
		LogFormat:     logFormat,
		NumIterations: numIterations,
		Seed:          seed,
		SkipVerify:    skipVerify,
	}
}
