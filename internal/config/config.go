// Package config provides configuration structures and loading for the
// HPYLM/HMM trainer.
package config

// Config represents the complete application configuration.
type Config struct {
	Corpus          CorpusConfig         `yaml:"corpus" mapstructure:"corpus"`
	Model           ModelConfig          `yaml:"model" mapstructure:"model"`
	Hyperparameters HyperparameterConfig `yaml:"hyperparameters" mapstructure:"hyperparameters"`
	Training        TrainingConfig       `yaml:"training" mapstructure:"training"`
	Verification    VerificationConfig   `yaml:"verification" mapstructure:"verification"`
	Logging         LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// CorpusConfig describes where the training corpus lives and how it
// should be tokenized and split.
type CorpusConfig struct {
	Path             string  `yaml:"path" mapstructure:"path"`
	NumTags          int     `yaml:"num_tags" mapstructure:"num_tags"`
	Order            int     `yaml:"order" mapstructure:"order"` // n-gram order shared by every HPYLM
	SplitProbability float64 `yaml:"split_probability" mapstructure:"split_probability"`
}

// ModelConfig describes where a trained model is persisted.
type ModelConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// HyperparameterConfig holds the Beta/Gamma prior parameters shared by
// every HPYLM instance's discount and concentration resampling.
type HyperparameterConfig struct {
	DiscountPriorA      float64 `yaml:"discount_prior_a" mapstructure:"discount_prior_a"`
	DiscountPriorB      float64 `yaml:"discount_prior_b" mapstructure:"discount_prior_b"`
	ConcentrationPriorA float64 `yaml:"concentration_prior_a" mapstructure:"concentration_prior_a"`
	ConcentrationPriorB float64 `yaml:"concentration_prior_b" mapstructure:"concentration_prior_b"`
}

// TrainingConfig controls the blocked-Gibbs training loop.
type TrainingConfig struct {
	NumIterations             int   `yaml:"num_iterations" mapstructure:"num_iterations"`
	HyperparameterSampleEvery int   `yaml:"hyperparameter_sample_every" mapstructure:"hyperparameter_sample_every"`
	Seed                      int64 `yaml:"seed" mapstructure:"seed"`
}

// VerificationConfig represents model round-trip verification settings.
type VerificationConfig struct {
	Method           string `yaml:"method" mapstructure:"method"` // "count", "sha256" or "skip"
	SkipVerification bool   `yaml:"skip_verification" mapstructure:"skip_verification"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			NumTags:          10,
			Order:            3,
			SplitProbability: 0.05,
		},
		Model: ModelConfig{
			Dir: "./model",
		},
		Hyperparameters: HyperparameterConfig{
			DiscountPriorA:      1,
			DiscountPriorB:      1,
			ConcentrationPriorA: 1,
			ConcentrationPriorB: 1,
		},
		Training: TrainingConfig{
			NumIterations:             100,
			HyperparameterSampleEvery: 1,
			Seed:                      1,
		},
		Verification: VerificationConfig{
			Method:           "count",
			SkipVerification: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
