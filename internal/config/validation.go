package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if err := c.validateCorpus(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateModel(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateHyperparameters(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateTraining(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateVerification(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateCorpus() ValidationErrors {
	var errors ValidationErrors

	if c.Corpus.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "corpus.path",
			Message: "path is required",
		})
	}

	if c.Corpus.NumTags <= 0 {
		errors = append(errors, ValidationError{
			Field:   "corpus.num_tags",
			Message: "num_tags must be positive",
		})
	}

	if c.Corpus.Order < 1 {
		errors = append(errors, ValidationError{
			Field:   "corpus.order",
			Message: "order must be at least 1",
		})
	}

	if c.Corpus.SplitProbability < 0 || c.Corpus.SplitProbability > 1 {
		errors = append(errors, ValidationError{
			Field:   "corpus.split_probability",
			Message: "split_probability must be between 0 and 1",
		})
	}

	return errors
}

func (c *Config) validateModel() ValidationErrors {
	var errors ValidationErrors

	if c.Model.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "model.dir",
			Message: "dir is required",
		})
	}

	return errors
}

func (c *Config) validateHyperparameters() ValidationErrors {
	var errors ValidationErrors
	h := c.Hyperparameters

	if h.DiscountPriorA <= 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperparameters.discount_prior_a",
			Message: "discount_prior_a must be positive",
		})
	}
	if h.DiscountPriorB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperparameters.discount_prior_b",
			Message: "discount_prior_b must be positive",
		})
	}
	if h.ConcentrationPriorA <= 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperparameters.concentration_prior_a",
			Message: "concentration_prior_a must be positive",
		})
	}
	if h.ConcentrationPriorB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperparameters.concentration_prior_b",
			Message: "concentration_prior_b must be positive",
		})
	}

	return errors
}

func (c *Config) validateTraining() ValidationErrors {
	var errors ValidationErrors

	if c.Training.NumIterations <= 0 {
		errors = append(errors, ValidationError{
			Field:   "training.num_iterations",
			Message: "num_iterations must be positive",
		})
	}

	if c.Training.HyperparameterSampleEvery <= 0 {
		errors = append(errors, ValidationError{
			Field:   "training.hyperparameter_sample_every",
			Message: "hyperparameter_sample_every must be positive",
		})
	}

	return errors
}

func (c *Config) validateVerification() ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "sha256": true, "skip": true, "": true}
	if !validMethods[c.Verification.Method] {
		errors = append(errors, ValidationError{
			Field:   "verification.method",
			Message: "method must be 'count', 'sha256', or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
