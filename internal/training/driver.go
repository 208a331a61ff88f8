// Package training drives the blocked-Gibbs training loop over a
// corpus and a tagset.Set: preparing the initial random tag
// assignment, sweeping the training set, resampling hyperparameters,
// and scoring held-out perplexity.
package training

import (
	"context"
	"fmt"
	"math"

	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/logger"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
	"github.com/dbsmedya/hpylm-hmm/internal/tagset"
)

// TagSampler is the blocked-Gibbs lattice sampler the driver delegates
// tag resampling to. Its implementation (the forward-filtering/
// backward-sampling dynamic-programming lattice) lies outside this
// module's scope; Driver treats it as an opaque collaborator, exactly
// as the hierarchical models treat the lattice in the original design.
type TagSampler interface {
	// ResampleTags assigns a new TagID to every token of sentence from
	// position set.Order-1 onward, the trailing EOS token included, given
	// the current HPYLM parameters in set, and reports the sampled
	// sequence back into sentence in place. The leading BOS padding keeps
	// its tag.
	ResampleTags(ctx context.Context, sentence corpus.Sentence, set *tagset.Set, smp *sampler.Sampler) error
}

// Driver owns one training run over a corpus.Corpus and a tagset.Set.
type Driver struct {
	Corpus  *corpus.Corpus
	Tags    *tagset.Set
	Lattice TagSampler
	Sampler *sampler.Sampler
	Logger  *logger.Logger

	randIndices []int
	ready       bool
}

// New creates a Driver over the given corpus and tagset, using lattice
// as the tag-resampling collaborator.
func New(c *corpus.Corpus, tags *tagset.Set, lattice TagSampler, smp *sampler.Sampler, log *logger.Logger) *Driver {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Driver{
		Corpus:  c,
		Tags:    tags,
		Lattice: lattice,
		Sampler: smp,
		Logger:  log,
	}
}

// PrepareForTraining assigns every training-set token after the BOS
// padding (the trailing EOS token included) a uniformly random initial
// tag and seats it in the tag and word models,
// establishing the state perform_gibbs_sampling iteratively refines.
//
// Grounded on original_source/hpylm-hmm/model.cpp's
// prepare_for_training, generalized from its hardcoded `t := 2` start
// to `Tags.Order - 1` so the BOS padding length matches the configured
// n-gram order.
func (d *Driver) PrepareForTraining(ctx context.Context) error {
	d.Logger.Info("preparing HPYLM/HMM model for training")

	d.Tags.SetWordBaseMeasure(numWordTypes(d.Corpus))
	d.randIndices = make([]int, len(d.Corpus.Train))
	for i := range d.randIndices {
		d.randIndices[i] = i
	}

	start := d.Tags.Order - 1
	for i, sentence := range d.Corpus.Train {
		if err := ctx.Err(); err != nil {
			return err
		}
		for pos := start; pos < len(sentence); pos++ {
			sentence[pos].TagID = d.Sampler.UniformInt(0, d.Tags.NumTags-1)
			if err := d.Tags.AddToken(sentence, pos, d.Sampler); err != nil {
				return fmt.Errorf("training: preparing sentence %d: %w", i, err)
			}
		}
	}

	d.ready = true
	d.Logger.Infof("training preparation complete: %d sentences", len(d.Corpus.Train))
	return nil
}

// GibbsSweep performs one full pass over the shuffled training set:
// for every sentence, remove its current tag/word counts, resample its
// tags via the lattice, then re-add the new counts. It stops early
// (returning ctx.Err()) if ctx is cancelled between sentences.
//
// Grounded on original_source/hpylm-hmm/model.cpp's
// perform_gibbs_sampling.
func (d *Driver) GibbsSweep(ctx context.Context) error {
	if !d.ready {
		return fmt.Errorf("training: GibbsSweep called before PrepareForTraining")
	}

	shuffle(d.randIndices, d.Sampler)
	start := d.Tags.Order - 1

	for _, idx := range d.randIndices {
		if err := ctx.Err(); err != nil {
			return err
		}
		sentence := d.Corpus.Train[idx]

		for pos := start; pos < len(sentence); pos++ {
			if err := d.Tags.RemoveToken(sentence, pos, d.Sampler); err != nil {
				return fmt.Errorf("training: removing sentence %d: %w", idx, err)
			}
		}

		if err := d.Lattice.ResampleTags(ctx, sentence, d.Tags, d.Sampler); err != nil {
			return fmt.Errorf("training: resampling tags for sentence %d: %w", idx, err)
		}

		for pos := start; pos < len(sentence); pos++ {
			if err := d.Tags.AddToken(sentence, pos, d.Sampler); err != nil {
				return fmt.Errorf("training: re-adding sentence %d: %w", idx, err)
			}
		}
	}
	return nil
}

// SampleHyperparams resamples every owned HPYLM's discount and
// concentration parameters from their posteriors.
func (d *Driver) SampleHyperparams() {
	d.Tags.SampleHyperparams(d.Sampler)
}

// Perplexity scores the held-out test set. Per the resolved ambiguity
// in how the original implementation mixed log2 and natural-log
// arithmetic, this computes perplexity entirely in log2 space:
// 2^(-mean over tokens of log2 P(w|h)), rather than exponentiating a
// log2 sum with the natural exponential.
//
// Grounded on original_source/hpylm-hmm/model.cpp's compute_perplexity.
func (d *Driver) Perplexity() float64 {
	start := d.Tags.Order - 1
	totalLog2P := 0.0
	totalTokens := 0

	for _, sentence := range d.Corpus.Test {
		for pos := start; pos < len(sentence); pos++ {
			wordCtx := make([]int, d.Tags.Order-1)
			for i := range wordCtx {
				wordCtx[i] = sentence[pos-len(wordCtx)+i].WordID
			}
			tag := sentence[pos].TagID
			if tag < 0 || tag >= d.Tags.NumTags {
				// Held-out tokens carry no sampled tag; score them under
				// the tag the model finds most probable in this context.
				tagCtx := make([]int, d.Tags.Order-1)
				for i := range tagCtx {
					tagCtx[i] = sentence[pos-len(tagCtx)+i].TagID
				}
				bestP := -1.0
				for cand := 0; cand < d.Tags.NumTags; cand++ {
					p := d.Tags.TagProbability(cand, tagCtx) * d.Tags.WordProbability(cand, sentence[pos].WordID, wordCtx)
					if p > bestP {
						tag, bestP = cand, p
					}
				}
			}
			pw := d.Tags.WordProbability(tag, sentence[pos].WordID, wordCtx)
			totalLog2P += math.Log2(pw + 1e-10)
			totalTokens++
		}
	}

	if totalTokens == 0 {
		return math.Inf(1)
	}
	meanLog2P := totalLog2P / float64(totalTokens)
	return math.Pow(2, -meanLog2P)
}

func numWordTypes(c *corpus.Corpus) int {
	seen := map[int]bool{}
	for _, sentence := range c.Train {
		for _, tok := range sentence {
			seen[tok.WordID] = true
		}
	}
	if len(seen) == 0 {
		return 1
	}
	return len(seen)
}

// shuffle performs an in-place Fisher-Yates shuffle driven by smp, the
// Go equivalent of std::shuffle with the model's Mersenne Twister.
func shuffle(indices []int, smp *sampler.Sampler) {
	for i := len(indices) - 1; i > 0; i-- {
		j := smp.UniformInt(0, i)
		indices[i], indices[j] = indices[j], indices[i]
	}
}
