package training

import (
	"context"
	"fmt"

	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
	"github.com/dbsmedya/hpylm-hmm/internal/tagset"
)

// PointwiseSampler is a TagSampler that resamples each token's tag
// independently from its pointwise posterior
// P(tag|context) * P(word|tag,context), holding every other token's
// tag fixed.
//
// The real collaborator this interface models is a forward-filtering/
// backward-sampling dynamic program over the whole sentence lattice,
// which lies outside this module's scope (see training.TagSampler).
// PointwiseSampler is a deliberately simpler stand-in: it lets
// cmd/hpylm-hmm train end-to-end without that lattice, at the cost of
// ignoring the joint dependence between neighboring tags that a true
// blocked sweep would capture.
type PointwiseSampler struct{}

// ResampleTags assigns every token of sentence from position
// set.Order-1 onward (the trailing EOS token included) a new tag drawn
// from its pointwise posterior. The leading BOS padding keeps its tag.
func (PointwiseSampler) ResampleTags(ctx context.Context, sentence corpus.Sentence, set *tagset.Set, smp *sampler.Sampler) error {
	start := set.Order - 1
	for pos := start; pos < len(sentence); pos++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		weights := make([]float64, set.NumTags)
		sum := 0.0
		originalTag := sentence[pos].TagID
		for candidate := 0; candidate < set.NumTags; candidate++ {
			sentence[pos].TagID = candidate

			tagCtx := make([]int, set.Order-1)
			for i := range tagCtx {
				tagCtx[i] = sentence[pos-len(tagCtx)+i].TagID
			}
			wordCtx := make([]int, set.Order-1)
			for i := range wordCtx {
				wordCtx[i] = sentence[pos-len(wordCtx)+i].WordID
			}

			w := set.TagProbability(candidate, tagCtx) * set.WordProbability(candidate, sentence[pos].WordID, wordCtx)
			weights[candidate] = w
			sum += w
		}
		sentence[pos].TagID = originalTag

		if sum <= 0 {
			return fmt.Errorf("training: pointwise sampler found zero total mass at position %d", pos)
		}

		draw := smp.Uniform() * sum
		running := 0.0
		chosen := set.NumTags - 1
		for candidate, w := range weights {
			running += w
			if draw <= running {
				chosen = candidate
				break
			}
		}
		sentence[pos].TagID = chosen
	}
	return nil
}
