package training

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
	"github.com/dbsmedya/hpylm-hmm/internal/tagset"
)

// roundRobinLattice is a stand-in for the real blocked-Gibbs lattice:
// it assigns tags deterministically round-robin instead of running
// forward-filtering/backward-sampling, which is enough to exercise
// Driver's remove/resample/re-add bookkeeping without depending on the
// lattice's internals.
type roundRobinLattice struct {
	numTags int
}

func (l *roundRobinLattice) ResampleTags(ctx context.Context, sentence corpus.Sentence, set *tagset.Set, smp *sampler.Sampler) error {
	start := set.Order - 1
	for i := start; i < len(sentence); i++ {
		sentence[i].TagID = (i - start) % l.numTags
	}
	return nil
}

func writeTrainingCorpus(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "train.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestDriver(t *testing.T, numTags, order int) (*Driver, *corpus.Corpus) {
	t.Helper()
	path := writeTrainingCorpus(t, "the dog ran fast", "a cat sat down", "the dog sat", "a dog ran")
	dict := corpus.NewDictionary()
	smp := sampler.New(1)
	c, err := corpus.Load(path, order, 0.0, smp, dict)
	require.NoError(t, err)

	tags := tagset.New(numTags, order, 1, 1, 1, 1)
	lattice := &roundRobinLattice{numTags: numTags}
	driver := New(c, tags, lattice, smp, nil)
	return driver, c
}

func TestDriver_PrepareForTraining_SeatsEveryToken(t *testing.T) {
	driver, c := newTestDriver(t, 3, 3)
	require.NoError(t, driver.PrepareForTraining(context.Background()))

	assert.Greater(t, driver.Tags.PosHPYLM.GetNumCustomers(), 0)
	total := 0
	for _, h := range driver.Tags.WordHPYLMByTag {
		total += h.GetNumCustomers()
	}
	assert.Greater(t, total, 0)
	assert.NotEmpty(t, c.Train)
}

func TestDriver_GibbsSweep_KeepsModelConsistent(t *testing.T) {
	driver, _ := newTestDriver(t, 2, 2)
	require.NoError(t, driver.PrepareForTraining(context.Background()))
	require.Greater(t, driver.Tags.PosHPYLM.GetNumCustomers(), 0)

	require.NoError(t, driver.GibbsSweep(context.Background()))

	// Re-tagging can change the tree's branching (different table
	// openings along different context paths), so only the absence of
	// errors and continued non-empty seating is guaranteed here, not
	// an exact customer count.
	assert.Greater(t, driver.Tags.PosHPYLM.GetNumCustomers(), 0)
}

func TestDriver_GibbsSweep_BeforePrepare_Errors(t *testing.T) {
	driver, _ := newTestDriver(t, 2, 2)
	err := driver.GibbsSweep(context.Background())
	assert.Error(t, err)
}

func TestDriver_GibbsSweep_RespectsCancellation(t *testing.T) {
	driver, _ := newTestDriver(t, 2, 2)
	require.NoError(t, driver.PrepareForTraining(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := driver.GibbsSweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriver_Perplexity_FiniteAfterTraining(t *testing.T) {
	lines := make([]string, 40)
	sentences := []string{"the dog ran", "a cat sat", "the dog sat", "a dog ran", "the cat ran"}
	for i := range lines {
		lines[i] = sentences[i%len(sentences)]
	}
	path := writeTrainingCorpus(t, lines...)
	dict := corpus.NewDictionary()
	smp := sampler.New(2)
	c, err := corpus.Load(path, 2, 0.5, smp, dict)
	require.NoError(t, err)
	require.NotEmpty(t, c.Test)
	require.NotEmpty(t, c.Train)

	tags := tagset.New(2, 2, 1, 1, 1, 1)
	lattice := &roundRobinLattice{numTags: 2}
	driver := New(c, tags, lattice, smp, nil)
	require.NoError(t, driver.PrepareForTraining(context.Background()))
	require.NoError(t, driver.GibbsSweep(context.Background()))

	ppl := driver.Perplexity()
	assert.Greater(t, ppl, 0.0)
	assert.False(t, ppl != ppl, "perplexity must not be NaN")
}

func TestDriver_SampleHyperparams_Runs(t *testing.T) {
	driver, _ := newTestDriver(t, 2, 2)
	require.NoError(t, driver.PrepareForTraining(context.Background()))
	assert.NotPanics(t, func() { driver.SampleHyperparams() })
}
