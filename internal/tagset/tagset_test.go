package tagset

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
)

func buildTestSentence(order int, wordIDs, tagIDs []int) corpus.Sentence {
	sentence := make(corpus.Sentence, 0, len(wordIDs)+order-1)
	for i := 0; i < order-1; i++ {
		sentence = append(sentence, corpus.Token{WordID: corpus.BeginOfSentence, TagID: 0})
	}
	for i, w := range wordIDs {
		sentence = append(sentence, corpus.Token{WordID: w, TagID: tagIDs[i]})
	}
	return sentence
}

func TestSet_AddThenRemove_IsIdentity(t *testing.T) {
	s := New(3, 3, 1, 1, 1, 1)
	s.SetWordBaseMeasure(50)
	smp := sampler.New(1)

	sentence := buildTestSentence(3, []int{10, 11, 12}, []int{0, 1, 2})

	for pos := 2; pos < len(sentence); pos++ {
		require.NoError(t, s.AddToken(sentence, pos, smp))
	}
	for pos := 2; pos < len(sentence); pos++ {
		require.NoError(t, s.RemoveToken(sentence, pos, smp))
	}

	assert.Equal(t, 0, s.PosHPYLM.GetNumCustomers())
	for _, h := range s.WordHPYLMByTag {
		assert.Equal(t, 0, h.GetNumCustomers())
	}
}

func TestSet_SaveLoad_RoundTrip(t *testing.T) {
	s := New(2, 2, 1, 1, 1, 1)
	s.SetWordBaseMeasure(20)
	smp := sampler.New(2)
	s.Dictionary = corpus.NewDictionary()
	wordFive := s.Dictionary.IDFor("five")
	s.Dictionary.IDFor("six")
	s.Dictionary.IDFor("seven")

	sentence := buildTestSentence(2, []int{wordFive, wordFive + 1, wordFive + 2}, []int{0, 1, 0})
	for pos := 1; pos < len(sentence); pos++ {
		require.NoError(t, s.AddToken(sentence, pos, smp))
	}

	dir := t.TempDir()
	require.NoError(t, s.Save(dir))

	loaded, err := Load(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, s.PosHPYLM.GetNumCustomers(), loaded.PosHPYLM.GetNumCustomers())
	for tag := range s.WordHPYLMByTag {
		assert.Equal(t, s.WordHPYLMByTag[tag].GetNumCustomers(), loaded.WordHPYLMByTag[tag].GetNumCustomers())
	}

	require.NotNil(t, loaded.Dictionary)
	word, ok := loaded.Dictionary.Lookup(wordFive)
	assert.True(t, ok)
	assert.Equal(t, "five", word)
}

func TestSet_SaveLoad_RoundTrip_NoDictionaryIsNotFatal(t *testing.T) {
	s := New(2, 2, 1, 1, 1, 1)
	dir := t.TempDir()
	require.NoError(t, s.Save(dir))

	loaded, err := Load(dir, 2)
	require.NoError(t, err)
	assert.Nil(t, loaded.Dictionary)
}

func TestSet_TypicalWords_RanksMostFrequentWordFirst(t *testing.T) {
	s := New(2, 1, 1, 1, 1, 1)
	s.SetWordBaseMeasure(5)
	smp := sampler.New(3)
	dict := corpus.NewDictionary()

	wordA := dict.IDFor("alpha")
	wordB := dict.IDFor("beta")

	sentence := buildTestSentence(2, []int{wordA, wordA, wordA, wordB}, []int{0, 0, 0, 0})
	for pos := 1; pos < len(sentence); pos++ {
		require.NoError(t, s.AddToken(sentence, pos, smp))
	}

	results := s.TypicalWords(0, 5, 0, dict)
	require.NotEmpty(t, results)
	wantWord, _ := dict.Lookup(wordA)
	assert.Equal(t, wantWord, results[0].Word)
}

func TestTagWindow_ExtractsOrderedTrailingWindow(t *testing.T) {
	sentence := buildTestSentence(3, []int{1, 2, 3}, []int{4, 5, 6})
	window := tagWindow(sentence, 4, 3)
	assert.Equal(t, []int{4, 5, 6}, window)
}

func TestWordWindow_ExtractsOrderedTrailingWindow(t *testing.T) {
	sentence := buildTestSentence(3, []int{1, 2, 3}, []int{4, 5, 6})
	window := wordWindow(sentence, 4, 3)
	assert.Equal(t, []int{1, 2, 3}, window)
}

func TestSaveLoad_PathsUsePerTagFiles(t *testing.T) {
	s := New(2, 2, 1, 1, 1, 1)
	dir := t.TempDir()
	require.NoError(t, s.Save(dir))

	_, err := Load(dir, 2)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "pos.hpylm"))
	assert.FileExists(t, filepath.Join(dir, "word.0.hpylm"))
	assert.FileExists(t, filepath.Join(dir, "word.1.hpylm"))
}
