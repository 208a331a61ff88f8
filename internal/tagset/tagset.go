// Package tagset owns the N+1 HPYLM instances an HMM POS tagger needs:
// one hierarchical Pitman-Yor model over tag trigrams, and one more
// per tag over the word trigrams tagged with it.
package tagset

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbsmedya/hpylm-hmm/internal/corpus"
	"github.com/dbsmedya/hpylm-hmm/internal/pyor"
	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
)

const (
	posFileName        = "pos.hpylm"
	wordFileNameParts  = "word.%d.hpylm"
	dictionaryFileName = "dictionary.tsv"
)

// Set is the full collection of HPYLM instances backing an HMM POS
// tagger: one over sequences of tags, and one per tag over the word
// sequences observed under that tag.
//
// Grounded on original_source/hpylm-hmm/model.cpp's PyHpylmHMM fields
// (_pos_hpylm, _word_hpylm_for_tag), generalized from a hardcoded
// 3-gram order to the configured Order.
type Set struct {
	Order   int
	NumTags int

	PosHPYLM       *pyor.HPYLM
	WordHPYLMByTag []*pyor.HPYLM

	// Dictionary is the word string<->id mapping the corpus this Set
	// was trained on was loaded with. It travels with the Set through
	// Save/Load so a loaded model can still resolve word ids back to
	// strings (needed by TypicalWords).
	Dictionary *corpus.Dictionary
}

// New builds a Set of numTags word models plus one tag model, all of
// the given n-gram order, with discount/concentration priors shared
// across every HPYLM.
func New(numTags, order int, discountPriorA, discountPriorB, concentrationPriorA, concentrationPriorB float64) *Set {
	// HPYLM.MaxDepth is the context length (ngram - 1): original_source's
	// core/hpylm.h constructor computes _hpylm_depth = ngram - 1, and
	// tagWindow/wordWindow below always hand AddCustomerAtTimestep an
	// (order-1)-length context, so the HPYLM itself must be built at
	// depth order-1, not order.
	s := &Set{
		Order:          order,
		NumTags:        numTags,
		PosHPYLM:       pyor.New(order-1, 1.0/float64(numTags), discountPriorA, discountPriorB, concentrationPriorA, concentrationPriorB),
		WordHPYLMByTag: make([]*pyor.HPYLM, numTags),
	}
	for tag := range s.WordHPYLMByTag {
		s.WordHPYLMByTag[tag] = pyor.New(order-1, 1.0, discountPriorA, discountPriorB, concentrationPriorA, concentrationPriorB)
	}
	return s
}

// SetWordBaseMeasure updates every per-tag word HPYLM's base measure
// to 1/numWordTypes, meant to be called once the training corpus's
// vocabulary size is known.
func (s *Set) SetWordBaseMeasure(numWordTypes int) {
	g0 := 1.0 / float64(numWordTypes)
	for _, h := range s.WordHPYLMByTag {
		h.SetG0(g0)
	}
}

// tagWindow and wordWindow extract the Order-length window of tag ids
// (resp. word ids) ending at position t, generalizing
// generate_pos_token_ids/generate_word_token_ids beyond a fixed
// 3-token window.
func tagWindow(sentence corpus.Sentence, t, order int) []int {
	window := make([]int, order)
	for i := 0; i < order; i++ {
		window[i] = sentence[t-order+1+i].TagID
	}
	return window
}

func wordWindow(sentence corpus.Sentence, t, order int) []int {
	window := make([]int, order)
	for i := 0; i < order; i++ {
		window[i] = sentence[t-order+1+i].WordID
	}
	return window
}

// AddToken seats the tag and word observed at position t (with its tag
// already assigned) into the pos model and the corresponding per-tag
// word model.
func (s *Set) AddToken(sentence corpus.Sentence, t int, smp *sampler.Sampler) error {
	tagCtx := tagWindow(sentence, t, s.Order)
	if err := s.PosHPYLM.AddCustomerAtTimestep(tagCtx[s.Order-1], tagCtx[:s.Order-1], smp); err != nil {
		return fmt.Errorf("tagset: adding pos customer at position %d: %w", t, err)
	}

	tag := sentence[t].TagID
	if tag < 0 || tag >= len(s.WordHPYLMByTag) {
		return fmt.Errorf("tagset: token at position %d has invalid tag %d", t, tag)
	}
	wordCtx := wordWindow(sentence, t, s.Order)
	if err := s.WordHPYLMByTag[tag].AddCustomerAtTimestep(wordCtx[s.Order-1], wordCtx[:s.Order-1], smp); err != nil {
		return fmt.Errorf("tagset: adding word customer at position %d: %w", t, err)
	}
	return nil
}

// RemoveToken undoes a previous AddToken for the same position,
// reading the tag currently assigned at t (so callers must remove
// before reassigning the tag, mirroring AddToken's ordering).
func (s *Set) RemoveToken(sentence corpus.Sentence, t int, smp *sampler.Sampler) error {
	tagCtx := tagWindow(sentence, t, s.Order)
	if err := s.PosHPYLM.RemoveCustomerAtTimestep(tagCtx[s.Order-1], tagCtx[:s.Order-1], smp); err != nil {
		return fmt.Errorf("tagset: removing pos customer at position %d: %w", t, err)
	}

	tag := sentence[t].TagID
	if tag < 0 || tag >= len(s.WordHPYLMByTag) {
		return fmt.Errorf("tagset: token at position %d has invalid tag %d", t, tag)
	}
	wordCtx := wordWindow(sentence, t, s.Order)
	if err := s.WordHPYLMByTag[tag].RemoveCustomerAtTimestep(wordCtx[s.Order-1], wordCtx[:s.Order-1], smp); err != nil {
		return fmt.Errorf("tagset: removing word customer at position %d: %w", t, err)
	}
	return nil
}

// WordProbability returns the predictive probability of wordID given
// its trigram word context under the model for tag.
func (s *Set) WordProbability(tag, wordID int, wordContext []int) float64 {
	return s.WordHPYLMByTag[tag].ComputePwH(wordID, wordContext)
}

// TagProbability returns the predictive probability of tagID given its
// trigram tag context.
func (s *Set) TagProbability(tagID int, tagContext []int) float64 {
	return s.PosHPYLM.ComputePwH(tagID, tagContext)
}

// SampleHyperparams resamples every owned HPYLM's discount and
// concentration parameters.
func (s *Set) SampleHyperparams(smp *sampler.Sampler) {
	s.PosHPYLM.SampleHyperparams(smp)
	for _, h := range s.WordHPYLMByTag {
		h.SampleHyperparams(smp)
	}
}

// Save writes every owned HPYLM to its own file under dir, one file
// per tag plus the pos model, mirroring the original model's
// one-file-per-HPYLM directory layout.
func (s *Set) Save(dir string) error {
	if err := s.PosHPYLM.Save(filepath.Join(dir, posFileName)); err != nil {
		return fmt.Errorf("tagset: saving pos model: %w", err)
	}
	for tag, h := range s.WordHPYLMByTag {
		path := filepath.Join(dir, fmt.Sprintf(wordFileNameParts, tag))
		if err := h.Save(path); err != nil {
			return fmt.Errorf("tagset: saving word model for tag %d: %w", tag, err)
		}
	}
	if s.Dictionary != nil {
		if err := s.Dictionary.Save(filepath.Join(dir, dictionaryFileName)); err != nil {
			return fmt.Errorf("tagset: saving dictionary: %w", err)
		}
	}
	return nil
}

// Load reads a Set previously written by Save from dir.
func Load(dir string, numTags int) (*Set, error) {
	posModel, err := pyor.Load(filepath.Join(dir, posFileName))
	if err != nil {
		return nil, fmt.Errorf("tagset: loading pos model: %w", err)
	}

	s := &Set{
		Order:          posModel.MaxDepth + 1,
		NumTags:        numTags,
		PosHPYLM:       posModel,
		WordHPYLMByTag: make([]*pyor.HPYLM, numTags),
	}
	for tag := 0; tag < numTags; tag++ {
		path := filepath.Join(dir, fmt.Sprintf(wordFileNameParts, tag))
		h, err := pyor.Load(path)
		if err != nil {
			return nil, fmt.Errorf("tagset: loading word model for tag %d: %w", tag, err)
		}
		s.WordHPYLMByTag[tag] = h
	}

	dictPath := filepath.Join(dir, dictionaryFileName)
	if _, err := os.Stat(dictPath); err == nil {
		dict, err := corpus.LoadDictionary(dictPath)
		if err != nil {
			return nil, fmt.Errorf("tagset: loading dictionary: %w", err)
		}
		s.Dictionary = dict
	}
	return s, nil
}

// TypicalWords returns, for the given tag, the top n word strings by
// seated-customer count, skipping words with fewer than minCount
// customers. Grounded on
// original_source/hpylm-hmm/model.cpp's show_typical_words_for_each_tag.
func (s *Set) TypicalWords(tag int, n, minCount int, dict *corpus.Dictionary) []WordCount {
	h := s.WordHPYLMByTag[tag]
	ranked := make([]WordCount, 0, h.Root.Arrangement.Len())
	for el := h.Root.Arrangement.Front(); el != nil; el = el.Next() {
		count := 0
		for _, c := range el.Value {
			count += c
		}
		if count < minCount {
			continue
		}
		word, _ := dict.Lookup(el.Key)
		ranked = append(ranked, WordCount{Word: word, Count: count})
	}
	sortWordCountsDescending(ranked)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// WordCount pairs a surface word with its seated-customer count under
// one tag's word model.
type WordCount struct {
	Word  string
	Count int
}

func sortWordCountsDescending(w []WordCount) {
	// Simple insertion sort: typical-words lists are short (bounded by
	// the caller's n), so an O(n^2) sort avoids pulling in sort just
	// for this.
	for i := 1; i < len(w); i++ {
		for j := i; j > 0 && w[j].Count > w[j-1].Count; j-- {
			w[j], w[j-1] = w[j-1], w[j]
		}
	}
}
