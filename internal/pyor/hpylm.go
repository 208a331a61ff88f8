// Package pyor implements the hierarchical Pitman-Yor language model:
// a context tree of Chinese-Restaurant-Process nodes, one per distinct
// context of each order up to the model's depth, coupled so that each
// node's base measure is its parent's predictive distribution.
package pyor

import (
	"math"

	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
)

// HPYLM is a hierarchical Pitman-Yor language model over a fixed
// maximum context depth. Depth m discount/concentration parameters are
// shared across every node at depth m (the "hierarchical" coupling of
// spec §4.B), so the model holds exactly maxDepth+1 of each rather than
// one per node.
type HPYLM struct {
	Root     *Node
	MaxDepth int
	G0       float64

	// D[m]/Theta[m] are the discount and concentration shared by every
	// node at depth m. Index 0 holds the root's own discount and
	// concentration, used when it interpolates with G0, so Depth can
	// index directly.
	D     []float64
	Theta []float64

	// Beta priors for the discount, Gamma priors for the concentration
	// (Teh 2006, Appendix C). Shared across all depths.
	DiscountPriorA      float64
	DiscountPriorB      float64
	ConcentrationPriorA float64
	ConcentrationPriorB float64
}

// New builds an HPYLM of the given maximum context depth with uniform
// base measure g0, and discount/concentration initialized from their
// prior means.
func New(maxDepth int, g0 float64, discountPriorA, discountPriorB, concentrationPriorA, concentrationPriorB float64) *HPYLM {
	h := &HPYLM{
		Root:                NewRoot(),
		MaxDepth:            maxDepth,
		G0:                  g0,
		D:                   make([]float64, maxDepth+1),
		Theta:               make([]float64, maxDepth+1),
		DiscountPriorA:      discountPriorA,
		DiscountPriorB:      discountPriorB,
		ConcentrationPriorA: concentrationPriorA,
		ConcentrationPriorB: concentrationPriorB,
	}
	meanD := discountPriorA / (discountPriorA + discountPriorB)
	meanTheta := concentrationPriorA / concentrationPriorB
	for m := range h.D {
		h.D[m] = meanD
		h.Theta[m] = meanTheta
	}
	return h
}

// SetG0 overrides the uniform base measure, e.g. once the vocabulary
// size is known after the dictionary is built.
func (h *HPYLM) SetG0(g0 float64) {
	h.G0 = g0
}

// FindNodeByTracingBackContext walks the tree from the root along
// context (ordered oldest-first), consuming its most recent token first
// and going back one token per step, for up to h.MaxDepth steps, creating
// missing nodes along the way when generateIfNeeded is true. If
// returnMiddleNode is true and the full depth isn't reachable (no such
// node exists and generateIfNeeded is false), the deepest node found so
// far is returned instead of nil.
func (h *HPYLM) FindNodeByTracingBackContext(context []int, generateIfNeeded, returnMiddleNode bool) *Node {
	depth := h.MaxDepth
	if depth > len(context) {
		depth = len(context)
	}

	node := h.Root
	for i := 0; i < depth; i++ {
		// context is ordered oldest-first; the most recent token is
		// context[len(context)-1], consumed first so that the node at
		// depth d conditions on the d most recent tokens.
		tokenIdx := len(context) - 1 - i
		next := node.FindChild(context[tokenIdx], generateIfNeeded)
		if next == nil {
			if returnMiddleNode {
				return node
			}
			return nil
		}
		node = next
	}
	return node
}

// AddCustomerAtTimestep seats token w in the restaurant reached by
// tracing back through context (the depth most recent preceding
// tokens), creating context nodes as needed. smp drives every random
// table-assignment choice, so callers that need reproducible training
// runs pass the same seeded *sampler.Sampler throughout.
func (h *HPYLM) AddCustomerAtTimestep(w int, context []int, smp *sampler.Sampler) error {
	if len(context) < h.MaxDepth {
		return &InsufficientContextError{Operation: "AddCustomerAtTimestep", Depth: h.MaxDepth, Have: len(context)}
	}
	node := h.FindNodeByTracingBackContext(context, true, false)
	if node == nil {
		return &MissingNodeError{Operation: "AddCustomerAtTimestep", Depth: h.MaxDepth, Dish: w}
	}
	_, err := node.AddCustomer(w, h.G0, h.D, h.Theta, smp)
	return err
}

// RemoveCustomerAtTimestep undoes a previous AddCustomerAtTimestep for
// the same (w, context) pair. If removal empties a node, the node is
// detached from its parent.
func (h *HPYLM) RemoveCustomerAtTimestep(w int, context []int, smp *sampler.Sampler) error {
	if len(context) < h.MaxDepth {
		return &InsufficientContextError{Operation: "RemoveCustomerAtTimestep", Depth: h.MaxDepth, Have: len(context)}
	}
	node := h.FindNodeByTracingBackContext(context, false, false)
	if node == nil {
		return &MissingNodeError{Operation: "RemoveCustomerAtTimestep", Depth: h.MaxDepth, Dish: w}
	}
	if _, err := node.RemoveCustomer(w, smp); err != nil {
		return err
	}
	for node.NeedToRemoveFromParent() {
		parent := node.Parent
		node.RemoveFromParent()
		node = parent
	}
	return nil
}

// ComputePwH is the reference (recursive, non-streaming) predictive
// probability of w given context, descending from the node at
// len(context) down through the root. Per spec §9 Open Question #2,
// the window at each recursion level is parameterized as
// len(context)-depth rather than hardcoded, so context shorter than
// MaxDepth is handled correctly instead of only ever working for
// exactly two preceding tokens.
func (h *HPYLM) ComputePwH(w int, context []int) float64 {
	node := h.FindNodeByTracingBackContext(context, false, true)
	if node == nil {
		return h.G0
	}
	return node.ComputePw(w, h.G0, h.D, h.Theta)
}

// ComputePwHStreaming computes the same quantity as ComputePwH but by
// walking from the root downward and threading the parent probability
// forward, avoiding the repeated re-descents ComputePw performs when
// called directly on a deep node. Produces the same value as
// ComputePwH up to floating-point order of summation (Testable
// Property P3).
func (h *HPYLM) ComputePwHStreaming(w int, context []int) float64 {
	depth := h.MaxDepth
	if depth > len(context) {
		depth = len(context)
	}

	node := h.Root
	pw := h.G0
	for i := 0; i < depth; i++ {
		tokenIdx := len(context) - 1 - i
		next := node.FindChild(context[tokenIdx], false)
		if next == nil {
			return pw
		}
		pw = next.ComputePwStreaming(w, pw, h.D, h.Theta)
		node = next
	}
	return pw
}

// ComputePw returns the product of per-token predictive probabilities
// for a full token sequence, conditioning each token on the up to
// MaxDepth tokens that precede it in the sequence (not an external
// context).
func (h *HPYLM) ComputePw(tokens []int) float64 {
	p := 1.0
	for i, w := range tokens {
		p *= h.ComputePwH(w, tokens[:i])
	}
	return p
}

// ComputeLogPw is ComputePw in natural-log space, guarding each factor
// with the same additive floor the original implementation uses so a
// zero-probability token degrades the score instead of producing -Inf.
func (h *HPYLM) ComputeLogPw(tokens []int) float64 {
	logP := 0.0
	for i, w := range tokens {
		p := h.ComputePwH(w, tokens[:i])
		logP += math.Log(p + 1e-10)
	}
	return logP
}

// ComputeLog2Pw is ComputeLogPw in base-2, used by perplexity (spec §9
// Open Question #1: perplexity must consume log2 probabilities
// directly, not exponentiate a natural-log sum and re-take math.Log2).
func (h *HPYLM) ComputeLog2Pw(tokens []int) float64 {
	log2P := 0.0
	for i, w := range tokens {
		p := h.ComputePwH(w, tokens[:i])
		log2P += math.Log2(p + 1e-10)
	}
	return log2P
}

// GetNumNodes, GetNumCustomers and GetNumTables report aggregate
// statistics over the whole tree, used by the round-trip verifier.
func (h *HPYLM) GetNumNodes() int     { return 1 + h.Root.GetNumNodes() }
func (h *HPYLM) GetNumCustomers() int { return h.Root.GetNumCustomers() }
func (h *HPYLM) GetNumTables() int    { return h.Root.GetNumTables() }

// CountTokensByDepth returns, for each depth present in the tree, the
// number of distinct (node, dish) pairs seated at that depth.
func (h *HPYLM) CountTokensByDepth() map[int]int {
	counts := make(map[int]int)
	h.Root.CountTokensByDepth(counts)
	return counts
}

// SampleHyperparams resamples D and Theta for every depth from their
// posteriors via the auxiliary-variable scheme of Teh 2006 Appendix C:
// for depth m, sum the auxiliary draws from every node at that depth,
// then update d_m ~ Beta(...) and theta_m ~ Gamma(...) from the
// accumulated sums.
func (h *HPYLM) SampleHyperparams(smp *sampler.Sampler) {
	type depthSums struct {
		sumLogX, sumYesY, sumNoY, sum1MinusZ float64
	}
	sums := make([]depthSums, h.MaxDepth+1)

	var walk func(n *Node)
	walk = func(n *Node) {
		m := n.Depth
		d := depthParam(h.D, m)
		theta := depthParam(h.Theta, m)
		sums[m].sumLogX += n.AuxiliaryLogX(theta, smp)
		y, n1y := n.AuxiliaryYSums(d, theta, smp)
		sums[m].sumYesY += y
		sums[m].sumNoY += n1y
		sums[m].sum1MinusZ += n.AuxiliarySum1MinusZ(d, smp)
		for el := n.Children.Front(); el != nil; el = el.Next() {
			walk(el.Value)
		}
	}
	walk(h.Root)

	for m := 0; m <= h.MaxDepth; m++ {
		s := sums[m]
		// theta_m | ... ~ Gamma(a + sum_y, b - sum_log_x)
		a := h.ConcentrationPriorA + s.sumYesY
		b := h.ConcentrationPriorB - s.sumLogX
		if b <= 0 {
			b = 1e-6
		}
		h.Theta[m] = smp.Gamma(a, b)

		// d_m | ... ~ Beta(alpha + sum_(1-y), beta + sum_(1-z))
		alpha := h.DiscountPriorA + s.sumNoY
		beta := h.DiscountPriorB + s.sum1MinusZ
		h.D[m] = smp.Beta(alpha, beta)
	}
}
