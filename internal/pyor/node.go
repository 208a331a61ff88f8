package pyor

import (
	"math"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
)

// rootContextID marks a Node with no parent (the tree root).
const rootContextID = -1

// Node is one Chinese-Restaurant-Process restaurant at a context of
// length Depth. Children are owned exclusively by their parent;
// Parent is a non-owning back reference used to propagate
// customer/table changes upward, to read the parent's predictive
// probability, and to detach an emptied node.
//
// Arrangement and Children use orderedmap.OrderedMap rather than a
// plain Go map so that depth-first serialization and any introspection
// that walks "all dishes"/"all children" is deterministic without a
// separate sort pass.
type Node struct {
	Depth     int
	ContextID int // the token id this node represents under its parent; rootContextID for the root
	Parent    *Node

	Children    *orderedmap.OrderedMap[int, *Node]
	Arrangement *orderedmap.OrderedMap[int, []int] // dish id -> per-table customer counts

	// StopCount/PassCount are carried for compatibility with a future
	// variable-order extension (VPYLM); HPYLM never reads or writes
	// them.
	StopCount int
	PassCount int
}

// NewRoot creates a fresh root node at depth 0.
func NewRoot() *Node {
	return &Node{
		Depth:       0,
		ContextID:   rootContextID,
		Children:    orderedmap.NewOrderedMap[int, *Node](),
		Arrangement: orderedmap.NewOrderedMap[int, []int](),
	}
}

// newChild creates a node owned by parent, reached via contextID.
func newChild(parent *Node, contextID int) *Node {
	return &Node{
		Depth:       parent.Depth + 1,
		ContextID:   contextID,
		Parent:      parent,
		Children:    orderedmap.NewOrderedMap[int, *Node](),
		Arrangement: orderedmap.NewOrderedMap[int, []int](),
	}
}

// FindChild returns the child reached via contextID, creating it if
// generateIfNeeded is true and it doesn't already exist.
func (n *Node) FindChild(contextID int, generateIfNeeded bool) *Node {
	if child, ok := n.Children.Get(contextID); ok {
		return child
	}
	if !generateIfNeeded {
		return nil
	}
	child := newChild(n, contextID)
	n.Children.Set(contextID, child)
	return child
}

// NeedToRemoveFromParent reports whether this node has become empty
// (no seated customers, no children) and should be detached. The root
// is never removed.
func (n *Node) NeedToRemoveFromParent() bool {
	return n.Arrangement.Len() == 0 && n.Children.Len() == 0 && n.Depth > 0
}

// RemoveFromParent detaches this node from its parent's child map.
// A no-op on the root.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.Children.Delete(n.ContextID)
}

// NumCustomersForDish returns the total seated customers for dish w.
func (n *Node) NumCustomersForDish(w int) int {
	tables, ok := n.Arrangement.Get(w)
	if !ok {
		return 0
	}
	sum := 0
	for _, c := range tables {
		sum += c
	}
	return sum
}

// NumTablesForDish returns the number of tables serving dish w.
func (n *Node) NumTablesForDish(w int) int {
	tables, ok := n.Arrangement.Get(w)
	if !ok {
		return 0
	}
	return len(tables)
}

// NumCustomersTotal returns c_u: the sum of seated customers across
// every dish at this node.
func (n *Node) NumCustomersTotal() int {
	total := 0
	for el := n.Arrangement.Front(); el != nil; el = el.Next() {
		for _, c := range el.Value {
			total += c
		}
	}
	return total
}

// NumTablesTotal returns t_u: the total number of tables across every
// dish at this node.
func (n *Node) NumTablesTotal() int {
	total := 0
	for el := n.Arrangement.Front(); el != nil; el = el.Next() {
		total += len(el.Value)
	}
	return total
}

// GetNumNodes returns the number of nodes in the subtree rooted at n,
// not counting n itself.
func (n *Node) GetNumNodes() int {
	count := 0
	for el := n.Children.Front(); el != nil; el = el.Next() {
		count += 1 + el.Value.GetNumNodes()
	}
	return count
}

// GetNumCustomers sums c_u across the subtree rooted at n (inclusive).
func (n *Node) GetNumCustomers() int {
	total := n.NumCustomersTotal()
	for el := n.Children.Front(); el != nil; el = el.Next() {
		total += el.Value.GetNumCustomers()
	}
	return total
}

// GetNumTables sums t_u across the subtree rooted at n (inclusive).
func (n *Node) GetNumTables() int {
	total := n.NumTablesTotal()
	for el := n.Children.Front(); el != nil; el = el.Next() {
		total += el.Value.GetNumTables()
	}
	return total
}

// CountTokensByDepth accumulates, for every dish at every node in the
// subtree rooted at n, one count per depth (the number of distinct
// (node, dish) pairs observed at that depth).
func (n *Node) CountTokensByDepth(counts map[int]int) {
	for el := n.Arrangement.Front(); el != nil; el = el.Next() {
		counts[n.Depth]++
	}
	for el := n.Children.Front(); el != nil; el = el.Next() {
		el.Value.CountTokensByDepth(counts)
	}
}

// AddCustomer seats one customer for dish w at this node, per the CRF
// seating rule of spec §4.B. It returns whether a new table was
// opened (which, per the CRF coupling, recurses a customer addition up
// to the parent).
func (n *Node) AddCustomer(w int, g0 float64, dM, thetaM []float64, smp *sampler.Sampler) (bool, error) {
	d := depthParam(dM, n.Depth)
	theta := depthParam(thetaM, n.Depth)

	tables, ok := n.Arrangement.Get(w)
	if !ok || len(tables) == 0 {
		n.Arrangement.Set(w, []int{1})
		if n.Parent != nil {
			if _, err := n.Parent.AddCustomer(w, g0, dM, thetaM, smp); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	parentPw := n.parentProbability(w, g0, dM, thetaM)
	tTotal := n.NumTablesTotal()

	weights := make([]float64, len(tables)+1)
	sum := 0.0
	for k, c := range tables {
		wk := float64(c) - d
		if wk < 0 {
			wk = 0
		}
		weights[k] = wk
		sum += wk
	}
	newTableWeight := (theta + d*float64(tTotal)) * parentPw
	if newTableWeight < 0 {
		newTableWeight = 0
	}
	weights[len(tables)] = newTableWeight
	sum += newTableWeight

	choice := weightedChoice(weights, sum, smp)
	if choice == len(tables) {
		tables = append(tables, 1)
		n.Arrangement.Set(w, tables)
		if n.Parent != nil {
			if _, err := n.Parent.AddCustomer(w, g0, dM, thetaM, smp); err != nil {
				return false, err
			}
		}
		return true, nil
	}

	tables[choice]++
	n.Arrangement.Set(w, tables)
	return false, nil
}

// RemoveCustomer removes one customer for dish w from this node,
// selecting the customer to remove weighted by each table's current
// occupancy. It returns whether a table was closed, which (per the CRF
// coupling) recurses a customer removal up to the parent.
func (n *Node) RemoveCustomer(w int, smp *sampler.Sampler) (bool, error) {
	tables, ok := n.Arrangement.Get(w)
	if !ok || len(tables) == 0 {
		return false, &MissingNodeError{Operation: "RemoveCustomer", Depth: n.Depth, Dish: w}
	}

	total := 0
	for _, c := range tables {
		total += c
	}
	if total <= 0 {
		return false, &InvariantViolationError{Depth: n.Depth, Dish: w, Detail: "zero total customers before removal"}
	}

	r := smp.Uniform() * float64(total)
	idx := 0
	cum := 0.0
	for k, c := range tables {
		cum += float64(c)
		if r < cum {
			idx = k
			break
		}
		idx = k
	}

	tables[idx]--
	removedTable := false
	if tables[idx] == 0 {
		tables = append(tables[:idx], tables[idx+1:]...)
		removedTable = true
	}

	if len(tables) == 0 {
		n.Arrangement.Delete(w)
	} else {
		n.Arrangement.Set(w, tables)
	}

	if removedTable && n.Parent != nil {
		if _, err := n.Parent.RemoveCustomer(w, smp); err != nil {
			return false, err
		}
	}

	return removedTable, nil
}

// parentProbability is g0 at the root, or the parent's predictive
// probability for w otherwise.
func (n *Node) parentProbability(w int, g0 float64, dM, thetaM []float64) float64 {
	if n.Parent == nil {
		return g0
	}
	return n.Parent.ComputePw(w, g0, dM, thetaM)
}

// ComputePw is the recursive reference form of the predictive
// probability: P_u(w) = (c_u(w) - d*t_u(w))/(theta+c_u)
//
//	+ ((theta + d*t_u)/(theta+c_u)) * P_parent(w)
func (n *Node) ComputePw(w int, g0 float64, dM, thetaM []float64) float64 {
	parentPw := n.parentProbability(w, g0, dM, thetaM)
	return n.computePwGivenParent(w, parentPw, dM, thetaM)
}

// ComputePwStreaming is the streaming form: it takes an
// already-computed parent probability instead of re-descending the
// tree.
func (n *Node) ComputePwStreaming(w int, parentPw float64, dM, thetaM []float64) float64 {
	return n.computePwGivenParent(w, parentPw, dM, thetaM)
}

func (n *Node) computePwGivenParent(w int, parentPw float64, dM, thetaM []float64) float64 {
	d := depthParam(dM, n.Depth)
	theta := depthParam(thetaM, n.Depth)

	cw := n.NumCustomersForDish(w)
	tw := n.NumTablesForDish(w)
	cTotal := n.NumCustomersTotal()
	tTotal := n.NumTablesTotal()

	numerator := float64(cw) - d*float64(tw)
	if numerator < 0 {
		numerator = 0
	}
	denom := theta + float64(cTotal)
	if denom <= 0 {
		denom = 1e-10
	}
	coeff := (theta + d*float64(tTotal)) / denom
	return numerator/denom + coeff*parentPw
}

// AuxiliaryLogX draws x_u ~ Beta(theta+1, c_u-1) (clamped per spec §9
// open question #3) and returns log(x_u).
func (n *Node) AuxiliaryLogX(theta float64, smp *sampler.Sampler) float64 {
	c := n.NumCustomersTotal()
	b := float64(c - 1)
	if b < 1 {
		b = 1
	}
	x := smp.Beta(theta+1, b)
	return math.Log(x)
}

// AuxiliaryYSums draws one y_{u,i} ~ Bernoulli(theta/(theta+d*i)) for
// every table i = 1..t_u at this node and returns (sum y, sum 1-y).
func (n *Node) AuxiliaryYSums(d, theta float64, smp *sampler.Sampler) (sumY, sum1MinusY float64) {
	total := n.NumTablesTotal()
	for i := 1; i <= total; i++ {
		p := theta / (theta + d*float64(i))
		if smp.Bernoulli(p) {
			sumY++
		} else {
			sum1MinusY++
		}
	}
	return sumY, sum1MinusY
}

// AuxiliarySum1MinusZ draws, for every dish w and table k with n
// customers, one z_{u,w,k,j} ~ Bernoulli((j-1)/(j-d)) for j = 1..n-1,
// and returns the sum of (1 - z).
func (n *Node) AuxiliarySum1MinusZ(d float64, smp *sampler.Sampler) float64 {
	sum := 0.0
	for el := n.Arrangement.Front(); el != nil; el = el.Next() {
		for _, count := range el.Value {
			for j := 1; j < count; j++ {
				denom := float64(j) - d
				if denom == 0 {
					denom = 1e-10
				}
				p := float64(j-1) / denom
				if p < 0 {
					p = 0
				}
				if p > 1 {
					p = 1
				}
				if !smp.Bernoulli(p) {
					sum++
				}
			}
		}
	}
	return sum
}

// depthParam returns v[depth], or the last element if depth exceeds
// the slice (defensive: HPYLM sizes its hyperparameter vectors to
// MaxDepth+1, but a read past the end should never panic).
func depthParam(v []float64, depth int) float64 {
	if depth < len(v) {
		return v[depth]
	}
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}

// weightedChoice samples an index in [0, len(weights)) proportional to
// weights, given their precomputed sum. Falls back to the last index
// (the new-table outcome) if the weights are degenerate, so a new
// table still opens rather than silently seating nowhere.
func weightedChoice(weights []float64, sum float64, smp *sampler.Sampler) int {
	if sum <= 0 {
		return len(weights) - 1
	}
	r := smp.Uniform() * sum
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i
		}
	}
	return len(weights) - 1
}
