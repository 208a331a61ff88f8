package pyor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/hpylm-hmm/internal/sampler"
)

func TestNode_AddCustomer_FirstDishOpensOneTable(t *testing.T) {
	n := NewRoot()
	smp := sampler.New(1)
	opened, err := n.AddCustomer(42, 0.01, []float64{0.5}, []float64{1.0}, smp)
	require.NoError(t, err)
	assert.True(t, opened)
	assert.Equal(t, 1, n.NumCustomersForDish(42))
	assert.Equal(t, 1, n.NumTablesForDish(42))
}

func TestNode_RemoveCustomer_EmptiesArrangementEntry(t *testing.T) {
	n := NewRoot()
	smp := sampler.New(2)
	_, err := n.AddCustomer(7, 0.01, []float64{0.5}, []float64{1.0}, smp)
	require.NoError(t, err)

	removedTable, err := n.RemoveCustomer(7, smp)
	require.NoError(t, err)
	assert.True(t, removedTable)
	assert.Equal(t, 0, n.NumCustomersForDish(7))
	_, ok := n.Arrangement.Get(7)
	assert.False(t, ok)
}

func TestNode_RemoveCustomer_MissingDishErrors(t *testing.T) {
	n := NewRoot()
	smp := sampler.New(3)
	_, err := n.RemoveCustomer(99, smp)
	require.Error(t, err)
	var mnErr *MissingNodeError
	assert.ErrorAs(t, err, &mnErr)
}

func TestNode_FindChild_GenerateIfNeeded(t *testing.T) {
	n := NewRoot()
	assert.Nil(t, n.FindChild(5, false))

	child := n.FindChild(5, true)
	require.NotNil(t, child)
	assert.Equal(t, 1, child.Depth)
	assert.Same(t, n, child.Parent)
	assert.Same(t, child, n.FindChild(5, false))
}

func TestNode_NeedToRemoveFromParent(t *testing.T) {
	root := NewRoot()
	child := root.FindChild(1, true)
	assert.True(t, child.NeedToRemoveFromParent(), "empty non-root node should be removable")

	smp := sampler.New(4)
	_, err := child.AddCustomer(9, 0.1, []float64{0, 0.5}, []float64{0, 1.0}, smp)
	require.NoError(t, err)
	assert.False(t, child.NeedToRemoveFromParent())

	assert.False(t, root.NeedToRemoveFromParent(), "root must never be flagged for removal")
}

func TestNode_ComputePw_ConvergesTowardG0WithNoData(t *testing.T) {
	root := NewRoot()
	g0 := 1.0 / 50.0
	p := root.ComputePw(3, g0, []float64{0.5}, []float64{1.0})
	assert.InDelta(t, g0, p, 1e-9, "an empty root node must return the base measure")
}

func TestNode_AuxiliaryYSums_TotalsMatchTableCount(t *testing.T) {
	n := NewRoot()
	smp := sampler.New(5)
	for _, w := range []int{1, 1, 1, 2, 2, 3} {
		_, err := n.AddCustomer(w, 0.1, []float64{0.5, 0.5}, []float64{1.0, 1.0}, smp)
		require.NoError(t, err)
	}
	total := n.NumTablesTotal()
	y, n1y := n.AuxiliaryYSums(0.5, 1.0, smp)
	assert.InDelta(t, float64(total), y+n1y, 1e-9)
}

func TestNode_AuxiliaryLogX_NeverNaN(t *testing.T) {
	n := NewRoot()
	smp := sampler.New(6)
	_, err := n.AddCustomer(1, 0.1, []float64{0.5}, []float64{1.0}, smp)
	require.NoError(t, err)
	v := n.AuxiliaryLogX(1.0, smp)
	assert.False(t, v != v, "log(x) must not be NaN")
}

func TestNode_GetNumNodes_CountsSubtreeExcludingSelf(t *testing.T) {
	root := NewRoot()
	root.FindChild(1, true)
	child2 := root.FindChild(2, true)
	child2.FindChild(3, true)

	assert.Equal(t, 3, root.GetNumNodes())
}
