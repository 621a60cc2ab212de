package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/fileset"
)

func ann(name string, typ annotation.Type, values ...any) *annotation.Annotation {
	return annotation.MustNew(api.AnnotationResponse{Name: name, DisplayName: name, Type: string(typ), Values: values})
}

func sets(_ int, filters []api.Filter) *fileset.FileSet {
	return fileset.New(filters, nil)
}

func TestBuild_SingleLevel(t *testing.T) {
	groupA := ann("groupA", annotation.String, "x", "y")
	tr := Build(annotation.Hierarchy{groupA}, nil, sets)

	require.Equal(t, 3, tr.Len())
	root, _ := tr.Get(0)
	assert.True(t, root.IsRoot)
	assert.False(t, root.IsLeaf)
	assert.Equal(t, NoParent, root.Parent)

	x, _ := tr.Get(1)
	y, _ := tr.Get(2)
	assert.Equal(t, "x", x.Bucket.Label)
	assert.Equal(t, "y", y.Bucket.Label)
	assert.True(t, x.IsLeaf)
	assert.Equal(t, 0, x.Parent)
	assert.Equal(t, "groupA=x", api.FiltersKey(x.FileSet.Filters()))
	assert.Equal(t, "groupA: x", x.Label())

	state := CollapseState{}
	assert.False(t, tr.ResolveEffectiveCollapse(0, state))
	assert.True(t, tr.ResolveEffectiveCollapse(1, state))
	assert.True(t, tr.ResolveEffectiveCollapse(2, state))
}

func TestBuild_EmptyHierarchyIsFlatList(t *testing.T) {
	base := []api.Filter{api.Eq("plate", "P1")}
	tr := Build(nil, base, sets)
	require.Equal(t, 1, tr.Len())
	root, _ := tr.Get(0)
	assert.True(t, root.IsRoot)
	assert.True(t, root.IsLeaf)
	assert.Equal(t, "plate=P1", root.FileSet.Key())
	assert.False(t, tr.ResolveEffectiveCollapse(0, CollapseState{}))
}

func TestBuild_PreOrderAndDeterministic(t *testing.T) {
	h := annotation.Hierarchy{
		ann("a", annotation.String, "a1", "a2"),
		ann("b", annotation.String, "b1", "b2", "b1"),
	}
	first := Build(h, nil, sets)
	second := Build(h, nil, sets)

	// root, a1, a1/b1, a1/b2, a2, a2/b1, a2/b2
	require.Equal(t, 7, first.Len())
	var depths, parents []int
	var labels []string
	for _, n := range first.Nodes() {
		depths = append(depths, n.Depth)
		parents = append(parents, n.Parent)
		labels = append(labels, n.Bucket.Label)
	}
	assert.Equal(t, []int{0, 1, 2, 2, 1, 2, 2}, depths)
	assert.Equal(t, []int{NoParent, 0, 1, 1, 0, 4, 4}, parents)
	assert.Equal(t, []string{"", "a1", "b1", "b2", "a2", "b1", "b2"}, labels)

	for i := 0; i < first.Len(); i++ {
		a, _ := first.Get(i)
		b, _ := second.Get(i)
		assert.Equal(t, a.FileSet.Key(), b.FileSet.Key())
	}

	leaf, _ := first.Get(6)
	assert.Equal(t, "a=a2&b=b2", leaf.FileSet.Key())
	assert.Equal(t, []int{1, 4}, first.Children(0))
	assert.Equal(t, []int{5, 6}, first.Descendants(4))
	assert.Equal(t, []int{0, 4, 6}, first.Path(6))
}

func TestBuckets_Numeric(t *testing.T) {
	size := ann("size", annotation.Number, 10.0, 2.0, 5.0, 2.0)
	b := Buckets(size)
	require.Len(t, b, 3)

	assert.Equal(t, "size<5&size>=2", api.FiltersKey(b[0].Filters))
	assert.Equal(t, "size<10&size>=5", api.FiltersKey(b[1].Filters))
	assert.Equal(t, "size>=10", api.FiltersKey(b[2].Filters))
	assert.Equal(t, "[2, 5)", b[0].Label)
	assert.Equal(t, "≥ 10", b[2].Label)
}

func TestBuckets_NonNumericValuesOnNumberFallBack(t *testing.T) {
	odd := ann("odd", annotation.Number, "n/a", "unknown")
	b := Buckets(odd)
	require.Len(t, b, 2)
	assert.Equal(t, "odd=n/a", api.FiltersKey(b[0].Filters))
}

func TestCollapse_AncestorCollapsesDescendants(t *testing.T) {
	h := annotation.Hierarchy{
		ann("a", annotation.String, "a1"),
		ann("b", annotation.String, "b1", "b2"),
	}
	tr := Build(h, nil, sets)
	state := CollapseState{}

	// branch defaults to expanded
	assert.False(t, tr.ResolveEffectiveCollapse(1, state))

	state[1] = true
	assert.True(t, tr.ResolveEffectiveCollapse(1, state))
	assert.True(t, tr.ResolveEffectiveCollapse(2, state))
	assert.True(t, tr.ResolveEffectiveCollapse(3, state))

	// an explicit expand under a collapsed ancestor still resolves collapsed
	state[2] = false
	assert.True(t, tr.ResolveEffectiveCollapse(2, state))
}

func TestCollapseState_Toggle(t *testing.T) {
	tr := Build(annotation.Hierarchy{ann("a", annotation.String, "x")}, nil, sets)
	state := CollapseState{}

	state.Toggle(tr, 1)
	assert.False(t, tr.ResolveEffectiveCollapse(1, state))
	state.Toggle(tr, 1)
	assert.True(t, tr.ResolveEffectiveCollapse(1, state))

	state.Toggle(tr, 0)
	_, ok := state[0]
	assert.False(t, ok)
	state.Toggle(tr, 42)
	assert.Len(t, state, 1)
}

func TestLayout_ItemSize(t *testing.T) {
	h := annotation.Hierarchy{
		ann("a", annotation.String, "a1"),
		ann("b", annotation.String, "b1"),
	}
	tr := Build(h, nil, sets)
	l := DefaultLayout()
	state := CollapseState{}

	assert.Equal(t, 800, l.ItemSize(tr, state, 0, 800))
	assert.Equal(t, 35, l.ItemSize(tr, state, 1, 800))
	// collapsed leaf
	assert.Equal(t, 35, l.ItemSize(tr, state, 2, 800))

	state.Toggle(tr, 2)
	assert.Equal(t, 300, l.ItemSize(tr, state, 2, 800))

	state.Toggle(tr, 1)
	assert.Equal(t, 0, l.ItemSize(tr, state, 2, 800))
	assert.Equal(t, 0, l.ItemSize(tr, state, 99, 800))
	assert.Equal(t, []int{0, 1}, tr.Visible(state))
}

func TestEquivalentAndCurrent(t *testing.T) {
	a := ann("a", annotation.String, "x")
	b := ann("b", annotation.String, "y")
	base := []api.Filter{api.Eq("p", "1"), api.Eq("q", "2")}
	tr := Build(annotation.Hierarchy{a, b}, base, sets)

	assert.True(t, tr.Equivalent(annotation.Hierarchy{a, b}, []api.Filter{api.Eq("q", "2"), api.Eq("p", "1")}))
	assert.False(t, tr.Equivalent(annotation.Hierarchy{b, a}, base))
	assert.False(t, tr.Equivalent(annotation.Hierarchy{a, b}, nil))

	n, _ := tr.Get(1)
	assert.True(t, tr.Current(1, n.FileSet))
	assert.False(t, tr.Current(2, n.FileSet))
	assert.False(t, tr.Current(1, fileset.New(n.FileSet.Filters(), nil)))

	tr.Retire()
	assert.True(t, n.FileSet.Retired())
}
