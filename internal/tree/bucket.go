package tree

import (
	"sort"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

// Bucket is one group under an annotation level.
type Bucket struct {
	Label   string
	Filters []api.Filter
}

// Buckets derives the child groups for a. Number annotations are split into
// left-closed ranges between ascending distinct values, the last one open
// ended. Every other type gets one equality bucket per distinct value in
// first-observation order.
func Buckets(a *annotation.Annotation) []Bucket {
	if a.Type() == annotation.Number {
		if b := numericBuckets(a); len(b) > 0 {
			return b
		}
	}
	var out []Bucket
	seen := make(map[string]bool)
	for _, v := range a.Values() {
		key := api.FormatValue(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Bucket{
			Label:   a.Format(v),
			Filters: []api.Filter{api.Eq(a.Name(), v)},
		})
	}
	return out
}

func numericBuckets(a *annotation.Annotation) []Bucket {
	seen := make(map[float64]bool)
	var vals []float64
	for _, v := range a.Values() {
		f, ok := api.ToFloat(v)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		vals = append(vals, f)
	}
	sort.Float64s(vals)

	out := make([]Bucket, 0, len(vals))
	for i, lo := range vals {
		b := Bucket{Filters: []api.Filter{{Name: a.Name(), Op: api.OpGte, Value: lo}}}
		if i+1 < len(vals) {
			hi := vals[i+1]
			b.Filters = append(b.Filters, api.Filter{Name: a.Name(), Op: api.OpLt, Value: hi})
			b.Label = "[" + a.Format(lo) + ", " + a.Format(hi) + ")"
		} else {
			b.Label = "≥ " + a.Format(lo)
		}
		out = append(out, b)
	}
	return out
}
