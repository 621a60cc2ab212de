package query

import (
	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

type matcher struct {
	filter api.Filter
	ann    *annotation.Annotation
}

func newMatcher(anns []*annotation.Annotation, f api.Filter) matcher {
	a, ok := annotation.Find(anns, f.Name)
	if !ok {
		// not a declared annotation; match on the top-level field
		a = annotation.MustNew(api.AnnotationResponse{Name: f.Name, Type: string(annotation.String)})
	}
	return matcher{filter: f, ann: a}
}

func (m matcher) match(rec api.FileRecord) bool {
	for _, v := range m.ann.Extract(rec) {
		if Matches(m.filter, v) {
			return true
		}
	}
	return false
}

// Matches reports whether a single annotation value satisfies f. Range
// operators compare numerically; equality compares canonical text.
func Matches(f api.Filter, v any) bool {
	switch f.Op {
	case api.OpGte, api.OpLt:
		got, ok := api.ToFloat(v)
		if !ok {
			return false
		}
		want, ok := api.ToFloat(f.Value)
		if !ok {
			return false
		}
		if f.Op == api.OpGte {
			return got >= want
		}
		return got < want
	default:
		return api.FormatValue(v) == api.FormatValue(f.Value)
	}
}

// window applies q to the records produced by each, in order.
func window(anns []*annotation.Annotation, q api.FileQuery, each func(func(api.FileRecord) error) error) (*api.FilePage, error) {
	matchers := make([]matcher, 0, len(q.Filters))
	for _, f := range q.Filters {
		matchers = append(matchers, newMatcher(anns, f))
	}
	var (
		total int
		data  []api.FileRecord
	)
	err := each(func(rec api.FileRecord) error {
		for _, m := range matchers {
			if !m.match(rec) {
				return nil
			}
		}
		if total >= q.Offset && len(data) < q.Limit {
			data = append(data, rec)
		}
		total++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return api.NewFilePage(data, q.Offset, total), nil
}
