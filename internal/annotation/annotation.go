// Package annotation models the metadata dimensions files can be grouped and
// displayed by. An Annotation is immutable once built.
package annotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/fmsx/api"
)

// ErrUnknownAnnotation is returned when a name does not match any known annotation.
var ErrUnknownAnnotation = errors.New("unknown annotation")

// Type is the declared data type of an annotation. Values are the wire strings.
type Type string

const (
	Date     Type = "Date"
	DateTime Type = "Date/Time"
	Number   Type = "Number"
	String   Type = "Text"
	Boolean  Type = "Yes/No"
)

// ValueSeparator joins multiple values of one annotation on a single record.
const ValueSeparator = ", "

var (
	// entriesPath selects every {annotation_name, values} entry in a record.
	entriesPath = jp.R().C("annotations").W()
)

// Annotation is a named metadata dimension with a type, optional units and
// the list of values observed across all files.
type Annotation struct {
	name        string
	displayName string
	description string
	typ         Type
	units       string
	values      []any

	fieldPath jp.Expr
	format    Formatter
}

// New builds an Annotation from its wire form.
func New(resp api.AnnotationResponse) (*Annotation, error) {
	if resp.Name == "" {
		return nil, fmt.Errorf("annotation %q: missing annotation_name", resp.DisplayName)
	}
	typ := Type(resp.Type)
	display := resp.DisplayName
	if display == "" {
		display = resp.Name
	}
	values := make([]any, len(resp.Values))
	copy(values, resp.Values)
	return &Annotation{
		name:        resp.Name,
		displayName: display,
		description: resp.Description,
		typ:         typ,
		units:       resp.Units,
		values:      values,
		fieldPath:   jp.R().C(resp.Name),
		format:      FormatterFor(typ),
	}, nil
}

// MustNew is New for static tables and tests.
func MustNew(resp api.AnnotationResponse) *Annotation {
	a, err := New(resp)
	if err != nil {
		panic(err)
	}
	return a
}

// FromResponses converts a list of wire annotations, stopping at the first
// malformed entry.
func FromResponses(resps []api.AnnotationResponse) ([]*Annotation, error) {
	out := make([]*Annotation, 0, len(resps))
	for _, r := range resps {
		a, err := New(r)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (a *Annotation) Name() string        { return a.name }
func (a *Annotation) DisplayName() string { return a.displayName }
func (a *Annotation) Description() string { return a.description }
func (a *Annotation) Type() Type          { return a.typ }
func (a *Annotation) Units() string       { return a.units }

// Values returns a copy of the observed values in source order.
func (a *Annotation) Values() []any {
	out := make([]any, len(a.values))
	copy(out, a.values)
	return out
}

// Response converts the annotation back to its wire form.
func (a *Annotation) Response() api.AnnotationResponse {
	return api.AnnotationResponse{
		DisplayName: a.displayName,
		Name:        a.name,
		Description: a.description,
		Type:        string(a.typ),
		Units:       a.units,
		Values:      a.Values(),
	}
}

// Extract returns the raw values this annotation holds on rec. Records carry
// values either in an "annotations" list of {annotation_name, values}
// entries or as a top-level field named after the annotation.
func (a *Annotation) Extract(rec api.FileRecord) []any {
	if rec == nil {
		return nil
	}
	var out []any
	for _, entry := range entriesPath.Get(map[string]any(rec)) {
		m, ok := entry.(map[string]any)
		if !ok || m["annotation_name"] != a.name {
			continue
		}
		out = append(out, flatten(m["values"])...)
	}
	if len(out) > 0 {
		return out
	}
	for _, v := range a.fieldPath.Get(map[string]any(rec)) {
		out = append(out, flatten(v)...)
	}
	return out
}

// Format renders a single value with this annotation's formatter.
func (a *Annotation) Format(v any) string {
	return a.format(v, a.units)
}

// DisplayValue renders every value the record holds for this annotation,
// joined by ValueSeparator. Records without the annotation render as "".
func (a *Annotation) DisplayValue(rec api.FileRecord) string {
	vals := a.Extract(rec)
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = a.Format(v)
	}
	return strings.Join(parts, ValueSeparator)
}

func (a *Annotation) String() string { return a.name }

func flatten(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// Find returns the annotation named name.
func Find(all []*Annotation, name string) (*Annotation, bool) {
	for _, a := range all {
		if a.name == name {
			return a, true
		}
	}
	return nil, false
}

// Names returns the annotation names in order.
func Names(all []*Annotation) []string {
	out := make([]string, len(all))
	for i, a := range all {
		out[i] = a.name
	}
	return out
}

// Resolve maps names onto annotations from all, preserving order.
func Resolve(all []*Annotation, names []string) ([]*Annotation, error) {
	out := make([]*Annotation, 0, len(names))
	for _, n := range names {
		a, ok := Find(all, n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAnnotation, n)
		}
		out = append(out, a)
	}
	return out, nil
}
