package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/fmsx/api"
)

func mk(name string, typ Type, units string, values ...any) *Annotation {
	return MustNew(api.AnnotationResponse{
		Name:        name,
		DisplayName: name,
		Type:        string(typ),
		Units:       units,
		Values:      values,
	})
}

func TestNew_RequiresName(t *testing.T) {
	_, err := New(api.AnnotationResponse{DisplayName: "Nameless"})
	assert.Error(t, err)
}

func TestNew_DefaultsDisplayName(t *testing.T) {
	a := mk("cell_line", String, "")
	assert.Equal(t, "cell_line", a.DisplayName())
	assert.Equal(t, String, a.Type())
}

func TestValues_ReturnsCopy(t *testing.T) {
	a := mk("x", String, "", "a", "b")
	v := a.Values()
	v[0] = "mutated"
	assert.Equal(t, []any{"a", "b"}, a.Values())
}

func TestExtract_AnnotationEntries(t *testing.T) {
	a := mk("cell_line", String, "")
	rec := api.FileRecord{
		"file_id": "f1",
		"annotations": []any{
			map[string]any{"annotation_name": "other", "values": []any{"nope"}},
			map[string]any{"annotation_name": "cell_line", "values": []any{"AICS-0", "AICS-12"}},
		},
	}
	assert.Equal(t, []any{"AICS-0", "AICS-12"}, a.Extract(rec))
	assert.Equal(t, "AICS-0, AICS-12", a.DisplayValue(rec))
}

func TestExtract_TopLevelField(t *testing.T) {
	a := mk("file_size", Number, "bytes")
	rec := api.FileRecord{"file_size": 1234567.0}
	assert.Equal(t, []any{1234567.0}, a.Extract(rec))
	assert.Equal(t, "1,234,567 bytes", a.DisplayValue(rec))
}

func TestDisplayValue_Missing(t *testing.T) {
	a := mk("absent", String, "")
	assert.Equal(t, "", a.DisplayValue(api.FileRecord{"file_id": "x"}))
	assert.Equal(t, "", a.DisplayValue(nil))
}

func TestFormatterFor(t *testing.T) {
	assert.Equal(t, "8/15/2019", FormatterFor(Date)("2019-08-15T10:00:00Z", ""))
	assert.Equal(t, "8/15/2019", FormatterFor(DateTime)("2019-08-15 23:10:00", ""))
	assert.Equal(t, "not a date", FormatterFor(Date)("not a date", ""))

	assert.Equal(t, "1,234.5", FormatterFor(Number)(1234.5, ""))
	assert.Equal(t, "12 µm", FormatterFor(Number)(12.0, "µm"))
	assert.Equal(t, "42", FormatterFor(Number)("42", ""))

	assert.Equal(t, "true", FormatterFor(Boolean)(true, ""))
	assert.Equal(t, "hello", FormatterFor(String)("hello", "ignored"))
	assert.Equal(t, "", FormatterFor(String)(nil, ""))
}

func TestResolve(t *testing.T) {
	all := []*Annotation{mk("a", String, ""), mk("b", String, "")}
	got, err := Resolve(all, []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, Names(got))

	_, err = Resolve(all, []string{"zzz"})
	assert.ErrorIs(t, err, ErrUnknownAnnotation)
}

func TestHierarchy_Move(t *testing.T) {
	a, b, c := mk("a", String, ""), mk("b", String, ""), mk("c", String, "")
	h := Hierarchy{a, b}

	assert.Equal(t, []string{"a", "c", "b"}, h.Move(c, 1).Names())
	assert.Equal(t, []string{"b", "a"}, h.Move(a, 1).Names())
	assert.Equal(t, []string{"a", "b", "c"}, h.Move(c, 99).Names())
	assert.Equal(t, []string{"c", "a", "b"}, h.Move(c, -3).Names())
	// the receiver is untouched
	assert.Equal(t, []string{"a", "b"}, h.Names())
}

func TestHierarchy_RemoveAndEqual(t *testing.T) {
	a, b := mk("a", String, ""), mk("b", String, "")
	h := Hierarchy{a, b}
	assert.Equal(t, []string{"b"}, h.Remove("a").Names())
	assert.Equal(t, []string{"a", "b"}, h.Remove("zzz").Names())
	assert.Equal(t, 1, h.IndexOf("b"))
	assert.Equal(t, -1, h.IndexOf("zzz"))

	assert.True(t, h.Equal(Hierarchy{mk("a", Number, ""), mk("b", Date, "")}))
	assert.False(t, h.Equal(Hierarchy{b, a}))
	assert.False(t, h.Equal(nil))
	assert.True(t, Hierarchy(nil).Equal(Hierarchy{}))
}
