package api

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLt  Op = "<"
)

// Filter restricts a file query to records whose annotation matches Value.
type Filter struct {
	Name  string
	Op    Op
	Value any
}

// Eq is shorthand for an equality filter.
func Eq(name string, value any) Filter {
	return Filter{Name: name, Op: OpEq, Value: value}
}

// String renders the filter as it appears in a "filter=" query parameter,
// for example "size>=10".
func (f Filter) String() string {
	op := f.Op
	if op == "" {
		op = OpEq
	}
	return f.Name + string(op) + FormatValue(f.Value)
}

// ParseFilter is the inverse of Filter.String. Values are kept as strings.
// The first operator character splits name from value.
func ParseFilter(s string) (Filter, error) {
	i := strings.IndexAny(s, "=<>")
	if i <= 0 {
		return Filter{}, fmt.Errorf("malformed filter %q", s)
	}
	rest := s[i:]
	switch {
	case strings.HasPrefix(rest, string(OpGte)):
		return Filter{Name: s[:i], Op: OpGte, Value: rest[len(OpGte):]}, nil
	case strings.HasPrefix(rest, string(OpLt)):
		return Filter{Name: s[:i], Op: OpLt, Value: rest[len(OpLt):]}, nil
	case strings.HasPrefix(rest, string(OpEq)):
		return Filter{Name: s[:i], Op: OpEq, Value: rest[len(OpEq):]}, nil
	}
	return Filter{}, fmt.Errorf("unsupported operator in filter %q", s)
}

// FiltersKey returns a canonical, order-insensitive key for a filter set.
func FiltersKey(filters []Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

// FormatValue renders a filter or annotation value canonically. Whole floats
// print without a fractional part so JSON numbers round-trip as written.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// ToFloat converts numeric values (and numeric strings) to float64.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// FileQuery selects a window of the files matching Filters.
type FileQuery struct {
	Filters []Filter
	Offset  int
	Limit   int
}

// Values encodes the query as URL parameters: one "filter" entry per filter,
// followed by offset and limit.
func (q FileQuery) Values() url.Values {
	v := url.Values{}
	for _, f := range q.Filters {
		v.Add("filter", f.String())
	}
	v.Set("offset", strconv.Itoa(q.Offset))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}

// ParseFileQuery decodes parameters produced by FileQuery.Values.
func ParseFileQuery(v url.Values) (FileQuery, error) {
	var q FileQuery
	for _, raw := range v["filter"] {
		f, err := ParseFilter(raw)
		if err != nil {
			return q, err
		}
		q.Filters = append(q.Filters, f)
	}
	var err error
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil {
			return q, fmt.Errorf("offset: %w", err)
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, fmt.Errorf("limit: %w", err)
		}
	}
	return q, nil
}
