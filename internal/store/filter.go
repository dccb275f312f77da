package store

type op int

const (
	opEq op = iota
	opIn
	opNotNull
	opIsNull
)

// Predicate is a single condition on a top-level field.
type Predicate struct {
	Field  string
	op     op
	Value  interface{}
	Values []interface{}
}

// Sort orders results by Field.
type Sort struct {
	Field string
	Desc  bool
}

// Filter is an immutable conjunction of predicates with optional ordering.
// Builder methods return a new Filter.
type Filter struct {
	Preds []Predicate
	Sorts []Sort
	Limit int64
}

// All matches every record.
func All() Filter { return Filter{} }

// Eq starts a filter on field == v.
func Eq(field string, v interface{}) Filter { return Filter{}.Eq(field, v) }

// ByID matches the record with the given "_id".
func ByID(id string) Filter { return Eq("_id", id) }

func (f Filter) with(p Predicate) Filter {
	f.Preds = append(f.Preds[:len(f.Preds):len(f.Preds)], p)
	return f
}

func (f Filter) Eq(field string, v interface{}) Filter {
	return f.with(Predicate{Field: field, op: opEq, Value: v})
}

// In matches when field equals any of vs.
func (f Filter) In(field string, vs ...interface{}) Filter {
	cp := append([]interface{}(nil), vs...)
	return f.with(Predicate{Field: field, op: opIn, Values: cp})
}

func (f Filter) NotNull(field string) Filter {
	return f.with(Predicate{Field: field, op: opNotNull})
}

// IsNull matches records where field is null or absent.
func (f Filter) IsNull(field string) Filter {
	return f.with(Predicate{Field: field, op: opIsNull})
}

func (f Filter) OrderBy(field string, desc bool) Filter {
	f.Sorts = append(f.Sorts[:len(f.Sorts):len(f.Sorts)], Sort{Field: field, Desc: desc})
	return f
}

func (f Filter) Take(n int64) Filter {
	f.Limit = n
	return f
}

// And merges the predicates of o into f.
func (f Filter) And(o Filter) Filter {
	for _, p := range o.Preds {
		f = f.with(p)
	}
	return f
}

// Strings converts a list of string-like values for use with In.
func Strings[S ~string](vs ...S) []interface{} {
	out := make([]interface{}, len(vs))
	for i, v := range vs {
		out[i] = string(v)
	}
	return out
}
