package store

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Gateway used for development and unit tests.
// A single mutex serialises every operation, which makes Upsert atomic.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

type memTable struct {
	rows    []Record
	uniques [][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*memTable)}
}

func (m *MemoryStore) table(name string) *memTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{}
		m.tables[name] = t
	}
	return t
}

func (m *MemoryStore) EnsureUnique(_ context.Context, table string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(table)
	for _, u := range t.uniques {
		if reflect.DeepEqual(u, fields) {
			return nil
		}
	}
	t.uniques = append(t.uniques, append([]string(nil), fields...))
	return nil
}

func (m *MemoryStore) Find(_ context.Context, table string, f Filter) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nf, err := normalizeFilter(f)
	if err != nil {
		return nil, err
	}
	t := m.table(table)
	out := []Record{}
	for _, r := range t.rows {
		if matches(r, nf) {
			out = append(out, r)
		}
	}
	if len(nf.Sorts) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, s := range nf.Sorts {
				c := compareValues(out[i][s.Field], out[j][s.Field])
				if c == 0 {
					continue
				}
				if s.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if nf.Limit > 0 && int64(len(out)) > nf.Limit {
		out = out[:nf.Limit]
	}
	return copyAll(out)
}

func (m *MemoryStore) FindOne(ctx context.Context, table string, f Filter) (Record, error) {
	recs, err := m.Find(ctx, table, f.Take(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs[0], nil
}

func (m *MemoryStore) Insert(_ context.Context, table string, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(m.table(table), rec)
}

func (m *MemoryStore) insertLocked(t *memTable, rec Record) (Record, error) {
	nr, err := Encode(rec)
	if err != nil {
		return nil, err
	}
	if id, _ := nr["_id"].(string); id == "" {
		nr["_id"] = NewID()
	}
	if t.collides(nr) {
		return nil, ErrDuplicate
	}
	t.rows = append(t.rows, nr)
	return Encode(nr)
}

func (m *MemoryStore) InsertMany(_ context.Context, table string, recs []Record) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(table)
	var written []int
	for i, r := range recs {
		if _, err := m.insertLocked(t, r); err != nil {
			if err == ErrDuplicate {
				continue
			}
			return written, err
		}
		written = append(written, i)
	}
	return written, nil
}

func (m *MemoryStore) Update(_ context.Context, table string, f Filter, patch Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nf, err := normalizeFilter(f)
	if err != nil {
		return 0, err
	}
	np, err := Encode(patch)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range m.table(table).rows {
		if matches(r, nf) {
			for k, v := range np {
				r[k] = v
			}
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Delete(_ context.Context, table string, f Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nf, err := normalizeFilter(f)
	if err != nil {
		return 0, err
	}
	t := m.table(table)
	kept := t.rows[:0]
	var n int64
	for _, r := range t.rows {
		if matches(r, nf) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return n, nil
}

func (m *MemoryStore) Upsert(_ context.Context, table string, key, guard Filter, set, setOnInsert Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nk, err := normalizeFilter(key)
	if err != nil {
		return nil, err
	}
	ng, err := normalizeFilter(guard)
	if err != nil {
		return nil, err
	}
	ns, err := Encode(set)
	if err != nil {
		return nil, err
	}
	t := m.table(table)
	for _, r := range t.rows {
		if !matches(r, nk) {
			continue
		}
		if !matches(r, ng) {
			return nil, ErrConflict
		}
		for k, v := range ns {
			r[k] = v
		}
		return Encode(r)
	}
	rec := Record{}
	for _, p := range nk.Preds {
		if p.op == opEq {
			rec[p.Field] = p.Value
		}
	}
	for k, v := range setOnInsert {
		rec[k] = v
	}
	for k, v := range ns {
		rec[k] = v
	}
	return m.insertLocked(t, rec)
}

func (t *memTable) collides(rec Record) bool {
	for _, r := range t.rows {
		if equalValues(r["_id"], rec["_id"]) {
			return true
		}
		for _, fields := range t.uniques {
			same := true
			for _, f := range fields {
				if !equalValues(r[f], rec[f]) {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

func copyAll(recs []Record) ([]Record, error) {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		c, err := Encode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// normalizeValue runs v through the BSON codec so filter values compare
// equal to stored values (time.Time becomes primitive.DateTime, and so on).
func normalizeValue(v interface{}) (interface{}, error) {
	rec, err := Encode(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return rec["v"], nil
}

func normalizeFilter(f Filter) (Filter, error) {
	out := Filter{Sorts: f.Sorts, Limit: f.Limit}
	for _, p := range f.Preds {
		np := Predicate{Field: p.Field, op: p.op}
		switch p.op {
		case opEq:
			v, err := normalizeValue(p.Value)
			if err != nil {
				return Filter{}, err
			}
			np.Value = v
		case opIn:
			for _, raw := range p.Values {
				v, err := normalizeValue(raw)
				if err != nil {
					return Filter{}, err
				}
				np.Values = append(np.Values, v)
			}
		}
		out.Preds = append(out.Preds, np)
	}
	return out, nil
}

func matches(r Record, f Filter) bool {
	for _, p := range f.Preds {
		v, present := r[p.Field]
		switch p.op {
		case opEq:
			if !equalValues(v, p.Value) {
				return false
			}
		case opIn:
			found := false
			for _, c := range p.Values {
				if equalValues(v, c) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case opNotNull:
			if !present || v == nil {
				return false
			}
		case opIsNull:
			if present && v != nil {
				return false
			}
		}
	}
	return true
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equalValues(a, b interface{}) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders nil before any value; unlike types compare equal.
func compareValues(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return cmp3(fa < fb, fa > fb)
		}
	}
	switch av := a.(type) {
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return cmp3(av < bv, av > bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return cmp3(av < bv, av > bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmp3(!av && bv, av && !bv)
		}
	}
	return 0
}

func cmp3(less, greater bool) int {
	if less {
		return -1
	}
	if greater {
		return 1
	}
	return 0
}
