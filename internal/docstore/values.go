package docstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// String returns the string field or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Int64 returns the numeric field as int64, 0 when missing.
func (f Fields) Int64(key string) int64 {
	switch v := f[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Time returns the time field or the zero time.
func (f Fields) Time(key string) time.Time {
	t, _ := f[key].(time.Time)
	return t
}

// Strings returns the string elements of an array field.
func (f Fields) Strings(key string) []string {
	var out []string
	switch v := f[key].(type) {
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}

// Has reports whether key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Normalize converts a value to the canonical types every backend returns:
// int64, float64, string, bool, time.Time, []any, map[string]any and nil.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Round(0)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Round(0)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out
	case Fields:
		return normalizeMap(x)
	case map[string]any:
		return normalizeMap(x)
	}
	return v
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = Normalize(e)
	}
	return out
}

// NormalizeFields returns a deep, normalized copy of f.
func NormalizeFields(f Fields) Fields {
	if f == nil {
		return Fields{}
	}
	return Fields(normalizeMap(f))
}

// valuesEqual compares two normalized values.
func valuesEqual(a, b any) bool {
	if c, ok := Compare(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two normalized scalar values of compatible types.
func Compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), true
		case float64:
			return cmpOrdered(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, float64(y)), true
		case float64:
			return cmpOrdered(x, y), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Matches reports whether data satisfies every filter of q.
func Matches(data Fields, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok {
			return false
		}
		want := Normalize(f.Value)
		switch f.Op {
		case Equal:
			if !valuesEqual(v, want) {
				return false
			}
		case ArrayContains:
			arr, ok := v.([]any)
			if !ok || !containsValue(arr, want) {
				return false
			}
		default:
			c, ok := Compare(v, want)
			if !ok {
				return false
			}
			switch f.Op {
			case Less:
				if c >= 0 {
					return false
				}
			case LessEqual:
				if c > 0 {
					return false
				}
			case Greater:
				if c <= 0 {
					return false
				}
			case GreaterEqual:
				if c < 0 {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if valuesEqual(e, v) {
			return true
		}
	}
	return false
}

// ApplyUpdates applies updates to data in place. data must be normalized.
func ApplyUpdates(data Fields, updates []Update) error {
	for _, u := range updates {
		switch u.Op {
		case OpSet:
			data[u.Field] = Normalize(u.Value)
		case OpDeleteField:
			delete(data, u.Field)
		case OpIncrement:
			n := Normalize(u.Value)
			switch cur := data[u.Field].(type) {
			case nil:
				data[u.Field] = n
			case int64:
				switch d := n.(type) {
				case int64:
					data[u.Field] = cur + d
				case float64:
					data[u.Field] = float64(cur) + d
				}
			case float64:
				switch d := n.(type) {
				case int64:
					data[u.Field] = cur + float64(d)
				case float64:
					data[u.Field] = cur + d
				}
			default:
				return fmt.Errorf("docstore: cannot increment non-numeric field %q", u.Field)
			}
		case OpArrayUnion:
			arr, _ := data[u.Field].([]any)
			for _, v := range u.Values {
				v = Normalize(v)
				if !containsValue(arr, v) {
					arr = append(arr, v)
				}
			}
			if arr == nil {
				arr = []any{}
			}
			data[u.Field] = arr
		case OpArrayRemove:
			arr, _ := data[u.Field].([]any)
			kept := make([]any, 0, len(arr))
			for _, e := range arr {
				remove := false
				for _, v := range u.Values {
					if valuesEqual(e, Normalize(v)) {
						remove = true
						break
					}
				}
				if !remove {
					kept = append(kept, e)
				}
			}
			data[u.Field] = kept
		default:
			return fmt.Errorf("docstore: unknown update op %d", u.Op)
		}
	}
	return nil
}

// SortSnapshots orders snapshots by field, falling back to path order.
func SortSnapshots(snaps []*Snapshot, field string, descending bool) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if field != "" {
			c, ok := Compare(snaps[i].Data[field], snaps[j].Data[field])
			if ok && c != 0 {
				if descending {
					return c > 0
				}
				return c < 0
			}
		}
		return snaps[i].Path < snaps[j].Path
	})
}
