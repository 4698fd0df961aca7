package docstore

// UpdateOp is the kind of change an Update applies to one field.
type UpdateOp int

const (
	OpSet UpdateOp = iota
	OpIncrement
	OpArrayUnion
	OpArrayRemove
	OpDeleteField
)

// Update is one field change for Store.Update.
type Update struct {
	Field  string
	Op     UpdateOp
	Value  any
	Values []any
}

func SetField(field string, value any) Update {
	return Update{Field: field, Op: OpSet, Value: value}
}

// Increment adds n to a numeric field, treating a missing field as zero.
func Increment(field string, n int64) Update {
	return Update{Field: field, Op: OpIncrement, Value: n}
}

// ArrayUnion adds values not already present in the array field.
func ArrayUnion(field string, values ...any) Update {
	return Update{Field: field, Op: OpArrayUnion, Values: values}
}

// ArrayRemove removes every occurrence of values from the array field.
func ArrayRemove(field string, values ...any) Update {
	return Update{Field: field, Op: OpArrayRemove, Values: values}
}

func DeleteField(field string) Update {
	return Update{Field: field, Op: OpDeleteField}
}

// FilterOp is a comparison used in a query filter.
type FilterOp string

const (
	Equal         FilterOp = "=="
	Less          FilterOp = "<"
	LessEqual     FilterOp = "<="
	Greater       FilterOp = ">"
	GreaterEqual  FilterOp = ">="
	ArrayContains FilterOp = "array-contains"
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Query selects documents of one collection. Build it with NewQuery.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Max        int
}

func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

func (q Query) Where(field string, op FilterOp, value any) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}
