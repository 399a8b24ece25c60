package domain

// Row is one table row as exchanged with a persistence backend. Keys are
// column names.
type Row map[string]any

type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpIn FilterOp = "in"
)

type Filter struct {
	Column string
	Op     FilterOp
	Value  any // []string for OpIn
}

func Eq(col string, v any) Filter       { return Filter{Column: col, Op: OpEq, Value: v} }
func In(col string, vs []string) Filter { return Filter{Column: col, Op: OpIn, Value: vs} }

// Order sorts by one column. Nulls sort last unless NullsFirst is set.
type Order struct {
	Column     string
	Desc       bool
	NullsFirst bool
}

func Asc(col string) Order  { return Order{Column: col} }
func Desc(col string) Order { return Order{Column: col, Desc: true} }

type Query struct {
	Columns []string // empty selects every column
	Filters []Filter
	Orders  []Order
	Limit   int
}
