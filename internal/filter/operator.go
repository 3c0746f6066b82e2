package filter

import "strings"

// Operator is the closed set of filter operators accepted in requests.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpLike       Operator = "like"
	OpILike      Operator = "ilike"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpIsNull     Operator = "is_null"
	OpIsNotNull  Operator = "is_not_null"
	OpBetween    Operator = "between"
)

var operators = map[Operator]struct{}{
	OpEq: {}, OpNe: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpLike: {}, OpILike: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {},
	OpIn: {}, OpNotIn: {}, OpIsNull: {}, OpIsNotNull: {}, OpBetween: {},
}

// ParseOperator normalizes a raw operator string. The second result
// reports whether the operator is a known one; unknown operators are
// still returned so the compiler can apply its equality fallback.
func ParseOperator(raw string) (Operator, bool) {
	op := Operator(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := operators[op]
	return op, ok
}

// ColumnType is the semantic type of a column, driving value coercion.
type ColumnType string

const (
	TypeString  ColumnType = "string"
	TypeNumeric ColumnType = "numeric"
	TypeDate    ColumnType = "date"
	TypeID      ColumnType = "id"
	TypeBool    ColumnType = "bool"
)

// Column is a filterable column: its SQL-qualified name and semantic type.
type Column struct {
	Name string
	Type ColumnType
}
