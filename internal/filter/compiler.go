package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
)

// Compile maps a (column, operator, value) triple to a predicate
// fragment with bound parameters. It is pure and never fails: every
// malformed input degrades to a harmless, well-formed fragment. The
// universal default for an unrecognized (column, operator) pair is an
// equality check against the raw string form of the value.
func Compile(col Column, op Operator, val any) squirrel.Sqlizer {
	switch op {
	case OpIsNull:
		// operand is ignored entirely
		return squirrel.Expr(col.Name + " IS NULL")
	case OpIsNotNull:
		return squirrel.Expr(col.Name + " IS NOT NULL")
	case OpIn:
		return squirrel.Eq{col.Name: coerceList(col, val)}
	case OpNotIn:
		list := coerceList(col, val)
		if len(list) == 0 {
			// not a list: degrade to matching nothing
			return squirrel.Eq{col.Name: list}
		}
		return squirrel.NotEq{col.Name: list}
	case OpBetween:
		return compileBetween(col, val)
	}

	switch col.Type {
	case TypeNumeric:
		return compileNumeric(col, op, val)
	case TypeDate:
		return compileOrdered(col, op, isoString(val))
	case TypeBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(fmt.Sprint(val))); err == nil {
			switch op {
			case OpEq:
				return squirrel.Eq{col.Name: b}
			case OpNe:
				return squirrel.NotEq{col.Name: b}
			}
		}
	case TypeString:
		s := fmt.Sprint(val)
		switch op {
		case OpContains:
			return squirrel.ILike{col.Name: "%" + escapeLike(s) + "%"}
		case OpStartsWith:
			return squirrel.ILike{col.Name: escapeLike(s) + "%"}
		case OpEndsWith:
			return squirrel.ILike{col.Name: "%" + escapeLike(s)}
		case OpILike:
			return squirrel.ILike{col.Name: s}
		case OpLike:
			return squirrel.Like{col.Name: s}
		}
		return compileOrdered(col, op, s)
	case TypeID:
		return compileOrdered(col, op, fmt.Sprint(val))
	}

	return fallback(col, val)
}

// fallback is the universal degradation path: equality against the raw
// string form. Always reachable, never an error.
func fallback(col Column, val any) squirrel.Sqlizer {
	return squirrel.Eq{col.Name: fmt.Sprint(val)}
}

// compileOrdered handles eq/ne and the four ordering operators for a
// value already coerced to its comparable form.
func compileOrdered(col Column, op Operator, v any) squirrel.Sqlizer {
	switch op {
	case OpEq:
		return squirrel.Eq{col.Name: v}
	case OpNe:
		return squirrel.NotEq{col.Name: v}
	case OpGt:
		return squirrel.Gt{col.Name: v}
	case OpGte:
		return squirrel.GtOrEq{col.Name: v}
	case OpLt:
		return squirrel.Lt{col.Name: v}
	case OpLte:
		return squirrel.LtOrEq{col.Name: v}
	}
	return fallback(col, v)
}

func compileNumeric(col Column, op Operator, val any) squirrel.Sqlizer {
	n, ok := parseNumeric(val)
	if !ok {
		// documented quirk: unparseable numeric input matches id 0
		return squirrel.Eq{col.Name: 0}
	}
	return compileOrdered(col, op, n)
}

func compileBetween(col Column, val any) squirrel.Sqlizer {
	list := asList(val)
	if len(list) != 2 {
		return squirrel.Expr(col.Name + " IS NOT NULL")
	}
	lo, hi := coerceScalar(col, list[0]), coerceScalar(col, list[1])
	return squirrel.Expr(col.Name+" BETWEEN ? AND ?", lo, hi)
}

// coerceList converts a request value into a typed slice for IN/NOT IN.
// Anything that is not a list yields an empty slice, which squirrel
// renders as a vacuous (1=0) predicate.
func coerceList(col Column, val any) []any {
	list := asList(val)
	out := make([]any, 0, len(list))
	for _, item := range list {
		out = append(out, coerceScalar(col, item))
	}
	return out
}

func coerceScalar(col Column, val any) any {
	switch col.Type {
	case TypeNumeric:
		if n, ok := parseNumeric(val); ok {
			return n
		}
		return 0
	case TypeDate:
		return isoString(val)
	default:
		return fmt.Sprint(val)
	}
}

func asList(val any) []any {
	switch v := val.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	}
	return nil
}

func parseNumeric(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

// isoString renders a date operand as an ISO-8601 string so date
// comparisons stay lexicographically correct.
func isoString(val any) string {
	switch v := val.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// escapeLike neutralizes LIKE metacharacters in user input used for
// substring operators, so the pattern matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
