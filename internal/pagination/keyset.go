package pagination

import (
	"github.com/Masterminds/squirrel"
)

// OrderColumn is one resolved sort column for keyset derivation: the
// SQL-qualified column name plus its direction.
type OrderColumn struct {
	Column string
	Desc   bool
}

// KeysetWhere derives the seek-method resume predicate for a decoded
// cursor.
//
// Single-column form: col > ts OR (col = ts AND id > pos), with "<"
// for descending. Multi-column form builds the lexicographic tuple
// comparison: for each column i, equality on columns 0..i-1 ANDed with
// a direction-aware strict inequality on column i, all variants ORed.
// The cursor carries only one timestamp+position pair, so every
// non-id column compares against the timestamp; the id column gets the
// position. That approximation is part of the cursor contract.
func KeysetWhere(keys []OrderColumn, idColumn string, data CursorData) squirrel.Sqlizer {
	if len(keys) == 0 {
		return squirrel.Expr(idColumn+" > ?", data.Position)
	}

	if len(keys) == 1 {
		k := keys[0]
		cmp := cmpOp(k.Desc)
		return squirrel.Or{
			squirrel.Expr(k.Column+" "+cmp+" ?", keyValue(k, idColumn, data)),
			squirrel.And{
				squirrel.Expr(k.Column+" = ?", keyValue(k, idColumn, data)),
				squirrel.Expr(idColumn+" "+cmp+" ?", data.Position),
			},
		}
	}

	variants := make([]squirrel.Sqlizer, 0, len(keys))
	for i, k := range keys {
		var conds squirrel.And
		for _, prev := range keys[:i] {
			conds = append(conds, squirrel.Expr(prev.Column+" = ?", keyValue(prev, idColumn, data)))
		}
		conds = append(conds, squirrel.Expr(k.Column+" "+cmpOp(k.Desc)+" ?", keyValue(k, idColumn, data)))
		variants = append(variants, conds)
	}
	return squirrel.Or(variants)
}

func cmpOp(desc bool) string {
	if desc {
		return "<"
	}
	return ">"
}

func keyValue(k OrderColumn, idColumn string, data CursorData) any {
	if k.Column == idColumn {
		return data.Position
	}
	return data.Timestamp
}
