package relation

import (
	"fmt"
	"strings"
)

// JoinClause is a LEFT JOIN fragment foldable into the primary query.
// Args carry bound parameters for relationship constraints.
type JoinClause struct {
	Table string
	Alias string
	On    string
	Args  []any
}

// Expr renders the clause in the form squirrel's LeftJoin expects.
func (j JoinClause) Expr() string {
	return fmt.Sprintf("%s AS %s ON %s", j.Table, j.Alias, j.On)
}

// ShouldEagerLoad reports whether a relationship is folded into the
// primary query as a JOIN. Only simple direct to-one links qualify;
// everything else goes through a batched secondary lookup.
func ShouldEagerLoad(rel *Relationship) bool {
	switch rel.Kind {
	case BelongsTo, HasOne:
		return true
	}
	return false
}

// BuildJoinClause emits the JOIN for a direct relationship, or nil for
// kinds that cannot be folded. Constraints are ANDed into the ON
// clause as bound parameters.
func BuildJoinClause(rel *Relationship, parentAlias, alias string) *JoinClause {
	var on string
	switch rel.Kind {
	case BelongsTo:
		// parent.FK = alias.LK
		on = fmt.Sprintf("%s.%s = %s.%s", parentAlias, rel.ForeignKey, alias, rel.localKey())
	case HasOne, HasMany:
		// alias.FK = parent.LK
		on = fmt.Sprintf("%s.%s = %s.%s", alias, rel.ForeignKey, parentAlias, rel.localKey())
	default:
		return nil
	}

	clause := &JoinClause{Table: rel.Table, Alias: alias, On: on}
	for _, c := range rel.Constraints {
		clause.On += fmt.Sprintf(" AND %s.%s %s ?", alias, c.Column, constraintOp(c.Operator))
		clause.Args = append(clause.Args, c.Value)
	}
	return clause
}

// JoinPlan resolves a dotted include path into the chain of JOINs that
// links it to the primary query, composing ON clauses through
// intermediate tables. Aliases are derived from the path so nested
// plans never collide.
func JoinPlan(relations map[string]*Relationship, path string) ([]JoinClause, error) {
	segments := strings.Split(path, ".")
	clauses := make([]JoinClause, 0, len(segments))
	parentAlias := "main"
	current := relations

	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return nil, fmt.Errorf("empty segment in include path %q", path)
		}
		rel, ok := current[seg]
		if !ok {
			return nil, fmt.Errorf("unknown relationship %q in include path %q", seg, path)
		}
		if !ShouldEagerLoad(rel) {
			return nil, fmt.Errorf("relationship %q (%s) cannot be joined", seg, rel.Kind)
		}

		alias := strings.Join(segments[:i+1], "_")
		clause := BuildJoinClause(rel, parentAlias, alias)
		if clause == nil {
			return nil, fmt.Errorf("relationship %q (%s) cannot be joined", seg, rel.Kind)
		}
		clauses = append(clauses, *clause)

		parentAlias = alias
		current = rel.RelatedRelations()
		if current == nil && i < len(segments)-1 {
			return nil, fmt.Errorf("relationship %q is not linked for nested path %q", seg, path)
		}
	}
	return clauses, nil
}

// GetForeignKey exposes the key a consumer needs to stitch joined or
// batch-loaded rows back onto their parents.
func GetForeignKey(rel *Relationship) (string, bool) {
	switch rel.Kind {
	case BelongsTo, HasOne, HasMany, BelongsToMany:
		return rel.ForeignKey, rel.ForeignKey != ""
	case MorphTo, MorphOne, MorphMany, MorphToMany:
		return rel.MorphID, rel.MorphID != ""
	case HasOneThrough, HasManyThrough:
		return rel.FirstKey, rel.FirstKey != ""
	}
	return "", false
}

func constraintOp(op string) string {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "", "eq", "=":
		return "="
	case "ne", "!=", "<>":
		return "<>"
	case "gt", ">":
		return ">"
	case "gte", ">=":
		return ">="
	case "lt", "<":
		return "<"
	case "lte", "<=":
		return "<="
	}
	return "="
}
