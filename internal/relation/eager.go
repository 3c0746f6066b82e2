package relation

import (
	"fmt"

	"github.com/Masterminds/squirrel"
)

// parentKeyAlias is the synthetic column that carries the parent key
// through pivot and through-table loads. Stripped before attachment.
const parentKeyAlias = "__parent_key"

// EagerLoadQuery is the generated artifact for one validated include:
// the batched lookup plus the grouping key used to stitch results back
// onto their parents. Built and discarded per request.
type EagerLoadQuery struct {
	Relation string
	Kind     Kind
	SQL      string
	Args     []any
	// GroupKey is the column in the child rows holding the parent key.
	GroupKey string
	// Single marks has-one style attachment (object or nil, not a list).
	Single bool
}

// BuildEagerLoad compiles the batched lookup for rel keyed by the
// distinct parent-key values. morph_to cannot be expressed as one
// query; the loader splits it by discriminator type instead.
func BuildEagerLoad(name string, rel *Relationship, keys []any) (*EagerLoadQuery, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("eager load %q: no parent keys", name)
	}

	var sb squirrel.SelectBuilder
	groupKey := ""

	switch rel.Kind {
	case HasOne, HasMany:
		sb = squirrel.Select("*").
			From(rel.Table).
			Where(squirrel.Eq{rel.ForeignKey: keys})
		groupKey = rel.ForeignKey

	case BelongsTo:
		sb = squirrel.Select("*").
			From(rel.Table).
			Where(squirrel.Eq{rel.localKey(): keys})
		groupKey = rel.localKey()

	case BelongsToMany:
		sb = squirrel.Select("r.*", fmt.Sprintf("p.%s AS %s", rel.PivotLocalKey, parentKeyAlias)).
			From(rel.Table+" AS r").
			Join(fmt.Sprintf("%s AS p ON p.%s = r.%s", rel.PivotTable, rel.PivotForeignKey, rel.localKey())).
			Where(squirrel.Eq{"p." + rel.PivotLocalKey: keys})
		groupKey = parentKeyAlias

	case HasOneThrough, HasManyThrough:
		sb = squirrel.Select("r.*", fmt.Sprintf("t.%s AS %s", rel.FirstKey, parentKeyAlias)).
			From(rel.Table+" AS r").
			Join(fmt.Sprintf("%s AS t ON r.%s = t.%s", rel.ThroughTable, rel.SecondKey, rel.throughLocalKey())).
			Where(squirrel.Eq{"t." + rel.FirstKey: keys})
		groupKey = parentKeyAlias

	case MorphOne, MorphMany:
		// polymorphic children need the extra discriminator equality
		sb = squirrel.Select("*").
			From(rel.Table).
			Where(squirrel.Eq{rel.MorphID: keys}).
			Where(squirrel.Eq{rel.MorphType: rel.MorphValue})
		groupKey = rel.MorphID

	case MorphToMany:
		sb = squirrel.Select("r.*", fmt.Sprintf("p.%s AS %s", rel.MorphID, parentKeyAlias)).
			From(rel.Table+" AS r").
			Join(fmt.Sprintf("%s AS p ON p.%s = r.%s", rel.PivotTable, rel.PivotForeignKey, rel.localKey())).
			Where(squirrel.Eq{"p." + rel.MorphID: keys}).
			Where(squirrel.Eq{"p." + rel.MorphType: rel.MorphValue})
		groupKey = parentKeyAlias

	case MorphTo:
		return nil, fmt.Errorf("eager load %q: morph_to requires per-type loads", name)

	default:
		return nil, fmt.Errorf("eager load %q: unsupported kind %s", name, rel.Kind)
	}

	for _, c := range rel.Constraints {
		col := c.Column
		if groupKey == parentKeyAlias {
			col = "r." + col
		}
		sb = sb.Where(squirrel.Expr(fmt.Sprintf("%s %s ?", col, constraintOp(c.Operator)), c.Value))
	}
	if rel.Order != "" {
		sb = sb.OrderBy(rel.Order)
	}

	sql, args, err := sb.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("eager load %q: %w", name, err)
	}

	return &EagerLoadQuery{
		Relation: name,
		Kind:     rel.Kind,
		SQL:      sql,
		Args:     args,
		GroupKey: groupKey,
		Single:   rel.Single(),
	}, nil
}
