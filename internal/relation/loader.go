package relation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"QueryKit/internal/db"
	"QueryKit/internal/logger"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Querier is the slice of pgxpool the loader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Loader executes batched eager loads and stitches the results onto
// the parent rows. Batch loads for distinct include paths run
// concurrently; each is a single round trip.
type Loader struct {
	DB Querier
	// Resolve maps a morph_to discriminator value to the target
	// entity's table and relationship set. Wired by the entity
	// registry at startup.
	Resolve func(entity string) (table string, relations map[string]*Relationship, ok bool)
}

type loadedGroup struct {
	rel    *Relationship
	groups map[string][]map[string]any
	// morph_to keeps per-parent rows keyed by "type:id"
	morph bool
}

// Load resolves the validated include paths against items in place.
// Unknown paths are logged and skipped, never failed. Nested paths
// ("a.b.c") recurse through the related entity's own relationships.
func (l *Loader) Load(ctx context.Context, items []map[string]any, includes []string, relations map[string]*Relationship) error {
	if len(items) == 0 || len(includes) == 0 {
		return nil
	}

	// group dotted paths under their root relationship
	order := make([]string, 0, len(includes))
	tails := make(map[string][]string)
	for _, inc := range includes {
		root, tail, nested := strings.Cut(inc, ".")
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		if _, seen := tails[root]; !seen {
			order = append(order, root)
		}
		if nested && strings.TrimSpace(tail) != "" {
			tails[root] = append(tails[root], tail)
		} else if _, seen := tails[root]; !seen {
			tails[root] = nil
		}
	}

	results := make(map[string]*loadedGroup, len(order))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		rerr error
	)

	for _, root := range order {
		rel, ok := relations[root]
		if !ok {
			logger.Warn("include_unknown_skipped", map[string]any{"include": root})
			continue
		}

		wg.Add(1)
		go func(root string, rel *Relationship, nested []string) {
			defer wg.Done()

			var (
				grp *loadedGroup
				err error
			)
			if rel.Kind == MorphTo {
				grp, err = l.loadMorphTo(ctx, items, rel, nested)
			} else {
				grp, err = l.loadBatch(ctx, items, root, rel, nested)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil && rerr == nil {
				rerr = fmt.Errorf("include %q: %w", root, err)
				return
			}
			results[root] = grp
		}(root, rel, tails[root])
	}

	wg.Wait()
	if rerr != nil {
		return rerr
	}

	// attachment happens sequentially: goroutines never write items
	for _, root := range order {
		grp, ok := results[root]
		if !ok || grp == nil {
			continue
		}
		attach(items, root, grp)
	}
	return nil
}

func (l *Loader) loadBatch(ctx context.Context, items []map[string]any, root string, rel *Relationship, nested []string) (*loadedGroup, error) {
	keys := distinctKeys(items, rel.ParentKeyColumn())
	if len(keys) == 0 {
		return &loadedGroup{rel: rel, groups: map[string][]map[string]any{}}, nil
	}

	q, err := BuildEagerLoad(root, rel, keys)
	if err != nil {
		return nil, err
	}
	logger.Debug("eager_load_sql", map[string]any{"relation": root, "sql": q.SQL, "args": q.Args})

	rows, err := l.DB.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, err
	}
	children, err := db.CollectMaps(rows)
	if err != nil {
		return nil, err
	}

	if len(nested) > 0 && rel.RelatedRelations() != nil {
		if err := l.Load(ctx, children, nested, rel.RelatedRelations()); err != nil {
			return nil, err
		}
	}

	groups := make(map[string][]map[string]any, len(keys))
	for _, child := range children {
		key := fmt.Sprint(child[q.GroupKey])
		if q.GroupKey == parentKeyAlias {
			delete(child, parentKeyAlias)
		}
		groups[key] = append(groups[key], child)
	}
	return &loadedGroup{rel: rel, groups: groups}, nil
}

// loadMorphTo issues one batched lookup per discriminator type found
// in the parent rows.
func (l *Loader) loadMorphTo(ctx context.Context, items []map[string]any, rel *Relationship, nested []string) (*loadedGroup, error) {
	if l.Resolve == nil {
		return nil, fmt.Errorf("morph_to requires a type resolver")
	}

	byType := map[string][]any{}
	seen := map[string]map[string]struct{}{}
	for _, it := range items {
		tv, id := it[rel.MorphType], it[rel.MorphID]
		if tv == nil || id == nil {
			continue
		}
		typ := fmt.Sprint(tv)
		if _, ok := seen[typ]; !ok {
			seen[typ] = map[string]struct{}{}
		}
		if _, dup := seen[typ][fmt.Sprint(id)]; dup {
			continue
		}
		seen[typ][fmt.Sprint(id)] = struct{}{}
		byType[typ] = append(byType[typ], id)
	}

	groups := make(map[string][]map[string]any)
	for typ, ids := range byType {
		table, childRels, ok := l.Resolve(typ)
		if !ok {
			logger.Warn("morph_type_unresolved", map[string]any{"type": typ})
			continue
		}

		sql, args, err := squirrel.Select("*").
			From(table).
			Where(squirrel.Eq{rel.localKey(): ids}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return nil, err
		}
		rows, err := l.DB.Query(ctx, sql, args...)
		if err != nil {
			return nil, err
		}
		children, err := db.CollectMaps(rows)
		if err != nil {
			return nil, err
		}
		if len(nested) > 0 && childRels != nil {
			if err := l.Load(ctx, children, nested, childRels); err != nil {
				return nil, err
			}
		}
		for _, child := range children {
			key := typ + ":" + fmt.Sprint(child[rel.localKey()])
			groups[key] = append(groups[key], child)
		}
	}
	return &loadedGroup{rel: rel, groups: groups, morph: true}, nil
}

func attach(items []map[string]any, root string, grp *loadedGroup) {
	rel := grp.rel
	for _, it := range items {
		var key string
		if grp.morph {
			tv, id := it[rel.MorphType], it[rel.MorphID]
			if tv == nil || id == nil {
				it[root] = nil
				continue
			}
			key = fmt.Sprint(tv) + ":" + fmt.Sprint(id)
		} else {
			key = fmt.Sprint(it[rel.ParentKeyColumn()])
		}

		rows := grp.groups[key]
		if rel.Single() {
			if len(rows) > 0 {
				it[root] = rows[0]
			} else {
				it[root] = nil
			}
			continue
		}
		if rows == nil {
			it[root] = []map[string]any{}
		} else {
			it[root] = rows
		}
	}
}

// distinctKeys extracts the ordered distinct non-nil values of column
// from the parent rows.
func distinctKeys(items []map[string]any, column string) []any {
	seen := make(map[string]struct{}, len(items))
	keys := make([]any, 0, len(items))
	for _, it := range items {
		v, ok := it[column]
		if !ok || v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		keys = append(keys, v)
	}
	return keys
}
