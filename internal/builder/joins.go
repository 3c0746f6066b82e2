package builder

import (
	"fmt"
	"sort"
	"strings"

	"QueryKit/internal/entity"
	"QueryKit/internal/logger"
	"QueryKit/internal/relation"
)

// joinLevel carries what folding needs for one segment of a joined
// include path: where to nest it and which aliased columns belong to it.
type joinLevel struct {
	segment string
	alias   string
	columns []string
}

// joinSpec is one include path folded into the primary query instead
// of batch-loaded.
type joinSpec struct {
	path    string
	clauses []relation.JoinClause
	levels  []joinLevel
	columns []string
}

// planIncludes splits the requested includes into join-foldable paths
// and batch loads. Paths outside the allow-list are skipped with a
// warning; paths the join planner rejects fall back to batch loading.
func (s *Service) planIncludes(includes []string) ([]joinSpec, []string) {
	var joins []joinSpec
	var batch []string
	allowed := s.Entity.AllowedIncludes()

	for _, inc := range includes {
		if _, ok := allowed[inc]; !ok {
			logger.Warn("include_not_allowed", map[string]any{
				"entity":  s.Entity.Name,
				"include": inc,
			})
			continue
		}
		if spec, ok := s.buildJoinSpec(inc); ok {
			joins = append(joins, spec)
			continue
		}
		batch = append(batch, inc)
	}

	// shallow paths fold first so deeper paths find their parent maps
	sort.Slice(joins, func(i, j int) bool {
		return len(joins[i].levels) < len(joins[j].levels)
	})
	return joins, batch
}

func (s *Service) buildJoinSpec(path string) (joinSpec, bool) {
	clauses, err := relation.JoinPlan(s.Entity.Relations, path)
	if err != nil {
		return joinSpec{}, false
	}

	segments := strings.Split(path, ".")
	spec := joinSpec{path: path, clauses: clauses}
	rels := s.Entity.Relations
	for i, seg := range segments {
		rel, ok := rels[seg]
		if !ok {
			return joinSpec{}, false
		}
		related := entity.Get(rel.Entity)
		if related == nil || len(related.Selectable) == 0 {
			// nothing safe to project; batch loading selects the full row
			return joinSpec{}, false
		}

		alias := strings.Join(segments[:i+1], "_")
		cols := make([]string, 0, len(related.Selectable)+1)
		cols = append(cols, related.PrimaryKey)
		for _, c := range related.Selectable {
			if c == related.PrimaryKey {
				continue
			}
			cols = append(cols, c)
		}
		for _, c := range cols {
			spec.columns = append(spec.columns, fmt.Sprintf("%s.%s AS %s__%s", alias, c, alias, c))
		}
		spec.levels = append(spec.levels, joinLevel{segment: seg, alias: alias, columns: cols})

		rels = rel.RelatedRelations()
	}
	return spec, true
}

// foldJoined moves the flat alias__col columns of one joined include
// into nested objects on each row. A level whose columns are all NULL
// means the outer join found no row; it folds to nil and deeper levels
// only get their flat columns stripped.
func foldJoined(items []map[string]any, spec joinSpec) {
	for _, item := range items {
		parent := item
		for _, lvl := range spec.levels {
			sub := make(map[string]any, len(lvl.columns))
			missing := true
			for _, col := range lvl.columns {
				key := lvl.alias + "__" + col
				v := item[key]
				delete(item, key)
				sub[col] = v
				if v != nil {
					missing = false
				}
			}
			if parent == nil {
				continue
			}
			if missing {
				parent[lvl.segment] = nil
				parent = nil
				continue
			}
			if existing, ok := parent[lvl.segment].(map[string]any); ok {
				for k, v := range sub {
					existing[k] = v
				}
				parent = existing
				continue
			}
			parent[lvl.segment] = sub
			parent = sub
		}
	}
}
