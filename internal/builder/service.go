package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"QueryKit/internal/db"
	"QueryKit/internal/entity"
	"QueryKit/internal/filter"
	"QueryKit/internal/logger"
	"QueryKit/internal/pagination"
	"QueryKit/internal/query"
	"QueryKit/internal/relation"
	"QueryKit/internal/sorting"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Database is the slice of pgxpool the façade executes through.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service orchestrates the compilers for one entity: allow-list
// validation, predicate/order compilation, the pagination window,
// execution and eager loading. It is the only component that knows a
// concrete entity.
type Service struct {
	Entity         *entity.Entity
	DB             Database
	Codec          *pagination.Codec
	Loader         *relation.Loader
	Cache          *CountCache
	BasePath       string
	DefaultPerPage int
}

func New(e *entity.Entity, database Database, codec *pagination.Codec) *Service {
	return &Service{
		Entity:         e,
		DB:             database,
		Codec:          codec,
		Loader:         &relation.Loader{DB: database, Resolve: entity.ResolveMorph},
		BasePath:       "/api/" + e.Name,
		DefaultPerPage: pagination.DefaultPerPage,
	}
}

// List executes one paginated query for the entity. Requested
// filters, sorts, fields and includes are intersected with the
// entity's allow-lists; everything outside them is dropped, never
// rejected. Either the primary query and all its eager loads succeed,
// or the call fails as a whole.
func (s *Service) List(ctx context.Context, params query.Params) (*pagination.Result[map[string]any], error) {
	e := s.Entity

	typ := pagination.ParseType(params.PaginationType)

	// lenient decode: forged, expired or absent cursors all restart
	// from the beginning
	var cursorData *pagination.CursorData
	if typ == pagination.Cursor {
		cursorData = s.Codec.Decode(params.Cursor)
	}

	perPage := params.PerPage
	if perPage == 0 && cursorData != nil {
		perPage = int(cursorData.PerPage)
	}
	if perPage == 0 {
		perPage = s.DefaultPerPage
	}
	pag := pagination.New(params.Page, perPage, typ, params.Cursor)

	conds := s.compileFilters(params.Filters)

	sortKeys := sorting.Allowed(params.Sorts, e.AllowedSorts())
	if len(sortKeys) == 0 {
		sortKeys = e.DefaultSortKeys()
	}
	orderBy := make([]string, 0, len(sortKeys))
	for _, k := range sortKeys {
		dir := " ASC"
		if k.Direction == sorting.Desc {
			dir = " DESC"
		}
		orderBy = append(orderBy, e.SortColumn(k.Field)+dir)
	}

	joins, batchIncludes := s.planIncludes(params.Includes)
	selectCols := s.selectColumns(params.Fields[e.Name], batchIncludes)
	for _, j := range joins {
		selectCols = append(selectCols, j.columns...)
	}

	sb := squirrel.Select(selectCols...).
		From(e.Table + " AS main").
		PlaceholderFormat(squirrel.Dollar)
	seenAlias := map[string]struct{}{}
	for _, j := range joins {
		for _, clause := range j.clauses {
			if _, dup := seenAlias[clause.Alias]; dup {
				continue
			}
			seenAlias[clause.Alias] = struct{}{}
			sb = sb.LeftJoin(clause.Expr(), clause.Args...)
		}
	}
	for _, c := range conds {
		sb = sb.Where(c)
	}
	sb = sb.OrderBy(orderBy...)

	var (
		result *pagination.Result[map[string]any]
		err    error
	)
	if pag.Type == pagination.Offset {
		result, err = s.listOffset(ctx, sb, conds, pag)
	} else {
		result, err = s.listCursor(ctx, sb, sortKeys, pag, cursorData)
	}
	if err != nil {
		return nil, err
	}

	for _, j := range joins {
		foldJoined(result.Data, j)
	}
	if len(batchIncludes) > 0 {
		if err := s.Loader.Load(ctx, result.Data, batchIncludes, e.Relations); err != nil {
			return nil, fmt.Errorf("eager load: %w", err)
		}
	}
	s.pruneFields(result.Data, params)

	return result, nil
}

func (s *Service) listOffset(ctx context.Context, sb squirrel.SelectBuilder, conds []squirrel.Sqlizer, pag pagination.Pagination) (*pagination.Result[map[string]any], error) {
	total, err := s.countTotal(ctx, conds)
	if err != nil {
		return nil, err
	}

	items, err := s.execute(ctx, sb.Limit(pag.Limit()).Offset(pag.Offset()))
	if err != nil {
		return nil, err
	}
	return &pagination.Result[map[string]any]{
		Data:       items,
		Pagination: pagination.OffsetInfo(pag, total, s.BasePath),
	}, nil
}

func (s *Service) listCursor(ctx context.Context, sb squirrel.SelectBuilder, sortKeys []sorting.Key, pag pagination.Pagination, data *pagination.CursorData) (*pagination.Result[map[string]any], error) {
	e := s.Entity

	if data != nil {
		orderCols := make([]pagination.OrderColumn, 0, len(sortKeys))
		for _, k := range sortKeys {
			orderCols = append(orderCols, pagination.OrderColumn{
				Column: e.SortColumn(k.Field),
				Desc:   k.Direction == sorting.Desc,
			})
		}
		sb = sb.Where(pagination.KeysetWhere(orderCols, e.PrimaryKeyColumn(), *data))
	}

	// one extra row detects "more data" without a COUNT
	items, err := s.execute(ctx, sb.Limit(pag.Limit()+1))
	if err != nil {
		return nil, err
	}
	hasMore := len(items) > pag.PerPage
	if hasMore {
		items = items[:pag.PerPage]
	}

	var position uint32
	if data != nil {
		position = data.Position
	}

	nextCursor := ""
	if hasMore {
		nextCursor, err = s.Codec.Next(position+uint32(pag.PerPage), pag.PerPage)
		if err != nil {
			return nil, fmt.Errorf("encode next cursor: %w", err)
		}
	}
	prevCursor := ""
	if data != nil {
		prevPos := position
		if prevPos >= uint32(pag.PerPage) {
			prevPos -= uint32(pag.PerPage)
		} else {
			prevPos = 0
		}
		prevCursor, err = s.Codec.Prev(prevPos, pag.PerPage)
		if err != nil {
			return nil, fmt.Errorf("encode prev cursor: %w", err)
		}
	}

	return &pagination.Result[map[string]any]{
		Data:       items,
		Pagination: pagination.CursorInfo(pag, hasMore, prevCursor, nextCursor, s.BasePath),
	}, nil
}

func (s *Service) countTotal(ctx context.Context, conds []squirrel.Sqlizer) (int64, error) {
	cb := squirrel.Select("COUNT(*)").
		From(s.Entity.Table + " AS main").
		PlaceholderFormat(squirrel.Dollar)
	for _, c := range conds {
		cb = cb.Where(c)
	}
	sqlStr, args, err := cb.ToSql()
	if err != nil {
		return 0, err
	}

	key := countKey(s.Entity.Name, sqlStr, args)
	if total, ok := s.Cache.Get(ctx, key); ok {
		return total, nil
	}

	var total int64
	if err := s.DB.QueryRow(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	s.Cache.Set(ctx, key, total)
	return total, nil
}

func (s *Service) execute(ctx context.Context, sb squirrel.SelectBuilder) ([]map[string]any, error) {
	sqlStr, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}
	logger.Debug("list_sql", map[string]any{
		"entity": s.Entity.Name,
		"sql":    sqlStr,
		"args":   args,
	})

	rows, err := s.DB.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	items, err := db.CollectMaps(rows)
	if err != nil {
		return nil, fmt.Errorf("scan rows: %w", err)
	}
	return items, nil
}

// compileFilters intersects the requested filters with the entity
// allow-list and compiles each surviving triple. Unknown fields are
// dropped silently; unknown operators degrade inside the compiler.
func (s *Service) compileFilters(filters map[string]map[string]string) []squirrel.Sqlizer {
	allowed := s.Entity.AllowedFilters()

	fields := make([]string, 0, len(filters))
	for f := range filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	conds := make([]squirrel.Sqlizer, 0, len(filters))
	for _, f := range fields {
		col, ok := allowed[f]
		if !ok {
			logger.Debug("filter_field_dropped", map[string]any{
				"entity": s.Entity.Name,
				"field":  f,
			})
			continue
		}
		ops := make([]string, 0, len(filters[f]))
		for op := range filters[f] {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, rawOp := range ops {
			op, _ := filter.ParseOperator(rawOp)
			conds = append(conds, filter.Compile(col, op, filterValue(op, filters[f][rawOp])))
		}
	}
	return conds
}

// filterValue splits list-valued operators on commas; everything else
// passes through as the raw string.
func filterValue(op filter.Operator, raw string) any {
	switch op {
	case filter.OpIn, filter.OpNotIn, filter.OpBetween:
		parts := strings.Split(raw, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			out = append(out, strings.TrimSpace(p))
		}
		return out
	}
	return raw
}

// selectColumns resolves the field-selection intersection and pins the
// columns the engine itself needs (primary key, batch-load keys).
func (s *Service) selectColumns(requested []string, batchIncludes []string) []string {
	e := s.Entity
	if len(requested) == 0 {
		return []string{"main.*"}
	}

	picked := make([]string, 0, len(requested)+2)
	seen := map[string]struct{}{}
	add := func(f string) {
		if _, dup := seen[f]; dup {
			return
		}
		seen[f] = struct{}{}
		picked = append(picked, "main."+f)
	}

	allowed := e.AllowedFields()
	for _, f := range requested {
		if _, ok := allowed[f]; !ok {
			logger.Debug("field_selection_dropped", map[string]any{
				"entity": e.Name,
				"field":  f,
			})
			continue
		}
		add(f)
	}
	if len(picked) == 0 {
		return []string{"main.*"}
	}

	// stitching keys must ride along even when unrequested; pruneFields
	// strips them from the response afterwards
	add(e.PrimaryKey)
	for _, inc := range batchIncludes {
		root, _, _ := strings.Cut(inc, ".")
		if rel, ok := e.Relations[root]; ok {
			add(rel.ParentKeyColumn())
			if rel.Kind == relation.MorphTo {
				add(rel.MorphType)
			}
		}
	}
	return picked
}

// pruneFields applies the per-resource field selection to the response
// rows after includes are attached.
func (s *Service) pruneFields(items []map[string]any, params query.Params) {
	requested := params.Fields[s.Entity.Name]
	if len(requested) == 0 {
		return
	}
	keep := make(map[string]struct{}, len(requested)+len(params.Includes))
	allowed := s.Entity.AllowedFields()
	for _, f := range requested {
		if _, ok := allowed[f]; ok {
			keep[f] = struct{}{}
		}
	}
	for _, inc := range params.Includes {
		root, _, _ := strings.Cut(inc, ".")
		keep[root] = struct{}{}
	}
	for _, it := range items {
		for k := range it {
			if _, ok := keep[k]; !ok {
				delete(it, k)
			}
		}
	}
}
