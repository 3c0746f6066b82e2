package relation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRows struct {
	cols []string
	rows [][]any
	idx  int
}

func (f *fakeRows) Close()                       {}
func (f *fakeRows) Err() error                   { return nil }
func (f *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(f.cols))
	for i, c := range f.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}
func (f *fakeRows) Next() bool {
	f.idx++
	return f.idx <= len(f.rows)
}
func (f *fakeRows) Scan(dest ...any) error { return fmt.Errorf("not implemented") }
func (f *fakeRows) Values() ([]any, error) { return f.rows[f.idx-1], nil }
func (f *fakeRows) RawValues() [][]byte    { return nil }
func (f *fakeRows) Conn() *pgx.Conn        { return nil }

// fakeDB serves canned result sets keyed by a table substring of the SQL.
type fakeDB struct {
	queries []string
	tables  map[string]*fakeRows
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	for marker, rows := range f.tables {
		if strings.Contains(sql, marker) {
			return &fakeRows{cols: rows.cols, rows: rows.rows}, nil
		}
	}
	return nil, fmt.Errorf("unexpected SQL: %s", sql)
}

func TestLoaderBatchesAndGroupsHasMany(t *testing.T) {
	fake := &fakeDB{tables: map[string]*fakeRows{
		"FROM comments": {
			cols: []string{"id", "article_id", "body"},
			rows: [][]any{
				{int64(10), int64(1), "first"},
				{int64(11), int64(1), "second"},
				{int64(12), int64(2), "third"},
			},
		},
	}}
	loader := &Loader{DB: fake}

	items := []map[string]any{
		{"id": int64(1), "title": "a"},
		{"id": int64(2), "title": "b"},
		{"id": int64(3), "title": "c"},
	}
	rels := map[string]*Relationship{
		"comments": {Name: "comments", Kind: HasMany, Table: "comments", ForeignKey: "article_id"},
	}

	if err := loader.Load(context.Background(), items, []string{"comments"}, rels); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(fake.queries) != 1 {
		t.Fatalf("expected one batched round trip, got %d", len(fake.queries))
	}
	if !strings.Contains(fake.queries[0], "article_id IN ($1,$2,$3)") {
		t.Fatalf("batch not keyed on distinct ids: %s", fake.queries[0])
	}

	got := items[0]["comments"].([]map[string]any)
	if len(got) != 2 || got[0]["body"] != "first" {
		t.Fatalf("unexpected grouping for item 1: %v", got)
	}
	if len(items[2]["comments"].([]map[string]any)) != 0 {
		t.Fatalf("childless parent must get an empty list, got %v", items[2]["comments"])
	}
}

func TestLoaderBelongsToAttachesSingle(t *testing.T) {
	fake := &fakeDB{tables: map[string]*fakeRows{
		"FROM authors": {
			cols: []string{"id", "name"},
			rows: [][]any{{int64(7), "Ada"}},
		},
	}}
	loader := &Loader{DB: fake}

	items := []map[string]any{
		{"id": int64(1), "author_id": int64(7)},
		{"id": int64(2), "author_id": nil},
	}
	rels := map[string]*Relationship{
		"author": {Name: "author", Kind: BelongsTo, Table: "authors", ForeignKey: "author_id"},
	}

	if err := loader.Load(context.Background(), items, []string{"author"}, rels); err != nil {
		t.Fatalf("Load: %v", err)
	}

	author := items[0]["author"].(map[string]any)
	if author["name"] != "Ada" {
		t.Fatalf("unexpected author: %v", author)
	}
	if items[1]["author"] != nil {
		t.Fatalf("missing parent key must attach nil, got %v", items[1]["author"])
	}
}

func TestLoaderUnknownIncludeSkipped(t *testing.T) {
	fake := &fakeDB{tables: map[string]*fakeRows{}}
	loader := &Loader{DB: fake}
	items := []map[string]any{{"id": int64(1)}}

	if err := loader.Load(context.Background(), items, []string{"bogus"}, map[string]*Relationship{}); err != nil {
		t.Fatalf("unknown include must not fail the request: %v", err)
	}
	if len(fake.queries) != 0 {
		t.Fatalf("no query should run for unknown includes")
	}
}

func TestLoaderNestedPath(t *testing.T) {
	fake := &fakeDB{tables: map[string]*fakeRows{
		"FROM authors": {
			cols: []string{"id", "name", "country_id"},
			rows: [][]any{{int64(7), "Ada", int64(44)}},
		},
		"FROM countries": {
			cols: []string{"id", "code"},
			rows: [][]any{{int64(44), "UK"}},
		},
	}}
	loader := &Loader{DB: fake}

	country := &Relationship{Name: "country", Kind: BelongsTo, Table: "countries", ForeignKey: "country_id"}
	author := &Relationship{Name: "author", Kind: BelongsTo, Table: "authors", ForeignKey: "author_id"}
	author.SetRelated("authors", map[string]*Relationship{"country": country})

	items := []map[string]any{{"id": int64(1), "author_id": int64(7)}}
	if err := loader.Load(context.Background(), items, []string{"author.country"}, map[string]*Relationship{"author": author}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := map[string]any{
		"id": int64(7), "name": "Ada", "country_id": int64(44),
		"country": map[string]any{"id": int64(44), "code": "UK"},
	}
	if diff := cmp.Diff(want, items[0]["author"]); diff != "" {
		t.Fatalf("nested attach mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderMorphTo(t *testing.T) {
	fake := &fakeDB{tables: map[string]*fakeRows{
		"FROM articles": {
			cols: []string{"id", "title"},
			rows: [][]any{{int64(1), "hello"}},
		},
		"FROM videos": {
			cols: []string{"id", "url"},
			rows: [][]any{{int64(2), "v.mp4"}},
		},
	}}
	loader := &Loader{
		DB: fake,
		Resolve: func(entity string) (string, map[string]*Relationship, bool) {
			switch entity {
			case "Article":
				return "articles", nil, true
			case "Video":
				return "videos", nil, true
			}
			return "", nil, false
		},
	}

	items := []map[string]any{
		{"id": int64(100), "subject_type": "Article", "subject_id": int64(1)},
		{"id": int64(101), "subject_type": "Video", "subject_id": int64(2)},
		{"id": int64(102), "subject_type": nil, "subject_id": nil},
	}
	rels := map[string]*Relationship{
		"subject": {Name: "subject", Kind: MorphTo, MorphType: "subject_type", MorphID: "subject_id"},
	}

	if err := loader.Load(context.Background(), items, []string{"subject"}, rels); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if items[0]["subject"].(map[string]any)["title"] != "hello" {
		t.Fatalf("unexpected article subject: %v", items[0]["subject"])
	}
	if items[1]["subject"].(map[string]any)["url"] != "v.mp4" {
		t.Fatalf("unexpected video subject: %v", items[1]["subject"])
	}
	if items[2]["subject"] != nil {
		t.Fatalf("null discriminator must attach nil, got %v", items[2]["subject"])
	}
}
