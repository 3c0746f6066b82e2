package relation

import (
	"strings"
	"testing"
)

func articleRelations() map[string]*Relationship {
	country := map[string]*Relationship{}
	author := &Relationship{
		Name:       "author",
		Kind:       BelongsTo,
		Entity:     "Author",
		ForeignKey: "author_id",
	}
	author.SetRelated("authors", map[string]*Relationship{
		"country": {
			Name:       "country",
			Kind:       BelongsTo,
			Entity:     "Country",
			ForeignKey: "country_id",
		},
	})
	author.RelatedRelations()["country"].SetRelated("countries", country)

	comments := &Relationship{
		Name:       "comments",
		Kind:       HasMany,
		Entity:     "Comment",
		ForeignKey: "article_id",
	}
	comments.SetRelated("comments", nil)

	return map[string]*Relationship{
		"author":   author,
		"comments": comments,
	}
}

func TestBuildJoinClauseBelongsTo(t *testing.T) {
	rels := articleRelations()
	clause := BuildJoinClause(rels["author"], "main", "author")
	if clause == nil {
		t.Fatal("expected a join clause")
	}
	if clause.On != "main.author_id = author.id" {
		t.Fatalf("unexpected ON: %s", clause.On)
	}
	if clause.Expr() != "authors AS author ON main.author_id = author.id" {
		t.Fatalf("unexpected expr: %s", clause.Expr())
	}
}

func TestBuildJoinClauseHasOneDirection(t *testing.T) {
	rel := &Relationship{Kind: HasOne, Table: "profiles", ForeignKey: "user_id"}
	clause := BuildJoinClause(rel, "main", "profile")
	if clause.On != "profile.user_id = main.id" {
		t.Fatalf("unexpected ON: %s", clause.On)
	}
}

func TestBuildJoinClauseConstraints(t *testing.T) {
	rel := &Relationship{
		Kind:       HasOne,
		Table:      "profiles",
		ForeignKey: "user_id",
		Constraints: []Constraint{
			{Column: "active", Value: true},
			{Column: "score", Operator: "gte", Value: 10},
		},
	}
	clause := BuildJoinClause(rel, "main", "profile")
	if !strings.Contains(clause.On, "profile.active = ?") || !strings.Contains(clause.On, "profile.score >= ?") {
		t.Fatalf("constraints missing from ON: %s", clause.On)
	}
	if len(clause.Args) != 2 {
		t.Fatalf("unexpected args: %v", clause.Args)
	}
}

func TestBuildJoinClauseNilForIndirectKinds(t *testing.T) {
	for _, kind := range []Kind{HasMany, BelongsToMany, HasManyThrough, MorphTo, MorphMany} {
		if c := BuildJoinClause(&Relationship{Kind: kind}, "main", "x"); c != nil {
			t.Fatalf("kind %s must not be foldable, got %+v", kind, c)
		}
	}
}

func TestJoinPlanNestedPath(t *testing.T) {
	clauses, err := JoinPlan(articleRelations(), "author.country")
	if err != nil {
		t.Fatalf("JoinPlan: %v", err)
	}
	if len(clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(clauses))
	}
	if clauses[0].On != "main.author_id = author.id" {
		t.Fatalf("first ON: %s", clauses[0].On)
	}
	// the second hop chains through the first alias
	if clauses[1].On != "author.country_id = author_country.id" {
		t.Fatalf("second ON: %s", clauses[1].On)
	}
}

func TestJoinPlanUnknownSegment(t *testing.T) {
	if _, err := JoinPlan(articleRelations(), "author.publisher"); err == nil {
		t.Fatal("expected error for unknown segment")
	}
	if _, err := JoinPlan(articleRelations(), "comments"); err == nil {
		t.Fatal("has_many must not be join-planned")
	}
}

func TestShouldEagerLoad(t *testing.T) {
	if !ShouldEagerLoad(&Relationship{Kind: BelongsTo}) || !ShouldEagerLoad(&Relationship{Kind: HasOne}) {
		t.Fatal("direct to-one kinds must fold")
	}
	if ShouldEagerLoad(&Relationship{Kind: HasMany}) || ShouldEagerLoad(&Relationship{Kind: MorphTo}) {
		t.Fatal("indirect kinds must batch")
	}
}

func TestGetForeignKey(t *testing.T) {
	if fk, ok := GetForeignKey(&Relationship{Kind: BelongsTo, ForeignKey: "author_id"}); !ok || fk != "author_id" {
		t.Fatalf("unexpected fk: %s %v", fk, ok)
	}
	if fk, ok := GetForeignKey(&Relationship{Kind: MorphMany, MorphID: "subject_id"}); !ok || fk != "subject_id" {
		t.Fatalf("unexpected morph fk: %s %v", fk, ok)
	}
	if _, ok := GetForeignKey(&Relationship{Kind: HasMany}); ok {
		t.Fatal("missing fk must report false")
	}
}
