package filter

import (
	"strings"
	"testing"
)

func mustSQL(t *testing.T, col Column, op Operator, val any) (string, []any) {
	t.Helper()
	sql, args, err := Compile(col, op, val).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	return sql, args
}

func TestNumericEq(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.age", Type: TypeNumeric}, OpEq, "42")
	if sql != "main.age = ?" {
		t.Fatalf("unexpected SQL: %s", sql)
	}
	if len(args) != 1 || args[0].(float64) != 42 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestNumericParseFailureFallsBackToZero(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.age", Type: TypeNumeric}, OpGt, "not-a-number")
	if sql != "main.age = ?" {
		t.Fatalf("expected equality-zero fallback, got SQL: %s", sql)
	}
	if len(args) != 1 || args[0].(int) != 0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestStringContainsUsesILike(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.name", Type: TypeString}, OpContains, "oh")
	if !strings.Contains(sql, "main.name ILIKE ?") {
		t.Fatalf("expected ILIKE fragment, got SQL: %s", sql)
	}
	if args[0].(string) != "%oh%" {
		t.Fatalf("unexpected pattern: %v", args[0])
	}
}

func TestStringStartsEndsWith(t *testing.T) {
	_, args := mustSQL(t, Column{Name: "main.name", Type: TypeString}, OpStartsWith, "Jo")
	if args[0].(string) != "Jo%" {
		t.Fatalf("unexpected starts_with pattern: %v", args[0])
	}
	_, args = mustSQL(t, Column{Name: "main.name", Type: TypeString}, OpEndsWith, "hn")
	if args[0].(string) != "%hn" {
		t.Fatalf("unexpected ends_with pattern: %v", args[0])
	}
}

func TestLikeMetacharactersEscapedForSubstringOps(t *testing.T) {
	_, args := mustSQL(t, Column{Name: "main.name", Type: TypeString}, OpContains, "50%_off")
	if args[0].(string) != `%50\%\_off%` {
		t.Fatalf("unexpected escaped pattern: %v", args[0])
	}
}

func TestSingleQuoteNeverBreaksFragment(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.name", Type: TypeString}, OpEq, "O'Brien")
	if strings.Contains(sql, "'") {
		t.Fatalf("quote leaked into SQL text: %s", sql)
	}
	if args[0].(string) != "O'Brien" {
		t.Fatalf("value must ride as a bound parameter, got %v", args[0])
	}
}

func TestInWithList(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.id", Type: TypeNumeric}, OpIn, []any{1, 2, 3})
	if !strings.Contains(sql, "main.id IN (?,?,?)") {
		t.Fatalf("unexpected IN fragment: %s", sql)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestInWithNonListMatchesNothing(t *testing.T) {
	sql, _ := mustSQL(t, Column{Name: "main.id", Type: TypeNumeric}, OpIn, "7")
	if sql != "(1=0)" {
		t.Fatalf("expected vacuous predicate, got SQL: %s", sql)
	}
}

func TestNotInWithNonListMatchesNothing(t *testing.T) {
	sql, _ := mustSQL(t, Column{Name: "main.id", Type: TypeNumeric}, OpNotIn, "7")
	if sql != "(1=0)" {
		t.Fatalf("expected vacuous predicate, got SQL: %s", sql)
	}
}

func TestBetweenRequiresTwoElements(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.age", Type: TypeNumeric}, OpBetween, []any{"18", "65"})
	if sql != "main.age BETWEEN ? AND ?" {
		t.Fatalf("unexpected BETWEEN fragment: %s", sql)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %v", args)
	}

	sql, _ = mustSQL(t, Column{Name: "main.age", Type: TypeNumeric}, OpBetween, []any{"18"})
	if sql != "main.age IS NOT NULL" {
		t.Fatalf("expected IS NOT NULL fallback, got SQL: %s", sql)
	}
}

func TestNullOperatorsIgnoreValue(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.deleted_at", Type: TypeDate}, OpIsNull, "anything")
	if sql != "main.deleted_at IS NULL" || len(args) != 0 {
		t.Fatalf("unexpected IS NULL fragment: %s %v", sql, args)
	}
	sql, args = mustSQL(t, Column{Name: "main.deleted_at", Type: TypeDate}, OpIsNotNull, nil)
	if sql != "main.deleted_at IS NOT NULL" || len(args) != 0 {
		t.Fatalf("unexpected IS NOT NULL fragment: %s %v", sql, args)
	}
}

func TestDateComparisonRendersISO8601(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.created_at", Type: TypeDate}, OpGte, "2024-01-02T15:04:05Z")
	if sql != "main.created_at >= ?" {
		t.Fatalf("unexpected SQL: %s", sql)
	}
	if args[0].(string) != "2024-01-02T15:04:05Z" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestUnknownOperatorFallsBackToEquality(t *testing.T) {
	sql, args := mustSQL(t, Column{Name: "main.name", Type: TypeString}, Operator("regex"), "x.*y")
	if sql != "main.name = ?" {
		t.Fatalf("expected equality fallback, got SQL: %s", sql)
	}
	if args[0].(string) != "x.*y" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestUnknownColumnTypeFallsBackToEquality(t *testing.T) {
	sql, _ := mustSQL(t, Column{Name: "main.data", Type: ColumnType("jsonb")}, OpContains, "v")
	if sql != "main.data = ?" {
		t.Fatalf("expected equality fallback, got SQL: %s", sql)
	}
}

func TestParseOperator(t *testing.T) {
	if op, ok := ParseOperator(" NOT_IN "); !ok || op != OpNotIn {
		t.Fatalf("ParseOperator failed: %v %v", op, ok)
	}
	if _, ok := ParseOperator("regex"); ok {
		t.Fatal("expected unknown operator")
	}
}
