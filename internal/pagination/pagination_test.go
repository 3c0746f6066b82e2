package pagination

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClamps(t *testing.T) {
	p := New(0, 0, Offset, "")
	if p.Page != 1 || p.PerPage != MinPerPage {
		t.Fatalf("low clamp failed: %+v", p)
	}
	p = New(-5, 500, Offset, "")
	if p.Page != 1 || p.PerPage != MaxPerPage {
		t.Fatalf("high clamp failed: %+v", p)
	}
}

func TestOffsetMath(t *testing.T) {
	for _, tc := range []struct {
		page, perPage  int
		offset, limit  uint64
	}{
		{1, 15, 0, 15},
		{2, 10, 10, 10},
		{7, 100, 600, 100},
		{3, 1, 2, 1},
	} {
		p := New(tc.page, tc.perPage, Offset, "")
		if p.Offset() != tc.offset || p.Limit() != tc.limit {
			t.Fatalf("page=%d per_page=%d: got offset=%d limit=%d", tc.page, tc.perPage, p.Offset(), p.Limit())
		}
	}
}

func TestParseTypeDefaultsToCursor(t *testing.T) {
	if ParseType("offset") != Offset {
		t.Fatal("explicit offset not honored")
	}
	// the engine's fallback mode is cursor, not offset
	for _, raw := range []string{"", "cursor", "bogus", "OFFSETX"} {
		if ParseType(raw) != Cursor {
			t.Fatalf("expected cursor fallback for %q", raw)
		}
	}
}

func TestOffsetInfoMidPage(t *testing.T) {
	p := New(2, 10, Offset, "")
	info := OffsetInfo(p, 25, "/api/articles")

	if *info.TotalPages != 3 {
		t.Fatalf("total_pages = %d", *info.TotalPages)
	}
	if *info.From != 11 || *info.To != 20 {
		t.Fatalf("from/to = %d/%d", *info.From, *info.To)
	}
	if !info.HasMorePages {
		t.Fatal("expected has_more_pages")
	}
	if *info.PrevPage != 1 || *info.NextPage != 3 {
		t.Fatalf("prev/next = %d/%d", *info.PrevPage, *info.NextPage)
	}
	if *info.LastPageURL != "/api/articles?page=3&per_page=10" {
		t.Fatalf("last_page_url = %s", *info.LastPageURL)
	}
}

func TestOffsetInfoLastAndBeyond(t *testing.T) {
	info := OffsetInfo(New(3, 10, Offset, ""), 25, "/api/articles")
	if info.HasMorePages {
		t.Fatal("last page must not report more pages")
	}
	if *info.From != 21 || *info.To != 25 {
		t.Fatalf("from/to = %d/%d", *info.From, *info.To)
	}
	if info.NextPage != nil {
		t.Fatal("next_page must be nil on the last page")
	}

	info = OffsetInfo(New(9, 10, Offset, ""), 25, "/api/articles")
	if info.From != nil || info.To != nil {
		t.Fatal("from/to must be nil past the end")
	}
}

func TestOffsetInfoEmptyTable(t *testing.T) {
	info := OffsetInfo(New(1, 10, Offset, ""), 0, "/api/articles")
	if *info.TotalPages != 0 || info.HasMorePages || info.From != nil {
		t.Fatalf("unexpected empty-table info: %+v", info)
	}
}

func TestCursorInfoNeverCarriesOffsetFields(t *testing.T) {
	p := New(1, 10, Cursor, "")
	info := CursorInfo(p, true, "prevtok", "nexttok", "/api/articles")

	raw, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{"total", "total_pages", "from", "to", "current_page"} {
		if strings.Contains(string(raw), `"`+field+`"`) {
			t.Fatalf("cursor info leaked offset field %q: %s", field, raw)
		}
	}
	if *info.NextCursor != "nexttok" || *info.PrevCursor != "prevtok" {
		t.Fatalf("cursors not propagated: %+v", info)
	}
	if !info.HasMorePages {
		t.Fatal("expected has_more_pages")
	}
}
