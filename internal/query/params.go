package query

import (
	"net/url"
	"strconv"
	"strings"

	"QueryKit/internal/sorting"
)

// Params is the per-request value object: everything the engine needs
// from the query string, parsed once and never mutated afterwards.
type Params struct {
	// Filters maps field -> operator -> raw value.
	Filters map[string]map[string]string
	Sorts   []sorting.Key
	// Includes are dotted relationship paths.
	Includes []string
	// Fields maps resource name -> requested output fields.
	Fields map[string][]string

	Page           int
	PerPage        int
	Cursor         string
	PaginationType string
}

// Parse extracts Params from a request query string. Malformed keys
// are ignored; validation against allow-lists happens in the builder.
//
//	filter[<field>][<operator>]=<value>
//	sort=<f1>,-<f2>,<f3>:desc
//	include=<path1>,<path2.path3>
//	fields[<resource>]=<f1>,<f2>
//	page, per_page, cursor, pagination_type
func Parse(values url.Values) Params {
	p := Params{
		Filters: map[string]map[string]string{},
		Fields:  map[string][]string{},
	}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(key, "filter["):
			field, op, ok := parseFilterKey(key)
			if !ok {
				continue
			}
			if p.Filters[field] == nil {
				p.Filters[field] = map[string]string{}
			}
			p.Filters[field][op] = vals[0]
		case strings.HasPrefix(key, "fields["):
			resource, ok := parseBracketKey(key, "fields")
			if !ok {
				continue
			}
			p.Fields[resource] = splitList(vals[0])
		}
	}

	p.Sorts = sorting.Parse(values.Get("sort"))
	p.Includes = splitList(values.Get("include"))
	p.Page = atoi(values.Get("page"))
	p.PerPage = atoi(values.Get("per_page"))
	p.Cursor = strings.TrimSpace(values.Get("cursor"))
	p.PaginationType = values.Get("pagination_type")
	return p
}

// parseFilterKey splits "filter[name][op]" into its parts. A bare
// "filter[name]" defaults the operator to eq.
func parseFilterKey(key string) (field, op string, ok bool) {
	rest := strings.TrimPrefix(key, "filter")
	segs := bracketSegments(rest)
	switch len(segs) {
	case 1:
		return segs[0], "eq", segs[0] != ""
	case 2:
		return segs[0], segs[1], segs[0] != "" && segs[1] != ""
	}
	return "", "", false
}

func parseBracketKey(key, prefix string) (string, bool) {
	segs := bracketSegments(strings.TrimPrefix(key, prefix))
	if len(segs) != 1 || segs[0] == "" {
		return "", false
	}
	return segs[0], true
}

// bracketSegments parses "[a][b]" into ["a", "b"]. Anything that is
// not a clean bracket chain yields nil.
func bracketSegments(s string) []string {
	var segs []string
	for s != "" {
		if !strings.HasPrefix(s, "[") {
			return nil
		}
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return nil
		}
		segs = append(segs, s[1:end])
		s = s[end+1:]
	}
	return segs
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func atoi(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
