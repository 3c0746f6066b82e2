package db

import (
	"github.com/jackc/pgx/v5"
)

// CollectMaps drains rows into one map per row keyed by column name.
func CollectMaps(rows pgx.Rows) ([]map[string]any, error) {
	defer rows.Close()
	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0, 16)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		item := make(map[string]any, len(fields))
		for i, fd := range fields {
			item[fd.Name] = values[i]
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
