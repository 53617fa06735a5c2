package db

import (
	"database/sql"
	"strings"

	"github.com/davicafu/jobberlab/internal/review/domain"
)

// ScanReviews lee cada fila como columna → valor y la convierte con domain.ReviewFromRow.
// Los nombres de columna se normalizan a minúsculas, que es como los guarda el almacén.
func ScanReviews(rows *sql.Rows) ([]*domain.Review, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	reviews := []*domain.Review{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			row[strings.ToLower(col)] = values[i]
		}
		r, err := domain.ReviewFromRow(row)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
