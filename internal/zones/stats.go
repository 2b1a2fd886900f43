package zones

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Count is a value with its number of occurrences.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Stats summarizes a permit zone CSV.
type Stats struct {
	TotalRows      int     `json:"totalRows"`
	UniqueZones    int     `json:"uniqueZones"`
	UniqueStreets  int     `json:"uniqueStreets"`
	TopZones       []Count `json:"topZones"`
	TopStreetNames []Count `json:"topStreetNames"`
}

// ComputeStats aggregates the CSV at path with DuckDB's CSV reader.
// limit bounds the top-N lists.
func ComputeStats(ctx context.Context, db *sql.DB, path string, limit int) (Stats, error) {
	var st Stats

	src := csvSource(path)
	row := db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(DISTINCT "ZONE"),
		       count(DISTINCT trim(concat_ws(' ', "STREET DIRECTION", "STREET NAME", "STREET TYPE")))
		FROM `+src)
	if err := row.Scan(&st.TotalRows, &st.UniqueZones, &st.UniqueStreets); err != nil {
		return Stats{}, fmt.Errorf("count rows: %w", err)
	}

	var err error
	st.TopZones, err = topN(ctx, db, `SELECT "ZONE", count(*) AS n FROM `+src+` GROUP BY 1 ORDER BY n DESC, 1 LIMIT ?`, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("top zones: %w", err)
	}
	st.TopStreetNames, err = topN(ctx, db, `SELECT "STREET NAME", count(*) AS n FROM `+src+` GROUP BY 1 ORDER BY n DESC, 1 LIMIT ?`, limit)
	if err != nil {
		return Stats{}, fmt.Errorf("top streets: %w", err)
	}
	return st, nil
}

// csvSource is a table expression over the CSV file. Table functions take
// literals, so the path is quoted inline.
func csvSource(path string) string {
	return "read_csv_auto('" + strings.ReplaceAll(path, "'", "''") + "', header = true, all_varchar = true)"
}

func topN(ctx context.Context, db *sql.DB, query string, limit int) ([]Count, error) {
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		var v sql.NullString
		if err := rows.Scan(&v, &c.Count); err != nil {
			return nil, err
		}
		c.Value = v.String
		out = append(out, c)
	}
	return out, rows.Err()
}
