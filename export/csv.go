package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"caseflow-export/schema"
)

// CSV : toujours bufferisé, entête = labels de colonnes.
func writeCSV(cols []schema.ColumnDefinition, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for n, row := range rows {
		rec := make([]string, len(cols))
		for i := range cols {
			if i < len(row) {
				rec[i] = row[i]
			}
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("csv row %d: %w", n+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
