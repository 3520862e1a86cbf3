package export

import (
	"encoding/json"

	"caseflow-export/schema"
)

type jsonColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type jsonDocument struct {
	Columns  []jsonColumn        `json:"columns"`
	Rows     []map[string]string `json:"rows"`
	RowCount int                 `json:"row_count"`
}

// Document structuré : colonnes + lignes en objets clé→valeur formatée.
func writeJSON(cols []schema.ColumnDefinition, rows [][]string) ([]byte, error) {
	doc := jsonDocument{
		Columns:  make([]jsonColumn, len(cols)),
		Rows:     make([]map[string]string, 0, len(rows)),
		RowCount: len(rows),
	}
	for i, c := range cols {
		doc.Columns[i] = jsonColumn{Key: c.Key, Label: c.Label, Type: string(c.ValueType)}
	}
	for _, row := range rows {
		obj := make(map[string]string, len(cols))
		for i, c := range cols {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			obj[c.Key] = v
		}
		doc.Rows = append(doc.Rows, obj)
	}
	return json.MarshalIndent(doc, "", "  ")
}
