package export

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/tealeg/xlsx/v3"

	"caseflow-export/schema"
)

const sheetName = "Export"

// Writer streamé : classeur adossé à un cell store sur disque (diskv).
// Chaque AddRow spill la ligne précédente vers le store : seule la ligne
// courante vit en mémoire quel que soit le volume. Entête en gras écrite
// une fois, puis une ligne à la fois depuis la source paginée ; tous les
// StreamBatchSize lignes on rend la main au scheduler pour ne pas
// monopoliser le runtime pendant un gros export. Le document n'est
// sérialisé qu'une fois la source épuisée.
func writeXLSXStream(cols []schema.ColumnDefinition, src RowSource) ([]byte, error) {
	f := xlsx.NewFile(xlsx.UseDiskVCellStore)
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx stream sheet: %w", err)
	}
	defer sh.Close()

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true

	hr := sh.AddRow()
	for _, c := range cols {
		cell := hr.AddCell()
		cell.SetString(c.Label)
		cell.SetStyle(headerStyle)
	}

	written := 0
	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		r := sh.AddRow()
		for i := range cols {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			r.AddCell().SetString(v)
		}
		written++
		if written%StreamBatchSize == 0 {
			runtime.Gosched()
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx stream write: %w", err)
	}
	return buf.Bytes(), nil
}
