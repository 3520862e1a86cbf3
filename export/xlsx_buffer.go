package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"caseflow-export/schema"
)

// Writer bufferisé : tout le classeur en mémoire, mise en forme riche
// (entête figée, auto-filtre, surlignage conditionnel du statut, largeurs
// de colonnes), une seule sérialisation à la fin. Réservé aux exports sous
// le seuil LargeExportThreshold.
func writeXLSXBuffered(cols []schema.ColumnDefinition, rows [][]string) ([]byte, error) {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true
	headerStyle.ApplyFont = true
	headerStyle.Fill = *xlsx.NewFill("solid", "FFD9D9D9", "FF000000")
	headerStyle.ApplyFill = true

	hr := sh.AddRow()
	for _, c := range cols {
		cell := hr.AddCell()
		cell.SetString(c.Label)
		cell.SetStyle(headerStyle)
	}

	statusIdx := -1
	for i, c := range cols {
		if c.Key == "status" {
			statusIdx = i
			break
		}
	}

	for _, row := range rows {
		r := sh.AddRow()
		for i := range cols {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			cell := r.AddCell()
			cell.SetString(v)
			if i == statusIdx {
				if st := statusStyle(v); st != nil {
					cell.SetStyle(st)
				}
			}
		}
	}

	for i, c := range cols {
		w := c.Width
		if w <= 0 {
			w = 14
		}
		sh.SetColWidth(i+1, i+1, w)
	}

	sh.AutoFilter = &xlsx.AutoFilter{TopLeftCell: "A1", BottomRightCell: cellRef(len(cols)-1, 0)}
	sh.SheetViews = []xlsx.SheetView{{
		Pane: &xlsx.Pane{YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft", State: "frozen"},
	}}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	fillClosed  = xlsx.NewFill("solid", "FFD9EAD3", "FF000000")
	fillOverdue = xlsx.NewFill("solid", "FFF4CCCC", "FF000000")
	fillOpen    = xlsx.NewFill("solid", "FFFFF2CC", "FF000000")
)

// Surlignage conditionnel par valeur de statut.
func statusStyle(status string) *xlsx.Style {
	var fill *xlsx.Fill
	switch strings.ToUpper(status) {
	case "CLOSED", "RESOLVED":
		fill = fillClosed
	case "OVERDUE", "ESCALATED":
		fill = fillOverdue
	case "OPEN", "IN_PROGRESS":
		fill = fillOpen
	default:
		return nil
	}
	st := xlsx.NewStyle()
	st.Fill = *fill
	st.ApplyFill = true
	return st
}

// cellRef : référence A1 d'une cellule (0-based en entrée).
func cellRef(col, row int) string {
	name := ""
	c := col
	for {
		name = string(rune('A'+c%26)) + name
		c = c/26 - 1
		if c < 0 {
			break
		}
	}
	return fmt.Sprintf("%s%d", name, row+1)
}
