package export

import (
	"fmt"

	"caseflow-export/schema"
)

// RowSource : source paresseuse de lignes déjà aplaties (voir
// schema.BuildRow). Next rend ok=false quand la source est épuisée.
type RowSource interface {
	Next() ([]string, bool, error)
}

// SliceSource : source en mémoire, pour les tests et les petits volumes.
type SliceSource struct {
	Rows [][]string
	pos  int
}

func (s *SliceSource) Next() ([]string, bool, error) {
	if s.pos >= len(s.Rows) {
		return nil, false, nil
	}
	row := s.Rows[s.pos]
	s.pos++
	return row, true, nil
}

// Generate produit l'artefact final. La sortie est toujours une séquence
// d'octets finie ; toute erreur d'écriture abandonne proprement la
// génération (le job passera FAILED chez l'appelant).
func Generate(format Format, strategy Strategy, cols []schema.ColumnDefinition, src RowSource) ([]byte, error) {
	switch format {
	case FormatXLSX:
		if strategy == StrategyStreaming {
			return writeXLSXStream(cols, src)
		}
		rows, err := collectRows(src)
		if err != nil {
			return nil, err
		}
		return writeXLSXBuffered(cols, rows)
	case FormatCSV:
		rows, err := collectRows(src)
		if err != nil {
			return nil, err
		}
		return writeCSV(cols, rows)
	case FormatJSON:
		rows, err := collectRows(src)
		if err != nil {
			return nil, err
		}
		return writeJSON(cols, rows)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func collectRows(src RowSource) ([][]string, error) {
	var rows [][]string
	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
