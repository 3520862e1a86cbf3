package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildRow aplatit un dossier (document JSON décodé, associations déjà
// chargées) en une ligne ordonnée alignée sur cols. Totale : toute
// anomalie de résolution dégrade la valeur en chaîne vide et passe par
// warn (niveau warning), jamais d'abandon de la ligne.
func BuildRow(doc map[string]interface{}, cols []ColumnDefinition, warn func(string)) []string {
	row := make([]string, len(cols))
	for i, col := range cols {
		row[i] = resolveColumn(doc, col, warn)
	}
	return row
}

func resolveColumn(doc map[string]interface{}, col ColumnDefinition, warn func(string)) string {
	switch col.Kind {
	case ColSubEntity:
		elem := subEntityAt(doc, col.SubEntityIndex)
		if elem == nil {
			// moins d'actions que de blocs : pas une erreur
			return ""
		}
		return FormatValue(col.Path.Resolve(elem), col.ValueType, col.FormatPattern)
	case ColOverflow:
		return serializeOverflow(col.Path.Resolve(doc), col, warn)
	default: // ColCore, ColTagged
		v := col.Path.Resolve(doc)
		if v == nil && warn != nil && col.Kind == ColTagged {
			warn(fmt.Sprintf("[RESOLVE] column=%s path=%s unresolved", col.Key, col.Path.String()))
		}
		return FormatValue(v, col.ValueType, col.FormatPattern)
	}
}

// subEntityAt retourne la i-ème (1-based) sous-entité, nil si le tableau
// est trop court ou absent.
func subEntityAt(doc map[string]interface{}, i int) map[string]interface{} {
	arr, ok := doc[subEntityField].([]interface{})
	if !ok || i < 1 || i > len(arr) {
		return nil
	}
	return asMap(arr[i-1])
}

// serializeOverflow : sérialisation littérale du résidu. Les tableaux de
// scalaires sont joints, le reste part en JSON.
func serializeOverflow(v interface{}, col ColumnDefinition, warn func(string)) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []interface{}:
		if allScalars(val) {
			parts := make([]string, len(val))
			for i, e := range val {
				parts[i] = formatText(e)
			}
			return strings.Join(parts, ", ")
		}
		return stringify(val)
	case map[string]interface{}:
		if len(val) == 0 {
			return ""
		}
		return stringify(val)
	default:
		s := stringify(val)
		if s == "" && warn != nil {
			warn(fmt.Sprintf("[RESOLVE] column=%s overflow value not serializable", col.Key))
		}
		return s
	}
}

func allScalars(arr []interface{}) bool {
	for _, e := range arr {
		switch e.(type) {
		case map[string]interface{}, []interface{}:
			return false
		}
	}
	return true
}

func stringify(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
