package schema

import (
	"strconv"
	"strings"
	"time"
)

// FormatValue applique le rendu par type après résolution. Une valeur
// absente (nil) rend toujours la chaîne vide ; une valeur présente mais
// numériquement illisible rend 0 pour les types numériques.
func FormatValue(v interface{}, t ValueType, pattern string) string {
	if v == nil {
		return ""
	}
	switch t {
	case TypeDate:
		return formatDate(v, pattern)
	case TypeCurrency:
		return formatCurrency(v)
	case TypePercentage:
		return formatPercent(v)
	case TypeBoolean:
		return formatBool(v)
	case TypeNumber:
		f, _ := toFloat(v)
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return formatText(v)
	}
}

// DateLayout traduit un motif à tokens (YYYY, MM, DD, HH, mm, ss) en
// layout Go. Motif par défaut : YYYY-MM-DD.
func DateLayout(pattern string) string {
	if pattern == "" {
		pattern = "YYYY-MM-DD"
	}
	r := strings.NewReplacer(
		"YYYY", "2006",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return r.Replace(pattern)
}

func formatDate(v interface{}, pattern string) string {
	t, ok := toTime(v)
	if !ok {
		return ""
	}
	return t.Format(DateLayout(pattern))
}

func toTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case float64:
		// timestamp en millisecondes (documents JSON)
		ms := int64(val)
		return time.Unix(ms/1000, (ms%1000)*int64(time.Millisecond)).UTC(), true
	case int64:
		return time.Unix(val/1000, (val%1000)*int64(time.Millisecond)).UTC(), true
	}
	return time.Time{}, false
}

var currencySymbols = []string{"$", "€", "£", "¥"}

func formatCurrency(v interface{}) string {
	symbol := "$"
	if s, ok := v.(string); ok {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "-"))
		for _, sym := range currencySymbols {
			if strings.HasPrefix(trimmed, sym) {
				symbol = sym
				break
			}
		}
	}
	f, _ := toFloat(v)
	neg := f < 0
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	dot := strings.Index(s, ".")
	out := groupThousands(s[:dot]) + s[dot:]
	if neg {
		return "-" + symbol + out
	}
	return symbol + out
}

func formatPercent(v interface{}) string {
	f, _ := toFloat(v)
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}

func formatBool(v interface{}) string {
	truthy := false
	switch val := v.(type) {
	case bool:
		truthy = val
	case string:
		s := strings.ToLower(strings.TrimSpace(val))
		truthy = s == "true" || s == "1" || s == "yes"
	case float64:
		truthy = val != 0
	case int:
		truthy = val != 0
	}
	if truthy {
		return "Yes"
	}
	return "No"
}

func formatText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// évite la notation scientifique des gros identifiants
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case nil:
		return ""
	default:
		return stringify(val)
	}
}

// toFloat : parse permissif. Les chaînes peuvent porter un symbole
// monétaire, des séparateurs de milliers ou un %. false si illisible.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		s := strings.TrimSpace(val)
		for _, sym := range currencySymbols {
			s = strings.ReplaceAll(s, sym, "")
		}
		s = strings.ReplaceAll(s, ",", "")
		s = strings.ReplaceAll(s, " ", "")
		s = strings.TrimSuffix(s, "%")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
