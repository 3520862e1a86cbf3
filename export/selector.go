package export

// Formats de sortie supportés. Le format "document" est rendu par le
// moteur externe (voir render), il ne passe pas par Generate.
type Format string

const (
	FormatXLSX     Format = "xlsx"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatDocument Format = "document"
)

func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatXLSX, FormatCSV, FormatJSON, FormatDocument:
		return Format(s), true
	case "excel":
		return FormatXLSX, true
	}
	return "", false
}

func (f Format) Extension() string {
	switch f {
	case FormatXLSX:
		return ".xlsx"
	case FormatCSV:
		return ".csv"
	case FormatJSON:
		return ".json"
	case FormatDocument:
		return ".pdf"
	}
	return ".bin"
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatDocument:
		return "application/pdf"
	}
	return "application/octet-stream"
}

type Strategy string

const (
	StrategyStreaming Strategy = "streaming"
	StrategyBuffered  Strategy = "buffered"
)

const (
	// Au-delà de ce nombre de lignes, le XLSX passe en écriture streamée
	// (mémoire bornée, pas de mise en forme riche).
	LargeExportThreshold = 10000
	// Le writer streamé rend la main au scheduler tous les N lignes.
	StreamBatchSize = 1000
)

// SelectStrategy : streaming seulement pour les gros exports XLSX. CSV et
// JSON bufferisent toujours (pas de coût de style à amortir en cours de
// flux).
func SelectStrategy(format Format, totalRows int) Strategy {
	if format == FormatXLSX && totalRows > LargeExportThreshold {
		return StrategyStreaming
	}
	return StrategyBuffered
}
