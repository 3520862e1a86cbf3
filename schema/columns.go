package schema

import "fmt"

type ValueType string

const (
	TypeText       ValueType = "text"
	TypeNumber     ValueType = "number"
	TypeDate       ValueType = "date"
	TypeBoolean    ValueType = "boolean"
	TypeCurrency   ValueType = "currency"
	TypePercentage ValueType = "percentage"
)

func ParseValueType(s string) (ValueType, bool) {
	switch ValueType(s) {
	case TypeText, TypeNumber, TypeDate, TypeBoolean, TypeCurrency, TypePercentage:
		return ValueType(s), true
	}
	return "", false
}

// Variante fermée par type de colonne, plutôt qu'un sac de flags.
type ColumnKind int

const (
	ColCore ColumnKind = iota
	ColSubEntity
	ColTagged
	ColOverflow
)

// ColumnDefinition : une colonne du schéma généré. Key est unique dans un
// schéma donné. SubEntityIndex n'a de sens que pour ColSubEntity (1-based),
// TagSlot que pour ColTagged.
type ColumnDefinition struct {
	Key            string
	Label          string
	ValueType      ValueType
	FormatPattern  string
	Width          float64
	Kind           ColumnKind
	SubEntityIndex int
	TagSlot        int
	Path           PathExpr
}

const (
	MinTagSlot = 1
	MaxTagSlot = 20
)

// TaggedFieldConfig : un slot de colonne custom configuré par un admin.
// Référencé PAR VALEUR dans les jobs et schedules (snapshot à la création),
// une édition ultérieure ne change jamais un export en cours ou passé.
type TaggedFieldConfig struct {
	Slot          int    `json:"slot"`
	EntityKind    string `json:"entity_kind"`
	FieldPath     string `json:"field_path"`
	TemplateID    string `json:"template_id,omitempty"`
	ColumnName    string `json:"column_name"`
	Label         string `json:"label"`
	DataType      string `json:"data_type"`
	FormatPattern string `json:"format_pattern,omitempty"`
}

// Validate : erreurs de configuration, à rejeter au moment de la création
// (jamais dans le pipeline de génération).
func (c TaggedFieldConfig) Validate() error {
	if c.Slot < MinTagSlot || c.Slot > MaxTagSlot {
		return fmt.Errorf("tag slot %d out of range [%d,%d]", c.Slot, MinTagSlot, MaxTagSlot)
	}
	if c.ColumnName == "" {
		return fmt.Errorf("tag slot %d: column name required", c.Slot)
	}
	if !validIdent(c.ColumnName) {
		return fmt.Errorf("tag slot %d: invalid column name %q", c.Slot, c.ColumnName)
	}
	if _, ok := ParseValueType(c.DataType); !ok {
		return fmt.Errorf("tag slot %d: unknown data type %q", c.Slot, c.DataType)
	}
	if _, err := ParsePath(c.FieldPath); err != nil {
		return fmt.Errorf("tag slot %d: %v", c.Slot, err)
	}
	return nil
}

// ColumnConfig : composition du schéma. Snapshot non nil = reproduction
// historique, la config vivante n'est pas consultée.
type ColumnConfig struct {
	IncludeSubEntities   bool                `json:"include_sub_entities"`
	MaxSubEntities       int                 `json:"max_sub_entities"`
	IncludeTaggedFields  bool                `json:"include_tagged_fields"`
	IncludeOverflow      bool                `json:"include_overflow"`
	TaggedFieldsSnapshot []TaggedFieldConfig `json:"tagged_fields_snapshot,omitempty"`
}
