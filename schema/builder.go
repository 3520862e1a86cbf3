package schema

import (
	"fmt"
	"sort"
)

// Les dossiers portent leurs actions de remédiation dans ce tableau.
const subEntityField = "actions"

// Bloc coeur, ordre fixe.
func coreColumns() []ColumnDefinition {
	return []ColumnDefinition{
		{Key: "reference", Label: "Reference", ValueType: TypeText, Width: 14, Kind: ColCore, Path: MustPath("reference")},
		{Key: "title", Label: "Title", ValueType: TypeText, Width: 40, Kind: ColCore, Path: MustPath("title")},
		{Key: "status", Label: "Status", ValueType: TypeText, Width: 12, Kind: ColCore, Path: MustPath("status")},
		{Key: "severity", Label: "Severity", ValueType: TypeText, Width: 10, Kind: ColCore, Path: MustPath("severity")},
		{Key: "category", Label: "Category", ValueType: TypeText, Width: 16, Kind: ColCore, Path: MustPath("category")},
		{Key: "owner", Label: "Owner", ValueType: TypeText, Width: 18, Kind: ColCore, Path: MustPath("owner")},
		{Key: "department", Label: "Department", ValueType: TypeText, Width: 16, Kind: ColCore, Path: MustPath("department")},
		{Key: "created_at", Label: "Created", ValueType: TypeDate, Width: 12, Kind: ColCore, Path: MustPath("created_at")},
		{Key: "due_date", Label: "Due Date", ValueType: TypeDate, Width: 12, Kind: ColCore, Path: MustPath("due_date")},
		{Key: "closed_at", Label: "Closed", ValueType: TypeDate, Width: 12, Kind: ColCore, Path: MustPath("closed_at")},
		{Key: "estimated_cost", Label: "Estimated Cost", ValueType: TypeCurrency, Width: 14, Kind: ColCore, Path: MustPath("estimated_cost")},
		{Key: "risk_name", Label: "Risk", ValueType: TypeText, Width: 24, Kind: ColCore, Path: MustPath("risk.name")},
		{Key: "risk_score", Label: "Risk Score", ValueType: TypeNumber, Width: 10, Kind: ColCore, Path: MustPath("risk.score")},
	}
}

// Bloc sous-entité i (1-based) : forme fixe, clés suffixées par l'index.
func subEntityColumns(i int) []ColumnDefinition {
	mk := func(key, label string, vt ValueType, field string, w float64) ColumnDefinition {
		return ColumnDefinition{
			Key:            fmt.Sprintf("%s_%d", key, i),
			Label:          fmt.Sprintf("%s %d", label, i),
			ValueType:      vt,
			Width:          w,
			Kind:           ColSubEntity,
			SubEntityIndex: i,
			Path:           MustPath(field),
		}
	}
	return []ColumnDefinition{
		mk("action_title", "Action", TypeText, "title", 30),
		mk("action_status", "Action Status", TypeText, "status", 12),
		mk("action_assignee", "Action Assignee", TypeText, "assignee", 18),
		mk("action_due", "Action Due", TypeDate, "due_date", 12),
	}
}

// Colonnes de débordement, toujours en dernier.
func overflowColumns() []ColumnDefinition {
	return []ColumnDefinition{
		{Key: "custom_fields", Label: "Custom Fields", ValueType: TypeText, Width: 40, Kind: ColOverflow, Path: MustPath("custom_fields")},
		{Key: "labels", Label: "Labels", ValueType: TypeText, Width: 24, Kind: ColOverflow, Path: MustPath("labels")},
	}
}

// BuildColumns compose le schéma ordonné. Fonction pure de ses entrées :
// même config (et même snapshot) => même liste, même ordre, à chaque appel.
// live est la config vivante de l'organisation, consultée uniquement quand
// la config ne porte pas de snapshot.
func BuildColumns(cfg ColumnConfig, live []TaggedFieldConfig) []ColumnDefinition {
	cols := coreColumns()

	if cfg.IncludeSubEntities {
		for i := 1; i <= cfg.MaxSubEntities; i++ {
			cols = append(cols, subEntityColumns(i)...)
		}
	}

	if cfg.IncludeTaggedFields {
		tagged := cfg.TaggedFieldsSnapshot
		if tagged == nil {
			tagged = live
		}
		sorted := make([]TaggedFieldConfig, len(tagged))
		copy(sorted, tagged)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].Slot < sorted[b].Slot })
		for _, tf := range sorted {
			col, err := taggedColumn(tf)
			if err != nil {
				// config invalide filtrée à la création ; on ignore
				// d'éventuelles lignes historiques corrompues
				continue
			}
			cols = append(cols, col)
		}
	}

	if cfg.IncludeOverflow {
		cols = append(cols, overflowColumns()...)
	}
	return cols
}

func taggedColumn(tf TaggedFieldConfig) (ColumnDefinition, error) {
	if err := tf.Validate(); err != nil {
		return ColumnDefinition{}, err
	}
	p, err := ParsePath(tf.FieldPath)
	if err != nil {
		return ColumnDefinition{}, err
	}
	vt, _ := ParseValueType(tf.DataType)
	label := tf.Label
	if label == "" {
		label = tf.ColumnName
	}
	return ColumnDefinition{
		Key:           fmt.Sprintf("tag%02d_%s", tf.Slot, tf.ColumnName),
		Label:         label,
		ValueType:     vt,
		FormatPattern: tf.FormatPattern,
		Width:         16,
		Kind:          ColTagged,
		TagSlot:       tf.Slot,
		Path:          p,
	}, nil
}
