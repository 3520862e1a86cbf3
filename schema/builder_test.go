package schema

import (
	"reflect"
	"testing"
)

func TestBuildColumns_CoreOnly(t *testing.T) {
	cols := BuildColumns(ColumnConfig{}, nil)
	if len(cols) != 13 {
		t.Fatalf("Expected 13 core columns, got %d", len(cols))
	}
	if cols[0].Key != "reference" || cols[len(cols)-1].Key != "risk_score" {
		t.Errorf("Unexpected core column order: first=%q last=%q", cols[0].Key, cols[len(cols)-1].Key)
	}
	for _, c := range cols {
		if c.Kind != ColCore {
			t.Errorf("Column %q should be core", c.Key)
		}
	}
}

func TestBuildColumns_SubEntities(t *testing.T) {
	cols := BuildColumns(ColumnConfig{IncludeSubEntities: true, MaxSubEntities: 3}, nil)
	if len(cols) != 13+3*4 {
		t.Fatalf("Expected 25 columns, got %d", len(cols))
	}
	// le bloc 1 suit immédiatement le coeur
	if cols[13].Key != "action_title_1" {
		t.Errorf("Expected action_title_1 at position 13, got %q", cols[13].Key)
	}
	if cols[13+4].Key != "action_title_2" {
		t.Errorf("Expected action_title_2 after block 1, got %q", cols[13+4].Key)
	}
	if cols[13+4].SubEntityIndex != 2 {
		t.Errorf("Expected SubEntityIndex 2, got %d", cols[13+4].SubEntityIndex)
	}
}

func TestBuildColumns_TaggedSortedBySlot(t *testing.T) {
	live := []TaggedFieldConfig{
		{Slot: 7, EntityKind: "case", FieldPath: "custom_fields.b", ColumnName: "b", Label: "B", DataType: "text"},
		{Slot: 2, EntityKind: "case", FieldPath: "custom_fields.a", ColumnName: "a", Label: "A", DataType: "text"},
	}
	cols := BuildColumns(ColumnConfig{IncludeTaggedFields: true}, live)
	if len(cols) != 13+2 {
		t.Fatalf("Expected 15 columns, got %d", len(cols))
	}
	if cols[13].Key != "tag02_a" || cols[14].Key != "tag07_b" {
		t.Errorf("Tagged columns not sorted by slot: %q, %q", cols[13].Key, cols[14].Key)
	}
	if cols[13].Kind != ColTagged || cols[13].TagSlot != 2 {
		t.Errorf("Unexpected tagged column: %+v", cols[13])
	}
}

func TestBuildColumns_SnapshotWinsOverLive(t *testing.T) {
	snapshot := []TaggedFieldConfig{
		{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.old", ColumnName: "old", Label: "Old", DataType: "text"},
	}
	live := []TaggedFieldConfig{
		{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.new", ColumnName: "new", Label: "New", DataType: "text"},
	}
	cols := BuildColumns(ColumnConfig{IncludeTaggedFields: true, TaggedFieldsSnapshot: snapshot}, live)
	if cols[13].Key != "tag01_old" {
		t.Errorf("Snapshot should win over live config, got %q", cols[13].Key)
	}

	// snapshot vide (non nil) : aucune colonne étiquetée, même avec une
	// config vivante
	cols = BuildColumns(ColumnConfig{IncludeTaggedFields: true, TaggedFieldsSnapshot: []TaggedFieldConfig{}}, live)
	if len(cols) != 13 {
		t.Errorf("Empty snapshot should yield no tagged columns, got %d columns", len(cols))
	}
}

func TestBuildColumns_InvalidTaggedSkipped(t *testing.T) {
	live := []TaggedFieldConfig{
		{Slot: 0, EntityKind: "case", FieldPath: "x", ColumnName: "x", DataType: "text"}, // slot hors bornes
		{Slot: 3, EntityKind: "case", FieldPath: "custom_fields.ok", ColumnName: "ok", Label: "OK", DataType: "text"},
	}
	cols := BuildColumns(ColumnConfig{IncludeTaggedFields: true}, live)
	if len(cols) != 14 {
		t.Fatalf("Expected invalid config skipped, got %d columns", len(cols))
	}
	if cols[13].Key != "tag03_ok" {
		t.Errorf("Unexpected column: %q", cols[13].Key)
	}
}

func TestBuildColumns_OverflowLast(t *testing.T) {
	cols := BuildColumns(ColumnConfig{
		IncludeSubEntities:  true,
		MaxSubEntities:      1,
		IncludeTaggedFields: true,
		IncludeOverflow:     true,
		TaggedFieldsSnapshot: []TaggedFieldConfig{
			{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.x", ColumnName: "x", Label: "X", DataType: "text"},
		},
	}, nil)
	last := cols[len(cols)-1]
	beforeLast := cols[len(cols)-2]
	if beforeLast.Key != "custom_fields" || last.Key != "labels" {
		t.Errorf("Overflow columns must come last, got %q, %q", beforeLast.Key, last.Key)
	}
}

func TestBuildColumns_Deterministic(t *testing.T) {
	cfg := ColumnConfig{
		IncludeSubEntities:  true,
		MaxSubEntities:      2,
		IncludeTaggedFields: true,
		IncludeOverflow:     true,
	}
	live := []TaggedFieldConfig{
		{Slot: 5, EntityKind: "case", FieldPath: "custom_fields.y", ColumnName: "y", Label: "Y", DataType: "number"},
		{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.z", ColumnName: "z", Label: "Z", DataType: "text"},
	}
	a := BuildColumns(cfg, live)
	b := BuildColumns(cfg, live)
	if !reflect.DeepEqual(a, b) {
		t.Error("BuildColumns must be deterministic for identical inputs")
	}
}

func TestTaggedFieldConfigValidate(t *testing.T) {
	valid := TaggedFieldConfig{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.x", ColumnName: "x", Label: "X", DataType: "text"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}

	bad := valid
	bad.Slot = 21
	if err := bad.Validate(); err == nil {
		t.Error("Slot 21 should be rejected")
	}

	bad = valid
	bad.FieldPath = "a..b"
	if err := bad.Validate(); err == nil {
		t.Error("Invalid path should be rejected")
	}

	bad = valid
	bad.DataType = "blob"
	if err := bad.Validate(); err == nil {
		t.Error("Unknown data type should be rejected")
	}

	bad = valid
	bad.ColumnName = ""
	if err := bad.Validate(); err == nil {
		t.Error("Empty column name should be rejected")
	}
}
