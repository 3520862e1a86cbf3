package schema

import (
	"strings"
	"testing"
)

func sampleDoc() map[string]interface{} {
	return map[string]interface{}{
		"reference":      "CASE-001",
		"title":          "Server breach",
		"status":         "OPEN",
		"severity":       "HIGH",
		"category":       "SECURITY",
		"owner":          "alice",
		"department":     "IT",
		"created_at":     "2025-01-10T08:00:00Z",
		"due_date":       "2025-02-01T00:00:00Z",
		"estimated_cost": 12500.0,
		"risk": map[string]interface{}{
			"name":  "Data exfiltration",
			"score": 8.5,
		},
		"actions": []interface{}{
			map[string]interface{}{"title": "Patch servers", "status": "DONE", "assignee": "bob", "due_date": "2025-01-15T00:00:00Z"},
			map[string]interface{}{"title": "Rotate keys", "status": "PENDING", "assignee": "carol"},
		},
		"custom_fields": map[string]interface{}{"region": "EMEA"},
		"labels":        []interface{}{"urgent", "board"},
	}
}

func TestBuildRow_Core(t *testing.T) {
	cols := BuildColumns(ColumnConfig{}, nil)
	row := BuildRow(sampleDoc(), cols, nil)
	if len(row) != len(cols) {
		t.Fatalf("Row length %d != columns %d", len(row), len(cols))
	}
	byKey := map[string]string{}
	for i, c := range cols {
		byKey[c.Key] = row[i]
	}
	if byKey["reference"] != "CASE-001" {
		t.Errorf("reference = %q", byKey["reference"])
	}
	if byKey["created_at"] != "2025-01-10" {
		t.Errorf("created_at = %q", byKey["created_at"])
	}
	if byKey["estimated_cost"] != "$12,500.00" {
		t.Errorf("estimated_cost = %q", byKey["estimated_cost"])
	}
	if byKey["risk_score"] != "8.5" {
		t.Errorf("risk_score = %q", byKey["risk_score"])
	}
	// closed_at absent => chaîne vide, jamais d'abandon de la ligne
	if byKey["closed_at"] != "" {
		t.Errorf("closed_at = %q, want empty", byKey["closed_at"])
	}
}

func TestBuildRow_SubEntities(t *testing.T) {
	cols := BuildColumns(ColumnConfig{IncludeSubEntities: true, MaxSubEntities: 3}, nil)
	row := BuildRow(sampleDoc(), cols, nil)
	byKey := map[string]string{}
	for i, c := range cols {
		byKey[c.Key] = row[i]
	}
	if byKey["action_title_1"] != "Patch servers" || byKey["action_status_1"] != "DONE" {
		t.Errorf("Block 1 mismatch: %q / %q", byKey["action_title_1"], byKey["action_status_1"])
	}
	if byKey["action_title_2"] != "Rotate keys" {
		t.Errorf("Block 2 mismatch: %q", byKey["action_title_2"])
	}
	// due_date absent de l'action 2
	if byKey["action_due_2"] != "" {
		t.Errorf("action_due_2 = %q, want empty", byKey["action_due_2"])
	}
	// bloc 3 au-delà du tableau : vide sur toute la largeur
	for _, k := range []string{"action_title_3", "action_status_3", "action_assignee_3", "action_due_3"} {
		if byKey[k] != "" {
			t.Errorf("%s = %q, want empty", k, byKey[k])
		}
	}
}

func TestBuildRow_Overflow(t *testing.T) {
	cols := BuildColumns(ColumnConfig{IncludeOverflow: true}, nil)
	row := BuildRow(sampleDoc(), cols, nil)
	byKey := map[string]string{}
	for i, c := range cols {
		byKey[c.Key] = row[i]
	}
	if !strings.Contains(byKey["custom_fields"], `"region":"EMEA"`) {
		t.Errorf("custom_fields = %q", byKey["custom_fields"])
	}
	// tableau de scalaires : jointure lisible, pas de JSON
	if byKey["labels"] != "urgent, board" {
		t.Errorf("labels = %q", byKey["labels"])
	}
}

func TestBuildRow_TaggedUnresolvedWarns(t *testing.T) {
	snapshot := []TaggedFieldConfig{
		{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.missing", ColumnName: "m", Label: "M", DataType: "text"},
	}
	cols := BuildColumns(ColumnConfig{IncludeTaggedFields: true, TaggedFieldsSnapshot: snapshot}, nil)
	var warnings []string
	row := BuildRow(sampleDoc(), cols, func(msg string) { warnings = append(warnings, msg) })
	if row[len(row)-1] != "" {
		t.Errorf("Unresolved tagged column should be empty, got %q", row[len(row)-1])
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "tag01_m") {
		t.Errorf("Expected one warning naming the column, got %v", warnings)
	}
}

func TestBuildRow_EmptyDoc(t *testing.T) {
	cols := BuildColumns(ColumnConfig{IncludeSubEntities: true, MaxSubEntities: 2, IncludeOverflow: true}, nil)
	row := BuildRow(map[string]interface{}{}, cols, nil)
	for i, v := range row {
		if v != "" {
			t.Errorf("Column %q = %q, want empty", cols[i].Key, v)
		}
	}
}
