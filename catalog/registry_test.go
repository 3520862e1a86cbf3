package catalog

import (
	"testing"
)

func fixtureFields() []PlatformField {
	return []PlatformField{
		{EntityKind: "case", FieldName: "title", Label: "Title", Path: "title", ValueType: "text", Tags: []FieldTag{TagBoard, TagExternal}},
		{EntityKind: "case", FieldName: "owner_email", Label: "Owner Email", Path: "owner.email", ValueType: "text", Tags: []FieldTag{TagPII, TagExternal}},
		{EntityKind: "case", FieldName: "audit_log", Label: "Audit Log", Path: "audit_log", ValueType: "text", Tags: []FieldTag{TagAudit}},
		{EntityKind: "risk", FieldName: "score", Label: "Score", Path: "risk.score", ValueType: "number", Tags: []FieldTag{TagBoard, TagSensitive}},
	}
}

func keys(fields []PlatformField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Key()
	}
	return out
}

func TestListFields_NoFilter(t *testing.T) {
	out := ListFields(fixtureFields(), Filter{})
	if len(out) != 4 {
		t.Fatalf("Expected all 4 fields, got %d", len(out))
	}
	// tri (entity, field) stable
	got := keys(out)
	want := []string{"case.audit_log", "case.owner_email", "case.title", "risk.score"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListFields_IncludeIsOR(t *testing.T) {
	// un champ passe s'il porte AU MOINS un des tags demandés
	out := ListFields(fixtureFields(), Filter{IncludeTags: []FieldTag{TagAudit, TagSensitive}})
	got := keys(out)
	if len(got) != 2 || got[0] != "case.audit_log" || got[1] != "risk.score" {
		t.Errorf("Unexpected result: %v", got)
	}
}

func TestListFields_ExcludeWins(t *testing.T) {
	// include et exclude se combinent en AND ; l'exclusion l'emporte
	out := ListFields(fixtureFields(), Filter{
		IncludeTags: []FieldTag{TagExternal},
		ExcludeTags: []FieldTag{TagPII},
	})
	got := keys(out)
	if len(got) != 1 || got[0] != "case.title" {
		t.Errorf("Unexpected result: %v", got)
	}
}

func TestListFields_EntityKinds(t *testing.T) {
	out := ListFields(fixtureFields(), Filter{EntityKinds: []string{"risk"}})
	if len(out) != 1 || out[0].Key() != "risk.score" {
		t.Errorf("Unexpected result: %v", keys(out))
	}
}

func TestApplyOverrides_WholesaleReplacement(t *testing.T) {
	fields := fixtureFields()
	out := ApplyOverrides(fields, map[string][]FieldTag{
		"case.title": {TagPII},
	})
	// remplacement en bloc, pas de merge
	if len(out[0].Tags) != 1 || out[0].Tags[0] != TagPII {
		t.Errorf("Expected wholesale replacement, got %v", out[0].Tags)
	}
	// le catalogue d'entrée n'est pas modifié
	if len(fields[0].Tags) != 2 {
		t.Errorf("Input catalog was mutated: %v", fields[0].Tags)
	}
}

func TestApplyOverrides_EmptySetClearsTags(t *testing.T) {
	out := ApplyOverrides(fixtureFields(), map[string][]FieldTag{
		"case.owner_email": {},
	})
	for _, f := range out {
		if f.Key() == "case.owner_email" && len(f.Tags) != 0 {
			t.Errorf("Expected tags cleared, got %v", f.Tags)
		}
	}
}

func TestMergeOverrides(t *testing.T) {
	current := map[string][]FieldTag{
		"case.title":       {TagBoard},
		"case.owner_email": {TagPII},
	}
	updates := map[string][]FieldTag{
		"case.title":     {TagAudit},    // remplacement au niveau du champ
		"case.audit_log": {TagMigration}, // ajout
		"case.owner_email": nil,          // suppression de l'override
	}
	out := MergeOverrides(current, updates)
	if len(out) != 2 {
		t.Fatalf("Expected 2 overrides, got %d", len(out))
	}
	if len(out["case.title"]) != 1 || out["case.title"][0] != TagAudit {
		t.Errorf("case.title = %v", out["case.title"])
	}
	if _, ok := out["case.owner_email"]; ok {
		t.Error("nil update should delete the override")
	}
	// current n'est pas modifié
	if len(current["case.title"]) != 1 || current["case.title"][0] != TagBoard {
		t.Errorf("current was mutated: %v", current["case.title"])
	}
}

func TestPresets(t *testing.T) {
	p, ok := PresetByName("board_report")
	if !ok {
		t.Fatal("board_report preset missing")
	}
	out := ListFields(fixtureFields(), Filter{IncludeTags: p.Include, ExcludeTags: p.Exclude})
	got := keys(out)
	// BOARD sans PII ni SENSITIVE
	if len(got) != 1 || got[0] != "case.title" {
		t.Errorf("board_report = %v", got)
	}
	if _, ok := PresetByName("nope"); ok {
		t.Error("Unknown preset should not resolve")
	}
}

func TestParseTag(t *testing.T) {
	if _, ok := ParseTag("PII"); !ok {
		t.Error("PII should parse")
	}
	if _, ok := ParseTag("pii"); ok {
		t.Error("Tags are case sensitive")
	}
	if _, ok := ParseTag("WHATEVER"); ok {
		t.Error("Unknown tag should not parse")
	}
}
