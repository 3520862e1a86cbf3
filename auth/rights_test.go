package auth

import (
	"testing"

	"caseflow-export/catalog"
	"caseflow-export/schema"
	"caseflow-export/store"
)

func testCatalog() []catalog.PlatformField {
	return []catalog.PlatformField{
		{EntityKind: "case", FieldName: "title", Path: "title", ValueType: "text", Tags: []catalog.FieldTag{catalog.TagBoard}},
		{EntityKind: "case", FieldName: "owner_email", Path: "owner.email", ValueType: "text", Tags: []catalog.FieldTag{catalog.TagPII}},
		{EntityKind: "risk", FieldName: "score", Path: "risk.score", ValueType: "number", Tags: []catalog.FieldTag{catalog.TagSensitive}},
	}
}

func TestCheckExportRights_AdminSeesAll(t *testing.T) {
	tagged := []schema.TaggedFieldConfig{
		{Slot: 1, EntityKind: "case", FieldPath: "owner.email", ColumnName: "email", Label: "Email", DataType: "text"},
	}
	problems := CheckExportRights(tagged, testCatalog(), true)
	if len(problems) != 0 {
		t.Errorf("Expected no problems for admin, got %v", problems)
	}
}

func TestCheckExportRights_PIIForbidden(t *testing.T) {
	tagged := []schema.TaggedFieldConfig{
		{Slot: 1, EntityKind: "case", FieldPath: "owner.email", ColumnName: "email", Label: "Email", DataType: "text"},
		{Slot: 2, EntityKind: "risk", FieldPath: "risk.score", ColumnName: "score", Label: "Score", DataType: "number"},
	}
	problems := CheckExportRights(tagged, testCatalog(), false)
	if len(problems) != 2 {
		t.Fatalf("Expected 2 problems, got %v", problems)
	}
	if problems[0] != "field:case.owner_email:forbidden" {
		t.Errorf("Unexpected problem: %q", problems[0])
	}
}

func TestCheckExportRights_CustomFieldAllowed(t *testing.T) {
	// un chemin hors catalogue est un champ custom, toujours autorisé
	tagged := []schema.TaggedFieldConfig{
		{Slot: 1, EntityKind: "case", FieldPath: "custom_fields.region", ColumnName: "region", Label: "Region", DataType: "text"},
	}
	problems := CheckExportRights(tagged, testCatalog(), false)
	if len(problems) != 0 {
		t.Errorf("Expected no problems for custom field, got %v", problems)
	}
}

func TestCheckFilterAccess(t *testing.T) {
	restrictions := map[string][]string{"category": {"FRAUD", "LEGAL"}}

	// dans le plafond
	problems := CheckFilterAccess(caseFilters([]string{"FRAUD"}), restrictions)
	if len(problems) != 0 {
		t.Errorf("Expected no problems, got %v", problems)
	}

	// hors plafond
	problems = CheckFilterAccess(caseFilters([]string{"HR"}), restrictions)
	if len(problems) != 1 || problems[0] != "filter:category:forbidden:HR" {
		t.Errorf("Unexpected problems: %v", problems)
	}

	// filtre absent sur une dimension plafonnée
	problems = CheckFilterAccess(caseFilters(nil), restrictions)
	if len(problems) != 1 || problems[0] != "filter:category:required" {
		t.Errorf("Unexpected problems: %v", problems)
	}

	// aucun plafond
	problems = CheckFilterAccess(caseFilters(nil), nil)
	if len(problems) != 0 {
		t.Errorf("Expected no problems without restrictions, got %v", problems)
	}
}

func TestGetAccessRestrictions(t *testing.T) {
	users := &UsersFile{Users: map[string]UserInfo{
		"bob": {Access: map[string][]string{"category": {"FRAUD"}}},
	}}
	if r := GetAccessRestrictions("bob", true, users, nil, ""); r != nil {
		t.Errorf("Admin should have no restrictions, got %v", r)
	}
	r := GetAccessRestrictions("bob", false, users, nil, "")
	if len(r["category"]) != 1 || r["category"][0] != "FRAUD" {
		t.Errorf("Unexpected restrictions: %v", r)
	}
	if r := GetAccessRestrictions("nobody", false, users, nil, ""); len(r) != 0 {
		t.Errorf("Unknown user should have empty restrictions, got %v", r)
	}
}

func caseFilters(category []string) store.CaseFilters {
	return store.CaseFilters{Category: category}
}
