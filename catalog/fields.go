package catalog

// Tags sémantiques portés par les champs exportables. Un champ peut en
// porter plusieurs ; les presets d'export filtrent dessus.
type FieldTag string

const (
	TagAudit     FieldTag = "AUDIT"
	TagBoard     FieldTag = "BOARD"
	TagPII       FieldTag = "PII"
	TagSensitive FieldTag = "SENSITIVE"
	TagExternal  FieldTag = "EXTERNAL"
	TagMigration FieldTag = "MIGRATION"
)

var allTags = []FieldTag{TagAudit, TagBoard, TagPII, TagSensitive, TagExternal, TagMigration}

func ParseTag(s string) (FieldTag, bool) {
	for _, t := range allTags {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// PlatformField : une entrée du catalogue statique des champs exportables.
// Le catalogue n'est jamais modifié en place, les overrides d'organisation
// sont appliqués à la lecture (voir registry.go).
type PlatformField struct {
	EntityKind string     `yaml:"-" json:"entity_kind"`
	FieldName  string     `yaml:"-" json:"field_name"`
	Label      string     `yaml:"label" json:"label"`
	Path       string     `yaml:"path" json:"path"`
	ValueType  string     `yaml:"type" json:"value_type"` // text, number, date, boolean, currency, percentage
	Tags       []FieldTag `yaml:"tags" json:"tags"`
}

// Key identifie un champ dans les maps d'overrides: "<entity>.<field>"
func (f PlatformField) Key() string {
	return f.EntityKind + "." + f.FieldName
}

func (f PlatformField) HasTag(t FieldTag) bool {
	for _, ft := range f.Tags {
		if ft == t {
			return true
		}
	}
	return false
}

// Preset : paire include/exclude figée, pure donnée
type Preset struct {
	Name    string     `json:"name"`
	Label   string     `json:"label"`
	Include []FieldTag `json:"include"`
	Exclude []FieldTag `json:"exclude"`
}

var Presets = []Preset{
	{Name: "board_report", Label: "Board Report Data", Include: []FieldTag{TagBoard}, Exclude: []FieldTag{TagPII, TagSensitive}},
	{Name: "audit_trail", Label: "Audit Trail", Include: []FieldTag{TagAudit}, Exclude: nil},
	{Name: "external_share", Label: "External Share", Include: []FieldTag{TagExternal}, Exclude: []FieldTag{TagPII, TagSensitive}},
	{Name: "pii_inventory", Label: "PII Inventory", Include: []FieldTag{TagPII}, Exclude: nil},
	{Name: "migration_set", Label: "Migration Set", Include: []FieldTag{TagMigration}, Exclude: nil},
}

func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Catalogue embarqué. catalog.yaml peut le compléter ou remplacer des
// entrées (même clé), voir LoadCatalogFile.
func BuiltinFields() []PlatformField {
	src := []PlatformField{
		{EntityKind: "case", FieldName: "reference", Label: "Reference", Path: "reference", ValueType: "text", Tags: []FieldTag{TagAudit, TagBoard, TagExternal, TagMigration}},
		{EntityKind: "case", FieldName: "title", Label: "Title", Path: "title", ValueType: "text", Tags: []FieldTag{TagBoard, TagExternal, TagMigration}},
		{EntityKind: "case", FieldName: "status", Label: "Status", Path: "status", ValueType: "text", Tags: []FieldTag{TagAudit, TagBoard, TagExternal, TagMigration}},
		{EntityKind: "case", FieldName: "severity", Label: "Severity", Path: "severity", ValueType: "text", Tags: []FieldTag{TagBoard, TagMigration}},
		{EntityKind: "case", FieldName: "category", Label: "Category", Path: "category", ValueType: "text", Tags: []FieldTag{TagBoard, TagExternal, TagMigration}},
		{EntityKind: "case", FieldName: "owner", Label: "Owner", Path: "owner", ValueType: "text", Tags: []FieldTag{TagAudit, TagPII}},
		{EntityKind: "case", FieldName: "department", Label: "Department", Path: "department", ValueType: "text", Tags: []FieldTag{TagBoard, TagMigration}},
		{EntityKind: "case", FieldName: "reporter_email", Label: "Reporter Email", Path: "reporter.email", ValueType: "text", Tags: []FieldTag{TagPII, TagSensitive}},
		{EntityKind: "case", FieldName: "created_at", Label: "Created", Path: "created_at", ValueType: "date", Tags: []FieldTag{TagAudit, TagBoard, TagMigration}},
		{EntityKind: "case", FieldName: "due_date", Label: "Due Date", Path: "due_date", ValueType: "date", Tags: []FieldTag{TagBoard, TagExternal}},
		{EntityKind: "case", FieldName: "closed_at", Label: "Closed", Path: "closed_at", ValueType: "date", Tags: []FieldTag{TagAudit, TagMigration}},
		{EntityKind: "case", FieldName: "estimated_cost", Label: "Estimated Cost", Path: "estimated_cost", ValueType: "currency", Tags: []FieldTag{TagBoard, TagSensitive}},
		{EntityKind: "case", FieldName: "completion", Label: "Completion", Path: "completion", ValueType: "percentage", Tags: []FieldTag{TagBoard}},
		{EntityKind: "case", FieldName: "confidential", Label: "Confidential", Path: "confidential", ValueType: "boolean", Tags: []FieldTag{TagSensitive, TagAudit}},
		{EntityKind: "risk", FieldName: "name", Label: "Risk", Path: "risk.name", ValueType: "text", Tags: []FieldTag{TagBoard, TagMigration}},
		{EntityKind: "risk", FieldName: "score", Label: "Risk Score", Path: "risk.score", ValueType: "number", Tags: []FieldTag{TagBoard}},
		{EntityKind: "risk", FieldName: "owner_email", Label: "Risk Owner Email", Path: "risk.owner.email", ValueType: "text", Tags: []FieldTag{TagPII, TagSensitive}},
		{EntityKind: "action", FieldName: "title", Label: "Action", Path: "actions[].title", ValueType: "text", Tags: []FieldTag{TagAudit, TagMigration}},
		{EntityKind: "action", FieldName: "status", Label: "Action Status", Path: "actions[].status", ValueType: "text", Tags: []FieldTag{TagAudit, TagMigration}},
		{EntityKind: "action", FieldName: "assignee", Label: "Action Assignee", Path: "actions[].assignee", ValueType: "text", Tags: []FieldTag{TagPII}},
	}
	out := make([]PlatformField, len(src))
	copy(out, src)
	return out
}
