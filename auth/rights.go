package auth

import (
	"caseflow-export/catalog"
	"caseflow-export/schema"
)

// CheckExportRights vérifie que les champs étiquetés demandés sont
// autorisés pour l'appelant. Les champs portant PII ou SENSITIVE sont
// réservés aux administrateurs ; un chemin absent du catalogue est un
// champ custom et reste autorisé.
func CheckExportRights(tagged []schema.TaggedFieldConfig, fields []catalog.PlatformField, isAdmin bool) []string {
	problems := []string{}
	if isAdmin {
		return problems
	}
	byPath := map[string]catalog.PlatformField{}
	for _, f := range fields {
		byPath[f.EntityKind+":"+f.Path] = f
	}
	for _, tf := range tagged {
		f, ok := byPath[tf.EntityKind+":"+tf.FieldPath]
		if !ok {
			continue
		}
		if f.HasTag(catalog.TagPII) || f.HasTag(catalog.TagSensitive) {
			problems = append(problems, "field:"+f.Key()+":forbidden")
		}
	}
	return problems
}
