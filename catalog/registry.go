package catalog

import "sort"

// Filter : critères de listage. OR entre tags d'un même set, AND entre
// include et exclude. Un set vide ne filtre pas.
type Filter struct {
	EntityKinds []string
	IncludeTags []FieldTag
	ExcludeTags []FieldTag
}

// ListFields filtre le catalogue. Un champ passe s'il porte AU MOINS un
// tag d'include (quand include est non vide) et AUCUN tag d'exclude.
// Le résultat est trié (entity, field) pour une sortie stable.
func ListFields(fields []PlatformField, f Filter) []PlatformField {
	var out []PlatformField
	for _, fld := range fields {
		if len(f.EntityKinds) > 0 && !containsString(f.EntityKinds, fld.EntityKind) {
			continue
		}
		if len(f.IncludeTags) > 0 && !hasAnyTag(fld, f.IncludeTags) {
			continue
		}
		if hasAnyTag(fld, f.ExcludeTags) {
			continue
		}
		out = append(out, fld)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityKind != out[j].EntityKind {
			return out[i].EntityKind < out[j].EntityKind
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out
}

// ApplyOverrides substitue le set de tags en bloc quand la clé du champ
// est présente dans la map (remplacement, jamais de merge). Le catalogue
// d'entrée n'est pas modifié.
func ApplyOverrides(fields []PlatformField, overrides map[string][]FieldTag) []PlatformField {
	if len(overrides) == 0 {
		return fields
	}
	out := make([]PlatformField, len(fields))
	copy(out, fields)
	for i := range out {
		if tags, ok := overrides[out[i].Key()]; ok {
			replaced := make([]FieldTag, len(tags))
			copy(replaced, tags)
			out[i].Tags = replaced
		}
	}
	return out
}

// MergeOverrides : merge au niveau de la map, remplacement au niveau du
// champ. Un update avec un set vide (non nil) retire tous les tags du
// champ ; un update nil supprime l'override.
func MergeOverrides(current, updates map[string][]FieldTag) map[string][]FieldTag {
	out := map[string][]FieldTag{}
	for k, v := range current {
		out[k] = v
	}
	for k, v := range updates {
		if v == nil {
			delete(out, k)
			continue
		}
		replaced := make([]FieldTag, len(v))
		copy(replaced, v)
		out[k] = replaced
	}
	return out
}

func hasAnyTag(f PlatformField, tags []FieldTag) bool {
	for _, t := range tags {
		if f.HasTag(t) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
