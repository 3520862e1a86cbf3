package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"caseflow-export/auth"
	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/logging"
	"caseflow-export/store"
)

// FieldsHandler liste le catalogue de champs exportables, filtré par
// étiquettes. Paramètres GET : include, exclude (listes CSV d'étiquettes),
// entity (CSV de types d'entités), preset (nom d'un jeu prédéfini —
// prioritaire sur include/exclude).
func FieldsHandler(cfg *config.Config, s *store.Store, base []catalog.PlatformField, accessLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		accessLogger.Write("FIELDS user=" + id.Username + " org=" + id.OrgID)

		var filter catalog.Filter
		q := r.URL.Query()
		if preset := q.Get("preset"); preset != "" {
			p, ok := catalog.PresetByName(preset)
			if !ok {
				http.Error(w, "Preset inconnu", http.StatusBadRequest)
				return
			}
			filter.IncludeTags = p.Include
			filter.ExcludeTags = p.Exclude
		} else {
			var bad []string
			filter.IncludeTags, bad = parseTags(q.Get("include"))
			if len(bad) > 0 {
				http.Error(w, "Étiquette inconnue: "+strings.Join(bad, ","), http.StatusBadRequest)
				return
			}
			filter.ExcludeTags, bad = parseTags(q.Get("exclude"))
			if len(bad) > 0 {
				http.Error(w, "Étiquette inconnue: "+strings.Join(bad, ","), http.StatusBadRequest)
				return
			}
		}
		if entities := q.Get("entity"); entities != "" {
			filter.EntityKinds = strings.Split(entities, ",")
		}

		fields := orgFields(s, base, id.OrgID)
		out := catalog.ListFields(fields, filter)
		if !id.IsAdmin {
			visible := out[:0:0]
			for _, f := range out {
				if f.HasTag(catalog.TagPII) || f.HasTag(catalog.TagSensitive) {
					continue
				}
				visible = append(visible, f)
			}
			out = visible
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fields": out,
			"count":  len(out),
		})
	}
}

// FieldOverridesHandler : GET les surcharges d'étiquettes de
// l'organisation, PUT les fusionne (admin). Une liste vide retire
// toutes les étiquettes du champ ; null supprime la surcharge et le
// champ revient au catalogue.
func FieldOverridesHandler(cfg *config.Config, s *store.Store, base []catalog.PlatformField, accessLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case "GET":
			overrides, err := s.GetFieldOverrides(id.OrgID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"overrides": overrides})
		case "PUT":
			if !id.IsAdmin {
				http.Error(w, "Réservé aux administrateurs", http.StatusForbidden)
				accessLogger.Write("OVERRIDES_FORBIDDEN user=" + id.Username)
				return
			}
			var req struct {
				Overrides map[string][]string `json:"overrides"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "JSON invalide", http.StatusBadRequest)
				return
			}
			known := map[string]bool{}
			for _, f := range base {
				known[f.Key()] = true
			}
			updates := map[string][]catalog.FieldTag{}
			for key, raw := range req.Overrides {
				if !known[key] {
					http.Error(w, "Champ inconnu: "+key, http.StatusBadRequest)
					return
				}
				if raw == nil {
					updates[key] = nil
					continue
				}
				tags := make([]catalog.FieldTag, 0, len(raw))
				for _, t := range raw {
					tag, ok := catalog.ParseTag(t)
					if !ok {
						http.Error(w, "Étiquette inconnue: "+t, http.StatusBadRequest)
						return
					}
					tags = append(tags, tag)
				}
				updates[key] = tags
			}
			current, err := s.GetFieldOverrides(id.OrgID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			merged := catalog.MergeOverrides(current, updates)
			if err := s.SaveFieldOverrides(id.OrgID, merged); err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			accessLogger.Write("OVERRIDES_SAVED user=" + id.Username + " org=" + id.OrgID)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
		}
	}
}

func parseTags(csv string) ([]catalog.FieldTag, []string) {
	if csv == "" {
		return nil, nil
	}
	var tags []catalog.FieldTag
	var bad []string
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, ok := catalog.ParseTag(part)
		if !ok {
			bad = append(bad, part)
			continue
		}
		tags = append(tags, t)
	}
	return tags, bad
}
