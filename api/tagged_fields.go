package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"caseflow-export/auth"
	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/logging"
	"caseflow-export/schema"
	"caseflow-export/store"
)

// TaggedFieldsHandler : CRUD des emplacements de champs étiquetés
// (slots 1..20) d'une organisation. La validation est synchrone : une
// configuration invalide n'est jamais persistée.
func TaggedFieldsHandler(cfg *config.Config, s *store.Store, base []catalog.PlatformField, accessLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case "GET":
			list, err := s.ListTaggedFields(id.OrgID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"tagged_fields": list})
		case "POST", "PUT":
			if !id.IsAdmin {
				http.Error(w, "Réservé aux administrateurs", http.StatusForbidden)
				accessLogger.Write("TAGGED_FORBIDDEN user=" + id.Username + " not_admin")
				return
			}
			var tf schema.TaggedFieldConfig
			if err := json.NewDecoder(r.Body).Decode(&tf); err != nil {
				http.Error(w, "JSON invalide", http.StatusBadRequest)
				return
			}
			if err := tf.Validate(); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			replace := r.Method == "PUT"
			if err := s.SaveTaggedField(id.OrgID, tf, replace); err != nil {
				if strings.Contains(err.Error(), "already configured") {
					http.Error(w, err.Error(), http.StatusConflict)
					return
				}
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			accessLogger.Write("TAGGED_SAVED user=" + id.Username + " org=" + id.OrgID + " slot=" + strconv.Itoa(tf.Slot))
			w.WriteHeader(http.StatusNoContent)
		case "DELETE":
			if !id.IsAdmin {
				http.Error(w, "Réservé aux administrateurs", http.StatusForbidden)
				accessLogger.Write("TAGGED_FORBIDDEN user=" + id.Username + " not_admin")
				return
			}
			slot, err := strconv.Atoi(r.URL.Query().Get("slot"))
			if err != nil || slot < schema.MinTagSlot || slot > schema.MaxTagSlot {
				http.Error(w, "Paramètre slot invalide", http.StatusBadRequest)
				return
			}
			if err := s.DeleteTaggedField(id.OrgID, slot); err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			accessLogger.Write("TAGGED_DELETED user=" + id.Username + " org=" + id.OrgID + " slot=" + strconv.Itoa(slot))
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
		}
	}
}
