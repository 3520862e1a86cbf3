package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"caseflow-export/audit"
	"caseflow-export/auth"
	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/export"
	"caseflow-export/logging"
	"caseflow-export/schema"
	"caseflow-export/store"
	"caseflow-export/worker"
)

type exportRequest struct {
	ExportType   string              `json:"export_type"`
	Format       string              `json:"format"`
	Filters      store.CaseFilters   `json:"filters"`
	ColumnConfig schema.ColumnConfig `json:"column_config"`
}

func ExportExecuteHandler(cfg *config.Config, users *auth.UsersFile, s *store.Store, base []catalog.PlatformField, deps worker.Deps, exportLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "JSON invalide", http.StatusBadRequest)
			exportLogger.Write("EXECUTE_FAIL user=" + id.Username + " bad_json")
			return
		}
		if _, ok := export.ParseFormat(req.Format); !ok {
			http.Error(w, "Format non supporté: "+req.Format, http.StatusBadRequest)
			exportLogger.Write("EXECUTE_FAIL user=" + id.Username + " bad_format=" + req.Format)
			return
		}

		restrictions := auth.GetAccessRestrictions(id.Username, id.IsAdmin, users, nil, "")
		if problems := auth.CheckFilterAccess(req.Filters, restrictions); len(problems) > 0 {
			forbid(w, problems)
			exportLogger.Write("EXECUTE_FORBIDDEN user=" + id.Username + " problems=" + strings.Join(problems, ","))
			return
		}

		// champs étiquetés : le snapshot demandé s'il existe, sinon la
		// configuration vivante qui sera figée à la création du job
		tagged := req.ColumnConfig.TaggedFieldsSnapshot
		if req.ColumnConfig.IncludeTaggedFields && tagged == nil {
			tagged, err = s.ListTaggedFields(id.OrgID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
		}
		fields := orgFields(s, base, id.OrgID)
		if problems := auth.CheckExportRights(tagged, fields, id.IsAdmin); len(problems) > 0 {
			forbid(w, problems)
			exportLogger.Write("EXECUTE_FORBIDDEN user=" + id.Username + " problems=" + strings.Join(problems, ","))
			return
		}

		job, err := worker.CreateJob(deps, id.OrgID, id.Username, req.ExportType, req.Format, req.Filters, req.ColumnConfig)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			exportLogger.Write("EXECUTE_FAIL user=" + id.Username + " " + err.Error())
			return
		}
		exportLogger.Write("EXECUTE_OK user=" + id.Username + " job=" + job.ID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     job.ID,
			"status": job.Status,
		})
	}
}

func ExportStatusHandler(cfg *config.Config, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		jobID := r.URL.Query().Get("id")
		if jobID == "" {
			http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
			return
		}
		job, err := s.GetJob(jobID)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if job == nil || job.OrgID != id.OrgID {
			json.NewEncoder(w).Encode(map[string]string{"status": "unknown"})
			return
		}
		// artefact expiré : le descripteur de téléchargement disparaît
		// du statut, le fichier n'est plus réputé exister
		if job.ExpiresAt != nil && time.Now().UTC().After(*job.ExpiresAt) {
			job.FileURL = ""
			job.FileSize = 0
			job.ExpiresAt = nil
		}
		json.NewEncoder(w).Encode(job)
	}
}

func ExportCancelHandler(cfg *config.Config, s *store.Store, sink *audit.Sink, exportLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != "POST" {
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
			return
		}
		jobID := r.URL.Query().Get("id")
		if jobID == "" {
			http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
			return
		}
		job, err := s.GetJob(jobID)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		if job == nil || job.OrgID != id.OrgID {
			http.Error(w, "Job inconnu", http.StatusNotFound)
			return
		}
		ok, err := s.CancelJob(jobID)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "Job déjà terminé", http.StatusConflict)
			return
		}
		exportLogger.Write("CANCEL user=" + id.Username + " job=" + jobID)
		sink.Log(audit.Event{Kind: "export.cancelled", OrgID: id.OrgID, Actor: id.Username, ObjectID: jobID})
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":     jobID,
			"status": string(store.JobCancelled),
		})
	}
}

func forbid(w http.ResponseWriter, problems []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":    "forbidden",
		"problems": problems,
	})
}
