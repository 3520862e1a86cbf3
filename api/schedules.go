package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"caseflow-export/auth"
	"caseflow-export/config"
	"caseflow-export/export"
	"caseflow-export/logging"
	"caseflow-export/schedule"
	"caseflow-export/store"
	"caseflow-export/utils"
)

// SchedulesHandler : CRUD des exports planifiés.
// GET sans id liste, GET avec id détaille, POST crée, PUT met à jour,
// DELETE supprime.
func SchedulesHandler(cfg *config.Config, s *store.Store, exportLogger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case "GET":
			if schedID := r.URL.Query().Get("id"); schedID != "" {
				sc, err := s.GetSchedule(schedID)
				if err != nil {
					http.Error(w, "Erreur serveur", http.StatusInternalServerError)
					return
				}
				if sc == nil || sc.OrgID != id.OrgID {
					http.Error(w, "Planification inconnue", http.StatusNotFound)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(sc)
				return
			}
			list, err := s.ListSchedules(id.OrgID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"schedules": list})
		case "POST":
			var sc store.ScheduledExport
			if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
				http.Error(w, "JSON invalide", http.StatusBadRequest)
				return
			}
			if msg := validateSchedule(&sc); msg != "" {
				http.Error(w, msg, http.StatusBadRequest)
				return
			}
			now := time.Now().UTC()
			next, err := schedule.NextRun(sc.ScheduleType, sc.TimeOfDay, sc.DayOfWeek, sc.DayOfMonth, sc.Timezone, now)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			sc.ID = utils.NewID()
			sc.OrgID = id.OrgID
			sc.CreatedBy = id.Username
			sc.IsActive = true
			sc.NextRunAt = next
			sc.CreatedAt = now
			sc.UpdatedAt = now
			if err := s.CreateSchedule(&sc); err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			exportLogger.Write("SCHEDULE_CREATED user=" + id.Username + " id=" + sc.ID)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(&sc)
		case "PUT":
			var sc store.ScheduledExport
			if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
				http.Error(w, "JSON invalide", http.StatusBadRequest)
				return
			}
			if sc.ID == "" {
				http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
				return
			}
			existing, err := s.GetSchedule(sc.ID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			if existing == nil || existing.OrgID != id.OrgID {
				http.Error(w, "Planification inconnue", http.StatusNotFound)
				return
			}
			if msg := validateSchedule(&sc); msg != "" {
				http.Error(w, msg, http.StatusBadRequest)
				return
			}
			// la cadence a pu changer : on recalcule le prochain tir
			now := time.Now().UTC()
			next, err := schedule.NextRun(sc.ScheduleType, sc.TimeOfDay, sc.DayOfWeek, sc.DayOfMonth, sc.Timezone, now)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			sc.OrgID = existing.OrgID
			sc.CreatedBy = existing.CreatedBy
			sc.CreatedAt = existing.CreatedAt
			sc.IsActive = existing.IsActive
			sc.NextRunAt = next
			if err := s.UpdateSchedule(&sc); err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			exportLogger.Write("SCHEDULE_UPDATED user=" + id.Username + " id=" + sc.ID)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(&sc)
		case "DELETE":
			schedID := r.URL.Query().Get("id")
			if schedID == "" {
				http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
				return
			}
			existing, err := s.GetSchedule(schedID)
			if err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			if existing == nil || existing.OrgID != id.OrgID {
				http.Error(w, "Planification inconnue", http.StatusNotFound)
				return
			}
			if err := s.DeleteSchedule(schedID); err != nil {
				http.Error(w, "Erreur serveur", http.StatusInternalServerError)
				return
			}
			exportLogger.Write("SCHEDULE_DELETED user=" + id.Username + " id=" + schedID)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Méthode non autorisée", http.StatusMethodNotAllowed)
		}
	}
}

// ScheduleActiveHandler met en pause ou réactive une planification.
// POST, paramètres id et active=true|false. La reprise recalcule
// nextRunAt depuis maintenant : les tirs manqués pendant la pause ne
// sont pas rattrapés.
func ScheduleActiveHandler(cfg *config.Config, s *store.Store, exportLogger *logging.Logger) http.HandlerFunc {
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
		schedID := r.URL.Query().Get("id")
		active, perr := strconv.ParseBool(r.URL.Query().Get("active"))
		if schedID == "" || perr != nil {
			http.Error(w, "Paramètres id/active invalides", http.StatusBadRequest)
			return
		}
		sc, err := s.GetSchedule(schedID)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		if sc == nil || sc.OrgID != id.OrgID {
			http.Error(w, "Planification inconnue", http.StatusNotFound)
			return
		}
		var nextRunAt *time.Time
		if active {
			next, err := schedule.NextRun(sc.ScheduleType, sc.TimeOfDay, sc.DayOfWeek, sc.DayOfMonth, sc.Timezone, time.Now().UTC())
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			nextRunAt = &next
		}
		if err := s.SetScheduleActive(schedID, active, nextRunAt); err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		exportLogger.Write("SCHEDULE_ACTIVE user=" + id.Username + " id=" + schedID + " active=" + strconv.FormatBool(active))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ScheduleRunNowHandler déclenche un run immédiat, hors cadence.
func ScheduleRunNowHandler(cfg *config.Config, s *store.Store, orch *schedule.Orchestrator, exportLogger *logging.Logger) http.HandlerFunc {
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
		schedID := r.URL.Query().Get("id")
		if schedID == "" {
			http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
			return
		}
		sc, err := s.GetSchedule(schedID)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		if sc == nil || sc.OrgID != id.OrgID {
			http.Error(w, "Planification inconnue", http.StatusNotFound)
			return
		}
		status, err := orch.RunNow(schedID, time.Now().UTC())
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		exportLogger.Write("SCHEDULE_RUN_NOW user=" + id.Username + " id=" + schedID + " status=" + string(status))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": string(status)})
	}
}

// ScheduleRunsHandler : historique des runs d'une planification,
// du plus récent au plus ancien.
func ScheduleRunsHandler(cfg *config.Config, s *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ExtractIdentityFromJWT(r, cfg.JWT.Secret)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		schedID := r.URL.Query().Get("id")
		if schedID == "" {
			http.Error(w, "Paramètre id manquant", http.StatusBadRequest)
			return
		}
		sc, err := s.GetSchedule(schedID)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		if sc == nil || sc.OrgID != id.OrgID {
			http.Error(w, "Planification inconnue", http.StatusNotFound)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := s.ListRuns(schedID, limit)
		if err != nil {
			http.Error(w, "Erreur serveur", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"runs": runs})
	}
}

func validateSchedule(sc *store.ScheduledExport) string {
	if sc.Name == "" {
		return "Nom manquant"
	}
	if _, ok := export.ParseFormat(sc.Format); !ok {
		return "Format non supporté: " + sc.Format
	}
	if _, ok := store.ParseScheduleType(string(sc.ScheduleType)); !ok {
		return "Type de planification invalide: " + string(sc.ScheduleType)
	}
	if err := schedule.ValidateTiming(sc.ScheduleType, sc.TimeOfDay, sc.DayOfWeek, sc.DayOfMonth, sc.Timezone); err != nil {
		return err.Error()
	}
	if sc.DeliveryMethod != "email" && sc.DeliveryMethod != "storage" {
		return "Mode de livraison invalide: " + sc.DeliveryMethod
	}
	if sc.DeliveryMethod == "email" && len(sc.Recipients) == 0 {
		return "Aucun destinataire"
	}
	return ""
}
