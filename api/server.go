package api

import (
	"net/http"

	"caseflow-export/auth"
	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/logging"
	"caseflow-export/schedule"
	"caseflow-export/storage"
	"caseflow-export/store"
	"caseflow-export/utils"
	"caseflow-export/worker"
)

func RegisterHandlers(cfg *config.Config, users *auth.UsersFile, s *store.Store, st *storage.Local, fields []catalog.PlatformField, deps worker.Deps, orch *schedule.Orchestrator, accessLogger, loginLogger, exportLogger *logging.Logger) {
	utils.LogToFile("api.log")
	http.HandleFunc("/api/login", LoginHandler(cfg, users, loginLogger))
	http.HandleFunc("/api/fields", FieldsHandler(cfg, s, fields, accessLogger))
	http.HandleFunc("/api/fields/overrides", FieldOverridesHandler(cfg, s, fields, accessLogger))
	http.HandleFunc("/api/tagged-fields", TaggedFieldsHandler(cfg, s, fields, accessLogger))
	http.HandleFunc("/api/exports/execute", ExportExecuteHandler(cfg, users, s, fields, deps, exportLogger))
	http.HandleFunc("/api/exports/status", ExportStatusHandler(cfg, s))
	http.HandleFunc("/api/exports/cancel", ExportCancelHandler(cfg, s, deps.Audit, exportLogger))
	http.HandleFunc("/api/exports/file", DownloadExportFile(st, exportLogger))
	http.HandleFunc("/api/schedules", SchedulesHandler(cfg, s, exportLogger))
	http.HandleFunc("/api/schedules/active", ScheduleActiveHandler(cfg, s, exportLogger))
	http.HandleFunc("/api/schedules/run", ScheduleRunNowHandler(cfg, s, orch, exportLogger))
	http.HandleFunc("/api/schedules/runs", ScheduleRunsHandler(cfg, s))
}

func StartServer(listenAddr string) error {
	return http.ListenAndServe(listenAddr, nil)
}

// orgFields : catalogue effectif d'une organisation (catalogue global +
// surcharges d'étiquettes persistées).
func orgFields(s *store.Store, base []catalog.PlatformField, orgID string) []catalog.PlatformField {
	overrides, err := s.GetFieldOverrides(orgID)
	if err != nil || len(overrides) == 0 {
		return base
	}
	return catalog.ApplyOverrides(base, overrides)
}
