package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"caseflow-export/api"
	"caseflow-export/audit"
	"caseflow-export/auth"
	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/delivery"
	"caseflow-export/logging"
	"caseflow-export/render"
	"caseflow-export/schedule"
	"caseflow-export/storage"
	"caseflow-export/store"
	"caseflow-export/utils"
	"caseflow-export/worker"
)

var (
	cfg     *config.Config
	users   *auth.UsersFile
	fields  []catalog.PlatformField
	loggers []*logging.Logger
)

func main() {
	utils.LogToFile("api.log")
	loadEverything()

	s, err := store.Open(cfg.Store.Backend, cfg.Store.DSN)
	if err != nil {
		log.Fatalf("Failed store: %v", err)
	}
	st := storage.NewLocal(cfg.Storage.Dir, cfg.Server.BaseURL, cfg.Storage.Secret)
	sink := audit.NewSink(loggers[0])

	deps := worker.Deps{
		Store:          s,
		Storage:        st,
		Audit:          sink,
		Logger:         loggers[2],
		RetentionHours: cfg.Export.RetentionHours,
	}
	worker.StartExportWorkers(cfg.Export.Workers, deps)

	var renderer *render.Client
	if cfg.Schedule.RenderURL != "" {
		renderer = render.NewClient(cfg.Schedule.RenderURL)
	}
	orch := &schedule.Orchestrator{
		Store:          s,
		Storage:        st,
		Mailer:         &delivery.Outbox{Dir: cfg.Schedule.OutboxDir, Logger: loggers[2]},
		Renderer:       renderer,
		Audit:          sink,
		Logger:         loggers[2],
		RetentionHours: cfg.Export.RetentionHours,
	}
	stop := make(chan struct{})
	orch.Start(time.Duration(cfg.Schedule.TickSeconds)*time.Second, stop)

	api.RegisterHandlers(cfg, users, s, st, fields, deps, orch, loggers[0], loggers[1], loggers[2])

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)
	go func() {
		for range sigs {
			log.Println("Reloading configs...")
			loadEverything()
		}
	}()

	log.Printf("Server started listening on %s ...", cfg.Server.Listen)
	log.Fatal(api.StartServer(cfg.Server.Listen))
}

func loadEverything() {
	var err error
	cfg, err = config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed config.yaml: %v", err)
	}
	if cfg.Auth.UserBackend == "file" {
		users, err = auth.LoadUsers(cfg.Auth.UserFile)
		if err != nil {
			log.Fatalf("Failed users.yaml: %v", err)
		}
	}
	fields = catalog.BuiltinFields()
	if cfg.Export.CatalogFile != "" {
		extra, err := catalog.LoadCatalogFile(cfg.Export.CatalogFile)
		if err != nil {
			log.Fatalf("Failed %s: %v", cfg.Export.CatalogFile, err)
		}
		fields = catalog.MergeCatalog(fields, extra)
	}
	os.MkdirAll(cfg.Server.LogDir, 0755)
	loggers = []*logging.Logger{
		logging.NewLoggerOrDie(cfg.Server.LogDir, "access.log"),
		logging.NewLoggerOrDie(cfg.Server.LogDir, "login.log"),
		logging.NewLoggerOrDie(cfg.Server.LogDir, "export.log"),
	}
}
