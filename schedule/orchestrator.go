package schedule

import (
	"fmt"
	"strings"
	"time"

	"caseflow-export/audit"
	"caseflow-export/delivery"
	"caseflow-export/export"
	"caseflow-export/logging"
	"caseflow-export/render"
	"caseflow-export/schema"
	"caseflow-export/storage"
	"caseflow-export/store"
	"caseflow-export/utils"
)

// Orchestrator : boucle de polling des exports planifiés. Le tick est
// piloté de l'extérieur (Start) ou injecté directement (Tick) pour des
// tests déterministes ; l'orchestrateur ne possède aucun timer.
type Orchestrator struct {
	Store          *store.Store
	Storage        storage.Store
	Mailer         delivery.Mailer
	Renderer       *render.Client
	Audit          *audit.Sink
	Logger         *logging.Logger
	RetentionHours int
}

func (o *Orchestrator) retention() time.Duration {
	h := o.RetentionHours
	if h <= 0 {
		h = 168
	}
	return time.Duration(h) * time.Hour
}

// Start lance la boucle (tick fixe, 1 min en production). stop ferme
// proprement.
func (o *Orchestrator) Start(tick time.Duration, stop <-chan struct{}) {
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-t.C:
				o.Tick(now.UTC())
			}
		}
	}()
}

// Tick traite séquentiellement tous les schedules échus — en série, pour
// ne pas faire se disputer rendu et stockage entre schedules. L'échec
// d'un schedule n'empêche jamais les suivants du même tick, et le
// recalibrage de nextRunAt a lieu quoi qu'il arrive : un run raté ne
// bloque jamais les runs futurs.
func (o *Orchestrator) Tick(now time.Time) {
	due, err := o.Store.FindDue(now)
	if err != nil {
		o.Logger.Writef("[TICK_FAIL] %v", err)
		return
	}
	for _, sc := range due {
		status := o.runSchedule(sc, now)

		next, err := NextRun(sc.ScheduleType, sc.TimeOfDay, sc.DayOfWeek, sc.DayOfMonth, sc.Timezone, now)
		if err != nil {
			// cadence corrompue en base : on repousse d'un jour plutôt
			// que de re-déclencher à chaque tick
			o.Logger.Writef("[RESCHEDULE_FAIL] schedule=%s %v", sc.ID, err)
			next = now.Add(24 * time.Hour)
		}
		if err := o.Store.AdvanceSchedule(sc.ID, next, now, status); err != nil {
			o.Logger.Writef("[ADVANCE_FAIL] schedule=%s %v", sc.ID, err)
		}
	}
}

// RunNow déclenche immédiatement un run sans attendre le tick, et avance
// nextRunAt comme un déclenchement normal.
func (o *Orchestrator) RunNow(scheduleID string, now time.Time) (store.RunStatus, error) {
	sc, err := o.Store.GetSchedule(scheduleID)
	if err != nil {
		return "", err
	}
	if sc == nil {
		return "", fmt.Errorf("schedule %s not found", scheduleID)
	}
	status := o.runSchedule(sc, now)
	next, err := NextRun(sc.ScheduleType, sc.TimeOfDay, sc.DayOfWeek, sc.DayOfMonth, sc.Timezone, now)
	if err == nil {
		if aerr := o.Store.AdvanceSchedule(sc.ID, next, now, status); aerr != nil {
			o.Logger.Writef("[ADVANCE_FAIL] schedule=%s %v", sc.ID, aerr)
		}
	}
	return status, nil
}

// runSchedule exécute un déclenchement : run record, génération, upload,
// livraison, clôture. Toute erreur (panic compris) est capturée sur le
// run et ne remonte jamais à la boucle.
func (o *Orchestrator) runSchedule(sc *store.ScheduledExport, now time.Time) (status store.RunStatus) {
	run := &store.ScheduledExportRun{
		ID:                utils.NewID(),
		ScheduledExportID: sc.ID,
		StartedAt:         now.UTC(),
		Status:            store.RunFailed,
	}
	if err := o.Store.CreateRun(run); err != nil {
		o.Logger.Writef("[RUN_CREATE_FAIL] schedule=%s %v", sc.ID, err)
		return store.RunFailed
	}
	o.Logger.Writef("[RUN_START] schedule=%s run=%s name=%q", sc.ID, run.ID, sc.Name)

	defer func() {
		if r := recover(); r != nil {
			run.Status = store.RunFailed
			run.ErrorMessage = fmt.Sprintf("panic: %v", r)
		}
		done := time.Now().UTC()
		run.CompletedAt = &done
		if err := o.Store.FinishRun(run); err != nil {
			o.Logger.Writef("[RUN_WRITE_FAIL] run=%s %v", run.ID, err)
		}
		status = run.Status
		o.Logger.Writef("[RUN_END] schedule=%s run=%s status=%s", sc.ID, run.ID, run.Status)
		o.Audit.Log(audit.Event{Kind: "schedule.run", OrgID: sc.OrgID, ObjectID: run.ID,
			Detail: fmt.Sprintf("schedule=%s status=%s", sc.ID, run.Status)})
	}()

	data, rowCount, format, err := o.generate(sc)
	if err != nil {
		run.ErrorMessage = err.Error()
		return
	}
	run.RowCount = &rowCount

	filename := fmt.Sprintf("%s_%s%s", sanitizeName(sc.Name), now.UTC().Format("20060102"), format.Extension())
	path := fmt.Sprintf("schedules/%s/%s/%s", sc.ID, run.ID, filename)
	size, err := o.Storage.Upload(sc.OrgID, path, data, format.ContentType())
	if err != nil {
		run.ErrorMessage = fmt.Sprintf("upload: %v", err)
		return
	}
	url, err := o.Storage.SignedURL(sc.OrgID, path, o.retention())
	if err != nil {
		run.ErrorMessage = fmt.Sprintf("sign url: %v", err)
		return
	}
	run.FilePath = path
	run.FileURL = url
	run.FileSize = size

	if sc.DeliveryMethod == "email" && len(sc.Recipients) > 0 {
		o.deliver(sc, run, filename, format, data, url)
		if run.Status == store.RunFailed {
			return
		}
	} else {
		run.Status = store.RunSuccess
	}
	return
}

// generate produit les octets de l'artefact. Les formats tabulaires
// passent par la même chaîne schéma + sélecteur que les jobs ad hoc ; le
// format document délègue au moteur de rendu externe puis récupère les
// octets produits.
func (o *Orchestrator) generate(sc *store.ScheduledExport) ([]byte, int, export.Format, error) {
	format, ok := export.ParseFormat(sc.Format)
	if !ok {
		return nil, 0, "", fmt.Errorf("unsupported format %q", sc.Format)
	}

	var live []schema.TaggedFieldConfig
	if sc.ColumnConfig.IncludeTaggedFields && sc.ColumnConfig.TaggedFieldsSnapshot == nil {
		var err error
		live, err = o.Store.ListTaggedFields(sc.OrgID)
		if err != nil {
			return nil, 0, format, fmt.Errorf("load tagged fields: %w", err)
		}
	}
	cols := schema.BuildColumns(sc.ColumnConfig, live)

	total, err := o.Store.CountCases(sc.OrgID, sc.Filters)
	if err != nil {
		return nil, 0, format, fmt.Errorf("count rows: %w", err)
	}

	warn := func(msg string) { o.Logger.Write("[WARN] schedule=" + sc.ID + " " + msg) }
	src := store.NewCaseRowSource(o.Store, sc.OrgID, sc.Filters, cols, warn)

	if format == export.FormatDocument {
		data, err := o.renderDocument(sc, cols, src, total)
		return data, total, format, err
	}

	strategy := export.SelectStrategy(format, total)
	data, err := export.Generate(format, strategy, cols, src)
	return data, total, format, err
}

func (o *Orchestrator) renderDocument(sc *store.ScheduledExport, cols []schema.ColumnDefinition, src *store.CaseRowSource, total int) ([]byte, error) {
	if o.Renderer == nil {
		return nil, fmt.Errorf("document format requires a rendering engine")
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Label
	}
	var rows [][]string
	for {
		row, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	content := map[string]interface{}{
		"title":     sc.Name,
		"headers":   headers,
		"rows":      rows,
		"row_count": total,
	}
	data, err := o.Renderer.Render(content, map[string]interface{}{"format": "pdf"})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return data, nil
}

// deliver : un envoi par destinataire, issue enregistrée par destinataire.
// L'échec d'un destinataire ne bloque pas les autres ; le run n'est
// FAILED que si TOUS échouent.
func (o *Orchestrator) deliver(sc *store.ScheduledExport, run *store.ScheduledExportRun, filename string, format export.Format, data []byte, url string) {
	run.DeliveryStatus = map[string]string{}
	subject := fmt.Sprintf("Scheduled export: %s", sc.Name)
	body := fmt.Sprintf("<p>Your scheduled export <b>%s</b> is attached.</p><p><a href=%q>Download</a> (link expires).</p>",
		sc.Name, url)
	att := []delivery.Attachment{{Filename: filename, ContentType: format.ContentType(), Data: data}}

	failures := 0
	for _, rcpt := range sc.Recipients {
		if err := o.Mailer.Send(rcpt, subject, body, att); err != nil {
			run.DeliveryStatus[rcpt] = "failed: " + err.Error()
			failures++
			o.Logger.Writef("[DELIVER_FAIL] run=%s to=%s %v", run.ID, rcpt, err)
			continue
		}
		run.DeliveryStatus[rcpt] = "sent"
		run.DeliveredTo = append(run.DeliveredTo, rcpt)
	}
	if failures == len(sc.Recipients) {
		run.Status = store.RunFailed
		run.ErrorMessage = "delivery failed for all recipients"
		return
	}
	run.Status = store.RunSuccess
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
