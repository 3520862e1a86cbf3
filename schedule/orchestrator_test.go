package schedule

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"caseflow-export/delivery"
	"caseflow-export/render"
	"caseflow-export/storage"
	"caseflow-export/store"
	"caseflow-export/utils"
)

// fakeMailer enregistre les envois et peut échouer par destinataire.
type fakeMailer struct {
	sent []string
	fail map[string]bool
}

func (m *fakeMailer) Send(to, subject, htmlBody string, attachments []delivery.Attachment) error {
	if m.fail[to] {
		return fmt.Errorf("smtp refused")
	}
	m.sent = append(m.sent, to)
	return nil
}

func testOrchestrator(t *testing.T) (*Orchestrator, *fakeMailer) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open("sqlite", filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	m := &fakeMailer{fail: map[string]bool{}}
	return &Orchestrator{
		Store:   s,
		Storage: storage.NewLocal(filepath.Join(dir, "files"), "http://localhost:8085", "test-secret"),
		Mailer:  m,
	}, m
}

func seedCases(t *testing.T, s *store.Store, org string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		doc := map[string]interface{}{
			"id":         fmt.Sprintf("case-%03d", i),
			"reference":  fmt.Sprintf("REF-%03d", i),
			"title":      fmt.Sprintf("Dossier %d", i),
			"status":     "OPEN",
			"created_at": "2025-03-01",
		}
		if err := s.InsertCase(org, doc); err != nil {
			t.Fatalf("insert case: %v", err)
		}
	}
}

func makeSchedule(t *testing.T, s *store.Store, nextRunAt time.Time, mutate func(*store.ScheduledExport)) *store.ScheduledExport {
	t.Helper()
	now := time.Now().UTC()
	sc := &store.ScheduledExport{
		ID:             utils.NewID(),
		OrgID:          "org-1",
		Name:           "Rapport mensuel",
		ExportType:     "cases",
		Format:         "csv",
		ScheduleType:   store.ScheduleDaily,
		TimeOfDay:      "06:00",
		Timezone:       "UTC",
		DeliveryMethod: "email",
		Recipients:     []string{"a@example.com", "b@example.com"},
		IsActive:       true,
		NextRunAt:      nextRunAt,
		CreatedBy:      "alice",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if mutate != nil {
		mutate(sc)
	}
	if err := s.CreateSchedule(sc); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return sc
}

func lastRun(t *testing.T, s *store.Store, scheduleID string) *store.ScheduledExportRun {
	t.Helper()
	runs, err := s.ListRuns(scheduleID, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("aucun run enregistré")
	}
	return runs[0]
}

func TestTickRunsDueSchedule(t *testing.T) {
	o, m := testOrchestrator(t)
	seedCases(t, o.Store, "org-1", 2)
	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(-time.Hour), nil)

	o.Tick(now)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunSuccess {
		t.Fatalf("run = %s (%s)", run.Status, run.ErrorMessage)
	}
	if run.RowCount == nil || *run.RowCount != 2 {
		t.Fatalf("row_count = %v", run.RowCount)
	}
	if len(run.DeliveredTo) != 2 || run.DeliveryStatus["a@example.com"] != "sent" {
		t.Fatalf("livraison inattendue : %v / %v", run.DeliveredTo, run.DeliveryStatus)
	}
	if len(m.sent) != 2 {
		t.Fatalf("%d envois, attendu 2", len(m.sent))
	}

	data, err := o.Storage.Download("org-1", run.FilePath)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.Contains(string(data), "REF-001") {
		t.Fatal("artefact CSV incomplet")
	}

	got, _ := o.Store.GetSchedule(sc.ID)
	if !got.NextRunAt.After(now) {
		t.Fatalf("next_run_at non avancé : %v", got.NextRunAt)
	}
	if got.LastRunStatus != string(store.RunSuccess) {
		t.Fatalf("last_run_status = %q", got.LastRunStatus)
	}
}

func TestTickIgnoresInactiveAndFuture(t *testing.T) {
	o, m := testOrchestrator(t)
	now := time.Now().UTC()
	inactive := makeSchedule(t, o.Store, now.Add(-time.Hour), func(sc *store.ScheduledExport) {
		sc.IsActive = false
	})
	future := makeSchedule(t, o.Store, now.Add(time.Hour), nil)

	o.Tick(now)

	for _, sc := range []*store.ScheduledExport{inactive, future} {
		runs, err := o.Store.ListRuns(sc.ID, 10)
		if err != nil {
			t.Fatalf("list runs: %v", err)
		}
		if len(runs) != 0 {
			t.Fatalf("schedule %s déclenché à tort", sc.ID)
		}
	}
	if len(m.sent) != 0 {
		t.Fatal("aucun envoi attendu")
	}
}

func TestDeliveryPartialFailureIsStillSuccess(t *testing.T) {
	o, m := testOrchestrator(t)
	seedCases(t, o.Store, "org-1", 1)
	m.fail["b@example.com"] = true
	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(-time.Minute), nil)

	o.Tick(now)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunSuccess {
		t.Fatalf("run = %s, un destinataire livré suffit", run.Status)
	}
	if run.DeliveryStatus["a@example.com"] != "sent" {
		t.Fatalf("a@example.com : %q", run.DeliveryStatus["a@example.com"])
	}
	if !strings.HasPrefix(run.DeliveryStatus["b@example.com"], "failed: ") {
		t.Fatalf("b@example.com : %q", run.DeliveryStatus["b@example.com"])
	}
	if len(run.DeliveredTo) != 1 || run.DeliveredTo[0] != "a@example.com" {
		t.Fatalf("delivered_to = %v", run.DeliveredTo)
	}
}

func TestDeliveryTotalFailureFailsRunButAdvances(t *testing.T) {
	o, m := testOrchestrator(t)
	seedCases(t, o.Store, "org-1", 1)
	m.fail["a@example.com"] = true
	m.fail["b@example.com"] = true
	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(-time.Minute), nil)

	o.Tick(now)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunFailed {
		t.Fatalf("run = %s, attendu FAILED", run.Status)
	}
	if run.ErrorMessage != "delivery failed for all recipients" {
		t.Fatalf("message = %q", run.ErrorMessage)
	}

	// un run raté ne bloque jamais la cadence
	got, _ := o.Store.GetSchedule(sc.ID)
	if !got.NextRunAt.After(now) {
		t.Fatalf("next_run_at non avancé : %v", got.NextRunAt)
	}
	if got.LastRunStatus != string(store.RunFailed) {
		t.Fatalf("last_run_status = %q", got.LastRunStatus)
	}
}

func TestGenerationFailureStillAdvances(t *testing.T) {
	o, _ := testOrchestrator(t)
	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(-time.Minute), func(sc *store.ScheduledExport) {
		sc.Format = "bogus" // cadence corrompue en base
	})

	o.Tick(now)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunFailed || !strings.Contains(run.ErrorMessage, "unsupported format") {
		t.Fatalf("run = %s / %q", run.Status, run.ErrorMessage)
	}
	got, _ := o.Store.GetSchedule(sc.ID)
	if !got.NextRunAt.After(now) {
		t.Fatalf("next_run_at non avancé : %v", got.NextRunAt)
	}
}

func TestRunCompletionIsStampedAtClose(t *testing.T) {
	o, _ := testOrchestrator(t)
	seedCases(t, o.Store, "org-1", 1)

	// tick de rattrapage daté dans le passé : la fin du run doit porter
	// l'horloge réelle, pas la référence du tick
	ref := time.Now().UTC().Add(-time.Hour)
	sc := makeSchedule(t, o.Store, ref.Add(-time.Minute), nil)

	o.Tick(ref)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunSuccess {
		t.Fatalf("run = %s (%s)", run.Status, run.ErrorMessage)
	}
	if d := run.StartedAt.Sub(ref); d < -time.Second || d > time.Second {
		t.Fatalf("started_at = %v, attendu ~%v", run.StartedAt, ref)
	}
	if run.CompletedAt == nil || !run.CompletedAt.After(run.StartedAt) {
		t.Fatalf("completed_at = %v, doit être postérieur à %v", run.CompletedAt, run.StartedAt)
	}
}

func TestRunNow(t *testing.T) {
	o, m := testOrchestrator(t)
	seedCases(t, o.Store, "org-1", 1)
	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(48*time.Hour), nil)

	status, err := o.RunNow(sc.ID, now)
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if status != store.RunSuccess {
		t.Fatalf("statut = %s", status)
	}
	if len(m.sent) != 2 {
		t.Fatalf("%d envois", len(m.sent))
	}
	if _, err := o.RunNow("no-such-schedule", now); err == nil {
		t.Fatal("schedule inconnu accepté")
	}
}

func TestDocumentFormatGoesThroughRenderer(t *testing.T) {
	o, _ := testOrchestrator(t)
	seedCases(t, o.Store, "org-1", 1)

	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()
	o.Renderer = render.NewClient(srv.URL)

	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(-time.Minute), func(sc *store.ScheduledExport) {
		sc.Format = "document"
		sc.DeliveryMethod = "storage"
		sc.Recipients = nil
	})

	o.Tick(now)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunSuccess {
		t.Fatalf("run = %s (%s)", run.Status, run.ErrorMessage)
	}
	if !strings.HasSuffix(run.FilePath, ".pdf") {
		t.Fatalf("chemin = %s", run.FilePath)
	}
	data, err := o.Storage.Download("org-1", run.FilePath)
	if err != nil || string(data) != "%PDF-1.4 fake" {
		t.Fatalf("artefact = %q err=%v", data, err)
	}
	if !strings.Contains(gotBody, `"headers"`) || !strings.Contains(gotBody, `"row_count":1`) {
		t.Fatalf("payload de rendu incomplet : %s", gotBody)
	}
}

func TestDocumentFormatWithoutRendererFails(t *testing.T) {
	o, _ := testOrchestrator(t)
	now := time.Now().UTC()
	sc := makeSchedule(t, o.Store, now.Add(-time.Minute), func(sc *store.ScheduledExport) {
		sc.Format = "document"
		sc.DeliveryMethod = "storage"
	})

	o.Tick(now)

	run := lastRun(t, o.Store, sc.ID)
	if run.Status != store.RunFailed || !strings.Contains(run.ErrorMessage, "rendering engine") {
		t.Fatalf("run = %s / %q", run.Status, run.ErrorMessage)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Rapport Mensuel":  "rapport_mensuel",
		"Q1 - Incidents":   "q1___incidents",
		"  Über rapport  ": "ber_rapport",
		"###":              "export",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != want {
			t.Errorf("sanitizeName(%q) = %q, attendu %q", in, got, want)
		}
	}
}
