package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"caseflow-export/store"
	"caseflow-export/utils"
)

func completedJob(t *testing.T, s *store.Store, org string, expiresAt time.Time) *store.ExportJob {
	t.Helper()
	now := time.Now().UTC()
	job := &store.ExportJob{
		ID:        utils.NewID(),
		OrgID:     org,
		CreatedBy: "alice",
		Format:    "csv",
		Status:    store.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreateJob(job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := s.ClaimNextJob(now.Add(time.Second)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	done, err := s.MarkJobCompleted(job.ID, "http://localhost:8085/api/exports/file?sig=x", "jobs/x/export.csv", 42, now, expiresAt)
	if err != nil || !done {
		t.Fatalf("complete: done=%v err=%v", done, err)
	}
	return job
}

func statusBody(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("json: %v", err)
	}
	return m
}

func TestExportStatusHidesExpiredDescriptor(t *testing.T) {
	cfg := testConfig()
	s := testAPIStore(t)
	h := ExportStatusHandler(cfg, s)
	user := bearer(t, cfg, "alice", "org-1", false)

	fresh := completedJob(t, s, "org-1", time.Now().UTC().Add(time.Hour))
	w := doJSON(h, "GET", "/api/exports/status?id="+fresh.ID, user, "")
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	m := statusBody(t, w.Body.Bytes())
	if m["status"] != string(store.JobCompleted) || m["file_url"] == nil {
		t.Fatalf("descripteur manquant avant expiration : %v", m)
	}

	expired := completedJob(t, s, "org-1", time.Now().UTC().Add(-time.Minute))
	w = doJSON(h, "GET", "/api/exports/status?id="+expired.ID, user, "")
	m = statusBody(t, w.Body.Bytes())
	if m["status"] != string(store.JobCompleted) {
		t.Fatalf("status = %v", m["status"])
	}
	for _, k := range []string{"file_url", "file_size", "expires_at"} {
		if _, present := m[k]; present {
			t.Errorf("champ %s encore exposé après expiration", k)
		}
	}
}

func TestExportStatusUnknownForOtherOrg(t *testing.T) {
	cfg := testConfig()
	s := testAPIStore(t)
	h := ExportStatusHandler(cfg, s)
	job := completedJob(t, s, "org-1", time.Now().UTC().Add(time.Hour))

	other := bearer(t, cfg, "eve", "org-2", false)
	w := doJSON(h, "GET", "/api/exports/status?id="+job.ID, other, "")
	m := statusBody(t, w.Body.Bytes())
	if m["status"] != "unknown" {
		t.Fatalf("status = %v, attendu unknown", m["status"])
	}
}
