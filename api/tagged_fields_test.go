package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"caseflow-export/auth"
	"caseflow-export/catalog"
	"caseflow-export/config"
	"caseflow-export/store"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	return cfg
}

func testAPIStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func bearer(t *testing.T, cfg *config.Config, username, org string, isAdmin bool) string {
	t.Helper()
	token, err := auth.GenerateJWT(cfg.JWT.Secret, username, org, isAdmin, 10)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	return "Bearer " + token
}

func doJSON(h http.HandlerFunc, method, target, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

const slotBody = `{"slot":5,"entity_kind":"case","field_path":"metadata.priority","column_name":"m_priority","label":"Priority","data_type":"text"}`

func TestTaggedFieldsMutationsRequireAdmin(t *testing.T) {
	cfg := testConfig()
	s := testAPIStore(t)
	h := TaggedFieldsHandler(cfg, s, catalog.BuiltinFields(), nil)
	user := bearer(t, cfg, "bob", "org-1", false)

	for _, method := range []string{"POST", "PUT"} {
		w := doJSON(h, method, "/api/tagged-fields", user, slotBody)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s non-admin: code = %d, attendu 403", method, w.Code)
		}
	}
	if w := doJSON(h, "DELETE", "/api/tagged-fields?slot=5", user, ""); w.Code != http.StatusForbidden {
		t.Errorf("DELETE non-admin: code = %d, attendu 403", w.Code)
	}
	list, err := s.ListTaggedFields("org-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("un slot a été persisté malgré le refus : %+v", list)
	}

	// la lecture reste ouverte à tout utilisateur authentifié
	if w := doJSON(h, "GET", "/api/tagged-fields", user, ""); w.Code != http.StatusOK {
		t.Errorf("GET non-admin: code = %d", w.Code)
	}
}

func TestTaggedFieldsAdminCRUD(t *testing.T) {
	cfg := testConfig()
	s := testAPIStore(t)
	h := TaggedFieldsHandler(cfg, s, catalog.BuiltinFields(), nil)
	admin := bearer(t, cfg, "alice", "org-1", true)

	if w := doJSON(h, "POST", "/api/tagged-fields", admin, slotBody); w.Code != http.StatusNoContent {
		t.Fatalf("POST admin: code = %d body=%s", w.Code, w.Body.String())
	}
	list, _ := s.ListTaggedFields("org-1")
	if len(list) != 1 || list[0].Slot != 5 {
		t.Fatalf("slot non persisté : %+v", list)
	}
	// slot déjà pris : POST refuse, PUT remplace
	if w := doJSON(h, "POST", "/api/tagged-fields", admin, slotBody); w.Code != http.StatusConflict {
		t.Errorf("POST doublon: code = %d, attendu 409", w.Code)
	}
	if w := doJSON(h, "PUT", "/api/tagged-fields", admin, slotBody); w.Code != http.StatusNoContent {
		t.Errorf("PUT remplacement: code = %d", w.Code)
	}
	if w := doJSON(h, "DELETE", "/api/tagged-fields?slot=5", admin, ""); w.Code != http.StatusNoContent {
		t.Errorf("DELETE admin: code = %d", w.Code)
	}
	if list, _ = s.ListTaggedFields("org-1"); len(list) != 0 {
		t.Fatalf("slot non supprimé : %+v", list)
	}

	if w := doJSON(h, "POST", "/api/tagged-fields", "", slotBody); w.Code != http.StatusUnauthorized {
		t.Errorf("sans JWT: code = %d, attendu 401", w.Code)
	}
}
