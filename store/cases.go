package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CaseFilters : filtres d'extraction. Les colonnes status/category/
// created_at sont dénormalisées dans case_documents pour pouvoir filtrer
// en SQL ; le document JSON reste la source des valeurs exportées.
type CaseFilters struct {
	Status      []string   `json:"status,omitempty"`
	Category    []string   `json:"category,omitempty"`
	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`
}

func (s *Store) whereCases(orgID string, f CaseFilters) (string, []interface{}) {
	where := "org_id = ?"
	args := []interface{}{orgID}
	if len(f.Status) > 0 {
		where += " AND status IN (" + placeholders(len(f.Status)) + ")"
		for _, v := range f.Status {
			args = append(args, v)
		}
	}
	if len(f.Category) > 0 {
		where += " AND category IN (" + placeholders(len(f.Category)) + ")"
		for _, v := range f.Category {
			args = append(args, v)
		}
	}
	if f.CreatedFrom != nil {
		where += " AND created_at >= ?"
		args = append(args, *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		where += " AND created_at < ?"
		args = append(args, *f.CreatedTo)
	}
	return where, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (s *Store) CountCases(orgID string, f CaseFilters) (int, error) {
	where, args := s.whereCases(orgID, f)
	var n int
	err := s.db.QueryRow(s.bind(`SELECT COUNT(*) FROM case_documents WHERE `+where), args...).Scan(&n)
	return n, err
}

// CasePage : une page de documents, ordre stable (created_at, id) pour que
// la pagination couvre chaque ligne exactement une fois.
func (s *Store) CasePage(orgID string, f CaseFilters, offset, limit int) ([]map[string]interface{}, error) {
	where, args := s.whereCases(orgID, f)
	args = append(args, limit, offset)
	rows, err := s.db.Query(s.bind(`SELECT doc FROM case_documents WHERE `+where+
		` ORDER BY created_at, id LIMIT ? OFFSET ?`), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []map[string]interface{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("case document corrupt: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// InsertCase range un document dossier. Les clés id, status, category et
// created_at du document alimentent les colonnes de filtrage.
func (s *Store) InsertCase(orgID string, doc map[string]interface{}) error {
	id, _ := doc["id"].(string)
	if id == "" {
		return fmt.Errorf("case document without id")
	}
	status, _ := doc["status"].(string)
	category, _ := doc["category"].(string)
	createdAt := time.Now().UTC()
	if s, ok := doc["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			createdAt = t
		} else if t, err := time.Parse("2006-01-02", s); err == nil {
			createdAt = t
		}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.bind(`INSERT INTO case_documents
		(id, org_id, status, category, created_at, doc) VALUES (?, ?, ?, ?, ?, ?)`),
		id, orgID, status, category, createdAt, string(raw))
	return err
}

// CustomFieldKeys : clés custom rencontrées dans les documents d'une
// organisation (pour catalog-sync).
func (s *Store) CustomFieldKeys(orgID string) ([]string, error) {
	rows, err := s.db.Query(s.bind(`SELECT doc FROM case_documents WHERE org_id = ?`), orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := map[string]bool{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		if cf, ok := doc["custom_fields"].(map[string]interface{}); ok {
			for k := range cf {
				seen[k] = true
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
