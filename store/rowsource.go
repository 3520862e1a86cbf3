package store

import "caseflow-export/schema"

// Taille de page de lecture des documents dossier.
const casePageSize = 1000

// CaseRowSource : source paginée de lignes aplaties, consommée par les
// writers (satisfait export.RowSource). Chaque page est chargée à la
// demande, la mémoire reste bornée quel que soit le volume.
type CaseRowSource struct {
	s      *Store
	orgID  string
	f      CaseFilters
	cols   []schema.ColumnDefinition
	warn   func(string)
	page   []map[string]interface{}
	pos    int
	offset int
	done   bool
}

func NewCaseRowSource(s *Store, orgID string, f CaseFilters, cols []schema.ColumnDefinition, warn func(string)) *CaseRowSource {
	return &CaseRowSource{s: s, orgID: orgID, f: f, cols: cols, warn: warn}
}

func (r *CaseRowSource) Next() ([]string, bool, error) {
	if r.pos >= len(r.page) {
		if r.done {
			return nil, false, nil
		}
		page, err := r.s.CasePage(r.orgID, r.f, r.offset, casePageSize)
		if err != nil {
			return nil, false, err
		}
		r.offset += len(page)
		r.page = page
		r.pos = 0
		if len(page) < casePageSize {
			r.done = true
		}
		if len(page) == 0 {
			return nil, false, nil
		}
	}
	doc := r.page[r.pos]
	r.pos++
	return schema.BuildRow(doc, r.cols, r.warn), true, nil
}
