package worker

import (
	"fmt"
	"time"

	"caseflow-export/audit"
	"caseflow-export/export"
	"caseflow-export/logging"
	"caseflow-export/schema"
	"caseflow-export/storage"
	"caseflow-export/store"
	"caseflow-export/utils"
)

// Deps : collaborateurs injectés dans le pool et l'orchestrateur.
type Deps struct {
	Store          *store.Store
	Storage        storage.Store
	Audit          *audit.Sink
	Logger         *logging.Logger
	RetentionHours int
}

func (d Deps) retention() time.Duration {
	h := d.RetentionHours
	if h <= 0 {
		h = 168 // 7 jours
	}
	return time.Duration(h) * time.Hour
}

// CreateJob valide la demande, fige la config de colonnes (snapshot des
// slots taggés PAR VALEUR : une édition ultérieure des slots ne change
// jamais cet export) et enfile le job en PENDING. Le job est traité de
// manière asynchrone par le pool.
func CreateJob(deps Deps, orgID, createdBy, exportType, format string, filters store.CaseFilters, colcfg schema.ColumnConfig) (*store.ExportJob, error) {
	f, ok := export.ParseFormat(format)
	if !ok || f == export.FormatDocument {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if colcfg.MaxSubEntities < 0 {
		return nil, fmt.Errorf("max_sub_entities must be >= 0")
	}
	if colcfg.IncludeTaggedFields && colcfg.TaggedFieldsSnapshot == nil {
		live, err := deps.Store.ListTaggedFields(orgID)
		if err != nil {
			return nil, err
		}
		if live == nil {
			live = []schema.TaggedFieldConfig{}
		}
		colcfg.TaggedFieldsSnapshot = live
	}
	now := time.Now().UTC()
	job := &store.ExportJob{
		ID:           utils.NewID(),
		OrgID:        orgID,
		CreatedBy:    createdBy,
		ExportType:   exportType,
		Format:       string(f),
		Filters:      filters,
		ColumnConfig: colcfg,
		Status:       store.JobPending,
		Progress:     0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := deps.Store.CreateJob(job); err != nil {
		return nil, err
	}
	deps.Audit.Log(audit.Event{Kind: "export.created", OrgID: orgID, Actor: createdBy, ObjectID: job.ID,
		Detail: fmt.Sprintf("type=%s format=%s", exportType, f)})
	return job, nil
}
