package worker

import (
	"fmt"
	"time"

	"caseflow-export/audit"
	"caseflow-export/export"
	"caseflow-export/schema"
	"caseflow-export/store"
)

// ProcessJob : la machine à états d'une tentative. Jalons de progression
// persistés : 5 (pris en charge), 20 (lignes comptées), 80 (fichier
// généré), 100 (COMPLETED). Toute erreur remonte à RunJobAttempt qui
// décide retry ou FAILED.
func ProcessJob(job *store.ExportJob, deps Deps) error {
	st := deps.Store

	// schéma de colonnes depuis le snapshot figé à la création ; la
	// config vivante n'est consultée que pour les jobs historiques sans
	// snapshot
	var live []schema.TaggedFieldConfig
	if job.ColumnConfig.IncludeTaggedFields && job.ColumnConfig.TaggedFieldsSnapshot == nil {
		var err error
		live, err = st.ListTaggedFields(job.OrgID)
		if err != nil {
			return fmt.Errorf("load tagged fields: %w", err)
		}
	}
	cols := schema.BuildColumns(job.ColumnConfig, live)

	total, err := st.CountCases(job.OrgID, job.Filters)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	if err := st.SetJobTotalRows(job.ID, total); err != nil {
		return err
	}
	if err := st.SetJobProgress(job.ID, 20); err != nil {
		return err
	}

	format, ok := export.ParseFormat(job.Format)
	if !ok {
		return fmt.Errorf("unsupported format %q", job.Format)
	}
	strategy := export.SelectStrategy(format, total)
	deps.Logger.Writef("[GENERATE] id=%s rows=%d strategy=%s", job.ID, total, strategy)

	warn := func(msg string) { deps.Logger.Write("[WARN] id=" + job.ID + " " + msg) }
	src := store.NewCaseRowSource(st, job.OrgID, job.Filters, cols, warn)
	data, err := export.Generate(format, strategy, cols, src)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := st.SetJobProgress(job.ID, 80); err != nil {
		return err
	}

	filename := fmt.Sprintf("export_%s%s", time.Now().UTC().Format("20060102_150405"), format.Extension())
	path := fmt.Sprintf("jobs/%s/%s", job.ID, filename)
	size, err := deps.Storage.Upload(job.OrgID, path, data, format.ContentType())
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	url, err := deps.Storage.SignedURL(job.OrgID, path, deps.retention())
	if err != nil {
		return fmt.Errorf("sign url: %w", err)
	}

	completedAt := time.Now().UTC()
	expiresAt := completedAt.Add(deps.retention())
	done, err := st.MarkJobCompleted(job.ID, url, path, size, completedAt, expiresAt)
	if err != nil {
		return err
	}
	if !done {
		// annulé pendant la génération : l'écriture terminale a été
		// refusée, le job reste CANCELLED
		deps.Logger.Writef("[CANCELLED] id=%s (after generation)", job.ID)
		return nil
	}
	deps.Logger.Writef("[COMPLETE] id=%s rows=%d bytes=%d file=%s", job.ID, total, size, path)
	deps.Audit.Log(audit.Event{Kind: "export.completed", OrgID: job.OrgID, Actor: job.CreatedBy,
		ObjectID: job.ID, Detail: fmt.Sprintf("rows=%d bytes=%d", total, size)})
	return nil
}

// failJob : état FAILED définitif. Message court côté utilisateur, le
// diagnostic complet reste dans la colonne dédiée pour les opérateurs.
func failJob(job *store.ExportJob, deps Deps, cause error) {
	userMsg := "La génération de l'export a échoué"
	diag := fmt.Sprintf("attempts=%d last_error=%v", MaxAttempts, cause)
	if err := deps.Store.MarkJobFailed(job.ID, userMsg, diag); err != nil {
		deps.Logger.Writef("[FAIL_WRITE] id=%s %v", job.ID, err)
	}
	deps.Logger.Writef("[FAIL] id=%s %v", job.ID, cause)
	deps.Audit.Log(audit.Event{Kind: "export.failed", OrgID: job.OrgID, Actor: job.CreatedBy,
		ObjectID: job.ID, Detail: diag})
}
