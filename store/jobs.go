package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"caseflow-export/schema"
)

type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobProcessing JobStatus = "PROCESSING"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
	JobCancelled  JobStatus = "CANCELLED"
)

func (st JobStatus) Terminal() bool {
	return st == JobCompleted || st == JobFailed || st == JobCancelled
}

// ExportJob : un export à la demande. Muté uniquement par l'orchestrateur
// une fois créé ; les états terminaux ne bougent plus.
type ExportJob struct {
	ID            string              `json:"id"`
	OrgID         string              `json:"org_id"`
	CreatedBy     string              `json:"created_by"`
	ExportType    string              `json:"export_type"`
	Format        string              `json:"format"`
	Filters       CaseFilters         `json:"filters"`
	ColumnConfig  schema.ColumnConfig `json:"column_config"`
	Status        JobStatus           `json:"status"`
	Progress      int                 `json:"progress"`
	TotalRows     *int                `json:"total_rows,omitempty"`
	FileURL       string              `json:"file_url,omitempty"`
	FilePath      string              `json:"-"`
	FileSize      int64               `json:"file_size,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	Diagnostic    string              `json:"-"`
	Attempts      int                 `json:"attempts"`
	NextAttemptAt *time.Time          `json:"-"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"-"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
}

func (s *Store) CreateJob(j *ExportJob) error {
	filters, err := json.Marshal(j.Filters)
	if err != nil {
		return err
	}
	colcfg, err := json.Marshal(j.ColumnConfig)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.bind(`INSERT INTO export_jobs
		(id, org_id, created_by, export_type, format, filters, column_config,
		 status, progress, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		j.ID, j.OrgID, j.CreatedBy, j.ExportType, j.Format, string(filters), string(colcfg),
		string(j.Status), j.Progress, j.Attempts, j.CreatedAt, j.UpdatedAt)
	return err
}

const jobColumns = `id, org_id, created_by, export_type, format, filters, column_config,
	status, progress, total_rows, file_url, file_path, file_size, error_message, diagnostic,
	attempts, next_attempt_at, created_at, updated_at, completed_at, expires_at`

func (s *Store) GetJob(id string) (*ExportJob, error) {
	row := s.db.QueryRow(s.bind(`SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`), id)
	return scanJob(row)
}

func scanJob(row *sql.Row) (*ExportJob, error) {
	var j ExportJob
	var filters, colcfg string
	var totalRows sql.NullInt64
	var fileURL, filePath, errMsg, diag sql.NullString
	var fileSize sql.NullInt64
	var nextAt, completedAt, expiresAt sql.NullTime
	var status string
	err := row.Scan(&j.ID, &j.OrgID, &j.CreatedBy, &j.ExportType, &j.Format, &filters, &colcfg,
		&status, &j.Progress, &totalRows, &fileURL, &filePath, &fileSize, &errMsg, &diag,
		&j.Attempts, &nextAt, &j.CreatedAt, &j.UpdatedAt, &completedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	j.Status = JobStatus(status)
	if err := json.Unmarshal([]byte(filters), &j.Filters); err != nil {
		return nil, fmt.Errorf("job %s: bad filters payload: %w", j.ID, err)
	}
	if err := json.Unmarshal([]byte(colcfg), &j.ColumnConfig); err != nil {
		return nil, fmt.Errorf("job %s: bad column config payload: %w", j.ID, err)
	}
	if totalRows.Valid {
		n := int(totalRows.Int64)
		j.TotalRows = &n
	}
	j.FileURL = fileURL.String
	j.FilePath = filePath.String
	j.FileSize = fileSize.Int64
	j.ErrorMessage = errMsg.String
	j.Diagnostic = diag.String
	if nextAt.Valid {
		t := nextAt.Time
		j.NextAttemptAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		j.ExpiresAt = &t
	}
	return &j, nil
}

// ClaimNextJob : file FIFO durable. Sélectionne le plus ancien PENDING
// éligible puis le passe PROCESSING par un update conditionnel ; si un
// autre worker l'a pris entre-temps on réessaie sur le candidat suivant.
// Retourne nil sans erreur quand la file est vide.
func (s *Store) ClaimNextJob(now time.Time) (*ExportJob, error) {
	for try := 0; try < 5; try++ {
		var id string
		err := s.db.QueryRow(s.bind(`SELECT id FROM export_jobs
			WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
			ORDER BY created_at, id LIMIT 1`), string(JobPending), now).Scan(&id)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		res, err := s.db.Exec(s.bind(`UPDATE export_jobs
			SET status = ?, progress = 5, updated_at = ? WHERE id = ? AND status = ?`),
			string(JobProcessing), now, id, string(JobPending))
		if err != nil {
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return s.GetJob(id)
		}
		// perdu la course, candidat suivant
	}
	return nil, nil
}

func (s *Store) SetJobProgress(id string, progress int) error {
	_, err := s.db.Exec(s.bind(`UPDATE export_jobs SET progress = ?, updated_at = ? WHERE id = ?`),
		progress, time.Now().UTC(), id)
	return err
}

func (s *Store) SetJobTotalRows(id string, totalRows int) error {
	_, err := s.db.Exec(s.bind(`UPDATE export_jobs SET total_rows = ?, updated_at = ? WHERE id = ?`),
		totalRows, time.Now().UTC(), id)
	return err
}

// MarkJobCompleted est conditionnel sur PROCESSING : si une annulation est
// arrivée pendant la génération, l'update ne touche rien et on retourne
// false (l'appelant laisse le job CANCELLED).
func (s *Store) MarkJobCompleted(id, fileURL, filePath string, fileSize int64, completedAt, expiresAt time.Time) (bool, error) {
	res, err := s.db.Exec(s.bind(`UPDATE export_jobs
		SET status = ?, progress = 100, file_url = ?, file_path = ?, file_size = ?,
		    completed_at = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`),
		string(JobCompleted), fileURL, filePath, fileSize, completedAt, expiresAt, completedAt,
		id, string(JobProcessing))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (s *Store) MarkJobFailed(id, userMessage, diagnostic string) error {
	_, err := s.db.Exec(s.bind(`UPDATE export_jobs
		SET status = ?, error_message = ?, diagnostic = ?, updated_at = ? WHERE id = ?`),
		string(JobFailed), userMessage, diagnostic, time.Now().UTC(), id)
	return err
}

// RequeueJob remet le job en PENDING pour une nouvelle tentative différée.
func (s *Store) RequeueJob(id string, attempts int, nextAttemptAt time.Time) error {
	_, err := s.db.Exec(s.bind(`UPDATE export_jobs
		SET status = ?, attempts = ?, next_attempt_at = ?, updated_at = ? WHERE id = ?`),
		string(JobPending), attempts, nextAttemptAt, time.Now().UTC(), id)
	return err
}

// CancelJob : annulation consultative, permise seulement hors état
// terminal. Retourne false si le job était déjà terminé (ou inconnu).
func (s *Store) CancelJob(id string) (bool, error) {
	res, err := s.db.Exec(s.bind(`UPDATE export_jobs
		SET status = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)`),
		string(JobCancelled), time.Now().UTC(), id, string(JobPending), string(JobProcessing))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

func (s *Store) JobStatus(id string) (JobStatus, error) {
	var status string
	err := s.db.QueryRow(s.bind(`SELECT status FROM export_jobs WHERE id = ?`), id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("job %s not found", id)
	}
	if err != nil {
		return "", err
	}
	return JobStatus(status), nil
}
