package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"caseflow-export/schema"
)

type ScheduleType string

const (
	ScheduleDaily   ScheduleType = "DAILY"
	ScheduleWeekly  ScheduleType = "WEEKLY"
	ScheduleMonthly ScheduleType = "MONTHLY"
)

func ParseScheduleType(s string) (ScheduleType, bool) {
	switch ScheduleType(s) {
	case ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return ScheduleType(s), true
	}
	return "", false
}

// ScheduledExport : définition d'un export récurrent. nextRunAt avance
// après chaque déclenchement, succès ou échec.
type ScheduledExport struct {
	ID             string              `json:"id"`
	OrgID          string              `json:"org_id"`
	Name           string              `json:"name"`
	ExportType     string              `json:"export_type"`
	Format         string              `json:"format"`
	Filters        CaseFilters         `json:"filters"`
	ColumnConfig   schema.ColumnConfig `json:"column_config"`
	ScheduleType   ScheduleType        `json:"schedule_type"`
	TimeOfDay      string              `json:"time_of_day"` // "HH:MM"
	DayOfWeek      *int                `json:"day_of_week,omitempty"`
	DayOfMonth     *int                `json:"day_of_month,omitempty"`
	Timezone       string              `json:"timezone"`
	DeliveryMethod string              `json:"delivery_method"` // "email" ou "storage"
	Recipients     []string            `json:"recipients"`
	IsActive       bool                `json:"is_active"`
	NextRunAt      time.Time           `json:"next_run_at"`
	LastRunAt      *time.Time          `json:"last_run_at,omitempty"`
	LastRunStatus  string              `json:"last_run_status,omitempty"`
	CreatedBy      string              `json:"created_by"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// ScheduledExportRun : une exécution de schedule. Immuable une fois close.
type ScheduledExportRun struct {
	ID                string            `json:"id"`
	ScheduledExportID string            `json:"scheduled_export_id"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Status            RunStatus         `json:"status"`
	FileURL           string            `json:"file_url,omitempty"`
	FilePath          string            `json:"-"`
	FileSize          int64             `json:"file_size,omitempty"`
	RowCount          *int              `json:"row_count,omitempty"`
	DeliveredTo       []string          `json:"delivered_to,omitempty"`
	DeliveryStatus    map[string]string `json:"delivery_status,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
}

func (s *Store) CreateSchedule(sc *ScheduledExport) error {
	filters, colcfg, recipients, err := marshalScheduleBlobs(sc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.bind(`INSERT INTO scheduled_exports
		(id, org_id, name, export_type, format, filters, column_config,
		 schedule_type, time_of_day, day_of_week, day_of_month, timezone,
		 delivery_method, recipients, is_active, next_run_at, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		sc.ID, sc.OrgID, sc.Name, sc.ExportType, sc.Format, filters, colcfg,
		string(sc.ScheduleType), sc.TimeOfDay, nullableInt(sc.DayOfWeek), nullableInt(sc.DayOfMonth), sc.Timezone,
		sc.DeliveryMethod, recipients, boolToInt(sc.IsActive), sc.NextRunAt, sc.CreatedBy, sc.CreatedAt, sc.UpdatedAt)
	return err
}

func (s *Store) UpdateSchedule(sc *ScheduledExport) error {
	filters, colcfg, recipients, err := marshalScheduleBlobs(sc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.bind(`UPDATE scheduled_exports SET
		name = ?, export_type = ?, format = ?, filters = ?, column_config = ?,
		schedule_type = ?, time_of_day = ?, day_of_week = ?, day_of_month = ?, timezone = ?,
		delivery_method = ?, recipients = ?, is_active = ?, next_run_at = ?, updated_at = ?
		WHERE id = ?`),
		sc.Name, sc.ExportType, sc.Format, filters, colcfg,
		string(sc.ScheduleType), sc.TimeOfDay, nullableInt(sc.DayOfWeek), nullableInt(sc.DayOfMonth), sc.Timezone,
		sc.DeliveryMethod, recipients, boolToInt(sc.IsActive), sc.NextRunAt, time.Now().UTC(),
		sc.ID)
	return err
}

func marshalScheduleBlobs(sc *ScheduledExport) (string, string, string, error) {
	filters, err := json.Marshal(sc.Filters)
	if err != nil {
		return "", "", "", err
	}
	colcfg, err := json.Marshal(sc.ColumnConfig)
	if err != nil {
		return "", "", "", err
	}
	recipients, err := json.Marshal(sc.Recipients)
	if err != nil {
		return "", "", "", err
	}
	return string(filters), string(colcfg), string(recipients), nil
}

func (s *Store) DeleteSchedule(id string) error {
	_, err := s.db.Exec(s.bind(`DELETE FROM scheduled_exports WHERE id = ?`), id)
	return err
}

const scheduleColumns = `id, org_id, name, export_type, format, filters, column_config,
	schedule_type, time_of_day, day_of_week, day_of_month, timezone,
	delivery_method, recipients, is_active, next_run_at, last_run_at, last_run_status,
	created_by, created_at, updated_at`

func (s *Store) GetSchedule(id string) (*ScheduledExport, error) {
	rows, err := s.db.Query(s.bind(`SELECT `+scheduleColumns+` FROM scheduled_exports WHERE id = ?`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSchedule(rows)
}

func (s *Store) ListSchedules(orgID string) ([]*ScheduledExport, error) {
	rows, err := s.db.Query(s.bind(`SELECT `+scheduleColumns+
		` FROM scheduled_exports WHERE org_id = ? ORDER BY name, id`), orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// FindDue : tous les schedules actifs arrivés à échéance, plus ancien
// d'abord. C'est l'unique requête du tick de polling.
func (s *Store) FindDue(now time.Time) ([]*ScheduledExport, error) {
	rows, err := s.db.Query(s.bind(`SELECT `+scheduleColumns+
		` FROM scheduled_exports WHERE is_active = 1 AND next_run_at <= ? ORDER BY next_run_at, id`), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedules(rows *sql.Rows) ([]*ScheduledExport, error) {
	var out []*ScheduledExport
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func scanSchedule(rows *sql.Rows) (*ScheduledExport, error) {
	var sc ScheduledExport
	var filters, colcfg, recipients, schedType string
	var dayOfWeek, dayOfMonth sql.NullInt64
	var isActive int
	var lastRunAt sql.NullTime
	var lastRunStatus sql.NullString
	err := rows.Scan(&sc.ID, &sc.OrgID, &sc.Name, &sc.ExportType, &sc.Format, &filters, &colcfg,
		&schedType, &sc.TimeOfDay, &dayOfWeek, &dayOfMonth, &sc.Timezone,
		&sc.DeliveryMethod, &recipients, &isActive, &sc.NextRunAt, &lastRunAt, &lastRunStatus,
		&sc.CreatedBy, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sc.ScheduleType = ScheduleType(schedType)
	if err := json.Unmarshal([]byte(filters), &sc.Filters); err != nil {
		return nil, fmt.Errorf("schedule %s: bad filters payload: %w", sc.ID, err)
	}
	if err := json.Unmarshal([]byte(colcfg), &sc.ColumnConfig); err != nil {
		return nil, fmt.Errorf("schedule %s: bad column config payload: %w", sc.ID, err)
	}
	if err := json.Unmarshal([]byte(recipients), &sc.Recipients); err != nil {
		return nil, fmt.Errorf("schedule %s: bad recipients payload: %w", sc.ID, err)
	}
	if dayOfWeek.Valid {
		n := int(dayOfWeek.Int64)
		sc.DayOfWeek = &n
	}
	if dayOfMonth.Valid {
		n := int(dayOfMonth.Int64)
		sc.DayOfMonth = &n
	}
	sc.IsActive = isActive != 0
	if lastRunAt.Valid {
		t := lastRunAt.Time
		sc.LastRunAt = &t
	}
	sc.LastRunStatus = lastRunStatus.String
	return &sc, nil
}

// AdvanceSchedule pousse nextRunAt et l'issue du dernier run. Appelé après
// CHAQUE déclenchement, y compris en échec : un run raté ne doit jamais
// bloquer les suivants.
func (s *Store) AdvanceSchedule(id string, nextRunAt, lastRunAt time.Time, lastRunStatus RunStatus) error {
	_, err := s.db.Exec(s.bind(`UPDATE scheduled_exports
		SET next_run_at = ?, last_run_at = ?, last_run_status = ?, updated_at = ? WHERE id = ?`),
		nextRunAt, lastRunAt, string(lastRunStatus), time.Now().UTC(), id)
	return err
}

func (s *Store) SetScheduleActive(id string, active bool, nextRunAt *time.Time) error {
	if nextRunAt != nil {
		_, err := s.db.Exec(s.bind(`UPDATE scheduled_exports
			SET is_active = ?, next_run_at = ?, updated_at = ? WHERE id = ?`),
			boolToInt(active), *nextRunAt, time.Now().UTC(), id)
		return err
	}
	_, err := s.db.Exec(s.bind(`UPDATE scheduled_exports
		SET is_active = ?, updated_at = ? WHERE id = ?`),
		boolToInt(active), time.Now().UTC(), id)
	return err
}

func (s *Store) CreateRun(r *ScheduledExportRun) error {
	_, err := s.db.Exec(s.bind(`INSERT INTO scheduled_export_runs
		(id, scheduled_export_id, started_at, status) VALUES (?, ?, ?, ?)`),
		r.ID, r.ScheduledExportID, r.StartedAt, string(r.Status))
	return err
}

// FinishRun clôt le run : une fois complété il n'est plus jamais modifié.
func (s *Store) FinishRun(r *ScheduledExportRun) error {
	delivered, err := json.Marshal(r.DeliveredTo)
	if err != nil {
		return err
	}
	delivery, err := json.Marshal(r.DeliveryStatus)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.bind(`UPDATE scheduled_export_runs SET
		completed_at = ?, status = ?, file_url = ?, file_path = ?, file_size = ?,
		row_count = ?, delivered_to = ?, delivery_status = ?, error_message = ?
		WHERE id = ?`),
		r.CompletedAt, string(r.Status), r.FileURL, r.FilePath, r.FileSize,
		nullableInt(r.RowCount), string(delivered), string(delivery), r.ErrorMessage,
		r.ID)
	return err
}

// ListRuns : historique, plus récent d'abord.
func (s *Store) ListRuns(scheduleID string, limit int) ([]*ScheduledExportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(s.bind(`SELECT
		id, scheduled_export_id, started_at, completed_at, status,
		file_url, file_path, file_size, row_count, delivered_to, delivery_status, error_message
		FROM scheduled_export_runs WHERE scheduled_export_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`), scheduleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ScheduledExportRun
	for rows.Next() {
		var r ScheduledExportRun
		var completedAt sql.NullTime
		var status string
		var fileURL, filePath, delivered, delivery, errMsg sql.NullString
		var fileSize, rowCount sql.NullInt64
		if err := rows.Scan(&r.ID, &r.ScheduledExportID, &r.StartedAt, &completedAt, &status,
			&fileURL, &filePath, &fileSize, &rowCount, &delivered, &delivery, &errMsg); err != nil {
			return nil, err
		}
		r.Status = RunStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			r.CompletedAt = &t
		}
		r.FileURL = fileURL.String
		r.FilePath = filePath.String
		r.FileSize = fileSize.Int64
		if rowCount.Valid {
			n := int(rowCount.Int64)
			r.RowCount = &n
		}
		if delivered.String != "" {
			json.Unmarshal([]byte(delivered.String), &r.DeliveredTo)
		}
		if delivery.String != "" {
			json.Unmarshal([]byte(delivery.String), &r.DeliveryStatus)
		}
		r.ErrorMessage = errMsg.String
		out = append(out, &r)
	}
	return out, rows.Err()
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
