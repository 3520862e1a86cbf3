package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"caseflow-export/catalog"
	"caseflow-export/schema"
)

// ListTaggedFields : slots configurés d'une organisation, triés par slot.
func (s *Store) ListTaggedFields(orgID string) ([]schema.TaggedFieldConfig, error) {
	rows, err := s.db.Query(s.bind(`SELECT
		tag_slot, entity_kind, field_path, template_id, column_name, display_label, data_type, format_pattern
		FROM tagged_field_configs WHERE org_id = ? ORDER BY tag_slot`), orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []schema.TaggedFieldConfig
	for rows.Next() {
		var tf schema.TaggedFieldConfig
		var templateID, label, pattern sql.NullString
		if err := rows.Scan(&tf.Slot, &tf.EntityKind, &tf.FieldPath, &templateID,
			&tf.ColumnName, &label, &tf.DataType, &pattern); err != nil {
			return nil, err
		}
		tf.TemplateID = templateID.String
		tf.Label = label.String
		tf.FormatPattern = pattern.String
		out = append(out, tf)
	}
	return out, rows.Err()
}

// SaveTaggedField crée un slot. L'unicité (org, slot) est portée par la
// clé primaire ; replace=false fait échouer un doublon (erreur de config,
// rejetée de manière synchrone), replace=true écrase.
func (s *Store) SaveTaggedField(orgID string, tf schema.TaggedFieldConfig, replace bool) error {
	if err := tf.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if replace {
		res, err := s.db.Exec(s.bind(`UPDATE tagged_field_configs SET
			entity_kind = ?, field_path = ?, template_id = ?, column_name = ?,
			display_label = ?, data_type = ?, format_pattern = ?, updated_at = ?
			WHERE org_id = ? AND tag_slot = ?`),
			tf.EntityKind, tf.FieldPath, tf.TemplateID, tf.ColumnName,
			tf.Label, tf.DataType, tf.FormatPattern, now, orgID, tf.Slot)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}
		// pas encore de ligne, on retombe sur l'insert
	}
	_, err := s.db.Exec(s.bind(`INSERT INTO tagged_field_configs
		(org_id, tag_slot, entity_kind, field_path, template_id, column_name,
		 display_label, data_type, format_pattern, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		orgID, tf.Slot, tf.EntityKind, tf.FieldPath, tf.TemplateID, tf.ColumnName,
		tf.Label, tf.DataType, tf.FormatPattern, now, now)
	if err != nil && isDuplicateErr(err) {
		return fmt.Errorf("tag slot %d already configured", tf.Slot)
	}
	return err
}

func (s *Store) DeleteTaggedField(orgID string, slot int) error {
	_, err := s.db.Exec(s.bind(`DELETE FROM tagged_field_configs WHERE org_id = ? AND tag_slot = ?`),
		orgID, slot)
	return err
}

func isDuplicateErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// GetFieldOverrides lit la map d'overrides de tags de l'organisation
// (clé champ → set de tags, CSV en base).
func (s *Store) GetFieldOverrides(orgID string) (map[string][]catalog.FieldTag, error) {
	rows, err := s.db.Query(s.bind(`SELECT field_key, tags FROM field_tag_overrides WHERE org_id = ?`), orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]catalog.FieldTag{}
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		tags := []catalog.FieldTag{}
		if raw != "" {
			for _, part := range strings.Split(raw, ",") {
				if t, ok := catalog.ParseTag(strings.TrimSpace(part)); ok {
					tags = append(tags, t)
				}
			}
		}
		out[key] = tags
	}
	return out, rows.Err()
}

// SaveFieldOverrides remplace la map persistée par la map fournie (déjà
// mergée par l'appelant via catalog.MergeOverrides).
func (s *Store) SaveFieldOverrides(orgID string, overrides map[string][]catalog.FieldTag) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(s.bind(`DELETE FROM field_tag_overrides WHERE org_id = ?`), orgID); err != nil {
		tx.Rollback()
		return err
	}
	now := time.Now().UTC()
	for key, tags := range overrides {
		parts := make([]string, len(tags))
		for i, t := range tags {
			parts[i] = string(t)
		}
		if _, err := tx.Exec(s.bind(`INSERT INTO field_tag_overrides
			(org_id, field_key, tags, updated_at) VALUES (?, ?, ?, ?)`),
			orgID, key, strings.Join(parts, ","), now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
