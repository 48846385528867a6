package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"anm/internal/repository"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// Time Helpers
// ============================================================================

// Timestamps are stored as RFC 3339 text so they sort and compare as strings

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
// Returns empty NullString for nil or empty slices
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	// Handle empty id lists - don't store "[]"
	if s, ok := v.([]string); ok && len(s) == 0 {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Model Row Scanner
// ============================================================================

// modelColumns is the SELECT column list for model queries
const modelColumns = `id, title, created_at, updated_at`

type modelRow struct {
	ID        string
	Title     string
	CreatedAt string
	UpdatedAt string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match modelColumns order exactly
func (r *modelRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Title,     // 2
		&r.CreatedAt, // 3
		&r.UpdatedAt, // 4
	}
}

func (r *modelRow) toRecord() (*repository.SavedModel, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &repository.SavedModel{
		ID:        r.ID,
		Title:     r.Title,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// ============================================================================
// Command Row Scanner
// ============================================================================

// commandColumns is the SELECT column list for command queries
const commandColumns = `model_id, seq, name, payload, ids, created_at`

type commandRow struct {
	ModelID     string
	Seq         int
	Name        string
	PayloadJSON sql.NullString
	IDsJSON     sql.NullString
	CreatedAt   string
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match commandColumns order exactly
func (r *commandRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ModelID,     // 1
		&r.Seq,         // 2
		&r.Name,        // 3
		&r.PayloadJSON, // 4
		&r.IDsJSON,     // 5
		&r.CreatedAt,   // 6
	}
}

func (r *commandRow) toRecord() (*repository.CommandRecord, error) {
	rec := &repository.CommandRecord{
		ModelID: r.ModelID,
		Seq:     r.Seq,
		Name:    r.Name,
	}
	if payload := nullToString(r.PayloadJSON); payload != "" {
		rec.Payload = json.RawMessage(payload)
	}
	if err := unmarshalJSONField(r.IDsJSON, &rec.IDs); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = created
	return rec, nil
}

// commandInsertArgs returns the values for an INSERT in commandColumns order
func commandInsertArgs(rec *repository.CommandRecord) ([]interface{}, error) {
	ids, err := marshalToNull(rec.IDs)
	if err != nil {
		return nil, fmt.Errorf("marshal ids: %w", err)
	}
	return []interface{}{
		rec.ModelID,
		rec.Seq,
		rec.Name,
		stringToNull(string(rec.Payload)),
		ids,
		formatTime(rec.CreatedAt),
	}, nil
}
