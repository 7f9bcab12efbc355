package models

import (
	"encoding/json"
	"time"

	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// Audit action and status values. Actions name the lifecycle operation that
// produced the entry; exactly one entry is written per operation attempt.
const (
	AuditActionPackagingCreate = "packaging_record_create"
	AuditActionPackagingUpdate = "packaging_record_update"
	AuditActionPackagingDelete = "packaging_record_delete"

	AuditResourcePackaging = "packaging_record"

	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

// AuditLogEntry is one recorded operation outcome. Details carries
// operation-specific context (waybill, counts, stock mutations) and is stored
// as a JSON string so every backend can hold it in a plain text column.
type AuditLogEntry struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	ActionType   string         `json:"action_type"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Row flattens the entry for storage. Marshal failures on Details degrade to
// an empty details column rather than losing the entry.
func (e AuditLogEntry) Row() rowstore.Row {
	details := ""
	if len(e.Details) > 0 {
		if raw, err := json.Marshal(e.Details); err == nil {
			details = string(raw)
		}
	}
	return rowstore.Row{
		"id":            e.ID,
		"user_id":       e.UserID,
		"action_type":   e.ActionType,
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"details":       details,
		"status":        e.Status,
		"error_message": e.ErrorMessage,
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// AuditLogEntryFromRow rebuilds an entry from its stored form. Unparseable
// details or timestamps leave the zero value in place.
func AuditLogEntryFromRow(row rowstore.Row) AuditLogEntry {
	entry := AuditLogEntry{
		ID:           rowstore.String(row, "id"),
		UserID:       rowstore.String(row, "user_id"),
		ActionType:   rowstore.String(row, "action_type"),
		ResourceType: rowstore.String(row, "resource_type"),
		ResourceID:   rowstore.String(row, "resource_id"),
		Status:       rowstore.String(row, "status"),
		ErrorMessage: rowstore.String(row, "error_message"),
		Timestamp:    rowstore.Time(row, "timestamp"),
	}
	if raw := rowstore.String(row, "details"); raw != "" {
		var details map[string]any
		if err := json.Unmarshal([]byte(raw), &details); err == nil {
			entry.Details = details
		}
	}
	return entry
}
