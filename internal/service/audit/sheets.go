package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/packtrack/internal/config"
	"github.com/mamadbah2/packtrack/internal/domain/models"
)

// sheetRange is where mirrored entries land. One row per entry, columns
// matching the flattened entry fields.
const sheetRange = "AuditLog!A:H"

// SheetsSink mirrors audit entries into a Google Sheet so non-technical staff
// can review activity without store access.
type SheetsSink struct {
	service       *sheetsapi.Service
	spreadsheetID string
}

// NewSheetsSink builds the mirror from service-account credentials.
func NewSheetsSink(ctx context.Context, cfg config.Sheets) (*SheetsSink, error) {
	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return &SheetsSink{service: service, spreadsheetID: cfg.SpreadsheetID}, nil
}

func (s *SheetsSink) Name() string { return "sheets" }

// Append adds one row for the entry.
func (s *SheetsSink) Append(ctx context.Context, entry models.AuditLogEntry) error {
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{entryValues(entry)}}

	call := s.service.Spreadsheets.Values.Append(s.spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}
	return nil
}

func entryValues(entry models.AuditLogEntry) []interface{} {
	details := ""
	if len(entry.Details) > 0 {
		if raw, err := json.Marshal(entry.Details); err == nil {
			details = string(raw)
		}
	}
	return []interface{}{
		entry.Timestamp.UTC().Format(time.RFC3339),
		entry.UserID,
		entry.ActionType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Status,
		entry.ErrorMessage,
		details,
	}
}
