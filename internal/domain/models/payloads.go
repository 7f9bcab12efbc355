package models

import (
	"errors"
	"fmt"
	"time"
)

// NewPackagingItem is one scanned barcode in a create or update payload.
// ScannedAt is optional; the service stamps the current time when absent.
type NewPackagingItem struct {
	ProductBarcode string     `json:"product_barcode"`
	ScannedAt      *time.Time `json:"scanned_at,omitempty"`
}

// CreatePackagingRequest is the payload for recording a new packaging event.
// StockUpdates carries precomputed deductions; when empty the operation leaves
// stock untouched.
type CreatePackagingRequest struct {
	PackagingDate string             `json:"packaging_date"`
	WaybillNumber string             `json:"waybill_number"`
	Items         []NewPackagingItem `json:"items"`
	StockUpdates  []StockUpdate      `json:"stock_updates,omitempty"`
	UserID        string             `json:"user_id"`
}

// Validate checks the required request fields before any side effect occurs.
func (r CreatePackagingRequest) Validate() error {
	if r.PackagingDate == "" {
		return errors.New("packaging_date is required")
	}
	if _, err := time.Parse(DateLayout, r.PackagingDate); err != nil {
		return fmt.Errorf("packaging_date must be formatted as %s", DateLayout)
	}
	if r.WaybillNumber == "" {
		return errors.New("waybill_number is required")
	}
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if len(r.Items) == 0 {
		return errors.New("items must not be empty")
	}
	if err := validateItems(r.Items); err != nil {
		return err
	}
	for i, u := range r.StockUpdates {
		if u.ProductID == "" {
			return fmt.Errorf("stock_updates[%d].product_id is required", i)
		}
		if u.DeductAmount <= 0 {
			return fmt.Errorf("stock_updates[%d].deduct_amount must be positive", i)
		}
	}
	return nil
}

// UpdatePackagingRequest mutates an existing record. Items carries replacement
// semantics: nil leaves the item list untouched, an empty slice is rejected,
// a populated slice replaces every existing item.
type UpdatePackagingRequest struct {
	WaybillNumber *string             `json:"waybill_number,omitempty"`
	Items         *[]NewPackagingItem `json:"items,omitempty"`
	UserID        string              `json:"user_id"`
}

// Validate enforces that at least one mutation is requested.
func (r UpdatePackagingRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.WaybillNumber == nil && r.Items == nil {
		return errors.New("at least one of waybill_number or items is required")
	}
	if r.WaybillNumber != nil && *r.WaybillNumber == "" {
		return errors.New("waybill_number must not be empty")
	}
	if r.Items != nil {
		if len(*r.Items) == 0 {
			return errors.New("items must not be empty when supplied")
		}
		if err := validateItems(*r.Items); err != nil {
			return err
		}
	}
	return nil
}

// ReplacesItems reports whether the request carries a replacement item list.
func (r UpdatePackagingRequest) ReplacesItems() bool {
	return r.Items != nil
}

// DeletePackagingRequest removes a record. RestoreStock defaults to true.
type DeletePackagingRequest struct {
	UserID       string `json:"user_id"`
	RestoreStock *bool  `json:"restore_stock,omitempty"`
}

// Validate checks the required request fields.
func (r DeletePackagingRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// ShouldRestoreStock resolves the restore flag with its default.
func (r DeletePackagingRequest) ShouldRestoreStock() bool {
	return r.RestoreStock == nil || *r.RestoreStock
}

func validateItems(items []NewPackagingItem) error {
	for i, it := range items {
		if it.ProductBarcode == "" {
			return fmt.Errorf("items[%d].product_barcode is required", i)
		}
	}
	return nil
}

// CreatePackagingResult is the happy and partial-failure response for Create.
// ItemErrors collects per-item write failures without flipping Success.
type CreatePackagingResult struct {
	Success    bool            `json:"success"`
	Record     PackagingRecord `json:"record"`
	Items      []PackagingItem `json:"items"`
	ItemErrors []string        `json:"item_errors,omitempty"`
	Stock      *StockOutcome   `json:"stock,omitempty"`
}

// UpdatePackagingResult is the response for Update. Errors collects soft
// failures such as a waybill write that did not land.
type UpdatePackagingResult struct {
	Success       bool            `json:"success"`
	Record        PackagingRecord `json:"record"`
	ItemsReplaced bool            `json:"items_replaced"`
	Items         []PackagingItem `json:"items,omitempty"`
	ItemErrors    []string        `json:"item_errors,omitempty"`
	Errors        []string        `json:"errors,omitempty"`
}

// DeletePackagingResult is the response for Delete. RecordFound is false on
// the idempotent second delete, which still reports Success.
type DeletePackagingResult struct {
	Success      bool          `json:"success"`
	RecordID     string        `json:"record_id"`
	RecordFound  bool          `json:"record_found"`
	ItemsDeleted int           `json:"items_deleted"`
	ItemErrors   []string      `json:"item_errors,omitempty"`
	Stock        *StockOutcome `json:"stock,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
}

// ErrorResponse is the fatal-failure wire shape for every endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Context string `json:"context,omitempty"`
}

// RecordListResult pages packaging records, newest first.
type RecordListResult struct {
	Success bool              `json:"success"`
	Records []PackagingRecord `json:"records"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// RecordDetailResult is one record with its items.
type RecordDetailResult struct {
	Success bool            `json:"success"`
	Record  PackagingRecord `json:"record"`
	Items   []PackagingItem `json:"items"`
}

// AuditLogListResult pages audit entries, newest first.
type AuditLogListResult struct {
	Success bool            `json:"success"`
	Entries []AuditLogEntry `json:"entries"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
