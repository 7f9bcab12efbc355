package models

import (
	"time"

	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

// DateLayout is the calendar-date format used by packaging records. Records
// carry a date, never a time of day.
const DateLayout = "2006-01-02"

// PackagingRecord is one shipment event: a waybill packed on a calendar date.
// (PackagingDate, WaybillNumber) is unique across the table.
type PackagingRecord struct {
	ID            string `json:"id"`
	PackagingDate string `json:"packaging_date"`
	WaybillNumber string `json:"waybill_number"`
}

// Row maps the record into its stored form.
func (r PackagingRecord) Row() rowstore.Row {
	return rowstore.Row{
		"packaging_date": r.PackagingDate,
		"waybill_number": r.WaybillNumber,
	}
}

// PackagingRecordFromRow maps a stored row into its model.
func PackagingRecordFromRow(row rowstore.Row) PackagingRecord {
	return PackagingRecord{
		ID:            row.ID(),
		PackagingDate: rowstore.String(row, "packaging_date"),
		WaybillNumber: rowstore.String(row, "waybill_number"),
	}
}

// PackagingItem is one scanned barcode belonging to a packaging record. Items
// have no lifecycle of their own: they are replaced wholesale when their
// record's item list changes and die with the record.
type PackagingItem struct {
	ID                string    `json:"id"`
	PackagingRecordID string    `json:"packaging_record_id"`
	ProductBarcode    string    `json:"product_barcode"`
	ScannedAt         time.Time `json:"scanned_at"`
}

// Row maps the item into its stored form.
func (i PackagingItem) Row() rowstore.Row {
	return rowstore.Row{
		"packaging_record_id": i.PackagingRecordID,
		"product_barcode":     i.ProductBarcode,
		"scanned_at":          i.ScannedAt.UTC().Format(time.RFC3339Nano),
	}
}

// PackagingItemFromRow maps a stored row into its model.
func PackagingItemFromRow(row rowstore.Row) PackagingItem {
	return PackagingItem{
		ID:                row.ID(),
		PackagingRecordID: rowstore.String(row, "packaging_record_id"),
		ProductBarcode:    rowstore.String(row, "product_barcode"),
		ScannedAt:         rowstore.Time(row, "scanned_at"),
	}
}
