package packaging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Operation state names stamped into the trace context as each lifecycle
// operation advances. Fatal errors carry the name verbatim.
const (
	stateParsingRequest        = "parsing request"
	stateCreatingRecord        = "creating record"
	stateCreatingItems         = "creating items"
	stateUpdatingStock         = "updating stock"
	stateFetchingOriginal      = "fetching original record"
	stateFetchingRecord        = "fetching record"
	stateUpdatingWaybill       = "updating waybill"
	stateFetchingExistingItems = "fetching existing items"
	stateDeletingExistingItems = "deleting existing items"
	stateCreatingNewItems      = "creating new items"
	stateFetchingItems         = "fetching items"
	stateRestoringStock        = "restoring stock"
	stateDeletingItems         = "deleting items"
	stateDeletingRecord        = "deleting record"
	stateWritingAuditLog       = "writing audit log"
	stateDone                  = "done"
)

// maxTraceBarcodes bounds how many scanned barcodes a trace keeps. Enough to
// recognize the shipment in an error message without flooding it.
const maxTraceBarcodes = 5

// TraceContext records what an operation was doing when it broke. One instance
// is built per operation invocation and threaded through every step; it is
// never shared across operations.
type TraceContext struct {
	Operation string
	RecordID  string
	Waybill   string
	Date      string
	UserID    string
	Barcodes  []string
	ItemCount int
}

func newTrace(userID string) *TraceContext {
	return &TraceContext{Operation: stateParsingRequest, UserID: userID}
}

// Step stamps the state the operation is entering.
func (t *TraceContext) Step(operation string) {
	t.Operation = operation
}

// SetBarcodes keeps the first few scanned barcodes plus the full item count.
func (t *TraceContext) SetBarcodes(barcodes []string) {
	t.ItemCount = len(barcodes)
	if len(barcodes) > maxTraceBarcodes {
		barcodes = barcodes[:maxTraceBarcodes]
	}
	t.Barcodes = append([]string(nil), barcodes...)
}

// Describe renders the trace for embedding into a fatal error message.
func (t *TraceContext) Describe() string {
	parts := []string{fmt.Sprintf("operation=%s", t.Operation)}
	if t.RecordID != "" {
		parts = append(parts, fmt.Sprintf("record_id=%s", t.RecordID))
	}
	if t.Waybill != "" {
		parts = append(parts, fmt.Sprintf("waybill=%s", t.Waybill))
	}
	if t.Date != "" {
		parts = append(parts, fmt.Sprintf("date=%s", t.Date))
	}
	if t.UserID != "" {
		parts = append(parts, fmt.Sprintf("user_id=%s", t.UserID))
	}
	if len(t.Barcodes) > 0 {
		suffix := ""
		if t.ItemCount > len(t.Barcodes) {
			suffix = fmt.Sprintf(" +%d more", t.ItemCount-len(t.Barcodes))
		}
		parts = append(parts, fmt.Sprintf("barcodes=[%s]%s", strings.Join(t.Barcodes, " "), suffix))
	}
	return strings.Join(parts, " ")
}

// Fields renders the trace as structured log fields.
func (t *TraceContext) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("operation", t.Operation),
		zap.String("user_id", t.UserID),
	}
	if t.RecordID != "" {
		fields = append(fields, zap.String("record_id", t.RecordID))
	}
	if t.Waybill != "" {
		fields = append(fields, zap.String("waybill", t.Waybill))
	}
	if t.Date != "" {
		fields = append(fields, zap.String("date", t.Date))
	}
	if t.ItemCount > 0 {
		fields = append(fields, zap.Int("item_count", t.ItemCount))
	}
	return fields
}

// OperationError is a fatal lifecycle failure carrying the trace context that
// was accumulated up to the failing step.
type OperationError struct {
	Trace *TraceContext
	Err   error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Trace.Describe())
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// fatal wraps err with the trace accumulated so far. Validation errors pass
// through it too so handlers can always recover the context string.
func fatal(trace *TraceContext, err error) error {
	return &OperationError{Trace: trace, Err: err}
}
