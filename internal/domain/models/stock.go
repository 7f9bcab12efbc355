package models

// StockDelta is the in-memory unit of work handed to the stock mutator: a net
// positive quantity per product, with the direction supplied by the operation.
// Deltas are built fresh per operation and never persisted.
type StockDelta struct {
	// Product is the snapshot the resolver fetched, when it has one. The
	// mutator re-reads the product before writing; the snapshot only names
	// the product in error messages if that read misses.
	Product  *Product
	Quantity int
}

// StockUpdate is a precomputed deduction pair accepted by the create
// operation. The caller outside the engine has already expanded bundles.
type StockUpdate struct {
	ProductID    string `json:"product_id"`
	DeductAmount int    `json:"deduct_amount"`
}

// StockMutation reports one applied product write with its before and after
// quantities, for audit details and logs.
type StockMutation struct {
	ProductID string `json:"product_id"`
	Barcode   string `json:"barcode"`
	Name      string `json:"name"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
}

// StockOutcome summarizes one stock mutation pass. Individual product failures
// land in Errors; they never fail the enclosing operation.
type StockOutcome struct {
	Updated   int             `json:"updated"`
	Errors    []string        `json:"errors,omitempty"`
	Mutations []StockMutation `json:"mutations,omitempty"`
}
