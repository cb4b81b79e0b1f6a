package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a read-only catalog entry. Product CRUD lives outside this
// repository; the core only ever reads a Product to satisfy the
// submitter's "missing product" check.
type Product struct {
	SKUID     string
	Name      string
	Category  string
	ImageURL  string
	BasePrice decimal.Decimal
	SalePrice decimal.Decimal
	EventID   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
