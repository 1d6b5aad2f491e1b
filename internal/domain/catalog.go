package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CleaningPackage is a bookable service tier.
type CleaningPackage struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Active      bool            `json:"active"`
	Extras      []ExtraOption   `json:"extras,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ExtraOption is an add-on a customer may attach to an order.
// PackageID zero offers it with every package.
type ExtraOption struct {
	ID        int64           `json:"id"`
	PackageID int64           `json:"package_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Active    bool            `json:"active"`
}
