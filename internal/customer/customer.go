package customer

import "github.com/shopspring/decimal"

// Customer is a read-only record loaded once per scheduling pass.
type Customer struct {
	ID            int             `json:"id"`
	Age           int             `json:"age"`
	Gender        string          `json:"gender"`
	City          string          `json:"city"`
	Deposit       decimal.Decimal `json:"deposit"`
	IsNewCustomer bool            `json:"is_new_customer"`
}
