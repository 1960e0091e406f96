package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices and totals are JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}
