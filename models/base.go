package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// The REST contract predates this service and emits quantities and costs
	// as bare JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// FormatJobNumber renders the human job number assigned to an order.
func FormatJobNumber(orderId int) string {
	return fmt.Sprintf("JOB-%06d", orderId)
}

// FormatQuoteNumber renders the human quote number assigned to a quote.
func FormatQuoteNumber(quoteId int) string {
	return fmt.Sprintf("Q-%06d", quoteId)
}
