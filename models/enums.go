package models

import (
	"strings"

	"github.com/craftline/shopfloor_backend/utils"
)

type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "open"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusComplete   OrderStatus = "complete"
	OrderStatusClosed     OrderStatus = "closed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// allowedOrderStatuses is the strict allow-list for PATCH requests. Legacy
// rows may carry other values (e.g. "completed"); those are readable but can
// no longer be assigned.
var allowedOrderStatuses = map[OrderStatus]bool{
	OrderStatusOpen:       true,
	OrderStatusInProgress: true,
	OrderStatusComplete:   true,
	OrderStatusClosed:     true,
	OrderStatusCancelled:  true,
}

// ParseOrderStatus normalizes and validates a caller-supplied status value.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !allowedOrderStatuses[status] {
		return "", utils.KindError(utils.ErrorUnsupportedStatus, "unsupported status")
	}
	return status, nil
}

// IsDone reports whether the status counts toward quote completion.
// "completed" is a legacy spelling still present in old rows.
func (s OrderStatus) IsDone() bool {
	switch strings.ToLower(string(s)) {
	case "complete", "completed", "closed":
		return true
	}
	return false
}

func (s OrderStatus) IsCancelled() bool {
	return strings.ToLower(string(s)) == string(OrderStatusCancelled)
}

type QuoteStatus string

const (
	QuoteStatusDraft                    QuoteStatus = "draft"
	QuoteStatusPendingApproval          QuoteStatus = "pending_approval"
	QuoteStatusWaitingForClientApproval QuoteStatus = "waiting_for_client_approval"
	QuoteStatusRedo                     QuoteStatus = "redo"
	QuoteStatusApproved                 QuoteStatus = "approved"
	QuoteStatusAccepted                 QuoteStatus = "accepted"
	QuoteStatusComplete                 QuoteStatus = "complete"
)

// patchableQuoteStatuses are the only values the generic quote-status PATCH
// accepts; approved/accepted/complete are reached through their own flows.
var patchableQuoteStatuses = map[QuoteStatus]bool{
	QuoteStatusRedo:                     true,
	QuoteStatusWaitingForClientApproval: true,
	QuoteStatusPendingApproval:          true,
}

func ParsePatchableQuoteStatus(s string) (QuoteStatus, error) {
	status := QuoteStatus(strings.TrimSpace(s))
	if !patchableQuoteStatuses[status] {
		return "", utils.KindError(utils.ErrorUnsupportedStatus, "unsupported status")
	}
	return status, nil
}
