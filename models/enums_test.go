package models

import (
	"errors"
	"testing"

	"github.com/craftline/shopfloor_backend/utils"
)

func TestParseOrderStatus(t *testing.T) {
	cases := []struct {
		in       string
		expected OrderStatus
	}{
		{"open", OrderStatusOpen},
		{"in_progress", OrderStatusInProgress},
		{"complete", OrderStatusComplete},
		{"closed", OrderStatusClosed},
		{"cancelled", OrderStatusCancelled},
		{"  Complete  ", OrderStatusComplete},
		{"OPEN", OrderStatusOpen},
	}
	for _, tc := range cases {
		got, err := ParseOrderStatus(tc.in)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) error: %v", tc.in, err)
		}
		if got != tc.expected {
			t.Fatalf("ParseOrderStatus(%q) expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestParseOrderStatus_Rejected(t *testing.T) {
	for _, in := range []string{"", "done", "completed", "canceled", "reopened"} {
		_, err := ParseOrderStatus(in)
		if !errors.Is(err, utils.ErrorUnsupportedStatus) {
			t.Fatalf("ParseOrderStatus(%q) expected unsupported status, got %v", in, err)
		}
		if err.Error() != "unsupported status" {
			t.Fatalf("ParseOrderStatus(%q) message expected %q, got %q", in, "unsupported status", err.Error())
		}
	}
}

func TestOrderStatusIsDone(t *testing.T) {
	done := []OrderStatus{"complete", "completed", "closed", "Complete", "CLOSED"}
	for _, s := range done {
		if !s.IsDone() {
			t.Fatalf("%q should count as done", s)
		}
	}
	notDone := []OrderStatus{"open", "in_progress", "cancelled", ""}
	for _, s := range notDone {
		if s.IsDone() {
			t.Fatalf("%q should not count as done", s)
		}
	}
}

func TestParsePatchableQuoteStatus(t *testing.T) {
	for _, in := range []string{"redo", "waiting_for_client_approval", "pending_approval"} {
		got, err := ParsePatchableQuoteStatus(in)
		if err != nil {
			t.Fatalf("ParsePatchableQuoteStatus(%q) error: %v", in, err)
		}
		if string(got) != in {
			t.Fatalf("ParsePatchableQuoteStatus(%q) got %q", in, got)
		}
	}
	// approved/accepted/complete flow through dedicated endpoints only
	for _, in := range []string{"approved", "accepted", "complete", "draft", "won", ""} {
		if _, err := ParsePatchableQuoteStatus(in); !errors.Is(err, utils.ErrorUnsupportedStatus) {
			t.Fatalf("ParsePatchableQuoteStatus(%q) expected unsupported status, got %v", in, err)
		}
	}
}

func TestFormatNumbers(t *testing.T) {
	if got := FormatJobNumber(7); got != "JOB-000007" {
		t.Fatalf("FormatJobNumber(7) got %q", got)
	}
	if got := FormatJobNumber(123456); got != "JOB-123456" {
		t.Fatalf("FormatJobNumber(123456) got %q", got)
	}
	if got := FormatQuoteNumber(42); got != "Q-000042" {
		t.Fatalf("FormatQuoteNumber(42) got %q", got)
	}
}
