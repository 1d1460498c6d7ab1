package models

import (
	"errors"
	"testing"

	"github.com/craftline/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestApplyStockAddition_WeightedAverage(t *testing.T) {
	cases := []struct {
		name          string
		unallocated   string
		cost          *decimal.Decimal
		delta         string
		declaredCost  *decimal.Decimal
		expectedStock string
		expectedCost  string
	}{
		{
			name:        "average of old and new lots",
			unallocated: "10", cost: decPtr("10"),
			delta: "5", declaredCost: decPtr("20"),
			// (10*10 + 5*20) / 15
			expectedStock: "15", expectedCost: "13.3333",
		},
		{
			name:        "first lot sets the cost",
			unallocated: "0", cost: nil,
			delta: "8", declaredCost: decPtr("4.25"),
			expectedStock: "8", expectedCost: "4.25",
		},
		{
			name:        "missing history falls back to declared cost",
			unallocated: "3", cost: nil,
			delta: "3", declaredCost: decPtr("6"),
			expectedStock: "6", expectedCost: "6",
		},
		{
			name:        "same cost keeps the average",
			unallocated: "100", cost: decPtr("2.5"),
			delta: "50", declaredCost: decPtr("2.5"),
			expectedStock: "150", expectedCost: "2.5",
		},
	}

	for _, tc := range cases {
		m := Material{UnallocatedStock: dec(tc.unallocated), CostPrice: tc.cost}
		if err := m.ApplyStockAddition(dec(tc.delta), tc.declaredCost); err != nil {
			t.Fatalf("%s: ApplyStockAddition: %v", tc.name, err)
		}
		if !m.UnallocatedStock.Equal(dec(tc.expectedStock)) {
			t.Fatalf("%s: unallocated expected %s, got %s", tc.name, tc.expectedStock, m.UnallocatedStock)
		}
		if m.CostPrice == nil {
			t.Fatalf("%s: cost_price is nil", tc.name)
		}
		got := m.CostPrice.Round(4)
		if !got.Equal(dec(tc.expectedCost)) {
			t.Fatalf("%s: cost_price expected %s, got %s", tc.name, tc.expectedCost, got)
		}
	}
}

func TestApplyStockAddition_NoDeclaredCostKeepsAverage(t *testing.T) {
	m := Material{UnallocatedStock: dec("10"), CostPrice: decPtr("12.5")}
	if err := m.ApplyStockAddition(dec("4"), nil); err != nil {
		t.Fatalf("ApplyStockAddition: %v", err)
	}
	if !m.UnallocatedStock.Equal(dec("14")) {
		t.Fatalf("unallocated expected 14, got %s", m.UnallocatedStock)
	}
	if m.CostPrice == nil || !m.CostPrice.Equal(dec("12.5")) {
		t.Fatalf("cost_price should stay 12.5, got %v", m.CostPrice)
	}
}

func TestApplyStockAddition_OtherPoolsExcludedFromAverage(t *testing.T) {
	// WIP and used balances carry historical unit costs in the ledgers; they
	// must not dilute the unallocated average.
	m := Material{
		UnallocatedStock: dec("10"),
		WipQty:           dec("100"),
		Used:             dec("100"),
		CostPrice:        decPtr("10"),
	}
	if err := m.ApplyStockAddition(dec("10"), decPtr("20")); err != nil {
		t.Fatalf("ApplyStockAddition: %v", err)
	}
	if !m.CostPrice.Equal(dec("15")) {
		t.Fatalf("cost_price expected 15, got %s", m.CostPrice)
	}
	if !m.WipQty.Equal(dec("100")) || !m.Used.Equal(dec("100")) {
		t.Fatalf("wip/used pools must not move: wip=%s used=%s", m.WipQty, m.Used)
	}
	if !m.StockQty.Equal(dec("220")) {
		t.Fatalf("stock_qty expected 220, got %s", m.StockQty)
	}
}

func TestApplyStockAddition_RejectsBadInput(t *testing.T) {
	m := Material{UnallocatedStock: dec("10"), CostPrice: decPtr("10")}

	if err := m.ApplyStockAddition(dec("0"), nil); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("zero delta: expected invalid input, got %v", err)
	}
	if err := m.ApplyStockAddition(dec("-1"), nil); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("negative delta: expected invalid input, got %v", err)
	}
	if err := m.ApplyStockAddition(dec("1"), decPtr("-0.01")); !errors.Is(err, utils.ErrorInvalidInput) {
		t.Fatalf("negative cost: expected invalid input, got %v", err)
	}
	// rejected calls must not mutate
	if !m.UnallocatedStock.Equal(dec("10")) || !m.CostPrice.Equal(dec("10")) {
		t.Fatalf("material mutated on rejected input: stock=%s cost=%s", m.UnallocatedStock, m.CostPrice)
	}
}

func TestPlanPoolDraw(t *testing.T) {
	cases := []struct {
		name         string
		requested    string
		used         string
		unallocated  string
		takeFromUsed string
		remainder    string
	}{
		{"used covers everything", "5", "8", "0", "5", "0"},
		{"split across pools", "10", "4", "6", "4", "6"},
		{"unallocated only", "3", "0", "10", "0", "3"},
		{"exact fit", "10", "4", "6", "4", "6"},
	}
	for _, tc := range cases {
		takeFromUsed, remainder, err := planPoolDraw(dec(tc.requested), dec(tc.used), dec(tc.unallocated))
		if err != nil {
			t.Fatalf("%s: planPoolDraw: %v", tc.name, err)
		}
		if !takeFromUsed.Equal(dec(tc.takeFromUsed)) {
			t.Fatalf("%s: takeFromUsed expected %s, got %s", tc.name, tc.takeFromUsed, takeFromUsed)
		}
		if !remainder.Equal(dec(tc.remainder)) {
			t.Fatalf("%s: remainder expected %s, got %s", tc.name, tc.remainder, remainder)
		}
	}
}

func TestPlanPoolDraw_InsufficientStock(t *testing.T) {
	_, _, err := planPoolDraw(dec("10"), dec("4"), dec("5"))
	if !errors.Is(err, utils.ErrorInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	expected := "Insufficient stock: available used=4, unallocated=5, requested=10"
	if err.Error() != expected {
		t.Fatalf("error message expected %q, got %q", expected, err.Error())
	}
}
