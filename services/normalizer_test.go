package services

import (
	"testing"

	"taycan-tracker/models"
)

func TestApplyDetailOverwritesPresentFields(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	card := &models.Listing{
		ID:        "taycan-abc",
		PriceText: "£42,995",
		Price:     models.IntPtr(42995),
		Dealer:    "Porsche Centre Leeds",
	}
	detail := &models.Listing{
		VIN:           "WP0ZZZY1ZMSA12345",
		DealerAddress: "123 Example Road, Leeds",
		Equipment:     models.Equipment{Wheels: []string{"21-inch wheels"}},
	}

	merged := n.ApplyDetail(card, detail)

	if merged.ID != "taycan-abc" {
		t.Errorf("ID = %q; detail merge must keep the card id", merged.ID)
	}
	if merged.VIN != "WP0ZZZY1ZMSA12345" {
		t.Errorf("VIN = %q; want the detail value", merged.VIN)
	}
	if merged.PriceText != "£42,995" || merged.Price == nil || *merged.Price != 42995 {
		t.Errorf("price fields lost in merge: %q %v", merged.PriceText, merged.Price)
	}
	if merged.Dealer != "Porsche Centre Leeds" {
		t.Errorf("Dealer = %q; absent detail field must keep card value", merged.Dealer)
	}
	if len(merged.Equipment.Wheels) != 1 {
		t.Errorf("Wheels = %v; want detail equipment", merged.Equipment.Wheels)
	}
}

func TestApplyDetailNilFallsBackToCard(t *testing.T) {
	n := NewNormalizer(newTestLogger())

	card := &models.Listing{ID: "taycan-abc", PriceText: "£42,995"}
	merged := n.ApplyDetail(card, nil)

	if merged != card {
		t.Errorf("nil detail should return the card record unchanged")
	}
}
