package services

import (
	"strings"
	"testing"

	"taycan-tracker/config"
	"taycan-tracker/models"
)

func testCriteria() *config.Criteria {
	return &config.Criteria{
		ModelName:   "Porsche Taycan Turbo S",
		TargetYear:  2022,
		NotifyEmail: "watch@example.com",
		PremiumOpts: []string{"PCCB", "Head-Up Display", "Matrix LED"},
	}
}

type captureSender struct {
	to, subject, body string
	calls             int
}

func (c *captureSender) Send(to, subject, body string) error {
	c.to, c.subject, c.body = to, subject, body
	c.calls++
	return nil
}

func TestNotifySkipsWhenNothingNew(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(testCriteria(), sender, newTestLogger())

	if err := n.Notify(&models.ScanResult{}); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("sent %d notifications; want 0", sender.calls)
	}
}

func TestNotifyRendersNewListings(t *testing.T) {
	sender := &captureSender{}
	n := NewNotifier(testCriteria(), sender, newTestLogger())

	result := &models.ScanResult{
		NewListings: []*models.Listing{{
			ID:               "taycan-abc",
			PriceText:        "£42,995",
			Mileage:          "18,204 mi",
			ExteriorColor:    "Jet Black Metallic",
			InteriorColor:    "Black",
			RegistrationDate: "09/2022",
			RegistrationYear: models.IntPtr(2022),
			PreviousOwners:   models.IntPtr(1),
			Dealer:           "Porsche Centre Leeds",
			DetailURL:        detailBaseURL + "taycan-abc",
			Equipment: models.Equipment{
				Transmission: []string{"Porsche Ceramic Composite Brake (PCCB)"},
				Interior:     []string{"Leather seats"},
			},
		}},
	}

	if err := n.Notify(result); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("sent %d notifications; want 1", sender.calls)
	}
	if sender.to != "watch@example.com" {
		t.Errorf("to = %q", sender.to)
	}
	if !strings.Contains(sender.subject, "1 new") {
		t.Errorf("subject = %q; want the new-listing count", sender.subject)
	}

	for _, want := range []string{
		"£42,995",
		"Jet Black Metallic",
		"Porsche Ceramic Composite Brake (PCCB)", // premium keyword hit
		"meets 2022+ target",
		detailBaseURL + "taycan-abc",
	} {
		if !strings.Contains(sender.body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(sender.body, "Leather seats") {
		t.Errorf("body lists non-premium options")
	}
}

func TestPremiumOptionsMatchesAcrossCategories(t *testing.T) {
	n := NewNotifier(testCriteria(), &captureSender{}, newTestLogger())

	l := &models.Listing{Equipment: models.Equipment{
		Lighting:   []string{"Matrix LED main headlights"},
		Assistance: []string{"Adaptive cruise control"},
		Audio:      []string{"BOSE Surround Sound"},
	}}

	got := n.PremiumOptions(l)
	if len(got) != 1 || got[0] != "Matrix LED main headlights" {
		t.Errorf("PremiumOptions = %v; want the Matrix LED item only", got)
	}
}
