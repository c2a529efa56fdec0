package models

import "time"

// RawCard holds one unprocessed search-result card straight from the browser:
// the card's visible text plus its outer HTML (needed for link/image lookup).
type RawCard struct {
	Text string
	HTML string
}

// Equipment groups the option lists a detail page exposes, one ordered list
// per category. Highlights is a curated subset shown above the categories.
type Equipment struct {
	Highlights   []string
	Exterior     []string
	Transmission []string
	Wheels       []string
	Interior     []string
	Audio        []string
	EMobility    []string
	Lighting     []string
	Assistance   []string
}

// Listing is one observed vehicle offer. The ID is the slug from the source
// detail-page URL and stays stable for the listing's whole lifecycle.
//
// Optional numeric fields are pointers so "not extracted" stays distinct from
// zero; optional text fields use "" as absent.
type Listing struct {
	ID        string
	Title     string
	Condition string

	Price     *int
	PriceText string

	ExteriorColor     string
	InteriorColor     string
	InteriorColorFull string
	FuelType          string
	Mileage           string
	MileageMiles      *int
	RegistrationDate  string
	RegistrationYear  *int
	PreviousOwners    *int
	Power             string
	Drivetrain        string
	RangeWLTP         string
	Consumption       string
	VIN               string
	StockNumber       string

	Dealer        string
	DealerAddress string

	Description       string
	ServiceHistory    string
	LatestMaintenance string
	Warranty          string
	BatteryWarranty   string

	Equipment Equipment

	ImageURL  string
	DetailURL string

	FirstSeen time.Time
	LastSeen  time.Time
	Removed   bool
}

// Merge combines a freshly observed listing with the previously stored row.
// New data wins only when present: an empty/nil observed field never blanks a
// value a previous scan already captured. Lifecycle fields (FirstSeen,
// LastSeen, Removed) are owned by the reconciler and are not merged here.
func Merge(prev, next *Listing) *Listing {
	if prev == nil {
		return next
	}

	m := *next
	m.ID = coalesceStr(next.ID, prev.ID)
	m.Title = coalesceStr(next.Title, prev.Title)
	m.Condition = coalesceStr(next.Condition, prev.Condition)
	m.Price = coalesceInt(next.Price, prev.Price)
	m.PriceText = coalesceStr(next.PriceText, prev.PriceText)
	m.ExteriorColor = coalesceStr(next.ExteriorColor, prev.ExteriorColor)
	m.InteriorColor = coalesceStr(next.InteriorColor, prev.InteriorColor)
	m.InteriorColorFull = coalesceStr(next.InteriorColorFull, prev.InteriorColorFull)
	m.FuelType = coalesceStr(next.FuelType, prev.FuelType)
	m.Mileage = coalesceStr(next.Mileage, prev.Mileage)
	m.MileageMiles = coalesceInt(next.MileageMiles, prev.MileageMiles)
	m.RegistrationDate = coalesceStr(next.RegistrationDate, prev.RegistrationDate)
	m.RegistrationYear = coalesceInt(next.RegistrationYear, prev.RegistrationYear)
	m.PreviousOwners = coalesceInt(next.PreviousOwners, prev.PreviousOwners)
	m.Power = coalesceStr(next.Power, prev.Power)
	m.Drivetrain = coalesceStr(next.Drivetrain, prev.Drivetrain)
	m.RangeWLTP = coalesceStr(next.RangeWLTP, prev.RangeWLTP)
	m.Consumption = coalesceStr(next.Consumption, prev.Consumption)
	m.VIN = coalesceStr(next.VIN, prev.VIN)
	m.StockNumber = coalesceStr(next.StockNumber, prev.StockNumber)
	m.Dealer = coalesceStr(next.Dealer, prev.Dealer)
	m.DealerAddress = coalesceStr(next.DealerAddress, prev.DealerAddress)
	m.Description = coalesceStr(next.Description, prev.Description)
	m.ServiceHistory = coalesceStr(next.ServiceHistory, prev.ServiceHistory)
	m.LatestMaintenance = coalesceStr(next.LatestMaintenance, prev.LatestMaintenance)
	m.Warranty = coalesceStr(next.Warranty, prev.Warranty)
	m.BatteryWarranty = coalesceStr(next.BatteryWarranty, prev.BatteryWarranty)
	m.ImageURL = coalesceStr(next.ImageURL, prev.ImageURL)
	m.DetailURL = coalesceStr(next.DetailURL, prev.DetailURL)
	m.Equipment = mergeEquipment(prev.Equipment, next.Equipment)
	return &m
}

func mergeEquipment(prev, next Equipment) Equipment {
	return Equipment{
		Highlights:   coalesceList(next.Highlights, prev.Highlights),
		Exterior:     coalesceList(next.Exterior, prev.Exterior),
		Transmission: coalesceList(next.Transmission, prev.Transmission),
		Wheels:       coalesceList(next.Wheels, prev.Wheels),
		Interior:     coalesceList(next.Interior, prev.Interior),
		Audio:        coalesceList(next.Audio, prev.Audio),
		EMobility:    coalesceList(next.EMobility, prev.EMobility),
		Lighting:     coalesceList(next.Lighting, prev.Lighting),
		Assistance:   coalesceList(next.Assistance, prev.Assistance),
	}
}

func coalesceStr(next, prev string) string {
	if next != "" {
		return next
	}
	return prev
}

func coalesceInt(next, prev *int) *int {
	if next != nil {
		return next
	}
	return prev
}

func coalesceList(next, prev []string) []string {
	if len(next) > 0 {
		return next
	}
	return prev
}

// IntPtr is a convenience for building optional numeric fields.
func IntPtr(v int) *int { return &v }
