package services

import (
	"strings"

	"taycan-tracker/models"
)

// Fixed warranty terms every approved listing on the site carries; the page
// renders them as graphics, not text, so they cannot be scraped.
const (
	approvedWarranty = "24 months Porsche Approved"
	batteryWarranty  = "8 years or up to 100,000 mi"
)

// includedOptionsMarker separates the curated highlights from the
// per-category option lists; category labels are only trusted after it, since
// the same words appear in page navigation too.
const (
	highlightsMarker      = "Equipment Highlights"
	includedOptionsMarker = "Included Options"
)

// equipmentCategories maps a section label on the detail page to the
// equipment list it fills. Adding a category to the site means adding a row
// here, nothing else.
var equipmentCategories = []struct {
	label  string
	assign func(*models.Equipment, []string)
}{
	{"Exterior", func(e *models.Equipment, v []string) { e.Exterior = v }},
	{"Transmission / Chassis", func(e *models.Equipment, v []string) { e.Transmission = v }},
	{"Wheels", func(e *models.Equipment, v []string) { e.Wheels = v }},
	{"Interior", func(e *models.Equipment, v []string) { e.Interior = v }},
	{"Audio / Comm.", func(e *models.Equipment, v []string) { e.Audio = v }},
	{"E-Mobility", func(e *models.Equipment, v []string) { e.EMobility = v }},
	{"Lighting and vision", func(e *models.Equipment, v []string) { e.Lighting = v }},
	{"Comfort and assistance systems", func(e *models.Equipment, v []string) { e.Assistance = v }},
}

// equipmentStopWords end any category's item run: the page has moved on to a
// different section.
var equipmentStopWords = []string{
	"Standard Equipment", "Warranty", "Condition and History", "Technical Data",
}

// ParseDetailPage reads a detail page's visible text as a flat list of
// trimmed lines and locates each field by its label line. Labels that are
// missing leave their fields absent; a page with no equipment sections yields
// empty lists. The function never fails.
func ParseDetailPage(text string) *models.Listing {
	lines := nonEmptyLines(text)
	d := &models.Listing{
		Warranty:        approvedWarranty,
		BatteryWarranty: batteryWarranty,
	}

	d.VIN = lineAfter(lines, "VIN:")
	d.StockNumber = lineAfter(lines, "Stock Number:")
	d.InteriorColorFull = lineAfter(lines, "Interior colour")
	d.ServiceHistory = lineAfter(lines, "Full Service History")
	d.LatestMaintenance = lineAfter(lines, "Latest Maintenance")

	if idx := indexOfPrefix(lines, "Porsche Centre"); idx >= 0 {
		var parts []string
		for i := idx + 1; i < len(lines) && i < idx+4; i++ {
			if lines[i] == "Go to website" || strings.HasPrefix(lines[i], "Stock") {
				break
			}
			parts = append(parts, lines[i])
		}
		d.DealerAddress = strings.Join(parts, ", ")
	}

	if idx := indexOf(lines, "Description", 0); idx >= 0 {
		var parts []string
		for i := idx + 1; i < len(lines); i++ {
			if lines[i] == "E-Performance" || lines[i] == "Vehicle Equipment" {
				break
			}
			parts = append(parts, lines[i])
		}
		d.Description = strings.TrimSpace(strings.Join(parts, "\n"))
	}

	d.Equipment = parseEquipment(lines)
	return d
}

// parseEquipment extracts the highlights list and every category list. The
// scan is order-sensitive: categories are matched only after the "Included
// Options" marker so reused label text outside the section is ignored.
func parseEquipment(lines []string) models.Equipment {
	var eq models.Equipment

	start := indexOf(lines, highlightsMarker, 0)
	if start < 0 {
		return eq
	}

	optIdx := indexOf(lines, includedOptionsMarker, start+1)
	if optIdx >= 0 {
		eq.Highlights = append([]string(nil), lines[start+1:optIdx]...)
	}

	after := optIdx
	if after < 0 {
		after = start
	}

	for _, cat := range equipmentCategories {
		catIdx := indexOf(lines, cat.label, after+1)
		if catIdx < 0 {
			continue
		}

		var items []string
		for i := catIdx + 1; i < len(lines); i++ {
			line := lines[i]
			if isCategoryLabel(line) || isStopWord(line) {
				break
			}
			if len(line) < 4 || strings.HasPrefix(line, "More about") {
				continue
			}
			items = append(items, line)
		}
		cat.assign(&eq, items)
	}

	return eq
}

func isCategoryLabel(line string) bool {
	for _, cat := range equipmentCategories {
		if line == cat.label {
			return true
		}
	}
	return false
}

func isStopWord(line string) bool {
	for _, w := range equipmentStopWords {
		if line == w {
			return true
		}
	}
	return false
}

// lineAfter returns the line immediately following an exact label line, or
// "" when the label is absent or last.
func lineAfter(lines []string, label string) string {
	idx := indexOf(lines, label, 0)
	if idx < 0 || idx+1 >= len(lines) {
		return ""
	}
	return lines[idx+1]
}

// indexOf finds the first exact occurrence of label at or after from.
func indexOf(lines []string, label string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(lines); i++ {
		if lines[i] == label {
			return i
		}
	}
	return -1
}

func indexOfPrefix(lines []string, prefix string) int {
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return i
		}
	}
	return -1
}
