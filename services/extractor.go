package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"taycan-tracker/models"
	"taycan-tracker/utils"
)

const detailBaseURL = "https://finder.porsche.com/gb/en-GB/details/"

var (
	// priceRegexp captures the sterling amount that proves a card is a real offer
	priceRegexp = regexp.MustCompile(`£([\d,]+)`)
	// mileageLineRegexp matches a whole "18,204 mi" line, never a substring
	mileageLineRegexp = regexp.MustCompile(`^([\d,]+)\s*mi$`)
	// regDateRegexp captures an MM/YYYY registration date token
	regDateRegexp = regexp.MustCompile(`(\d{2}/\d{4})`)
	// ownersLineRegexp matches "1 previous owner" / "2 Previous Owners" lines
	ownersLineRegexp = regexp.MustCompile(`(?i)^(\d+)\s*previous\s*owner`)
	// powerRegexp captures the combined "460 kW / 625 hp" figure
	powerRegexp = regexp.MustCompile(`(\d+\s*kW\s*/\s*\d+\s*hp)`)
	// rangeRegexp captures the WLTP range, tolerant of label punctuation
	rangeRegexp = regexp.MustCompile(`(?i)Range[^:]*:\s*([\d,]+\s*mi)`)
	// consumptionRegexp captures the kWh/100 km consumption figure
	consumptionRegexp = regexp.MustCompile(`(?i)consumption[^:]*:\s*([\d.]+\s*kWh/100\s*km)`)
	// dealerRegexp captures the selling Porsche Centre name
	dealerRegexp = regexp.MustCompile(`(?i)Porsche Centre\s+([\w\s]+?)(?:\n|Electrical|$)`)
)

// exteriorColors is the known paint vocabulary, most specific names first so
// "Jet Black Metallic" wins over plain "Black".
var exteriorColors = []string{
	"Jet Black Metallic", "Volcano Grey Metallic", "Carrara White Metallic",
	"Gentian Blue Metallic", "Cherry Metallic", "Frozen Blue Metallic",
	"Mahogany Metallic", "Dolomite Silver Metallic", "Mamba Green Metallic",
	"Neptune Blue Metallic", "Night Blue Metallic", "Taycan Blue Metallic",
	"Ice Grey Metallic", "Chalk", "White", "Black",
}

// interiorColors shares vocabulary with exterior paint, so interior matches
// are only accepted after the exterior color's position in the text.
var interiorColors = []string{
	"Black", "Beige", "Red", "Bordeaux Red", "Chalk",
	"Truffle Brown", "Atacama Beige", "Slate Grey", "Graphite Blue", "Basalt Black",
}

// Extractor turns raw search-result cards into partial listing records. It is
// pure text/markup parsing: any field it cannot confidently locate is simply
// left absent, never an error.
type Extractor struct {
	logger    *utils.Logger
	modelName string
}

// NewExtractor creates an Extractor labelling records with the given model name.
func NewExtractor(logger *utils.Logger, modelName string) *Extractor {
	return &Extractor{logger: logger, modelName: modelName}
}

// ExtractCards parses every card blob into a listing. Cards without a price
// or a detail-link slug are dropped, and duplicate slugs within one scan
// collapse to the first occurrence.
func (e *Extractor) ExtractCards(cards []models.RawCard) []*models.Listing {
	seen := utils.NewSlugSet()
	listings := make([]*models.Listing, 0, len(cards))

	for _, card := range cards {
		l := e.extractCard(card)
		if l == nil {
			continue
		}
		if !seen.Add(l.ID) {
			e.logger.Debug("[extract] Duplicate card for %s skipped", l.ID)
			continue
		}
		listings = append(listings, l)
	}

	e.logger.Info("[extract] Parsed %d listings from %d cards", len(listings), len(cards))
	return listings
}

// extractCard parses one card. A missing price pattern means the blob is not
// a listing card at all, so no record is produced.
func (e *Extractor) extractCard(card models.RawCard) *models.Listing {
	priceMatch := priceRegexp.FindStringSubmatch(card.Text)
	if priceMatch == nil {
		return nil
	}

	slug, imageURL := parseCardMarkup(card.HTML)
	if slug == "" {
		return nil
	}

	l := &models.Listing{
		ID:        slug,
		Title:     e.modelName,
		FuelType:  "Electric",
		DetailURL: detailBaseURL + slug,
		ImageURL:  imageURL,
	}

	l.PriceText = "£" + priceMatch[1]
	l.Price = parseGroupedInt(priceMatch[1])

	lines := nonEmptyLines(card.Text)
	for _, line := range lines {
		if m := mileageLineRegexp.FindStringSubmatch(line); m != nil {
			l.Mileage = line
			l.MileageMiles = parseGroupedInt(m[1])
			break
		}
	}
	for _, line := range lines {
		if m := ownersLineRegexp.FindStringSubmatch(line); m != nil {
			l.PreviousOwners = parseGroupedInt(m[1])
			break
		}
	}

	if m := regDateRegexp.FindStringSubmatch(card.Text); m != nil {
		l.RegistrationDate = m[1]
		l.RegistrationYear = parseGroupedInt(m[1][strings.Index(m[1], "/")+1:])
	}
	if m := powerRegexp.FindStringSubmatch(card.Text); m != nil {
		l.Power = m[1]
	}
	if m := rangeRegexp.FindStringSubmatch(card.Text); m != nil {
		l.RangeWLTP = m[1]
	}
	if m := consumptionRegexp.FindStringSubmatch(card.Text); m != nil {
		l.Consumption = m[1]
	}
	if m := dealerRegexp.FindStringSubmatch(card.Text); m != nil {
		l.Dealer = "Porsche Centre " + strings.TrimSpace(m[1])
	}

	l.ExteriorColor, l.InteriorColor = resolveColors(card.Text, lines)

	switch {
	case strings.Contains(card.Text, "Pre-Owned"):
		l.Condition = "Porsche Approved Pre-Owned"
	case strings.Contains(card.Text, "New car"):
		l.Condition = "New"
	default:
		l.Condition = "Used"
	}
	if strings.Contains(card.Text, "All-wheel") {
		l.Drivetrain = "All-wheel-drive"
	}

	return l
}

// resolveColors picks the exterior paint from the known vocabulary, then
// accepts an interior color only if its first line occurrence sits after the
// exterior match in the text. Interior and exterior share color names, so
// position is the only reliable disambiguator.
func resolveColors(text string, lines []string) (exterior, interior string) {
	for _, c := range exteriorColors {
		if strings.Contains(text, c) {
			exterior = c
			break
		}
	}
	if exterior == "" {
		return "", ""
	}

	extPos := strings.Index(text, exterior)
	for _, c := range interiorColors {
		for _, line := range lines {
			if (line == c || strings.HasPrefix(line, c)) && strings.Index(text, line) > extPos {
				return exterior, c
			}
		}
	}
	return exterior, ""
}

// parseCardMarkup pulls the detail-link slug and the best image URL out of
// the card's HTML. Unparsable markup yields empty values, never an error.
func parseCardMarkup(html string) (slug, imageURL string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	doc.Find(`a[href*="/details/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		if s := slugFromHref(href); s != "" {
			slug = s
			return false
		}
		return true
	})

	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		if src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" {
			if srcset, ok := sel.Attr("srcset"); ok {
				src = firstSrcsetURL(srcset)
			}
		}
		if usableImage(src) {
			imageURL = src
			return false
		}
		return true
	})
	if imageURL == "" {
		doc.Find("source[srcset]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			srcset, _ := sel.Attr("srcset")
			if len(srcset) > 50 {
				if src := firstSrcsetURL(srcset); usableImage(src) {
					imageURL = src
					return false
				}
			}
			return true
		})
	}

	return slug, imageURL
}

// slugFromHref takes the path segment after "/details/" with any query
// string stripped.
func slugFromHref(href string) string {
	_, after, found := strings.Cut(href, "/details/")
	if !found || after == "" {
		return ""
	}
	slug, _, _ := strings.Cut(after, "?")
	return strings.Trim(slug, "/")
}

func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	url, _, _ := strings.Cut(strings.TrimSpace(first), " ")
	return url
}

// usableImage rejects short URLs and logo/icon/vector assets.
func usableImage(src string) bool {
	if len(src) <= 50 {
		return false
	}
	for _, bad := range []string{"logo", "icon", "svg"} {
		if strings.Contains(src, bad) {
			return false
		}
	}
	return true
}

// parseGroupedInt parses a digit string that may contain thousands commas.
// Unparsable input resolves to absent.
func parseGroupedInt(s string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// nonEmptyLines splits a blob into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
