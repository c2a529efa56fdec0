package services

import (
	"taycan-tracker/models"
	"taycan-tracker/utils"
)

// Normalizer folds second-pass detail-page data into the card-level record.
// Detail extraction runs per listing and may fail or be skipped independently,
// so the card record must always stand on its own.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// ApplyDetail merges a detail-page partial into a card-level listing.
// Non-empty detail fields overwrite, absent detail fields keep the card
// value, and a nil detail (fetch failed or skipped) returns the card record
// unchanged. Detail results may arrive in any order across listings; each
// merge touches only its own record.
func (n *Normalizer) ApplyDetail(card, detail *models.Listing) *models.Listing {
	if detail == nil {
		return card
	}
	merged := models.Merge(card, detail)
	if merged.ID != card.ID {
		// A detail partial never carries its own id; keep the card's.
		merged.ID = card.ID
	}
	n.logger.Debug("[normalize] %s: %d highlights, %d exterior options",
		merged.ID, len(merged.Equipment.Highlights), len(merged.Equipment.Exterior))
	return merged
}
