package services

import (
	"sort"
	"time"

	"taycan-tracker/models"
	"taycan-tracker/utils"
)

// Reconciler classifies one scan's observed listings against the stored
// state. Classification is a pure function of (observed set, prior state);
// all writes happen afterwards, in one store transaction, from the returned
// result.
type Reconciler struct {
	logger *utils.Logger
}

// NewReconciler creates a Reconciler with the given logger.
func NewReconciler(logger *utils.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile computes the scan delta. Each observed listing is new (no prior
// row), changed (stored price differs from the observed price, absence on
// either side included) or unchanged. Stored, not-yet-removed rows absent
// from the observed set are flagged removed. Duplicate ids in the observed
// set are tolerated: the later occurrence wins for field values, and the
// price comparison is always against the pre-scan stored price.
func (r *Reconciler) Reconcile(observed []*models.Listing, prior map[string]models.PriorState, now time.Time) *models.ScanResult {
	deduped := dedupeLaterWins(observed)

	result := &models.ScanResult{
		ScrapedAt:     now,
		ListingsFound: len(deduped),
		Observed:      deduped,
	}

	observedIDs := make(map[string]struct{}, len(deduped))
	for _, l := range deduped {
		observedIDs[l.ID] = struct{}{}

		prev, exists := prior[l.ID]
		switch {
		case !exists:
			result.NewListings = append(result.NewListings, l)
		case !priceEqual(prev.Price, l.Price):
			result.ChangedIDs = append(result.ChangedIDs, l.ID)
		default:
			result.UnchangedIDs = append(result.UnchangedIDs, l.ID)
		}
	}

	for id, prev := range prior {
		if prev.Removed {
			continue
		}
		if _, seen := observedIDs[id]; !seen {
			result.RemovedIDs = append(result.RemovedIDs, id)
		}
	}
	sort.Strings(result.RemovedIDs)

	r.logger.Info("[reconcile] %d found: %d new, %d price changes, %d unchanged, %d removed",
		result.ListingsFound, result.NewCount(), result.ChangedCount(),
		result.UnchangedCount(), result.RemovedCount())
	return result
}

// dedupeLaterWins collapses repeated ids to a single entry holding the last
// occurrence's fields, keeping the first occurrence's position.
func dedupeLaterWins(observed []*models.Listing) []*models.Listing {
	index := make(map[string]int, len(observed))
	out := make([]*models.Listing, 0, len(observed))

	for _, l := range observed {
		if pos, seen := index[l.ID]; seen {
			out[pos] = l
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}

func priceEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
