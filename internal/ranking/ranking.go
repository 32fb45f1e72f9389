// Package ranking orders the offers of one auction. The ranking is
// recomputed from the offer rows on every read; nothing here caches.
package ranking

import (
	"sort"

	"github.com/google/uuid"

	"github.com/loadlane/auction-service/internal/model"
)

// Ranking is the ascending-by-amount order of an auction's standing offers.
// Lowest is best: this is a reverse auction.
type Ranking struct {
	offers []model.Offer
}

// Rank builds a ranking from the given offers. Only the most recent offer
// per carrier counts; older rows for the same carrier are dropped before
// sorting. Ties on amount break by earliest submission, never by slice
// position.
func Rank(offers []model.Offer) Ranking {
	latest := make(map[uuid.UUID]model.Offer, len(offers))
	for _, o := range offers {
		prev, ok := latest[o.CarrierID]
		if !ok || o.UpdatedAt.After(prev.UpdatedAt) {
			latest[o.CarrierID] = o
		}
	}

	ranked := make([]model.Offer, 0, len(latest))
	for _, o := range latest {
		ranked = append(ranked, o)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].AmountCents != ranked[j].AmountCents {
			return ranked[i].AmountCents < ranked[j].AmountCents
		}
		return ranked[i].CreatedAt.Before(ranked[j].CreatedAt)
	})

	return Ranking{offers: ranked}
}

// Offers returns the ranked order, best first.
func (r Ranking) Offers() []model.Offer {
	return r.offers
}

// Lowest returns the best standing offer, if any.
func (r Ranking) Lowest() (model.Offer, bool) {
	if len(r.offers) == 0 {
		return model.Offer{}, false
	}
	return r.offers[0], true
}

// Count returns the number of carriers with a standing offer.
func (r Ranking) Count() int {
	return len(r.offers)
}

// Spread returns highest minus lowest standing amount, zero when fewer than
// two offers exist.
func (r Ranking) Spread() int64 {
	if len(r.offers) < 2 {
		return 0
	}
	return r.offers[len(r.offers)-1].AmountCents - r.offers[0].AmountCents
}

// OfferBy returns the given carrier's standing offer, if any.
func (r Ranking) OfferBy(carrierID uuid.UUID) (model.Offer, bool) {
	for _, o := range r.offers {
		if o.CarrierID == carrierID {
			return o, true
		}
	}
	return model.Offer{}, false
}
