package ranking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/check"

	"github.com/loadlane/auction-service/internal/model"
)

var (
	carrierA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	carrierB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	carrierC = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func offer(carrier uuid.UUID, cents int64, createdAt time.Time) model.Offer {
	return model.Offer{
		AuctionNumber: "AUC-1",
		CarrierID:     carrier,
		AmountCents:   cents,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestRank_LowestFirst(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := Rank([]model.Offer{
		offer(carrierA, 5000, t0),
		offer(carrierB, 3500, t0.Add(time.Minute)),
		offer(carrierC, 4200, t0.Add(2*time.Minute)),
	})

	check.Equal(t, 3, r.Count())
	lowest, ok := r.Lowest()
	check.True(t, ok)
	check.Equal(t, carrierB, lowest.CarrierID)
	check.Equal(t, int64(3500), lowest.AmountCents)
	check.Equal(t, int64(1500), r.Spread())
}

func TestRank_TiesBreakByEarliestSubmission(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// Insert the later tied offer first: order in the slice must not matter.
	r := Rank([]model.Offer{
		offer(carrierC, 3000, t0.Add(3*time.Minute)),
		offer(carrierA, 5000, t0),
		offer(carrierB, 3000, t0.Add(2*time.Minute)),
	})

	ranked := r.Offers()
	check.Equal(t, 3, len(ranked))
	check.Equal(t, carrierB, ranked[0].CarrierID) // earlier of the tied 3000s
	check.Equal(t, carrierC, ranked[1].CarrierID)
	check.Equal(t, carrierA, ranked[2].CarrierID)
}

func TestRank_LatestOfferPerCarrierWins(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	stale := offer(carrierA, 3000, t0)
	fresh := offer(carrierA, 4500, t0)
	fresh.UpdatedAt = t0.Add(5 * time.Minute)

	r := Rank([]model.Offer{stale, fresh, offer(carrierB, 4000, t0.Add(time.Minute))})

	check.Equal(t, 2, r.Count())
	lowest, ok := r.Lowest()
	check.True(t, ok)
	// Carrier A's superseded 3000 no longer ranks.
	check.Equal(t, carrierB, lowest.CarrierID)

	standing, ok := r.OfferBy(carrierA)
	check.True(t, ok)
	check.Equal(t, int64(4500), standing.AmountCents)
}

func TestRank_Empty(t *testing.T) {
	r := Rank(nil)

	check.Equal(t, 0, r.Count())
	check.Equal(t, int64(0), r.Spread())
	_, ok := r.Lowest()
	check.False(t, ok)
}
