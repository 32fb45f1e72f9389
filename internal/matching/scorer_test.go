package matching

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"github.com/loadlane/auction-service/internal/model"
)

func auctionWith(number string, stops []string, miles int, tag string) model.Auction {
	return model.Auction{
		AuctionNumber: number,
		Stops:         stops,
		DistanceMiles: miles,
		Tag:           tag,
	}
}

func TestScore_IdenticalLoad(t *testing.T) {
	ref := auctionWith("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, 900, "IL")
	cand := auctionWith("AUC-2", []string{"Chicago, IL", "Dallas, TX"}, 900, "IL")

	m := Score(cand, ref, model.BidHistory{})

	check.Equal(t, float64(100), m.Breakdown.RouteSimilarity)
	check.Equal(t, float64(100), m.Breakdown.LoadClassMatch)
	check.Equal(t, float64(100), m.Breakdown.DistanceMatch)
	// no timestamps, no history: both neutral
	check.Equal(t, float64(50), m.Breakdown.TimingRelevance)
	check.Equal(t, float64(50), m.Breakdown.MarketFit)
	check.Equal(t, 90, m.Score)
	check.Equal(t, []string{"Perfect route match", "Same weight class"}, m.Reasons)
}

func TestRouteSimilarity_Reversed(t *testing.T) {
	ref := []string{"Chicago, IL", "Memphis, TN", "Dallas, TX"}
	cand := []string{"dallas, tx", "memphis, tn", "chicago, il"}

	check.Equal(t, float64(95), routeSimilarity(ref, cand))
	check.True(t, ReversedRoute(ref, cand))
	check.False(t, ReversedRoute(ref, ref))
}

func TestRouteSimilarity_PartialOverlap(t *testing.T) {
	ref := []string{"Chicago, IL", "Memphis, TN", "Dallas, TX"}
	cand := []string{"Chicago, IL", "Little Rock, AR", "Dallas, TX"}

	// 40 origin + 40 destination + 2/3 shared cities * 20, rounded
	check.Equal(t, float64(93), routeSimilarity(ref, cand))
}

func TestRouteSimilarity_EmptyRoute(t *testing.T) {
	check.Equal(t, float64(0), routeSimilarity(nil, []string{"Chicago, IL"}))
}

func TestLoadClassMatch(t *testing.T) {
	check.Equal(t, float64(100), loadClassMatch("IL", "il "))
	check.Equal(t, float64(85), loadClassMatch("IL", "TX"))
	check.Equal(t, float64(80), loadClassMatch("", "TX"))
	check.Equal(t, float64(80), loadClassMatch("IL", ""))
}

func TestDistanceMatch_DecaySteps(t *testing.T) {
	check.Equal(t, float64(100), distanceMatch(1000, 1050))
	check.Equal(t, float64(90), distanceMatch(1000, 1100))
	check.Equal(t, float64(80), distanceMatch(1000, 1150))
	check.Equal(t, float64(70), distanceMatch(1000, 1250))
	check.Equal(t, float64(60), distanceMatch(1000, 1350))
	check.Equal(t, float64(40), distanceMatch(1000, 1500))
	check.Equal(t, float64(0), distanceMatch(1000, 1600))
	check.Equal(t, float64(0), distanceMatch(0, 500))
}

func TestTimingRelevance_PenaltiesStack(t *testing.T) {
	base := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	at := func(t time.Time) *time.Time { return &t }

	refPickup, refDelivery := at(base), at(base.Add(24*time.Hour))

	// same day, same transit
	check.Equal(t, float64(100), timingRelevance(refPickup, refDelivery, at(base.Add(2*time.Hour)), at(base.Add(26*time.Hour))))

	// 30h gap: one penalty
	check.Equal(t, float64(80), timingRelevance(refPickup, refDelivery, at(base.Add(30*time.Hour)), at(base.Add(54*time.Hour))))

	// 50h gap: first two penalties stack
	check.Equal(t, float64(50), timingRelevance(refPickup, refDelivery, at(base.Add(50*time.Hour)), at(base.Add(74*time.Hour))))

	// 80h gap: all three stack
	check.Equal(t, float64(10), timingRelevance(refPickup, refDelivery, at(base.Add(80*time.Hour)), at(base.Add(104*time.Hour))))

	// transit 2.5 days longer than reference: both transit penalties
	check.Equal(t, float64(70), timingRelevance(refPickup, refDelivery, at(base), at(base.Add(84*time.Hour))))

	check.Equal(t, float64(50), timingRelevance(nil, refDelivery, refPickup, refDelivery))
}

func TestMarketFit(t *testing.T) {
	cand := auctionWith("AUC-9", []string{"A", "B"}, 500, "TX")

	check.Equal(t, float64(50), marketFit(cand, model.BidHistory{}))

	history := model.BidHistory{TotalOffers: 10, OffersOnTag: 5, AvgDistanceMi: 500}
	check.Equal(t, float64(75), marketFit(cand, history))
}

func TestReasons_DistanceGap(t *testing.T) {
	ref := auctionWith("AUC-1", []string{"Chicago, IL", "Dallas, TX"}, 1000, "IL")
	cand := auctionWith("AUC-2", []string{"Chicago, IL", "Dallas, TX"}, 1400, "IL")

	m := Score(cand, ref, model.BidHistory{})
	check.True(t, containsReason(m.Reasons, "Distance differs by ~400 miles"))
}

func containsReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

func TestSimilarCity(t *testing.T) {
	check.True(t, similarCity("New York", "NEW YORK CITY"))
	check.True(t, similarCity("Chicago, IL", "Chicago"))
	check.False(t, similarCity("Chicago, IL", "Dallas, TX"))
}
