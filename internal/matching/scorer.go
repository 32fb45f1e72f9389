// Package matching scores candidate auctions against a carrier's reference
// loads and turns the results into notification jobs. The scorer is pure;
// the dispatcher owns all IO.
package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loadlane/auction-service/internal/model"
)

// Breakdown holds the five sub-scores before weighting, each 0..100.
type Breakdown struct {
	RouteSimilarity float64
	LoadClassMatch  float64
	DistanceMatch   float64
	TimingRelevance float64
	MarketFit       float64
}

// Match is the scored comparison of a candidate auction against one
// reference load.
type Match struct {
	AuctionNumber string
	Score         int
	Breakdown     Breakdown
	Reasons       []string
}

// NotifiableScore is the minimum match score that produces a notification.
const NotifiableScore = 70

// component is one sub-scorer in the fixed-weight pipeline. Weights sum to
// one; changing a weight without rebalancing the others shifts every score.
type component struct {
	name   string
	weight float64
	score  func(candidate, reference model.Auction, history model.BidHistory) float64
}

var pipeline = []component{
	{"route", 0.35, func(c, r model.Auction, _ model.BidHistory) float64 {
		return routeSimilarity(r.Stops, c.Stops)
	}},
	{"load_class", 0.25, func(c, r model.Auction, _ model.BidHistory) float64 {
		return loadClassMatch(r.Tag, c.Tag)
	}},
	{"distance", 0.20, func(c, r model.Auction, _ model.BidHistory) float64 {
		return distanceMatch(r.DistanceMiles, c.DistanceMiles)
	}},
	{"timing", 0.15, func(c, r model.Auction, _ model.BidHistory) float64 {
		return timingRelevance(r.PickupAt, r.DeliveryAt, c.PickupAt, c.DeliveryAt)
	}},
	{"market", 0.05, func(c, _ model.Auction, h model.BidHistory) float64 {
		return marketFit(c, h)
	}},
}

// Score compares a candidate auction against a carrier's reference load.
// history feeds the market-fit component and may be the zero value, which
// scores neutral.
func Score(candidate, reference model.Auction, history model.BidHistory) Match {
	var breakdown Breakdown
	total := 0.0
	for _, c := range pipeline {
		s := c.score(candidate, reference, history)
		total += s * c.weight
		switch c.name {
		case "route":
			breakdown.RouteSimilarity = s
		case "load_class":
			breakdown.LoadClassMatch = s
		case "distance":
			breakdown.DistanceMatch = s
		case "timing":
			breakdown.TimingRelevance = s
		case "market":
			breakdown.MarketFit = s
		}
	}

	return Match{
		AuctionNumber: candidate.AuctionNumber,
		Score:         int(math.Round(total)),
		Breakdown:     breakdown,
		Reasons:       reasons(breakdown, reference, candidate),
	}
}

func reasons(b Breakdown, reference, candidate model.Auction) []string {
	var out []string
	switch {
	case b.RouteSimilarity > 80:
		out = append(out, "Perfect route match")
	case b.RouteSimilarity > 60:
		out = append(out, "Similar route with minor differences")
	}
	if b.LoadClassMatch == 100 {
		out = append(out, "Same weight class")
	}
	if b.DistanceMatch < 70 {
		diff := reference.DistanceMiles - candidate.DistanceMiles
		if diff < 0 {
			diff = -diff
		}
		out = append(out, fmt.Sprintf("Distance differs by ~%d miles", diff))
	}
	return out
}

// routeSimilarity compares two stop lists. An identical route scores 100 and
// the same route driven in reverse scores 95; anything else is built up from
// origin match, destination match and the shared-city ratio.
func routeSimilarity(reference, candidate []string) float64 {
	if len(reference) == 0 || len(candidate) == 0 {
		return 0
	}

	refNorm := normalizeStops(reference)
	candNorm := normalizeStops(candidate)

	if stopsEqual(refNorm, candNorm) {
		return 100
	}
	if stopsEqual(refNorm, reverseStops(candNorm)) {
		return 95
	}

	score := 0.0
	if similarCity(reference[0], candidate[0]) {
		score += 40
	}
	if similarCity(reference[len(reference)-1], candidate[len(candidate)-1]) {
		score += 40
	}

	refSet := make(map[string]struct{}, len(refNorm))
	for _, s := range refNorm {
		refSet[s] = struct{}{}
	}
	candSet := make(map[string]struct{}, len(candNorm))
	for _, s := range candNorm {
		candSet[s] = struct{}{}
	}
	common := 0
	for s := range refSet {
		if _, ok := candSet[s]; ok {
			common++
		}
	}
	larger := len(refSet)
	if len(candSet) > larger {
		larger = len(candSet)
	}
	score += float64(common) / float64(larger) * 20

	return math.Round(score)
}

// ReversedRoute reports whether candidate is reference driven in the
// opposite direction. The dispatcher uses this for backhaul matching.
func ReversedRoute(reference, candidate []string) bool {
	if len(reference) == 0 || len(candidate) == 0 {
		return false
	}
	refNorm := normalizeStops(reference)
	candNorm := normalizeStops(candidate)
	return !stopsEqual(refNorm, candNorm) && stopsEqual(refNorm, reverseStops(candNorm))
}

// loadClassMatch compares the categorical tags. All loads are dry van, so
// the tag stands in for a weight class until one exists: identical tags
// score 100, two differing tags 85, a missing side 80.
func loadClassMatch(referenceTag, candidateTag string) float64 {
	ref := strings.ToUpper(strings.TrimSpace(referenceTag))
	cand := strings.ToUpper(strings.TrimSpace(candidateTag))
	switch {
	case ref == "" || cand == "":
		return 80
	case ref == cand:
		return 100
	default:
		return 85
	}
}

// distanceMatch decays with the percent difference relative to the
// reference distance.
func distanceMatch(referenceMiles, candidateMiles int) float64 {
	if referenceMiles <= 0 || candidateMiles <= 0 {
		return 0
	}
	diff := math.Abs(float64(referenceMiles - candidateMiles))
	percentDiff := diff / float64(referenceMiles) * 100

	switch {
	case percentDiff <= 5:
		return 100
	case percentDiff <= 10:
		return 90
	case percentDiff <= 15:
		return 80
	case percentDiff <= 25:
		return 70
	case percentDiff <= 35:
		return 60
	case percentDiff <= 50:
		return 40
	default:
		return math.Max(0, 100-percentDiff*2)
	}
}

// timingRelevance starts at 100 and penalizes growing pickup-time gaps and
// transit-duration differences. Missing timestamps score neutral.
func timingRelevance(refPickup, refDelivery, candPickup, candDelivery *time.Time) float64 {
	if refPickup == nil || refDelivery == nil || candPickup == nil || candDelivery == nil {
		return 50
	}

	pickupGapHours := math.Abs(refPickup.Sub(*candPickup).Hours())
	refTransit := refDelivery.Sub(*refPickup)
	candTransit := candDelivery.Sub(*candPickup)
	transitDiffDays := math.Abs((refTransit - candTransit).Hours()) / 24

	score := 100.0
	if pickupGapHours > 24 {
		score -= 20
	}
	if pickupGapHours > 48 {
		score -= 30
	}
	if pickupGapHours > 72 {
		score -= 40
	}
	if transitDiffDays > 1 {
		score -= 10
	}
	if transitDiffDays > 2 {
		score -= 20
	}
	return math.Max(0, score)
}

// marketFit blends the carrier's historical share of offers on the
// candidate's tag with how close the candidate's distance sits to their
// average, 50/50. No history scores neutral.
func marketFit(candidate model.Auction, history model.BidHistory) float64 {
	if history.TotalOffers == 0 {
		return 50
	}

	tagShare := float64(history.OffersOnTag) / float64(history.TotalOffers) * 100

	distanceFit := 50.0
	if history.AvgDistanceMi > 0 {
		diff := math.Abs(float64(candidate.DistanceMiles) - history.AvgDistanceMi)
		percentDiff := diff / history.AvgDistanceMi * 100
		distanceFit = math.Max(50, 100-percentDiff)
	}

	return tagShare*0.5 + distanceFit*0.5
}

func normalizeStops(stops []string) []string {
	out := make([]string, len(stops))
	for i, s := range stops {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func reverseStops(stops []string) []string {
	out := make([]string, len(stops))
	for i, s := range stops {
		out[len(stops)-1-i] = s
	}
	return out
}

func stopsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// similarCity is the fuzzy city comparison: exact after normalization,
// containment ("NEW YORK" in "NEW YORK CITY"), shared abbreviation, or
// equality once a trailing state code is stripped.
func similarCity(a, b string) bool {
	na := strings.ToUpper(strings.TrimSpace(a))
	nb := strings.ToUpper(strings.TrimSpace(b))
	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	if aa, ab := cityAbbreviations[na], cityAbbreviations[nb]; aa != "" && aa == ab {
		return true
	}
	return stripState(na) == stripState(nb)
}

func stripState(city string) string {
	if i := strings.Index(city, ","); i >= 0 {
		return strings.TrimSpace(city[:i])
	}
	return city
}

var cityAbbreviations = map[string]string{
	"NEW YORK":      "NY",
	"NEW YORK CITY": "NY",
	"LOS ANGELES":   "LA",
	"CHICAGO":       "CHI",
	"DALLAS":        "DFW",
	"HOUSTON":       "HOU",
	"PHILADELPHIA":  "PHL",
	"PHOENIX":       "PHX",
	"SAN ANTONIO":   "SAT",
	"SAN DIEGO":     "SAN",
}
