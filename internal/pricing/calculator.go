// Package pricing implements the deterministic counter-offer arithmetic used
// both as an extraction fallback and as the substrate for action inference.
package pricing

import "math"

// Gap-closing ratios. 经验常数，保持与线上行为一致，不要重新推导。
const (
	HealthyOfferRatio  = 1.1 // offers at or above minPrice×1.1 are "healthy"
	ConservativeClose  = 0.4 // portion of the gap conceded on a healthy offer
	AggressiveClose    = 0.6 // portion conceded on a borderline offer
	FloorAnchorPortion = 0.3 // concession above the floor for invalid offers
)

// CounterOffer computes the seller's counter for the given offer, rounded to
// whole currency units. Pure and deterministic.
func CounterOffer(currentOffer, basePrice, minPrice float64) float64 {
	gap := basePrice - currentOffer
	minGap := basePrice - minPrice

	var amount float64
	switch {
	case currentOffer >= minPrice*HealthyOfferRatio:
		amount = currentOffer + ConservativeClose*gap
	case currentOffer >= minPrice:
		amount = currentOffer + AggressiveClose*gap
	default:
		// Offer below the floor: anchor near minPrice with a small concession.
		amount = minPrice + FloorAnchorPortion*minGap
	}

	return math.Round(amount)
}
