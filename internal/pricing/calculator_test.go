package pricing

import "testing"

func TestCounterOfferHealthyOffer(t *testing.T) {
	// 700 >= 500*1.1, close 40% of the 300 gap: 700 + 120 = 820.
	got := CounterOffer(700, 1000, 500)
	if got != 820 {
		t.Fatalf("healthy offer counter: got %.2f want 820", got)
	}
}

func TestCounterOfferBorderlineOffer(t *testing.T) {
	// 520 is above the 500 floor but below 550, close 60%: 520 + 0.6*480 = 808.
	got := CounterOffer(520, 1000, 500)
	if got != 808 {
		t.Fatalf("borderline offer counter: got %.2f want 808", got)
	}
}

func TestCounterOfferBelowFloorAnchors(t *testing.T) {
	// 100 < 500: anchor at minPrice + 0.3*(1000-500) = 650.
	got := CounterOffer(100, 1000, 500)
	if got != 650 {
		t.Fatalf("below-floor counter: got %.2f want 650", got)
	}
}

func TestCounterOfferStaysWithinBounds(t *testing.T) {
	cases := []struct {
		current, base, min float64
	}{
		{500, 1000, 500},
		{550, 1000, 500},
		{999, 1000, 500},
		{1000, 1000, 500},
		{750, 800, 700},
		{60, 100, 50},
	}
	for _, c := range cases {
		got := CounterOffer(c.current, c.base, c.min)
		if got < c.min || got > c.base {
			t.Fatalf("CounterOffer(%.0f,%.0f,%.0f)=%.2f outside [%.0f,%.0f]",
				c.current, c.base, c.min, got, c.min, c.base)
		}
	}
}

func TestCounterOfferInvalidOfferNeverBelowFloor(t *testing.T) {
	for _, current := range []float64{0, 1, 49, 499} {
		got := CounterOffer(current, 1000, 500)
		if got < 500 {
			t.Fatalf("CounterOffer(%.0f,1000,500)=%.2f below floor", current, got)
		}
	}
}
