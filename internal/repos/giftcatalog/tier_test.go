package giftcatalog

import "testing"

func TestTierFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		priceMinor int64
		want       Tier
	}{
		{1, TierBasic},
		{999, TierBasic},
		{1_000, TierPremium},
		{9_999, TierPremium},
		{10_000, TierLuxury},
		{50_000, TierLuxury},
	}

	for _, tc := range cases {
		got := TierFor(tc.priceMinor)
		if got != tc.want {
			t.Errorf("TierFor(%d) = %s, want %s", tc.priceMinor, got, tc.want)
		}
	}
}
