package policy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

func TestCalculatePurchasePointsBaseRate(t *testing.T) {
	// 80,000 * 0.025 = 2,000 for a bronze non-influencer.
	got := CalculatePurchasePoints(decimal.NewFromInt(80000), false, models.TierBronze)
	if got != 2000 {
		t.Errorf("expected 2000 points, got %d", got)
	}
}

func TestCalculatePurchasePointsInfluencer(t *testing.T) {
	got := CalculatePurchasePoints(decimal.NewFromInt(80000), true, models.TierBronze)
	if got != 4000 {
		t.Errorf("expected 4000 points with influencer multiplier, got %d", got)
	}
}

func TestCalculatePurchasePointsEligibleCap(t *testing.T) {
	// Amounts above the eligibility cap earn as if they were the cap.
	capped := CalculatePurchasePoints(decimal.NewFromInt(1000000), false, models.TierBronze)
	atCap := CalculatePurchasePoints(MaxEligibleAmount, false, models.TierBronze)
	if capped != atCap {
		t.Errorf("capped amount earned %d, at-cap amount earned %d", capped, atCap)
	}
	if capped != 7500 {
		t.Errorf("expected 7500 points at cap, got %d", capped)
	}
}

func TestCalculatePurchasePointsBelowMinimum(t *testing.T) {
	if got := CalculatePurchasePoints(decimal.NewFromInt(999), false, models.TierBronze); got != 0 {
		t.Errorf("amounts below the minimum must earn 0, got %d", got)
	}
	if got := CalculatePurchasePoints(decimal.NewFromInt(1000), false, models.TierBronze); got != 25 {
		t.Errorf("minimum amount should earn 25, got %d", got)
	}
}

func TestCalculatePurchasePointsTierMultipliers(t *testing.T) {
	amount := decimal.NewFromInt(80000) // base 2000
	cases := []struct {
		tier models.UserTier
		want int64
	}{
		{models.TierBronze, 2000},
		{models.TierSilver, 2200},
		{models.TierGold, 2400},
		{models.TierPlatinum, 2600},
		{models.TierDiamond, 3000},
	}
	for _, tc := range cases {
		if got := CalculatePurchasePoints(amount, false, tc.tier); got != tc.want {
			t.Errorf("tier %s: expected %d, got %d", tc.tier, tc.want, got)
		}
	}
}

func TestCalculatePurchasePointsFlooredPerStep(t *testing.T) {
	// 1,999 eligible -> floor(49.975) = 49; silver floor(49*1.1) = 53.
	got := CalculatePurchasePoints(decimal.NewFromInt(1999), false, models.TierSilver)
	if got != 53 {
		t.Errorf("expected per-step flooring to yield 53, got %d", got)
	}
}

func TestTierForPoints(t *testing.T) {
	cases := []struct {
		earned int64
		want   models.UserTier
	}{
		{0, models.TierBronze},
		{9999, models.TierBronze},
		{10000, models.TierSilver},
		{50000, models.TierGold},
		{100000, models.TierPlatinum},
		{499999, models.TierPlatinum},
		{500000, models.TierDiamond},
	}
	for _, tc := range cases {
		if got := TierForPoints(tc.earned); got != tc.want {
			t.Errorf("TierForPoints(%d) = %s, want %s", tc.earned, got, tc.want)
		}
	}
}

func TestTierMultiplierUnknownTier(t *testing.T) {
	if !TierMultiplier(models.UserTier("mystery")).Equal(decimal.NewFromFloat(1.0)) {
		t.Error("unknown tiers must earn at the bronze rate")
	}
}

func TestEarnSchedule(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	availableFrom, expiresAt := EarnSchedule(now)

	if want := now.AddDate(0, 0, 7); !availableFrom.Equal(want) {
		t.Errorf("availableFrom = %v, want %v", availableFrom, want)
	}
	if want := availableFrom.AddDate(0, 0, 365); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}
}
