package policy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ModawnAI/everything-backend-sub023/internal/models"
)

// Version identifies the reward policy in force. Constants below are the
// canonical values for this version; historical documents describing other
// referral formulas are superseded.
const Version = "v3.2"

// Earning policy constants.
var (
	// EarningRate is the fraction of the eligible payment amount earned as points.
	EarningRate = decimal.NewFromFloat(0.025)
	// MaxEligibleAmount caps the payment amount considered for earning.
	MaxEligibleAmount = decimal.NewFromInt(300000)
	// MinTransactionAmount is the smallest payment that earns any points.
	MinTransactionAmount = decimal.NewFromInt(1000)
	// InfluencerMultiplier applies on top of the base earn for flagged users.
	InfluencerMultiplier = decimal.NewFromFloat(2.0)
)

const (
	// AvailabilityDelayDays is how long earned points stay pending.
	AvailabilityDelayDays = 7
	// ExpirationPeriodDays is how long points stay usable once available.
	ExpirationPeriodDays = 365

	// ReferralBaseBonus is the fixed referrer award per completed
	// reservation of a referred user.
	ReferralBaseBonus int64 = 1000
	// ReferralCompletionBonus is the one-time referrer award for the
	// referred user's first completed reservation.
	ReferralCompletionBonus int64 = 500

	// MaxDailyEarningLimit caps purchase points earned per user per day.
	MaxDailyEarningLimit int64 = 50000
	// MaxMonthlyEarningLimit caps purchase points earned per user per month.
	MaxMonthlyEarningLimit int64 = 300000
)

// tierMultipliers maps user tiers to their earning multiplier.
var tierMultipliers = map[models.UserTier]decimal.Decimal{
	models.TierBronze:   decimal.NewFromFloat(1.0),
	models.TierSilver:   decimal.NewFromFloat(1.1),
	models.TierGold:     decimal.NewFromFloat(1.2),
	models.TierPlatinum: decimal.NewFromFloat(1.3),
	models.TierDiamond:  decimal.NewFromFloat(1.5),
}

// TierMultiplier returns the earning multiplier for a tier. Unknown tiers
// earn at the bronze rate.
func TierMultiplier(tier models.UserTier) decimal.Decimal {
	if m, ok := tierMultipliers[tier]; ok {
		return m
	}
	return tierMultipliers[models.TierBronze]
}

// tierThresholds maps lifetime points earned to tiers, highest first.
var tierThresholds = []struct {
	MinPoints int64
	Tier      models.UserTier
}{
	{500000, models.TierDiamond},
	{100000, models.TierPlatinum},
	{50000, models.TierGold},
	{10000, models.TierSilver},
	{0, models.TierBronze},
}

// TierForPoints derives a user's tier from lifetime points earned.
func TierForPoints(totalEarned int64) models.UserTier {
	for _, t := range tierThresholds {
		if totalEarned >= t.MinPoints {
			return t.Tier
		}
	}
	return models.TierBronze
}

// CalculatePurchasePoints computes the points earned for a payment amount.
// Each multiplier step floors independently, matching the ledger history.
func CalculatePurchasePoints(amount decimal.Decimal, isInfluencer bool, tier models.UserTier) int64 {
	if amount.LessThan(MinTransactionAmount) {
		return 0
	}

	eligible := decimal.Min(amount, MaxEligibleAmount)
	points := eligible.Mul(EarningRate).Floor()

	if isInfluencer {
		points = points.Mul(InfluencerMultiplier).Floor()
	}

	points = points.Mul(TierMultiplier(tier)).Floor()
	return points.IntPart()
}

// EarnSchedule returns the availability and expiry timestamps for points
// earned at now.
func EarnSchedule(now time.Time) (availableFrom, expiresAt time.Time) {
	availableFrom = now.AddDate(0, 0, AvailabilityDelayDays)
	expiresAt = availableFrom.AddDate(0, 0, ExpirationPeriodDays)
	return availableFrom, expiresAt
}
