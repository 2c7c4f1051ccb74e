package service

import (
	"BPIApi/internal/models"
	"BPIApi/pkg/logger"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payout is one wallet credit produced by a referral reward rule.
type Payout struct {
	Level     int
	Recipient models.User
	Wallet    models.Wallet
	// Share is the naira value of the rule; Amount is what hit the wallet
	// (tokens for the TOKEN wallet).
	Share  float64
	Amount float64
}

// DistributeReferralRewards walks the buyer's sponsor chain and credits
// every reward rule of pkg at the matching level. It must run inside the
// transaction that activates the membership.
func DistributeReferralRewards(tx *gorm.DB, buyer *models.User, pkg *models.Package, reference string) ([]Payout, error) {
	chain, err := models.GetSponsorChain(tx, buyer.ID)
	if err != nil {
		return nil, logger.WrapError(err, "")
	}

	var payouts []Payout
	var directShare float64
	for _, ancestor := range chain {
		for _, rule := range pkg.RulesForLevel(ancestor.Level) {
			share := SplitAmount(pkg.Price, rule.Percent)
			if share <= 0 {
				continue
			}

			amount := share
			if rule.Wallet == models.WalletToken {
				amount = ToTokens(share, settings.BPTPrice)
			}

			if _, err = models.CreditWallet(tx, models.LedgerEntry{
				UserID: ancestor.User.ID,
				Wallet: rule.Wallet,
				Amount: amount,
				Type:   models.TxReferralReward,
				Description: fmt.Sprintf("L%d referral reward: %s activated by %s",
					ancestor.Level, pkg.Name, buyer.Username),
				Reference: reference,
			}); err != nil {
				return nil, logger.WrapError(err, "")
			}

			if ancestor.Level == 1 {
				directShare += share
			}
			payouts = append(payouts, Payout{
				Level:     ancestor.Level,
				Recipient: ancestor.User,
				Wallet:    rule.Wallet,
				Share:     share,
				Amount:    amount,
			})
		}
	}

	if buyer.SponsorID != nil {
		if err = tx.Model(&models.Referral{}).
			Where("referred_id = ?", buyer.ID).
			Updates(map[string]interface{}{
				"status":        models.ReferralActive,
				"reward_paid":   true,
				"earned_amount": gorm.Expr("earned_amount + ?", directShare),
			}).Error; err != nil {
			return nil, logger.WrapError(err, "")
		}
	}

	return payouts, nil
}

// TotalShare sums the naira value of payouts.
func TotalShare(payouts []Payout) float64 {
	total := decimal.Zero
	for _, p := range payouts {
		total = total.Add(decimal.NewFromFloat(p.Share))
	}
	return total.InexactFloat64()
}

// reportPayouts records metrics, reward log lines and feed events. Call it
// after the transaction that produced the payouts has committed.
func reportPayouts(payouts []Payout, reference string) {
	events := make([]ActivityEvent, 0, len(payouts))
	now := time.Now()
	for i, p := range payouts {
		bpiMetrics.ObserveReward(strconv.Itoa(p.Level), string(p.Wallet), p.Amount)
		logger.Reward("L%d %s +%v %s (ref %s)", p.Level, p.Recipient.Username, p.Amount, p.Wallet, reference)
		events = append(events, ActivityEvent{
			Kind:      "REFERRAL_REWARD",
			Username:  p.Recipient.Username,
			Level:     p.Level,
			Wallet:    p.Wallet,
			Amount:    p.Amount,
			Timestamp: now.UnixNano() + int64(i),
		})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pushActivity(ctx, events...)
}

// AllocateRevenue splits base into the company, executive and strategic
// pools and stores one PENDING allocation per pool.
func AllocateRevenue(tx *gorm.DB, source models.RevenueSource, sourceID int64, base float64) ([]models.RevenueAllocation, error) {
	if base < 0 {
		base = 0
	}

	company, executive, strategic := SplitPools(base,
		settings.CompanyPercent, settings.ExecutivePercent, settings.StrategicPercent)

	allocations := []models.RevenueAllocation{
		{SourceType: source, SourceID: sourceID, Pool: models.PoolCompany, Percent: company.Percent, Amount: company.Amount},
		{SourceType: source, SourceID: sourceID, Pool: models.PoolExecutive, Percent: executive.Percent, Amount: executive.Amount},
		{SourceType: source, SourceID: sourceID, Pool: models.PoolStrategic, Percent: strategic.Percent, Amount: strategic.Amount},
	}
	for i := range allocations {
		allocations[i].Status = models.AllocationPending
	}

	if err := tx.Create(&allocations).Error; err != nil {
		return nil, logger.WrapError(err, "")
	}

	logger.Debug("Revenue %s#%d allocated: base %v", source, sourceID, base)
	return allocations, nil
}
