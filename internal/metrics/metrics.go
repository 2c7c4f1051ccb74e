package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type BPIMetrics struct {
	rewardsCredited   *prometheus.CounterVec
	rewardAmount      *prometheus.CounterVec
	claimTransitions  *prometheus.CounterVec
	webhookOutcomes   *prometheus.CounterVec
	distributionRuns  *prometheus.CounterVec
	distributedAmount prometheus.Counter
}

var (
	bpiOnce     sync.Once
	bpiRegistry *BPIMetrics
)

// BPI returns the process-wide metric set, registering it on first use.
func BPI() *BPIMetrics {
	bpiOnce.Do(func() {
		bpiRegistry = &BPIMetrics{
			rewardsCredited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bpi_referral_rewards_total",
				Help: "Referral reward credits by sponsor level and wallet.",
			}, []string{"level", "wallet"}),
			rewardAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bpi_referral_reward_amount_total",
				Help: "Sum of referral reward credits by wallet.",
			}, []string{"wallet"}),
			claimTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bpi_claim_transitions_total",
				Help: "Claim state changes by target status and outcome.",
			}, []string{"status", "outcome"}),
			webhookOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bpi_payment_webhooks_total",
				Help: "Gateway webhook deliveries by gateway and outcome.",
			}, []string{"gateway", "outcome"}),
			distributionRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "bpi_executive_distribution_runs_total",
				Help: "Executive pool distribution runs by trigger and outcome.",
			}, []string{"trigger", "outcome"}),
			distributedAmount: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "bpi_executive_distributed_amount_total",
				Help: "Cash credited to executive shareholders.",
			}),
		}
		prometheus.MustRegister(
			bpiRegistry.rewardsCredited,
			bpiRegistry.rewardAmount,
			bpiRegistry.claimTransitions,
			bpiRegistry.webhookOutcomes,
			bpiRegistry.distributionRuns,
			bpiRegistry.distributedAmount,
		)
	})
	return bpiRegistry
}

func (m *BPIMetrics) ObserveReward(level, wallet string, amount float64) {
	if m == nil {
		return
	}
	m.rewardsCredited.WithLabelValues(level, wallet).Inc()
	m.rewardAmount.WithLabelValues(wallet).Add(amount)
}

func (m *BPIMetrics) ObserveClaimTransition(status, outcome string) {
	if m == nil {
		return
	}
	m.claimTransitions.WithLabelValues(status, outcome).Inc()
}

func (m *BPIMetrics) ObserveWebhook(gateway, outcome string) {
	if m == nil {
		return
	}
	if gateway == "" {
		gateway = "unknown"
	}
	m.webhookOutcomes.WithLabelValues(gateway, outcome).Inc()
}

func (m *BPIMetrics) ObserveDistribution(trigger, outcome string, amount float64) {
	if m == nil {
		return
	}
	m.distributionRuns.WithLabelValues(trigger, outcome).Inc()
	if amount > 0 {
		m.distributedAmount.Add(amount)
	}
}
