package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBPIIsSingleton(t *testing.T) {
	assert.Same(t, BPI(), BPI())
}

func TestObserveReward(t *testing.T) {
	m := BPI()
	before := testutil.ToFloat64(m.rewardsCredited.WithLabelValues("1", "CASH"))

	m.ObserveReward("1", "CASH", 250)

	assert.Equal(t, before+1, testutil.ToFloat64(m.rewardsCredited.WithLabelValues("1", "CASH")))
}

func TestObserveWebhookDefaultsGateway(t *testing.T) {
	m := BPI()
	before := testutil.ToFloat64(m.webhookOutcomes.WithLabelValues("unknown", "rejected"))

	m.ObserveWebhook("", "rejected")

	assert.Equal(t, before+1, testutil.ToFloat64(m.webhookOutcomes.WithLabelValues("unknown", "rejected")))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *BPIMetrics
	assert.NotPanics(t, func() {
		m.ObserveReward("1", "CASH", 1)
		m.ObserveClaimTransition("VERIFIED", "ok")
		m.ObserveWebhook("PAYSTACK", "ok")
		m.ObserveDistribution("cron", "ok", 1)
	})
}
