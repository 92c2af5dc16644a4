package prometheus

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "youwow_affiliate"

var (
	// ClicksRecorded counts click recording outcomes by result
	// (created, deduplicated, rejected, failed).
	ClicksRecorded = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "clicks_recorded_total",
		Help:      "Partner click recording attempts by result.",
	}, []string{"result"})

	// ConversionsRecorded counts conversion recording outcomes by result
	// (created, duplicate, rejected, failed).
	ConversionsRecorded = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "conversions_recorded_total",
		Help:      "Partner conversion recording attempts by result.",
	}, []string{"result"})

	ClickJobs = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "click_jobs_total",
		Help:      "Click jobs handed to the background pipeline by dispatcher and result.",
	}, []string{"dispatcher", "result"})

	RateLimitRejections = promauto.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the fixed-window limiter, by logical key.",
	}, []string{"key"})
)
