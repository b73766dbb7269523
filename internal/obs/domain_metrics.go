package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ResolveTotal counts cart/order resolution outcomes.
	ResolveTotal *prometheus.CounterVec
	// CouponRejectionsTotal counts rejected coupon codes by reason.
	CouponRejectionsTotal *prometheus.CounterVec
	// DiscountsAppliedTotal counts applied discounts by target type.
	DiscountsAppliedTotal *prometheus.CounterVec
	// SalesCacheRefreshTotal counts active-sales cache refresh outcomes.
	SalesCacheRefreshTotal *prometheus.CounterVec
	// SalesCacheSize reports how many sale ids the last refresh stored.
	SalesCacheSize prometheus.Gauge
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ResolveTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Count of discount resolution outcomes.",
		}, []string{"kind", "result"})
		CouponRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_rejections_total",
			Help:      "Count of rejected coupon codes by reason.",
		}, []string{"reason"})
		DiscountsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discounts_applied_total",
			Help:      "Count of applied discounts by target type.",
		}, []string{"target"})
		SalesCacheRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_cache_refresh_total",
			Help:      "Count of active-sales cache refresh outcomes.",
		}, []string{"result"})
		SalesCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sales_cache_size",
			Help:      "Number of sale ids stored by the last cache refresh.",
		})

		mustRegisterCollector(reg, ResolveTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ResolveTotal = v
			}
		})
		mustRegisterCollector(reg, CouponRejectionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponRejectionsTotal = v
			}
		})
		mustRegisterCollector(reg, DiscountsAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DiscountsAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, SalesCacheRefreshTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCacheRefreshTotal = v
			}
		})
		mustRegisterCollector(reg, SalesCacheSize, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				SalesCacheSize = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
