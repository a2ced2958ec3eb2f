package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentComputeTotal counts full document recomputations by kind.
	DocumentComputeTotal *prometheus.CounterVec
	// DocumentWriteTotal counts create/update/delete outcomes on documents.
	DocumentWriteTotal *prometheus.CounterVec
	// ExportRenderTotal counts print/export rendering outcomes by format.
	ExportRenderTotal *prometheus.CounterVec
	// NumberingFallbackTotal counts degraded numbering passes taken when the
	// sibling collection could not be loaded.
	NumberingFallbackTotal prometheus.Counter
	// SnapshotCacheTotal counts sibling snapshot cache lookups by result.
	SnapshotCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentComputeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_compute_total",
			Help:      "Count of full document recomputations by document kind.",
		}, []string{"kind"})
		DocumentWriteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_write_total",
			Help:      "Count of document write outcomes.",
		}, []string{"op", "result"})
		ExportRenderTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_render_total",
			Help:      "Count of print/export rendering outcomes by format.",
		}, []string{"format", "result"})
		NumberingFallbackTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numbering_fallback_total",
			Help:      "Number of numbering passes served with degraded index-based numbers.",
		})
		SnapshotCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_total",
			Help:      "Sibling snapshot cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, DocumentComputeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentComputeTotal = v
			}
		})
		mustRegisterCollector(reg, DocumentWriteTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentWriteTotal = v
			}
		})
		mustRegisterCollector(reg, ExportRenderTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ExportRenderTotal = v
			}
		})
		mustRegisterCollector(reg, NumberingFallbackTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				NumberingFallbackTotal = v
			}
		})
		mustRegisterCollector(reg, SnapshotCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SnapshotCacheTotal = v
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
