package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records device mirror recomputations and scan resolutions.
type SyncMetrics struct {
	mirrorSyncs  *prometheus.CounterVec
	scanResolved prometheus.Counter
	scanTimeouts prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	mirrorSyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_sync_total",
		Help: "Device mirror recomputations by result.",
	}, []string{"result"})
	scanResolved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_resolved_total",
		Help: "Barcode scans resolved to a list item.",
	})
	scanTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scan_timeout_total",
		Help: "Barcode scans abandoned after the resolve deadline.",
	})
	reg.MustRegister(mirrorSyncs, scanResolved, scanTimeouts)
	return &SyncMetrics{
		mirrorSyncs:  mirrorSyncs,
		scanResolved: scanResolved,
		scanTimeouts: scanTimeouts,
	}
}

// IncMirrorSync counts a mirror recomputation with the given result label.
func (s *SyncMetrics) IncMirrorSync(result string) {
	if s == nil || s.mirrorSyncs == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	s.mirrorSyncs.WithLabelValues(result).Inc()
}

// IncScanResolved counts a successful barcode resolution.
func (s *SyncMetrics) IncScanResolved() {
	if s == nil || s.scanResolved == nil {
		return
	}
	s.scanResolved.Inc()
}

// IncScanTimeout counts a scan that hit the resolve deadline.
func (s *SyncMetrics) IncScanTimeout() {
	if s == nil || s.scanTimeouts == nil {
		return
	}
	s.scanTimeouts.Inc()
}
