package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuideRefreshes tracks completed guide refresh cycles by outcome
	GuideRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_guide_refreshes_total",
		Help: "Total number of guide refresh cycles by outcome",
	}, []string{"outcome"})

	// GuideSourceErrors tracks guide sources skipped during refresh
	GuideSourceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_guide_source_errors_total",
		Help: "Total number of guide sources skipped due to fetch or parse errors",
	})

	// ProgramsStored tracks the number of program rows currently stored
	ProgramsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_guide_programs_stored",
		Help: "Number of program rows currently stored in the guide",
	})

	// ProgramsExpired tracks program rows removed by retention cleanup
	ProgramsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptv_guide_programs_expired_total",
		Help: "Total number of program rows removed by retention cleanup",
	})

	// CatalogRebuilds tracks catalog rebuild attempts by outcome
	CatalogRebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_catalog_rebuilds_total",
		Help: "Total number of catalog rebuild attempts by outcome",
	}, []string{"outcome"})

	// ChannelsCached tracks channels in the current catalog snapshot
	ChannelsCached = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_catalog_channels_cached",
		Help: "Number of channels in the current catalog snapshot",
	})

	// SingleFlightDrops tracks refresh/rebuild calls dropped by the
	// single-flight guard
	SingleFlightDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_single_flight_drops_total",
		Help: "Total number of refresh/rebuild calls dropped because one was already running",
	}, []string{"store"})
)

// Outcome label values for refresh/rebuild counters
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// RecordGuideRefresh records a completed guide refresh cycle
func RecordGuideRefresh(outcome string) {
	GuideRefreshes.WithLabelValues(outcome).Inc()
}

// RecordGuideSourceError increments the skipped-source counter
func RecordGuideSourceError() {
	GuideSourceErrors.Inc()
}

// RecordCatalogRebuild records a catalog rebuild attempt
func RecordCatalogRebuild(outcome string) {
	CatalogRebuilds.WithLabelValues(outcome).Inc()
}

// RecordSingleFlightDrop records a dropped concurrent refresh/rebuild call
func RecordSingleFlightDrop(store string) {
	SingleFlightDrops.WithLabelValues(store).Inc()
}

// SetProgramsStored sets the stored program row gauge
func SetProgramsStored(count int) {
	ProgramsStored.Set(float64(count))
}

// SetChannelsCached sets the cached channel gauge
func SetChannelsCached(count int) {
	ChannelsCached.Set(float64(count))
}

// RecordProgramsExpired adds to the expired program counter
func RecordProgramsExpired(count int) {
	ProgramsExpired.Add(float64(count))
}
