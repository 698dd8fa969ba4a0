package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tripmark_requests_total",
		Help: "Total number of API requests by route",
	}, []string{"route"})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripmark_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_geocode_requests_total",
		Help: "Total remote geocode lookups",
	})
	GeocodeNotFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_geocode_not_found_total",
		Help: "Total geocode lookups with an empty result set",
	})
	GeocodeFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_geocode_fail_total",
		Help: "Total geocode transport or parse failures",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_geocode_cache_hits_total",
		Help: "Total geocode lookups served from cache",
	})
	GeocodeThrottleWaitMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripmark_geocode_throttle_wait_ms",
		Help:    "Time spent waiting for the geocode minimum interval",
		Buckets: []float64{0, 50, 100, 200, 400, 600, 1200},
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tripmark_geocode_duration_ms",
		Help:    "Remote geocode call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	StoreWritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_store_writes_total",
		Help: "Total record collection writes",
	})
	StoreWriteFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_store_write_fail_total",
		Help: "Total failed record collection writes",
	})
	StoreCorruptReadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_store_corrupt_reads_total",
		Help: "Total reads that found unreadable data and fell back to empty",
	})
	StoreRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tripmark_store_records",
		Help: "Number of records after the last successful write",
	})
	RendersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tripmark_renders_total",
		Help: "Total full view rebuilds",
	})
	PinsDisplayed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tripmark_pins_displayed",
		Help: "Pins on the map after the last render",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeNotFoundTotal)
	prometheus.MustRegister(GeocodeFailTotal)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeThrottleWaitMs)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(StoreWritesTotal)
	prometheus.MustRegister(StoreWriteFailTotal)
	prometheus.MustRegister(StoreCorruptReadsTotal)
	prometheus.MustRegister(StoreRecords)
	prometheus.MustRegister(RendersTotal)
	prometheus.MustRegister(PinsDisplayed)
}

// Handler：暴露已注册指标，供 Prometheus 抓取；在主入口挂载到 {API_BASE}/metrics
func Handler() http.Handler { return promhttp.Handler() }
