package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GeocodeRequests *prometheus.CounterVec
	APIErrors       prometheus.Counter
	RequestSeconds  *prometheus.HistogramVec
	ActiveViews     prometheus.Gauge
	ViewEvents      *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		GeocodeRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mapview_geocode_requests_total",
			Help: "Total number of geocode actions by resulting status.",
		}, []string{"status"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mapview_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mapview_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveViews: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mapview_active_views",
			Help: "Current number of mounted map views.",
		}),
		ViewEvents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mapview_view_events_total",
			Help: "View state mutations by handler.",
		}, []string{"kind"}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mapview_geocode_cache_lookups_total",
			Help: "Geocode cache lookups by result.",
		}, []string{"result"}),
	}
}
