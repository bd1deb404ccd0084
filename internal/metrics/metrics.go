package metrics

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	RecordsProcessed prometheus.Counter
	RecordsValid     prometheus.Counter
	RecordsInvalid   prometheus.Counter
	RecordsSkipped   prometheus.Counter
	RowsInserted     prometheus.Counter

	Anomalies *prometheus.CounterVec // kind label, e.g. invalid_coordinates

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	BatchDuration  prometheus.Histogram
	InsertDuration prometheus.Histogram

	BatchSize     prometheus.Gauge
	MaxDuration   prometheus.Gauge
	IQRMultiplier prometheus.Gauge
}

func NewCollector(batchSize, maxDurationSec int, iqrMultiplier float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_records_processed_total",
			Help: "Total raw records read from the input.",
		}),
		RecordsValid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_records_valid_total",
			Help: "Total records that passed validation.",
		}),
		RecordsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_records_invalid_total",
			Help: "Total records rejected by validation.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_records_skipped_total",
			Help: "Total unparseable input rows skipped.",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_rows_inserted_total",
			Help: "Total trip rows inserted into storage.",
		}),
		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_anomalies_total",
			Help: "Anomaly flags raised during cleaning, by kind.",
		}, []string{"kind"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_batch_duration_seconds",
			Help:    "Duration to clean and enrich one batch.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		InsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_insert_duration_seconds",
			Help:    "Duration to insert one batch into storage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		BatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_batch_size",
			Help: "Configured ingest batch size.",
		}),
		MaxDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_max_trip_duration_seconds",
			Help: "Configured maximum valid trip duration.",
		}),
		IQRMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_outlier_iqr_multiplier",
			Help: "Configured IQR fence multiplier for duration outliers.",
		}),
	}

	// Register
	reg.MustRegister(
		c.RecordsProcessed, c.RecordsValid, c.RecordsInvalid, c.RecordsSkipped, c.RowsInserted,
		c.Anomalies,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.BatchDuration, c.InsertDuration,
		c.BatchSize, c.MaxDuration, c.IQRMultiplier,
	)

	c.BatchSize.Set(float64(batchSize))
	c.MaxDuration.Set(float64(maxDurationSec))
	c.IQRMultiplier.Set(iqrMultiplier)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
