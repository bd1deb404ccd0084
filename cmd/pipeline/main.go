package main

import (
	"context"
	"io"
	"log"
	"os/signal"
	"syscall"
	"time"

	"trip-pipeline/internal/cleaner"
	"trip-pipeline/internal/config"
	"trip-pipeline/internal/db"
	"trip-pipeline/internal/feature"
	"trip-pipeline/internal/ingest"
	"trip-pipeline/internal/metrics"
	"trip-pipeline/internal/publisher"
	"trip-pipeline/internal/stats"
	"trip-pipeline/internal/trip"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Storage is optional: without a DSN the run is clean/enrich/report only.
	var store *db.Store
	if cfg.DatabaseURL != "" {
		dsn := cfg.DatabaseURL
		if cfg.DatabaseName != "" {
			dsn, err = db.WithDBName(dsn, cfg.DatabaseName)
			if err != nil {
				log.Fatalf("compose DSN: %v", err)
			}
		}
		sqlDB, err := db.Open(dsn)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer sqlDB.Close()
		if err := db.Ping(ctx, sqlDB); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		store = db.NewStore(sqlDB)
	} else {
		log.Printf("no database configured, skipping persistence")
	}

	// Metrics setup
	var mcol *metrics.Collector
	var metricsSrvCancel context.CancelFunc
	if cfg.MetricsAddr != "" {
		mcol = metrics.NewCollector(cfg.BatchSize, cfg.Validation.MaxDurationSec, cfg.Validation.OutlierIQRMultiplier)
		mctx, mcancel := context.WithCancel(ctx)
		metricsSrvCancel = mcancel
		srv := mcol.Serve(cfg.MetricsAddr)
		go func() {
			<-mctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// NATS publisher is optional as well.
	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	reader, err := ingest.Open(cfg.InputPath, cfg.BatchSize)
	if err != nil {
		log.Fatalf("ingest error: %v", err)
	}
	defer reader.Close()

	cln := cleaner.New(cfg.Validation)
	eng := feature.New(cfg.Features)

	var (
		all      []trip.EnrichedRecord
		totals   cleaner.Stats
		inserted int64
		demoted  int
		batchNum int
	)

	start := time.Now()
	log.Printf("processing %s (batch size %d)", cfg.InputPath, cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			log.Printf("interrupted after %d batches", batchNum)
			return
		default:
		}

		batch, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("read batch: %v", err)
		}
		batchNum++
		batchStart := time.Now()

		cleaned, cstats := cln.Clean(batch)
		accumulate(&totals, cstats)

		enriched := make([]trip.EnrichedRecord, 0, len(cleaned))
		var avgQuality float64
		for _, rec := range cleaned {
			if mcol != nil {
				for _, k := range rec.Flags.Kinds() {
					mcol.Anomalies.WithLabelValues(k.String()).Inc()
				}
			}
			er, ok := eng.Enrich(rec)
			if !ok {
				if er.Flags.Has(trip.NonFiniteFeature) {
					demoted++
					if mcol != nil {
						mcol.Anomalies.WithLabelValues(trip.NonFiniteFeature.String()).Inc()
					}
				}
				continue
			}
			avgQuality += er.QualityScore
			enriched = append(enriched, er)
		}
		if len(enriched) > 0 {
			avgQuality /= float64(len(enriched))
		}
		eng.TagPatterns(enriched)
		all = append(all, enriched...)

		if mcol != nil {
			mcol.RecordsProcessed.Add(float64(cstats.Total))
			mcol.RecordsValid.Add(float64(len(enriched)))
			mcol.RecordsInvalid.Add(float64(cstats.Total - len(enriched)))
			mcol.BatchDuration.Observe(time.Since(batchStart).Seconds())
		}

		if store != nil {
			insertStart := time.Now()
			n, err := store.InsertEnriched(ctx, enriched)
			if err != nil {
				log.Fatalf("insert batch %d: %v", batchNum, err)
			}
			inserted += n
			if mcol != nil {
				mcol.RowsInserted.Add(float64(n))
				mcol.InsertDuration.Observe(time.Since(insertStart).Seconds())
			}
		}

		if pub != nil {
			err := pub.PublishBatchSummary(publisher.BatchSummary{
				Batch:       batchNum,
				Source:      cfg.InputPath,
				Timestamp:   time.Now().UTC(),
				Total:       cstats.Total,
				Valid:       len(enriched),
				Invalid:     cstats.Total - len(enriched),
				Duplicates:  cstats.Duplicates,
				Imputations: cstats.Imputations,
				AvgQuality:  avgQuality,
			})
			if err != nil {
				log.Printf("publish batch %d summary: %v", batchNum, err)
			}
		}
	}

	if mcol != nil {
		mcol.RecordsSkipped.Add(float64(reader.Skipped()))
	}

	report := stats.SummarizeWith(all, cfg.SpeedBucketEdges)
	if store != nil {
		if err := store.ReplaceStatistics(ctx, report); err != nil {
			log.Fatalf("replace statistics: %v", err)
		}
	}
	if pub != nil {
		if err := pub.PublishReport(cfg.InputPath, report); err != nil {
			log.Printf("publish report: %v", err)
		}
	}

	logReport(report, totals, reader.Skipped(), demoted, inserted, time.Since(start))

	if metricsSrvCancel != nil {
		metricsSrvCancel()
	}
}

func accumulate(dst *cleaner.Stats, s cleaner.Stats) {
	dst.Total += s.Total
	dst.Valid += s.Valid
	dst.Invalid += s.Invalid
	dst.Duplicates += s.Duplicates
	dst.Imputations += s.Imputations
	dst.CoordinateErrors += s.CoordinateErrors
	dst.TemporalErrors += s.TemporalErrors
	dst.DurationErrors += s.DurationErrors
	dst.DurationOutliers += s.DurationOutliers
}

func logReport(report stats.Report, totals cleaner.Stats, skipped, demoted int, inserted int64, elapsed time.Duration) {
	log.Printf("done in %s", elapsed.Round(time.Millisecond))
	log.Printf("records: %d read, %d valid, %d invalid, %d skipped rows, %d demoted",
		totals.Total, totals.Valid, totals.Invalid, skipped, demoted)
	log.Printf("cleaning: %d imputations, %d duplicates, %d coordinate, %d temporal, %d duration, %d outliers",
		totals.Imputations, totals.Duplicates, totals.CoordinateErrors, totals.TemporalErrors,
		totals.DurationErrors, totals.DurationOutliers)
	if inserted > 0 {
		log.Printf("storage: %d rows inserted", inserted)
	}

	s := report.Summary
	log.Printf("summary: %d trips, avg %.2f km, avg %.1f km/h, avg quality %.1f, %d weekend trips",
		s.TotalTrips, s.AvgDistance, s.AvgSpeed, s.AvgQuality, s.WeekendTrips)
	e := report.Efficiency
	log.Printf("efficiency: avg %.1f%%, median %.1f%%, %d high, %d low, avg idle %.0fs",
		e.AvgEfficiency, e.MedianEfficiency, e.HighEfficiencyTrips, e.LowEfficiencyTrips, e.AvgIdleTimeSec)
	for _, b := range report.SpeedBuckets {
		log.Printf("speed %s km/h: %d trips", b.Label, b.TripCount)
	}
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()  { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc() { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
