package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"trip-pipeline/internal/stats"
	"trip-pipeline/internal/trip"
)

// insertChunk bounds the rows per multi-row INSERT so the parameter count
// stays well under the postgres protocol limit of 65535.
const insertChunk = 500

var tripColumns = []string{
	"trip_id",
	"vendor_id",
	"pickup_datetime",
	"dropoff_datetime",
	"passenger_count",
	"pickup_latitude",
	"pickup_longitude",
	"dropoff_latitude",
	"dropoff_longitude",
	"store_and_fwd_flag",
	"trip_duration",
	"distance_km",
	"speed_kmh",
	"idle_time_sec",
	"efficiency_pct",
	"distance_per_min",
	"trip_complexity",
	"time_of_day",
	"day_of_week",
	"pickup_month",
	"is_weekend",
	"is_rush_hour",
	"pickup_borough",
	"dropoff_borough",
	"cross_borough",
	"patterns",
	"quality_score",
	"anomaly_flags",
}

// Store persists enriched trips and the statistics report. The schema is
// owned by the importer; Store only reads and writes rows.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertEnriched writes a batch of enriched trips. Re-runs are safe: rows
// whose trip_id already exists are left untouched. Returns the number of
// rows actually inserted.
func (s *Store) InsertEnriched(ctx context.Context, recs []trip.EnrichedRecord) (int64, error) {
	var inserted int64
	for start := 0; start < len(recs); start += insertChunk {
		end := start + insertChunk
		if end > len(recs) {
			end = len(recs)
		}
		n, err := s.insertChunk(ctx, recs[start:end])
		if err != nil {
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (s *Store) insertChunk(ctx context.Context, recs []trip.EnrichedRecord) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	cols := len(tripColumns)
	placeholders := make([]string, 0, len(recs))
	args := make([]any, 0, len(recs)*cols)
	for i, r := range recs {
		marks := make([]string, cols)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", i*cols+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ",")+")")
		args = append(args,
			r.ID,
			r.VendorID,
			r.PickupTime,
			r.DropoffTime,
			r.PassengerCount,
			r.PickupLat,
			r.PickupLon,
			r.DropoffLat,
			r.DropoffLon,
			r.StoreAndFwdFlag,
			r.DurationSec,
			r.DistanceKM,
			r.SpeedKMH,
			r.IdleTimeSec,
			r.EfficiencyPct,
			r.DistancePerMin,
			r.Complexity,
			string(r.TimeOfDay),
			int(r.DayOfWeek),
			int(r.PickupMonth),
			r.IsWeekend,
			r.IsRushHour,
			r.PickupBorough,
			r.DropoffBorough,
			r.CrossBorough,
			strings.Join(r.Patterns, ","),
			r.QualityScore,
			r.Flags.String(),
		)
	}
	q := fmt.Sprintf(
		"INSERT INTO trips (%s) VALUES %s ON CONFLICT (trip_id) DO NOTHING",
		strings.Join(tripColumns, ","),
		strings.Join(placeholders, ","),
	)
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("insert trips: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// FetchEnriched reads every persisted trip back, ordered by pickup time,
// so the reporter can run as a standalone refresh over stored data.
func (s *Store) FetchEnriched(ctx context.Context) ([]trip.EnrichedRecord, error) {
	q := `SELECT trip_id, vendor_id, pickup_datetime, dropoff_datetime, passenger_count,
       pickup_latitude, pickup_longitude, dropoff_latitude, dropoff_longitude,
       store_and_fwd_flag, trip_duration, distance_km, speed_kmh, idle_time_sec,
       efficiency_pct, distance_per_min, trip_complexity, time_of_day, day_of_week,
       pickup_month, is_weekend, is_rush_hour, pickup_borough, dropoff_borough,
       cross_borough, patterns, quality_score
FROM trips ORDER BY pickup_datetime`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var recs []trip.EnrichedRecord
	for rows.Next() {
		var r trip.EnrichedRecord
		var bucket, patterns string
		var dow, month int
		if err := rows.Scan(
			&r.ID, &r.VendorID, &r.PickupTime, &r.DropoffTime, &r.PassengerCount,
			&r.PickupLat, &r.PickupLon, &r.DropoffLat, &r.DropoffLon,
			&r.StoreAndFwdFlag, &r.DurationSec, &r.DistanceKM, &r.SpeedKMH, &r.IdleTimeSec,
			&r.EfficiencyPct, &r.DistancePerMin, &r.Complexity, &bucket, &dow,
			&month, &r.IsWeekend, &r.IsRushHour, &r.PickupBorough, &r.DropoffBorough,
			&r.CrossBorough, &patterns, &r.QualityScore,
		); err != nil {
			return nil, err
		}
		r.TimeOfDay = trip.TimeBucket(bucket)
		r.DayOfWeek = time.Weekday(dow)
		r.PickupMonth = time.Month(month)
		if patterns != "" {
			r.Patterns = strings.Split(patterns, ",")
		}
		r.IsValid = true
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ReplaceStatistics rewrites trip_statistics from a fresh report inside one
// transaction. Statistics are always recomputed in full, never patched.
func (s *Store) ReplaceStatistics(ctx context.Context, report stats.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin statistics tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM trip_statistics"); err != nil {
		return fmt.Errorf("clear trip_statistics: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trip_statistics (category, stat_key, trip_count, avg_value, median_value)
         VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare statistics insert: %w", err)
	}
	defer stmt.Close()

	insert := func(category, key string, count int, avg, median float64) error {
		_, err := stmt.ExecContext(ctx, category, key, count, avg, median)
		return err
	}

	sum := report.Summary
	rows := []struct {
		key   string
		value float64
	}{
		{"avg_duration_sec", sum.AvgDuration},
		{"avg_distance_km", sum.AvgDistance},
		{"avg_speed_kmh", sum.AvgSpeed},
		{"avg_passengers", sum.AvgPassengers},
		{"avg_quality", sum.AvgQuality},
		{"weekend_trips", float64(sum.WeekendTrips)},
	}
	for _, row := range rows {
		if err := insert("summary", row.key, sum.TotalTrips, row.value, 0); err != nil {
			return fmt.Errorf("insert summary stat: %w", err)
		}
	}
	for _, h := range report.Hourly {
		if err := insert("hourly", fmt.Sprintf("%02d", h.Hour), h.TripCount, h.AvgSpeed, h.MedianSpeed); err != nil {
			return fmt.Errorf("insert hourly stat: %w", err)
		}
	}
	for _, d := range report.Daily {
		if err := insert("daily", d.Date, d.TripCount, d.AvgDistance, d.MedianDistance); err != nil {
			return fmt.Errorf("insert daily stat: %w", err)
		}
	}
	for _, b := range report.SpeedBuckets {
		if err := insert("speed_bucket", b.Label, b.TripCount, 0, 0); err != nil {
			return fmt.Errorf("insert speed bucket stat: %w", err)
		}
	}
	eff := report.Efficiency
	if err := insert("efficiency", "overall", sum.TotalTrips, eff.AvgEfficiency, eff.MedianEfficiency); err != nil {
		return fmt.Errorf("insert efficiency stat: %w", err)
	}
	if err := insert("efficiency", "idle_time_sec", sum.TotalTrips, eff.AvgIdleTimeSec, 0); err != nil {
		return fmt.Errorf("insert idle stat: %w", err)
	}
	if err := insert("efficiency", "high_efficiency_trips", eff.HighEfficiencyTrips, 0, 0); err != nil {
		return fmt.Errorf("insert high efficiency stat: %w", err)
	}
	if err := insert("efficiency", "low_efficiency_trips", eff.LowEfficiencyTrips, 0, 0); err != nil {
		return fmt.Errorf("insert low efficiency stat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit statistics tx: %w", err)
	}
	return nil
}
