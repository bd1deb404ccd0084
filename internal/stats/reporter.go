// Package stats aggregates enriched trips into the report the pipeline
// persists and logs. Summarize is a pure full recompute: feed it the same
// records and it produces the same report.
package stats

import (
	"fmt"

	"trip-pipeline/internal/algo"
	"trip-pipeline/internal/trip"
)

// Summary is the dataset-wide roll-up.
type Summary struct {
	TotalTrips    int
	AvgDuration   float64
	AvgDistance   float64
	AvgSpeed      float64
	AvgPassengers float64
	AvgQuality    float64
	WeekendTrips  int
}

// HourlyRow aggregates trips by pickup hour 0..23.
type HourlyRow struct {
	Hour        int
	TripCount   int
	AvgSpeed    float64
	MedianSpeed float64
}

// DailyRow aggregates trips by pickup date (YYYY-MM-DD).
type DailyRow struct {
	Date           string
	TripCount      int
	AvgDistance    float64
	MedianDistance float64
}

// SpeedBucket counts trips in one fixed speed band. Max is 0 for the
// open-ended top band.
type SpeedBucket struct {
	Label     string
	MinKMH    float64
	MaxKMH    float64
	TripCount int
}

// EfficiencyMetrics summarizes how close trips run to their bucket
// benchmark. High is above 80 percent, low below 40.
type EfficiencyMetrics struct {
	AvgEfficiency       float64
	MedianEfficiency    float64
	AvgIdleTimeSec      float64
	HighEfficiencyTrips int
	LowEfficiencyTrips  int
}

const (
	highEfficiencyPct = 80.0
	lowEfficiencyPct  = 40.0
)

// Report is the full statistics output for one dataset.
type Report struct {
	Summary      Summary
	Hourly       [24]HourlyRow
	Daily        []DailyRow
	SpeedBuckets []SpeedBucket
	Efficiency   EfficiencyMetrics
}

// Summarize recomputes the report from scratch with the default speed
// bucket edges. Invalid records are skipped; callers normally pass only
// enriched (hence valid) records but the guard keeps the aggregates
// honest either way.
func Summarize(records []trip.EnrichedRecord) Report {
	return SummarizeWith(records, trip.DefaultSpeedBucketEdges())
}

// SummarizeWith is Summarize with caller-provided speed bucket edges.
// Edges must be ascending; the last edge opens the top band.
func SummarizeWith(records []trip.EnrichedRecord, edges []float64) Report {
	if len(edges) == 0 {
		edges = trip.DefaultSpeedBucketEdges()
	}
	valid := records[:0:0]
	for _, r := range records {
		if r.IsValid {
			valid = append(valid, r)
		}
	}

	var report Report
	report.Summary = summarize(valid)
	report.Hourly = hourly(valid)
	report.Daily = daily(valid)
	report.SpeedBuckets = speedBuckets(valid, edges)
	report.Efficiency = efficiency(valid)
	return report
}

func summarize(recs []trip.EnrichedRecord) Summary {
	s := Summary{TotalTrips: len(recs)}
	if len(recs) == 0 {
		return s
	}
	durations := make([]float64, len(recs))
	distances := make([]float64, len(recs))
	speeds := make([]float64, len(recs))
	passengers := make([]float64, len(recs))
	quality := make([]float64, len(recs))
	for i, r := range recs {
		durations[i] = float64(r.DurationSec)
		distances[i] = r.DistanceKM
		speeds[i] = r.SpeedKMH
		passengers[i] = float64(r.PassengerCount)
		quality[i] = r.QualityScore
		if r.IsWeekend {
			s.WeekendTrips++
		}
	}
	s.AvgDuration = algo.Describe(durations).Mean
	s.AvgDistance = algo.Describe(distances).Mean
	s.AvgSpeed = algo.Describe(speeds).Mean
	s.AvgPassengers = algo.Describe(passengers).Mean
	s.AvgQuality = algo.Describe(quality).Mean
	return s
}

func hourly(recs []trip.EnrichedRecord) [24]HourlyRow {
	var rows [24]HourlyRow
	byHour := make(map[int][]float64)
	for _, r := range recs {
		h := r.PickupTime.Hour()
		byHour[h] = append(byHour[h], r.SpeedKMH)
	}
	for h := 0; h < 24; h++ {
		rows[h].Hour = h
		speeds := byHour[h]
		if len(speeds) == 0 {
			continue
		}
		rows[h].TripCount = len(speeds)
		rows[h].AvgSpeed = algo.Describe(speeds).Mean
		rows[h].MedianSpeed, _ = algo.Median(speeds)
	}
	return rows
}

func daily(recs []trip.EnrichedRecord) []DailyRow {
	byDate := make(map[string][]float64)
	dateKey := make(map[string]float64)
	for _, r := range recs {
		date := r.PickupTime.Format("2006-01-02")
		byDate[date] = append(byDate[date], r.DistanceKM)
		dateKey[date] = float64(r.PickupTime.Unix() / 86400)
	}
	rows := make([]DailyRow, 0, len(byDate))
	for date, distances := range byDate {
		median, _ := algo.Median(distances)
		rows = append(rows, DailyRow{
			Date:           date,
			TripCount:      len(distances),
			AvgDistance:    algo.Describe(distances).Mean,
			MedianDistance: median,
		})
	}
	algo.SortBy(rows, func(r DailyRow) float64 { return dateKey[r.Date] }, false)
	return rows
}

func speedBuckets(recs []trip.EnrichedRecord, edges []float64) []SpeedBucket {
	buckets := make([]SpeedBucket, len(edges))
	for i, lo := range edges {
		buckets[i].MinKMH = lo
		if i < len(edges)-1 {
			buckets[i].MaxKMH = edges[i+1]
			buckets[i].Label = fmt.Sprintf("%.0f-%.0f", lo, buckets[i].MaxKMH)
		} else {
			buckets[i].Label = fmt.Sprintf("%.0f+", lo)
		}
	}
	for _, r := range recs {
		idx := len(buckets) - 1
		for i := 0; i < len(buckets)-1; i++ {
			if r.SpeedKMH < buckets[i].MaxKMH {
				idx = i
				break
			}
		}
		buckets[idx].TripCount++
	}
	return buckets
}

func efficiency(recs []trip.EnrichedRecord) EfficiencyMetrics {
	var m EfficiencyMetrics
	if len(recs) == 0 {
		return m
	}
	effs := make([]float64, len(recs))
	idles := make([]float64, len(recs))
	for i, r := range recs {
		effs[i] = r.EfficiencyPct
		idles[i] = r.IdleTimeSec
		if r.EfficiencyPct > highEfficiencyPct {
			m.HighEfficiencyTrips++
		}
		if r.EfficiencyPct < lowEfficiencyPct {
			m.LowEfficiencyTrips++
		}
	}
	m.AvgEfficiency = algo.Describe(effs).Mean
	m.MedianEfficiency, _ = algo.Median(effs)
	m.AvgIdleTimeSec = algo.Describe(idles).Mean
	return m
}
