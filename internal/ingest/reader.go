// Package ingest streams raw trip records out of a CSV export in batches.
// Columns are resolved by header name, so column order in the file does
// not matter. Rows that cannot be parsed are skipped and counted, never
// fatal.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"trip-pipeline/internal/trip"
)

const timeLayout = "2006-01-02 15:04:05"

var requiredColumns = []string{
	"id",
	"pickup_datetime",
	"dropoff_datetime",
	"pickup_latitude",
	"pickup_longitude",
	"dropoff_latitude",
	"dropoff_longitude",
	"trip_duration",
}

// Reader yields batches of RawRecords from one CSV source. Not safe for
// concurrent use.
type Reader struct {
	csv       *csv.Reader
	closer    io.Closer
	columns   map[string]int
	batchSize int
	skipped   int
	line      int
}

// Open opens the file at path and prepares a batched reader over it.
func Open(path string, batchSize int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	r, err := New(f, batchSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// New wraps an already-open CSV stream. The header row is consumed here.
func New(src io.Reader, batchSize int) (*Reader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("input missing required column %q", name)
		}
	}
	return &Reader{csv: cr, columns: columns, batchSize: batchSize, line: 1}, nil
}

// Next returns the next batch, up to the configured batch size. It returns
// io.EOF once the source is exhausted; a final short batch comes first.
func (r *Reader) Next() ([]trip.RawRecord, error) {
	batch := make([]trip.RawRecord, 0, r.batchSize)
	for len(batch) < r.batchSize {
		row, err := r.csv.Read()
		if err == io.EOF {
			if len(batch) == 0 {
				return nil, io.EOF
			}
			return batch, nil
		}
		if err != nil {
			r.line++
			r.skipped++
			continue
		}
		r.line++
		rec, ok := r.parseRow(row)
		if !ok {
			r.skipped++
			continue
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

// Skipped reports how many rows were dropped as unparseable so far.
func (r *Reader) Skipped() int { return r.skipped }

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) parseRow(row []string) (trip.RawRecord, bool) {
	rec := trip.RawRecord{ID: r.field(row, "id")}
	if rec.ID == "" {
		return rec, false
	}

	var err error
	if rec.PickupTime, err = parseTime(r.field(row, "pickup_datetime")); err != nil {
		return rec, false
	}
	if rec.DropoffTime, err = parseTime(r.field(row, "dropoff_datetime")); err != nil {
		return rec, false
	}
	if rec.PickupLat, err = strconv.ParseFloat(r.field(row, "pickup_latitude"), 64); err != nil {
		return rec, false
	}
	if rec.PickupLon, err = strconv.ParseFloat(r.field(row, "pickup_longitude"), 64); err != nil {
		return rec, false
	}
	if rec.DropoffLat, err = strconv.ParseFloat(r.field(row, "dropoff_latitude"), 64); err != nil {
		return rec, false
	}
	if rec.DropoffLon, err = strconv.ParseFloat(r.field(row, "dropoff_longitude"), 64); err != nil {
		return rec, false
	}
	if rec.DurationSec, err = strconv.Atoi(r.field(row, "trip_duration")); err != nil {
		return rec, false
	}

	// Optional columns: empty or absent means missing, the cleaner imputes.
	if v := r.field(row, "vendor_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			rec.VendorID = &id
		}
	}
	if v := r.field(row, "passenger_count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			rec.PassengerCount = &n
		}
	}
	rec.StoreAndFwdFlag = strings.ToUpper(r.field(row, "store_and_fwd_flag"))

	return rec, true
}

func (r *Reader) field(row []string, name string) string {
	idx, ok := r.columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
