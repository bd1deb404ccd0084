package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"trip-pipeline/internal/trip"
)

type Config struct {
	InputPath    string
	BatchSize    int
	DatabaseURL  string
	DatabaseName string
	NATSURL      string
	MetricsAddr  string

	Validation       trip.ValidationParams
	Features         trip.FeatureParams
	SpeedBucketEdges []float64
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Validation: trip.DefaultValidationParams(),
		Features:   trip.DefaultFeatureParams(),
	}

	cfg.InputPath = os.Getenv("INPUT_PATH")
	if cfg.InputPath == "" {
		return nil, errors.New("INPUT_PATH must be set")
	}

	var err error
	if cfg.BatchSize, err = intEnv("BATCH_SIZE", 10000, 1); err != nil {
		return nil, err
	}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars.
	// Empty disables persistence.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	} else {
		cfg.DatabaseURL = dsn
		// PGDATABASE alongside a full URL swaps the database path in.
		cfg.DatabaseName = os.Getenv("PGDATABASE")
	}

	// NATS URL; empty disables batch summary publishing.
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if err := loadValidation(&cfg.Validation); err != nil {
		return nil, err
	}
	if err := loadFeatures(&cfg.Features); err != nil {
		return nil, err
	}
	if cfg.SpeedBucketEdges, err = edgesEnv("SPEED_BUCKET_EDGES"); err != nil {
		return nil, err
	}
	if cfg.SpeedBucketEdges == nil {
		cfg.SpeedBucketEdges = trip.DefaultSpeedBucketEdges()
	}

	return cfg, nil
}

// edgesEnv parses a comma-separated list of ascending speed bucket edges,
// e.g. "0,15,30,60". The last edge opens the top band.
func edgesEnv(key string) ([]float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid %s: %q (need at least two edges)", key, v)
	}
	edges := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", key, v)
		}
		if i > 0 && f <= edges[i-1] {
			return nil, fmt.Errorf("invalid %s: %q (edges must ascend)", key, v)
		}
		edges[i] = f
	}
	return edges, nil
}

func loadValidation(v *trip.ValidationParams) error {
	var err error
	if v.Bounds.MinLat, err = floatEnv("BBOX_MIN_LAT", v.Bounds.MinLat); err != nil {
		return err
	}
	if v.Bounds.MaxLat, err = floatEnv("BBOX_MAX_LAT", v.Bounds.MaxLat); err != nil {
		return err
	}
	if v.Bounds.MinLon, err = floatEnv("BBOX_MIN_LON", v.Bounds.MinLon); err != nil {
		return err
	}
	if v.Bounds.MaxLon, err = floatEnv("BBOX_MAX_LON", v.Bounds.MaxLon); err != nil {
		return err
	}
	if v.MinDurationSec, err = intEnv("MIN_DURATION_SEC", v.MinDurationSec, 1); err != nil {
		return err
	}
	if v.MaxDurationSec, err = intEnv("MAX_DURATION_SEC", v.MaxDurationSec, 1); err != nil {
		return err
	}
	if v.MaxDurationSec < v.MinDurationSec {
		return fmt.Errorf("MAX_DURATION_SEC (%d) below MIN_DURATION_SEC (%d)", v.MaxDurationSec, v.MinDurationSec)
	}
	if v.DurationToleranceSec, err = intEnv("DURATION_TOLERANCE_SEC", v.DurationToleranceSec, 0); err != nil {
		return err
	}
	if v.MaxPassengers, err = intEnv("MAX_PASSENGERS", v.MaxPassengers, 1); err != nil {
		return err
	}
	if v.DefaultPassengers, err = intEnv("DEFAULT_PASSENGER_COUNT", v.DefaultPassengers, 1); err != nil {
		return err
	}
	if v.DefaultVendorID, err = intEnv("DEFAULT_VENDOR_ID", v.DefaultVendorID, 1); err != nil {
		return err
	}
	if s := os.Getenv("DEFAULT_STORE_AND_FWD"); s != "" {
		v.DefaultStoreAndFwd = strings.ToUpper(strings.TrimSpace(s))
	}
	if v.Weights.Imputation, err = floatEnv("WEIGHT_IMPUTATION", v.Weights.Imputation); err != nil {
		return err
	}
	if v.Weights.PassengerOutlier, err = floatEnv("WEIGHT_PASSENGER_OUTLIER", v.Weights.PassengerOutlier); err != nil {
		return err
	}
	if v.Weights.DurationMismatch, err = floatEnv("WEIGHT_DURATION_MISMATCH", v.Weights.DurationMismatch); err != nil {
		return err
	}
	if v.Weights.DurationOutlier, err = floatEnv("WEIGHT_DURATION_OUTLIER", v.Weights.DurationOutlier); err != nil {
		return err
	}
	if v.OutlierIQRMultiplier, err = floatEnv("OUTLIER_IQR_MULTIPLIER", v.OutlierIQRMultiplier); err != nil {
		return err
	}
	if v.OutlierSampleLimit, err = intEnv("OUTLIER_SAMPLE_LIMIT", v.OutlierSampleLimit, 0); err != nil {
		return err
	}
	return nil
}

func loadFeatures(f *trip.FeatureParams) error {
	if err := loadSpeedTable("BENCHMARK_KMH", f.BenchmarkKMH); err != nil {
		return err
	}
	if err := loadSpeedTable("FREEFLOW_KMH", f.FreeFlowKMH); err != nil {
		return err
	}
	var err error
	if f.RushHourStarts[0], err = intEnv("RUSH_HOUR_MORNING_START", f.RushHourStarts[0], 0); err != nil {
		return err
	}
	if f.RushHourStarts[1], err = intEnv("RUSH_HOUR_EVENING_START", f.RushHourStarts[1], 0); err != nil {
		return err
	}
	if f.ComplexityBaselineKMH, err = floatEnv("COMPLEXITY_BASELINE_KMH", f.ComplexityBaselineKMH); err != nil {
		return err
	}
	return nil
}

// loadSpeedTable reads per-bucket overrides like BENCHMARK_KMH_MORNING_RUSH.
func loadSpeedTable(prefix string, table trip.SpeedTable) error {
	for _, bucket := range trip.Buckets() {
		key := prefix + "_" + strings.ToUpper(string(bucket))
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("invalid %s: %q", key, v)
		}
		table[bucket] = f
	}
	return nil
}

func intEnv(key string, def, min int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
