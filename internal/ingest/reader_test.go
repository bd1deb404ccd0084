package ingest

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "id,vendor_id,pickup_datetime,dropoff_datetime,passenger_count,pickup_longitude,pickup_latitude,dropoff_longitude,dropoff_latitude,store_and_fwd_flag,trip_duration"

func row(id string) string {
	return id + ",2,2016-03-14 17:24:55,2016-03-14 17:32:30,1,-73.982155,40.767937,-73.964630,40.765602,N,455"
}

func TestReaderParsesRow(t *testing.T) {
	r, err := New(strings.NewReader(header+"\n"+row("id2875421")+"\n"), 10)
	require.NoError(t, err)

	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch, 1)

	rec := batch[0]
	assert.Equal(t, "id2875421", rec.ID)
	require.NotNil(t, rec.VendorID)
	assert.Equal(t, 2, *rec.VendorID)
	assert.Equal(t, time.Date(2016, 3, 14, 17, 24, 55, 0, time.UTC), rec.PickupTime)
	assert.Equal(t, time.Date(2016, 3, 14, 17, 32, 30, 0, time.UTC), rec.DropoffTime)
	require.NotNil(t, rec.PassengerCount)
	assert.Equal(t, 1, *rec.PassengerCount)
	assert.InDelta(t, 40.767937, rec.PickupLat, 1e-9)
	assert.InDelta(t, -73.982155, rec.PickupLon, 1e-9)
	assert.Equal(t, "N", rec.StoreAndFwdFlag)
	assert.Equal(t, 455, rec.DurationSec)
}

func TestReaderHeaderOrderIndependent(t *testing.T) {
	src := "trip_duration,id,pickup_datetime,dropoff_datetime,pickup_latitude,pickup_longitude,dropoff_latitude,dropoff_longitude\n" +
		"455,id1,2016-03-14 17:24:55,2016-03-14 17:32:30,40.767937,-73.982155,40.765602,-73.964630\n"
	r, err := New(strings.NewReader(src), 10)
	require.NoError(t, err)

	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "id1", batch[0].ID)
	assert.Equal(t, 455, batch[0].DurationSec)
	// Optional columns absent entirely.
	assert.Nil(t, batch[0].VendorID)
	assert.Nil(t, batch[0].PassengerCount)
	assert.Equal(t, "", batch[0].StoreAndFwdFlag)
}

func TestReaderMissingRequiredColumn(t *testing.T) {
	src := "id,pickup_datetime,dropoff_datetime\nid1,a,b\n"
	_, err := New(strings.NewReader(src), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required column")
}

func TestReaderMissingOptionalValues(t *testing.T) {
	src := header + "\n" +
		"id1,,2016-03-14 17:24:55,2016-03-14 17:32:30,,-73.982155,40.767937,-73.964630,40.765602,,455\n"
	r, err := New(strings.NewReader(src), 10)
	require.NoError(t, err)

	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Nil(t, batch[0].VendorID)
	assert.Nil(t, batch[0].PassengerCount)
	assert.Equal(t, "", batch[0].StoreAndFwdFlag)
}

func TestReaderSkipsMalformedRows(t *testing.T) {
	src := header + "\n" +
		row("id1") + "\n" +
		"id2,2,not-a-date,2016-03-14 17:32:30,1,-73.98,40.76,-73.96,40.76,N,455\n" +
		"id3,2,2016-03-14 17:24:55,2016-03-14 17:32:30,1,bogus,40.76,-73.96,40.76,N,455\n" +
		row("id4") + "\n"
	r, err := New(strings.NewReader(src), 10)
	require.NoError(t, err)

	batch, err := r.Next()
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "id1", batch[0].ID)
	assert.Equal(t, "id4", batch[1].ID)
	assert.Equal(t, 2, r.Skipped())
}

func TestReaderBatching(t *testing.T) {
	var b strings.Builder
	b.WriteString(header + "\n")
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		b.WriteString(row(id) + "\n")
	}
	r, err := New(strings.NewReader(b.String()), 2)
	require.NoError(t, err)

	sizes := []int{}
	for {
		batch, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}
