// Package testutil provides shared test helpers and a synthetic flight log.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// FlightSample is one instant of the synthetic flight. Every topic is
// sampled at the same timestamp.
type FlightSample struct {
	Time                 uint64
	Lat, Lon             float64
	RefLat, RefLon       float64
	TargetLat, TargetLon float64
	XYGlobal, ZGlobal    float64
	NavState             float64
}

// Flight returns a six-sample flight. The third sample has an invalid
// horizontal estimate. Samples 1 and 3..5 are in auto navigation states,
// split into two runs by a manual sample.
func Flight() []FlightSample {
	nav := []float64{2, 3, 4, 2, 5, 5}
	out := make([]FlightSample, len(nav))
	for i := range out {
		target := 47.01
		targetLon := 8.01
		if i >= 3 {
			target, targetLon = 47.02, 8.02
		}
		out[i] = FlightSample{
			Time:      uint64(i * 10),
			Lat:       47.0 + float64(i)*0.001,
			Lon:       8.0 + float64(i)*0.002,
			RefLat:    46.9,
			RefLon:    7.9,
			TargetLat: target,
			TargetLon: targetLon,
			XYGlobal:  1,
			ZGlobal:   1,
			NavState:  nav[i],
		}
	}
	out[2].XYGlobal = 0
	return out
}

type flightTopic struct {
	name   string
	fields []string
	values func(s FlightSample) []float64
}

var flightTopics = []flightTopic{
	{"vehicle_global_position", []string{"lat", "lon", "alt"}, func(s FlightSample) []float64 {
		return []float64{s.Lat, s.Lon, 500}
	}},
	{"vehicle_local_position", []string{"xy_global", "z_global", "ref_lat", "ref_lon"}, func(s FlightSample) []float64 {
		return []float64{s.XYGlobal, s.ZGlobal, s.RefLat, s.RefLon}
	}},
	{"position_setpoint_triplet", []string{"current_lat", "current_lon"}, func(s FlightSample) []float64 {
		return []float64{s.TargetLat, s.TargetLon}
	}},
	{"vehicle_status", []string{"nav_state"}, func(s FlightSample) []float64 {
		return []float64{s.NavState}
	}},
}

// FlightTopics builds instance-0 topic tables for samples.
func FlightTopics(t testing.TB, samples []FlightSample) map[telemetry.TopicKey]*telemetry.TopicTable {
	t.Helper()
	out := make(map[telemetry.TopicKey]*telemetry.TopicTable, len(flightTopics))
	for _, ft := range flightTopics {
		key := telemetry.TopicKey{Name: ft.name, Instance: 0}
		tbl := telemetry.NewTopicTable(key, ft.fields)
		for _, s := range samples {
			if err := tbl.Append(s.Time, ft.values(s)); err != nil {
				t.Fatalf("append %s: %v", key, err)
			}
		}
		out[key] = tbl
	}
	return out
}

// FlightCSV renders samples as a ulog2csv style directory with the given
// file prefix.
func FlightCSV(prefix string, samples []FlightSample) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, ft := range flightTopics {
		var b strings.Builder
		b.WriteString(telemetry.TimestampColumn + "," + strings.Join(ft.fields, ",") + "\n")
		for _, s := range samples {
			b.WriteString(strconv.FormatUint(s.Time, 10))
			for _, v := range ft.values(s) {
				b.WriteString("," + strconv.FormatFloat(v, 'f', -1, 64))
			}
			b.WriteString("\n")
		}
		name := fmt.Sprintf("%s_%s_0.csv", prefix, ft.name)
		fsys[name] = &fstest.MapFile{Data: []byte(b.String())}
	}
	return fsys
}
