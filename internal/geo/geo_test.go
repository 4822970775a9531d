package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

func init() {
	monitoring.SetLogger(nil)
}

var (
	globalPos = telemetry.TopicKey{Name: "vehicle_global_position", Instance: 0}
	localPos  = telemetry.TopicKey{Name: "vehicle_local_position", Instance: 0}
	setpoint  = telemetry.TopicKey{Name: "position_setpoint_triplet", Instance: 0}

	position  = NewSource(globalPos, "lat", "lon")
	reference = NewSource(localPos, "ref_lat", "ref_lon")
	target    = NewSource(setpoint, "current_lat", "current_lon")
)

// flatProjector maps degrees to metres by a fixed scale so expected values
// are exact.
var flatProjector = ProjectorFunc(func(lat, lon float64) (float64, float64, int, error) {
	return lon * 1000, lat * 1000, 32, nil
})

func positionTable(t *testing.T) *telemetry.Table {
	t.Helper()
	tbl, err := telemetry.NewTable([]uint64{0, 10, 20})
	require.NoError(t, err)
	add := func(name string, v []float64) {
		require.NoError(t, tbl.AddColumn(name, v, nil))
	}
	add(position.Lat, []float64{47.0, 47.001, 47.002})
	add(position.Lon, []float64{8.0, 8.002, 8.004})
	add(reference.Lat, []float64{46.9, 46.9, 46.9})
	add(reference.Lon, []float64{7.9, 7.9, 7.9})
	add(target.Lat, []float64{47.01, 47.01, 47.02})
	add(target.Lon, []float64{8.01, 8.01, 8.03})
	return tbl
}

func TestSourceColumnNames(t *testing.T) {
	assert.Equal(t, "vehicle_local_position_0__ref_easting", reference.Easting())
	assert.Equal(t, "vehicle_local_position_0__ref_northing", reference.Northing())
	assert.Equal(t, "vehicle_local_position_0__ref_zone", reference.Zone())
	assert.Equal(t, "vehicle_global_position_0__easting_relative", position.RelativeEasting())
	assert.Equal(t, "position_setpoint_triplet_0__current_northing_relative", target.RelativeNorthing())

	odd := Source{Lat: "gps_0__latitude_deg", Lon: "gps_0__longitude_deg"}
	assert.Equal(t, "gps_0__latitude_deg_easting", odd.Easting())
}

func TestAddAbsolute(t *testing.T) {
	tbl := positionTable(t)
	d := NewDeriver(flatProjector)

	require.NoError(t, d.AddAbsolute(tbl, position))
	east, err := tbl.Column(position.Easting())
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{8000, 8002, 8004}, east.Values, 1e-9)
	zone, err := tbl.Column(position.Zone())
	require.NoError(t, err)
	assert.Equal(t, []float64{32, 32, 32}, zone.Values)

	err = d.AddAbsolute(tbl, position)
	assert.ErrorIs(t, err, telemetry.ErrConfiguration, "explicit re-add must not overwrite")
}

func TestAddAbsoluteUndefinedCells(t *testing.T) {
	tbl, err := telemetry.NewTable([]uint64{0, 1})
	require.NoError(t, err)
	require.NoError(t, tbl.AddColumn(position.Lat, []float64{47, 0}, []bool{true, false}))
	require.NoError(t, tbl.AddColumn(position.Lon, []float64{8, 8}, nil))

	calls := 0
	d := NewDeriver(ProjectorFunc(func(lat, lon float64) (float64, float64, int, error) {
		calls++
		return flatProjector(lat, lon)
	}))
	require.NoError(t, d.AddAbsolute(tbl, position))
	assert.Equal(t, 1, calls)
	north, err := tbl.Column(position.Northing())
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, north.Valid)
}

func TestAddRelative(t *testing.T) {
	tbl := positionTable(t)
	d := NewDeriver(flatProjector)

	require.NoError(t, d.AddRelative(tbl, target, reference))
	require.NoError(t, d.AddRelative(tbl, position, reference))

	for _, src := range []Source{target, position} {
		abs, err := tbl.Column(src.Easting())
		require.NoError(t, err)
		ref, err := tbl.Column(reference.Easting())
		require.NoError(t, err)
		rel, err := tbl.Column(src.RelativeEasting())
		require.NoError(t, err)
		for i := range rel.Values {
			assert.Equal(t, abs.Values[i]-ref.Values[i], rel.Values[i], "row %d of %s", i, src)
		}

		absN, _ := tbl.Column(src.Northing())
		refN, _ := tbl.Column(reference.Northing())
		relN, err := tbl.Column(src.RelativeNorthing())
		require.NoError(t, err)
		for i := range relN.Values {
			assert.Equal(t, absN.Values[i]-refN.Values[i], relN.Values[i])
		}
	}
	assert.InDelta(t, 100.0, mustValue(t, tbl, position.RelativeEasting(), 0), 1e-6)
}

func TestEnsureReferenceIdempotent(t *testing.T) {
	tbl := positionTable(t)
	calls := 0
	d := NewDeriver(ProjectorFunc(func(lat, lon float64) (float64, float64, int, error) {
		calls++
		return flatProjector(lat, lon)
	}))

	require.NoError(t, d.EnsureReference(tbl, reference))
	version := tbl.Version()
	first := append([]float64(nil), mustColumn(t, tbl, reference.Easting()).Values...)

	require.NoError(t, d.EnsureReference(tbl, reference))
	assert.Equal(t, version, tbl.Version())
	assert.Equal(t, first, mustColumn(t, tbl, reference.Easting()).Values)
	assert.Equal(t, 3, calls, "reference projected once")

	// relative derivation reuses the cached reference
	require.NoError(t, d.AddRelative(tbl, position, reference))
	assert.Equal(t, 6, calls)
}

func TestEnsureAbsolutePartialColumns(t *testing.T) {
	tbl := positionTable(t)
	require.NoError(t, tbl.AddColumn(position.Easting(), []float64{1, 2, 3}, nil))

	err := NewDeriver(flatProjector).EnsureAbsolute(tbl, position)
	require.ErrorIs(t, err, telemetry.ErrConfiguration)
	assert.Contains(t, err.Error(), position.Northing())
	assert.False(t, tbl.Has(position.Northing()), "nothing is added for a partial set")
}

func TestAddRelativeMissingColumns(t *testing.T) {
	tbl, err := telemetry.NewTable([]uint64{0})
	require.NoError(t, err)
	require.NoError(t, tbl.AddColumn(position.Lat, []float64{47}, nil))
	require.NoError(t, tbl.AddColumn(position.Lon, []float64{8}, nil))

	err = NewDeriver(flatProjector).AddRelative(tbl, position, reference)
	require.ErrorIs(t, err, telemetry.ErrLookup)
	assert.Contains(t, err.Error(), reference.Lat)
	assert.False(t, tbl.Has(position.RelativeEasting()))
}

func TestProjectorErrorsPropagate(t *testing.T) {
	tbl := positionTable(t)
	boom := errors.New("outside zone")
	d := NewDeriver(ProjectorFunc(func(lat, lon float64) (float64, float64, int, error) {
		return 0, 0, 0, boom
	}))
	err := d.AddAbsolute(tbl, position)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "row 0")
}

func TestUTMProjector(t *testing.T) {
	var p Projector = UTMProjector{}

	// equator on the central meridian of zone 31
	e, n, zone, err := p.Project(0, 3)
	require.NoError(t, err)
	assert.Equal(t, 31, zone)
	assert.InDelta(t, 500000, e, 1e-3)
	assert.InDelta(t, 0, n, 1e-3)

	// southern hemisphere carries the false northing
	_, n, _, err = p.Project(-10, 3)
	require.NoError(t, err)
	assert.Greater(t, n, 8_000_000.0)
	assert.Less(t, n, 10_000_000.0)

	_, _, _, err = p.Project(89, 3)
	assert.ErrorIs(t, err, telemetry.ErrRange)
}

func mustColumn(t *testing.T, tbl *telemetry.Table, name string) *telemetry.Column {
	t.Helper()
	c, err := tbl.Column(name)
	require.NoError(t, err)
	return c
}

func mustValue(t *testing.T, tbl *telemetry.Table, name string, row int) float64 {
	t.Helper()
	v, ok, err := tbl.Value(name, row)
	require.NoError(t, err)
	require.True(t, ok)
	return v
}
