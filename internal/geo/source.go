package geo

import (
	"fmt"
	"strings"

	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Source names the latitude and longitude columns of one position in the
// table. Derived columns share the latitude column's name with its trailing
// "lat" replaced, e.g. vehicle_local_position_0__ref_lat becomes
// vehicle_local_position_0__ref_easting.
type Source struct {
	Lat string
	Lon string
}

// NewSource builds a Source from a topic key and its field names.
func NewSource(key telemetry.TopicKey, latField, lonField string) Source {
	return Source{
		Lat: telemetry.NamespacedField(key, latField),
		Lon: telemetry.NamespacedField(key, lonField),
	}
}

func (s Source) base() string {
	if strings.HasSuffix(s.Lat, "lat") {
		return strings.TrimSuffix(s.Lat, "lat")
	}
	return s.Lat + "_"
}

// Easting is the absolute easting column.
func (s Source) Easting() string { return s.base() + "easting" }

// Northing is the absolute northing column.
func (s Source) Northing() string { return s.base() + "northing" }

// Zone is the projection zone column.
func (s Source) Zone() string { return s.base() + "zone" }

// RelativeEasting is the easting column relative to a reference.
func (s Source) RelativeEasting() string { return s.Easting() + "_relative" }

// RelativeNorthing is the northing column relative to a reference.
func (s Source) RelativeNorthing() string { return s.Northing() + "_relative" }

func (s Source) String() string {
	return fmt.Sprintf("(%s, %s)", s.Lat, s.Lon)
}

// RequireColumns returns an ErrLookup listing every name missing from table.
func RequireColumns(table *telemetry.Table, names ...string) error {
	var missing []string
	for _, n := range names {
		if !table.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %s", telemetry.ErrLookup, strings.Join(missing, ", "))
	}
	return nil
}
