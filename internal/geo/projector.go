package geo

import (
	"fmt"

	UTM "github.com/im7mortal/UTM"

	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Projector maps latitude/longitude in degrees to planar coordinates in
// metres plus a zone number.
type Projector interface {
	Project(lat, lon float64) (easting, northing float64, zone int, err error)
}

// ProjectorFunc adapts a function to Projector.
type ProjectorFunc func(lat, lon float64) (float64, float64, int, error)

// Project calls f.
func (f ProjectorFunc) Project(lat, lon float64) (float64, float64, int, error) {
	return f(lat, lon)
}

// UTMProjector projects onto the Universal Transverse Mercator grid.
// Southern latitudes use the false northing of 10,000 km.
type UTMProjector struct{}

// Project implements Projector.
func (UTMProjector) Project(lat, lon float64) (float64, float64, int, error) {
	easting, northing, zone, _, err := UTM.FromLatLon(lat, lon, lat >= 0)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: utm (%g, %g): %v", telemetry.ErrRange, lat, lon, err)
	}
	return easting, northing, zone, nil
}
