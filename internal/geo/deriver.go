package geo

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/telemetry"
)

// Deriver adds projected and reference-relative coordinate columns to a
// table. It holds no table state; the presence of a column in the table is
// the cache.
type Deriver struct {
	Projector Projector
}

// NewDeriver returns a Deriver using p, or UTMProjector when p is nil.
func NewDeriver(p Projector) *Deriver {
	if p == nil {
		p = UTMProjector{}
	}
	return &Deriver{Projector: p}
}

// AddAbsolute projects src row by row and adds its easting, northing and
// zone columns. Undefined source cells give undefined outputs. It fails if
// the columns already exist; use EnsureAbsolute for the idempotent form.
func (d *Deriver) AddAbsolute(table *telemetry.Table, src Source) error {
	if err := RequireColumns(table, src.Lat, src.Lon); err != nil {
		return fmt.Errorf("source %s: %w", src, err)
	}
	lat, _ := table.Column(src.Lat)
	lon, _ := table.Column(src.Lon)

	n := table.Len()
	east := make([]float64, n)
	north := make([]float64, n)
	zone := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if !lat.Valid[i] || !lon.Valid[i] {
			continue
		}
		e, no, z, err := d.Projector.Project(lat.Values[i], lon.Values[i])
		if err != nil {
			return fmt.Errorf("source %s row %d: %w", src, i, err)
		}
		east[i], north[i], zone[i] = e, no, float64(z)
		valid[i] = true
	}

	// validity slices are shared read-only between the three columns
	if err := table.AddColumn(src.Easting(), east, valid); err != nil {
		return err
	}
	if err := table.AddColumn(src.Northing(), north, append([]bool(nil), valid...)); err != nil {
		return err
	}
	if err := table.AddColumn(src.Zone(), zone, append([]bool(nil), valid...)); err != nil {
		return err
	}
	monitoring.Debugf("geo: projected %s into %s/%s", src, src.Easting(), src.Northing())
	return nil
}

// EnsureAbsolute adds the absolute columns of src unless they are already
// present. Presence, not value, is checked. A partial set of easting,
// northing and zone columns is an ErrConfiguration.
func (d *Deriver) EnsureAbsolute(table *telemetry.Table, src Source) error {
	cols := []string{src.Easting(), src.Northing(), src.Zone()}
	var present, missing []string
	for _, c := range cols {
		if table.Has(c) {
			present = append(present, c)
		} else {
			missing = append(missing, c)
		}
	}
	switch len(present) {
	case 0:
		return d.AddAbsolute(table, src)
	case len(cols):
		return nil
	}
	return fmt.Errorf("%w: source %s has %v but not %v",
		telemetry.ErrConfiguration, src, present, missing)
}

// EnsureReference resolves the reference coordinates once. Calling it again
// on the same table is a no-op.
func (d *Deriver) EnsureReference(table *telemetry.Table, ref Source) error {
	return d.EnsureAbsolute(table, ref)
}

// AddRelative adds src's easting and northing relative to ref. Absolute
// columns are computed only if absent. A relative cell is defined only where
// both inputs are.
func (d *Deriver) AddRelative(table *telemetry.Table, src, ref Source) error {
	if err := d.EnsureReference(table, ref); err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	if err := d.EnsureAbsolute(table, src); err != nil {
		return err
	}

	pairs := [][3]string{
		{src.RelativeEasting(), src.Easting(), ref.Easting()},
		{src.RelativeNorthing(), src.Northing(), ref.Northing()},
	}
	for _, p := range pairs {
		s, err := table.Column(p[1])
		if err != nil {
			return err
		}
		r, err := table.Column(p[2])
		if err != nil {
			return err
		}
		rel := make([]float64, table.Len())
		floats.SubTo(rel, s.Values, r.Values)
		valid := make([]bool, table.Len())
		for i := range valid {
			valid[i] = s.Valid[i] && r.Valid[i]
		}
		if err := table.AddColumn(p[0], rel, valid); err != nil {
			return err
		}
	}
	return nil
}
