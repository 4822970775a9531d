// Package geo derives planar coordinates for the unified table.
//
// Latitude/longitude column pairs are projected through a Projector into
// easting/northing columns, and a moving source is expressed relative to a
// fixed reference (typically the local position origin). ValidityFilter drops
// rows whose coordinates cannot be projected before any of this runs.
package geo
