// Package refdata implements the read-only reference-data stores: an
// airport spatial index and a squawk-range table. Both are built once
// at load and never mutated afterward, so they are safe to share
// across every filter without locking.
package refdata

import (
	"sort"

	"adsb-tracker/internal/geo"
	"adsb-tracker/pkg/aircraft"
)

// gridCell is ~0.5 degrees on a side, a coarse index so findNearby does
// not scan every airport on every call.
const gridCellDeg = 0.5

type gridKey struct {
	lat int
	lon int
}

// AirportIndex is an immutable, grid-indexed lookup over airport
// records, kept entirely in memory instead of hitting a database per
// query.
type AirportIndex struct {
	airports []aircraft.Airport
	grid     map[gridKey][]int
}

// NewAirportIndex builds a grid index over the given airports. The slice
// is not retained by reference; callers may reuse it after the call
// returns.
func NewAirportIndex(airports []aircraft.Airport) *AirportIndex {
	idx := &AirportIndex{
		airports: append([]aircraft.Airport(nil), airports...),
		grid:     make(map[gridKey][]int),
	}
	for i, a := range idx.airports {
		k := cellFor(a.LatitudeDeg, a.LongitudeDeg)
		idx.grid[k] = append(idx.grid[k], i)
	}
	return idx
}

func cellFor(lat, lon float64) gridKey {
	return gridKey{lat: int(lat / gridCellDeg), lon: int(lon / gridCellDeg)}
}

// FindNearbyOptions configures FindNearby.
type FindNearbyOptions struct {
	DistanceKm float64 // 0 means use the default ATZ-sized radius
	AltitudeFt float64
	HasAltitude bool
}

const defaultATZRadiusKm = 8.0 // roughly a 4.5 NM aerodrome traffic zone

// FindNearbyResult pairs an airport with its distance from the query
// point, sorted by distance ascending.
type FindNearbyResult struct {
	Airport    aircraft.Airport
	DistanceKm float64
}

// FindNearby returns airports within the configured radius, sorted by
// distance. When altitude is supplied and low (ground level), only
// small/heliport airports are returned, since a ground-altitude contact
// cannot plausibly be near a large airport's approach.
func (idx *AirportIndex) FindNearby(lat, lon float64, opts FindNearbyOptions) []FindNearbyResult {
	radius := opts.DistanceKm
	if radius <= 0 {
		radius = defaultATZRadiusKm
	}

	cellSpan := int(radius/111.0/gridCellDeg) + 1
	center := cellFor(lat, lon)

	seen := make(map[int]bool)
	var out []FindNearbyResult
	for dLat := -cellSpan; dLat <= cellSpan; dLat++ {
		for dLon := -cellSpan; dLon <= cellSpan; dLon++ {
			k := gridKey{lat: center.lat + dLat, lon: center.lon + dLon}
			for _, i := range idx.grid[k] {
				if seen[i] {
					continue
				}
				seen[i] = true
				a := idx.airports[i]
				d := geo.Distance(lat, lon, a.LatitudeDeg, a.LongitudeDeg)
				if d > radius {
					continue
				}
				if opts.HasAltitude && !sizeCompatible(a.Type, opts.AltitudeFt) {
					continue
				}
				out = append(out, FindNearbyResult{Airport: a, DistanceKm: d})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}

// sizeCompatible implements the altitude-aware airport filtering: a
// ground-altitude aircraft (<300 ft) only gets small/heliport airports;
// anything higher can see any size.
func sizeCompatible(t aircraft.AirportType, altitudeFt float64) bool {
	if altitudeFt < 300 {
		return t == aircraft.AirportSmall || t == aircraft.AirportHeliport
	}
	return true
}

// Count returns the number of indexed airports.
func (idx *AirportIndex) Count() int { return len(idx.airports) }
