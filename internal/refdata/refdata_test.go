package refdata

import (
	"testing"

	"adsb-tracker/pkg/aircraft"
)

func TestFindNearbySortedByDistance(t *testing.T) {
	idx := NewAirportIndex([]aircraft.Airport{
		{ICAOCode: "EGLL", Type: aircraft.AirportLarge, LatitudeDeg: 51.4775, LongitudeDeg: -0.4614},
		{ICAOCode: "EGLC", Type: aircraft.AirportMedium, LatitudeDeg: 51.5053, LongitudeDeg: 0.0553},
		{ICAOCode: "FAR", Type: aircraft.AirportSmall, LatitudeDeg: 10, LongitudeDeg: 10},
	})

	results := idx.FindNearby(51.5, -0.1, FindNearbyOptions{DistanceKm: 50})
	if len(results) != 2 {
		t.Fatalf("expected 2 nearby airports, got %d", len(results))
	}
	if results[0].DistanceKm > results[1].DistanceKm {
		t.Fatalf("results not sorted by distance: %+v", results)
	}
}

func TestFindNearbyAltitudeAware(t *testing.T) {
	idx := NewAirportIndex([]aircraft.Airport{
		{ICAOCode: "BIG", Type: aircraft.AirportLarge, LatitudeDeg: 51.5, LongitudeDeg: -0.1},
		{ICAOCode: "SML", Type: aircraft.AirportSmall, LatitudeDeg: 51.5, LongitudeDeg: -0.1},
	})

	ground := idx.FindNearby(51.5, -0.1, FindNearbyOptions{DistanceKm: 10, HasAltitude: true, AltitudeFt: 50})
	if len(ground) != 1 || ground[0].Airport.ICAOCode != "SML" {
		t.Fatalf("ground-altitude query should only see small/heliport, got %+v", ground)
	}

	airborne := idx.FindNearby(51.5, -0.1, FindNearbyOptions{DistanceKm: 10, HasAltitude: true, AltitudeFt: 5000})
	if len(airborne) != 2 {
		t.Fatalf("airborne query should see all sizes, got %d", len(airborne))
	}
}

func TestSquawkTableFindByCode(t *testing.T) {
	table := NewSquawkTable([]aircraft.SquawkRange{
		{Begin: "7700", End: "7700", Type: aircraft.RangeEmergency},
		{Begin: "0020", End: "0023", Type: aircraft.RangeMilitary},
	})

	matches := table.FindByCode("7700")
	if len(matches) != 1 || matches[0].Type != aircraft.RangeEmergency {
		t.Fatalf("expected emergency match, got %+v", matches)
	}

	matches = table.FindByCode("0021")
	if len(matches) != 1 || matches[0].Type != aircraft.RangeMilitary {
		t.Fatalf("expected military range match, got %+v", matches)
	}

	matches = table.FindByCode("1234")
	if len(matches) != 0 {
		t.Fatalf("expected no match, got %+v", matches)
	}
}
