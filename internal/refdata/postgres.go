package refdata

import (
	"fmt"
	"log"

	"adsb-tracker/internal/database"
	"adsb-tracker/pkg/aircraft"
)

// LoadAirportsFromDB reads the airports/runways tables (populated by the
// out-of-scope CSV→JSON→DB conversion pipeline) into Airport records,
// opening a connection through the shared database package and closing
// it within this call — reference data is loaded once at startup, never
// polled.
func LoadAirportsFromDB(cfg database.Config) ([]aircraft.Airport, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("refdata: connect: %w", err)
	}
	defer db.Close()

	conn := db.Conn()
	log.Printf("[REFDATA] loading airports from database")

	airportRows, err := conn.Query(`
		SELECT icao_code, iata_code, name, type, latitude_deg, longitude_deg, elevation_ft
		FROM airports`)
	if err != nil {
		return nil, fmt.Errorf("refdata: query airports: %w", err)
	}
	defer airportRows.Close()

	airports := make(map[string]*aircraft.Airport)
	var order []string
	for airportRows.Next() {
		var a aircraft.Airport
		var typeName string
		if err := airportRows.Scan(&a.ICAOCode, &a.IATACode, &a.Name, &typeName, &a.LatitudeDeg, &a.LongitudeDeg, &a.ElevationFt); err != nil {
			return nil, fmt.Errorf("refdata: scan airport row: %w", err)
		}
		a.Type = airportTypeByName[typeName]
		airports[a.ICAOCode] = &a
		order = append(order, a.ICAOCode)
	}
	if err := airportRows.Err(); err != nil {
		return nil, fmt.Errorf("refdata: iterate airport rows: %w", err)
	}

	runwayRows, err := conn.Query(`
		SELECT airport_icao, le_ident, le_heading_degt, le_latitude_deg, le_longitude_deg,
		       he_ident, he_heading_degt, he_latitude_deg, he_longitude_deg,
		       length_ft, width_ft, surface, lighted, closed
		FROM runways`)
	if err != nil {
		return nil, fmt.Errorf("refdata: query runways: %w", err)
	}
	defer runwayRows.Close()

	for runwayRows.Next() {
		var icao string
		var r aircraft.Runway
		if err := runwayRows.Scan(&icao, &r.LEIdent, &r.LEHeadingDegT, &r.LELatitudeDeg, &r.LELongitudeDeg,
			&r.HEIdent, &r.HEHeadingDegT, &r.HELatitudeDeg, &r.HELongitudeDeg,
			&r.LengthFt, &r.WidthFt, &r.Surface, &r.Lighted, &r.Closed); err != nil {
			return nil, fmt.Errorf("refdata: scan runway row: %w", err)
		}
		if a, ok := airports[icao]; ok {
			a.Runways = append(a.Runways, r)
		}
	}
	if err := runwayRows.Err(); err != nil {
		return nil, fmt.Errorf("refdata: iterate runway rows: %w", err)
	}

	out := make([]aircraft.Airport, 0, len(order))
	for _, icao := range order {
		out = append(out, *airports[icao])
	}
	log.Printf("[REFDATA] loaded %d airports from database", len(out))
	return out, nil
}

// LoadSquawkRangesFromDB reads the squawk_ranges table into the
// reference-data format NewSquawkTable expects.
func LoadSquawkRangesFromDB(cfg database.Config) ([]aircraft.SquawkRange, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("refdata: connect: %w", err)
	}
	defer db.Close()

	rows, err := db.Conn().Query(`
		SELECT low_code, high_code, category, description
		FROM squawk_ranges ORDER BY low_code`)
	if err != nil {
		return nil, fmt.Errorf("refdata: query squawk_ranges: %w", err)
	}
	defer rows.Close()

	var out []aircraft.SquawkRange
	for rows.Next() {
		var low, high, category, description string
		if err := rows.Scan(&low, &high, &category, &description); err != nil {
			return nil, fmt.Errorf("refdata: scan squawk_ranges row: %w", err)
		}
		begin, err := aircraft.ParseSquawk(low)
		if err != nil {
			return nil, fmt.Errorf("refdata: squawk_ranges row: %w", err)
		}
		var end aircraft.Squawk
		if high != "" && high != low {
			end, err = aircraft.ParseSquawk(high)
			if err != nil {
				return nil, fmt.Errorf("refdata: squawk_ranges row: %w", err)
			}
		}
		out = append(out, aircraft.SquawkRange{
			Begin: begin, End: end,
			Type:        aircraft.SquawkRangeType(category),
			Description: []string{description},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("refdata: iterate squawk_ranges rows: %w", err)
	}

	log.Printf("[REFDATA] loaded %d squawk ranges from database", len(out))
	return out, nil
}
