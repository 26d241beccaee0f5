package refdata

import (
	"encoding/json"
	"fmt"
	"os"

	"adsb-tracker/pkg/aircraft"
)

// airportJSON/runwayJSON/frequencyJSON mirror the stable JSON schema
// produced by the upstream CSV→JSON conversion utility (out of
// scope here — this package only ever reads its output).
type airportJSON struct {
	ICAOCode     string        `json:"icao_code"`
	IATACode     string        `json:"iata_code"`
	Name         string        `json:"name"`
	Type         string        `json:"type"`
	LatitudeDeg  float64       `json:"latitude_deg"`
	LongitudeDeg float64       `json:"longitude_deg"`
	ElevationFt  float64       `json:"elevation_ft"`
	Runways      []runwayJSON  `json:"runways"`
	Frequencies  []freqJSON    `json:"frequencies"`
}

type runwayJSON struct {
	LEIdent        string  `json:"le_ident"`
	LEHeadingDegT  float64 `json:"le_heading_degT"`
	LELatitudeDeg  float64 `json:"le_latitude_deg"`
	LELongitudeDeg float64 `json:"le_longitude_deg"`
	HEIdent        string  `json:"he_ident"`
	HEHeadingDegT  float64 `json:"he_heading_degT"`
	HELatitudeDeg  float64 `json:"he_latitude_deg"`
	HELongitudeDeg float64 `json:"he_longitude_deg"`
	LengthFt       float64 `json:"length_ft"`
	WidthFt        float64 `json:"width_ft"`
	Surface        string  `json:"surface"`
	Lighted        bool    `json:"lighted"`
	Closed         bool    `json:"closed"`
}

type freqJSON struct {
	Type         string  `json:"type"`
	Description  string  `json:"description"`
	FrequencyMHz float64 `json:"frequency_mhz"`
}

var airportTypeByName = map[string]aircraft.AirportType{
	"closed":        aircraft.AirportClosed,
	"heliport":      aircraft.AirportHeliport,
	"small_airport":  aircraft.AirportSmall,
	"medium_airport": aircraft.AirportMedium,
	"large_airport":  aircraft.AirportLarge,
}

// LoadAirportsFromFile reads the stable airports JSON schema into
// Airport records, for use with NewAirportIndex.
func LoadAirportsFromFile(path string) ([]aircraft.Airport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: read airports file: %w", err)
	}
	var raw []airportJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("refdata: parse airports file: %w", err)
	}
	out := make([]aircraft.Airport, 0, len(raw))
	for _, a := range raw {
		out = append(out, airportFromJSON(a))
	}
	return out, nil
}

func airportFromJSON(a airportJSON) aircraft.Airport {
	runways := make([]aircraft.Runway, 0, len(a.Runways))
	for _, r := range a.Runways {
		runways = append(runways, aircraft.Runway{
			LEIdent: r.LEIdent, LEHeadingDegT: r.LEHeadingDegT,
			LELatitudeDeg: r.LELatitudeDeg, LELongitudeDeg: r.LELongitudeDeg,
			HEIdent: r.HEIdent, HEHeadingDegT: r.HEHeadingDegT,
			HELatitudeDeg: r.HELatitudeDeg, HELongitudeDeg: r.HELongitudeDeg,
			LengthFt: r.LengthFt, WidthFt: r.WidthFt,
			Surface: r.Surface, Lighted: r.Lighted, Closed: r.Closed,
		})
	}
	freqs := make([]aircraft.Frequency, 0, len(a.Frequencies))
	for _, f := range a.Frequencies {
		freqs = append(freqs, aircraft.Frequency{Type: f.Type, Description: f.Description, FrequencyMHz: f.FrequencyMHz})
	}
	return aircraft.Airport{
		ICAOCode: a.ICAOCode, IATACode: a.IATACode, Name: a.Name,
		Type:         airportTypeByName[a.Type],
		LatitudeDeg:  a.LatitudeDeg,
		LongitudeDeg: a.LongitudeDeg,
		ElevationFt:  a.ElevationFt,
		Runways:      runways,
		Frequencies:  freqs,
	}
}

type squawkRangeJSON struct {
	Begin       string   `json:"begin"`
	End         string   `json:"end,omitempty"`
	Type        string   `json:"type"`
	Description []string `json:"description"`
}

// LoadSquawksFromFile reads the stable UK-CAA-derived squawk ranges JSON
// schema into SquawkRange records, for use with NewSquawkTable. begin
// and end must be JSON strings; a digit string shorter than four
// characters is left-padded to the canonical 4-digit form. A bare JSON
// number is not accepted and fails the parse.
func LoadSquawksFromFile(path string) ([]aircraft.SquawkRange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: read squawks file: %w", err)
	}
	var raw []squawkRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("refdata: parse squawks file: %w", err)
	}
	out := make([]aircraft.SquawkRange, 0, len(raw))
	for _, r := range raw {
		begin, err := aircraft.ParseSquawk(normalizeCode(r.Begin))
		if err != nil {
			return nil, fmt.Errorf("refdata: squawk range %q: %w", r.Begin, err)
		}
		var end aircraft.Squawk
		if r.End != "" {
			end, err = aircraft.ParseSquawk(normalizeCode(r.End))
			if err != nil {
				return nil, fmt.Errorf("refdata: squawk range %q: %w", r.End, err)
			}
		}
		out = append(out, aircraft.SquawkRange{
			Begin:       begin,
			End:         end,
			Type:        aircraft.SquawkRangeType(r.Type),
			Description: r.Description,
		})
	}
	return out, nil
}

// normalizeCode left-pads a squawk digit string shorter than four
// characters (e.g. "20") to 4 digits.
func normalizeCode(s string) string {
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
