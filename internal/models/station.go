package models

import "time"

// Station identifies a weather station from the DWD station directory.
// Instances are immutable once constructed; they come from a directory
// lookup or directly from user supplied arguments.
type Station struct {
	Name       string  // display name, "Error" when unknown
	Number     int     // directory station number
	Type       string  // directory type column, e.g. "SY"
	Identifier string  // source-specific identifier, "0" when unknown
	Latitude   float64 // decimal degrees north
	Longitude  float64 // decimal degrees east
	Altitude   int     // meters above normal zero
	RiverBasin string
	State      string
	Start      time.Time // start of the station's data availability
	End        time.Time // end of the station's data availability
}

// NewStation returns a Station with the documented default values.
// Callers overwrite the fields they know.
func NewStation() Station {
	return Station{
		Name:       "Error",
		Identifier: "0",
	}
}
