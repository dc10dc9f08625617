package location

import "fmt"

// Coordinates is a latitude/longitude pair as stored in the catalog.
type Coordinates struct {
	Lat  float64 `json:"lat" yaml:"lat"`
	Long float64 `json:"long" yaml:"long"`
}

// Location is a single catalog record. City is derived from Address at load time.
type Location struct {
	Name             string      `json:"name" yaml:"name"`
	Address          string      `json:"address" yaml:"address"`
	City             string      `json:"city" yaml:"-"`
	Coordinates      Coordinates `json:"coordinates" yaml:"coordinates"`
	ImageURL         string      `json:"image_url" yaml:"image_url"`
	ShortDescription string      `json:"short_description" yaml:"short_description"`
	Rating           float64     `json:"rating" yaml:"rating"`
}

// DirectionsURL returns a Google Maps driving-directions link to the location.
func (l Location) DirectionsURL() string {
	return fmt.Sprintf(
		"https://www.google.com/maps/dir/?api=1&destination=%v,%v&travelmode=driving",
		l.Coordinates.Lat, l.Coordinates.Long,
	)
}

// UserCoordinates is the last known device position.
type UserCoordinates struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// CityGroup is one section of a grouped listing.
type CityGroup struct {
	City      string     `json:"city"`
	Locations []Location `json:"locations"`
}
