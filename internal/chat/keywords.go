package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neexbeast/takeabreak/internal/location"
)

// Keywords are the phrases that make a message location-aware.
var Keywords = []string{
	"near me",
	"around me",
	"nearby",
	"aproape de mine",
	"lângă mine",
	"în jur",
}

// WantsProximity reports whether text contains a proximity keyword, ignoring case.
func WantsProximity(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range Keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Listing renders the catalog for the model, one record per line.
func Listing(records []location.Location) string {
	lines := make([]string, 0, len(records))
	for _, l := range records {
		lines = append(lines, fmt.Sprintf("Name: %s; Address: %s; Description: %s; Rating: %s/5",
			l.Name, l.Address, l.ShortDescription, strconv.FormatFloat(l.Rating, 'f', -1, 64)))
	}
	return strings.Join(lines, "\n- ")
}

// withUserLocation appends the device position to a listing.
func withUserLocation(listing string, c location.UserCoordinates) string {
	return listing + fmt.Sprintf(
		"\n\nUser's current location (latitude, longitude): %s, %s. Use this to find nearby places.",
		strconv.FormatFloat(c.Latitude, 'f', -1, 64),
		strconv.FormatFloat(c.Longitude, 'f', -1, 64),
	)
}
