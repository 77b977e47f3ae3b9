package utils

import "strconv"

// MapLink builds the map URL opened for a sensor location.
func MapLink(lat, lng float64) string {
	return "https://maps.google.com/maps?q=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(lng, 'f', -1, 64)
}

// ValidCoordinates reports whether lat/lng are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
