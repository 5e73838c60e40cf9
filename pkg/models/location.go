package models

// UnknownLocation is attached when the geocoder has no address for a point.
const UnknownLocation = "Unknown"

const (
	TopLocationsKey = "topLocations"
	StartLatKey     = "start_lat"
	StartLngKey     = "start_lng"
	LocationNameKey = "location_name"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Centroid is one row of the centroid reference table.
type Centroid struct {
	Latitude  float64 `json:"start_lat"`
	Longitude float64 `json:"start_lng"`
	ClusterID int     `json:"location_cluster"`
}
