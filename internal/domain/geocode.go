package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attempts to attach a place name to a candidate center.
// If geocoder is nil the candidate is returned untouched; a failed lookup sets
// GeoSource to "failed" and never drops the candidate.
func EnrichWithGeocoding(ctx context.Context, c Candidate, geocoder Geocoder, logger *slog.Logger) Candidate {
	if geocoder == nil {
		return c
	}

	result, err := geocoder.ReverseGeocode(ctx, c.Lat, c.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"candidate_id", c.ID,
			"lat", c.Lat,
			"lon", c.Lon,
			"error", err,
		)
		c.GeoSource = "failed"
		return c
	}
	if result.FormattedAddress == "" {
		c.GeoSource = "original"
		return c
	}
	c.FormattedAddress = result.FormattedAddress
	c.PlaceName = result.PlaceName
	c.GeoConfidence = result.Confidence
	c.GeoSource = "reverse"
	return c
}
