package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Rejection reasons for malformed feed records. Only geometry and the
// properties block are grounds for rejection; every other missing field
// gets a default instead.
var (
	ErrMissingGeometry   = errors.New("feature has no usable geometry")
	ErrMissingProperties = errors.New("feature has no properties block")
)

// NormalizeFeature maps one raw feed record into the canonical Earthquake
// entity. A record missing its coordinate pair or its properties block is
// rejected; missing magnitude, place, or time default to 0, "Unknown", and
// the current clock reading respectively.
func NormalizeFeature(f Feature) (Earthquake, error) {
	if f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
		return Earthquake{}, ErrMissingGeometry
	}
	if f.Properties == nil {
		return Earthquake{}, ErrMissingProperties
	}

	lon := f.Geometry.Coordinates[0]
	lat := f.Geometry.Coordinates[1]
	var depth float64
	if len(f.Geometry.Coordinates) > 2 {
		depth = f.Geometry.Coordinates[2]
	}

	var mag float64
	if f.Properties.Mag != nil {
		mag = *f.Properties.Mag
	}

	place := f.Properties.Place
	if place == "" {
		place = "Unknown"
	}

	var eventTime time.Time
	if f.Properties.Time != nil {
		eventTime = time.UnixMilli(*f.Properties.Time).UTC()
	} else {
		eventTime = clock.Now().UTC()
	}

	id := f.ID
	if id == "" {
		id = generateID(eventTime.UnixMilli(), lat, lon)
	}

	return Earthquake{
		ID:        id,
		Magnitude: mag,
		Place:     place,
		Time:      eventTime,
		DepthKm:   depth,
		Geo:       Geo{Lat: lat, Lon: lon},
		DetailURL: f.Properties.URL,
		Severity:  DeriveSeverity(mag),
	}, nil
}

// NormalizeBatch normalizes every feature in a collection, skipping
// malformed records. A bad record never fails the batch; it is logged and
// the well-formed siblings are returned. The second result is the number of
// rejected records.
func NormalizeBatch(fc FeatureCollection, logger *slog.Logger) ([]Earthquake, int) {
	events := make([]Earthquake, 0, len(fc.Features))
	rejected := 0
	for _, f := range fc.Features {
		ev, err := NormalizeFeature(f)
		if err != nil {
			rejected++
			logger.Warn("skipping malformed feed record", "feature_id", f.ID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, rejected
}

// generateID produces a deterministic synthetic identifier from the event's
// time and coordinates. Re-normalizing the same physical reading always
// reproduces the same ID, so change detection stays idempotent even when the
// feed omits its own identifier.
func generateID(timeMillis int64, lat, lon float64) string {
	input := fmt.Sprintf("%d|%.4f|%.4f", timeMillis, lat, lon)
	hash := sha256.Sum256([]byte(input))
	return "eq-" + hex.EncodeToString(hash[:8])
}

// DeriveSeverity maps magnitude to a severity label. Zero and negative
// magnitudes (noise events) fall into the minor band; classification never
// fails.
func DeriveSeverity(magnitude float64) string {
	switch {
	case magnitude < 3.0:
		return "minor"
	case magnitude < 4.5:
		return "light"
	case magnitude < 6.0:
		return "moderate"
	case magnitude < 7.0:
		return "strong"
	default:
		return "major"
	}
}
