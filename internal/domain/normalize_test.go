package domain

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func wellFormedFeature() Feature {
	return Feature{
		ID: "us7000abcd",
		Properties: &FeatureProperties{
			Mag:   ptrF(5.2),
			Place: "42 km SSW of Larsen Bay, Alaska",
			Time:  ptrI(1714139400000),
			URL:   "https://earthquake.usgs.gov/earthquakes/eventpage/us7000abcd",
		},
		Geometry: &Geometry{Coordinates: []float64{-154.21, 57.19, 31.4}},
	}
}

func TestNormalizeFeature(t *testing.T) {
	ev, err := NormalizeFeature(wellFormedFeature())
	require.NoError(t, err)

	assert.Equal(t, "us7000abcd", ev.ID)
	assert.Equal(t, 5.2, ev.Magnitude)
	assert.Equal(t, "42 km SSW of Larsen Bay, Alaska", ev.Place)
	assert.Equal(t, time.UnixMilli(1714139400000).UTC(), ev.Time)
	assert.Equal(t, 31.4, ev.DepthKm)
	assert.Equal(t, 57.19, ev.Geo.Lat)
	assert.Equal(t, -154.21, ev.Geo.Lon)
	assert.Equal(t, "moderate", ev.Severity)
}

func TestNormalizeFeature_RejectsMissingGeometry(t *testing.T) {
	f := wellFormedFeature()
	f.Geometry = nil
	_, err := NormalizeFeature(f)
	assert.ErrorIs(t, err, ErrMissingGeometry)

	f = wellFormedFeature()
	f.Geometry = &Geometry{Coordinates: []float64{-154.21}}
	_, err = NormalizeFeature(f)
	assert.ErrorIs(t, err, ErrMissingGeometry)
}

func TestNormalizeFeature_RejectsMissingProperties(t *testing.T) {
	f := wellFormedFeature()
	f.Properties = nil
	_, err := NormalizeFeature(f)
	assert.ErrorIs(t, err, ErrMissingProperties)
}

func TestNormalizeFeature_Defaults(t *testing.T) {
	frozen := time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	f := Feature{
		Properties: &FeatureProperties{},
		Geometry:   &Geometry{Coordinates: []float64{142.3, 38.1}},
	}
	ev, err := NormalizeFeature(f)
	require.NoError(t, err)

	assert.Equal(t, 0.0, ev.Magnitude)
	assert.Equal(t, "Unknown", ev.Place)
	assert.Equal(t, frozen, ev.Time)
	assert.Equal(t, 0.0, ev.DepthKm)
	assert.Equal(t, "minor", ev.Severity)
}

func TestNormalizeFeature_SyntheticIDIsDeterministic(t *testing.T) {
	f := Feature{
		Properties: &FeatureProperties{Time: ptrI(1714139400000)},
		Geometry:   &Geometry{Coordinates: []float64{142.3, 38.1, 10}},
	}
	first, err := NormalizeFeature(f)
	require.NoError(t, err)
	second, err := NormalizeFeature(f)
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.True(t, first.ID == second.ID, "same reading must re-identify to the same ID")
	assert.Contains(t, first.ID, "eq-")
}

func TestNormalizeBatch_SkipsMalformedKeepsSiblings(t *testing.T) {
	good := wellFormedFeature()
	bad := Feature{ID: "broken", Properties: &FeatureProperties{}}
	other := wellFormedFeature()
	other.ID = "us7000efgh"

	events, rejected := NormalizeBatch(FeatureCollection{
		Features: []Feature{good, bad, other},
	}, discardLogger())

	assert.Equal(t, 1, rejected)
	require.Len(t, events, 2)

	ids := []string{events[0].ID, events[1].ID}
	if diff := cmp.Diff([]string{"us7000abcd", "us7000efgh"}, ids); diff != "" {
		t.Errorf("batch IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveSeverity(t *testing.T) {
	tests := []struct {
		mag  float64
		want string
	}{
		{-0.4, "minor"},
		{0, "minor"},
		{2.9, "minor"},
		{3.0, "light"},
		{4.4, "light"},
		{4.5, "moderate"},
		{5.9, "moderate"},
		{6.0, "strong"},
		{7.0, "major"},
		{9.1, "major"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveSeverity(tt.mag), "magnitude %v", tt.mag)
	}
}
