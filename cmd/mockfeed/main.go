// Command mockfeed serves deterministic USGS-shaped GeoJSON for local
// development, standing in for both the aggregated summary feed and the
// parametrized query endpoint. It uses the actual domain types so the
// generated payloads match real feed behavior.
//
// Usage:
//
//	go run ./cmd/mockfeed -addr :9090 -center-lat 38.9637 -center-lon 35.2433 -count 25
//
// Then point the service at it:
//
//	FEED_BASE_URL=http://localhost:9090/summary \
//	QUERY_BASE_URL=http://localhost:9090/query quakewatchd
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/seismowatch/quake-alert-service/internal/domain"
)

var baseTime = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	centerLat := flag.Float64("center-lat", 38.9637, "latitude events scatter around")
	centerLon := flag.Float64("center-lon", 35.2433, "longitude events scatter around")
	count := flag.Int("count", 25, "number of events to generate")
	flag.Parse()

	features := generate(*centerLat, *centerLon, *count)
	log.Printf("serving %d mock events around (%.4f, %.4f)", len(features), *centerLat, *centerLon)

	mux := http.NewServeMux()
	for _, file := range []string{"all_day.geojson", "all_week.geojson", "all_month.geojson"} {
		mux.HandleFunc("GET /summary/"+file, func(w http.ResponseWriter, _ *http.Request) {
			writeCollection(w, features)
		})
	}
	mux.HandleFunc("GET /query", func(w http.ResponseWriter, r *http.Request) {
		writeCollection(w, filterQuery(features, r))
	})

	log.Printf("mockfeed listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

// generate produces a reproducible scatter of events around the center. A
// fixed seed keeps IDs and magnitudes stable across restarts, so change
// detection downstream behaves the same on every run.
func generate(centerLat, centerLon float64, count int) []domain.Feature {
	rng := rand.New(rand.NewSource(42))
	features := make([]domain.Feature, 0, count)
	for i := 0; i < count; i++ {
		lat := centerLat + (rng.Float64()-0.5)*12
		lon := centerLon + (rng.Float64()-0.5)*12
		mag := 1.0 + rng.Float64()*5.5
		depth := 5 + rng.Float64()*60
		ts := baseTime.Add(time.Duration(i) * 17 * time.Minute).UnixMilli()

		features = append(features, domain.Feature{
			ID: fmt.Sprintf("mock%08d", i),
			Properties: &domain.FeatureProperties{
				Mag:   &mag,
				Place: fmt.Sprintf("%d km from somewhere", 10+i),
				Time:  &ts,
			},
			Geometry: &domain.Geometry{
				Coordinates: []float64{lon, lat, depth},
			},
		})
	}
	return features
}

// filterQuery applies the query endpoint's region and magnitude constraints
// server-side, the way the real fdsnws endpoint does.
func filterQuery(features []domain.Feature, r *http.Request) []domain.Feature {
	q := r.URL.Query()
	lat := parseFloat(q.Get("latitude"), 0)
	lon := parseFloat(q.Get("longitude"), 0)
	radius := parseFloat(q.Get("maxradiuskm"), 20001.6) // fdsnws default: whole globe
	minMag := parseFloat(q.Get("minmagnitude"), 0)
	center := domain.Geo{Lat: lat, Lon: lon}

	var out []domain.Feature
	for _, f := range features {
		if f.Properties == nil || f.Properties.Mag == nil || f.Geometry == nil {
			continue
		}
		if *f.Properties.Mag < minMag {
			continue
		}
		g := domain.Geo{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]}
		if !domain.WithinRadius(center, g, radius) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func parseFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func writeCollection(w http.ResponseWriter, features []domain.Feature) {
	w.Header().Set("Content-Type", "application/geo+json")
	err := json.NewEncoder(w).Encode(domain.FeatureCollection{Features: features})
	if err != nil {
		log.Printf("encode response: %v", err)
	}
}
