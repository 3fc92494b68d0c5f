// Package domain models USGS earthquake feed data.
//
// # Data Source
//
// Events originate from the USGS Earthquake Hazards Program GeoJSON feeds.
// Two upstream shapes are consumed:
//
//   - Aggregated summary feeds, one file per retrospective window
//     (all_day, all_week, all_month), fetched as-is and filtered client-side.
//   - The fdsnws event query endpoint, which accepts latitude/longitude/
//     maxradiuskm/starttime/endtime/minmagnitude parameters and returns the
//     same feature-collection shape already constrained server-side.
//
// # Feed Conventions
//
// Each feature carries `properties.mag`, `properties.place`,
// `properties.time` (epoch milliseconds UTC), `properties.url`, and
// `geometry.coordinates = [lon, lat, depth_km]`; note the lon-lat order.
//
// Magnitude may legitimately be zero or negative: networks publish
// sub-noise-floor readings, and downstream classification must tolerate
// them. A missing magnitude defaults to 0, a missing place to "Unknown",
// and a missing time to the current clock reading; only a feature with no
// usable geometry or no properties block is rejected outright.
//
// # ID Generation
//
// The feed's feature ID is used verbatim when present; USGS IDs are stable
// across polls for the same physical event, which is what change detection
// keys on. When absent, a deterministic SHA-256 hash of time and coordinates
// stands in, so re-normalizing the same reading always reproduces the same
// identifier. See [generateID].
//
// # Severity Classification
//
// Derived from magnitude using bands loosely following the conventional
// Richter descriptors. The five-level scale (minor, light, moderate, strong,
// major) is a project-specific simplification for alert routing:
//
//	<3.0 minor | <4.5 light | <6.0 moderate | <7.0 strong | >=7.0 major
//
// Anything at or below zero lands in the minor band rather than erroring.
package domain
