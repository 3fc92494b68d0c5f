package domain

import "time"

// FeatureCollection is the wire shape shared by the USGS summary feeds and
// the fdsnws query endpoint.
type FeatureCollection struct {
	Features []Feature `json:"features"`
}

// Feature is one raw feed record. Properties and Geometry are pointers so a
// missing block is distinguishable from an empty one.
type Feature struct {
	ID         string             `json:"id"`
	Properties *FeatureProperties `json:"properties"`
	Geometry   *Geometry          `json:"geometry"`
}

// FeatureProperties carries the per-event attributes. Mag and Time are
// pointers because the feed omits them for some provisional readings.
type FeatureProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  *int64   `json:"time"` // epoch milliseconds UTC
	URL   string   `json:"url"`

	// Extended attributes returned by the single-event detail lookup.
	Status  string   `json:"status,omitempty"`
	Tsunami int      `json:"tsunami,omitempty"`
	Felt    *int     `json:"felt,omitempty"`
	CDI     *float64 `json:"cdi,omitempty"`
	MMI     *float64 `json:"mmi,omitempty"`
	Alert   string   `json:"alert,omitempty"`
	Net     string   `json:"net,omitempty"`
	Code    string   `json:"code,omitempty"`
}

// Geometry holds the event coordinates as [lon, lat, depth_km].
type Geometry struct {
	Coordinates []float64 `json:"coordinates"`
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Earthquake is the canonical event entity produced by normalization.
// Instances are immutable; each poll produces a fresh result set that
// supersedes the previous one.
type Earthquake struct {
	ID        string    `json:"id"`
	Magnitude float64   `json:"magnitude"`
	Place     string    `json:"place"`
	Time      time.Time `json:"time"`
	DepthKm   float64   `json:"depth_km"`
	Geo       Geo       `json:"geo"`
	DetailURL string    `json:"detail_url,omitempty"`
	Severity  string    `json:"severity"`
}

// Alert origins.
const (
	OriginLocalUrgent       = "local-urgent-event"
	OriginOperatorBroadcast = "operator-broadcast"
)

// LanguageAll is the broadcast language tag matching every viewer.
const LanguageAll = "all"

// AlertMessage is a single alert to be surfaced to the viewer. It is created
// once (from an Earthquake, or received verbatim over the realtime channel),
// never mutated, and consumed once.
type AlertMessage struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Language  string    `json:"language"` // "all" or a language tag
	Origin    string    `json:"origin"`
	Sound     bool      `json:"sound"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchesLanguage reports whether the message should be delivered to a
// viewer configured for the given language tag.
func (m AlertMessage) MatchesLanguage(viewerLang string) bool {
	return m.Language == LanguageAll || m.Language == viewerLang
}

// PermissionState mirrors the alert surface's permission model.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionDefault PermissionState = "default"
)

// Session is one viewer session's presence record. LastSeen is refreshed by
// the heartbeat loop; staleness is judged by readers, never enforced by the
// store.
type Session struct {
	ID                     string          `json:"session_id"`
	UserAgent              string          `json:"user_agent"`
	LastSeen               time.Time       `json:"last_seen"`
	NotificationPermission PermissionState `json:"notification_permission"`
}
