package domain

import "time"

// RawSample is an unfiltered reading as delivered by a location provider.
// Accuracy is nil when the provider did not report one.
type RawSample struct {
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// GeoFix is a sample that passed the accuracy gate.
type GeoFix struct {
	Lat            float64
	Lon            float64
	AccuracyMeters float64
	Timestamp      time.Time
}

func (f GeoFix) Point() Point {
	return Point{Lat: f.Lat, Lng: f.Lon}
}

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Mode string

const (
	ModeForeground Mode = "foreground"
	ModeBackground Mode = "background"
)

func (m Mode) Valid() bool {
	return m == ModeForeground || m == ModeBackground
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mode      Mode      `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}
