package domain

import "time"

// Document field names as stored by the collector apps.
const (
	FieldMinuteDistance = "distance-in-meter"
	FieldMinutePath     = "lat-lng"
	FieldTotalDistance  = "TotalCoveredDistance"
	FieldLastUpdate     = "last-update-time"
)

type Document struct {
	Path string
	Body map[string]any
}

type MinuteEntry struct {
	Time      string  `json:"time"`
	DistanceM float64 `json:"distance_m"`
	Path      []Point `json:"path"`
}

type DayHistory struct {
	UserID               string        `json:"user_id"`
	Date                 string        `json:"date"`
	TotalCoveredDistance float64       `json:"total_covered_distance"`
	LastUpdateTime       string        `json:"last_update_time"`
	Minutes              []MinuteEntry `json:"minutes"`
}

type DayQuery struct {
	UserID string
	Date   time.Time
}
