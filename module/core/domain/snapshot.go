package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	PathSeparator   = "~"
	TimeLabelLayout = "15:04"
	DateLayout      = "2006-01-02"
)

// FlushSnapshot is the per-minute aggregate handed to persistence.
type FlushSnapshot struct {
	UserID         string
	Path           string
	DistanceMeters float64
	TimeLabel      string
	StoragePath    string
	FlushedAt      time.Time
}

// MinutePath is the document key of this snapshot's minute entry.
func (s FlushSnapshot) MinutePath() string {
	return s.StoragePath + "/" + s.TimeLabel
}

// EncodePath renders points as "(lat,lng)~(lat,lng)". A dangling
// separator is never emitted.
func EncodePath(points []Point) string {
	var b strings.Builder
	for _, p := range points {
		b.WriteByte('(')
		b.WriteString(formatCoord(p.Lat))
		b.WriteByte(',')
		b.WriteString(formatCoord(p.Lng))
		b.WriteByte(')')
		b.WriteString(PathSeparator)
	}
	return strings.TrimSuffix(b.String(), PathSeparator)
}

// DecodePath is the inverse of EncodePath. Malformed segments are skipped.
func DecodePath(encoded string) []Point {
	if encoded == "" {
		return nil
	}
	var points []Point
	for _, seg := range strings.Split(encoded, PathSeparator) {
		seg = strings.TrimSuffix(strings.TrimPrefix(seg, "("), ")")
		lat, lng, ok := strings.Cut(seg, ",")
		if !ok {
			continue
		}
		la, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			continue
		}
		ln, err := strconv.ParseFloat(lng, 64)
		if err != nil {
			continue
		}
		points = append(points, Point{Lat: la, Lng: ln})
	}
	return points
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// DayPath builds {root}/{userID}/{yyyy}/{MonthName}/{yyyy-mm-dd}.
func DayPath(root, userID string, t time.Time) string {
	return strings.Join([]string{
		root,
		userID,
		strconv.Itoa(t.Year()),
		t.Month().String(),
		t.Format(DateLayout),
	}, "/")
}

func TimeLabel(t time.Time) string {
	return t.Format(TimeLabelLayout)
}
