package domain

type EventKind string

const (
	EventFix     EventKind = "fix"
	EventFailure EventKind = "failure"
	EventFlush   EventKind = "flush"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Event is an envelope delivered to the hosted web content and to
// downstream consumers. Payload is either a StatusMessage or a FlushMessage.
type Event struct {
	Kind    EventKind
	UserID  string
	Payload any
}

type StatusMessage struct {
	Status string `json:"status"`
	Data   *Point `json:"data,omitempty"`
}

type FlushMessage struct {
	Path     string  `json:"path"`
	Time     string  `json:"time"`
	Distance float64 `json:"distance"`
	UserID   string  `json:"userId"`
	DBPath   string  `json:"dbPath"`
}

func NewFixEvent(userID string, p Point) Event {
	return Event{Kind: EventFix, UserID: userID, Payload: StatusMessage{Status: StatusSuccess, Data: &p}}
}

func NewFailureEvent(userID string) Event {
	return Event{Kind: EventFailure, UserID: userID, Payload: StatusMessage{Status: StatusFail}}
}

func NewFlushEvent(s FlushSnapshot) Event {
	return Event{
		Kind:   EventFlush,
		UserID: s.UserID,
		Payload: FlushMessage{
			Path:     s.Path,
			Time:     s.TimeLabel,
			Distance: s.DistanceMeters,
			UserID:   s.UserID,
			DBPath:   s.StoragePath,
		},
	}
}
