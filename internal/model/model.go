package model

// Offline state values reported by the sensor when no trip is available.
var offlineStates = map[string]struct{}{
	"unknown":     {},
	"unavailable": {},
	"none":        {},
	"":            {},
}

// DefaultEntity is the sensor rendered when a card config names none.
const DefaultEntity = "sensor.notion_travel_next_trip"

// TripState is one snapshot of the trip sensor.
type TripState struct {
	EntityID string
	// Value is the trip name, or one of the offline sentinels.
	Value      string
	Attributes Attributes
}

// Offline reports whether Value is one of the offline sentinels.
func (s TripState) Offline() bool {
	_, ok := offlineStates[s.Value]
	return ok
}

// Attributes is the decoded attribute bag of the trip sensor. Missing or
// malformed keys decode to their zero value.
type Attributes struct {
	Destination    string
	Status         string
	Tags           []string
	DaysUntilStart *float64
	StartDate      string
	EndDate        string
	TotalCost      *float64

	// Counts maps dataset name to its display value.
	Counts map[string]string

	TimelineEvents []Event
	// Upcoming holds timeline_events_upcoming; HasUpcoming is false when the
	// key is absent or not a list.
	Upcoming    []Event
	HasUpcoming bool

	NextEvent *Event
}

// Event is one itinerary entry. Start/End/LastEdited keep the raw date
// strings; parsing is the formatter's job.
type Event struct {
	ID           string
	Dataset      string
	Title        string
	Subtitle     string
	Location     string
	Content      string
	Status       string
	Icon         string
	URL          string
	NotionURL    string
	Confirmation string
	Seat         string
	Cost         *float64
	Start        string
	End          string
	TimeZone     string
	LastEdited   string
}
