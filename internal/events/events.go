package events

import (
	"encoding/json"
	"time"
)

// Event types pushed to dashboard clients.
const (
	TypeHello            = "hello"
	TypeDatasetGenerated = "dataset_generated"
	TypeSourceLoaded     = "source_loaded"
	TypeModelTrained     = "model_trained"
	TypePredictionMade   = "prediction_made"
	TypeConfigUpdated    = "config_updated"
	TypeHistoryCleaned   = "history_cleaned"
)

// Scope says who an event concerns. Empty fields mean everyone.
type Scope struct {
	RequestID string
	Board     string
	Session   string
}

// Event is one message on the stream. The session it was scoped to is used
// for routing only and never sent to clients.
type Event struct {
	Type      string    `json:"type"`
	At        time.Time `json:"at"`
	RequestID string    `json:"request_id,omitempty"`
	Board     string    `json:"board,omitempty"`
	Data      any       `json:"data,omitempty"`

	session string
}

func newEvent(sc Scope, typ string, data any) Event {
	return Event{
		Type:      typ,
		At:        time.Now().UTC(),
		RequestID: sc.RequestID,
		Board:     sc.Board,
		Data:      data,
		session:   sc.Session,
	}
}

// Encode renders the event as one SSE data line.
func (e Event) Encode() (string, error) {
	b, err := json.Marshal(e)
	return string(b), err
}

// Filter selects the events a subscriber sees. Events scoped to no board or
// no session are broadcasts and always pass.
type Filter struct {
	Board   string
	Session string
}

func (f Filter) Match(e Event) bool {
	if f.Board != "" && e.Board != "" && e.Board != f.Board {
		return false
	}
	if f.Session != "" && e.session != "" && e.session != f.Session {
		return false
	}
	return true
}

// Hello is the payload of the first event of every stream; it echoes the
// filter in effect.
type Hello struct {
	Board string `json:"board,omitempty"`
	Mine  bool   `json:"mine"`
}

// HelloEvent opens a stream subscribed with f.
func HelloEvent(requestID string, f Filter) Event {
	return newEvent(Scope{RequestID: requestID, Board: f.Board}, TypeHello, Hello{Board: f.Board, Mine: f.Session != ""})
}

// DatasetGenerated is the payload of TypeDatasetGenerated and TypeSourceLoaded.
type DatasetGenerated struct {
	Rows    int   `json:"rows"`
	Seed    int64 `json:"seed,omitempty"`
	Dropped int   `json:"dropped,omitempty"`
}

type ModelTrained struct {
	Kind     string   `json:"kind"`
	Features []string `json:"features"`
	Rows     int      `json:"rows"`
	Filters  string   `json:"filters,omitempty"`
}

type PredictionMade struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}
