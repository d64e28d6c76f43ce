package server

// EventPayload is the free-form JSONB half of a transcript row. Fields are
// optional; only the ones relevant to the action kind are set.
type EventPayload struct {
	Text        string `json:"text,omitempty"`
	CardID      *int   `json:"card_id,omitempty"`
	Participant string `json:"participant_id,omitempty"`
}
