package simulator

// SimulationRequest identifies what a report was produced for.
type SimulationRequest struct {
	Signature    string   `json:"signature,omitempty"`
	Command      string   `json:"command,omitempty"`
	Signers      []string `json:"signers,omitempty"`
	Instructions int      `json:"instructions"`
}

// CategorizedEvent is one program invocation reconstructed from the logs.
type CategorizedEvent struct {
	EventType string   `json:"event_type"`
	ProgramID string   `json:"program_id"`
	Depth     int      `json:"depth"`
	Logs      []string `json:"logs,omitempty"`
	Data      string   `json:"data,omitempty"`
	Error     string   `json:"error,omitempty"`
	Consumed  uint64   `json:"compute_units_consumed,omitempty"`
}

type SimulationResponse struct {
	Request           SimulationRequest  `json:"request"`
	Status            string             `json:"status"`
	Error             string             `json:"error,omitempty"`
	Slot              uint64             `json:"slot,omitempty"`
	Fee               uint64             `json:"fee,omitempty"`
	Logs              []string           `json:"logs,omitempty"`
	CategorizedEvents []CategorizedEvent `json:"categorized_events,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"

	EventInvoke = "invoke"
	EventReturn = "return"
)
