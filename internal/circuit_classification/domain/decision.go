package domain

import "time"

// StageResult is the outcome of one evaluated pipeline stage.
type StageResult struct {
	Stage      string  `json:"stage"`
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// Decision is the composite verdict for a circuit. Stages holds only the
// stages that were actually evaluated.
type Decision struct {
	Detected   bool          `json:"detected"`
	Confidence float64       `json:"confidence"`
	Stages     []StageResult `json:"stages"`
}

// DecisionRecord is a Decision persisted for later analysis.
type DecisionRecord struct {
	ID        string    `json:"id"`
	ModelName string    `json:"model_name"`
	ChanID    uint64    `json:"chan_id"`
	CircID    uint64    `json:"circ_id"`
	CellCount int       `json:"cell_count"`
	Decision  Decision  `json:"decision"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
