package domain

// ReturnRecord is the percentage change of one entity between its first and
// last valid observation.
type ReturnRecord struct {
	EntityID         string  `json:"entity_id"`
	StartValue       float64 `json:"start_value"`
	EndValue         float64 `json:"end_value"`
	PctChange        float64 `json:"pct_change"`
	ObservationCount int     `json:"observation_count"`
	ValueColumn      string  `json:"value_column"`
	// Fallback is set when ValueColumn was chosen as the first numeric column
	// rather than a recognised closing-price column.
	Fallback bool `json:"fallback,omitempty"`
}
