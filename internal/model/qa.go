package model

// QAExample is one row of a multi-hop QA dataset.
type QAExample struct {
	ID              string     `json:"id"`
	Question        string     `json:"question"`
	Answer          string     `json:"answer,omitempty"`
	Type            string     `json:"type"`
	Level           string     `json:"level"`
	SupportingFacts []FactRef  `json:"supporting_facts,omitempty"`
	Context         []Document `json:"context"`
}

// Category returns the example's index partition.
func (e QAExample) Category() Category {
	return Category{Type: e.Type, Level: e.Level}
}

// QAResult is the engine's answer to a multi-hop question.
type QAResult struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	SupportingFacts []FactRef `json:"supporting_facts"`
	Reasoning       string    `json:"reasoning"`
	Confidence      float64   `json:"confidence"`
	ExamplesUsed    int       `json:"examples_used"`
	SelfConsistency bool      `json:"self_consistency"`
	Error           string    `json:"error,omitempty"`
}
