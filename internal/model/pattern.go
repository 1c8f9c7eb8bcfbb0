package model

// Question types and difficulty levels used to partition the index.
const (
	TypeBridge     = "bridge"
	TypeComparison = "comparison"

	LevelEasy   = "easy"
	LevelMedium = "medium"
	LevelHard   = "hard"
)

// Category is the composite partition key of the similarity index.
type Category struct {
	Type  string `json:"type" yaml:"type"`
	Level string `json:"level" yaml:"level"`
}

// Key renders the category as "type/level".
func (c Category) Key() string {
	return c.Type + "/" + c.Level
}


// Role is the structural position of a hop in a reasoning chain.
type Role string

// Hop roles.
const (
	RoleStarter    Role = "starter"
	RoleBridge     Role = "bridge"
	RoleFinal      Role = "final"
	RoleComparison Role = "comparison"
)

// Document is one titled passage of a question's context.
type Document struct {
	Title     string   `json:"title"`
	Sentences []string `json:"sentences"`
}

// FactRef points at a sentence of a context document.
type FactRef struct {
	Title         string `json:"title"`
	SentenceIndex int    `json:"sent_id"`
}

// HopRecord is one supporting sentence in a reasoning chain.
type HopRecord struct {
	DocumentID    string   `json:"document_id"`
	SentenceIndex int      `json:"sentence_index"`
	SentenceText  string   `json:"sentence_text"`
	Entities      []string `json:"entities"`
	Role          Role     `json:"role"`
}

// ReasoningPattern is the structural summary of a solved multi-hop question.
type ReasoningPattern struct {
	QuestionID          string      `json:"question_id"`
	Question            string      `json:"question"`
	Category            Category    `json:"category"`
	Hops                []HopRecord `json:"hops"`
	BridgeEntity        *string     `json:"bridge_entity,omitempty"`
	ComparisonDimension *string     `json:"comparison_dimension,omitempty"`
	Answer              string      `json:"answer"`
}

// IndexedExample is a stored example with its embedding and payload.
type IndexedExample[P any] struct {
	ID        string    `json:"id"`
	QueryText string    `json:"query_text"`
	Category  Category  `json:"category"`
	Embedding []float32 `json:"-"`
	Payload   P         `json:"payload"`
}
