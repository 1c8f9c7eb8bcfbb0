// Package pattern derives structured reasoning patterns from labeled
// multi-hop training examples.
package pattern

import (
	"strings"

	"github.com/sells-group/answer-engine/internal/model"
)

// dimensionTable is consulted in order; the first dimension with a keyword
// in the question wins.
var dimensionTable = []struct {
	name     string
	keywords []string
}{
	{"date", []string{"first", "earlier", "before", "founded", "started", "established"}},
	{"size", []string{"larger", "bigger", "smaller", "size", "area"}},
	{"quantity", []string{"more", "less", "most", "least", "number"}},
	{"location", []string{"where", "located", "place"}},
	{"duration", []string{"longer", "shorter", "duration", "time"}},
}

// UnknownDimension is reported when no dimension keyword matches.
const UnknownDimension = "unknown"

// Extract builds the reasoning pattern of a solved question. References to
// missing documents or sentences are skipped.
func Extract(questionID, question string, category model.Category, refs []model.FactRef, context []model.Document, answer string) model.ReasoningPattern {
	docs := make(map[string][]string, len(context))
	for _, d := range context {
		if _, dup := docs[d.Title]; !dup {
			docs[d.Title] = d.Sentences
		}
	}

	var hops []model.HopRecord
	for _, ref := range refs {
		sentences, ok := docs[ref.Title]
		if !ok || ref.SentenceIndex < 0 || ref.SentenceIndex >= len(sentences) {
			continue
		}
		text := sentences[ref.SentenceIndex]
		hops = append(hops, model.HopRecord{
			DocumentID:    ref.Title,
			SentenceIndex: ref.SentenceIndex,
			SentenceText:  text,
			Entities:      Entities(text),
		})
	}
	assignRoles(hops, category.Type)

	p := model.ReasoningPattern{
		QuestionID: questionID,
		Question:   question,
		Category:   category,
		Hops:       hops,
		Answer:     answer,
	}
	switch category.Type {
	case model.TypeBridge:
		if len(hops) >= 2 {
			p.BridgeEntity = bridgeEntity(hops[0], hops[1])
		}
	case model.TypeComparison:
		dim := ComparisonDimension(question)
		p.ComparisonDimension = &dim
	}
	return p
}

func assignRoles(hops []model.HopRecord, questionType string) {
	last := len(hops) - 1
	for i := range hops {
		switch {
		case questionType != model.TypeBridge:
			hops[i].Role = model.RoleComparison
		case i == 0:
			hops[i].Role = model.RoleStarter
		case i == last:
			hops[i].Role = model.RoleFinal
		default:
			hops[i].Role = model.RoleBridge
		}
	}
}

// bridgeEntity returns an entity shared by the first two hops, or else the
// first hop-1 entity mentioned in hop 2's text. Entities are sorted, so the
// choice is deterministic.
func bridgeEntity(first, second model.HopRecord) *string {
	shared := make(map[string]bool, len(second.Entities))
	for _, e := range second.Entities {
		shared[e] = true
	}
	for _, e := range first.Entities {
		if shared[e] {
			return &e
		}
	}

	text := strings.ToLower(second.SentenceText)
	for _, e := range first.Entities {
		if strings.Contains(text, strings.ToLower(e)) {
			return &e
		}
	}
	return nil
}

// ComparisonDimension names the attribute a comparison question compares.
func ComparisonDimension(question string) string {
	q := strings.ToLower(question)
	for _, d := range dimensionTable {
		for _, kw := range d.keywords {
			if strings.Contains(q, kw) {
				return d.name
			}
		}
	}
	return UnknownDimension
}
