package reasoning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/answer-engine/internal/model"
)

// maxPromptExamples caps the worked examples placed in one prompt.
const maxPromptExamples = 3

var rule = strings.Repeat("=", 80)

const bridgeTemplate = `Bridge questions need an intermediate entity:
1. The question names Entity A and asks for property P.
2. The document about Entity A links it to Entity B.
3. The document about Entity B gives property P.
4. Entity B is the bridge from A to the answer.`

const comparisonTemplate = `Comparison questions need the same property of two entities:
1. The question compares Entity A and Entity B on dimension D.
2. The document about Entity A gives its value of D.
3. The document about Entity B gives its value of D.
4. Compare the values and pick the entity that satisfies the comparison.`

const bridgeSteps = `Work through the test question in these steps:

Step 1 - Question Analysis: what is asked, and which entities are named?
Step 2 - Document Selection: which titles look relevant?
Step 3 - HOP 1 (find the bridge): read the document about the named entity and find the entity it leads to.
Step 4 - HOP 2 (follow the bridge): read the document about that entity and find the requested fact.
Step 5 - Answer Synthesis: combine both hops into a direct answer.`

const comparisonSteps = `Work through the test question in these steps:

Step 1 - Question Analysis: which two entities are compared, on what dimension, with which operator?
Step 2 - Document Selection: find the document for each entity.
Step 3 - HOP 1 (Entity A): find the sentence giving Entity A's value.
Step 4 - HOP 2 (Entity B): find the sentence giving Entity B's value.
Step 5 - Answer Synthesis: compare the values and name the entity that satisfies the comparison.`

const formatSpec = `Respond in exactly this format:

REASONING PROCESS:

Step 1 - Question Analysis:
[what is asked]

Step 2 - Document Selection:
[relevant documents]

Step 3 - HOP 1:
Document: [document title]
Sentence Reference: [sentence index]
Sentence Text: "[sentence copied from the context]"
Information Extracted: [key fact]

Step 4 - HOP 2:
Document: [document title]
Sentence Reference: [sentence index]
Sentence Text: "[sentence copied from the context]"
Information Extracted: [key fact]
Connection to HOP 1: [how the hops connect]

[more hops if needed]

Step N - Answer Synthesis:
[combine the facts]

FINAL ANSWER: [only the answer itself: a name, date, place or short phrase, no explanation]

Good final answers: "Javier Sotomayor", "Hurricane Ivan", "four times".
Bad final answers: "Based on the information, the answer is ...", "We can conclude that ...".`

// BuildPrompt assembles the multi-hop prompt: instructions with the
// pattern template for the question type, worked examples, step
// instructions, the question with its documents, and the response format.
// hint lists document titles known to hold the answer and may be empty.
func BuildPrompt(question string, docs []model.Document, questionType string, examples []model.ReasoningPattern, hint []string) string {
	sections := []string{
		systemInstructions(questionType),
		fewShotSection(examples),
		stepInstructions(questionType),
		taskSection(question, docs, hint),
		formatSpec,
	}
	var kept []string
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

func isBridge(questionType string) bool {
	return questionType == model.TypeBridge
}

func systemInstructions(questionType string) string {
	template := comparisonTemplate
	if isBridge(questionType) {
		template = bridgeTemplate
	}
	return fmt.Sprintf(`You answer questions that combine information from several documents.

Principles:
1. Everything needed is in the provided context.
2. Trace the reasoning through specific sentences.
3. Cite the exact sentence behind each claim.
4. Follow the reasoning pattern step by step.

REASONING PATTERN FOR %s QUESTIONS:
%s`, strings.ToUpper(questionType), template)
}

func stepInstructions(questionType string) string {
	if isBridge(questionType) {
		return bridgeSteps
	}
	return comparisonSteps
}

func fewShotSection(examples []model.ReasoningPattern) string {
	if len(examples) == 0 {
		return ""
	}
	if len(examples) > maxPromptExamples {
		examples = examples[:maxPromptExamples]
	}

	var b strings.Builder
	b.WriteString("WORKED EXAMPLES:\n")
	for i, p := range examples {
		fmt.Fprintf(&b, "\n%s\nEXAMPLE %d:\n%s\n\nQUESTION: %s\n\n", rule, i+1, rule, p.Question)
		b.WriteString("DOCUMENTS:\n")
		for _, title := range hopTitles(p.Hops) {
			fmt.Fprintf(&b, "- %s\n", title)
		}
		b.WriteString("\nCONTEXT:\n")
		b.WriteString(exampleContext(p.Hops))
		b.WriteString("\nREASONING PROCESS:\n\n")
		for j, h := range p.Hops {
			fmt.Fprintf(&b, "HOP %d:\nDocument: %s\nSentence [%d]: %q\nRole: %s\nKey Information: %s\n\n",
				j+1, h.DocumentID, h.SentenceIndex, h.SentenceText, h.Role, keyInfo(h))
		}
		fmt.Fprintf(&b, "REASONING CHAIN:\n%s\n\nFINAL ANSWER: %s\n", reasoningChain(p), p.Answer)
	}
	return b.String()
}

func hopTitles(hops []model.HopRecord) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, h := range hops {
		if !seen[h.DocumentID] {
			seen[h.DocumentID] = true
			titles = append(titles, h.DocumentID)
		}
	}
	return titles
}

func exampleContext(hops []model.HopRecord) string {
	byDoc := make(map[string][]model.HopRecord)
	for _, h := range hops {
		byDoc[h.DocumentID] = append(byDoc[h.DocumentID], h)
	}
	var b strings.Builder
	for _, title := range hopTitles(hops) {
		sents := byDoc[title]
		sort.SliceStable(sents, func(i, j int) bool { return sents[i].SentenceIndex < sents[j].SentenceIndex })
		fmt.Fprintf(&b, "Document: %s\n", title)
		for _, h := range sents {
			fmt.Fprintf(&b, "[%d] %s\n", h.SentenceIndex, h.SentenceText)
		}
	}
	return b.String()
}

func keyInfo(h model.HopRecord) string {
	if len(h.Entities) == 0 {
		return "Core fact for the reasoning chain"
	}
	ents := h.Entities
	if len(ents) > 3 {
		ents = ents[:3]
	}
	return "Mentions: " + strings.Join(ents, ", ")
}

func reasoningChain(p model.ReasoningPattern) string {
	if len(p.Hops) == 0 {
		return "No reasoning chain available"
	}
	var lines []string
	for i, h := range p.Hops {
		lines = append(lines, fmt.Sprintf("Hop %d tells us: [from %s] %s", i+1, h.DocumentID, truncate(h.SentenceText, 100)))
	}
	if p.BridgeEntity != nil {
		lines = append(lines, fmt.Sprintf("The bridge entity '%s' connects the hops", *p.BridgeEntity))
	}
	lines = append(lines, "Therefore, the answer is: "+p.Answer)
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func taskSection(question string, docs []model.Document, hint []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nYOUR TASK:\n%s\n\nQUESTION: %s\n\n", rule, rule, question)
	if len(hint) > 0 {
		b.WriteString("HINT: the answer needs these documents:\n")
		for _, title := range hint {
			fmt.Fprintf(&b, "- %s\n", title)
		}
		b.WriteString("\n")
	}
	b.WriteString("AVAILABLE DOCUMENTS:\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, d.Title)
	}
	b.WriteString("\nFULL CONTEXT:\n\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "Document %d: %s\n", i+1, d.Title)
		for j, s := range d.Sentences {
			fmt.Fprintf(&b, "[%d] %s\n", j, s)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
