// Package verify arbitrates between the program-synthesis and
// chain-of-thought answers produced for a math question.
package verify

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/sells-group/answer-engine/internal/model"
)

// CoT confidence thresholds consulted on disagreement.
const (
	ComplexConfidence = 0.65
	HighConfidence    = 0.70
	MediumConfidence  = 0.60
)

// Verifier reconciles PAL and CoT candidates. The zero value disables the
// simple-arithmetic preference; use New for the standard rule set.
type Verifier struct {
	PreferPALForArithmetic bool
}

// New returns a Verifier with the standard decision table.
func New() *Verifier {
	return &Verifier{PreferPALForArithmetic: true}
}

// Reconcile applies the ordered decision table and returns the first
// matching rule's result. It is pure and deterministic.
func (v *Verifier) Reconcile(question string, pal, cot model.CandidateAnswer) model.ReconciliationResult {
	switch {
	case pal.Succeeded && cot.Succeeded:
		if Normalize(pal.Value) == Normalize(cot.Value) {
			return model.ReconciliationResult{
				FinalAnswer: pal.Value,
				Method:      model.MethodBothAgree,
				Confidence:  1.0,
			}
		}
		isComplex := IsComplexWordProblem(question)
		if isComplex && cot.Confidence >= ComplexConfidence {
			return model.ReconciliationResult{
				FinalAnswer: cot.Value,
				Method:      model.MethodCoTComplexProblem,
				Confidence:  cot.Confidence,
			}
		}
		if v.PreferPALForArithmetic && !isComplex && IsArithmeticQuestion(question) {
			return model.ReconciliationResult{
				FinalAnswer: pal.Value,
				Method:      model.MethodPALSimpleArithmetic,
				Confidence:  0.75,
			}
		}
		if cot.Confidence >= HighConfidence {
			return model.ReconciliationResult{
				FinalAnswer: cot.Value,
				Method:      model.MethodCoTHighConfidence,
				Confidence:  cot.Confidence,
			}
		}
		if cot.Confidence >= MediumConfidence {
			return model.ReconciliationResult{
				FinalAnswer: cot.Value,
				Method:      model.MethodCoTMediumConfidence,
				Confidence:  cot.Confidence,
			}
		}
		return model.ReconciliationResult{
			FinalAnswer: pal.Value,
			Method:      model.MethodPALDefault,
			Confidence:  0.65,
		}
	case pal.Succeeded:
		return model.ReconciliationResult{
			FinalAnswer: pal.Value,
			Method:      model.MethodPALOnly,
			Confidence:  0.70,
		}
	case cot.Succeeded:
		return model.ReconciliationResult{
			FinalAnswer: cot.Value,
			Method:      model.MethodCoTOnly,
			Confidence:  math.Max(MediumConfidence, cot.Confidence),
		}
	default:
		return model.ReconciliationResult{
			FinalAnswer: model.FallbackAnswer,
			Method:      model.MethodFallback,
			Confidence:  0,
		}
	}
}

// Normalize canonicalizes an answer for equality comparison: trimmed,
// lowercased, with thousands separators, currency symbols, percent signs
// and all whitespace removed.
func Normalize(v any) string {
	s := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	return strings.Map(func(r rune) rune {
		switch {
		case r == ',' || r == '%':
			return -1
		case unicode.Is(unicode.Sc, r):
			return -1
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, s)
}
