package model

// Method names the reconciliation rule that produced a final answer.
type Method string

// Reconciliation methods, in decision-table order.
const (
	MethodBothAgree           Method = "both_agree"
	MethodCoTComplexProblem   Method = "cot_complex_problem"
	MethodPALSimpleArithmetic Method = "pal_simple_arithmetic"
	MethodCoTHighConfidence   Method = "cot_high_confidence"
	MethodCoTMediumConfidence Method = "cot_medium_confidence"
	MethodPALDefault          Method = "pal_default"
	MethodPALOnly             Method = "pal_only"
	MethodCoTOnly             Method = "cot_only"
	MethodFallback            Method = "fallback"
)

// Methods lists every reconciliation method.
var Methods = []Method{
	MethodBothAgree,
	MethodCoTComplexProblem,
	MethodPALSimpleArithmetic,
	MethodCoTHighConfidence,
	MethodCoTMediumConfidence,
	MethodPALDefault,
	MethodPALOnly,
	MethodCoTOnly,
	MethodFallback,
}

// FallbackAnswer is emitted when neither generation path produced a value.
const FallbackAnswer = "0"

// CandidateAnswer is one generation path's output for a question.
// Value is meaningful only when Succeeded is true.
type CandidateAnswer struct {
	Value      string  `json:"value,omitempty"`
	Succeeded  bool    `json:"succeeded"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// ReconciliationResult is the arbitrated answer for a question.
type ReconciliationResult struct {
	FinalAnswer string  `json:"final_answer"`
	Method      Method  `json:"method"`
	Confidence  float64 `json:"confidence"`
}

// SolvedExample is a training question with its known answer.
type SolvedExample struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MathTrace records everything produced while solving one math question.
type MathTrace struct {
	Question     string               `json:"question"`
	PAL          CandidateAnswer      `json:"pal"`
	PALCode      string               `json:"pal_code,omitempty"`
	CoT          CandidateAnswer      `json:"cot"`
	CoTSamples   []string             `json:"cot_samples,omitempty"`
	Verification ReconciliationResult `json:"verification"`
	FinalAnswer  string               `json:"final_answer"`
	Error        string               `json:"error,omitempty"`
}
