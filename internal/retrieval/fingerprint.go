package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/sells-group/answer-engine/internal/model"
)

// Fingerprint identifies a QA training set. Any edit to an example, or to
// the set's order or size, changes it.
func Fingerprint(examples []model.QAExample) string {
	return fingerprint(examples)
}

// FewShotFingerprint identifies a math training set.
func FewShotFingerprint(training []model.SolvedExample) string {
	return fingerprint(training)
}

func fingerprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}
