package plagiarism

import (
	"github.com/RishiKendai/codenest/internal/models"
)

const (
	// PlagiarismThreshold is the overall score a pair must exceed to be flagged
	PlagiarismThreshold = 0.7
	// HashOverrideThreshold forces the overall score to 1.0 when reached by the hash ratio
	HashOverrideThreshold = 0.8
)

// Weights holds the contribution of each signal to the overall score
type Weights struct {
	Hash     float64
	Content  float64
	Function float64
	Import   float64
	Variable float64
	Length   float64
}

// DefaultWeights sum to 1.0, so the overall score stays in [0, 1]
var DefaultWeights = Weights{
	Hash:     0.50,
	Content:  0.20,
	Function: 0.15,
	Import:   0.10,
	Variable: 0.03,
	Length:   0.02,
}

// Compare computes every similarity signal between two bundles and folds
// them into the overall score. The result is symmetric in its arguments.
func Compare(bundleA, bundleB *models.FeatureBundle) models.SignalVector {
	var s models.SignalVector

	// 1. Whole-file digests (coarsest)
	s.HashSimilarity = clamp01(HashSimilarity(bundleA, bundleB))

	// 2. TF-IDF over the token streams
	s.ContentSimilarity = clamp01(ContentSimilarity(bundleA.Tokens, bundleB.Tokens))

	// 3. Structural name sets
	s.FunctionSimilarity = clamp01(Jaccard(bundleA.FunctionNames, bundleB.FunctionNames))
	s.ImportSimilarity = clamp01(Jaccard(bundleA.Imports, bundleB.Imports))
	s.VariableSimilarity = clamp01(Jaccard(bundleA.VariableNames, bundleB.VariableNames))
	s.KeywordSimilarity = clamp01(Jaccard(bundleA.Keywords, bundleB.Keywords))

	// 4. Size
	s.LengthSimilarity = clamp01(LengthSimilarity(bundleA.TotalLines, bundleB.TotalLines))
	s.StructureDifference = 1.0 - s.LengthSimilarity

	s.Overall, s.OverrideApplied = OverallScore(s, DefaultWeights)
	return s
}

// OverallScore folds the signals with the given weights. A hash ratio at or
// above HashOverrideThreshold overrides the weighted sum with 1.0.
func OverallScore(s models.SignalVector, w Weights) (float64, bool) {
	if s.HashSimilarity >= HashOverrideThreshold {
		return 1.0, true
	}

	score := s.HashSimilarity*w.Hash +
		s.ContentSimilarity*w.Content +
		s.FunctionSimilarity*w.Function +
		s.ImportSimilarity*w.Import +
		s.VariableSimilarity*w.Variable +
		s.LengthSimilarity*w.Length

	return clamp01(score), false
}

// IsPlagiarized applies the fixed decision threshold
func IsPlagiarized(overall float64) bool {
	return overall > PlagiarismThreshold
}

// GetRiskLevel returns a human readable band for an overall score
func GetRiskLevel(score float64) string {
	if score < 0.3 {
		return "clean"
	} else if score < 0.5 {
		return "suspicious"
	} else if score <= PlagiarismThreshold {
		return "highly suspicious"
	}
	return "plagiarized"
}
