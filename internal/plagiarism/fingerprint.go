package plagiarism

import (
	"github.com/RishiKendai/codenest/internal/models"
)

// HashSimilarity calculates the overlap of whole-file content digests
func HashSimilarity(bundleA, bundleB *models.FeatureBundle) float64 {
	// Build hash sets for fast lookup
	hashesA := toSet(bundleA.FileHashes)
	hashesB := toSet(bundleB.FileHashes)

	totalA := len(hashesA)
	totalB := len(hashesB)

	if totalA == 0 || totalB == 0 {
		return 0.0
	}

	// Count shared hashes
	sharedCount := 0
	for hash := range hashesA {
		if hashesB[hash] {
			sharedCount++
		}
	}

	// HashScore = shared_hashes / |hashes_A ∪ hashes_B|
	union := totalA + totalB - sharedCount
	return float64(sharedCount) / float64(union)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// Jaccard returns |A ∩ B| / |A ∪ B| over the deduplicated elements.
// Two empty collections have similarity 0.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0.0
	}

	shared := 0
	for item := range setA {
		if setB[item] {
			shared++
		}
	}
	return float64(shared) / float64(len(setA)+len(setB)-shared)
}

// LengthSimilarity compares total line counts. Two zero-length projects
// carry no evidence and score 0.
func LengthSimilarity(linesA, linesB int) float64 {
	longest := max(linesA, linesB)
	if longest <= 0 {
		return 0.0
	}
	diff := linesA - linesB
	if diff < 0 {
		diff = -diff
	}
	return 1.0 - float64(diff)/float64(longest)
}
