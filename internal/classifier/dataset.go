package classifier

import (
	"math/rand/v2"
)

// FeatureNames lists the model inputs in column order
var FeatureNames = []string{
	"tfidf_similarity",
	"hash_similarity",
	"import_similarity",
	"structure_difference",
	"keyword_similarity",
}

const (
	labelThreshold      = 0.6
	structurePenaltyAt  = 5.0
	structurePenalty    = 0.7
	labelNoiseStdDev    = 0.1
	structureMeanSpread = 2.0
)

// SyntheticDataset generates n labelled feature vectors. A sample is labelled
// positive when its noisy weighted score exceeds 0.6; a large structure
// difference scales the score down before the noise is added.
func SyntheticDataset(n int, seed uint64) ([][]float64, []bool) {
	rng := rand.New(rand.NewPCG(seed, 0))

	X := make([][]float64, n)
	y := make([]bool, n)
	for i := range n {
		tfidf := rng.Float64()
		hash := 0.3 * rng.Float64()
		imports := rng.Float64()
		structure := rng.ExpFloat64() * structureMeanSpread
		keyword := rng.Float64()

		score := 0.4*tfidf + 0.3*hash + 0.2*imports + 0.1*keyword
		if structure > structurePenaltyAt {
			score *= structurePenalty
		}
		score += rng.NormFloat64() * labelNoiseStdDev

		X[i] = []float64{tfidf, hash, imports, structure, keyword}
		y[i] = score > labelThreshold
	}
	return X, y
}

// splitTrainTest shuffles the samples and holds out testFraction of them
func splitTrainTest(X [][]float64, y []bool, testFraction float64, seed uint64) (trainX [][]float64, trainY []bool, testX [][]float64, testY []bool) {
	rng := rand.New(rand.NewPCG(seed, 1))
	perm := rng.Perm(len(X))

	nTest := int(float64(len(X)) * testFraction)
	for k, i := range perm {
		if k < nTest {
			testX = append(testX, X[i])
			testY = append(testY, y[i])
		} else {
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
		}
	}
	return trainX, trainY, testX, testY
}
