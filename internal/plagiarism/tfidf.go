package plagiarism

import (
	"cmp"
	"math"
	"slices"
	"unicode/utf8"
)

const (
	// maxVocabulary caps the number of terms weighted by ContentSimilarity.
	maxVocabulary = 1000
	// minTermRunes drops single character tokens from the vocabulary.
	minTermRunes = 2
)

// ContentSimilarity is the cosine similarity of the TF-IDF vectors of two
// token streams, with the pair itself as the document corpus. Term frequencies
// are raw counts, idf is smoothed as ln((1+n)/(1+df))+1 and both vectors are
// l2 normalized.
func ContentSimilarity(tokensA, tokensB []string) float64 {
	countsA := termCounts(tokensA)
	countsB := termCounts(tokensB)
	if len(countsA) == 0 || len(countsB) == 0 {
		return 0.0
	}

	vocab := vocabulary(countsA, countsB)
	const docs = 2.0

	vecA := make([]float64, len(vocab))
	vecB := make([]float64, len(vocab))
	for i, term := range vocab {
		df := 0.0
		if countsA[term] > 0 {
			df++
		}
		if countsB[term] > 0 {
			df++
		}
		idf := math.Log((1+docs)/(1+df)) + 1
		vecA[i] = float64(countsA[term]) * idf
		vecB[i] = float64(countsB[term]) * idf
	}

	normA, normB := norm(vecA), norm(vecB)
	if normA == 0 || normB == 0 {
		return 0.0
	}

	dot := 0.0
	for i := range vecA {
		dot += vecA[i] * vecB[i]
	}
	return clamp01(dot / (normA * normB))
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= minTermRunes {
			counts[tok]++
		}
	}
	return counts
}

// vocabulary keeps the maxVocabulary most frequent terms across both
// documents, ties broken alphabetically.
func vocabulary(countsA, countsB map[string]int) []string {
	total := make(map[string]int, len(countsA)+len(countsB))
	for term, n := range countsA {
		total[term] += n
	}
	for term, n := range countsB {
		total[term] += n
	}

	terms := make([]string, 0, len(total))
	for term := range total {
		terms = append(terms, term)
	}
	slices.SortFunc(terms, func(x, y string) int {
		if total[x] != total[y] {
			return total[y] - total[x]
		}
		return cmp.Compare(x, y)
	})
	if len(terms) > maxVocabulary {
		terms = terms[:maxVocabulary]
	}
	return terms
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
