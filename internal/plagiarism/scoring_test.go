package plagiarism

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/RishiKendai/codenest/internal/models"
)

func newBundle(id string, hashes ...string) *models.FeatureBundle {
	b := models.NewFeatureBundle(id)
	b.FileHashes = append(b.FileHashes, hashes...)
	return b
}

func sampleBundle(id string) *models.FeatureBundle {
	b := newBundle(id, "h-main", "h-util")
	b.Tokens = []string{"def", "main", "print", "hello", "return", "x", "total"}
	b.FunctionNames = []string{"main", "helper"}
	b.Imports = []string{"os", "sys"}
	b.VariableNames = []string{"total", "x"}
	b.Keywords = []string{"def", "def", "import", "return"}
	b.TotalLines = 40
	return b
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"one of three shared", []string{"foo", "bar"}, []string{"foo", "baz"}, 1.0 / 3.0},
		{"identical", []string{"a", "b"}, []string{"b", "a"}, 1.0},
		{"duplicates ignored", []string{"a", "a", "b"}, []string{"a", "b", "b"}, 1.0},
		{"disjoint", []string{"a"}, []string{"b"}, 0.0},
		{"both empty", nil, []string{}, 0.0},
		{"one empty", []string{"a"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.a, tt.b), 1e-12)
			assert.Equal(t, Jaccard(tt.a, tt.b), Jaccard(tt.b, tt.a))
		})
	}
}

func TestHashSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b *models.FeatureBundle
		want float64
	}{
		{"identical", newBundle("a", "h1", "h2"), newBundle("b", "h2", "h1"), 1.0},
		{"half", newBundle("a", "h1", "h2"), newBundle("b", "h1", "h3"), 1.0 / 3.0},
		{"disjoint", newBundle("a", "h1"), newBundle("b", "h2"), 0.0},
		{"one empty", newBundle("a", "h1"), newBundle("b"), 0.0},
		{"both empty", newBundle("a"), newBundle("b"), 0.0},
		{"duplicate files count once", newBundle("a", "h1", "h1"), newBundle("b", "h1"), 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HashSimilarity(tt.a, tt.b), 1e-12)
		})
	}
}

func TestLengthSimilarity(t *testing.T) {
	assert.InDelta(t, 0.5, LengthSimilarity(100, 50), 1e-12)
	assert.InDelta(t, 0.5, LengthSimilarity(50, 100), 1e-12)
	assert.Equal(t, 1.0, LengthSimilarity(10, 10))
	assert.Equal(t, 0.0, LengthSimilarity(0, 10))
	assert.Equal(t, 0.0, LengthSimilarity(0, 0))
}

func TestContentSimilarity(t *testing.T) {
	tokens := []string{"def", "main", "print", "hello", "world", "main"}

	assert.InDelta(t, 1.0, ContentSimilarity(tokens, tokens), 1e-9)
	assert.Equal(t, 0.0, ContentSimilarity(tokens, []string{"class", "widget"}))
	assert.Equal(t, 0.0, ContentSimilarity(tokens, nil))
	assert.Equal(t, 0.0, ContentSimilarity(nil, nil))
	// single character tokens are outside the vocabulary
	assert.Equal(t, 0.0, ContentSimilarity([]string{"a", "b"}, []string{"a", "b"}))

	other := []string{"def", "main", "print", "goodbye"}
	sim := ContentSimilarity(tokens, other)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
	assert.Equal(t, sim, ContentSimilarity(other, tokens))
}

func TestVocabularyLimit(t *testing.T) {
	countsA := make(map[string]int)
	countsB := make(map[string]int)
	for i := 0; i < maxVocabulary+50; i++ {
		countsA[fmt.Sprintf("term%04d", i)] = 1
	}
	countsB["common"] = 5

	vocab := vocabulary(countsA, countsB)
	assert.Len(t, vocab, maxVocabulary)
	assert.Equal(t, "common", vocab[0])
	// ties are broken alphabetically
	assert.Equal(t, "term0000", vocab[1])
}

func TestCompareSelfCopy(t *testing.T) {
	a := sampleBundle("a")
	b := sampleBundle("b")

	s := Compare(a, b)
	assert.Equal(t, 1.0, s.HashSimilarity)
	assert.Equal(t, 1.0, s.Overall)
	assert.True(t, s.OverrideApplied)
	assert.InDelta(t, 1.0, s.ContentSimilarity, 1e-9)
	assert.Equal(t, 1.0, s.LengthSimilarity)
	assert.Equal(t, 0.0, s.StructureDifference)
	assert.True(t, IsPlagiarized(s.Overall))
}

func TestCompareDisjoint(t *testing.T) {
	a := sampleBundle("a")
	b := newBundle("b", "h-other")
	b.FunctionNames = []string{"render"}
	b.Imports = []string{"react"}
	b.TotalLines = 20

	s := Compare(a, b)
	assert.Equal(t, 0.0, s.HashSimilarity)
	assert.Equal(t, 0.0, s.FunctionSimilarity)
	assert.Equal(t, 0.0, s.ImportSimilarity)
	assert.InDelta(t, 0.5, s.LengthSimilarity, 1e-12)
	assert.InDelta(t, 0.5, s.StructureDifference, 1e-12)
	assert.False(t, s.OverrideApplied)
	assert.False(t, IsPlagiarized(s.Overall))
}

func TestCompareEmptyBundles(t *testing.T) {
	s := Compare(models.NewFeatureBundle("a"), models.NewFeatureBundle("b"))
	assert.Equal(t, models.SignalVector{StructureDifference: 1.0}, s)
}

func TestCompareOverride(t *testing.T) {
	shared := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}

	// 8 shared of 10 distinct files
	a := newBundle("a", append([]string{"only-a"}, shared...)...)
	b := newBundle("b", append([]string{"only-b"}, shared...)...)
	s := Compare(a, b)
	assert.InDelta(t, 0.8, s.HashSimilarity, 1e-12)
	assert.True(t, s.OverrideApplied)
	assert.Equal(t, 1.0, s.Overall)

	// 3 shared of 5 distinct files stays below the override
	a = newBundle("a", "only-a", "s1", "s2", "s3")
	b = newBundle("b", "only-b", "s1", "s2", "s3")
	s = Compare(a, b)
	assert.InDelta(t, 0.6, s.HashSimilarity, 1e-12)
	assert.False(t, s.OverrideApplied)
	assert.InDelta(t, 0.3, s.Overall, 1e-12)
}

func TestCompareIsSymmetricAndBounded(t *testing.T) {
	x := sampleBundle("x")
	y := newBundle("y", "h-main", "h-extra")
	y.Tokens = []string{"def", "render", "hello", "return"}
	y.FunctionNames = []string{"render", "main"}
	y.Imports = []string{"os"}
	y.VariableNames = []string{"total"}
	y.Keywords = []string{"def", "return"}
	y.TotalLines = 15
	empty := models.NewFeatureBundle("e")

	bundles := []*models.FeatureBundle{x, y, empty}
	for _, a := range bundles {
		for _, b := range bundles {
			s := Compare(a, b)
			assert.Equal(t, s, Compare(b, a), "%s vs %s", a.ProjectID, b.ProjectID)
			for _, v := range []float64{
				s.HashSimilarity, s.ContentSimilarity, s.FunctionSimilarity, s.ImportSimilarity,
				s.VariableSimilarity, s.LengthSimilarity, s.KeywordSimilarity, s.StructureDifference, s.Overall,
			} {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
	}
}

func TestOverallScore(t *testing.T) {
	s := models.SignalVector{
		HashSimilarity:     0.5,
		ContentSimilarity:  0.5,
		FunctionSimilarity: 0.5,
		ImportSimilarity:   0.5,
		VariableSimilarity: 0.5,
		LengthSimilarity:   0.5,
	}
	overall, override := OverallScore(s, DefaultWeights)
	assert.InDelta(t, 0.5, overall, 1e-12)
	assert.False(t, override)

	s = models.SignalVector{ContentSimilarity: 1, FunctionSimilarity: 1}
	overall, _ = OverallScore(s, DefaultWeights)
	assert.InDelta(t, 0.35, overall, 1e-12)
}

func TestIsPlagiarized(t *testing.T) {
	assert.False(t, IsPlagiarized(0.7))
	assert.True(t, IsPlagiarized(0.7000001))
	assert.False(t, IsPlagiarized(0))
	assert.True(t, IsPlagiarized(1))
}

func TestGetRiskLevel(t *testing.T) {
	assert.Equal(t, "clean", GetRiskLevel(0.1))
	assert.Equal(t, "suspicious", GetRiskLevel(0.4))
	assert.Equal(t, "highly suspicious", GetRiskLevel(0.7))
	assert.Equal(t, "plagiarized", GetRiskLevel(0.9))
}
