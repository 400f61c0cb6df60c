package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Config holds the random forest hyperparameters
type Config struct {
	Trees           int    `json:"trees"`
	MaxDepth        int    `json:"maxDepth"`
	MinSamplesSplit int    `json:"minSamplesSplit"`
	MinSamplesLeaf  int    `json:"minSamplesLeaf"`
	Seed            uint64 `json:"seed"`
}

var DefaultConfig = Config{
	Trees:           100,
	MaxDepth:        10,
	MinSamplesSplit: 5,
	MinSamplesLeaf:  2,
	Seed:            42,
}

// Node is one decision tree node. Leaves carry the fraction of positive
// training samples that reached them.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Positive  float64 `json:"positive,omitempty"`
}

// Tree is a flattened CART tree; Nodes[0] is the root
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Positive
}

// Forest is a bagged ensemble of Gini decision trees
type Forest struct {
	NumFeatures int    `json:"numFeatures"`
	Trees       []Tree `json:"trees"`
}

// PredictProba returns the mean positive-class probability over all trees
func (f *Forest) PredictProba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees))
}

func (f *Forest) validate() error {
	if f.NumFeatures <= 0 || len(f.Trees) == 0 {
		return fmt.Errorf("empty forest")
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= f.NumFeatures {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			// children always follow their parent
			if n.Left <= ni || n.Right <= ni || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: invalid child index", ti, ni)
			}
		}
	}
	return nil
}

// TrainForest fits cfg.Trees trees, each on a bootstrap sample with
// √d candidate features per split. Every tree draws from its own seeded
// stream, so the result does not depend on scheduling.
func TrainForest(X [][]float64, y []bool, cfg Config) (*Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("invalid training set: %d samples, %d labels", len(X), len(y))
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("trees must be greater than 0")
	}

	d := len(X[0])
	forest := &Forest{
		NumFeatures: d,
		Trees:       make([]Tree, cfg.Trees),
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i := range forest.Trees {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			b := &treeBuilder{
				X:           X,
				y:           y,
				cfg:         cfg,
				maxFeatures: max(1, int(math.Sqrt(float64(d)))),
				rng:         rng,
			}
			forest.Trees[i] = b.build(bootstrap(len(X), rng))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return forest, nil
}

func bootstrap(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}

type treeBuilder struct {
	X           [][]float64
	y           []bool
	cfg         Config
	maxFeatures int
	rng         *rand.Rand
	nodes       []Node
}

func (b *treeBuilder) build(idx []int) Tree {
	b.nodes = b.nodes[:0]
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for idx and returns its root index
func (b *treeBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	pos := b.positives(idx)
	impurity := gini(pos, len(idx))

	split, ok := splitInfo{}, false
	if depth < b.cfg.MaxDepth && len(idx) >= b.cfg.MinSamplesSplit && impurity > 0 {
		split, ok = b.bestSplit(idx, impurity)
	}
	if !ok {
		b.nodes[self] = Node{Leaf: true, Positive: float64(pos) / float64(len(idx))}
		return self
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: split.feature, Threshold: split.threshold, Left: l, Right: r}
	return self
}

type splitInfo struct {
	feature   int
	threshold float64
	impurity  float64
}

func (b *treeBuilder) bestSplit(idx []int, parentImpurity float64) (splitInfo, bool) {
	best := splitInfo{impurity: parentImpurity}
	found := false

	features := b.rng.Perm(len(b.X[0]))[:b.maxFeatures]
	sorted := slices.Clone(idx)
	n := len(sorted)
	totalPos := b.positives(idx)

	for _, f := range features {
		slices.SortFunc(sorted, func(i, j int) int {
			switch {
			case b.X[i][f] < b.X[j][f]:
				return -1
			case b.X[i][f] > b.X[j][f]:
				return 1
			}
			return 0
		})

		leftPos := 0
		for k := 1; k < n; k++ {
			if b.y[sorted[k-1]] {
				leftPos++
			}
			lo, hi := b.X[sorted[k-1]][f], b.X[sorted[k]][f]
			if lo == hi || k < b.cfg.MinSamplesLeaf || n-k < b.cfg.MinSamplesLeaf {
				continue
			}
			weighted := (float64(k)*gini(leftPos, k) + float64(n-k)*gini(totalPos-leftPos, n-k)) / float64(n)
			if weighted < best.impurity {
				best = splitInfo{feature: f, threshold: lo + (hi-lo)/2, impurity: weighted}
				found = true
			}
		}
	}

	return best, found
}

func (b *treeBuilder) positives(idx []int) int {
	pos := 0
	for _, i := range idx {
		if b.y[i] {
			pos++
		}
	}
	return pos
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
