package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"EnergyPulse/internal/domain/models"
)

// forestConfig mirrors the reference estimator settings: 100 bagged CART
// trees, depth capped at 10, full feature set per split.
type forestConfig struct {
	trees          int
	maxDepth       int
	minSamplesLeaf int
	seed           int64
}

func defaultForestConfig() forestConfig {
	return forestConfig{trees: 100, maxDepth: 10, minSamplesLeaf: 2, seed: 42}
}

// forestModel is a bootstrap-aggregated set of regression trees.
type forestModel struct {
	trees []*treeNode
}

type treeNode struct {
	leaf    bool
	value   float64
	feature int
	split   float64
	left    *treeNode
	right   *treeNode
}

func fitForest(x [][]float64, y []float64, cfg forestConfig) (*forestModel, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("forest fit: %d rows, %d targets: %w", len(x), len(y), models.ErrTrainingFailed)
	}
	rng := rand.New(rand.NewSource(cfg.seed))
	m := &forestModel{trees: make([]*treeNode, 0, cfg.trees)}
	idx := make([]int, len(x))
	for t := 0; t < cfg.trees; t++ {
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		root := growTree(x, y, idx, 0, cfg)
		m.trees = append(m.trees, root)
	}
	return m, nil
}

func (m *forestModel) predict(feats []float64) float64 {
	sum := 0.0
	for _, t := range m.trees {
		sum += t.eval(feats)
	}
	return sum / float64(len(m.trees))
}

func (n *treeNode) eval(feats []float64) float64 {
	for !n.leaf {
		if feats[n.feature] <= n.split {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// growTree builds a CART regression node on the sample subset idx, splitting
// by best variance reduction.
func growTree(x [][]float64, y []float64, idx []int, depth int, cfg forestConfig) *treeNode {
	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minSamplesLeaf || isConstant(y, idx) {
		return &treeNode{leaf: true, value: subsetMean(y, idx)}
	}

	bestFeature, bestSplit, bestScore := -1, 0.0, math.Inf(1)
	dim := len(x[0])
	vals := make([]float64, 0, len(idx))

	for f := 0; f < dim; f++ {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, x[i][f])
		}
		sort.Float64s(vals)

		// candidate thresholds at midpoints of distinct adjacent values
		for v := 1; v < len(vals); v++ {
			if vals[v] == vals[v-1] {
				continue
			}
			split := (vals[v] + vals[v-1]) / 2
			score, ok := splitScore(x, y, idx, f, split, cfg.minSamplesLeaf)
			if ok && score < bestScore {
				bestFeature, bestSplit, bestScore = f, split, score
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: subsetMean(y, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if x[i][bestFeature] <= bestSplit {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature: bestFeature,
		split:   bestSplit,
		left:    growTree(x, y, left, depth+1, cfg),
		right:   growTree(x, y, right, depth+1, cfg),
	}
}

// splitScore returns the weighted sum of child squared errors for a candidate
// split. ok is false when a child would fall below the leaf minimum.
func splitScore(x [][]float64, y []float64, idx []int, f int, split float64, minLeaf int) (float64, bool) {
	var ln, rn int
	var lsum, rsum, lsq, rsq float64
	for _, i := range idx {
		v := y[i]
		if x[i][f] <= split {
			ln++
			lsum += v
			lsq += v * v
		} else {
			rn++
			rsum += v
			rsq += v * v
		}
	}
	if ln < minLeaf || rn < minLeaf {
		return 0, false
	}
	lerr := lsq - lsum*lsum/float64(ln)
	rerr := rsq - rsum*rsum/float64(rn)
	return lerr + rerr, true
}

func subsetMean(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	s := 0.0
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}

func isConstant(y []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}
