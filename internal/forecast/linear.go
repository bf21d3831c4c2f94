package forecast

import (
	"fmt"
	"math"

	"EnergyPulse/internal/domain/models"
)

// linearModel is least squares with an intercept, solved by Householder QR
// with column pivoting. The engineered feature set is heavily collinear on
// smooth series (lags, MAs and their ratios are all affine in time), so the
// normal equations are numerically singular there; rank-revealing QR drops
// the dependent directions instead of amplifying them into huge weights.
type linearModel struct {
	weights []float64 // weights[0] is the intercept
	dim     int
}

// rankTol cuts columns whose remaining norm falls below this fraction of the
// leading one. Anything past it is noise-level collinearity.
const rankTol = 1e-8

func fitLinear(x [][]float64, y []float64) (*linearModel, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("linear fit: %d rows, %d targets: %w", n, len(y), models.ErrTrainingFailed)
	}
	p := len(x[0]) + 1 // +1 intercept

	// Design matrix with a leading ones column, and a working copy of y.
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, p)
		a[i][0] = 1
		copy(a[i][1:], x[i])
	}
	b := append([]float64(nil), y...)

	perm := make([]int, p)
	colNorm := make([]float64, p)
	for j := 0; j < p; j++ {
		perm[j] = j
		for i := 0; i < n; i++ {
			colNorm[j] += a[i][j] * a[i][j]
		}
	}

	kmax := p
	if n < p {
		kmax = n
	}
	rank := 0
	var leading float64
	for k := 0; k < kmax; k++ {
		// Pivot the column with the largest remaining norm to position k.
		pc := k
		for j := k + 1; j < p; j++ {
			if colNorm[j] > colNorm[pc] {
				pc = j
			}
		}
		if pc != k {
			for i := 0; i < n; i++ {
				a[i][k], a[i][pc] = a[i][pc], a[i][k]
			}
			colNorm[k], colNorm[pc] = colNorm[pc], colNorm[k]
			perm[k], perm[pc] = perm[pc], perm[k]
		}

		var norm float64
		for i := k; i < n; i++ {
			norm += a[i][k] * a[i][k]
		}
		norm = math.Sqrt(norm)
		if k == 0 {
			leading = norm
		}
		if norm == 0 || norm <= rankTol*leading {
			break
		}

		alpha := norm
		if a[k][k] > 0 {
			alpha = -norm
		}
		v := make([]float64, n-k)
		for i := k; i < n; i++ {
			v[i-k] = a[i][k]
		}
		v[0] -= alpha
		var vv float64
		for _, c := range v {
			vv += c * c
		}
		if vv == 0 {
			break
		}

		// Reflect the remaining columns and the target.
		for j := k; j < p; j++ {
			var dot float64
			for i := k; i < n; i++ {
				dot += v[i-k] * a[i][j]
			}
			f := 2 * dot / vv
			for i := k; i < n; i++ {
				a[i][j] -= f * v[i-k]
			}
		}
		var dot float64
		for i := k; i < n; i++ {
			dot += v[i-k] * b[i]
		}
		f := 2 * dot / vv
		for i := k; i < n; i++ {
			b[i] -= f * v[i-k]
		}
		a[k][k] = alpha
		rank = k + 1

		for j := k + 1; j < p; j++ {
			colNorm[j] -= a[k][j] * a[k][j]
			if colNorm[j] < 0 {
				colNorm[j] = 0
			}
		}
	}
	if rank == 0 {
		return nil, fmt.Errorf("rank-zero design matrix: %w", models.ErrTrainingFailed)
	}

	// Back-substitute over the leading rank x rank triangle; truncated
	// columns keep zero weight.
	wp := make([]float64, p)
	for r := rank - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < rank; c++ {
			sum -= a[r][c] * wp[c]
		}
		wp[r] = sum / a[r][r]
	}
	w := make([]float64, p)
	for j := 0; j < rank; j++ {
		w[perm[j]] = wp[j]
	}
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("linear fit produced non-finite weights: %w", models.ErrTrainingFailed)
		}
	}
	return &linearModel{weights: w, dim: p - 1}, nil
}

func (m *linearModel) predict(feats []float64) float64 {
	out := m.weights[0]
	for j, v := range feats {
		out += m.weights[j+1] * v
	}
	return out
}
