package fitness

import (
	"math"

	"github.com/voxpcg/pcgse-go/pkg/errors"
)

// RidgeSurrogate is a regularized linear model over behavior vectors.
// It satisfies core.SurrogateModel and is cheap enough to refit
// mid-session.
type RidgeSurrogate struct {
	lambda  float64
	weights []float64 // last element is the intercept
	trained bool
}

// NewRidgeSurrogate creates an untrained surrogate with the given
// regularization strength.
func NewRidgeSurrogate(lambda float64) *RidgeSurrogate {
	if lambda <= 0 {
		lambda = 0.1
	}
	return &RidgeSurrogate{lambda: lambda}
}

// Trained reports whether Fit has succeeded at least once.
func (r *RidgeSurrogate) Trained() bool {
	return r.trained
}

// Predict returns the model's estimate for a feature vector. An
// untrained model predicts 0.
func (r *RidgeSurrogate) Predict(features []float64) float64 {
	if !r.trained {
		return 0
	}
	n := len(r.weights) - 1
	sum := r.weights[n] // intercept
	for i := 0; i < n && i < len(features); i++ {
		sum += r.weights[i] * features[i]
	}
	return sum
}

// Fit solves the ridge normal equations (XᵀX + λI)w = Xᵀy with an
// appended intercept column.
func (r *RidgeSurrogate) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(features) != len(targets) {
		return errors.New(errors.InvalidInput, "surrogate training set is empty or mismatched")
	}

	dim := len(features[0]) + 1 // +1 intercept
	// Build XᵀX + λI and Xᵀy.
	a := make([][]float64, dim)
	for i := range a {
		a[i] = make([]float64, dim)
		a[i][i] = r.lambda
	}
	b := make([]float64, dim)

	row := make([]float64, dim)
	for k, f := range features {
		if len(f) != dim-1 {
			return errors.New(errors.InvalidInput, "surrogate feature vectors have inconsistent length")
		}
		copy(row, f)
		row[dim-1] = 1
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				a[i][j] += row[i] * row[j]
			}
			b[i] += row[i] * targets[k]
		}
	}

	weights, err := solveLinearSystem(a, b)
	if err != nil {
		return err
	}
	r.weights = weights
	r.trained = true
	return nil
}

// solveLinearSystem performs Gaussian elimination with partial
// pivoting. The systems here are tiny (descriptor count + 1).
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errors.New(errors.EvaluationFailed, "surrogate normal equations are singular")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for c := row + 1; c < n; c++ {
			sum -= a[row][c] * x[c]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
