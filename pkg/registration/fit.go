package registration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
)

// ErrDegenerate is returned by Fit when a centered point cloud has zero
// norm (a single point, or all points coincident), leaving the scale ratio
// undefined.
var ErrDegenerate = fmt.Errorf("degenerate point cloud: zero norm after centering")

// FitError reports a failure of the rotation-angle minimizer. The optimizer
// diagnostic is preserved so the caller can decide whether to retry with
// different parameters.
type FitError struct {
	Status optimize.Status
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rotation fit did not converge (%v): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("rotation fit did not converge: %v", e.Status)
}

func (e *FitError) Unwrap() error { return e.Err }

// Similarity is a fitted 2D similarity transform: a centroid-referenced
// uniform scale and in-plane rotation mapping frame A onto frame B.
// All fields are plain numbers so the transform round-trips through
// persisted configuration.
type Similarity struct {
	// CenterA and CenterB are the centroids of the two fitted point sets.
	CenterA models.Point
	CenterB models.Point

	// Scale is the ratio of the centered cloud norms, ‖B‖/‖A‖. Always
	// strictly positive for a successful fit.
	Scale float64

	// Angle is the fitted rotation in radians, parameterized on the target
	// side: rotating the centered B set by +Angle aligns it with the
	// scaled, centered A set under least squares. Projecting A into frame
	// B therefore rotates by -Angle (see Apply).
	Angle float64
}

// Fit estimates the similarity transform between two correspondence-ordered
// 2D point sets, where a[i] corresponds to b[i]. The rotation angle is found
// by a 1-parameter Nelder-Mead minimization of the joint mean squared error
// between the rotated, centered target set and the scaled, centered
// reference set, seeded at zero.
func Fit(a, b models.PointSet) (Similarity, error) {
	if len(a) != len(b) {
		return Similarity{}, fmt.Errorf("point sets must have equal length, got %d and %d", len(a), len(b))
	}
	if len(a) < 2 {
		return Similarity{}, fmt.Errorf("at least 2 point pairs required, got %d", len(a))
	}
	if a.Dims() != 2 || b.Dims() != 2 {
		return Similarity{}, fmt.Errorf("fit requires 2D point sets, got %dD and %dD", a.Dims(), b.Dims())
	}

	centerA := centroid(a)
	centerB := centroid(b)

	centeredA := centerOn(a, centerA)
	centeredB := centerOn(b, centerB)

	normA := mat.Norm(centeredA, 2)
	normB := mat.Norm(centeredB, 2)
	if normA == 0 || normB == 0 {
		return Similarity{}, ErrDegenerate
	}
	scale := normB / normA

	scaledA := mat.NewDense(len(a), 2, nil)
	scaledA.Scale(scale, centeredA)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return meanSquaredError(rotateRows(centeredB, x[0]), scaledA)
		},
	}
	result, err := optimize.Minimize(problem, []float64{0}, nil, &optimize.NelderMead{})
	if err != nil {
		status := optimize.Failure
		if result != nil {
			status = result.Status
		}
		return Similarity{}, &FitError{Status: status, Err: err}
	}
	if err := result.Status.Err(); err != nil {
		return Similarity{}, &FitError{Status: result.Status, Err: err}
	}

	return Similarity{
		CenterA: centerA,
		CenterB: centerB,
		Scale:   scale,
		Angle:   result.X[0],
	}, nil
}

// centroid returns the per-axis mean of the point set.
func centroid(ps models.PointSet) models.Point {
	dims := ps.Dims()
	center := make(models.Point, dims)
	column := make([]float64, len(ps))
	for d := 0; d < dims; d++ {
		for i, p := range ps {
			column[i] = p[d]
		}
		center[d] = stat.Mean(column, nil)
	}
	return center
}

// centerOn returns the points as an n×2 matrix with the center subtracted.
func centerOn(ps models.PointSet, center models.Point) *mat.Dense {
	out := mat.NewDense(len(ps), len(center), nil)
	for i, p := range ps {
		for d := range center {
			out.Set(i, d, p[d]-center[d])
		}
	}
	return out
}

// rotateRows rotates each row vector of an n×2 matrix by angle radians:
// (r, c) -> (cos·r − sin·c, sin·r + cos·c).
func rotateRows(pts *mat.Dense, angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	n, _ := pts.Dims()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		r0 := pts.At(i, 0)
		r1 := pts.At(i, 1)
		out.Set(i, 0, c*r0-s*r1)
		out.Set(i, 1, s*r0+c*r1)
	}
	return out
}

// meanSquaredError is computed jointly over all points and coordinate
// dimensions, consistent with an isotropic-noise least-squares criterion.
func meanSquaredError(a, b *mat.Dense) float64 {
	n, cols := a.Dims()
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < cols; j++ {
			diff := a.At(i, j) - b.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(n*cols)
}
