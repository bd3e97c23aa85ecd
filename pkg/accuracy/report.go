// Package accuracy quantifies targeting accuracy from two correspondence-
// ordered 3D point sets: the projected targets and the positions actually
// detected in the stack. Errors are reported per axis in physical units.
package accuracy

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
)

var axisNames = [3]string{"z", "y", "x"}

// Report holds per-axis error statistics in physical units (projected minus
// detected, scaled by voxel size) plus the joint RMSE.
type Report struct {
	// Mean and StdDev are per-axis signed error statistics, indexed in
	// (z, y, x) order to match point coordinates.
	Mean   [3]float64
	StdDev [3]float64

	// RMSE is the root mean square of the 3D displacement magnitudes.
	RMSE float64

	// Count is the number of evaluated point pairs.
	Count int
}

// Evaluate computes the accuracy report for projected vs detected targets.
// voxelSize converts index-space displacements to physical units, one entry
// per axis in (z, y, x) order. Both sets must be 3D, equally long and in
// correspondence order.
func Evaluate(projected, detected models.PointSet, voxelSize [3]float64) (Report, error) {
	if len(projected) != len(detected) {
		return Report{}, fmt.Errorf("point sets must have equal length, got %d and %d",
			len(projected), len(detected))
	}
	if len(projected) == 0 {
		return Report{}, fmt.Errorf("no point pairs to evaluate")
	}
	if projected.Dims() != 3 || detected.Dims() != 3 {
		return Report{}, fmt.Errorf("evaluation requires 3D point sets, got %dD and %dD",
			projected.Dims(), detected.Dims())
	}
	for axis, size := range voxelSize {
		if size <= 0 {
			return Report{}, fmt.Errorf("voxel size for axis %s must be positive, got %g",
				axisNames[axis], size)
		}
	}

	report := Report{Count: len(projected)}
	sumSquares := 0.0
	errs := make([][]float64, 3)
	for axis := range errs {
		errs[axis] = make([]float64, len(projected))
	}
	for i := range projected {
		norm2 := 0.0
		for axis := 0; axis < 3; axis++ {
			diff := (projected[i][axis] - detected[i][axis]) * voxelSize[axis]
			errs[axis][i] = diff
			norm2 += diff * diff
		}
		sumSquares += norm2
	}
	for axis := 0; axis < 3; axis++ {
		report.Mean[axis] = stat.Mean(errs[axis], nil)
		report.StdDev[axis] = stat.StdDev(errs[axis], nil)
	}
	report.RMSE = math.Sqrt(sumSquares / float64(len(projected)))
	return report, nil
}

// String formats the report for workflow logs.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Targeting accuracy over %d points:\n", r.Count)
	for axis := 0; axis < 3; axis++ {
		fmt.Fprintf(&b, "  %s: mean %+.3f, stddev %.3f\n", axisNames[axis], r.Mean[axis], r.StdDev[axis])
	}
	fmt.Fprintf(&b, "  3D RMSE: %.3f", r.RMSE)
	return b.String()
}

// PlotErrors writes a per-axis error scatter (signed physical error against
// target index) to a PNG file.
func PlotErrors(projected, detected models.PointSet, voxelSize [3]float64, path string) error {
	if len(projected) != len(detected) || len(projected) == 0 {
		return fmt.Errorf("point sets must be non-empty and equally long")
	}

	p := plot.New()
	p.Title.Text = "Per-axis targeting error"
	p.X.Label.Text = "target index"
	p.Y.Label.Text = "error (physical units)"

	for axis := 0; axis < 3; axis++ {
		pts := make(plotter.XYs, len(projected))
		for i := range projected {
			pts[i].X = float64(i)
			pts[i].Y = (projected[i][axis] - detected[i][axis]) * voxelSize[axis]
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build %s-axis scatter: %w", axisNames[axis], err)
		}
		scatter.GlyphStyle.Color = plotutil.Color(axis)
		scatter.GlyphStyle.Shape = plotutil.Shape(axis)
		p.Add(scatter)
		p.Legend.Add(axisNames[axis], scatter)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save accuracy plot: %w", err)
	}
	return nil
}
