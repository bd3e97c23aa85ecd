package registration

import (
	"fmt"
	"math"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
)

// Apply projects 2D points from frame A into frame B: subtract CenterA,
// scale, rotate by -Angle, add CenterB. The negated angle inverts the fit's
// parameterization, which rotates the target set toward the scaled
// reference by +Angle. The input set is not mutated.
func (t Similarity) Apply(points models.PointSet) (models.PointSet, error) {
	if len(points) > 0 && points.Dims() != 2 {
		return nil, fmt.Errorf("transform requires 2D points, got %dD", points.Dims())
	}
	if len(t.CenterA) != 2 || len(t.CenterB) != 2 {
		return nil, fmt.Errorf("transform centers must be 2D, got %dD and %dD", len(t.CenterA), len(t.CenterB))
	}

	c, s := math.Cos(-t.Angle), math.Sin(-t.Angle)
	out := make(models.PointSet, len(points))
	for i, p := range points {
		r0 := (p[0] - t.CenterA[0]) * t.Scale
		r1 := (p[1] - t.CenterA[1]) * t.Scale
		out[i] = models.Point{
			c*r0 - s*r1 + t.CenterB[0],
			s*r0 + c*r1 + t.CenterB[1],
		}
	}
	return out, nil
}

// Inverse returns the transform mapping frame B back into frame A. Applying
// a transform and then its inverse reproduces the original points up to
// floating-point error.
func (t Similarity) Inverse() Similarity {
	return Similarity{
		CenterA: t.CenterB.Clone(),
		CenterB: t.CenterA.Clone(),
		Scale:   1 / t.Scale,
		Angle:   -t.Angle,
	}
}

// AugmentZ extends 2D points into a 3D frame by assigning each point a
// synthetic z-index from its ordinal position: the i-th of n points gets
//
//	z = floor(floor((depth-1)/2) + floor((n-1)/2 * spacing) - i * spacing)
//
// which distributes the set symmetrically around the stack's mid-depth
// plane at fixed spacing. Points must be pre-ordered by intended depth
// rank. Indices falling outside [0, depth) are rejected rather than
// propagated into the stack.
func AugmentZ(points models.PointSet, spacing float64, depth int) (models.PointSet, error) {
	if len(points) > 0 && points.Dims() != 2 {
		return nil, fmt.Errorf("z-augmentation requires 2D points, got %dD", points.Dims())
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("z spacing must be positive, got %g", spacing)
	}
	if depth < 1 {
		return nil, fmt.Errorf("stack depth must be >= 1, got %d", depth)
	}

	n := len(points)
	middleIndex := (depth - 1) / 2
	halfRange := int(float64(n-1) / 2 * spacing)

	out := make(models.PointSet, n)
	for i, p := range points {
		z := int(float64(middleIndex+halfRange) - float64(i)*spacing)
		if z < 0 || z >= depth {
			return nil, fmt.Errorf("z-index %d for point %d outside stack depth %d (spacing %g, %d points)",
				z, i, depth, spacing, n)
		}
		out[i] = models.Point{float64(z), p[0], p[1]}
	}
	return out, nil
}
