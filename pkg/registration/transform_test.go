package registration

import (
	"math"
	"testing"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
)

// TestApplyInverseRoundTrip verifies projecting into frame B and back with
// the inverse transform recovers the originals within floating tolerance.
func TestApplyInverseRoundTrip(t *testing.T) {
	transform := Similarity{
		CenterA: models.Point{10, 20},
		CenterB: models.Point{-5, 3},
		Scale:   1.7,
		Angle:   0.45,
	}
	points := models.PointSet{
		{0, 0},
		{12.5, -3},
		{100, 42},
	}

	forward, err := transform.Apply(points)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	back, err := transform.Inverse().Apply(forward)
	if err != nil {
		t.Fatalf("Inverse apply failed: %v", err)
	}
	for i := range points {
		for d := range points[i] {
			if math.Abs(back[i][d]-points[i][d]) > 1e-9 {
				t.Errorf("Point %d round-tripped to %v, expected %v", i, back[i], points[i])
			}
		}
	}
}

// TestApplyPureTranslation verifies scale 1, angle 0 reduces to a centroid
// shift.
func TestApplyPureTranslation(t *testing.T) {
	transform := Similarity{
		CenterA: models.Point{0, 0},
		CenterB: models.Point{5, -2},
		Scale:   1,
		Angle:   0,
	}
	out, err := transform.Apply(models.PointSet{{1, 1}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out[0][0] != 6 || out[0][1] != -1 {
		t.Errorf("Expected (6, -1), got %v", out[0])
	}
}

// TestApplyDoesNotMutate verifies the input set is untouched.
func TestApplyDoesNotMutate(t *testing.T) {
	transform := Similarity{
		CenterA: models.Point{1, 1},
		CenterB: models.Point{0, 0},
		Scale:   2,
		Angle:   0.1,
	}
	points := models.PointSet{{3, 4}}
	if _, err := transform.Apply(points); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if points[0][0] != 3 || points[0][1] != 4 {
		t.Errorf("Apply mutated its input: %v", points[0])
	}
}

// TestApplyRejectsWrongDims verifies the 2D precondition.
func TestApplyRejectsWrongDims(t *testing.T) {
	transform := Similarity{CenterA: models.Point{0, 0}, CenterB: models.Point{0, 0}, Scale: 1}
	if _, err := transform.Apply(models.PointSet{{1, 2, 3}}); err == nil {
		t.Error("Expected an error for 3D points")
	}
}

// TestAugmentZSymmetric verifies the z-indices are symmetric around the
// mid-depth plane for an odd depth.
func TestAugmentZSymmetric(t *testing.T) {
	points := models.PointSet{{1, 1}, {2, 2}, {3, 3}}
	depth := 21
	spacing := 4.0

	out, err := AugmentZ(points, spacing, depth)
	if err != nil {
		t.Fatalf("AugmentZ failed: %v", err)
	}
	if len(out) != len(points) {
		t.Fatalf("Expected %d points, got %d", len(points), len(out))
	}

	middle := float64((depth - 1) / 2)
	// Middle point of an odd-count set sits exactly at mid-depth.
	if out[1][0] != middle {
		t.Errorf("Middle point at z=%f, expected %f", out[1][0], middle)
	}
	// Outer points mirror around the mid-depth plane.
	if out[0][0]-middle != middle-out[2][0] {
		t.Errorf("Expected symmetric z-indices, got %f and %f around %f",
			out[0][0], out[2][0], middle)
	}
	// Consecutive points are one spacing apart, descending.
	if out[0][0]-out[1][0] != spacing {
		t.Errorf("Expected spacing %f, got %f", spacing, out[0][0]-out[1][0])
	}
	// In-plane coordinates carry over behind the z-index.
	if out[0][1] != 1 || out[0][2] != 1 {
		t.Errorf("Expected (row, col) carried over, got %v", out[0])
	}
}

// TestAugmentZKnownIndices pins the index formula on a concrete case.
func TestAugmentZKnownIndices(t *testing.T) {
	points := models.PointSet{{0, 0}, {0, 0}, {0, 0}, {0, 0}}
	// depth 11 -> middle 5; n=4, spacing 2 -> half range floor(3) = 3.
	out, err := AugmentZ(points, 2, 11)
	if err != nil {
		t.Fatalf("AugmentZ failed: %v", err)
	}
	expected := []float64{8, 6, 4, 2}
	for i, z := range expected {
		if out[i][0] != z {
			t.Errorf("Point %d at z=%f, expected %f", i, out[i][0], z)
		}
	}
}

// TestAugmentZFractionalSpacing verifies the whole z expression is truncated
// after subtracting i*spacing, not spacing alone.
func TestAugmentZFractionalSpacing(t *testing.T) {
	points := models.PointSet{{0, 0}, {0, 0}, {0, 0}}
	// depth 11 -> middle 5; n=3, spacing 2.5 -> half range floor(2.5) = 2.
	// z_i = floor(7 - 2.5*i) = 7, 4, 2.
	out, err := AugmentZ(points, 2.5, 11)
	if err != nil {
		t.Fatalf("AugmentZ failed: %v", err)
	}
	expected := []float64{7, 4, 2}
	for i, z := range expected {
		if out[i][0] != z {
			t.Errorf("Point %d at z=%f, expected %f", i, out[i][0], z)
		}
	}
}

// TestAugmentZOutOfRange verifies indices outside the stack are rejected
// rather than propagated.
func TestAugmentZOutOfRange(t *testing.T) {
	points := models.PointSet{{0, 0}, {0, 0}, {0, 0}, {0, 0}, {0, 0}}
	if _, err := AugmentZ(points, 10, 5); err == nil {
		t.Error("Expected an error for out-of-range z-indices")
	}
}

// TestAugmentZRejectsBadParams verifies spacing and depth preconditions.
func TestAugmentZRejectsBadParams(t *testing.T) {
	points := models.PointSet{{0, 0}}
	if _, err := AugmentZ(points, 0, 10); err == nil {
		t.Error("Expected an error for zero spacing")
	}
	if _, err := AugmentZ(points, 1, 0); err == nil {
		t.Error("Expected an error for zero depth")
	}
}
