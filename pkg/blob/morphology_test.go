package blob

import (
	"testing"

	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/volume"
)

// TestDiskElement verifies disk membership and rank.
func TestDiskElement(t *testing.T) {
	se := Disk(1)
	if se.Rank != 2 {
		t.Errorf("Expected rank 2, got %d", se.Rank)
	}
	// Radius-1 disk is a plus sign: center + 4 neighbors.
	if len(se.Offsets) != 5 {
		t.Errorf("Expected 5 offsets for radius-1 disk, got %d", len(se.Offsets))
	}
	for _, off := range se.Offsets {
		if off[0] != 0 {
			t.Errorf("2D element must keep z offset 0, got %v", off)
		}
	}
}

// TestBallElement verifies ball membership and rank.
func TestBallElement(t *testing.T) {
	se := Ball(1)
	if se.Rank != 3 {
		t.Errorf("Expected rank 3, got %d", se.Rank)
	}
	// Radius-1 ball: center + 6 face neighbors.
	if len(se.Offsets) != 7 {
		t.Errorf("Expected 7 offsets for radius-1 ball, got %d", len(se.Offsets))
	}
}

// TestDilateGrows verifies dilation expands a single foreground pixel into
// the structuring-element footprint.
func TestDilateGrows(t *testing.T) {
	g := newBinaryGrid(9, 9, 1)
	g.set(0, 4, 4, true)

	out := dilate(g, Disk(2))

	count := 0
	for _, set := range out.data {
		if set {
			count++
		}
	}
	if count != len(Disk(2).Offsets) {
		t.Errorf("Expected %d foreground pixels after dilation, got %d", len(Disk(2).Offsets), count)
	}
	if !out.at(0, 4, 6) || !out.at(0, 2, 4) {
		t.Error("Dilation did not reach the element boundary")
	}
}

// TestOpenRemovesSpeckle verifies opening removes components smaller than
// the element while preserving larger ones.
func TestOpenRemovesSpeckle(t *testing.T) {
	g := newBinaryGrid(20, 20, 1)
	// 5x5 block survives a radius-1 opening.
	for y := 8; y < 13; y++ {
		for x := 8; x < 13; x++ {
			g.set(0, y, x, true)
		}
	}
	// Lone pixel does not.
	g.set(0, 2, 2, true)

	out := open(g, Disk(1))

	if out.at(0, 2, 2) {
		t.Error("Opening should remove a single-pixel component")
	}
	if !out.at(0, 10, 10) {
		t.Error("Opening should preserve the interior of the large block")
	}
}

// TestMedianFilterRemovesImpulse verifies a single hot pixel in a flat
// image is replaced by the neighborhood median.
func TestMedianFilterRemovesImpulse(t *testing.T) {
	v, err := volume.New(11, 11, 1)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	for i := range v.Data {
		v.Data[i] = 50
	}
	v.Set(0, 5, 5, 1000)

	out, err := MedianFilter(v, 1)
	if err != nil {
		t.Fatalf("MedianFilter failed: %v", err)
	}
	if got := out.At(0, 5, 5); got != 50 {
		t.Errorf("Expected hot pixel replaced by 50, got %f", got)
	}
	// Input must not be mutated.
	if v.At(0, 5, 5) != 1000 {
		t.Error("MedianFilter mutated its input")
	}
}

// TestMedianFilterRejectsBadRadius verifies the radius precondition.
func TestMedianFilterRejectsBadRadius(t *testing.T) {
	v, err := volume.New(5, 5, 1)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	if _, err := MedianFilter(v, 0); err == nil {
		t.Error("Expected an error for radius 0")
	}
}
