package visualization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/volume"
)

func testVolume(t *testing.T, width, height, depth int) *volume.Volume {
	t.Helper()
	v, err := volume.New(width, height, depth)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	for i := range v.Data {
		v.Data[i] = float64(i % 97)
	}
	return v
}

// TestSliceImageNormalization verifies intensities are stretched to the full
// 8-bit range.
func TestSliceImageNormalization(t *testing.T) {
	v, err := volume.New(2, 1, 1)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	v.Set(0, 0, 0, 100)
	v.Set(0, 0, 1, 300)

	viewer := NewViewer(v)
	img, err := viewer.SliceImage(0)
	if err != nil {
		t.Fatalf("SliceImage failed: %v", err)
	}
	if img.RGBAAt(0, 0).R != 0 {
		t.Errorf("Expected darkest voxel at 0, got %d", img.RGBAAt(0, 0).R)
	}
	if img.RGBAAt(1, 0).R != 255 {
		t.Errorf("Expected brightest voxel at 255, got %d", img.RGBAAt(1, 0).R)
	}
}

// TestSliceImageOutOfRange verifies the depth bounds check.
func TestSliceImageOutOfRange(t *testing.T) {
	viewer := NewViewer(testVolume(t, 4, 4, 2))
	if _, err := viewer.SliceImage(2); err == nil {
		t.Error("Expected an error for out-of-range slice")
	}
}

// TestMarkPointsPalette verifies markers land at the point position with the
// index color, for both 2D and 3D points.
func TestMarkPointsPalette(t *testing.T) {
	v, err := volume.New(20, 20, 1)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	viewer := NewViewer(v)
	img, err := viewer.SliceImage(0)
	if err != nil {
		t.Fatalf("SliceImage failed: %v", err)
	}

	// First point 2D at (row 5, col 10); second 3D at (z 3, row 15, col 4).
	viewer.MarkPoints(img, models.PointSet{{5, 10}, {3, 15, 4}})

	if img.RGBAAt(10, 5) != Palette[0] {
		t.Errorf("Expected first palette color at (10, 5), got %v", img.RGBAAt(10, 5))
	}
	if img.RGBAAt(4, 15) != Palette[1] {
		t.Errorf("Expected second palette color at (4, 15), got %v", img.RGBAAt(4, 15))
	}
}

// TestSaveOverlay verifies the MIP overlay is written to disk.
func TestSaveOverlay(t *testing.T) {
	viewer := NewViewer(testVolume(t, 16, 16, 4))
	path := filepath.Join(t.TempDir(), "overlay.png")

	if err := viewer.SaveOverlay(models.PointSet{{8, 8}}, path); err != nil {
		t.Fatalf("SaveOverlay failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Overlay file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Overlay file is empty")
	}
}

// TestSaveSliceSequence verifies one numbered PNG per slice.
func TestSaveSliceSequence(t *testing.T) {
	viewer := NewViewer(testVolume(t, 8, 8, 3))
	dir := t.TempDir()

	if err := viewer.SaveSliceSequence(dir); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read output dir: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 slice images, got %d", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "slice_001.png")); err != nil {
		t.Error("Expected numbered slice filenames")
	}
}
