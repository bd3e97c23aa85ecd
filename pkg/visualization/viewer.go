// Package visualization renders volumes and detected/projected point sets
// to image files for offline inspection, replacing the interactive viewer
// the workflow otherwise relies on.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/volume"
)

// Palette is a colorblind-friendly marker palette. Targets are colored by
// index modulo the palette length, so target #k keeps its color across
// frames and stacks.
var Palette = []color.RGBA{
	{R: 0xe6, G: 0x9f, B: 0x00, A: 0xff}, // orange
	{R: 0x56, G: 0xb4, B: 0xe9, A: 0xff}, // sky blue
	{R: 0x00, G: 0x9e, B: 0x73, A: 0xff}, // bluish green
	{R: 0xf0, G: 0xe4, B: 0x42, A: 0xff}, // yellow
	{R: 0x00, G: 0x72, B: 0xb2, A: 0xff}, // blue
	{R: 0xd5, G: 0x5e, B: 0x00, A: 0xff}, // vermilion
	{R: 0xcc, G: 0x79, B: 0xa7, A: 0xff}, // reddish purple
	{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, // white
}

// Viewer renders slices of a volume with optional point markers.
type Viewer struct {
	vol *volume.Volume

	// markerRadius is the half-length of the cross markers in pixels.
	markerRadius int
}

// NewViewer creates a viewer for the given volume.
func NewViewer(vol *volume.Volume) *Viewer {
	return &Viewer{vol: vol, markerRadius: 4}
}

// SliceImage renders the XY plane at depth z as an 8-bit grayscale RGBA
// image, normalizing intensities to the volume's full range.
func (v *Viewer) SliceImage(z int) (*image.RGBA, error) {
	if z < 0 || z >= v.vol.Depth {
		return nil, fmt.Errorf("slice %d out of range [0, %d)", z, v.vol.Depth)
	}

	minVal, maxVal := v.vol.Data[0], v.vol.Data[0]
	for _, value := range v.vol.Data {
		if value < minVal {
			minVal = value
		}
		if value > maxVal {
			maxVal = value
		}
	}
	scale := 0.0
	if maxVal > minVal {
		scale = 255 / (maxVal - minVal)
	}

	img := image.NewRGBA(image.Rect(0, 0, v.vol.Width, v.vol.Height))
	for y := 0; y < v.vol.Height; y++ {
		for x := 0; x < v.vol.Width; x++ {
			gray := uint8(math.Round((v.vol.At(z, y, x) - minVal) * scale))
			img.SetRGBA(x, y, color.RGBA{R: gray, G: gray, B: gray, A: 0xff})
		}
	}
	return img, nil
}

// MarkPoints draws cross markers on an image. Points are 2D (row, col) or
// 3D (z, row, col); for 3D points the z coordinate is ignored, which suits
// projection overlays rendered on a MIP.
func (v *Viewer) MarkPoints(img *image.RGBA, points models.PointSet) {
	for i, p := range points {
		row, col := p[0], p[1]
		if len(p) == 3 {
			row, col = p[1], p[2]
		}
		v.drawCross(img, int(math.Round(col)), int(math.Round(row)), Palette[i%len(Palette)])
	}
}

func (v *Viewer) drawCross(img *image.RGBA, cx, cy int, c color.RGBA) {
	bounds := img.Bounds()
	for d := -v.markerRadius; d <= v.markerRadius; d++ {
		if pt := image.Pt(cx+d, cy); pt.In(bounds) {
			img.SetRGBA(pt.X, pt.Y, c)
		}
		if pt := image.Pt(cx, cy+d); pt.In(bounds) {
			img.SetRGBA(pt.X, pt.Y, c)
		}
	}
}

// SaveOverlay renders the maximum intensity projection of the volume with
// the given points marked and writes it as a PNG.
func (v *Viewer) SaveOverlay(points models.PointSet, path string) error {
	mip := NewViewer(v.vol.MaxIntensityProjection())
	img, err := mip.SliceImage(0)
	if err != nil {
		return err
	}
	mip.MarkPoints(img, points)
	return savePNG(img, path)
}

// SaveSliceSequence writes every XY slice of the volume as a numbered PNG
// in the output directory.
func (v *Viewer) SaveSliceSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	for z := 0; z < v.vol.Depth; z++ {
		img, err := v.SliceImage(z)
		if err != nil {
			return err
		}
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%03d.png", z))
		if err := savePNG(img, filename); err != nil {
			return err
		}
	}
	return nil
}

func savePNG(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, img)
}
