// Package volume provides the in-memory image/volume model shared by the
// detection and registration pipeline. A Volume is either a single 2D image
// or a 3D stack of slices; all intensities are held as float64 so any
// integer or floating input bit depth can be represented.
package volume

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// Volume holds intensity data as a flat array in z-major, row-major order:
// index = z*Width*Height + y*Width + x.
type Volume struct {
	// Data is the intensity data. len(Data) == Width*Height*Depth.
	Data []float64

	// Width and Height are the in-plane dimensions in pixels.
	Width  int
	Height int

	// Depth is the number of slices. A Depth of 1 denotes a plain 2D image.
	Depth int
}

// New allocates a zeroed volume with the given dimensions.
func New(width, height, depth int) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("volume dimensions must be positive, got %dx%dx%d", width, height, depth)
	}
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}, nil
}

// Rank returns 2 for a single image and 3 for a stack. Structuring-element
// dimensionality must match this value during detection.
func (v *Volume) Rank() int {
	if v.Depth > 1 {
		return 3
	}
	return 2
}

// At returns the intensity at (z, y, x).
func (v *Volume) At(z, y, x int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set writes the intensity at (z, y, x).
func (v *Volume) Set(z, y, x int, value float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Clone returns an independent copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Width: v.Width, Height: v.Height, Depth: v.Depth}
}

// MaxIntensityProjection collapses a stack along the z axis, keeping the
// brightest voxel in each column. For a 2D input it returns a copy.
func (v *Volume) MaxIntensityProjection() *Volume {
	if v.Depth == 1 {
		return v.Clone()
	}
	out, _ := New(v.Width, v.Height, 1)
	planeSize := v.Width * v.Height
	copy(out.Data, v.Data[:planeSize])
	for z := 1; z < v.Depth; z++ {
		plane := v.Data[z*planeSize : (z+1)*planeSize]
		for i, value := range plane {
			if value > out.Data[i] {
				out.Data[i] = value
			}
		}
	}
	return out
}

// ExtractSlice extracts a single XY plane from the stack.
func (v *Volume) ExtractSlice(z int) (*Volume, error) {
	if z < 0 || z >= v.Depth {
		return nil, fmt.Errorf("slice %d out of range [0, %d)", z, v.Depth)
	}
	out, _ := New(v.Width, v.Height, 1)
	planeSize := v.Width * v.Height
	copy(out.Data, v.Data[z*planeSize:(z+1)*planeSize])
	return out, nil
}

// FromImage converts a decoded image to a single-slice volume using 16-bit
// grayscale luminance.
func FromImage(img image.Image) *Volume {
	bounds := img.Bounds()
	v, _ := New(bounds.Dx(), bounds.Dy(), 1)
	for y := 0; y < v.Height; y++ {
		for x := 0; x < v.Width; x++ {
			v.Set(0, y, x, float64(gray16At(img, bounds.Min.X+x, bounds.Min.Y+y)))
		}
	}
	return v
}

func gray16At(img image.Image, x, y int) uint32 {
	r, g, b, _ := img.At(x, y).RGBA()
	// Rec. 601 luma, same weighting the image/color gray models use.
	return (299*r + 587*g + 114*b + 500) / 1000
}

// LoadImage reads a single 2D image file. PNG, JPEG and TIFF are supported
// through the registered decoders.
func LoadImage(path string) (*Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return FromImage(img), nil
}

// LoadStack reads a directory of slice images and assembles them into a 3D
// volume. Files are ordered by the numeric part of their filenames so the
// stack preserves acquisition order regardless of zero padding.
func LoadStack(dir string) (*Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read stack directory: %w", err)
	}

	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			imageFiles = append(imageFiles, entry.Name())
		}
	}
	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no slice images found in %s", dir)
	}

	sort.Slice(imageFiles, func(i, j int) bool {
		numI := extractNumber(imageFiles[i])
		numJ := extractNumber(imageFiles[j])
		if numI != numJ {
			return numI < numJ
		}
		return imageFiles[i] < imageFiles[j]
	})

	var vol *Volume
	for z, filename := range imageFiles {
		slice, err := LoadImage(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load slice %s: %w", filename, err)
		}
		if vol == nil {
			vol, err = New(slice.Width, slice.Height, len(imageFiles))
			if err != nil {
				return nil, err
			}
		}
		if slice.Width != vol.Width || slice.Height != vol.Height {
			return nil, fmt.Errorf("slice %s has dimensions %dx%d, expected %dx%d",
				filename, slice.Width, slice.Height, vol.Width, vol.Height)
		}
		copy(vol.Data[z*vol.Width*vol.Height:], slice.Data)
	}
	return vol, nil
}

// extractNumber extracts the numeric part from a filename so slices sort in
// acquisition order.
func extractNumber(filename string) int {
	numStr := ""
	for _, c := range filepath.Base(filename) {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}
	if numStr != "" {
		if num, err := strconv.Atoi(numStr); err == nil {
			return num
		}
	}
	return 0
}
