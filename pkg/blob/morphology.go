package blob

import (
	"fmt"
	"sort"

	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/volume"
)

// StructuringElement is the disk (2D) or ball (3D) kernel used by the
// morphological operations. Offsets are voxel displacements from the center
// in (z, y, x) order; 2D elements keep z at 0.
type StructuringElement struct {
	Rank    int
	Radius  int
	Offsets [][3]int
}

// Disk returns a 2D disk-shaped structuring element of the given radius.
// Membership is a squared-distance test against the radius.
func Disk(radius int) StructuringElement {
	se := StructuringElement{Rank: 2, Radius: radius}
	r2 := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if y*y+x*x <= r2 {
				se.Offsets = append(se.Offsets, [3]int{0, y, x})
			}
		}
	}
	return se
}

// Ball returns a 3D ball-shaped structuring element of the given radius.
func Ball(radius int) StructuringElement {
	se := StructuringElement{Rank: 3, Radius: radius}
	r2 := radius * radius
	for z := -radius; z <= radius; z++ {
		for y := -radius; y <= radius; y++ {
			for x := -radius; x <= radius; x++ {
				if z*z+y*y+x*x <= r2 {
					se.Offsets = append(se.Offsets, [3]int{z, y, x})
				}
			}
		}
	}
	return se
}

// kernelFor builds the structuring element matching the volume rank.
func kernelFor(rank, radius int) (StructuringElement, error) {
	switch rank {
	case 2:
		return Disk(radius), nil
	case 3:
		return Ball(radius), nil
	default:
		return StructuringElement{}, fmt.Errorf("unsupported rank %d", rank)
	}
}

// binaryGrid is a thresholded volume sharing the source dimensions.
type binaryGrid struct {
	data                 []bool
	width, height, depth int
}

func newBinaryGrid(width, height, depth int) *binaryGrid {
	return &binaryGrid{
		data:   make([]bool, width*height*depth),
		width:  width,
		height: height,
		depth:  depth,
	}
}

func (g *binaryGrid) at(z, y, x int) bool {
	return g.data[z*g.width*g.height+y*g.width+x]
}

func (g *binaryGrid) set(z, y, x int, value bool) {
	g.data[z*g.width*g.height+y*g.width+x] = value
}

func (g *binaryGrid) inBounds(z, y, x int) bool {
	return z >= 0 && z < g.depth && y >= 0 && y < g.height && x >= 0 && x < g.width
}

// dilate grows foreground regions: a voxel is set if any element of the
// kernel centered on it covers a foreground voxel.
func dilate(g *binaryGrid, se StructuringElement) *binaryGrid {
	out := newBinaryGrid(g.width, g.height, g.depth)
	for z := 0; z < g.depth; z++ {
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				if !g.at(z, y, x) {
					continue
				}
				for _, off := range se.Offsets {
					nz, ny, nx := z+off[0], y+off[1], x+off[2]
					if g.inBounds(nz, ny, nx) {
						out.set(nz, ny, nx, true)
					}
				}
			}
		}
	}
	return out
}

// erode shrinks foreground regions: a voxel survives only if the kernel
// centered on it fits entirely inside the foreground.
func erode(g *binaryGrid, se StructuringElement) *binaryGrid {
	out := newBinaryGrid(g.width, g.height, g.depth)
	for z := 0; z < g.depth; z++ {
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				if !g.at(z, y, x) {
					continue
				}
				keep := true
				for _, off := range se.Offsets {
					nz, ny, nx := z+off[0], y+off[1], x+off[2]
					if !g.inBounds(nz, ny, nx) || !g.at(nz, ny, nx) {
						keep = false
						break
					}
				}
				out.set(z, y, x, keep)
			}
		}
	}
	return out
}

// open removes noise-sized components (erosion followed by dilation).
func open(g *binaryGrid, se StructuringElement) *binaryGrid {
	return dilate(erode(g, se), se)
}

// MedianFilter applies a median filter with a disk/ball neighborhood of the
// given radius, the standard pre-smoothing step before thresholding noisy
// acquisitions. Neighborhoods are clipped at the volume border.
func MedianFilter(v *volume.Volume, radius int) (*volume.Volume, error) {
	if radius < 1 {
		return nil, fmt.Errorf("median filter radius must be >= 1, got %d", radius)
	}
	se, err := kernelFor(v.Rank(), radius)
	if err != nil {
		return nil, err
	}

	out := v.Clone()
	window := make([]float64, 0, len(se.Offsets))
	for z := 0; z < v.Depth; z++ {
		for y := 0; y < v.Height; y++ {
			for x := 0; x < v.Width; x++ {
				window = window[:0]
				for _, off := range se.Offsets {
					nz, ny, nx := z+off[0], y+off[1], x+off[2]
					if nz < 0 || nz >= v.Depth || ny < 0 || ny >= v.Height || nx < 0 || nx >= v.Width {
						continue
					}
					window = append(window, v.At(nz, ny, nx))
				}
				sort.Float64s(window)
				out.Set(z, y, x, window[len(window)/2])
			}
		}
	}
	return out, nil
}
