// Package blob locates salient bright regions in a 2D image or 3D stack.
// The pipeline is: global Otsu threshold, optional morphological pre-filter,
// connected-component labeling, ranking by area, centroid extraction.
package blob

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/volume"
)

// Mode selects the binarization pre-filter applied before labeling.
type Mode int

const (
	// ModeNone labels the thresholded volume as-is.
	ModeNone Mode = iota

	// ModeOpening shrinks noise-sized components before labeling. Used when
	// structures are well separated but the background is noisy.
	ModeOpening

	// ModeDilation grows bright regions before labeling. Used when
	// structures are small or sparse.
	ModeDilation
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none":
		return ModeNone, nil
	case "opening":
		return ModeOpening, nil
	case "dilation":
		return ModeDilation, nil
	default:
		return ModeNone, fmt.Errorf("unknown detection mode %q", s)
	}
}

// InsufficientRegionsError reports that fewer connected components were
// found than requested. The detector still returns every centroid it found;
// the caller decides whether to proceed with the short list or abort.
type InsufficientRegionsError struct {
	Requested int
	Found     int
}

func (e *InsufficientRegionsError) Error() string {
	return fmt.Sprintf("detected %d regions, %d requested", e.Found, e.Requested)
}

// Detector holds the tunable parameters of the blob detection pipeline.
// Parameters are plain values injected per call site, so detectors with
// different settings can run concurrently.
type Detector struct {
	// Mode is the morphological pre-filter applied after thresholding.
	Mode Mode

	// Radius is the structuring-element radius for Mode. The element rank
	// (disk vs ball) always follows the input volume rank.
	Radius int

	// MedianRadius, when positive, applies a median pre-filter to the
	// intensities before thresholding.
	MedianRadius int
}

// Detect locates the `count` largest bright regions in the volume and
// returns their centroids in area-descending order together with the mean
// major-axis length across the selected regions.
//
// If fewer components exist than requested, the available centroids are
// returned along with an *InsufficientRegionsError.
func (d Detector) Detect(v *volume.Volume, count int) (models.PointSet, float64, error) {
	if count < 1 {
		return nil, 0, fmt.Errorf("requested region count must be >= 1, got %d", count)
	}

	src := v
	if d.MedianRadius > 0 {
		filtered, err := MedianFilter(v, d.MedianRadius)
		if err != nil {
			return nil, 0, err
		}
		src = filtered
	}

	threshold := OtsuThreshold(src.Data)
	grid := newBinaryGrid(src.Width, src.Height, src.Depth)
	for i, value := range src.Data {
		grid.data[i] = value > threshold
	}

	switch d.Mode {
	case ModeNone:
	case ModeOpening, ModeDilation:
		se, err := kernelFor(src.Rank(), d.Radius)
		if err != nil {
			return nil, 0, err
		}
		if d.Mode == ModeOpening {
			grid = open(grid, se)
		} else {
			grid = dilate(grid, se)
		}
	default:
		return nil, 0, fmt.Errorf("unknown detection mode %d", d.Mode)
	}

	regions := labelRegions(grid, src.Rank())
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Area > regions[j].Area
	})

	selected := regions
	var shortfall error
	if len(regions) >= count {
		selected = regions[:count]
	} else {
		shortfall = &InsufficientRegionsError{Requested: count, Found: len(regions)}
	}

	centroids := make(models.PointSet, len(selected))
	axisSum := 0.0
	for i, region := range selected {
		centroids[i] = region.Centroid
		axisSum += region.AxisLength
	}
	meanAxis := 0.0
	if len(selected) > 0 {
		meanAxis = axisSum / float64(len(selected))
	}
	return centroids, meanAxis, shortfall
}

// OtsuThreshold computes a global intensity threshold over a 256-bin
// histogram of the data range, maximizing the between-class variance of the
// foreground/background split. Binarization is strictly greater-than.
func OtsuThreshold(data []float64) float64 {
	const bins = 256

	minVal, maxVal := data[0], data[0]
	for _, value := range data {
		if value < minVal {
			minVal = value
		}
		if value > maxVal {
			maxVal = value
		}
	}
	if maxVal == minVal {
		return minVal
	}

	hist := make([]int, bins)
	binWidth := (maxVal - minVal) / bins
	for _, value := range data {
		idx := int((value - minVal) / binWidth)
		if idx >= bins {
			idx = bins - 1
		}
		hist[idx]++
	}

	total := len(data)
	sumAll := 0.0
	for i, count := range hist {
		sumAll += float64(i) * float64(count)
	}

	bestVariance := -1.0
	bestBin := 0
	weightBg := 0
	sumBg := 0.0
	for i := 0; i < bins-1; i++ {
		weightBg += hist[i]
		if weightBg == 0 {
			continue
		}
		weightFg := total - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(i) * float64(hist[i])

		meanBg := sumBg / float64(weightBg)
		meanFg := (sumAll - sumBg) / float64(weightFg)
		diff := meanFg - meanBg
		variance := float64(weightBg) * float64(weightFg) * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			bestBin = i
		}
	}

	// Bin center, matching the histogram-based threshold convention.
	return minVal + (float64(bestBin)+0.5)*binWidth
}

// labelRegions performs connected-component labeling (4-connected in 2D,
// 6-connected in 3D) in raster-scan order and computes per-component area,
// centroid and major-axis length. Label numbering follows first touch in
// the scan, keeping area ties reproducible.
func labelRegions(g *binaryGrid, rank int) []models.Region {
	labels := make([]int, len(g.data))
	var regions []models.Region

	neighbors := [][3]int{{0, 0, -1}, {0, 0, 1}, {0, -1, 0}, {0, 1, 0}}
	if rank == 3 {
		neighbors = append(neighbors, [3]int{-1, 0, 0}, [3]int{1, 0, 0})
	}

	next := 0
	var queue [][3]int
	for z := 0; z < g.depth; z++ {
		for y := 0; y < g.height; y++ {
			for x := 0; x < g.width; x++ {
				idx := z*g.width*g.height + y*g.width + x
				if !g.data[idx] || labels[idx] != 0 {
					continue
				}
				next++
				labels[idx] = next
				queue = queue[:0]
				queue = append(queue, [3]int{z, y, x})

				var voxels [][3]int
				for len(queue) > 0 {
					cur := queue[0]
					queue = queue[1:]
					voxels = append(voxels, cur)
					for _, n := range neighbors {
						nz, ny, nx := cur[0]+n[0], cur[1]+n[1], cur[2]+n[2]
						if !g.inBounds(nz, ny, nx) {
							continue
						}
						nidx := nz*g.width*g.height + ny*g.width + nx
						if g.data[nidx] && labels[nidx] == 0 {
							labels[nidx] = next
							queue = append(queue, [3]int{nz, ny, nx})
						}
					}
				}

				regions = append(regions, regionProperties(voxels, rank, next))
			}
		}
	}
	return regions
}

// regionProperties computes the centroid and the major-axis length of one
// component. The axis length is 4*sqrt(largest eigenvalue) of the coordinate
// covariance, which recovers the diameter for a filled disk.
func regionProperties(voxels [][3]int, rank, label int) models.Region {
	n := float64(len(voxels))
	centroid := make(models.Point, rank)
	for _, vx := range voxels {
		coords := regionCoords(vx, rank)
		for d := 0; d < rank; d++ {
			centroid[d] += coords[d] / n
		}
	}

	cov := mat.NewSymDense(rank, nil)
	for _, vx := range voxels {
		coords := regionCoords(vx, rank)
		for a := 0; a < rank; a++ {
			for b := a; b < rank; b++ {
				cov.SetSym(a, b, cov.At(a, b)+(coords[a]-centroid[a])*(coords[b]-centroid[b])/n)
			}
		}
	}

	var eig mat.EigenSym
	axisLength := 0.0
	if eig.Factorize(cov, false) {
		values := eig.Values(nil)
		largest := values[len(values)-1]
		if largest > 0 {
			axisLength = 4 * math.Sqrt(largest)
		}
	}

	return models.Region{
		Centroid:   centroid,
		Area:       len(voxels),
		AxisLength: axisLength,
		Label:      label,
	}
}

// regionCoords maps a (z, y, x) voxel to point coordinates: (row, col) in 2D
// and (z, row, col) in 3D.
func regionCoords(vx [3]int, rank int) []float64 {
	if rank == 2 {
		return []float64{float64(vx[1]), float64(vx[2])}
	}
	return []float64{float64(vx[0]), float64(vx[1]), float64(vx[2])}
}
