// Package registration aligns two coordinate frames observed on the same
// physical targets: it establishes a correspondence between a user-ordered
// reference point set and automatically detected candidates, fits a 2D
// similarity transform between matched sets, and projects points across
// frames, including z-augmentation into a 3D stack.
package registration

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
)

// ErrPoolExhausted is returned by Match when the candidate set is smaller
// than the reference set.
var ErrPoolExhausted = fmt.Errorf("candidate pool smaller than reference set")

// indexedPoint is a candidate point carrying its original index, so a match
// can be traced back to the candidate ordering. It implements
// kdtree.Comparable.
type indexedPoint struct {
	coords models.Point
	index  int
}

// Compare implements the kdtree.Comparable interface.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	return p.coords[d] - q.coords[d]
}

// Dims returns the number of dimensions for the KD-tree.
func (p indexedPoint) Dims() int { return len(p.coords) }

// Distance returns the squared Euclidean distance between two points.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexedPoint)
	sum := 0.0
	for d := range p.coords {
		diff := p.coords[d] - q.coords[d]
		sum += diff * diff
	}
	return sum
}

// indexedPoints is a collection of indexedPoint satisfying kdtree.Interface.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method. MedianOfMedians keeps tree
// construction deterministic.
func (p indexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{indexedPoints: p, Dim: d}, kdtree.MedianOfMedians(pointPlane{indexedPoints: p, Dim: d}))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for indexedPoints.
type pointPlane struct {
	indexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	return p.indexedPoints[i].coords[p.Dim] < p.indexedPoints[j].coords[p.Dim]
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{indexedPoints: p.indexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// Match pairs each reference point with its nearest still-unassigned
// candidate, preserving reference order in the output. The assignment is
// greedy: once a candidate is consumed it cannot be reassigned, so an early
// reference point may take the best match of a later one. Candidate sets
// are expected to be small and well separated, which makes this acceptable.
//
// The returned set has the same length as reference, drawn from distinct
// candidates. Inputs are not mutated.
func Match(reference, candidates models.PointSet) (models.PointSet, error) {
	if len(candidates) < len(reference) {
		return nil, fmt.Errorf("matching %d reference points against %d candidates: %w",
			len(reference), len(candidates), ErrPoolExhausted)
	}
	if len(reference) > 0 && reference.Dims() != candidates.Dims() {
		return nil, fmt.Errorf("reference points are %dD but candidates are %dD",
			reference.Dims(), candidates.Dims())
	}

	used := make([]bool, len(candidates))
	matched := make(models.PointSet, 0, len(reference))

	for _, ref := range reference {
		// Rebuild the tree over the remaining pool each round, as the pool
		// shrinks by one per assignment.
		pool := make(indexedPoints, 0, len(candidates))
		for i, cand := range candidates {
			if !used[i] {
				pool = append(pool, indexedPoint{coords: cand, index: i})
			}
		}

		tree := kdtree.New(pool, false)
		nearest, _ := tree.Nearest(indexedPoint{coords: ref})
		best := nearest.(indexedPoint)

		used[best.index] = true
		matched = append(matched, candidates[best.index].Clone())
	}
	return matched, nil
}
