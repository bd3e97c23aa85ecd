package models

// Point is a fixed-length coordinate tuple. Coordinates are stored in
// (row, col) order for 2D points and (z, row, col) order for 3D points,
// matching the axis order of volume data.
type Point []float64

// Dims returns the dimensionality of the point.
func (p Point) Dims() int { return len(p) }

// Clone returns an independent copy of the point.
func (p Point) Clone() Point {
	q := make(Point, len(p))
	copy(q, p)
	return q
}

// PointSet is an ordered collection of points. Order is semantically
// meaningful: index i in one set corresponds to index i in another
// (e.g. "target #3" keeps its identity through the pipeline).
type PointSet []Point

// Clone returns a deep copy of the point set. Pipeline stages copy rather
// than mutate, so sharing an input set across calls is always safe.
func (ps PointSet) Clone() PointSet {
	out := make(PointSet, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}

// Dims returns the dimensionality of the points in the set, or 0 for an
// empty set. Sets are assumed homogeneous.
func (ps PointSet) Dims() int {
	if len(ps) == 0 {
		return 0
	}
	return len(ps[0])
}

// Region describes a connected foreground component found by the blob
// detector. Regions are ephemeral: they are ranked by area and discarded
// once centroids are extracted.
type Region struct {
	// Centroid is the area-weighted geometric center of the component.
	Centroid Point

	// Area is the number of pixels/voxels in the component.
	Area int

	// AxisLength is the major axis length of the component, estimated
	// from the eigenvalues of the coordinate covariance.
	AxisLength float64

	// Label is the component's label in raster-scan order. Area ties are
	// broken by ascending label so ranking stays reproducible.
	Label int
}
