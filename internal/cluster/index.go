package cluster

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/OldStager01/demand-predictor/pkg/models"
)

// Index answers nearest-centroid queries over a Table. It is safe for
// concurrent use once built.
type Index struct {
	tree  *kdtree.Tree
	table *Table
}

// NewIndex builds a k-d tree over the (lat, lng) plane of the table.
func NewIndex(table *Table) *Index {
	pts := make(centroidPoints, table.Len())
	for i := range pts {
		row := table.Row(i)
		pts[i] = centroidPoint{lat: row.Latitude, lng: row.Longitude, cluster: row.ClusterID, row: i}
	}
	return &Index{
		tree:  kdtree.New(pts, false),
		table: table,
	}
}

// Nearest returns the closest centroid and its Euclidean distance in degrees.
func (x *Index) Nearest(lat, lng float64) (models.Centroid, float64, error) {
	if !finite(lat) || !finite(lng) {
		return models.Centroid{}, 0, ErrInvalidQuery
	}
	got, sqDist := x.tree.Nearest(centroidPoint{lat: lat, lng: lng})
	if got == nil {
		return models.Centroid{}, 0, ErrEmptyTable
	}
	p := x.firstAt(centroidPoint{lat: lat, lng: lng}, got.(centroidPoint), sqDist)
	return x.table.Row(p.row), math.Sqrt(sqDist), nil
}

// firstAt returns the lowest table row among centroids equidistant with best.
func (x *Index) firstAt(q, best centroidPoint, sqDist float64) centroidPoint {
	keep := kdtree.NewDistKeeper(sqDist)
	x.tree.NearestSet(keep, q)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		if p := c.Comparable.(centroidPoint); p.row < best.row {
			best = p
		}
	}
	return best
}

// Assign returns the cluster id of the nearest centroid.
func (x *Index) Assign(lat, lng float64) (int, error) {
	c, _, err := x.Nearest(lat, lng)
	if err != nil {
		return 0, err
	}
	return c.ClusterID, nil
}

type centroidPoint struct {
	lat, lng float64
	cluster  int
	row      int
}

func (p centroidPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(centroidPoint)
	switch d {
	case 0:
		return p.lat - q.lat
	case 1:
		return p.lng - q.lng
	default:
		panic("cluster: illegal dimension")
	}
}

func (p centroidPoint) Dims() int { return 2 }

// Distance is the squared Euclidean distance, as kdtree expects.
func (p centroidPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(centroidPoint)
	dLat := p.lat - q.lat
	dLng := p.lng - q.lng
	return dLat*dLat + dLng*dLng
}

type centroidPoints []centroidPoint

func (p centroidPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p centroidPoints) Len() int                              { return len(p) }
func (p centroidPoints) Pivot(d kdtree.Dim) int                { return plane{centroidPoints: p, Dim: d}.Pivot() }
func (p centroidPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	centroidPoints
}

func (p plane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.centroidPoints[i].lat < p.centroidPoints[j].lat
	case 1:
		return p.centroidPoints[i].lng < p.centroidPoints[j].lng
	default:
		panic("cluster: illegal dimension")
	}
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.centroidPoints = p.centroidPoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.centroidPoints[i], p.centroidPoints[j] = p.centroidPoints[j], p.centroidPoints[i]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
