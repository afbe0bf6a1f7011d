package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"flatfinder/server/config"
	"flatfinder/server/internal/models"
)

// Geometry kinds reported in the "geometry_type" property
const (
	KindListing = "listing"
	KindCenter  = "center"
	KindHull    = "hull"
	KindBound   = "bound"
)

// TownExtent renders the listings of a town as GeoJSON: one point per listing
// with coordinates, the town center when known, and the area they cover.
// Three or more distinct points give a convex hull, fewer give their bound.
func TownExtent(town config.Town, listings []models.Listing) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	var points []orb.Point
	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		p := orb.Point{*l.Longitude, *l.Latitude}
		points = append(points, p)

		f := geojson.NewFeature(p)
		f.Properties = geojson.Properties{
			"geometry_type": KindListing,
			"id":            l.ID,
			"reference":     l.Reference,
			"unit_type":     l.UnitType,
			"price":         l.Price,
		}
		fc.Append(f)
	}

	if len(town.Center) == 2 {
		f := geojson.NewFeature(orb.Point{town.Center[1], town.Center[0]})
		f.Properties = geojson.Properties{
			"geometry_type": KindCenter,
			"town":          town.Name,
		}
		fc.Append(f)
	}

	if len(points) == 0 {
		return fc
	}

	var area orb.Geometry
	kind := KindBound
	if hull := convexHull(points); hull != nil {
		area = orb.Polygon{hull}
		kind = KindHull
	} else {
		area = orb.MultiPoint(points).Bound().ToPolygon()
	}

	f := geojson.NewFeature(area)
	f.Properties = geojson.Properties{
		"geometry_type": kind,
		"town":          town.Name,
		"point_count":   len(points),
		"area":          math.Abs(planar.Area(area)),
	}
	fc.Append(f)
	return fc
}

// convexHull returns the closed counter-clockwise hull of points, or nil
// when they are fewer than three distinct points or all collinear.
func convexHull(points []orb.Point) orb.Ring {
	pts := uniquePoints(points)
	if len(pts) < 3 {
		return nil
	}

	// Andrew's monotone chain
	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// hull ends with its first point, so a triangle needs four entries
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// uniquePoints returns the distinct points sorted by x then y
func uniquePoints(points []orb.Point) []orb.Point {
	pts := append([]orb.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	out := pts[:0]
	for _, p := range pts {
		if len(out) > 0 && p.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}
