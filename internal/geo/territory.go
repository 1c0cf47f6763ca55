// Package geo builds suburb coverage polygons from the coordinates of
// tracked properties, for rendering the agent's territory on a map.
package geo

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"prospector/server/internal/database"
)

// TerritoryMapper derives per-suburb convex hulls from property locations.
type TerritoryMapper struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewTerritoryMapper(db *database.Database, logger *logrus.Logger) *TerritoryMapper {
	return &TerritoryMapper{
		db:     db,
		logger: logger,
	}
}

// SuburbTerritories returns a GeoJSON feature collection with one hull per
// suburb that has at least three located properties. Suburbs with fewer
// points are skipped since they cannot form a polygon.
func (tm *TerritoryMapper) SuburbTerritories() (*geojson.FeatureCollection, error) {
	rows, err := tm.db.GetDB().Query(`
		SELECT suburb, latitude, longitude
		FROM properties
		ORDER BY suburb`)
	if err != nil {
		return nil, fmt.Errorf("failed to query property locations: %w", err)
	}
	defer rows.Close()

	suburbs := make(map[string][]orb.Point)
	for rows.Next() {
		var suburb string
		var lat, lng float64
		if err := rows.Scan(&suburb, &lat, &lng); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		suburbs[suburb] = append(suburbs[suburb], orb.Point{lng, lat})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for suburb, points := range suburbs {
		if len(points) < 3 {
			tm.logger.WithFields(logrus.Fields{
				"suburb": suburb,
				"points": len(points),
			}).Debug("Not enough located properties for a territory hull")
			continue
		}

		hull := convexHull(points)
		if hull == nil {
			continue
		}

		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.Properties = geojson.Properties{
			"suburb":      suburb,
			"point_count": len(points),
			"hull_type":   "convex",
		}
		fc.Append(feature)
	}

	sort.Slice(fc.Features, func(i, j int) bool {
		return fc.Features[i].Properties["suburb"].(string) < fc.Features[j].Properties["suburb"].(string)
	})
	return fc, nil
}

// convexHull runs an Andrew monotone chain over the points and returns a
// closed ring, or nil when the points are collinear.
func convexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	var lower []orb.Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []orb.Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}

	hull = append(hull, hull[0])
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
