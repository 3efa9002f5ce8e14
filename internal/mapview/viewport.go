package mapview

import "github.com/spothole/spothole-api/internal/dto"

const DefaultMaxZoom = 19

// Viewport is the visible map position.
type Viewport struct {
	Center LatLng
	Zoom   int
}

// PanTo is a requested camera move.
type PanTo struct {
	Center  LatLng
	Zoom    int
	Animate bool
}

// FocusMarker recenters on a clicked marker with an animated pan, keeping
// the zoom level.
func (v Viewport) FocusMarker(r dto.PotholeFlat) PanTo {
	return PanTo{
		Center:  LatLng{Lat: r.Latitude, Lng: r.Longitude},
		Zoom:    v.Zoom,
		Animate: true,
	}
}

// ExpandCluster zooms in on a clicked cluster to the first level at which
// its members no longer form one cluster. At maxZoom the cluster stays
// whole and the caller is expected to spread its markers out instead.
func (v Viewport) ExpandCluster(c Cluster, maxZoom int, radius float64) PanTo {
	sw, ne := c.Bounds()
	center := LatLng{Lat: (sw.Lat + ne.Lat) / 2, Lng: (sw.Lng + ne.Lng) / 2}
	if maxZoom <= 0 {
		maxZoom = DefaultMaxZoom
	}

	zoom := v.Zoom
	for zoom < maxZoom {
		zoom++
		if len(ClusterReports(c.Members, zoom, radius)) > 1 {
			break
		}
	}
	return PanTo{Center: center, Zoom: zoom, Animate: true}
}
