package mapview

import (
	"math"
	"sort"
	"strconv"

	"github.com/spothole/spothole-api/internal/dto"
)

const (
	tileSize = 256
	// DefaultClusterRadius is the pixel distance within which markers merge.
	DefaultClusterRadius = 80.0
	maxLatitude          = 85.05112878
)

type Tier int

const (
	TierSmall Tier = iota
	TierMedium
	TierLarge
)

func (t Tier) String() string {
	switch t {
	case TierSmall:
		return "small"
	case TierMedium:
		return "medium"
	default:
		return "large"
	}
}

// TierFor buckets a cluster by child count: under 10 is small, under 100
// medium, anything else large.
func TierFor(count int) Tier {
	switch {
	case count < 10:
		return TierSmall
	case count < 100:
		return TierMedium
	default:
		return TierLarge
	}
}

// IconSize is the square icon edge in pixels for a tier.
func (t Tier) IconSize() int {
	switch t {
	case TierSmall:
		return 40
	case TierMedium:
		return 50
	default:
		return 60
	}
}

type LatLng struct {
	Lat float64
	Lng float64
}

type Point struct {
	X float64
	Y float64
}

// Project maps a coordinate to Web Mercator world pixels at zoom.
func Project(ll LatLng, zoom int) Point {
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, ll.Lat))
	scale := tileSize * math.Pow(2, float64(zoom))
	sin := math.Sin(lat * math.Pi / 180)
	return Point{
		X: scale * (ll.Lng + 180) / 360,
		Y: scale * (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)),
	}
}

// Unproject is the inverse of Project.
func Unproject(p Point, zoom int) LatLng {
	scale := tileSize * math.Pow(2, float64(zoom))
	lng := p.X/scale*360 - 180
	n := math.Pi - 2*math.Pi*p.Y/scale
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return LatLng{Lat: lat, Lng: lng}
}

// Cluster is a group of markers drawn as one icon. A cluster of one is a
// plain marker.
type Cluster struct {
	Center  LatLng
	Members []dto.PotholeFlat

	sum Point
	px  Point
}

func (c Cluster) Count() int { return len(c.Members) }

func (c Cluster) Tier() Tier { return TierFor(len(c.Members)) }

// IsMarker reports whether the cluster is a single unclustered marker.
func (c Cluster) IsMarker() bool { return len(c.Members) == 1 }

// Label is the count shown on the cluster icon.
func (c Cluster) Label() string {
	if c.IsMarker() {
		return ""
	}
	return strconv.Itoa(len(c.Members))
}

// Bounds is the smallest box containing every member.
func (c Cluster) Bounds() (sw, ne LatLng) {
	sw = LatLng{Lat: math.Inf(1), Lng: math.Inf(1)}
	ne = LatLng{Lat: math.Inf(-1), Lng: math.Inf(-1)}
	for _, m := range c.Members {
		sw.Lat = math.Min(sw.Lat, m.Latitude)
		sw.Lng = math.Min(sw.Lng, m.Longitude)
		ne.Lat = math.Max(ne.Lat, m.Latitude)
		ne.Lng = math.Max(ne.Lng, m.Longitude)
	}
	return sw, ne
}

// ClusterReports greedily merges reports whose projected position lies
// within radius pixels of an existing cluster center at zoom. Reports are
// visited oldest first so adding newer reports does not reshuffle existing
// clusters. Output is ordered largest cluster first.
func ClusterReports(reports []dto.PotholeFlat, zoom int, radius float64) []Cluster {
	if radius <= 0 {
		radius = DefaultClusterRadius
	}
	ordered := make([]dto.PotholeFlat, len(reports))
	copy(ordered, reports)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	r2 := radius * radius
	var clusters []Cluster
	for _, rep := range ordered {
		p := Project(LatLng{Lat: rep.Latitude, Lng: rep.Longitude}, zoom)

		best, bestDist := -1, math.Inf(1)
		for i := range clusters {
			dx, dy := clusters[i].px.X-p.X, clusters[i].px.Y-p.Y
			if d := dx*dx + dy*dy; d <= r2 && d < bestDist {
				best, bestDist = i, d
			}
		}

		if best < 0 {
			clusters = append(clusters, Cluster{
				Center:  LatLng{Lat: rep.Latitude, Lng: rep.Longitude},
				Members: []dto.PotholeFlat{rep},
				sum:     p,
				px:      p,
			})
			continue
		}

		c := &clusters[best]
		c.Members = append(c.Members, rep)
		c.sum.X += p.X
		c.sum.Y += p.Y
		n := float64(len(c.Members))
		c.px = Point{X: c.sum.X / n, Y: c.sum.Y / n}
		c.Center = Unproject(c.px, zoom)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Members) > len(clusters[j].Members)
	})
	return clusters
}
