package models

import (
	"fmt"
	"strconv"
	"strings"
)

// BoundingBox is an axis-aligned lon/lat rectangle.
type BoundingBox struct {
	MinLng float64
	MinLat float64
	MaxLng float64
	MaxLat float64
}

// ParseBoundingBox parses "minLng,minLat,maxLng,maxLat".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bbox needs 4 numbers, got %d", len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		vals[i] = v
	}
	b := BoundingBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
	if b.MaxLng < b.MinLng || b.MaxLat < b.MinLat {
		return BoundingBox{}, fmt.Errorf("bbox max must be >= min")
	}
	if !ValidLongitude(b.MinLng) || !ValidLongitude(b.MaxLng) || !ValidLatitude(b.MinLat) || !ValidLatitude(b.MaxLat) {
		return BoundingBox{}, fmt.Errorf("bbox out of range")
	}
	return b, nil
}

// Contains reports whether the point lies inside or on the edge of the box.
func (b BoundingBox) Contains(longitude, latitude float64) bool {
	return longitude >= b.MinLng && longitude <= b.MaxLng &&
		latitude >= b.MinLat && latitude <= b.MaxLat
}

func ValidLongitude(v float64) bool { return v >= -180 && v <= 180 }

func ValidLatitude(v float64) bool { return v >= -90 && v <= 90 }
