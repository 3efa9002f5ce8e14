package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spothole/spothole-api/internal/cache"
	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressLookup resolves a coordinate to a street address.
type AddressLookup interface {
	Reverse(ctx context.Context, latitude, longitude float64) (string, error)
}

type PotholeService struct {
	store         store.PotholeStore
	cache         cache.ListCache
	geocoder      AddressLookup
	onCacheLookup func(hit bool)
}

// NewPotholeService wires the report store. cache and geocoder may be nil.
func NewPotholeService(s store.PotholeStore, c cache.ListCache, geocoder AddressLookup) *PotholeService {
	if c == nil {
		c = cache.Noop{}
	}
	return &PotholeService{store: s, cache: c, geocoder: geocoder}
}

// ObserveCache registers fn to be called after every list cache lookup.
func (s *PotholeService) ObserveCache(fn func(hit bool)) {
	s.onCacheLookup = fn
}

// Create validates and stores a new report. reporter is optional.
func (s *PotholeService) Create(ctx context.Context, req *dto.CreatePotholeRequest, reporter *primitive.ObjectID) (*models.Pothole, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}

	p := &models.Pothole{
		Location:    models.NewGeoPoint(*req.Longitude, *req.Latitude),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Description: strings.TrimSpace(req.Description),
		Severity:    models.Severity(req.Severity),
		Status:      models.StatusReported,
		ReportedBy:  reporter,
	}

	if s.geocoder != nil {
		// Best effort: a failed lookup leaves the address empty.
		if addr, err := s.geocoder.Reverse(ctx, *req.Latitude, *req.Longitude); err == nil {
			p.Address = addr
		} else {
			slog.Warn("reverse geocode failed", "error", err)
		}
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)
	return p, nil
}

// ListFlat returns every report, newest first, in client shape.
func (s *PotholeService) ListFlat(ctx context.Context) ([]dto.PotholeFlat, error) {
	return s.cached(ctx, "all", s.store.FindAll)
}

// ListFlatWithin returns reports inside box, newest first.
func (s *PotholeService) ListFlatWithin(ctx context.Context, box models.BoundingBox) ([]dto.PotholeFlat, error) {
	key := fmt.Sprintf("bbox:%g,%g,%g,%g", box.MinLng, box.MinLat, box.MaxLng, box.MaxLat)
	return s.cached(ctx, key, func(ctx context.Context) ([]models.Pothole, error) {
		return s.store.FindWithin(ctx, box)
	})
}

func (s *PotholeService) cached(ctx context.Context, key string, load func(context.Context) ([]models.Pothole, error)) ([]dto.PotholeFlat, error) {
	raw, version, ok := s.cache.Get(ctx, key)
	if ok {
		var flat []dto.PotholeFlat
		if err := json.Unmarshal(raw, &flat); err == nil {
			s.observe(true)
			return flat, nil
		}
		slog.Warn("discarding undecodable list cache entry", "key", key)
	}
	s.observe(false)

	potholes, err := load(ctx)
	if err != nil {
		return nil, err
	}
	flat := FlattenAll(potholes)

	if raw, err := json.Marshal(flat); err == nil {
		s.cache.Set(ctx, key, version, raw)
	}
	return flat, nil
}

func (s *PotholeService) observe(hit bool) {
	if s.onCacheLookup != nil {
		s.onCacheLookup(hit)
	}
}

// Get returns one report in client shape.
func (s *PotholeService) Get(ctx context.Context, id string) (*dto.PotholeFlat, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	flat := Flatten(p)
	return &flat, nil
}

// Invalidate drops cached listings after a mutation made elsewhere.
func (s *PotholeService) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// Flatten splits the stored [longitude, latitude] pair into named fields.
func Flatten(p *models.Pothole) dto.PotholeFlat {
	return dto.PotholeFlat{
		ID:           p.ID.Hex(),
		Latitude:     p.Location.Latitude(),
		Longitude:    p.Location.Longitude(),
		CreatedAt:    p.CreatedAt,
		ImageURL:     p.ImageURL,
		Description:  p.Description,
		Status:       p.Status,
		Severity:     p.Severity,
		Address:      p.Address,
		UpvoteCount:  len(p.Upvotes),
		CommentCount: len(p.Comments),
	}
}

func FlattenAll(potholes []models.Pothole) []dto.PotholeFlat {
	flat := make([]dto.PotholeFlat, 0, len(potholes))
	for i := range potholes {
		flat = append(flat, Flatten(&potholes[i]))
	}
	return flat
}
