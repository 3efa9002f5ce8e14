package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spothole/spothole-api/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("pothole not found")
	ErrUserNotFound = errors.New("user not found")
)

// PotholeStore persists pothole reports together with their embedded
// upvote set and comment log.
type PotholeStore interface {
	// Create assigns the id and timestamps and inserts the report.
	Create(ctx context.Context, p *models.Pothole) error

	// FindAll returns every report, newest first.
	FindAll(ctx context.Context) ([]models.Pothole, error)

	// FindWithin returns reports whose location lies inside box, newest first.
	FindWithin(ctx context.Context, box models.BoundingBox) ([]models.Pothole, error)

	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Pothole, error)

	// Comments returns the comment log of a report in chronological order.
	Comments(ctx context.Context, id primitive.ObjectID) ([]models.Comment, error)

	// AppendComment atomically pushes c to the end of the comment log.
	AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error

	// ToggleUpvote atomically adds userID to the upvote set when absent and
	// removes it when present. It returns the resulting set.
	ToggleUpvote(ctx context.Context, id, userID primitive.ObjectID) ([]primitive.ObjectID, error)

	// Save replaces the whole document.
	Save(ctx context.Context, p *models.Pothole) error

	// NormalizeLegacy rewrites documents older than the current schema and
	// returns how many were changed.
	NormalizeLegacy(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}

// UserDirectory reads users owned by the identity provider.
type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

// validateNew checks the fields a report cannot be created without.
func validateNew(p *models.Pothole) error {
	if len(p.Location.Coordinates) != 2 {
		return models.NewValidationError("location", "location is required")
	}
	if !models.ValidLongitude(p.Location.Longitude()) {
		return models.NewValidationError("longitude", "longitude must be between -180 and 180")
	}
	if !models.ValidLatitude(p.Location.Latitude()) {
		return models.NewValidationError("latitude", "latitude must be between -90 and 90")
	}
	if strings.TrimSpace(p.ImageURL) == "" {
		return models.NewValidationError("imageUrl", "imageUrl is required")
	}
	return nil
}

// prepareNew fills server-assigned fields on a report about to be inserted.
func prepareNew(p *models.Pothole, now time.Time) {
	p.ID = primitive.NewObjectID()
	p.Location.Type = "Point"
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Normalize()
}

// now is truncated to the precision BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
