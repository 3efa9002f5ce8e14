package services

import (
	"context"
	"errors"

	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/session"
	"github.com/spothole/spothole-api/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPotholeNotFound = store.ErrNotFound
	ErrUserNotFound    = store.ErrUserNotFound
	ErrInvalidID       = errors.New("invalid pothole id")
)

// ParseID parses a hex object id. An unparseable id cannot name any report,
// so callers treat ErrInvalidID as not found.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// IsNotFound reports whether err names a missing report or user.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPotholeNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidID)
}

// IsValidation reports whether err is a *models.ValidationError.
func IsValidation(err error) bool {
	var verr *models.ValidationError
	return errors.As(err, &verr)
}

// resolveUser maps the session identity to a stored user: by id when the
// subject is an object id, otherwise by email.
func resolveUser(ctx context.Context, users store.UserDirectory, ident *session.Identity) (*models.User, error) {
	if ident == nil {
		return nil, ErrUnauthorized
	}
	if oid, err := primitive.ObjectIDFromHex(ident.UserID); err == nil {
		u, err := users.FindByID(ctx, oid)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, store.ErrUserNotFound) {
			return nil, err
		}
	}
	if ident.Email != "" {
		return users.FindByEmail(ctx, ident.Email)
	}
	return nil, ErrUserNotFound
}
