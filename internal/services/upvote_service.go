package services

import (
	"context"

	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/session"
	"github.com/spothole/spothole-api/internal/store"
)

// ListInvalidator is notified after a mutation changes listing counts.
type ListInvalidator interface {
	Invalidate(ctx context.Context)
}

type UpvoteService struct {
	store       store.PotholeStore
	users       store.UserDirectory
	invalidator ListInvalidator
}

func NewUpvoteService(s store.PotholeStore, users store.UserDirectory, invalidator ListInvalidator) *UpvoteService {
	return &UpvoteService{store: s, users: users, invalidator: invalidator}
}

// Toggle adds the caller to the upvote set when absent and removes them when
// present. Two calls in a row leave the set as it was.
func (s *UpvoteService) Toggle(ctx context.Context, potholeID string, ident *session.Identity) (*dto.UpvoteResult, error) {
	if ident == nil {
		return nil, ErrUnauthorized
	}
	oid, err := ParseID(potholeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindByID(ctx, oid); err != nil {
		return nil, err
	}

	user, err := resolveUser(ctx, s.users, ident)
	if err != nil {
		return nil, err
	}

	upvotes, err := s.store.ToggleUpvote(ctx, oid, user.ID)
	if err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	res := &dto.UpvoteResult{Upvotes: make([]string, 0, len(upvotes))}
	for _, u := range upvotes {
		res.Upvotes = append(res.Upvotes, u.Hex())
		if u == user.ID {
			res.Added = true
		}
	}
	res.UpvoteCount = len(res.Upvotes)
	return res, nil
}
