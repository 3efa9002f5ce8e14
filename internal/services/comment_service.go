package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/models"
	"github.com/spothole/spothole-api/internal/session"
	"github.com/spothole/spothole-api/internal/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultCommentPageSize = 5
	MaxCommentPageSize     = 50
)

type CommentService struct {
	store           store.PotholeStore
	users           store.UserDirectory
	filter          *ContentFilter
	invalidator     ListInvalidator
	defaultPageSize int
}

// NewCommentService wires the comment log. filter and invalidator may be nil.
func NewCommentService(s store.PotholeStore, users store.UserDirectory, filter *ContentFilter, invalidator ListInvalidator, defaultPageSize int) *CommentService {
	if defaultPageSize < 1 || defaultPageSize > MaxCommentPageSize {
		defaultPageSize = DefaultCommentPageSize
	}
	return &CommentService{
		store:           s,
		users:           users,
		filter:          filter,
		invalidator:     invalidator,
		defaultPageSize: defaultPageSize,
	}
}

// List returns one page of comments, most recent first. page is 1-based; a
// non-positive pageSize selects the default.
func (s *CommentService) List(ctx context.Context, potholeID string, page, pageSize int) (*dto.CommentPage, error) {
	oid, err := ParseID(potholeID)
	if err != nil {
		return nil, err
	}
	if pageSize < 1 {
		pageSize = s.defaultPageSize
	}
	if pageSize > MaxCommentPageSize {
		pageSize = MaxCommentPageSize
	}

	comments, err := s.store.Comments(ctx, oid)
	if err != nil {
		return nil, err
	}
	window, hasMore := Paginate(comments, page, pageSize)

	authorIDs := make([]primitive.ObjectID, 0, len(window))
	for _, c := range window {
		authorIDs = append(authorIDs, c.User)
	}
	authors, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CommentItem, 0, len(window))
	for _, c := range window {
		author := dto.CommentAuthor{ID: c.User.Hex()}
		if u, ok := authors[c.User]; ok {
			author.Name = u.Name
			author.Image = u.Image
		}
		items = append(items, commentItem(c, author))
	}
	return &dto.CommentPage{Items: items, HasMore: hasMore}, nil
}

// Add appends a comment by the signed-in user and returns it with the
// author's display fields filled in.
func (s *CommentService) Add(ctx context.Context, potholeID string, ident *session.Identity, text string) (*dto.CommentItem, error) {
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

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("text", "Comment text is required")
	}
	if s.filter != nil {
		if ok, reason := s.filter.Check(text); !ok {
			return nil, models.NewValidationError("text", s.filter.RejectionMessage(reason))
		}
	}

	author, err := s.author(ctx, ident)
	if err != nil {
		return nil, err
	}
	authorID, err := primitive.ObjectIDFromHex(author.ID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	c := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      authorID,
		Text:      text,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.store.AppendComment(ctx, oid, c); err != nil {
		return nil, err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}

	item := commentItem(c, author)
	return &item, nil
}

// author resolves display fields through the user directory, falling back
// to the session claims when the directory has no record yet.
func (s *CommentService) author(ctx context.Context, ident *session.Identity) (dto.CommentAuthor, error) {
	u, err := resolveUser(ctx, s.users, ident)
	if err == nil {
		return dto.CommentAuthor{ID: u.ID.Hex(), Name: u.Name, Image: u.Image}, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return dto.CommentAuthor{}, err
	}
	if _, perr := primitive.ObjectIDFromHex(ident.UserID); perr != nil {
		return dto.CommentAuthor{}, ErrUserNotFound
	}
	return dto.CommentAuthor{ID: ident.UserID, Name: ident.Name, Image: ident.Image}, nil
}

func commentItem(c models.Comment, author dto.CommentAuthor) dto.CommentItem {
	return dto.CommentItem{
		ID:        c.ID.Hex(),
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
		User:      author,
	}
}

// Paginate reverses a chronological comment log and returns the 1-based
// page of size pageSize, plus whether more comments follow it.
func Paginate(comments []models.Comment, page, pageSize int) ([]models.Comment, bool) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultCommentPageSize
	}
	total := len(comments)
	// Compare page counts before multiplying so huge pages cannot overflow.
	if page-1 >= (total+pageSize-1)/pageSize {
		return []models.Comment{}, false
	}
	offset := (page - 1) * pageSize
	end := offset + pageSize
	if end > total {
		end = total
	}

	window := make([]models.Comment, 0, end-offset)
	for i := offset; i < end; i++ {
		window = append(window, comments[total-1-i])
	}
	return window, total > offset+pageSize
}
