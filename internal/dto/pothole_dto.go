package dto

import (
	"time"

	"github.com/spothole/spothole-api/internal/models"
)

type CreatePotholeRequest struct {
	Longitude   *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Latitude    *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	ImageURL    string   `json:"imageUrl" validate:"required,url"`
	Description string   `json:"description" validate:"max=2000"`
	Severity    string   `json:"severity" validate:"omitempty,oneof=Minor Major Severe Critical"`
}

// PotholeFlat is the client-facing shape of a report: the stored
// [longitude, latitude] pair split into named fields and the id as a string.
type PotholeFlat struct {
	ID           string          `json:"id"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	CreatedAt    time.Time       `json:"createdAt"`
	ImageURL     string          `json:"imageUrl"`
	Description  string          `json:"description,omitempty"`
	Status       models.Status   `json:"status"`
	Severity     models.Severity `json:"severity,omitempty"`
	Address      string          `json:"address,omitempty"`
	UpvoteCount  int             `json:"upvoteCount"`
	CommentCount int             `json:"commentCount"`
}

type UpvoteResult struct {
	Upvotes     []string `json:"upvotes"`
	UpvoteCount int      `json:"upvoteCount"`
	Added       bool     `json:"-"`
}

type CreateCommentRequest struct {
	Text string `json:"text"`
}

type CommentAuthor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type CommentItem struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"createdAt"`
	User      CommentAuthor `json:"user"`
}

type CommentPage struct {
	Items   []CommentItem
	HasMore bool
}

type UploadRequest struct {
	FileType string `json:"fileType" validate:"required"`
}

type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Key     string `json:"key"`
}

type GeocodeResponse struct {
	Success bool   `json:"success"`
	Address string `json:"address"`
}
