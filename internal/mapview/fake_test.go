package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spothole/spothole-api/internal/dto"
)

var errBackend = errors.New("backend unavailable")

// fakeAPI serves one report's comments newest first, like the server does.
type fakeAPI struct {
	mu sync.Mutex

	reports  []dto.PotholeFlat
	comments map[string][]dto.CommentItem
	upvoted  map[string]bool
	nextID   int

	listCalls    int
	commentCalls []int
	listErr      error
	commentsErr  error
	addErr       error
	// gate, when set, blocks Comments until it is closed.
	gate chan struct{}
}

func newFakeAPI(reports ...dto.PotholeFlat) *fakeAPI {
	return &fakeAPI{reports: reports, comments: map[string][]dto.CommentItem{}, upvoted: map[string]bool{}}
}

func (f *fakeAPI) seedComments(reportID string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		f.prependLocked(reportID, fmt.Sprintf("comment %d", i+1))
	}
}

func (f *fakeAPI) prependLocked(reportID, text string) dto.CommentItem {
	f.nextID++
	c := dto.CommentItem{
		ID:        fmt.Sprintf("c%03d", f.nextID),
		Text:      text,
		CreatedAt: base.Add(time.Duration(f.nextID) * time.Second),
		User:      dto.CommentAuthor{ID: "u1", Name: "Alice"},
	}
	f.comments[reportID] = append([]dto.CommentItem{c}, f.comments[reportID]...)
	for i := range f.reports {
		if f.reports[i].ID == reportID {
			f.reports[i].CommentCount++
		}
	}
	return c
}

func (f *fakeAPI) ListPotholes(context.Context) ([]dto.PotholeFlat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]dto.PotholeFlat(nil), f.reports...), nil
}

func (f *fakeAPI) Comments(ctx context.Context, reportID string, page, limit int) (*dto.CommentPage, error) {
	f.mu.Lock()
	gate := f.gate
	f.commentCalls = append(f.commentCalls, page)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentsErr != nil {
		return nil, f.commentsErr
	}
	all := f.comments[reportID]
	start := (page - 1) * limit
	if start >= len(all) {
		return &dto.CommentPage{Items: []dto.CommentItem{}}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return &dto.CommentPage{
		Items:   append([]dto.CommentItem(nil), all[start:end]...),
		HasMore: len(all) > start+limit,
	}, nil
}

func (f *fakeAPI) AddComment(_ context.Context, reportID, text string) (*dto.CommentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	c := f.prependLocked(reportID, text)
	return &c, nil
}

func (f *fakeAPI) ToggleUpvote(_ context.Context, reportID string) (*dto.UpvoteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upvoted[reportID] = !f.upvoted[reportID]
	res := &dto.UpvoteResult{Upvotes: []string{}}
	if f.upvoted[reportID] {
		res.Upvotes = append(res.Upvotes, "u1")
		res.Added = true
	}
	res.UpvoteCount = len(res.Upvotes)
	for i := range f.reports {
		if f.reports[i].ID == reportID {
			f.reports[i].UpvoteCount = res.UpvoteCount
		}
	}
	return res, nil
}
