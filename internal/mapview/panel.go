package mapview

import (
	"context"
	"errors"
	"sync"

	"github.com/spothole/spothole-api/internal/dto"
)

type PanelState int

const (
	PanelClosed PanelState = iota
	PanelLoadingFirst
	PanelLoaded
	PanelLoadingMore
)

func (s PanelState) String() string {
	switch s {
	case PanelClosed:
		return "closed"
	case PanelLoadingFirst:
		return "loading_first_page"
	case PanelLoaded:
		return "loaded"
	case PanelLoadingMore:
		return "loading_next_page"
	default:
		return "unknown"
	}
}

var (
	ErrPanelClosed = errors.New("detail panel is closed")
	ErrPanelBusy   = errors.New("detail panel is loading")
	ErrNoMorePages = errors.New("no more comments")
	ErrStalePage   = errors.New("comment page belongs to a superseded panel")
)

// DetailAPI is what the detail panel calls on the server.
type DetailAPI interface {
	Comments(ctx context.Context, potholeID string, page, limit int) (*dto.CommentPage, error)
	AddComment(ctx context.Context, potholeID, text string) (*dto.CommentItem, error)
	ToggleUpvote(ctx context.Context, potholeID string) (*dto.UpvoteResult, error)
}

// Panel is the detail view of one report: its comments, loaded page by
// page, and its upvote set. Opening a marker starts a new session; results
// that arrive for an earlier session are dropped.
type Panel struct {
	mu       sync.Mutex
	api      DetailAPI
	pageSize int

	state    PanelState
	session  uint64
	reportID string
	comments []dto.CommentItem
	page     int
	hasMore  bool
	upvotes  *dto.UpvoteResult
	err      error
}

func NewPanel(api DetailAPI, pageSize int) *Panel {
	if pageSize < 1 {
		pageSize = 5
	}
	return &Panel{api: api, pageSize: pageSize}
}

// PanelView is a copy of the panel's state for rendering.
type PanelView struct {
	State    PanelState
	ReportID string
	Comments []dto.CommentItem
	HasMore  bool
	Upvotes  *dto.UpvoteResult
	Err      error
}

func (p *Panel) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := PanelView{
		State:    p.state,
		ReportID: p.reportID,
		Comments: append([]dto.CommentItem(nil), p.comments...),
		HasMore:  p.hasMore,
		Err:      p.err,
	}
	if p.upvotes != nil {
		u := *p.upvotes
		u.Upvotes = append([]string(nil), p.upvotes.Upvotes...)
		v.Upvotes = &u
	}
	return v
}

// Open shows reportID and loads its first comment page.
func (p *Panel) Open(ctx context.Context, reportID string) error {
	p.mu.Lock()
	p.session++
	session := p.session
	p.state = PanelLoadingFirst
	p.reportID = reportID
	p.comments = nil
	p.page = 0
	p.hasMore = false
	p.upvotes = nil
	p.err = nil
	p.mu.Unlock()

	return p.fetch(ctx, session, reportID, 1)
}

// NearBottom loads the next comment page when more exist and no load is
// in flight.
func (p *Panel) NearBottom(ctx context.Context) error {
	p.mu.Lock()
	switch {
	case p.state == PanelClosed:
		p.mu.Unlock()
		return ErrPanelClosed
	case p.state != PanelLoaded:
		p.mu.Unlock()
		return ErrPanelBusy
	case !p.hasMore:
		p.mu.Unlock()
		return ErrNoMorePages
	}
	p.state = PanelLoadingMore
	session, reportID, next := p.session, p.reportID, p.page+1
	p.mu.Unlock()

	return p.fetch(ctx, session, reportID, next)
}

func (p *Panel) fetch(ctx context.Context, session uint64, reportID string, page int) error {
	result, err := p.api.Comments(ctx, reportID, page, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()
	if session != p.session || p.state == PanelClosed {
		return ErrStalePage
	}
	if err != nil {
		// A failed first page leaves an empty, retryable panel; a failed
		// later page keeps what is already shown.
		p.err = err
		p.state = PanelLoaded
		if page == 1 {
			p.hasMore = true
		}
		return err
	}
	seen := make(map[string]struct{}, len(p.comments))
	for _, c := range p.comments {
		seen[c.ID] = struct{}{}
	}
	// Comments posted from this panel shift later pages by one.
	for _, c := range result.Items {
		if _, dup := seen[c.ID]; !dup {
			p.comments = append(p.comments, c)
		}
	}
	p.page = page
	p.hasMore = result.HasMore
	p.err = nil
	p.state = PanelLoaded
	return nil
}

// ToggleUpvote is available in every open state and leaves paging alone.
func (p *Panel) ToggleUpvote(ctx context.Context) (*dto.UpvoteResult, error) {
	p.mu.Lock()
	if p.state == PanelClosed {
		p.mu.Unlock()
		return nil, ErrPanelClosed
	}
	session, reportID := p.session, p.reportID
	p.mu.Unlock()

	res, err := p.api.ToggleUpvote(ctx, reportID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if session == p.session && p.state != PanelClosed {
		p.upvotes = res
	}
	return res, nil
}

// AddComment posts text and shows it at the top of the list. On failure
// nothing changes so the caller can keep the draft and retry.
func (p *Panel) AddComment(ctx context.Context, text string) (*dto.CommentItem, error) {
	p.mu.Lock()
	if p.state == PanelClosed {
		p.mu.Unlock()
		return nil, ErrPanelClosed
	}
	session, reportID := p.session, p.reportID
	p.mu.Unlock()

	item, err := p.api.AddComment(ctx, reportID, text)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if session == p.session && p.state != PanelClosed {
		p.comments = append([]dto.CommentItem{*item}, p.comments...)
	}
	return item, nil
}

func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session++
	p.state = PanelClosed
	p.reportID = ""
	p.comments = nil
	p.page = 0
	p.hasMore = false
	p.upvotes = nil
	p.err = nil
}
