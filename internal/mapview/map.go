package mapview

import (
	"context"
	"fmt"

	"github.com/spothole/spothole-api/internal/dto"
)

// API is the server surface the map uses.
type API interface {
	Fetcher
	DetailAPI
}

// Map ties the report snapshot, clustering and the detail panel together.
// Any successful mutation through the panel triggers a full refresh.
type Map struct {
	api      API
	reports  *Aggregator
	panel    *Panel
	viewport Viewport
	radius   float64
	maxZoom  int
	pageSize int
}

type Option func(*Map)

func WithClusterRadius(px float64) Option { return func(m *Map) { m.radius = px } }

func WithMaxZoom(z int) Option { return func(m *Map) { m.maxZoom = z } }

func WithCommentPageSize(n int) Option { return func(m *Map) { m.pageSize = n } }

// NewMap starts from seed, the list rendered with the page.
func NewMap(api API, seed []dto.PotholeFlat, view Viewport, opts ...Option) *Map {
	m := &Map{
		api:      api,
		reports:  NewAggregator(seed),
		viewport: view,
		radius:   DefaultClusterRadius,
		maxZoom:  DefaultMaxZoom,
		pageSize: 5,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.panel = NewPanel(api, m.pageSize)
	return m
}

func (m *Map) Reports() *Aggregator { return m.reports }

func (m *Map) Panel() *Panel { return m.panel }

func (m *Map) Viewport() Viewport { return m.viewport }

// Clusters groups the current snapshot for the current zoom.
func (m *Map) Clusters() []Cluster {
	return ClusterReports(m.reports.Snapshot().Reports, m.viewport.Zoom, m.radius)
}

// Refresh replaces the markers with the server's current list.
func (m *Map) Refresh(ctx context.Context) error {
	return m.reports.Refresh(ctx, m.api)
}

// ClickMarker recenters on the report and opens its detail panel.
func (m *Map) ClickMarker(ctx context.Context, reportID string) (PanTo, error) {
	r, ok := m.reports.Find(reportID)
	if !ok {
		return PanTo{}, fmt.Errorf("report %s is not on the map", reportID)
	}
	pan := m.viewport.FocusMarker(r)
	m.viewport.Center = pan.Center
	return pan, m.panel.Open(ctx, reportID)
}

// ClickCluster zooms in until the cluster splits.
func (m *Map) ClickCluster(c Cluster) PanTo {
	pan := m.viewport.ExpandCluster(c, m.maxZoom, m.radius)
	m.viewport = Viewport{Center: pan.Center, Zoom: pan.Zoom}
	return pan
}

// ToggleUpvote toggles on the open report, then refreshes the markers.
func (m *Map) ToggleUpvote(ctx context.Context) (*dto.UpvoteResult, error) {
	res, err := m.panel.ToggleUpvote(ctx)
	if err != nil {
		return nil, err
	}
	_ = m.Refresh(ctx)
	return res, nil
}

// AddComment posts on the open report, then refreshes the markers.
func (m *Map) AddComment(ctx context.Context, text string) (*dto.CommentItem, error) {
	item, err := m.panel.AddComment(ctx, text)
	if err != nil {
		return nil, err
	}
	_ = m.Refresh(ctx)
	return item, nil
}
