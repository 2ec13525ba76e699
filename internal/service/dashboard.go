package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/and161185/fastcite/internal/model"
)

// Dashboard is everything the dashboard view shows.
type Dashboard struct {
	Profile model.Profile
	Books   []model.Book
	Chats   []model.ChatSession
	Stats   model.DashboardStats
}

// DashboardAPI is the subset of the backend the dashboard reads.
type DashboardAPI interface {
	Profile(ctx context.Context) (model.Profile, error)
	Books(ctx context.Context) ([]model.Book, error)
	Chats(ctx context.Context) ([]model.ChatSession, error)
}

// DashboardService loads the dashboard.
type DashboardService interface {
	Load(ctx context.Context) (Dashboard, error)
}

type DashboardServiceImpl struct {
	api DashboardAPI
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(a DashboardAPI) *DashboardServiceImpl {
	return &DashboardServiceImpl{api: a}
}

// Load fetches profile, books and chats concurrently. The first failure
// cancels the others and is returned.
func (s *DashboardServiceImpl) Load(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.Profile(gctx)
		d.Profile = p
		return err
	})
	g.Go(func() error {
		b, err := s.api.Books(gctx)
		d.Books = b
		return err
	})
	g.Go(func() error {
		c, err := s.api.Chats(gctx)
		d.Chats = c
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	model.SortChatsByUpdated(d.Chats)
	d.Stats = model.ComputeStats(d.Books, d.Chats)
	return d, nil
}
