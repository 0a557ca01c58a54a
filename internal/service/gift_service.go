package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/justuche224/swift/internal/auth"
	"github.com/justuche224/swift/internal/catalog"
	"github.com/justuche224/swift/internal/domain"
	"github.com/justuche224/swift/internal/revalidate"
)

const PublicGiftPageSize = 12

type GiftService struct {
	repo     catalog.Repository
	authz    auth.Authorizer
	notifier revalidate.Notifier
	log      *slog.Logger
}

func NewGiftService(repo catalog.Repository, authz auth.Authorizer, notifier revalidate.Notifier, log *slog.Logger) *GiftService {
	if notifier == nil {
		notifier = revalidate.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &GiftService{repo: repo, authz: authz, notifier: notifier, log: log}
}

// ListActive is the public catalog listing.
func (s *GiftService) ListActive(ctx context.Context, page, limit int) (*domain.GiftPage, error) {
	page, limit = normalizePage(page, limit, PublicGiftPageSize)
	return s.list(ctx, catalog.ListFilter{Page: page, PageSize: limit, ActiveOnly: true})
}

// GetActive hides inactive gifts from the public.
func (s *GiftService) GetActive(ctx context.Context, id string) (*domain.Gift, error) {
	g, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, ErrGiftNotFound
	}
	return g, nil
}

func (s *GiftService) AdminList(ctx context.Context, page, limit int, query string) (*domain.GiftPage, error) {
	if _, err := requireAdmin(ctx, s.authz); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit, DefaultPageSize)
	return s.list(ctx, catalog.ListFilter{Page: page, PageSize: limit, Query: query})
}

func (s *GiftService) AdminGet(ctx context.Context, id string) (*domain.Gift, error) {
	if _, err := requireAdmin(ctx, s.authz); err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *GiftService) Create(ctx context.Context, g domain.Gift) (*domain.Gift, error) {
	if _, err := requireAdmin(ctx, s.authz); err != nil {
		return nil, err
	}
	g.ID = ""
	if err := normalizeGift(&g); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &g); err != nil {
		return nil, &PersistenceError{Op: "create gift", Err: err}
	}
	s.notifier.Invalidate(ctx, revalidate.GiftKeys(g.ID)...)
	return &g, nil
}

func (s *GiftService) Update(ctx context.Context, id string, g domain.Gift) (*domain.Gift, error) {
	if _, err := requireAdmin(ctx, s.authz); err != nil {
		return nil, err
	}
	g.ID = id
	if err := normalizeGift(&g); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &g); err != nil {
		return nil, mapCatalogErr("update gift", err)
	}
	s.notifier.Invalidate(ctx, revalidate.GiftKeys(id)...)
	return &g, nil
}

func (s *GiftService) Delete(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx, s.authz); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapCatalogErr("delete gift", err)
	}
	s.notifier.Invalidate(ctx, revalidate.GiftKeys(id)...)
	return nil
}

func (s *GiftService) SetActive(ctx context.Context, id string, active bool) (*domain.Gift, error) {
	if _, err := requireAdmin(ctx, s.authz); err != nil {
		return nil, err
	}
	g, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, mapCatalogErr("toggle gift", err)
	}
	s.notifier.Invalidate(ctx, revalidate.GiftKeys(id)...)
	return g, nil
}

func (s *GiftService) list(ctx context.Context, f catalog.ListFilter) (*domain.GiftPage, error) {
	gifts, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, &PersistenceError{Op: "list gifts", Err: err}
	}
	return &domain.GiftPage{
		Gifts:      gifts,
		Pagination: domain.NewPagination(f.Page, f.PageSize, total),
	}, nil
}

func (s *GiftService) get(ctx context.Context, id string) (*domain.Gift, error) {
	g, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapCatalogErr("get gift", err)
	}
	return g, nil
}

func mapCatalogErr(op string, err error) error {
	if errors.Is(err, catalog.ErrGiftNotFound) {
		return ErrGiftNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}

func normalizeGift(g *domain.Gift) error {
	g.Name = strings.TrimSpace(g.Name)
	g.Category = strings.TrimSpace(g.Category)
	g.Sizes = cleanList(g.Sizes)
	g.ImageURLs = cleanList(g.ImageURLs)

	switch {
	case g.Name == "":
		return invalid("name", "is required")
	case g.Price.IsNegative():
		return invalid("price", "must not be negative")
	case g.Stock < 0:
		return invalid("stock", "must not be negative")
	}
	return nil
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
