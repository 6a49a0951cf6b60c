package cart

import (
	"context"
	"log/slog"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

// Service exposes cart operations for the authenticated user.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		log:   logging.New("cart"),
	}
}

func (s *Service) Get(ctx context.Context, p domain.Principal) (*domain.Cart, error) {
	if err := domain.RequireKind(p, domain.KindUser); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, p.ID)
}

func (s *Service) Add(ctx context.Context, p domain.Principal, ref string, quantity int) (*domain.Cart, error) {
	return s.update(ctx, p, func(lines []domain.CartLine) ([]domain.CartLine, error) {
		return domain.AddLine(lines, ref, quantity)
	})
}

func (s *Service) SetQuantity(ctx context.Context, p domain.Principal, ref string, quantity int) (*domain.Cart, error) {
	return s.update(ctx, p, func(lines []domain.CartLine) ([]domain.CartLine, error) {
		return domain.SetLineQuantity(lines, ref, quantity)
	})
}

func (s *Service) Remove(ctx context.Context, p domain.Principal, ref string) (*domain.Cart, error) {
	return s.update(ctx, p, func(lines []domain.CartLine) ([]domain.CartLine, error) {
		return domain.RemoveLine(lines, ref), nil
	})
}

func (s *Service) Clear(ctx context.Context, p domain.Principal) error {
	if err := domain.RequireKind(p, domain.KindUser); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, p.ID); err != nil {
		logging.FromCtx(ctx).Error("cart clear failed", "user_id", p.ID, "err", err)
		return err
	}
	return nil
}

func (s *Service) update(ctx context.Context, p domain.Principal, fn UpdateFunc) (*domain.Cart, error) {
	if err := domain.RequireKind(p, domain.KindUser); err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, p.ID, fn)
	if err != nil {
		s.log.Debug("cart update rejected", "user_id", p.ID, "err", err)
		return nil, err
	}
	return c, nil
}
