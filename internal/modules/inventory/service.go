package inventory

import (
	"context"
	"log/slog"
)

// Service is the stock reservation manager. A reservation is a provisional
// decrement made before payment confirmation; Release is its inverse and is
// applied at most once per order.
type Service interface {
	Reserve(ctx context.Context, orderRef string, lines []Line) error
	Release(ctx context.Context, orderID string, lines []Line) (bool, error)
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new inventory service.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) Reserve(ctx context.Context, orderRef string, lines []Line) error {
	if err := s.repo.Reserve(ctx, lines); err != nil {
		s.logger.Error("failed to reserve stock", "orderRef", orderRef, "error", err)
		return err
	}
	s.logger.Info("stock reserved", "orderRef", orderRef, "lines", len(lines))
	return nil
}

func (s *service) Release(ctx context.Context, orderID string, lines []Line) (bool, error) {
	released, err := s.repo.Release(ctx, orderID, lines)
	if err != nil {
		s.logger.Error("failed to release stock", "orderId", orderID, "error", err)
		return false, err
	}
	if released {
		s.logger.Info("stock released", "orderId", orderID, "lines", len(lines))
	}
	return released, nil
}
