package product

import (
	"context"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type ListResult struct {
	Items []*Product `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

type Service interface {
	GetList(ctx context.Context, opts ListOptions) (*ListResult, error)
	GetProductByID(ctx context.Context, id uint) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetList(ctx context.Context, opts ListOptions) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "GetProductList"),
	)

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	} else if opts.Limit > 100 {
		opts.Limit = 100
	}

	items, total, err := s.repo.List(ctx, opts)
	if err != nil {
		log.Error("failed to list products", zap.Error(err))
		return nil, err
	}

	return &ListResult{Items: items, Total: total, Page: opts.Page, Limit: opts.Limit}, nil
}

func (s *service) GetProductByID(ctx context.Context, id uint) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}
