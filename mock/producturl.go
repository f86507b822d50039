package mock

import (
	"context"

	"github.com/fwojciec/pricewatch"
)

var _ pricewatch.ProductURLService = (*ProductURLService)(nil)

// ProductURLService is a mock implementation of pricewatch.ProductURLService.
type ProductURLService struct {
	CreateProductURLFn func(ctx context.Context, u *pricewatch.ProductURL) error
	FindProductURLsFn  func(ctx context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error)
	DeleteProductURLFn func(ctx context.Context, id string) error
}

func (s *ProductURLService) CreateProductURL(ctx context.Context, u *pricewatch.ProductURL) error {
	return s.CreateProductURLFn(ctx, u)
}

func (s *ProductURLService) FindProductURLs(ctx context.Context, filter pricewatch.ProductURLFilter) ([]*pricewatch.ProductURL, error) {
	return s.FindProductURLsFn(ctx, filter)
}

func (s *ProductURLService) DeleteProductURL(ctx context.Context, id string) error {
	return s.DeleteProductURLFn(ctx, id)
}
